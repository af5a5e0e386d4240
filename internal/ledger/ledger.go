// Package ledger implements the authoritative state machine behind the
// Meridian dataset marketplace: role membership, a pausable fungible
// token ledger, the dataset registry and the license manager. All state
// is owned by the Ledger and mutated under a single writer; operations
// execute to completion and either commit fully or leave state untouched.
package ledger

import (
	"sync"
	"time"
)

// DefaultLicenseTerm is the license validity granted on purchase when
// the genesis block does not override it.
const DefaultLicenseTerm = 365 * 24 * time.Hour

// MaxPlatformFeeBps caps the platform fee at 10%.
const MaxPlatformFeeBps = 1000

// Genesis configures a fresh ledger. The admin account receives the
// administrative and supply roles and the initial supply, mirroring a
// deployment transaction.
type Genesis struct {
	AdminAccount    string
	PlatformAccount string
	PlatformFeeBps  uint32
	DefaultTerm     time.Duration
	InitialSupply   Amount

	// Clock supplies the per-operation time snapshot. Defaults to
	// time.Now; tests inject a frozen clock.
	Clock func() time.Time
}

// Ledger is the single-writer state machine. All exported mutators take
// the actor account as their first argument; authorization happens
// inside the ledger against its own role table.
type Ledger struct {
	mu    sync.Mutex
	clock func() time.Time

	roles      map[Role]map[string]struct{}
	roleAdmins map[Role]Role
	paused     bool

	balances    map[string]Amount
	allowances  map[string]Amount
	totalSupply Amount

	datasets     map[string]Dataset
	datasetCids  []string
	accessGrants map[string]struct{}

	licenses     map[string]License
	activeByPair map[string]string

	feeBps          uint32
	platformAccount string
	managerAccount  string
	defaultTerm     time.Duration
	purchaseSeq     uint64

	events   []Event
	pending  []Event
	eventSeq uint64

	obsMu     sync.RWMutex
	observers []Observer
}

// New builds a ledger from the genesis block. The admin account is
// granted DEFAULT_ADMIN, ADMIN, MINTER and BURNER; COMPLIANCE is left
// for the admin to delegate.
func New(g Genesis) (*Ledger, error) {
	if g.AdminAccount == "" {
		return nil, reject(KindEmptyIdentifier, "genesis admin account required")
	}
	if g.PlatformAccount == "" {
		return nil, reject(KindEmptyIdentifier, "genesis platform account required")
	}
	if g.PlatformFeeBps > MaxPlatformFeeBps {
		return nil, reject(KindFeeTooHigh, "platform fee %d bps exceeds the %d bps cap", g.PlatformFeeBps, MaxPlatformFeeBps)
	}
	term := g.DefaultTerm
	if term <= 0 {
		term = DefaultLicenseTerm
	}
	clock := g.Clock
	if clock == nil {
		clock = time.Now
	}
	l := &Ledger{
		clock:           clock,
		roles:           make(map[Role]map[string]struct{}),
		roleAdmins:      defaultRoleAdmins(),
		balances:        make(map[string]Amount),
		allowances:      make(map[string]Amount),
		datasets:        make(map[string]Dataset),
		accessGrants:    make(map[string]struct{}),
		licenses:        make(map[string]License),
		activeByPair:    make(map[string]string),
		feeBps:          g.PlatformFeeBps,
		platformAccount: g.PlatformAccount,
		managerAccount:  "meridian:license-manager",
		defaultTerm:     term,
	}
	now := clock().UTC()
	for _, role := range []Role{RoleDefaultAdmin, RoleAdmin, RoleMinter, RoleBurner} {
		l.setRole(role, g.AdminAccount)
		l.emit(EventRoleGranted, g.AdminAccount, g.AdminAccount, map[string]string{"role": string(role)}, now)
	}
	if g.InitialSupply.IsPositive() {
		l.balances[g.AdminAccount] = g.InitialSupply
		l.totalSupply = g.InitialSupply
		l.emit(EventTokensMinted, g.AdminAccount, g.AdminAccount, map[string]string{"amount": g.InitialSupply.String()}, now)
	}
	l.pending = l.pending[:0]
	return l, nil
}

// Subscribe registers an observer for committed events. Observers run
// after the originating operation has released the ledger lock.
func (l *Ledger) Subscribe(obs Observer) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, obs)
}

// ManagerAccount returns the account the license manager spends
// allowances as. Buyers approve this account before purchasing.
func (l *Ledger) ManagerAccount() string { return l.managerAccount }

// run executes one operation under the single-writer lock with one time
// snapshot. Operations are written validate-then-commit: every check
// precedes the first mutation, so a returned error means nothing moved.
// Should an operation still fail after emitting, its events are rewound
// so the log never records a rejected transaction.
func (l *Ledger) run(fn func(now time.Time) error) error {
	l.mu.Lock()
	now := l.clock().UTC()
	err := fn(now)
	var committed []Event
	if err != nil && len(l.pending) > 0 {
		l.events = l.events[:len(l.events)-len(l.pending)]
		l.eventSeq -= uint64(len(l.pending))
	} else {
		committed = append(committed, l.pending...)
	}
	l.pending = l.pending[:0]
	l.mu.Unlock()

	if len(committed) > 0 {
		l.obsMu.RLock()
		observers := l.observers
		l.obsMu.RUnlock()
		for _, obs := range observers {
			for _, ev := range committed {
				obs(ev)
			}
		}
	}
	return err
}

// requireUnpaused guards monetary and licensing mutators.
func (l *Ledger) requireUnpaused() error {
	if l.paused {
		return reject(KindSystemPaused, "monetary operations are paused")
	}
	return nil
}

func pairKey(a, b string) string { return a + "\x00" + b }
