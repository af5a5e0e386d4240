package ledger

import "time"

// Role names a capability granted per account.
type Role string

const (
	// RoleDefaultAdmin administers every other role, including itself.
	RoleDefaultAdmin Role = "DEFAULT_ADMIN"
	// RoleAdmin controls platform parameters such as the fee.
	RoleAdmin Role = "ADMIN"
	// RoleCompliance may revoke and extend licenses and remove datasets.
	RoleCompliance Role = "COMPLIANCE"
	// RoleMinter may create token supply.
	RoleMinter Role = "MINTER"
	// RoleBurner may destroy token supply.
	RoleBurner Role = "BURNER"
)

func defaultRoleAdmins() map[Role]Role {
	return map[Role]Role{
		RoleDefaultAdmin: RoleDefaultAdmin,
		RoleAdmin:        RoleDefaultAdmin,
		RoleCompliance:   RoleDefaultAdmin,
		RoleMinter:       RoleDefaultAdmin,
		RoleBurner:       RoleDefaultAdmin,
	}
}

func (l *Ledger) setRole(role Role, account string) {
	set, ok := l.roles[role]
	if !ok {
		set = make(map[string]struct{})
		l.roles[role] = set
	}
	set[account] = struct{}{}
}

func (l *Ledger) holdsRole(role Role, account string) bool {
	_, ok := l.roles[role][account]
	return ok
}

// adminRoleFor resolves which role administers the given role.
// Unconfigured roles fall back to DEFAULT_ADMIN.
func (l *Ledger) adminRoleFor(role Role) Role {
	if admin, ok := l.roleAdmins[role]; ok {
		return admin
	}
	return RoleDefaultAdmin
}

// GrantRole adds role to account. The actor must hold the role's admin
// role (DEFAULT_ADMIN unless configured otherwise). Granting a role an
// account already holds is a no-op that still succeeds.
func (l *Ledger) GrantRole(actor string, role Role, account string) error {
	return l.run(func(now time.Time) error {
		if account == "" {
			return reject(KindEmptyIdentifier, "account required")
		}
		if admin := l.adminRoleFor(role); !l.holdsRole(admin, actor) {
			return reject(KindUnauthorized, "account %s is missing role %s", actor, admin)
		}
		if l.holdsRole(role, account) {
			return nil
		}
		l.setRole(role, account)
		l.emit(EventRoleGranted, actor, account, map[string]string{"role": string(role)}, now)
		return nil
	})
}

// RevokeRole removes role from account under the same authorization as
// GrantRole. Revoking a role the account does not hold still succeeds.
//
// An admin may revoke its own DEFAULT_ADMIN role, potentially leaving
// the ledger without an administrator. That hazard is the caller's to
// manage.
func (l *Ledger) RevokeRole(actor string, role Role, account string) error {
	return l.run(func(now time.Time) error {
		if admin := l.adminRoleFor(role); !l.holdsRole(admin, actor) {
			return reject(KindUnauthorized, "account %s is missing role %s", actor, admin)
		}
		if !l.holdsRole(role, account) {
			return nil
		}
		delete(l.roles[role], account)
		l.emit(EventRoleRevoked, actor, account, map[string]string{"role": string(role)}, now)
		return nil
	})
}

// HasRole reports role membership. Read-only, never blocked by pause.
func (l *Ledger) HasRole(role Role, account string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holdsRole(role, account)
}
