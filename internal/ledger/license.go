package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"
)

// License is a time-bound access authorization for one dataset. Expiry
// is lazy: IsActive stays true past ExpiresAt until an explicit revoke,
// and validity checks compare the clock as well as the flag.
type License struct {
	ID        string
	Licensee  string
	Cid       string
	ExpiresAt time.Time
	IsActive  bool
	IssuedAt  time.Time
}

// deriveLicenseID hashes (licensee, cid, issue time, purchase counter).
// The counter disambiguates purchases that share a time quantum, so ids
// stay unique even for repeat purchases under a frozen clock.
func deriveLicenseID(licensee, cid string, at time.Time, seq uint64) string {
	h := sha256.New()
	h.Write([]byte(licensee))
	h.Write([]byte{0})
	h.Write([]byte(cid))
	h.Write([]byte{0})
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(at.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:], seq)
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// validLicense reports whether the pair holds an active, unexpired
// license as of now. Callers hold the lock.
func (l *Ledger) validLicense(licensee, cid string, now time.Time) (License, bool) {
	id, ok := l.activeByPair[pairKey(licensee, cid)]
	if !ok {
		return License{}, false
	}
	lic := l.licenses[id]
	if !lic.IsActive || !now.Before(lic.ExpiresAt) {
		return License{}, false
	}
	return lic, true
}

// CheckAndApproveTokenAllowance sets the actor's allowance for the
// license manager account to amount, the pre-approval purchaseLicense
// spends against.
func (l *Ledger) CheckAndApproveTokenAllowance(actor string, amount Amount) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if !amount.IsPositive() {
			return reject(KindInvalidAmount, "amount must be greater than 0")
		}
		l.allowances[pairKey(actor, l.managerAccount)] = amount
		l.emit(EventAllowanceChecked, actor, l.managerAccount, map[string]string{"amount": amount.String()}, now)
		return nil
	})
}

// PurchaseLicense buys a license for the actor on the given dataset.
// The price is split between the dataset owner and the platform account
// per the current fee, both paid out of the actor's pre-approved
// allowance in one atomic unit. On success a license record is created
// expiring after the default term.
func (l *Ledger) PurchaseLicense(actor, cid string) (License, error) {
	var lic License
	err := l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		ds, err := l.datasetFor(cid)
		if err != nil {
			return err
		}
		if ds.IsRemoved {
			return reject(KindDatasetRemoved, "dataset %s is removed", cid)
		}
		if ds.IsPublic {
			return reject(KindDatasetPublic, "dataset %s is public, no license needed", cid)
		}
		if _, active := l.validLicense(actor, cid, now); active {
			return reject(KindLicenseAlreadyActive, "license already active for %s on %s", actor, cid)
		}
		allowance := l.allowanceOf(actor, l.managerAccount)
		if allowance.Cmp(ds.Price) < 0 {
			return reject(KindInsufficientAllowance, "allowance %s below price %s, call checkAndApproveTokenAllowance first", allowance, ds.Price)
		}
		if l.balanceOf(actor).Cmp(ds.Price) < 0 {
			return reject(KindInsufficientBalance, "account %s holds %s, price is %s", actor, l.balanceOf(actor), ds.Price)
		}
		platformCut, ownerCut := ds.Price.SplitFee(l.feeBps)

		// All preconditions hold, so neither transfer below can fail:
		// the cuts sum to the price checked against balance and
		// allowance above. Commit starts here.
		remaining, err := allowance.Sub(ds.Price)
		if err != nil {
			return err
		}
		if err := l.moveTokens(actor, ds.Owner, ownerCut); err != nil {
			return err
		}
		if err := l.moveTokens(actor, l.platformAccount, platformCut); err != nil {
			return err
		}
		l.allowances[pairKey(actor, l.managerAccount)] = remaining

		l.purchaseSeq++
		lic = License{
			ID:        deriveLicenseID(actor, cid, now, l.purchaseSeq),
			Licensee:  actor,
			Cid:       cid,
			ExpiresAt: now.Add(l.defaultTerm),
			IsActive:  true,
			IssuedAt:  now,
		}
		l.licenses[lic.ID] = lic
		l.activeByPair[pairKey(actor, cid)] = lic.ID
		l.emit(EventLicenseGranted, actor, cid, map[string]string{
			"license_id":   lic.ID,
			"name":         ds.Name,
			"description":  ds.Description,
			"expires_at":   lic.ExpiresAt.Format(time.RFC3339),
			"price":        ds.Price.String(),
			"owner_cut":    ownerCut.String(),
			"platform_cut": platformCut.String(),
		}, now)
		return nil
	})
	if err != nil {
		return License{}, err
	}
	return lic, nil
}

// activeRecord returns the pair's license if its IsActive flag is set,
// ignoring expiry: an expired license keeps its flag until revoked, and
// revocation is how the flag gets cleared. Callers hold the lock.
func (l *Ledger) activeRecord(licensee, cid string) (License, bool) {
	id, ok := l.activeByPair[pairKey(licensee, cid)]
	if !ok {
		return License{}, false
	}
	lic := l.licenses[id]
	return lic, lic.IsActive
}

// RevokeLicense deactivates the licensee's license for cid. COMPLIANCE
// only. The record is retained with IsActive=false. Expired licenses
// whose flag is still set can be revoked; that is the only way the
// flag ever clears.
func (l *Ledger) RevokeLicense(actor, cid, licensee string) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if err := l.authorize(actor, OpRevokeLicense); err != nil {
			return err
		}
		lic, active := l.activeRecord(licensee, cid)
		if !active {
			return reject(KindNoValidLicense, "no valid license for %s on %s", licensee, cid)
		}
		lic.IsActive = false
		l.licenses[lic.ID] = lic
		delete(l.activeByPair, pairKey(licensee, cid))
		l.emit(EventLicenseRevoked, actor, cid, map[string]string{"license_id": lic.ID, "licensee": licensee}, now)
		return nil
	})
}

// ExtendLicense pushes the active license's expiration forward by
// extension. COMPLIANCE accounts or the dataset owner may extend;
// expirations only ever move forward.
func (l *Ledger) ExtendLicense(actor, cid, licensee string, extension time.Duration) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if extension <= 0 {
			return reject(KindInvalidAmount, "extension must be greater than 0")
		}
		if l.authorize(actor, OpExtendLicense) != nil {
			ds, err := l.datasetFor(cid)
			if err != nil {
				return err
			}
			if ds.Owner != actor {
				return reject(KindUnauthorized, "account %s may not extend licenses on %s", actor, cid)
			}
		}
		lic, active := l.validLicense(licensee, cid, now)
		if !active {
			return reject(KindNoValidLicense, "no valid license for %s on %s", licensee, cid)
		}
		lic.ExpiresAt = lic.ExpiresAt.Add(extension)
		l.licenses[lic.ID] = lic
		l.emit(EventLicenseExtended, actor, cid, map[string]string{
			"license_id": lic.ID,
			"licensee":   licensee,
			"expires_at": lic.ExpiresAt.Format(time.RFC3339),
		}, now)
		return nil
	})
}

// HasValidLicense reports whether account holds an active, unexpired
// license for cid. Expiry is checked against the clock even when the
// stored IsActive flag was never flipped.
func (l *Ledger) HasValidLicense(cid, account string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.validLicense(account, cid, l.clock().UTC())
	return ok
}

// LicenseByID returns the stored license record, active or not.
func (l *Ledger) LicenseByID(id string) (License, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lic, ok := l.licenses[id]
	if !ok {
		return License{}, reject(KindNotFound, "license %s not found", id)
	}
	return lic, nil
}

// SetPlatformFee updates the fee skimmed from each sale. ADMIN only,
// capped at MaxPlatformFeeBps.
func (l *Ledger) SetPlatformFee(actor string, bps uint32) error {
	return l.run(func(now time.Time) error {
		if err := l.authorize(actor, OpSetPlatformFee); err != nil {
			return err
		}
		if bps > MaxPlatformFeeBps {
			return reject(KindFeeTooHigh, "fee cannot exceed %d bps", MaxPlatformFeeBps)
		}
		l.feeBps = bps
		l.emit(EventPlatformFeeUpdated, actor, "", map[string]string{"bps": strconv.FormatUint(uint64(bps), 10)}, now)
		return nil
	})
}

// PlatformFee returns the current fee in basis points.
func (l *Ledger) PlatformFee() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feeBps
}
