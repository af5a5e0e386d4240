package ledger

import "time"

// Dataset is a catalog entry keyed by its content identifier. Records
// are append-only: removal flips IsRemoved, nothing is ever deleted.
type Dataset struct {
	Cid         string
	Owner       string
	Name        string
	Description string
	Price       Amount
	IsPublic    bool
	IsRemoved   bool
	CreatedAt   time.Time
}

// RegisterDataset catalogs new content with the actor as owner. Private
// datasets must carry a strictly positive price; public datasets may be
// free. Content identifiers are globally unique and immutable.
func (l *Ledger) RegisterDataset(actor, cid, name, description string, price Amount, isPublic bool) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if cid == "" {
			return reject(KindEmptyIdentifier, "cid cannot be empty")
		}
		if actor == "" {
			return reject(KindEmptyIdentifier, "owner account required")
		}
		if _, exists := l.datasets[cid]; exists {
			return reject(KindDuplicateContent, "dataset %s already registered", cid)
		}
		if !isPublic && !price.IsPositive() {
			return reject(KindInvalidPrice, "price must be greater than 0 for private datasets")
		}
		l.datasets[cid] = Dataset{
			Cid:         cid,
			Owner:       actor,
			Name:        name,
			Description: description,
			Price:       price,
			IsPublic:    isPublic,
			CreatedAt:   now,
		}
		l.datasetCids = append(l.datasetCids, cid)
		l.emit(EventDatasetRegistered, actor, cid, map[string]string{
			"name":   name,
			"price":  price.String(),
			"public": boolString(isPublic),
		}, now)
		return nil
	})
}

// UpdateDatasetPrice sets a new price. Owner only.
func (l *Ledger) UpdateDatasetPrice(actor, cid string, price Amount) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		ds, err := l.datasetFor(cid)
		if err != nil {
			return err
		}
		if ds.Owner != actor {
			return reject(KindNotOwner, "account %s is not the owner of %s", actor, cid)
		}
		if !ds.IsPublic && !price.IsPositive() {
			return reject(KindInvalidPrice, "price must be greater than 0 for private datasets")
		}
		ds.Price = price
		l.datasets[cid] = ds
		l.emit(EventDatasetPriceSet, actor, cid, map[string]string{"price": price.String()}, now)
		return nil
	})
}

// UpdateDatasetVisibility flips a dataset between public and private.
// Owner only. Going private requires the stored price to be positive.
func (l *Ledger) UpdateDatasetVisibility(actor, cid string, isPublic bool) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		ds, err := l.datasetFor(cid)
		if err != nil {
			return err
		}
		if ds.Owner != actor {
			return reject(KindNotOwner, "account %s is not the owner of %s", actor, cid)
		}
		if !isPublic && !ds.Price.IsPositive() {
			return reject(KindInvalidPrice, "set a positive price before making %s private", cid)
		}
		if ds.IsPublic == isPublic {
			return nil
		}
		ds.IsPublic = isPublic
		l.datasets[cid] = ds
		l.emit(EventDatasetVisibility, actor, cid, map[string]string{"public": boolString(isPublic)}, now)
		return nil
	})
}

// RemoveDataset soft-deletes a dataset. The owner or a COMPLIANCE
// account may remove; the record itself is retained.
func (l *Ledger) RemoveDataset(actor, cid string) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		ds, err := l.datasetFor(cid)
		if err != nil {
			return err
		}
		if ds.Owner != actor && l.authorize(actor, OpRemoveDataset) != nil {
			return reject(KindNotAuthorized, "account %s may not remove dataset %s", actor, cid)
		}
		if ds.IsRemoved {
			return nil
		}
		ds.IsRemoved = true
		l.datasets[cid] = ds
		l.emit(EventDatasetRemoved, actor, cid, nil, now)
		return nil
	})
}

// GrantAccess gives account complimentary access to a dataset without
// payment. Owner only; removed datasets cannot be granted.
func (l *Ledger) GrantAccess(actor, cid, account string) error {
	return l.run(func(now time.Time) error {
		if err := l.requireUnpaused(); err != nil {
			return err
		}
		if account == "" {
			return reject(KindEmptyIdentifier, "account required")
		}
		ds, err := l.datasetFor(cid)
		if err != nil {
			return err
		}
		if ds.Owner != actor {
			return reject(KindNotOwner, "account %s is not the owner of %s", actor, cid)
		}
		if ds.IsRemoved {
			return reject(KindDatasetRemoved, "dataset %s is removed", cid)
		}
		l.accessGrants[pairKey(cid, account)] = struct{}{}
		l.emit(EventAccessGranted, actor, cid, map[string]string{"account": account}, now)
		return nil
	})
}

// HasAccess reports whether account holds a complimentary access grant
// for the dataset. Paid licenses are checked via HasValidLicense.
func (l *Ledger) HasAccess(cid, account string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accessGrants[pairKey(cid, account)]
	return ok
}

// GetDatasetInfo returns the dataset record for cid.
func (l *Ledger) GetDatasetInfo(cid string) (Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ds, ok := l.datasets[cid]
	if !ok {
		return Dataset{}, reject(KindNotFound, "dataset %s not registered", cid)
	}
	return ds, nil
}

// DatasetCount returns how many datasets have ever been registered,
// including removed ones.
func (l *Ledger) DatasetCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.datasetCids)
}

// DatasetCidAt returns the content identifier at registration index.
func (l *Ledger) DatasetCidAt(index int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.datasetCids) {
		return "", reject(KindNotFound, "dataset index %d out of range", index)
	}
	return l.datasetCids[index], nil
}

// datasetFor looks a dataset up under the lock.
func (l *Ledger) datasetFor(cid string) (Dataset, error) {
	if cid == "" {
		return Dataset{}, reject(KindEmptyIdentifier, "cid cannot be empty")
	}
	ds, ok := l.datasets[cid]
	if !ok {
		return Dataset{}, reject(KindNotFound, "dataset %s not registered", cid)
	}
	return ds, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
