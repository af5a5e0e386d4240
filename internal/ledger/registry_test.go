package ledger

import "testing"

const testCid = "QmTestCID"

func registerTestDataset(t *testing.T, l *Ledger) {
	t.Helper()
	if err := l.RegisterDataset(testSeller, testCid, "Test Dataset", "This is a test dataset", AmountFromUint64(100), false); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestRegisterDataset(t *testing.T) {
	l, clock := newTestLedger(t)
	registerTestDataset(t, l)

	ds, err := l.GetDatasetInfo(testCid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ds.Owner != testSeller || ds.Name != "Test Dataset" || ds.IsPublic || ds.IsRemoved {
		t.Fatalf("unexpected dataset record: %+v", ds)
	}
	if !ds.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("createdAt = %v, want %v", ds.CreatedAt, clock.Now())
	}
}

func TestRegisterDatasetRejections(t *testing.T) {
	l, _ := newTestLedger(t)
	registerTestDataset(t, l)

	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"duplicate cid", l.RegisterDataset(testBuyer, testCid, "Dup", "", AmountFromUint64(1), false), KindDuplicateContent},
		{"empty cid", l.RegisterDataset(testSeller, "", "NoCid", "", AmountFromUint64(1), false), KindEmptyIdentifier},
		{"private zero price", l.RegisterDataset(testSeller, "QmZero", "Free", "", Amount{}, false), KindInvalidPrice},
	}
	for _, tc := range cases {
		if !IsKind(tc.err, tc.kind) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, tc.err)
		}
	}

	// Public datasets may be free.
	if err := l.RegisterDataset(testSeller, "QmPublicFree", "Open", "", Amount{}, true); err != nil {
		t.Fatalf("free public dataset: %v", err)
	}
}

func TestUpdateDatasetPriceOwnerOnly(t *testing.T) {
	l, _ := newTestLedger(t)
	registerTestDataset(t, l)

	if err := l.UpdateDatasetPrice(testBuyer, testCid, AmountFromUint64(200)); !IsKind(err, KindNotOwner) {
		t.Fatalf("expected NOT_OWNER, got %v", err)
	}
	if err := l.UpdateDatasetPrice(testSeller, testCid, AmountFromUint64(200)); err != nil {
		t.Fatalf("update price: %v", err)
	}
	ds, err := l.GetDatasetInfo(testCid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ds.Price.Cmp(AmountFromUint64(200)) != 0 {
		t.Fatalf("price = %s, want 200", ds.Price)
	}
	if err := l.UpdateDatasetPrice(testSeller, testCid, Amount{}); !IsKind(err, KindInvalidPrice) {
		t.Fatalf("expected INVALID_PRICE for zero on private dataset, got %v", err)
	}
}

func TestUpdateDatasetVisibility(t *testing.T) {
	l, _ := newTestLedger(t)
	registerTestDataset(t, l)

	if err := l.UpdateDatasetVisibility(testBuyer, testCid, true); !IsKind(err, KindNotOwner) {
		t.Fatalf("expected NOT_OWNER, got %v", err)
	}
	if err := l.UpdateDatasetVisibility(testSeller, testCid, true); err != nil {
		t.Fatalf("make public: %v", err)
	}
	ds, _ := l.GetDatasetInfo(testCid)
	if !ds.IsPublic {
		t.Fatal("expected dataset public")
	}
	if err := l.UpdateDatasetVisibility(testSeller, testCid, false); err != nil {
		t.Fatalf("make private again: %v", err)
	}
}

func TestRemoveDatasetAuthorization(t *testing.T) {
	l, _ := newTestLedger(t)
	registerTestDataset(t, l)

	if err := l.RemoveDataset(testBuyer, testCid); !IsKind(err, KindNotAuthorized) {
		t.Fatalf("expected NOT_AUTHORIZED, got %v", err)
	}

	// Compliance may remove someone else's dataset.
	if err := l.GrantRole(testAdmin, RoleCompliance, testOfficer); err != nil {
		t.Fatalf("grant compliance: %v", err)
	}
	if err := l.RemoveDataset(testOfficer, testCid); err != nil {
		t.Fatalf("remove by compliance: %v", err)
	}
	ds, err := l.GetDatasetInfo(testCid)
	if err != nil {
		t.Fatalf("removed dataset must stay readable: %v", err)
	}
	if !ds.IsRemoved {
		t.Fatal("expected isRemoved=true")
	}
}

func TestRemoveDatasetByOwner(t *testing.T) {
	l, _ := newTestLedger(t)
	registerTestDataset(t, l)
	if err := l.RemoveDataset(testSeller, testCid); err != nil {
		t.Fatalf("remove by owner: %v", err)
	}
	ds, _ := l.GetDatasetInfo(testCid)
	if !ds.IsRemoved {
		t.Fatal("expected isRemoved=true")
	}
}

func TestAccessGrants(t *testing.T) {
	l, _ := newTestLedger(t)
	registerTestDataset(t, l)

	if err := l.GrantAccess(testBuyer, testCid, testBuyer); !IsKind(err, KindNotOwner) {
		t.Fatalf("expected NOT_OWNER, got %v", err)
	}
	if err := l.GrantAccess(testSeller, testCid, testBuyer); err != nil {
		t.Fatalf("grant access: %v", err)
	}
	if !l.HasAccess(testCid, testBuyer) {
		t.Fatal("expected access granted")
	}
	if l.HasAccess(testCid, testOfficer) {
		t.Fatal("unexpected access for ungranted account")
	}

	if err := l.RemoveDataset(testSeller, testCid); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := l.GrantAccess(testSeller, testCid, testOfficer); !IsKind(err, KindDatasetRemoved) {
		t.Fatalf("expected DATASET_REMOVED, got %v", err)
	}
}

func TestDatasetIndexReads(t *testing.T) {
	l, _ := newTestLedger(t)
	if l.DatasetCount() != 0 {
		t.Fatalf("fresh ledger has %d datasets", l.DatasetCount())
	}
	if _, err := l.DatasetCidAt(0); !IsKind(err, KindNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if _, err := l.GetDatasetInfo("QmMissing"); !IsKind(err, KindNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	registerTestDataset(t, l)
	if err := l.RegisterDataset(testSeller, "QmSecond", "Second", "", AmountFromUint64(5), false); err != nil {
		t.Fatalf("register second: %v", err)
	}
	if l.DatasetCount() != 2 {
		t.Fatalf("count = %d, want 2", l.DatasetCount())
	}
	cid, err := l.DatasetCidAt(1)
	if err != nil {
		t.Fatalf("cid at 1: %v", err)
	}
	if cid != "QmSecond" {
		t.Fatalf("cid = %s, want QmSecond", cid)
	}
	if _, err := l.DatasetCidAt(2); !IsKind(err, KindNotFound) {
		t.Fatalf("expected NOT_FOUND past the end, got %v", err)
	}
}

func TestRegistryMutatorsBlockedWhilePaused(t *testing.T) {
	l, _ := newTestLedger(t)
	registerTestDataset(t, l)
	if err := l.Pause(testAdmin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := l.RegisterDataset(testSeller, "QmPaused", "X", "", AmountFromUint64(1), false); !IsKind(err, KindSystemPaused) {
		t.Fatalf("expected SYSTEM_PAUSED, got %v", err)
	}
	if err := l.UpdateDatasetPrice(testSeller, testCid, AmountFromUint64(7)); !IsKind(err, KindSystemPaused) {
		t.Fatalf("expected SYSTEM_PAUSED, got %v", err)
	}
	// Reads stay open.
	if _, err := l.GetDatasetInfo(testCid); err != nil {
		t.Fatalf("read while paused: %v", err)
	}
}
