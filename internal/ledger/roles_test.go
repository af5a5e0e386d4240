package ledger

import "testing"

func TestGrantRoleRequiresAdmin(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.GrantRole(testSeller, RoleCompliance, testOfficer); !IsKind(err, KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if err := l.GrantRole(testAdmin, RoleCompliance, testOfficer); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !l.HasRole(RoleCompliance, testOfficer) {
		t.Fatal("expected compliance role granted")
	}
}

func TestRevokeRole(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.GrantRole(testAdmin, RoleMinter, testSeller); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := l.RevokeRole(testSeller, RoleMinter, testSeller); !IsKind(err, KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
	if err := l.RevokeRole(testAdmin, RoleMinter, testSeller); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if l.HasRole(RoleMinter, testSeller) {
		t.Fatal("expected minter role revoked")
	}
}

func TestGrantedAdminMayAdministerRoles(t *testing.T) {
	l, _ := newTestLedger(t)
	second := "0xsecond-admin"
	if err := l.GrantRole(testAdmin, RoleDefaultAdmin, second); err != nil {
		t.Fatalf("grant default admin: %v", err)
	}
	if err := l.GrantRole(second, RoleBurner, testSeller); err != nil {
		t.Fatalf("grant by second admin: %v", err)
	}
	if !l.HasRole(RoleBurner, testSeller) {
		t.Fatal("expected burner role granted by delegated admin")
	}
}

// Self-revocation of DEFAULT_ADMIN is permitted, matching the reference
// behavior; the ledger can end up without an administrator.
func TestAdminMayRevokeOwnAdminRole(t *testing.T) {
	l, _ := newTestLedger(t)
	if err := l.RevokeRole(testAdmin, RoleDefaultAdmin, testAdmin); err != nil {
		t.Fatalf("self-revoke: %v", err)
	}
	if err := l.GrantRole(testAdmin, RoleCompliance, testOfficer); !IsKind(err, KindUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED after self-revoke, got %v", err)
	}
}

func TestRoleChangeEmitsEvents(t *testing.T) {
	l, _ := newTestLedger(t)
	before := l.LastEventSeq()
	if err := l.GrantRole(testAdmin, RoleCompliance, testOfficer); err != nil {
		t.Fatalf("grant: %v", err)
	}
	evs := l.EventsSince(before, 0)
	if len(evs) != 1 || evs[0].Type != EventRoleGranted {
		t.Fatalf("expected one role.granted event, got %v", evs)
	}
	if evs[0].Payload["role"] != string(RoleCompliance) || evs[0].Subject != testOfficer {
		t.Fatalf("unexpected event payload: %+v", evs[0])
	}
	// Re-granting a held role is a silent success, no duplicate event.
	if err := l.GrantRole(testAdmin, RoleCompliance, testOfficer); err != nil {
		t.Fatalf("re-grant: %v", err)
	}
	if got := l.EventsSince(before, 0); len(got) != 1 {
		t.Fatalf("expected no event for redundant grant, got %d", len(got))
	}
}
