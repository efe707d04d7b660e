package access

import "testing"

func TestCanEditField(t *testing.T) {
	var p Policy
	cases := []struct {
		name  string
		role  Role
		field string
		allow bool
	}{
		{name: "admin any field", role: RoleAdmin, field: FieldContractorName, allow: true},
		{name: "planner schedule proposal", role: RolePlanner, field: FieldScheduledRequestDate, allow: true},
		{name: "planner item identity", role: RolePlanner, field: FieldEngineeringItem, allow: true},
		{name: "planner stage dates", role: RolePlanner, field: FieldScheduledEndDate, allow: true},
		{name: "planner cannot touch actuals", role: RolePlanner, field: FieldActualRequestDate, allow: false},
		{name: "executor actual date", role: RoleExecutor, field: FieldActualRequestDate, allow: true},
		{name: "executor remarks", role: RoleExecutor, field: FieldRemarks, allow: true},
		{name: "executor cannot reschedule", role: RoleExecutor, field: FieldScheduledRequestDate, allow: false},
		{name: "procurement return flow", role: RoleProcurement, field: FieldReturnReason, allow: true},
		{name: "procurement contractor confirm", role: RoleProcurement, field: FieldContractorConfirm, allow: true},
		{name: "procurement cannot edit item", role: RoleProcurement, field: FieldEngineeringItem, allow: false},
		{name: "unknown role", role: Role("GUEST"), field: FieldRemarks, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.CanEditField(tc.role, tc.field); got != tc.allow {
				t.Fatalf("CanEditField(%q, %q) = %v, want %v", tc.role, tc.field, got, tc.allow)
			}
		})
	}
}

func TestStructuralLock(t *testing.T) {
	locked := Policy{LockDisplayName: true}

	if locked.CanEditField(RolePlanner, FieldEngineeringItem) {
		t.Fatal("lock must deny the owning role")
	}
	if locked.CanEditField(RolePlanner, FieldItem) {
		t.Fatal("lock covers the operations display name too")
	}
	if !locked.CanEditField(RoleAdmin, FieldEngineeringItem) {
		t.Fatal("lock must not apply to admin")
	}
	if !locked.CanEditField(RolePlanner, FieldScheduledRequestDate) {
		t.Fatal("lock must not leak onto other fields")
	}
}

func TestAddDelete(t *testing.T) {
	var p Policy
	for _, role := range []Role{RoleAdmin, RolePlanner} {
		if !p.CanAddRecord(role) || !p.CanDeleteRecord(role) {
			t.Fatalf("%s should manage rows", role)
		}
	}
	for _, role := range []Role{RoleExecutor, RoleProcurement} {
		if p.CanAddRecord(role) || p.CanDeleteRecord(role) {
			t.Fatalf("%s should not manage rows", role)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("ADMIN"); got != RoleAdmin {
		t.Fatalf("Normalize(ADMIN) = %s", got)
	}
	if got := Normalize("intern"); got != RoleExecutor {
		t.Fatalf("Normalize(intern) = %s, want %s", got, RoleExecutor)
	}
}
