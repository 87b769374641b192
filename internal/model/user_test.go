package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleSupervisor, true},
		{RoleAdmin, RoleInstaller, true},
		{RoleSupervisor, RoleAdmin, false},
		{RoleSupervisor, RoleWarehouse, true},
		{RoleWarehouse, RoleSupervisor, false},
		{RoleWarehouse, RoleInstaller, true},
		{RoleInstaller, RoleWarehouse, false},
		{RoleInstaller, RoleInstaller, true},
		// Unknown roles fail-closed.
		{"unknown", RoleInstaller, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleInstaller, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestActorExclusion(t *testing.T) {
	installer := Actor{ID: 7, Role: RoleInstaller}
	if got := installer.ExcludedFromNotifications(); got != 7 {
		t.Errorf("installer excluded = %d, want 7", got)
	}

	supervisor := Actor{ID: 3, Role: RoleSupervisor}
	if got := supervisor.ExcludedFromNotifications(); got != 0 {
		t.Errorf("supervisor excluded = %d, want 0", got)
	}

	if SystemActor.Ref() != nil {
		t.Error("expected nil ref for system actor")
	}
	if ref := installer.Ref(); ref == nil || *ref != 7 {
		t.Errorf("expected ref 7, got %v", ref)
	}
}
