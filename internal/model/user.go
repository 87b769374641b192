package model

import (
	"fmt"
	"time"
)

// User is an authenticated person: office staff or a crew member.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	CrewID       *int64     `db:"crew_id" json:"crew_id,omitempty"`
	PushToken    string     `db:"push_token" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleWarehouse  = "warehouse"
	RoleInstaller  = "installer"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:      4,
		RoleSupervisor: 3,
		RoleWarehouse:  2,
		RoleInstaller:  1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSupervisor, RoleWarehouse, RoleInstaller:
		return true
	}
	return false
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Actor is the identity performing a mutation, supplied by the session layer.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Ref returns the actor id for audit columns, or nil for the system actor.
func (a Actor) Ref() *int64 {
	if a.ID == 0 {
		return nil
	}
	id := a.ID
	return &id
}

// ExcludedFromNotifications returns the user id that must not receive the
// notification caused by this actor, or 0 when nobody is excluded.
func (a Actor) ExcludedFromNotifications() int64 {
	if a.Role == RoleInstaller {
		return a.ID
	}
	return 0
}

// SystemActor is used for mutations not triggered by a person.
var SystemActor = Actor{Username: "system", Role: RoleAdmin}
