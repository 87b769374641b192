package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/db"
	"github.com/erazemk/fieldstock/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "testuser", "hash123", model.RoleInstaller, testTime)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleInstaller {
		t.Errorf("expected role 'installer', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}

	if _, err := CreateUser(ctx, database, "testuser", "hash", model.RoleAdmin, testTime); !errors.Is(err, model.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := CreateUser(ctx, database, "other", "hash", "user", testTime); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "hash", model.RoleAdmin, testTime)

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.Username != "alice" {
		t.Errorf("expected 'alice', got %q", user.Username)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestListUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "hash", model.RoleInstaller, testTime)
	CreateUser(ctx, database, "b", "hash", model.RoleSupervisor, testTime)

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	crew := createTestCrew(t, database, 1)

	user, _ := CreateUser(ctx, database, "deleteme", "hash", model.RoleInstaller, testTime)
	mustTx(t, database, func(tx *sqlx.Tx) error { return SetCrewLeader(ctx, tx, crew.ID, user.ID) })
	mustTx(t, database, func(tx *sqlx.Tx) error { return DeleteUser(ctx, tx, user.ID, testTime) })

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}
	c, _ := GetCrew(ctx, database, crew.ID)
	if c.LeaderID != nil {
		t.Error("expected deleted user to stop leading the crew")
	}
	members, _ := ListCrewMembers(ctx, database, crew.ID)
	if len(members) != 0 {
		t.Errorf("expected no crew members, got %d", len(members))
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "oldhash", model.RoleInstaller, testTime)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}

func TestSetPushToken(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "phone", "hash", model.RoleInstaller, testTime)
	if err := SetPushToken(ctx, database, user.ID, "ExponentPushToken[abc]"); err != nil {
		t.Fatalf("SetPushToken: %v", err)
	}
	got, _ := GetUser(ctx, database, user.ID)
	if got.PushToken != "ExponentPushToken[abc]" {
		t.Errorf("expected token to be stored, got %q", got.PushToken)
	}

	if err := SetPushToken(ctx, database, 999, "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
