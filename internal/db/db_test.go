package db

import (
	"strings"
	"testing"
)

func TestDSNCarriesPragmas(t *testing.T) {
	dsn := DSN("/tmp/x.sqlite3")
	if !strings.HasPrefix(dsn, "file:/tmp/x.sqlite3?") {
		t.Errorf("unexpected dsn prefix: %s", dsn)
	}
	if !strings.Contains(dsn, "_txlock=immediate") {
		t.Errorf("expected immediate transactions in %s", dsn)
	}
	if strings.Count(dsn, "_pragma=") != len(pragmas) {
		t.Errorf("expected %d pragmas in %s", len(pragmas), dsn)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)
	if err := EnsureSchema(database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	var fk int
	if err := database.Get(&fk, `PRAGMA foreign_keys`); err != nil {
		t.Fatalf("reading pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1 on pooled connection, got %d", fk)
	}
}

func TestHistoryTablesAreAppendOnly(t *testing.T) {
	database := NewTestDB(t)
	_, err := database.Exec(`INSERT INTO order_history (change_type, description, created_at)
		VALUES ('created', 'x', CURRENT_TIMESTAMP)`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := database.Exec(`UPDATE order_history SET description = 'y'`); err == nil {
		t.Error("expected update of order_history to fail")
	}
	if _, err := database.Exec(`DELETE FROM order_history`); err == nil {
		t.Error("expected delete of order_history to fail")
	}
}
