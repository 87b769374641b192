package store

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
)

var testTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func mustTx(t *testing.T, database *sqlx.DB, fn func(tx *sqlx.Tx) error) {
	t.Helper()
	if err := WithTx(context.Background(), database, fn); err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func createTestCrew(t *testing.T, database *sqlx.DB, number int) *model.Crew {
	t.Helper()
	crew, err := CreateCrew(context.Background(), database, number, "Crew", testTime)
	if err != nil {
		t.Fatalf("CreateCrew: %v", err)
	}
	return crew
}

func createTestItem(t *testing.T, database *sqlx.DB, code, itemType string, stock int) *model.CatalogItem {
	t.Helper()
	var item *model.CatalogItem
	mustTx(t, database, func(tx *sqlx.Tx) error {
		var err error
		item, err = CreateCatalogItem(context.Background(), tx, model.CatalogItem{Code: code, Type: itemType}, testTime)
		if err != nil {
			return err
		}
		if stock > 0 {
			_, err = ReceiveStock(context.Background(), tx, item.ID, stock, "initial", nil, testTime)
		}
		return err
	})
	return item
}

func grant(t *testing.T, database *sqlx.DB, crewID, itemID int64, qty int) {
	t.Helper()
	mustTx(t, database, func(tx *sqlx.Tx) error {
		_, err := GrantToCrew(context.Background(), tx, HoldingChange{CrewID: crewID, ItemID: itemID, Quantity: qty, At: testTime})
		return err
	})
}
