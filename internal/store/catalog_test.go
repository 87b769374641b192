package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/db"
	"github.com/erazemk/fieldstock/internal/model"
)

func TestCreateCatalogItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item := createTestItem(t, database, "CONN-SC", model.ItemTypeMaterial, 0)
	if item.Unit != "unit" {
		t.Errorf("expected default unit, got %q", item.Unit)
	}
	if stock, _ := GetWarehouseQuantity(ctx, database, item.ID); stock != 0 {
		t.Errorf("expected empty warehouse stock, got %d", stock)
	}

	tests := []struct {
		name string
		item model.CatalogItem
		want error
	}{
		{"duplicate code", model.CatalogItem{Code: "CONN-SC", Type: model.ItemTypeMaterial}, model.ErrDuplicateKey},
		{"bad type", model.CatalogItem{Code: "X", Type: "tool"}, model.ErrInvalidItemType},
		{"negative threshold", model.CatalogItem{Code: "Y", Type: model.ItemTypeMaterial, LowStockThreshold: -1}, model.ErrInvalidQuantity},
		{"missing code", model.CatalogItem{Type: model.ItemTypeMaterial}, model.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithTx(ctx, database, func(tx *sqlx.Tx) error {
				_, err := CreateCatalogItem(ctx, tx, tt.item, testTime)
				return err
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateCatalogItem_CodeImmutableOnceReferenced(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := createTestItem(t, database, "OLD", model.ItemTypeMaterial, 0)

	item.Code = "NEW"
	item.Description = "renamed while unused"
	mustTx(t, database, func(tx *sqlx.Tx) error { return UpdateCatalogItem(ctx, tx, *item, testTime) })

	mustTx(t, database, func(tx *sqlx.Tx) error {
		_, err := ReceiveStock(ctx, tx, item.ID, 5, "", nil, testTime)
		return err
	})

	item.Code = "NEWER"
	err := WithTx(ctx, database, func(tx *sqlx.Tx) error { return UpdateCatalogItem(ctx, tx, *item, testTime) })
	if !errors.Is(err, model.ErrCodeInUse) {
		t.Fatalf("expected ErrCodeInUse, got %v", err)
	}

	item.Code = "NEW"
	item.LowStockThreshold = 3
	mustTx(t, database, func(tx *sqlx.Tx) error { return UpdateCatalogItem(ctx, tx, *item, testTime) })
	got, _ := GetCatalogItemByCode(ctx, database, "NEW")
	if got == nil || got.LowStockThreshold != 3 {
		t.Errorf("expected threshold update to succeed, got %+v", got)
	}
}

func TestListLowStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, it := range []struct {
		code      string
		threshold int
		stock     int
	}{
		{"LOW", 5, 5},
		{"OK", 5, 6},
		{"UNTRACKED", 0, 0},
	} {
		mustTx(t, database, func(tx *sqlx.Tx) error {
			item, err := CreateCatalogItem(ctx, tx, model.CatalogItem{Code: it.code, Type: model.ItemTypeMaterial, LowStockThreshold: it.threshold}, testTime)
			if err != nil || it.stock == 0 {
				return err
			}
			_, err = ReceiveStock(ctx, tx, item.ID, it.stock, "", nil, testTime)
			return err
		})
	}

	low, err := ListLowStock(ctx, database)
	if err != nil {
		t.Fatalf("ListLowStock: %v", err)
	}
	if len(low) != 1 || low[0].ItemCode != "LOW" {
		t.Errorf("expected only LOW, got %+v", low)
	}

	all, _ := ListWarehouseStock(ctx, database)
	if len(all) != 3 {
		t.Errorf("expected 3 stock rows, got %d", len(all))
	}
}
