package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
)

const catalogColumns = `id, code, description, unit, type, low_stock_threshold, created_at, updated_at`

// CreateCatalogItem creates a catalog item with an empty warehouse stock row.
func CreateCatalogItem(ctx context.Context, tx *sqlx.Tx, item model.CatalogItem, at time.Time) (*model.CatalogItem, error) {
	if item.Code == "" {
		return nil, fmt.Errorf("%w: code required", model.ErrInvalidInput)
	}
	if item.Type != model.ItemTypeMaterial && item.Type != model.ItemTypeEquipment {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidItemType, item.Type)
	}
	if item.LowStockThreshold < 0 {
		return nil, fmt.Errorf("%w: low stock threshold must not be negative", model.ErrInvalidQuantity)
	}
	if item.Unit == "" {
		item.Unit = "unit"
	}
	at = utc(at)

	result, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_items (code, description, unit, type, low_stock_threshold, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.Code, item.Description, item.Unit, item.Type, item.LowStockThreshold, at, at,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: catalog code %q already exists", model.ErrDuplicateKey, item.Code)
		}
		return nil, fmt.Errorf("creating catalog item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting catalog item id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO warehouse_stock (item_id, quantity, updated_at) VALUES (?, 0, ?)`, id, at,
	); err != nil {
		return nil, fmt.Errorf("creating warehouse stock: %w", err)
	}

	return GetCatalogItem(ctx, tx, id)
}

// GetCatalogItem returns a catalog item by ID.
func GetCatalogItem(ctx context.Context, q Querier, id int64) (*model.CatalogItem, error) {
	item := &model.CatalogItem{}
	err := sqlx.GetContext(ctx, q, item, `SELECT `+catalogColumns+` FROM catalog_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog item: %w", err)
	}
	return item, nil
}

// GetCatalogItemByCode returns a catalog item by its code.
func GetCatalogItemByCode(ctx context.Context, q Querier, code string) (*model.CatalogItem, error) {
	item := &model.CatalogItem{}
	err := sqlx.GetContext(ctx, q, item, `SELECT `+catalogColumns+` FROM catalog_items WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog item by code: %w", err)
	}
	return item, nil
}

// ListCatalogItems returns all catalog items, optionally filtered by type.
func ListCatalogItems(ctx context.Context, q Querier, itemType string) ([]model.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items`
	var args []any
	if itemType != "" {
		query += ` WHERE type = ?`
		args = append(args, itemType)
	}
	query += ` ORDER BY code`

	var items []model.CatalogItem
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("listing catalog items: %w", err)
	}
	return items, nil
}

// UpdateCatalogItem updates a catalog item. The code can only change while no
// ledger row references the item.
func UpdateCatalogItem(ctx context.Context, tx *sqlx.Tx, item model.CatalogItem, at time.Time) error {
	current, err := GetCatalogItem(ctx, tx, item.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: catalog item %d", model.ErrNotFound, item.ID)
	}
	if item.LowStockThreshold < 0 {
		return fmt.Errorf("%w: low stock threshold must not be negative", model.ErrInvalidQuantity)
	}

	if item.Code != current.Code {
		referenced, err := catalogItemReferenced(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: %q is referenced by ledger entries", model.ErrCodeInUse, current.Code)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE catalog_items SET code = ?, description = ?, unit = ?, low_stock_threshold = ?, updated_at = ?
		 WHERE id = ?`,
		item.Code, item.Description, item.Unit, item.LowStockThreshold, utc(at), item.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: catalog code %q already exists", model.ErrDuplicateKey, item.Code)
		}
		return fmt.Errorf("updating catalog item: %w", err)
	}
	return nil
}

func catalogItemReferenced(ctx context.Context, q Querier, itemID int64) (bool, error) {
	var referenced bool
	err := sqlx.GetContext(ctx, q, &referenced,
		`SELECT EXISTS (SELECT 1 FROM movements WHERE item_id = ?)
		     OR EXISTS (SELECT 1 FROM batches WHERE item_id = ?)
		     OR EXISTS (SELECT 1 FROM instances WHERE item_id = ?)
		     OR EXISTS (SELECT 1 FROM crew_holdings WHERE item_id = ?)`,
		itemID, itemID, itemID, itemID,
	)
	if err != nil {
		return false, fmt.Errorf("checking catalog references: %w", err)
	}
	return referenced, nil
}

// ReceiveStock adds stock of an item to the central warehouse.
func ReceiveStock(ctx context.Context, tx *sqlx.Tx, itemID int64, quantity int, notes string, actorID *int64, at time.Time) (*model.Movement, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", model.ErrInvalidQuantity)
	}
	item, err := GetCatalogItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: catalog item %d", model.ErrNotFound, itemID)
	}

	before, after, err := addToWarehouse(ctx, tx, itemID, quantity, at)
	if err != nil {
		return nil, err
	}

	m := &model.Movement{
		Type:           model.MovementReceipt,
		ItemID:         itemID,
		QuantityChange: quantity,
		QuantityBefore: before,
		QuantityAfter:  after,
		Notes:          notes,
		ActorID:        actorID,
		CreatedAt:      at,
	}
	if err := insertMovement(ctx, tx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetWarehouseQuantity returns the warehouse quantity of an item.
func GetWarehouseQuantity(ctx context.Context, q Querier, itemID int64) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, q, &qty,
		`SELECT COALESCE((SELECT quantity FROM warehouse_stock WHERE item_id = ?), 0)`, itemID)
	if err != nil {
		return 0, fmt.Errorf("getting warehouse quantity: %w", err)
	}
	return qty, nil
}

const warehouseQuery = `SELECT ws.item_id, ws.quantity, ws.updated_at,
        ci.code AS item_code, ci.description AS item_description, ci.low_stock_threshold
 FROM warehouse_stock ws
 JOIN catalog_items ci ON ci.id = ws.item_id`

// ListWarehouseStock returns the warehouse quantity of every catalog item.
func ListWarehouseStock(ctx context.Context, q Querier) ([]model.WarehouseStock, error) {
	var stock []model.WarehouseStock
	if err := sqlx.SelectContext(ctx, q, &stock, warehouseQuery+` ORDER BY ci.code`); err != nil {
		return nil, fmt.Errorf("listing warehouse stock: %w", err)
	}
	return stock, nil
}

// ListLowStock returns items whose warehouse quantity is at or below their
// low-stock threshold. Items with a zero threshold are never reported.
func ListLowStock(ctx context.Context, q Querier) ([]model.WarehouseStock, error) {
	var stock []model.WarehouseStock
	err := sqlx.SelectContext(ctx, q, &stock,
		warehouseQuery+` WHERE ci.low_stock_threshold > 0 AND ws.quantity <= ci.low_stock_threshold ORDER BY ci.code`)
	if err != nil {
		return nil, fmt.Errorf("listing low stock: %w", err)
	}
	return stock, nil
}

func addToWarehouse(ctx context.Context, q Querier, itemID int64, quantity int, at time.Time) (before, after int, err error) {
	err = sqlx.GetContext(ctx, q, &after,
		`INSERT INTO warehouse_stock (item_id, quantity, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (item_id) DO UPDATE SET quantity = quantity + excluded.quantity, updated_at = excluded.updated_at
		 RETURNING quantity`,
		itemID, quantity, utc(at),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("adding warehouse stock: %w", err)
	}
	return after - quantity, after, nil
}

// takeFromWarehouse decrements warehouse stock only when enough is present.
func takeFromWarehouse(ctx context.Context, q Querier, itemID int64, quantity int, at time.Time) (before, after int, err error) {
	err = sqlx.GetContext(ctx, q, &after,
		`UPDATE warehouse_stock SET quantity = quantity - ?, updated_at = ?
		 WHERE item_id = ? AND quantity >= ?
		 RETURNING quantity`,
		quantity, utc(at), itemID, quantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		available, qerr := GetWarehouseQuantity(ctx, q, itemID)
		if qerr != nil {
			return 0, 0, qerr
		}
		return 0, 0, fmt.Errorf("%w: warehouse has %d of item %d, need %d", model.ErrInsufficientStock, available, itemID, quantity)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("taking warehouse stock: %w", err)
	}
	return after + quantity, after, nil
}

func requireCatalogItem(ctx context.Context, q Querier, itemID int64) error {
	item, err := GetCatalogItem(ctx, q, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: catalog item %d", model.ErrNotFound, itemID)
	}
	return nil
}
