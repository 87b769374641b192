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

// HoldingChange describes one grant, consumption or return of a crew holding.
type HoldingChange struct {
	CrewID   int64
	ItemID   int64
	Quantity int
	OrderID  *string
	Notes    string
	ActorID  *int64
	At       time.Time
}

func (c HoldingChange) validate(ctx context.Context, q Querier) error {
	if c.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", model.ErrInvalidQuantity)
	}
	if err := requireCrew(ctx, q, c.CrewID); err != nil {
		return err
	}
	return requireCatalogItem(ctx, q, c.ItemID)
}

// GrantToCrew moves stock from the warehouse to a crew.
func GrantToCrew(ctx context.Context, tx *sqlx.Tx, c HoldingChange) (*model.Movement, error) {
	if err := c.validate(ctx, tx); err != nil {
		return nil, err
	}
	if _, _, err := takeFromWarehouse(ctx, tx, c.ItemID, c.Quantity, c.At); err != nil {
		return nil, err
	}
	return grantHolding(ctx, tx, c, model.MovementAssignment)
}

// ConsumeFromCrew uses up part of a crew holding, normally for an order.
func ConsumeFromCrew(ctx context.Context, tx *sqlx.Tx, c HoldingChange) (*model.Movement, error) {
	if err := c.validate(ctx, tx); err != nil {
		return nil, err
	}
	return debitHolding(ctx, tx, c, model.MovementUsageOrder)
}

// ReturnFromCrew moves part of a crew holding back to the warehouse.
func ReturnFromCrew(ctx context.Context, tx *sqlx.Tx, c HoldingChange) (*model.Movement, error) {
	if err := c.validate(ctx, tx); err != nil {
		return nil, err
	}
	m, err := debitHolding(ctx, tx, c, model.MovementReturn)
	if err != nil {
		return nil, err
	}
	if _, _, err := addToWarehouse(ctx, tx, c.ItemID, c.Quantity, c.At); err != nil {
		return nil, err
	}
	return m, nil
}

func grantHolding(ctx context.Context, q Querier, c HoldingChange, movementType string) (*model.Movement, error) {
	var after int
	err := sqlx.GetContext(ctx, q, &after,
		`INSERT INTO crew_holdings (crew_id, item_id, quantity, last_update) VALUES (?, ?, ?, ?)
		 ON CONFLICT (crew_id, item_id) DO UPDATE SET quantity = quantity + excluded.quantity, last_update = excluded.last_update
		 RETURNING quantity`,
		c.CrewID, c.ItemID, c.Quantity, utc(c.At),
	)
	if err != nil {
		return nil, fmt.Errorf("granting holding: %w", err)
	}
	return recordHoldingMovement(ctx, q, c, movementType, c.Quantity, after)
}

// debitHolding decrements a holding in one conditional statement, so
// concurrent debits can never take it below zero.
func debitHolding(ctx context.Context, q Querier, c HoldingChange, movementType string) (*model.Movement, error) {
	var after int
	err := sqlx.GetContext(ctx, q, &after,
		`UPDATE crew_holdings SET quantity = quantity - ?, last_update = ?
		 WHERE crew_id = ? AND item_id = ? AND quantity >= ?
		 RETURNING quantity`,
		c.Quantity, utc(c.At), c.CrewID, c.ItemID, c.Quantity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		held, herr := GetHolding(ctx, q, c.CrewID, c.ItemID)
		if herr != nil {
			return nil, herr
		}
		return nil, fmt.Errorf("%w: crew %d holds %d of item %d, need %d",
			model.ErrInsufficientHolding, c.CrewID, held, c.ItemID, c.Quantity)
	}
	if err != nil {
		return nil, fmt.Errorf("debiting holding: %w", err)
	}
	return recordHoldingMovement(ctx, q, c, movementType, -c.Quantity, after)
}

func recordHoldingMovement(ctx context.Context, q Querier, c HoldingChange, movementType string, delta, after int) (*model.Movement, error) {
	crewID := c.CrewID
	m := &model.Movement{
		Type:           movementType,
		ItemID:         c.ItemID,
		CrewID:         &crewID,
		OrderID:        c.OrderID,
		QuantityChange: delta,
		QuantityBefore: after - delta,
		QuantityAfter:  after,
		Notes:          c.Notes,
		ActorID:        c.ActorID,
		CreatedAt:      c.At,
	}
	if err := insertMovement(ctx, q, m); err != nil {
		return nil, err
	}
	return m, nil
}

// GetHolding returns how much of an item a crew holds. A missing row is zero.
func GetHolding(ctx context.Context, q Querier, crewID, itemID int64) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, q, &qty,
		`SELECT COALESCE((SELECT quantity FROM crew_holdings WHERE crew_id = ? AND item_id = ?), 0)`,
		crewID, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("getting holding: %w", err)
	}
	return qty, nil
}

// ListCrewHoldings returns the non-zero holdings of a crew.
func ListCrewHoldings(ctx context.Context, q Querier, crewID int64) ([]model.Holding, error) {
	var holdings []model.Holding
	err := sqlx.SelectContext(ctx, q, &holdings,
		`SELECT h.crew_id, h.item_id, h.quantity, h.last_update,
		        ci.code AS item_code, ci.description AS item_description
		 FROM crew_holdings h
		 JOIN catalog_items ci ON ci.id = h.item_id
		 WHERE h.crew_id = ? AND h.quantity > 0
		 ORDER BY ci.code`, crewID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing crew holdings: %w", err)
	}
	return holdings, nil
}
