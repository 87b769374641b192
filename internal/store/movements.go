package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
)

// insertMovement appends an inventory movement and sets its ID. Movements are
// never updated or deleted.
func insertMovement(ctx context.Context, q Querier, m *model.Movement) error {
	m.CreatedAt = utc(m.CreatedAt)
	result, err := q.ExecContext(ctx,
		`INSERT INTO movements (type, item_id, crew_id, order_id, batch_code, meters,
		                        quantity_change, quantity_before, quantity_after, notes, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Type, m.ItemID, m.CrewID, m.OrderID, m.BatchCode, m.Meters,
		m.QuantityChange, m.QuantityBefore, m.QuantityAfter, m.Notes, m.ActorID, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording movement: %w", err)
	}
	m.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting movement id: %w", err)
	}
	return nil
}

// ListMovements returns movements, newest first, narrowed by filter.
func ListMovements(ctx context.Context, q Querier, f model.MovementFilter) ([]model.Movement, error) {
	query := `SELECT m.id, m.type, m.item_id, m.crew_id, m.order_id, m.batch_code, m.meters,
	                 m.quantity_change, m.quantity_before, m.quantity_after, m.notes, m.actor_id, m.created_at,
	                 ci.code AS item_code
	          FROM movements m
	          JOIN catalog_items ci ON ci.id = m.item_id`

	var conds []string
	var args []any
	if f.CrewID > 0 {
		conds = append(conds, `m.crew_id = ?`)
		args = append(args, f.CrewID)
	}
	if f.ItemID > 0 {
		conds = append(conds, `m.item_id = ?`)
		args = append(args, f.ItemID)
	}
	if f.OrderID != "" {
		conds = append(conds, `m.order_id = ?`)
		args = append(args, f.OrderID)
	}
	if f.Type != "" {
		conds = append(conds, `m.type = ?`)
		args = append(args, f.Type)
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += ` ORDER BY m.id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	var movements []model.Movement
	if err := sqlx.SelectContext(ctx, q, &movements, query, args...); err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	return movements, nil
}

// SumMovements returns the signed sum of quantity changes recorded for a crew
// and item. It always equals the crew's holding of that item.
func SumMovements(ctx context.Context, q Querier, crewID, itemID int64) (int, error) {
	var sum int
	err := sqlx.GetContext(ctx, q, &sum,
		`SELECT COALESCE(SUM(quantity_change), 0) FROM movements WHERE crew_id = ? AND item_id = ?`,
		crewID, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("summing movements: %w", err)
	}
	return sum, nil
}
