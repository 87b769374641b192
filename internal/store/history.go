package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
)

// AppendHistory appends one order history entry and sets its ID.
func AppendHistory(ctx context.Context, q Querier, e *model.HistoryEntry) error {
	if e.ChangeType == "" || e.Description == "" {
		return fmt.Errorf("%w: history entry needs a change type and description", model.ErrInvalidInput)
	}
	e.CreatedAt = utc(e.CreatedAt)
	result, err := q.ExecContext(ctx,
		`INSERT INTO order_history (order_id, change_type, previous_value, new_value, description, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.OrderID, e.ChangeType, e.PreviousValue, e.NewValue, e.Description, e.ActorID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	e.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting history id: %w", err)
	}
	return nil
}

// ListOrderHistory returns an order's history in the order it was written.
func ListOrderHistory(ctx context.Context, q Querier, orderID string) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := sqlx.SelectContext(ctx, q, &entries,
		`SELECT id, order_id, change_type, previous_value, new_value, description, actor_id, created_at
		 FROM order_history WHERE order_id = ? ORDER BY id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing order history: %w", err)
	}
	return entries, nil
}
