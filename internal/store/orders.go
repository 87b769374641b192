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

const orderColumns = `id, ticket_id, subscriber_name, subscriber_number, address, phone, type, status,
       assigned_to, materials_used, notes, photo_urls, signature_url, reception_date,
       assignment_date, completion_date, created_by, created_at, updated_at`

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	Status string
	CrewID int64
	Type   string
	Limit  int
}

// InsertOrder stores a new order.
func InsertOrder(ctx context.Context, q Querier, o *model.Order) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.TicketID, o.SubscriberName, o.SubscriberNumber, o.Address, o.Phone, o.Type, o.Status,
		o.AssignedTo, o.Materials, o.Notes, o.PhotoURLs, o.SignatureURL, o.ReceptionDate,
		o.AssignmentDate, o.CompletionDate, o.CreatedBy, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && o.TicketID != nil {
			return fmt.Errorf("%w: ticket %q", model.ErrDuplicateTicket, *o.TicketID)
		}
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

// GetOrder returns an order by ID.
func GetOrder(ctx context.Context, q Querier, id string) (*model.Order, error) {
	o := &model.Order{}
	err := sqlx.GetContext(ctx, q, o, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return o, nil
}

// UpdateOrder writes every mutable field of an order.
func UpdateOrder(ctx context.Context, q Querier, o *model.Order) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders SET subscriber_name = ?, subscriber_number = ?, address = ?, phone = ?, status = ?,
		        assigned_to = ?, materials_used = ?, notes = ?, photo_urls = ?, signature_url = ?,
		        assignment_date = ?, completion_date = ?, updated_at = ?
		 WHERE id = ?`,
		o.SubscriberName, o.SubscriberNumber, o.Address, o.Phone, o.Status,
		o.AssignedTo, o.Materials, o.Notes, o.PhotoURLs, o.SignatureURL,
		o.AssignmentDate, o.CompletionDate, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: order %s", model.ErrNotFound, o.ID)
	}
	return nil
}

// ListOrders returns orders matching the filter, newest first.
func ListOrders(ctx context.Context, q Querier, f OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1 = 1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.CrewID > 0 {
		query += ` AND assigned_to = ?`
		args = append(args, f.CrewID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	var orders []model.Order
	if err := sqlx.SelectContext(ctx, q, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// TicketExists reports whether any order carries the external ticket id.
func TicketExists(ctx context.Context, q Querier, ticketID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM orders WHERE ticket_id = ?)`, ticketID)
	if err != nil {
		return false, fmt.Errorf("checking ticket: %w", err)
	}
	return exists, nil
}

// AddressExists reports whether any order, in any status, has exactly this
// address string.
func AddressExists(ctx context.Context, q Querier, address string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM orders WHERE address = ?)`, address)
	if err != nil {
		return false, fmt.Errorf("checking address: %w", err)
	}
	return exists, nil
}

// RepairCreationTimes returns when repair orders for the subscriber and
// address were created.
func RepairCreationTimes(ctx context.Context, q Querier, subscriberName, address string) ([]time.Time, error) {
	var times []time.Time
	err := sqlx.SelectContext(ctx, q, &times,
		`SELECT created_at FROM orders WHERE type = ? AND subscriber_name = ? AND address = ?`,
		model.OrderTypeRepair, subscriberName, address,
	)
	if err != nil {
		return nil, fmt.Errorf("listing repair orders: %w", err)
	}
	return times, nil
}
