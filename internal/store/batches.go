package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/fieldstock/internal/model"
)

const batchColumns = `id, code, item_id, initial_quantity, remaining_quantity, supplier, acquired_at,
       holder_crew_id, status, created_at, updated_at`

// NewBatch holds the fields needed to register a batch.
type NewBatch struct {
	Code            string
	ItemID          int64
	InitialQuantity decimal.Decimal
	Supplier        string
	AcquiredAt      *time.Time
	HolderCrewID    *int64
}

// BatchFilter narrows ListBatches. Zero values match everything.
type BatchFilter struct {
	ItemID int64
	CrewID int64
	Status string
}

// CreateBatch registers a new active batch with its full quantity remaining.
func CreateBatch(ctx context.Context, tx *sqlx.Tx, b NewBatch, actorID *int64, at time.Time) (*model.Batch, error) {
	if b.Code == "" {
		return nil, fmt.Errorf("%w: batch code required", model.ErrInvalidInput)
	}
	if !b.InitialQuantity.IsPositive() {
		return nil, fmt.Errorf("%w: initial quantity must be positive", model.ErrInvalidQuantity)
	}
	if err := requireCatalogItem(ctx, tx, b.ItemID); err != nil {
		return nil, err
	}
	if b.HolderCrewID != nil {
		if err := requireCrew(ctx, tx, *b.HolderCrewID); err != nil {
			return nil, err
		}
	}
	at = utc(at)

	_, err := tx.ExecContext(ctx,
		`INSERT INTO batches (code, item_id, initial_quantity, remaining_quantity, supplier, acquired_at,
		                      holder_crew_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Code, b.ItemID, b.InitialQuantity, b.InitialQuantity, b.Supplier, b.AcquiredAt,
		b.HolderCrewID, model.BatchStatusActive, at, at,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: batch %q already exists", model.ErrDuplicateKey, b.Code)
		}
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	if err := insertMovement(ctx, tx, &model.Movement{
		Type:      model.MovementBatchCreated,
		ItemID:    b.ItemID,
		CrewID:    b.HolderCrewID,
		BatchCode: b.Code,
		Meters:    decimal.NewNullDecimal(b.InitialQuantity),
		ActorID:   actorID,
		CreatedAt: at,
	}); err != nil {
		return nil, err
	}

	return GetBatch(ctx, tx, b.Code)
}

// GetBatch returns a batch by code.
func GetBatch(ctx context.Context, q Querier, code string) (*model.Batch, error) {
	b := &model.Batch{}
	err := sqlx.GetContext(ctx, q, b, `SELECT `+batchColumns+` FROM batches WHERE code = ?`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting batch: %w", err)
	}
	return b, nil
}

// ListBatches returns batches matching the filter, ordered by code.
func ListBatches(ctx context.Context, q Querier, f BatchFilter) ([]model.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE 1 = 1`
	var args []any
	if f.ItemID > 0 {
		query += ` AND item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.CrewID > 0 {
		query += ` AND holder_crew_id = ?`
		args = append(args, f.CrewID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY code`

	var batches []model.Batch
	if err := sqlx.SelectContext(ctx, q, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return batches, nil
}

func requireBatch(ctx context.Context, q Querier, code string) (*model.Batch, error) {
	b, err := GetBatch(ctx, q, code)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: batch %q", model.ErrNotFound, code)
	}
	return b, nil
}

// AssignMetersToBatch adds metres to a batch, raising both its initial and
// remaining quantity. An exhausted batch becomes active again.
func AssignMetersToBatch(ctx context.Context, tx *sqlx.Tx, code string, meters decimal.Decimal, actorID *int64, at time.Time) (*model.Batch, error) {
	b, err := requireBatch(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if !meters.IsPositive() {
		return nil, fmt.Errorf("%w: metres to add must be positive", model.ErrInvalidQuantity)
	}
	at = utc(at)

	if err := writeBatchQuantities(ctx, tx, b, b.InitialQuantity.Add(meters), b.RemainingQuantity.Add(meters), at); err != nil {
		return nil, err
	}

	if err := insertMovement(ctx, tx, &model.Movement{
		Type:      model.MovementBatchMeters,
		ItemID:    b.ItemID,
		CrewID:    b.HolderCrewID,
		BatchCode: b.Code,
		Meters:    decimal.NewNullDecimal(meters),
		Notes:     fmt.Sprintf("added %s", meters.String()),
		ActorID:   actorID,
		CreatedAt: at,
	}); err != nil {
		return nil, err
	}

	return GetBatch(ctx, tx, code)
}

// BatchUsage describes metres taken from a batch.
type BatchUsage struct {
	Code     string
	Quantity decimal.Decimal
	OrderID  *string
	CrewID   *int64
	ActorID  *int64
	At       time.Time
}

// ConsumeBatch takes metres from a batch, marking it exhausted when nothing
// remains.
func ConsumeBatch(ctx context.Context, tx *sqlx.Tx, u BatchUsage) (*model.Batch, error) {
	b, err := requireBatch(ctx, tx, u.Code)
	if err != nil {
		return nil, err
	}
	if !u.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", model.ErrInvalidQuantity)
	}
	if b.Status == model.BatchStatusExhausted {
		return nil, fmt.Errorf("%w: batch %q", model.ErrBatchExhausted, b.Code)
	}
	if u.Quantity.GreaterThan(b.RemainingQuantity) {
		return nil, fmt.Errorf("%w: batch %q has %s remaining, need %s",
			model.ErrInsufficientStock, b.Code, b.RemainingQuantity, u.Quantity)
	}
	at := utc(u.At)

	if err := writeBatchQuantities(ctx, tx, b, b.InitialQuantity, b.RemainingQuantity.Sub(u.Quantity), at); err != nil {
		return nil, err
	}

	crewID := u.CrewID
	if crewID == nil {
		crewID = b.HolderCrewID
	}
	if err := insertMovement(ctx, tx, &model.Movement{
		Type:      model.MovementBatchUsage,
		ItemID:    b.ItemID,
		CrewID:    crewID,
		OrderID:   u.OrderID,
		BatchCode: b.Code,
		Meters:    decimal.NewNullDecimal(u.Quantity.Neg()),
		ActorID:   u.ActorID,
		CreatedAt: at,
	}); err != nil {
		return nil, err
	}

	return GetBatch(ctx, tx, b.Code)
}

// writeBatchQuantities stores new quantities for a batch read earlier in the
// same transaction. The update only applies if the remaining quantity is
// unchanged since that read.
func writeBatchQuantities(ctx context.Context, tx *sqlx.Tx, b *model.Batch, initial, remaining decimal.Decimal, at time.Time) error {
	status := model.BatchStatusActive
	if remaining.IsZero() {
		status = model.BatchStatusExhausted
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE batches SET initial_quantity = ?, remaining_quantity = ?, status = ?, updated_at = ?
		 WHERE id = ? AND remaining_quantity = ?`,
		initial, remaining, status, at, b.ID, b.RemainingQuantity,
	)
	if err != nil {
		return fmt.Errorf("updating batch: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("updating batch %q: concurrent modification", b.Code)
	}
	return nil
}

// AssignBatchToCrew hands a batch to a crew, or back to the warehouse when
// crewID is nil.
func AssignBatchToCrew(ctx context.Context, tx *sqlx.Tx, code string, crewID *int64, actorID *int64, at time.Time) (*model.Batch, error) {
	b, err := requireBatch(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BatchStatusExhausted {
		return nil, fmt.Errorf("%w: batch %q", model.ErrBatchExhausted, b.Code)
	}
	if crewID != nil {
		if err := requireCrew(ctx, tx, *crewID); err != nil {
			return nil, err
		}
	}
	at = utc(at)

	if _, err := tx.ExecContext(ctx,
		`UPDATE batches SET holder_crew_id = ?, updated_at = ? WHERE id = ?`, crewID, at, b.ID,
	); err != nil {
		return nil, fmt.Errorf("assigning batch: %w", err)
	}

	notes := "returned to warehouse"
	if crewID != nil {
		notes = fmt.Sprintf("assigned to crew %d", *crewID)
	}
	if err := insertMovement(ctx, tx, &model.Movement{
		Type:      model.MovementBatchHolder,
		ItemID:    b.ItemID,
		CrewID:    crewID,
		BatchCode: b.Code,
		Meters:    decimal.NewNullDecimal(b.RemainingQuantity),
		Notes:     notes,
		ActorID:   actorID,
		CreatedAt: at,
	}); err != nil {
		return nil, err
	}

	return GetBatch(ctx, tx, code)
}

// DeleteBatch removes an exhausted batch. Its movements are kept.
func DeleteBatch(ctx context.Context, tx *sqlx.Tx, code string) error {
	b, err := requireBatch(ctx, tx, code)
	if err != nil {
		return err
	}
	if b.Status != model.BatchStatusExhausted {
		return fmt.Errorf("%w: batch %q still has %s remaining", model.ErrNotEmpty, b.Code, b.RemainingQuantity)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, b.ID); err != nil {
		return fmt.Errorf("deleting batch: %w", err)
	}
	return nil
}
