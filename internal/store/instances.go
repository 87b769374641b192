package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/fieldstock/internal/model"
)

const instanceColumns = `id, item_id, unique_id, serial_number, mac_address, status, holder_crew_id, order_id,
       created_at, updated_at`

// NewInstance holds the fields needed to register an equipment instance.
type NewInstance struct {
	ItemID       int64
	SerialNumber string
	MACAddress   string
}

// InstanceFilter narrows ListInstances. Zero values match everything.
type InstanceFilter struct {
	ItemID int64
	CrewID int64
	Status string
}

// InstanceChange carries the audit context of an instance mutation.
type InstanceChange struct {
	Reason  string
	OrderID *string
	ActorID *int64
	At      time.Time
}

// RegisterInstance records a new serialized unit in the warehouse. The unique
// id is derived from the serial number and the warehouse stock of the item
// grows by one.
func RegisterInstance(ctx context.Context, tx *sqlx.Tx, n NewInstance, actorID *int64, at time.Time) (*model.Instance, error) {
	item, err := GetCatalogItem(ctx, tx, n.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: catalog item %d", model.ErrNotFound, n.ItemID)
	}
	if item.Type != model.ItemTypeEquipment {
		return nil, fmt.Errorf("%w: %q is not equipment", model.ErrInvalidItemType, item.Code)
	}
	uniqueID := model.UniqueIDFromSerial(n.SerialNumber)
	if uniqueID == "" {
		return nil, fmt.Errorf("%w: serial number required", model.ErrInvalidInput)
	}
	at = utc(at)

	result, err := tx.ExecContext(ctx,
		`INSERT INTO instances (item_id, unique_id, serial_number, mac_address, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ItemID, uniqueID, strings.TrimSpace(n.SerialNumber), strings.TrimSpace(n.MACAddress),
		model.InstanceStatusInStock, at, at,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: instance %q of %q already exists", model.ErrDuplicateKey, uniqueID, item.Code)
		}
		return nil, fmt.Errorf("registering instance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting instance id: %w", err)
	}

	before, after, err := addToWarehouse(ctx, tx, n.ItemID, 1, at)
	if err != nil {
		return nil, err
	}
	if err := insertMovement(ctx, tx, &model.Movement{
		Type:           model.MovementReceipt,
		ItemID:         n.ItemID,
		QuantityChange: 1,
		QuantityBefore: before,
		QuantityAfter:  after,
		Notes:          "registered " + uniqueID,
		ActorID:        actorID,
		CreatedAt:      at,
	}); err != nil {
		return nil, err
	}

	return GetInstance(ctx, tx, id)
}

// GetInstance returns an instance by ID.
func GetInstance(ctx context.Context, q Querier, id int64) (*model.Instance, error) {
	in := &model.Instance{}
	err := sqlx.GetContext(ctx, q, in, `SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting instance: %w", err)
	}
	return in, nil
}

// ListInstances returns instances matching the filter.
func ListInstances(ctx context.Context, q Querier, f InstanceFilter) ([]model.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE 1 = 1`
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
	query += ` ORDER BY id`

	var instances []model.Instance
	if err := sqlx.SelectContext(ctx, q, &instances, query, args...); err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}
	return instances, nil
}

// loadInstances fetches the given instances, failing if any is missing.
// Repeated ids are collapsed.
func loadInstances(ctx context.Context, q Querier, ids []int64) ([]model.Instance, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no instances given", model.ErrInvalidInput)
	}
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	query, args, err := sqlx.In(`SELECT `+instanceColumns+` FROM instances WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("building instance query: %w", err)
	}
	var instances []model.Instance
	if err := sqlx.SelectContext(ctx, q, &instances, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("loading instances: %w", err)
	}
	if len(instances) != len(ids) {
		for _, id := range ids {
			if !slices.ContainsFunc(instances, func(in model.Instance) bool { return in.ID == id }) {
				return nil, fmt.Errorf("%w: instance %d", model.ErrNotFound, id)
			}
		}
	}
	return instances, nil
}

// setInstanceState moves an instance out of the expected status. It fails if
// the instance changed status since it was read.
func setInstanceState(ctx context.Context, q Querier, in model.Instance, from, to string, holder *int64, orderID *string, at time.Time) error {
	result, err := q.ExecContext(ctx,
		`UPDATE instances SET status = ?, holder_crew_id = ?, order_id = COALESCE(?, order_id), updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, holder, orderID, at, in.ID, from,
	)
	if err != nil {
		return fmt.Errorf("updating instance: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: instance %q is no longer %s", model.ErrNotAssigned, in.UniqueID, from)
	}
	return nil
}

type holdingKey struct {
	crewID int64
	itemID int64
}

// groupInstances groups instances by (holder crew, item) in a stable order.
func groupInstances(instances []model.Instance, crewOf func(model.Instance) int64) ([]holdingKey, map[holdingKey][]model.Instance) {
	groups := make(map[holdingKey][]model.Instance)
	var keys []holdingKey
	for _, in := range instances {
		k := holdingKey{crewID: crewOf(in), itemID: in.ItemID}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], in)
	}
	return keys, groups
}

func uniqueIDs(instances []model.Instance) string {
	ids := make([]string, len(instances))
	for i, in := range instances {
		ids[i] = in.UniqueID
	}
	return strings.Join(ids, ", ")
}

// AssignInstancesToCrew hands in-stock instances to a crew. Each instance
// moves one unit of its item from the warehouse to the crew holding.
func AssignInstancesToCrew(ctx context.Context, tx *sqlx.Tx, ids []int64, crewID int64, c InstanceChange) ([]model.Instance, error) {
	if err := requireCrew(ctx, tx, crewID); err != nil {
		return nil, err
	}
	instances, err := loadInstances(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, in := range instances {
		if in.Status != model.InstanceStatusInStock {
			return nil, fmt.Errorf("%w: instance %q is %s", model.ErrAlreadyAssigned, in.UniqueID, in.Status)
		}
	}
	at := utc(c.At)

	for _, in := range instances {
		if err := setInstanceState(ctx, tx, in, model.InstanceStatusInStock, model.InstanceStatusAssigned, &crewID, nil, at); err != nil {
			return nil, err
		}
	}

	keys, groups := groupInstances(instances, func(model.Instance) int64 { return crewID })
	for _, k := range keys {
		group := groups[k]
		if _, _, err := takeFromWarehouse(ctx, tx, k.itemID, len(group), at); err != nil {
			return nil, err
		}
		change := HoldingChange{
			CrewID:   k.crewID,
			ItemID:   k.itemID,
			Quantity: len(group),
			Notes:    "instances " + uniqueIDs(group),
			ActorID:  c.ActorID,
			At:       at,
		}
		if _, err := grantHolding(ctx, tx, change, model.MovementAssignment); err != nil {
			return nil, err
		}
	}

	return loadInstances(ctx, tx, ids)
}

// ConsumeInstancesForOrder installs instances held by a crew at an order.
// The crew holding of each item is debited by the number of instances.
func ConsumeInstancesForOrder(ctx context.Context, tx *sqlx.Tx, ids []int64, orderID string, crewID int64, c InstanceChange) ([]model.Instance, error) {
	instances, err := loadInstances(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, in := range instances {
		if in.HolderCrewID == nil || *in.HolderCrewID != crewID {
			return nil, fmt.Errorf("%w: instance %q is not held by crew %d", model.ErrNotHeldByCrew, in.UniqueID, crewID)
		}
		if in.Status != model.InstanceStatusAssigned {
			return nil, fmt.Errorf("%w: instance %q is %s", model.ErrNotAssigned, in.UniqueID, in.Status)
		}
	}
	at := utc(c.At)

	for _, in := range instances {
		if err := setInstanceState(ctx, tx, in, model.InstanceStatusAssigned, model.InstanceStatusInstalled, &crewID, &orderID, at); err != nil {
			return nil, err
		}
	}

	keys, groups := groupInstances(instances, func(model.Instance) int64 { return crewID })
	for _, k := range keys {
		group := groups[k]
		change := HoldingChange{
			CrewID:   k.crewID,
			ItemID:   k.itemID,
			Quantity: len(group),
			OrderID:  &orderID,
			Notes:    "installed " + uniqueIDs(group),
			ActorID:  c.ActorID,
			At:       at,
		}
		if _, err := debitHolding(ctx, tx, change, model.MovementUsageOrder); err != nil {
			return nil, err
		}
	}

	return loadInstances(ctx, tx, ids)
}

// ReturnInstances brings assigned instances back into warehouse stock. One
// return movement is written per crew and item, carrying the reason.
func ReturnInstances(ctx context.Context, tx *sqlx.Tx, ids []int64, c InstanceChange) ([]model.Instance, error) {
	reason := strings.TrimSpace(c.Reason)
	if reason == "" {
		return nil, model.ErrReasonRequired
	}
	instances, err := loadInstances(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	for _, in := range instances {
		if in.Status != model.InstanceStatusAssigned || in.HolderCrewID == nil {
			return nil, fmt.Errorf("%w: instance %q is %s", model.ErrNotAssigned, in.UniqueID, in.Status)
		}
	}
	at := utc(c.At)

	for _, in := range instances {
		if err := setInstanceState(ctx, tx, in, model.InstanceStatusAssigned, model.InstanceStatusInStock, nil, nil, at); err != nil {
			return nil, err
		}
	}

	keys, groups := groupInstances(instances, func(in model.Instance) int64 { return *in.HolderCrewID })
	for _, k := range keys {
		group := groups[k]
		change := HoldingChange{
			CrewID:   k.crewID,
			ItemID:   k.itemID,
			Quantity: len(group),
			Notes:    fmt.Sprintf("returned %d instance(s) (%s): %s", len(group), uniqueIDs(group), reason),
			ActorID:  c.ActorID,
			At:       at,
		}
		if _, err := debitHolding(ctx, tx, change, model.MovementReturn); err != nil {
			return nil, err
		}
		if _, _, err := addToWarehouse(ctx, tx, k.itemID, len(group), at); err != nil {
			return nil, err
		}
	}

	return loadInstances(ctx, tx, ids)
}

// MarkInstanceDamaged takes an assigned instance out of circulation. The crew
// that reported it stays recorded as holder and its holding is debited.
func MarkInstanceDamaged(ctx context.Context, tx *sqlx.Tx, id int64, c InstanceChange) (*model.Instance, error) {
	reason := strings.TrimSpace(c.Reason)
	if reason == "" {
		return nil, model.ErrReasonRequired
	}
	instances, err := loadInstances(ctx, tx, []int64{id})
	if err != nil {
		return nil, err
	}
	in := instances[0]
	if in.Status != model.InstanceStatusAssigned || in.HolderCrewID == nil {
		return nil, fmt.Errorf("%w: instance %q is %s", model.ErrNotAssigned, in.UniqueID, in.Status)
	}
	at := utc(c.At)

	if err := setInstanceState(ctx, tx, in, model.InstanceStatusAssigned, model.InstanceStatusDamaged, in.HolderCrewID, nil, at); err != nil {
		return nil, err
	}
	change := HoldingChange{
		CrewID:   *in.HolderCrewID,
		ItemID:   in.ItemID,
		Quantity: 1,
		Notes:    fmt.Sprintf("damaged %s: %s", in.UniqueID, reason),
		ActorID:  c.ActorID,
		At:       at,
	}
	if _, err := debitHolding(ctx, tx, change, model.MovementDamaged); err != nil {
		return nil, err
	}

	return GetInstance(ctx, tx, id)
}
