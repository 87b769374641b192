package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is one immutable record of a single change to an order.
type HistoryEntry struct {
	ID            int64     `db:"id" json:"id"`
	OrderID       *string   `db:"order_id" json:"order_id,omitempty"`
	ChangeType    string    `db:"change_type" json:"change_type"`
	PreviousValue string    `db:"previous_value" json:"previous_value,omitempty"`
	NewValue      string    `db:"new_value" json:"new_value,omitempty"`
	Description   string    `db:"description" json:"description"`
	ActorID       *int64    `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Order history change types.
const (
	ChangeCreated        = "created"
	ChangeStatus         = "status_change"
	ChangeCrewAssignment = "crew_assignment"
	ChangeMaterialsAdded = "materials_added"
	ChangeCompleted      = "completed"
	ChangeCancelled      = "cancelled"
	ChangeUpdated        = "updated"
)

// Movement is one immutable inventory movement. For crew movements the signed
// QuantityChange values of a (crew, item) pair add up to the crew's holding.
type Movement struct {
	ID             int64               `db:"id" json:"id"`
	Type           string              `db:"type" json:"type"`
	ItemID         int64               `db:"item_id" json:"item_id"`
	CrewID         *int64              `db:"crew_id" json:"crew_id,omitempty"`
	OrderID        *string             `db:"order_id" json:"order_id,omitempty"`
	BatchCode      string              `db:"batch_code" json:"batch_code,omitempty"`
	Meters         decimal.NullDecimal `db:"meters" json:"meters,omitempty"`
	QuantityChange int                 `db:"quantity_change" json:"quantity_change"`
	QuantityBefore int                 `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int                 `db:"quantity_after" json:"quantity_after"`
	Notes          string              `db:"notes" json:"notes,omitempty"`
	ActorID        *int64              `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`

	// Joined fields (not always populated).
	ItemCode string `db:"item_code" json:"item_code,omitempty"`
}

// Movement types.
const (
	MovementReceipt      = "receipt"
	MovementAssignment   = "assignment"
	MovementUsageOrder   = "usage_order"
	MovementReturn       = "return"
	MovementDamaged      = "damaged"
	MovementBatchCreated = "batch_created"
	MovementBatchMeters  = "batch_meters"
	MovementBatchHolder  = "batch_holder"
	MovementBatchUsage   = "batch_usage"
)

// MovementFilter narrows ListMovements. Zero values match everything.
type MovementFilter struct {
	CrewID  int64
	ItemID  int64
	OrderID string
	Type    string
	Limit   int
}
