package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch is bulk metered stock, such as a cable reel, identified by a human code.
type Batch struct {
	ID                int64           `db:"id" json:"id"`
	Code              string          `db:"code" json:"code"`
	ItemID            int64           `db:"item_id" json:"item_id"`
	InitialQuantity   decimal.Decimal `db:"initial_quantity" json:"initial_quantity"`
	RemainingQuantity decimal.Decimal `db:"remaining_quantity" json:"remaining_quantity"`
	Supplier          string          `db:"supplier" json:"supplier,omitempty"`
	AcquiredAt        *time.Time      `db:"acquired_at" json:"acquired_at,omitempty"`
	HolderCrewID      *int64          `db:"holder_crew_id" json:"holder_crew_id,omitempty"`
	Status            string          `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Batch statuses.
const (
	BatchStatusActive    = "active"
	BatchStatusExhausted = "exhausted"
)
