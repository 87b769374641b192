package model

import (
	"strings"
	"time"
)

// Instance is one serialized unit of equipment.
type Instance struct {
	ID           int64     `db:"id" json:"id"`
	ItemID       int64     `db:"item_id" json:"item_id"`
	UniqueID     string    `db:"unique_id" json:"unique_id"`
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	MACAddress   string    `db:"mac_address" json:"mac_address,omitempty"`
	Status       string    `db:"status" json:"status"`
	HolderCrewID *int64    `db:"holder_crew_id" json:"holder_crew_id,omitempty"`
	OrderID      *string   `db:"order_id" json:"order_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Instance statuses.
const (
	InstanceStatusInStock   = "in_stock"
	InstanceStatusAssigned  = "assigned_to_crew"
	InstanceStatusInstalled = "installed"
	InstanceStatusReturned  = "returned"
	InstanceStatusDamaged   = "damaged"
)

// UniqueIDFromSerial derives an instance unique id from its serial number:
// upper case with separators and whitespace removed.
func UniqueIDFromSerial(serial string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(serial) {
		switch r {
		case '-', ':', '.', '_', ' ', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
