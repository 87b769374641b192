package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Order is a field-service work order.
type Order struct {
	ID               string     `db:"id" json:"id"`
	TicketID         *string    `db:"ticket_id" json:"ticket_id,omitempty"`
	SubscriberName   string     `db:"subscriber_name" json:"subscriber_name"`
	SubscriberNumber string     `db:"subscriber_number" json:"subscriber_number,omitempty"`
	Address          string     `db:"address" json:"address"`
	Phone            string     `db:"phone" json:"phone,omitempty"`
	Type             string     `db:"type" json:"type"`
	Status           string     `db:"status" json:"status"`
	AssignedTo       *int64     `db:"assigned_to" json:"assigned_to,omitempty"`
	Materials        Materials  `db:"materials_used" json:"materials_used"`
	Notes            string     `db:"notes" json:"notes,omitempty"`
	PhotoURLs        URLList    `db:"photo_urls" json:"photo_urls"`
	SignatureURL     string     `db:"signature_url" json:"signature_url,omitempty"`
	ReceptionDate    time.Time  `db:"reception_date" json:"reception_date"`
	AssignmentDate   *time.Time `db:"assignment_date" json:"assignment_date,omitempty"`
	CompletionDate   *time.Time `db:"completion_date" json:"completion_date,omitempty"`
	CreatedBy        *int64     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Order types.
const (
	OrderTypeInstallation = "installation"
	OrderTypeRepair       = "repair"
	OrderTypeRecovery     = "recovery"
	OrderTypeOther        = "other"
)

// Order statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusAssigned   = "assigned"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusVisit      = "visit"
	OrderStatusHard       = "hard"
)

// ValidOrderType reports whether t is a known order type.
func ValidOrderType(t string) bool {
	switch t {
	case OrderTypeInstallation, OrderTypeRepair, OrderTypeRecovery, OrderTypeOther:
		return true
	}
	return false
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusAssigned, OrderStatusInProgress, OrderStatusCompleted,
		OrderStatusCancelled, OrderStatusVisit, OrderStatusHard:
		return true
	}
	return false
}

// MaterialUsage is one line of material consumed by an order.
type MaterialUsage struct {
	ItemID      int64   `json:"item_id"`
	Quantity    int     `json:"quantity"`
	BatchCode   string  `json:"batch_code,omitempty"`
	InstanceIDs []int64 `json:"instance_ids,omitempty"`
}

// Materials is the materials list of an order, stored as a JSON column.
type Materials []MaterialUsage

// Value implements driver.Valuer.
func (m Materials) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Materials) Scan(src any) error {
	return scanJSON(src, m)
}

// Equal reports whether both lists contain the same lines in the same order.
func (m Materials) Equal(other Materials) bool {
	a, _ := m.Value()
	b, _ := other.Value()
	return a == b
}

// URLList is a list of evidence URLs held by the external file store.
type URLList []string

// Value implements driver.Valuer.
func (l URLList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *URLList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src, dest any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
