package model

import "time"

// CatalogItem is a material or equipment type. Stock of it is counted per holder.
type CatalogItem struct {
	ID                int64     `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	Description       string    `db:"description" json:"description"`
	Unit              string    `db:"unit" json:"unit"`
	Type              string    `db:"type" json:"type"`
	LowStockThreshold int       `db:"low_stock_threshold" json:"low_stock_threshold"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Catalog item types.
const (
	ItemTypeMaterial  = "material"
	ItemTypeEquipment = "equipment"
)

// WarehouseStock is the central warehouse quantity of a catalog item.
type WarehouseStock struct {
	ItemID    int64     `db:"item_id" json:"item_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields (not always populated).
	ItemCode          string `db:"item_code" json:"item_code,omitempty"`
	ItemDescription   string `db:"item_description" json:"item_description,omitempty"`
	LowStockThreshold int    `db:"low_stock_threshold" json:"low_stock_threshold,omitempty"`
}
