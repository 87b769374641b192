package model

import "time"

// Crew is a field team that holds inventory and is assigned orders.
// Members point at their crew through User.CrewID; the crew points at its leader.
type Crew struct {
	ID        int64      `db:"id" json:"id"`
	Number    int        `db:"number" json:"number"`
	Name      string     `db:"name" json:"name"`
	LeaderID  *int64     `db:"leader_id" json:"leader_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Holding is the quantity of a catalog item currently held by a crew.
type Holding struct {
	CrewID     int64     `db:"crew_id" json:"crew_id"`
	ItemID     int64     `db:"item_id" json:"item_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	LastUpdate time.Time `db:"last_update" json:"last_update"`

	// Joined fields (not always populated).
	ItemCode        string `db:"item_code" json:"item_code,omitempty"`
	ItemDescription string `db:"item_description" json:"item_description,omitempty"`
}
