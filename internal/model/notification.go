package model

// NotificationStat is the aggregate delivery counter of one event kind on one UTC day.
type NotificationStat struct {
	Day       string `db:"day" json:"day"`
	Kind      string `db:"kind" json:"kind"`
	Sent      int    `db:"sent" json:"sent"`
	Succeeded int    `db:"succeeded" json:"succeeded"`
	Failed    int    `db:"failed" json:"failed"`
}

// Notification event kinds.
const (
	EventOrderAssigned     = "order_assigned"
	EventStatusChanged     = "status_changed"
	EventReassigned        = "reassigned"
	EventMaterialsAssigned = "materials_assigned"
	EventMaterialsReturned = "materials_returned"
)
