package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// Queue entry statuses. waiting and called are the active states; served
// and cancelled are terminal and entries are never reopened or deleted.
const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusServed    = "served"
	StatusCancelled = "cancelled"
)

// QueueEntry is a row of the queue ledger. Seq is the SQLite rowid and
// breaks ordering ties between entries registered at the same instant.
type QueueEntry struct {
	ID           string         `db:"id" json:"id"`
	StationID    string         `db:"station_id" json:"station_id"`
	VehicleID    string         `db:"vehicle_id" json:"vehicle_id"`
	Status       string         `db:"status" json:"status"`
	RegisteredAt types.DateTime `db:"registered_at" json:"registered_at"`
	CalledAt     types.DateTime `db:"called_at" json:"called_at,omitempty"`
	Seq          int64          `db:"seq" json:"-"`
}

// PromotedEntry is one entry moved into the physical queue, carrying the
// contact info the notification dispatcher needs.
type PromotedEntry struct {
	EntryID      string         `db:"id" json:"entry_id"`
	VehicleID    string         `db:"vehicle_id" json:"vehicle_id"`
	Phone        string         `db:"phone" json:"-"`
	RegisteredAt types.DateTime `db:"registered_at" json:"registered_at"`
}

// Promotion result reasons for an empty promotion.
const (
	ReasonQueueFull        = "queue full"
	ReasonNothingRequested = "nothing requested"
)

type PromotionResult struct {
	Promoted []PromotedEntry `json:"promoted"`
	Notified int             `json:"notified"`
	Reason   string          `json:"reason,omitempty"`
}

// VehicleStatus is the client status view: where the vehicle stands in
// its unique active queue entry, if any.
type VehicleStatus struct {
	StationName string          `json:"station_name"`
	Status      string          `json:"status"`
	Position    int             `json:"position"`
	Stock       decimal.Decimal `json:"stock"`
}

// QueueSnapshot is the operator view of one station's queues, both
// ordered oldest first.
type QueueSnapshot struct {
	Called  []QueueEntry `json:"called"`
	Waiting []QueueEntry `json:"waiting"`
}
