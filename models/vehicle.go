package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// Vehicle is identified by its plate or frame number, case-normalized to
// uppercase. The phone is upserted on every registration.
type Vehicle struct {
	ID      string         `db:"id" json:"id"`
	Phone   string         `db:"phone" json:"phone"`
	Created types.DateTime `db:"created" json:"created"`
	Updated types.DateTime `db:"updated" json:"updated"`
}

// ServiceRecord is an append-only record of a completed service. It is
// the sole source of truth for the cooldown check.
type ServiceRecord struct {
	ID        string          `db:"id" json:"id"`
	VehicleID string          `db:"vehicle_id" json:"vehicle_id"`
	StationID string          `db:"station_id" json:"station_id"`
	Volume    decimal.Decimal `db:"volume" json:"volume"`
	ServedAt  types.DateTime  `db:"served_at" json:"served_at"`
}
