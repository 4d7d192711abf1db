package models

import (
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

// Station is a fuel station row. Stock is mutated only by the stock
// accounting path; FuelAvailable is derived from it (stock > 0).
type Station struct {
	ID                   string          `db:"id" json:"id"`
	Name                 string          `db:"name" json:"name"`
	Latitude             float64         `db:"latitude" json:"latitude"`
	Longitude            float64         `db:"longitude" json:"longitude"`
	Stock                decimal.Decimal `db:"stock" json:"stock"`
	FuelAvailable        bool            `db:"fuel_available" json:"fuel_available"`
	OperatorUsername     string          `db:"operator_username" json:"-"`
	OperatorPasswordHash string          `db:"operator_password_hash" json:"-"`
	Created              types.DateTime  `db:"created" json:"created"`
	Updated              types.DateTime  `db:"updated" json:"updated"`
}

// StationSummary is the client-facing station view, annotated with the
// number of active queue entries.
type StationSummary struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Latitude      float64         `db:"latitude" json:"latitude"`
	Longitude     float64         `db:"longitude" json:"longitude"`
	Stock         decimal.Decimal `db:"stock" json:"stock"`
	FuelAvailable bool            `db:"fuel_available" json:"fuel_available"`
	QueueCount    int             `db:"queue_count" json:"queue_count"`
}

// StationQueueStats is the monitoring view of a single station.
type StationQueueStats struct {
	StationID    string          `db:"station_id" json:"station_id"`
	StationName  string          `db:"station_name" json:"station_name"`
	WaitingCount int             `db:"waiting_count" json:"waiting_count"`
	CalledCount  int             `db:"called_count" json:"called_count"`
	Stock        decimal.Decimal `db:"stock" json:"stock"`
}
