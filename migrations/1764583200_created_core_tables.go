package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		queries := []string{
			`CREATE TABLE IF NOT EXISTS stations (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				latitude REAL NOT NULL DEFAULT 0,
				longitude REAL NOT NULL DEFAULT 0,
				stock TEXT NOT NULL DEFAULT '0',
				fuel_available BOOLEAN NOT NULL DEFAULT FALSE,
				operator_username TEXT NOT NULL DEFAULT '',
				operator_password_hash TEXT NOT NULL DEFAULT '',
				created TEXT NOT NULL DEFAULT '',
				updated TEXT NOT NULL DEFAULT ''
			)`,

			`CREATE TABLE IF NOT EXISTS vehicles (
				id TEXT PRIMARY KEY,
				phone TEXT NOT NULL,
				created TEXT NOT NULL DEFAULT '',
				updated TEXT NOT NULL DEFAULT ''
			)`,

			`CREATE TABLE IF NOT EXISTS queue_entries (
				id TEXT PRIMARY KEY,
				station_id TEXT NOT NULL REFERENCES stations(id),
				vehicle_id TEXT NOT NULL REFERENCES vehicles(id),
				status TEXT NOT NULL DEFAULT 'waiting'
					CHECK (status IN ('waiting', 'called', 'served', 'cancelled')),
				registered_at TEXT NOT NULL,
				called_at TEXT NOT NULL DEFAULT ''
			)`,

			// One active entry per vehicle, system-wide. Enforced here so the
			// check-then-insert race cannot produce a second active entry.
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_vehicle_active_entry
				ON queue_entries (vehicle_id)
				WHERE status IN ('waiting', 'called')`,

			// Promotion order and position counting scan this prefix.
			`CREATE INDEX IF NOT EXISTS idx_queue_entries_station_status
				ON queue_entries (station_id, status, registered_at)`,

			`CREATE TABLE IF NOT EXISTS service_records (
				id TEXT PRIMARY KEY,
				vehicle_id TEXT NOT NULL,
				station_id TEXT NOT NULL REFERENCES stations(id),
				volume TEXT NOT NULL,
				served_at TEXT NOT NULL
			)`,

			// Cooldown lookups filter by vehicle and recency.
			`CREATE INDEX IF NOT EXISTS idx_service_records_vehicle_served
				ON service_records (vehicle_id, served_at)`,
		}

		for _, q := range queries {
			if _, err := app.DB().NewQuery(q).Execute(); err != nil {
				return err
			}
		}

		return nil
	}, func(app core.App) error {
		queries := []string{
			`DROP TABLE IF EXISTS service_records`,
			`DROP TABLE IF EXISTS queue_entries`,
			`DROP TABLE IF EXISTS vehicles`,
			`DROP TABLE IF EXISTS stations`,
		}

		for _, q := range queries {
			if _, err := app.DB().NewQuery(q).Execute(); err != nil {
				return err
			}
		}

		return nil
	})
}
