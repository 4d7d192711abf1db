package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"fuelqueue-system/internal/status"
)

// EligibilityService decides whether a vehicle may register. The cooldown
// rule is checked against the service history inside the registration
// transaction, so the read is serialized against a concurrent serve
// commit; the one-active-entry rule is enforced by the partial unique
// index on queue_entries at insert time, and the resulting constraint
// violation is translated by TranslateInsertError. Both rules are
// vehicle-wide, not per station.
type EligibilityService struct {
	cooldown time.Duration
}

func NewEligibilityService(cooldown time.Duration) *EligibilityService {
	return &EligibilityService{cooldown: cooldown}
}

// CanRegisterTx rejects with ErrRecentlyServed when any service record
// for the vehicle falls inside the cooldown window, regardless of
// station. It must run on the same write transaction as the entry
// insert; a check on a separate connection leaves a window for a serve
// to commit between the check and the insert.
func (s *EligibilityService) CanRegisterTx(ctx context.Context, txApp core.App, vehicleID string, now time.Time) error {
	cutoff := CooldownCutoff(now, s.cooldown)

	var count int64
	err := txApp.DB().
		NewQuery(`SELECT COUNT(*) FROM service_records
			WHERE vehicle_id = {:vehicle} AND served_at >= {:cutoff}`).
		Bind(dbx.Params{"vehicle": vehicleID, "cutoff": cutoff.String()}).
		WithContext(ctx).
		Row(&count)
	if err != nil {
		return fmt.Errorf("cooldown lookup for vehicle %s: %w", vehicleID, err)
	}

	if count > 0 {
		return status.ErrRecentlyServed
	}

	return nil
}

// CooldownCutoff returns the oldest service timestamp that still blocks
// re-registration: records at or after the cutoff reject, older ones do
// not.
func CooldownCutoff(now time.Time, window time.Duration) types.DateTime {
	dt, _ := types.ParseDateTime(now.Add(-window))
	return dt
}

// TranslateInsertError maps a violation of the active-entry index into
// the domain-level rejection. SQLite reports the indexed column, not the
// index name, so both forms are matched; unrelated uniqueness failures
// and anything else surface as opaque storage errors.
func TranslateInsertError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "uq_vehicle_active_entry") ||
		(strings.Contains(msg, "UNIQUE constraint failed") &&
			strings.Contains(msg, "queue_entries.vehicle_id")) {
		return status.ErrAlreadyQueued
	}
	return fmt.Errorf("insert queue entry: %w", err)
}
