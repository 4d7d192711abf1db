package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelqueue-system/internal/status"
)

func TestCooldownCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := CooldownCutoff(now, 48*time.Hour)

	servedAt := func(tm time.Time) types.DateTime {
		dt, err := types.ParseDateTime(tm)
		require.NoError(t, err)
		return dt
	}

	tests := []struct {
		name    string
		served  time.Time
		blocked bool
	}{
		{"Served one hour ago", now.Add(-1 * time.Hour), true},
		{"Served just inside the window", now.Add(-48*time.Hour + time.Second), true},
		{"Served exactly at the boundary", now.Add(-48 * time.Hour), true},
		{"Served one second past the window", now.Add(-48*time.Hour - time.Second), false},
		{"Served a week ago", now.Add(-7 * 24 * time.Hour), false},
	}

	// served_at >= cutoff blocks; DateTime strings compare
	// chronologically, which is what the SQL predicate relies on.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked := servedAt(tt.served).String() >= cutoff.String()
			assert.Equal(t, tt.blocked, blocked)
		})
	}
}

func TestTranslateInsertError(t *testing.T) {
	t.Run("Nil passes through", func(t *testing.T) {
		assert.NoError(t, TranslateInsertError(nil))
	})

	t.Run("Active entry index violation by name", func(t *testing.T) {
		err := errors.New("UNIQUE constraint failed: index 'uq_vehicle_active_entry'")
		assert.ErrorIs(t, TranslateInsertError(err), status.ErrAlreadyQueued)
	})

	t.Run("Active entry index violation by column", func(t *testing.T) {
		err := errors.New("constraint failed: UNIQUE constraint failed: queue_entries.vehicle_id (2067)")
		assert.ErrorIs(t, TranslateInsertError(err), status.ErrAlreadyQueued)
	})

	t.Run("Unrelated unique violation stays a storage error", func(t *testing.T) {
		err := TranslateInsertError(errors.New("UNIQUE constraint failed: queue_entries.id"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, status.ErrAlreadyQueued)
	})

	t.Run("Unrelated error is wrapped", func(t *testing.T) {
		cause := fmt.Errorf("database is locked")
		err := TranslateInsertError(cause)
		require.Error(t, err)
		assert.NotErrorIs(t, err, status.ErrAlreadyQueued)
		assert.Contains(t, err.Error(), "database is locked")
	})
}
