package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromotedEntry_PhoneNotSerialized(t *testing.T) {
	entry := PromotedEntry{
		EntryID:   "entry-1",
		VehicleID: "AB-1234-ML",
		Phone:     "+22374749730",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "74749730")
	assert.Contains(t, string(data), "AB-1234-ML")
}

func TestStation_CredentialsNotSerialized(t *testing.T) {
	station := Station{
		ID:                   "station-1",
		Name:                 "Station One",
		Stock:                decimal.NewFromInt(500),
		FuelAvailable:        true,
		OperatorUsername:     "operator1",
		OperatorPasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
	}

	data, err := json.Marshal(station)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "operator1")
	assert.NotContains(t, string(data), "$2a$10$")
}

func TestPromotionResult_EmptyReason(t *testing.T) {
	result := PromotionResult{
		Promoted: []PromotedEntry{{EntryID: "entry-1"}},
		Notified: 1,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "reason")

	result = PromotionResult{Reason: ReasonQueueFull}
	data, err = json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), ReasonQueueFull)
}
