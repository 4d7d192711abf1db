package services

import (
	"testing"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelqueue-system/internal/status"
)

func TestStockService_DecrementTx(t *testing.T) {
	app := setupTestApp(t)
	service := NewStockService()
	stationID := createStation(t, app, "Station One", "50")

	err := app.RunInTransaction(func(txApp core.App) error {
		return service.DecrementTx(txApp, stationID, decimal.NewFromInt(20))
	})
	require.NoError(t, err)
	assert.True(t, stationStock(t, app, stationID).Equal(decimal.NewFromInt(30)))

	// Draining the last liter flips fuel_available off.
	err = app.RunInTransaction(func(txApp core.App) error {
		return service.DecrementTx(txApp, stationID, decimal.NewFromInt(30))
	})
	require.NoError(t, err)
	assert.True(t, stationStock(t, app, stationID).Equal(decimal.Zero))

	var available bool
	require.NoError(t, app.DB().
		NewQuery("SELECT fuel_available FROM stations WHERE id = {:id}").
		Bind(dbx.Params{"id": stationID}).
		Row(&available))
	assert.False(t, available)
}

func TestStockService_DecrementTx_InsufficientStock(t *testing.T) {
	app := setupTestApp(t)
	service := NewStockService()
	stationID := createStation(t, app, "Station One", "20")

	err := app.RunInTransaction(func(txApp core.App) error {
		return service.DecrementTx(txApp, stationID, decimal.NewFromInt(25))
	})
	assert.ErrorIs(t, err, status.ErrInsufficientStock)
	assert.True(t, stationStock(t, app, stationID).Equal(decimal.NewFromInt(20)))
}

func TestStockService_DecrementTx_UnknownStation(t *testing.T) {
	app := setupTestApp(t)
	service := NewStockService()

	err := app.RunInTransaction(func(txApp core.App) error {
		return service.DecrementTx(txApp, "missing", decimal.NewFromInt(1))
	})
	assert.ErrorIs(t, err, status.ErrNotFound)
}
