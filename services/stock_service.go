package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"fuelqueue-system/internal/status"
)

// StockService owns the stock column of the stations table. Stock is
// only ever reduced through DecrementTx and replenished through the
// station registry's restock path.
type StockService struct{}

func NewStockService() *StockService {
	return &StockService{}
}

// DecrementTx reduces a station's stock by volume inside the caller's
// write transaction and recomputes fuel_available. It rejects with
// ErrInsufficientStock, leaving stock untouched, when volume exceeds the
// remaining stock. The surrounding transaction holds the database write
// lock, so the read-modify-write below cannot interleave with a
// concurrent decrement.
func (s *StockService) DecrementTx(txApp core.App, stationID string, volume decimal.Decimal) error {
	var current decimal.Decimal

	err := txApp.DB().
		NewQuery("SELECT stock FROM stations WHERE id = {:id}").
		Bind(dbx.Params{"id": stationID}).
		Row(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("station %s: %w", stationID, status.ErrNotFound)
		}
		return fmt.Errorf("read stock for station %s: %w", stationID, err)
	}

	if volume.GreaterThan(current) {
		return status.ErrInsufficientStock
	}

	remaining := current.Sub(volume)

	_, err = txApp.DB().
		Update("stations", dbx.Params{
			"stock":          remaining,
			"fuel_available": remaining.IsPositive(),
			"updated":        types.NowDateTime(),
		}, dbx.HashExp{"id": stationID}).
		Execute()
	if err != nil {
		return fmt.Errorf("decrement stock for station %s: %w", stationID, err)
	}

	return nil
}
