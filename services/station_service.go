package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"fuelqueue-system/internal/status"
	"fuelqueue-system/models"
)

const stationCacheKey = "stations:summary"

// StationService is the station registry: identity, coordinates, stock
// level and operator credentials. Stock replenishment goes through
// Restock; decrements belong to the stock accounting path.
type StationService struct {
	app      core.App
	redis    *redis.Client
	cacheTTL time.Duration
}

func NewStationService(app core.App, redisClient *redis.Client, cacheTTL time.Duration) *StationService {
	return &StationService{
		app:      app,
		redis:    redisClient,
		cacheTTL: cacheTTL,
	}
}

type StationInput struct {
	Name      string          `json:"name"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Stock     decimal.Decimal `json:"stock"`
}

// ListWithQueueCounts returns all stations annotated with their active
// queue size, for the client map and the registration form. Results are
// cached briefly; the map is re-polled by every client on an interval.
func (s *StationService) ListWithQueueCounts(ctx context.Context) ([]models.StationSummary, error) {
	if cached, err := s.redis.Get(ctx, stationCacheKey).Result(); err == nil {
		var summaries []models.StationSummary
		if err := json.Unmarshal([]byte(cached), &summaries); err == nil {
			return summaries, nil
		}
	}

	var summaries []models.StationSummary
	err := s.app.DB().
		NewQuery(`SELECT s.id, s.name, s.latitude, s.longitude, s.stock, s.fuel_available,
				(SELECT COUNT(*) FROM queue_entries q
					WHERE q.station_id = s.id AND q.status IN ('waiting', 'called')) AS queue_count
			FROM stations s
			ORDER BY s.name`).
		WithContext(ctx).
		All(&summaries)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	if data, err := json.Marshal(summaries); err == nil {
		if err := s.redis.Set(ctx, stationCacheKey, data, s.cacheTTL).Err(); err != nil {
			slog.Warn("station cache write failed", "error", err)
		}
	}

	return summaries, nil
}

func (s *StationService) Get(ctx context.Context, id string) (*models.Station, error) {
	var station models.Station
	err := s.app.DB().
		NewQuery("SELECT * FROM stations WHERE id = {:id}").
		Bind(dbx.Params{"id": id}).
		WithContext(ctx).
		One(&station)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("station %s: %w", id, status.ErrNotFound)
		}
		return nil, fmt.Errorf("get station %s: %w", id, err)
	}
	return &station, nil
}

func (s *StationService) Create(ctx context.Context, in StationInput) (*models.Station, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("station name is required")
	}
	if in.Stock.IsNegative() {
		return nil, fmt.Errorf("stock must not be negative")
	}

	now := types.NowDateTime()
	station := &models.Station{
		ID:            uuid.NewString(),
		Name:          name,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		Stock:         in.Stock,
		FuelAvailable: in.Stock.IsPositive(),
		Created:       now,
		Updated:       now,
	}

	_, err := s.app.DB().
		Insert("stations", dbx.Params{
			"id":                     station.ID,
			"name":                   station.Name,
			"latitude":               station.Latitude,
			"longitude":              station.Longitude,
			"stock":                  station.Stock,
			"fuel_available":         station.FuelAvailable,
			"operator_username":      "",
			"operator_password_hash": "",
			"created":                station.Created,
			"updated":                station.Updated,
		}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("create station: %w", err)
	}

	s.invalidateCache(ctx)
	return station, nil
}

func (s *StationService) Update(ctx context.Context, id string, in StationInput) (*models.Station, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("station name is required")
	}

	res, err := s.app.DB().
		Update("stations", dbx.Params{
			"name":      name,
			"latitude":  in.Latitude,
			"longitude": in.Longitude,
			"updated":   types.NowDateTime(),
		}, dbx.HashExp{"id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("update station %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("station %s: %w", id, status.ErrNotFound)
	}

	s.invalidateCache(ctx)
	return s.Get(ctx, id)
}

// Restock sets a station's stock to the delivered level and recomputes
// fuel availability. This is the administrative refill path; serving
// vehicles never raises stock.
func (s *StationService) Restock(ctx context.Context, id string, stock decimal.Decimal) (*models.Station, error) {
	if stock.IsNegative() {
		return nil, fmt.Errorf("stock must not be negative")
	}

	res, err := s.app.DB().
		Update("stations", dbx.Params{
			"stock":          stock,
			"fuel_available": stock.IsPositive(),
			"updated":        types.NowDateTime(),
		}, dbx.HashExp{"id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("restock station %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("station %s: %w", id, status.ErrNotFound)
	}

	s.invalidateCache(ctx)
	return s.Get(ctx, id)
}

// SetCredentials assigns the operator login for a station. The password
// is stored as a bcrypt hash; an empty password keeps the current one.
func (s *StationService) SetCredentials(ctx context.Context, id, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("operator username is required")
	}

	params := dbx.Params{
		"operator_username": username,
		"updated":           types.NowDateTime(),
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash operator password: %w", err)
		}
		params["operator_password_hash"] = string(hash)
	}

	res, err := s.app.DB().
		Update("stations", params, dbx.HashExp{"id": id}).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("set credentials for station %s: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("station %s: %w", id, status.ErrNotFound)
	}

	return nil
}

// QueueStats reports per-station queue sizes and stock for monitoring
// and the admin overview.
func (s *StationService) QueueStats(ctx context.Context) ([]models.StationQueueStats, error) {
	var stats []models.StationQueueStats
	err := s.app.DB().
		NewQuery(`SELECT s.id AS station_id, s.name AS station_name, s.stock,
				(SELECT COUNT(*) FROM queue_entries q
					WHERE q.station_id = s.id AND q.status = 'waiting') AS waiting_count,
				(SELECT COUNT(*) FROM queue_entries q
					WHERE q.station_id = s.id AND q.status = 'called') AS called_count
			FROM stations s
			ORDER BY s.name`).
		WithContext(ctx).
		All(&stats)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return stats, nil
}

func (s *StationService) invalidateCache(ctx context.Context) {
	if err := s.redis.Del(ctx, stationCacheKey).Err(); err != nil {
		slog.Warn("station cache invalidation failed", "error", err)
	}
}
