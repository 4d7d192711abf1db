package services

import (
	"context"
	"database/sql"
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

	"fuelqueue-system/config"
	"fuelqueue-system/internal/status"
	"fuelqueue-system/models"
	"fuelqueue-system/monitoring"
	"fuelqueue-system/security"
)

const (
	promotionLockAttempts   = 5
	promotionLockRetryDelay = 100 * time.Millisecond
)

// QueueService is the queue ledger: the ordered record of entries per
// station and the only place status transitions happen. Entries move
// waiting -> called (promotion) and called -> served|cancelled; they are
// never reopened and never deleted.
type QueueService struct {
	app      core.App
	redis    *redis.Client
	notifier *NotifyService
	gate     *EligibilityService
	stock    *StockService
	monitor  *monitoring.Monitor
	cfg      *config.Config
}

func NewQueueService(
	app core.App,
	redisClient *redis.Client,
	notifier *NotifyService,
	gate *EligibilityService,
	stock *StockService,
	monitor *monitoring.Monitor,
	cfg *config.Config,
) *QueueService {
	return &QueueService{
		app:      app,
		redis:    redisClient,
		notifier: notifier,
		gate:     gate,
		stock:    stock,
		monitor:  monitor,
		cfg:      cfg,
	}
}

// NormalizeVehicleID case-normalizes a plate or frame number.
func NormalizeVehicleID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// PlanPromotion computes how many waiting entries a promotion may call
// given the capacity bound, and the reason when the answer is none.
func PlanPromotion(capacity, calledCount, requested int) (int, string) {
	freeSlots := capacity - calledCount
	actual := min(freeSlots, requested)
	if actual > 0 {
		return actual, ""
	}
	if freeSlots <= 0 {
		return 0, models.ReasonQueueFull
	}
	return 0, models.ReasonNothingRequested
}

// Register passes the eligibility gate, upserts the vehicle and appends
// a waiting entry, all in one write transaction. The one-active-entry
// rule is enforced by the partial unique index, so a concurrent
// duplicate surfaces as ErrAlreadyQueued from the insert itself.
func (s *QueueService) Register(ctx context.Context, vehicleID, phone, stationID string) (*models.QueueEntry, error) {
	vehicleID = NormalizeVehicleID(vehicleID)
	phone = strings.TrimSpace(phone)
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle id is required")
	}
	if phone == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	var station struct {
		FuelAvailable bool `db:"fuel_available"`
	}
	err := s.app.DB().
		NewQuery("SELECT fuel_available FROM stations WHERE id = {:id}").
		Bind(dbx.Params{"id": stationID}).
		WithContext(ctx).
		One(&station)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("station %s: %w", stationID, status.ErrNotFound)
		}
		return nil, fmt.Errorf("load station %s: %w", stationID, err)
	}
	if !station.FuelAvailable {
		return nil, status.ErrNoFuel
	}

	now := types.NowDateTime()
	entry := &models.QueueEntry{
		ID:           uuid.NewString(),
		StationID:    stationID,
		VehicleID:    vehicleID,
		Status:       models.StatusWaiting,
		RegisteredAt: now,
	}

	err = s.app.RunInTransaction(func(txApp core.App) error {
		// The cooldown check shares the write transaction with the insert,
		// so a serve for the same vehicle cannot commit in between.
		if err := s.gate.CanRegisterTx(ctx, txApp, vehicleID, time.Now()); err != nil {
			return err
		}

		_, err := txApp.DB().
			NewQuery(`INSERT INTO vehicles (id, phone, created, updated)
				VALUES ({:id}, {:phone}, {:now}, {:now})
				ON CONFLICT (id) DO UPDATE SET phone = excluded.phone, updated = excluded.updated`).
			Bind(dbx.Params{"id": vehicleID, "phone": phone, "now": now}).
			WithContext(ctx).
			Execute()
		if err != nil {
			return fmt.Errorf("upsert vehicle %s: %w", vehicleID, err)
		}

		_, err = txApp.DB().
			Insert("queue_entries", dbx.Params{
				"id":            entry.ID,
				"station_id":    entry.StationID,
				"vehicle_id":    entry.VehicleID,
				"status":        entry.Status,
				"registered_at": entry.RegisteredAt,
			}).
			WithContext(ctx).
			Execute()
		return TranslateInsertError(err)
	})
	if err != nil {
		if errors.Is(err, status.ErrRecentlyServed) || errors.Is(err, status.ErrAlreadyQueued) {
			s.track("register", stationID, "rejected")
		} else {
			s.track("register", stationID, "error")
		}
		return nil, err
	}

	s.track("register", stationID, "success")
	slog.Info("vehicle registered", "vehicle", vehicleID, "station", stationID)
	return entry, nil
}

// Promote pulls up to requested waiting entries into the physical queue,
// bounded by free capacity. The count-select-update sequence runs in one
// write transaction, and a per-station Redis lock serializes concurrent
// promotion triggers (manual call plus auto-refill), so the called count
// can never exceed capacity.
func (s *QueueService) Promote(ctx context.Context, session *security.OperatorSession, requested int) (*models.PromotionResult, error) {
	release, err := s.acquirePromotionLock(ctx, session.StationID)
	if err != nil {
		s.track("promote", session.StationID, "busy")
		return nil, err
	}
	defer release()

	now := types.NowDateTime()
	result := &models.PromotionResult{}

	err = s.app.RunInTransaction(func(txApp core.App) error {
		var calledCount int
		err := txApp.DB().
			NewQuery(`SELECT COUNT(*) FROM queue_entries
				WHERE station_id = {:station} AND status = {:status}`).
			Bind(dbx.Params{"station": session.StationID, "status": models.StatusCalled}).
			WithContext(ctx).
			Row(&calledCount)
		if err != nil {
			return fmt.Errorf("count called entries: %w", err)
		}

		actual, reason := PlanPromotion(s.cfg.PhysicalQueueCapacity, calledCount, requested)
		if actual <= 0 {
			result.Reason = reason
			return nil
		}

		var next []models.PromotedEntry
		err = txApp.DB().
			NewQuery(`SELECT q.id, q.vehicle_id, v.phone, q.registered_at
				FROM queue_entries q
				JOIN vehicles v ON v.id = q.vehicle_id
				WHERE q.station_id = {:station} AND q.status = {:status}
				ORDER BY q.registered_at, q.rowid
				LIMIT {:limit}`).
			Bind(dbx.Params{"station": session.StationID, "status": models.StatusWaiting, "limit": actual}).
			WithContext(ctx).
			All(&next)
		if err != nil {
			return fmt.Errorf("select waiting entries: %w", err)
		}
		if len(next) == 0 {
			return nil
		}

		ids := make([]any, len(next))
		for i, p := range next {
			ids[i] = p.EntryID
		}

		res, err := txApp.DB().
			Update("queue_entries", dbx.Params{
				"status":    models.StatusCalled,
				"called_at": now,
			}, dbx.And(
				dbx.In("id", ids...),
				dbx.HashExp{"status": models.StatusWaiting},
			)).
			WithContext(ctx).
			Execute()
		if err != nil {
			return fmt.Errorf("promote entries: %w", err)
		}
		if affected, _ := res.RowsAffected(); int(affected) != len(next) {
			return fmt.Errorf("promotion updated %d of %d entries", affected, len(next))
		}

		result.Promoted = next
		return nil
	})
	if err != nil {
		s.track("promote", session.StationID, "error")
		return nil, err
	}

	// Notifications are fire-and-forget: the physical queue state is the
	// source of truth, a failed message never reverts the promotion.
	for _, p := range result.Promoted {
		sent := s.notifier.Notify(ctx, p.Phone, session.StationName)
		if sent {
			result.Notified++
		}
		if s.monitor != nil {
			s.monitor.TrackNotification(sent)
		}
	}

	s.track("promote", session.StationID, "success")
	slog.Info("promotion completed",
		"station", session.StationID,
		"requested", requested,
		"promoted", len(result.Promoted),
		"notified", result.Notified,
		"reason", result.Reason)
	return result, nil
}

// MarkServed transitions a called entry to served, appends the service
// record and decrements the station stock, all in one transaction. If
// the decrement would drive stock negative the whole operation fails and
// the entry stays called.
func (s *QueueService) MarkServed(ctx context.Context, session *security.OperatorSession, entryID string, volume decimal.Decimal) error {
	if !volume.IsPositive() {
		return status.ErrInvalidVolume
	}

	err := s.app.RunInTransaction(func(txApp core.App) error {
		entry, err := s.loadEntryTx(ctx, txApp, entryID, session.StationID)
		if err != nil {
			return err
		}

		if err := s.transitionCalledTx(ctx, txApp, entryID, models.StatusServed); err != nil {
			return err
		}

		_, err = txApp.DB().
			Insert("service_records", dbx.Params{
				"id":         uuid.NewString(),
				"vehicle_id": entry.VehicleID,
				"station_id": entry.StationID,
				"volume":     volume,
				"served_at":  types.NowDateTime(),
			}).
			WithContext(ctx).
			Execute()
		if err != nil {
			return fmt.Errorf("append service record: %w", err)
		}

		return s.stock.DecrementTx(txApp, entry.StationID, volume)
	})
	if err != nil {
		s.track("serve", session.StationID, "error")
		return err
	}

	s.track("serve", session.StationID, "success")
	slog.Info("entry served", "entry", entryID, "station", session.StationID, "volume", volume)
	s.autoRefill(ctx, session)
	return nil
}

// Cancel transitions a called entry to cancelled, with no stock or
// history effect. Used when the station ran dry before the vehicle could
// be served.
func (s *QueueService) Cancel(ctx context.Context, session *security.OperatorSession, entryID string) error {
	err := s.app.RunInTransaction(func(txApp core.App) error {
		if _, err := s.loadEntryTx(ctx, txApp, entryID, session.StationID); err != nil {
			return err
		}
		return s.transitionCalledTx(ctx, txApp, entryID, models.StatusCancelled)
	})
	if err != nil {
		s.track("cancel", session.StationID, "error")
		return err
	}

	s.track("cancel", session.StationID, "success")
	slog.Info("entry cancelled", "entry", entryID, "station", session.StationID)
	s.autoRefill(ctx, session)
	return nil
}

// StatusOf reports the vehicle's unique active entry, or nil without
// error when there is none. Position counts entries at the same station
// that registered earlier, with insertion order breaking timestamp ties.
func (s *QueueService) StatusOf(ctx context.Context, vehicleID string) (*models.VehicleStatus, error) {
	vehicleID = NormalizeVehicleID(vehicleID)
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle id is required")
	}

	var row struct {
		StationID    string          `db:"station_id"`
		Status       string          `db:"status"`
		RegisteredAt types.DateTime  `db:"registered_at"`
		Seq          int64           `db:"seq"`
		StationName  string          `db:"station_name"`
		Stock        decimal.Decimal `db:"stock"`
	}
	err := s.app.DB().
		NewQuery(`SELECT q.station_id, q.status, q.registered_at, q.rowid AS seq,
				s.name AS station_name, s.stock
			FROM queue_entries q
			JOIN stations s ON s.id = q.station_id
			WHERE q.vehicle_id = {:vehicle} AND q.status IN ('waiting', 'called')
			LIMIT 1`).
		Bind(dbx.Params{"vehicle": vehicleID}).
		WithContext(ctx).
		One(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load active entry for %s: %w", vehicleID, err)
	}

	var position int
	err = s.app.DB().
		NewQuery(`SELECT COUNT(*) FROM queue_entries
			WHERE station_id = {:station} AND status IN ('waiting', 'called')
				AND (registered_at < {:ts}
					OR (registered_at = {:ts} AND rowid < {:seq}))`).
		Bind(dbx.Params{
			"station": row.StationID,
			"ts":      row.RegisteredAt.String(),
			"seq":     row.Seq,
		}).
		WithContext(ctx).
		Row(&position)
	if err != nil {
		return nil, fmt.Errorf("count queue position for %s: %w", vehicleID, err)
	}

	return &models.VehicleStatus{
		StationName: row.StationName,
		Status:      row.Status,
		Position:    position,
		Stock:       row.Stock,
	}, nil
}

// QueuesOf returns the station's physical (called) and virtual (waiting)
// queues, both oldest first. Reads go to the committed ledger, so an
// operator acting on this view sees every finished promotion.
func (s *QueueService) QueuesOf(ctx context.Context, session *security.OperatorSession) (*models.QueueSnapshot, error) {
	called, err := s.listQueue(ctx, session.StationID, models.StatusCalled)
	if err != nil {
		return nil, err
	}
	waiting, err := s.listQueue(ctx, session.StationID, models.StatusWaiting)
	if err != nil {
		return nil, err
	}
	return &models.QueueSnapshot{Called: called, Waiting: waiting}, nil
}

func (s *QueueService) listQueue(ctx context.Context, stationID, entryStatus string) ([]models.QueueEntry, error) {
	entries := []models.QueueEntry{}
	err := s.app.DB().
		NewQuery(`SELECT id, station_id, vehicle_id, status, registered_at, called_at, rowid AS seq
			FROM queue_entries
			WHERE station_id = {:station} AND status = {:status}
			ORDER BY registered_at, rowid`).
		Bind(dbx.Params{"station": stationID, "status": entryStatus}).
		WithContext(ctx).
		All(&entries)
	if err != nil {
		return nil, fmt.Errorf("list %s queue for station %s: %w", entryStatus, stationID, err)
	}
	return entries, nil
}

type entryRow struct {
	ID        string `db:"id"`
	StationID string `db:"station_id"`
	VehicleID string `db:"vehicle_id"`
	Status    string `db:"status"`
}

// loadEntryTx fetches an entry and scopes it to the operator's station:
// entries of other stations are reported as not found, not as forbidden.
func (s *QueueService) loadEntryTx(ctx context.Context, txApp core.App, entryID, stationID string) (*entryRow, error) {
	var entry entryRow
	err := txApp.DB().
		NewQuery("SELECT id, station_id, vehicle_id, status FROM queue_entries WHERE id = {:id}").
		Bind(dbx.Params{"id": entryID}).
		WithContext(ctx).
		One(&entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry %s: %w", entryID, status.ErrNotFound)
		}
		return nil, fmt.Errorf("load entry %s: %w", entryID, err)
	}
	if entry.StationID != stationID {
		return nil, fmt.Errorf("entry %s: %w", entryID, status.ErrNotFound)
	}
	return &entry, nil
}

// transitionCalledTx flips a called entry to a terminal status. The
// status guard in the WHERE clause makes the transition conditional, so
// a concurrent serve or cancel of the same entry loses cleanly.
func (s *QueueService) transitionCalledTx(ctx context.Context, txApp core.App, entryID, to string) error {
	res, err := txApp.DB().
		Update("queue_entries", dbx.Params{"status": to}, dbx.And(
			dbx.HashExp{"id": entryID},
			dbx.HashExp{"status": models.StatusCalled},
		)).
		WithContext(ctx).
		Execute()
	if err != nil {
		return fmt.Errorf("transition entry %s to %s: %w", entryID, to, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return status.ErrEntryNotCallable
	}
	return nil
}

func (s *QueueService) acquirePromotionLock(ctx context.Context, stationID string) (func(), error) {
	key := "lock:promotion:" + stationID

	for attempt := 0; attempt < promotionLockAttempts; attempt++ {
		ok, err := s.redis.SetNX(ctx, key, "1", s.cfg.PromotionLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire promotion lock for station %s: %w", stationID, err)
		}
		if ok {
			return func() {
				if err := s.redis.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
					slog.Warn("promotion lock release failed", "station", stationID, "error", err)
				}
			}, nil
		}
		time.Sleep(promotionLockRetryDelay)
	}

	return nil, status.ErrPromotionBusy
}

func (s *QueueService) autoRefill(ctx context.Context, session *security.OperatorSession) {
	if !s.cfg.AutoRefill {
		return
	}
	if _, err := s.Promote(ctx, session, 1); err != nil {
		slog.Warn("auto refill promotion failed", "station", session.StationID, "error", err)
	}
}

func (s *QueueService) track(operation, stationID, result string) {
	if s.monitor != nil {
		s.monitor.TrackQueueOperation(operation, stationID, result)
	}
}
