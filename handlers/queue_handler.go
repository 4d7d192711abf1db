package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"fuelqueue-system/services"
)

// QueueHandler is the client-facing surface: register into a queue,
// check status, browse stations. Clients poll these endpoints; there is
// no push channel to them.
type QueueHandler struct {
	app            *pocketbase.PocketBase
	queueService   *services.QueueService
	stationService *services.StationService
}

func NewQueueHandler(app *pocketbase.PocketBase, queueService *services.QueueService, stationService *services.StationService) *QueueHandler {
	return &QueueHandler{
		app:            app,
		queueService:   queueService,
		stationService: stationService,
	}
}

// Register - join a station's virtual queue
func (h *QueueHandler) Register(e *core.RequestEvent) error {
	var req struct {
		VehicleID string `json:"vehicle_id"`
		Phone     string `json:"phone"`
		StationID string `json:"station_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VehicleID == "" || req.Phone == "" || req.StationID == "" {
		return apis.NewBadRequestError("vehicle_id, phone and station_id are required", nil)
	}

	entry, err := h.queueService.Register(e.Request.Context(), req.VehicleID, req.Phone, req.StationID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":       "Successfully joined queue",
		"entry_id":      entry.ID,
		"vehicle_id":    entry.VehicleID,
		"status":        entry.Status,
		"registered_at": entry.RegisteredAt,
	})
}

// Status - current position and state of a vehicle's active entry
func (h *QueueHandler) Status(e *core.RequestEvent) error {
	vehicleID := e.Request.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		return apis.NewBadRequestError("vehicle_id is required", nil)
	}

	vehicleStatus, err := h.queueService.StatusOf(e.Request.Context(), vehicleID)
	if err != nil {
		return apiError(err)
	}

	if vehicleStatus == nil {
		return e.JSON(http.StatusOK, map[string]any{
			"active":  false,
			"message": "You are not in any active queue.",
		})
	}

	return e.JSON(http.StatusOK, map[string]any{
		"active":       true,
		"station_name": vehicleStatus.StationName,
		"status":       vehicleStatus.Status,
		"position":     vehicleStatus.Position,
		"stock":        vehicleStatus.Stock,
	})
}

// ListStations - stations with live queue counts, for the map view
func (h *QueueHandler) ListStations(e *core.RequestEvent) error {
	stations, err := h.stationService.ListWithQueueCounts(e.Request.Context())
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"stations": stations})
}
