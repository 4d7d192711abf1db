package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"fuelqueue-system/services"
)

// AdminHandler manages stations: creation, updates, restocking and
// operator credentials. Routes are bound behind superuser auth in main.
type AdminHandler struct {
	app            *pocketbase.PocketBase
	stationService *services.StationService
}

func NewAdminHandler(app *pocketbase.PocketBase, stationService *services.StationService) *AdminHandler {
	return &AdminHandler{
		app:            app,
		stationService: stationService,
	}
}

// CreateStation - register a new station
func (h *AdminHandler) CreateStation(e *core.RequestEvent) error {
	var req services.StationInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	station, err := h.stationService.Create(e.Request.Context(), req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, station)
}

// UpdateStation - change name or coordinates
func (h *AdminHandler) UpdateStation(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	var req services.StationInput
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	station, err := h.stationService.Update(e.Request.Context(), id, req)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, station)
}

// Restock - set the delivered stock level
func (h *AdminHandler) Restock(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	var req struct {
		Stock decimal.Decimal `json:"stock"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	station, err := h.stationService.Restock(e.Request.Context(), id, req.Stock)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, station)
}

// SetCredentials - assign the operator login for a station
func (h *AdminHandler) SetCredentials(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.stationService.SetCredentials(e.Request.Context(), id, req.Username, req.Password); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Credentials updated"})
}

// Overview - per-station queue sizes and stock levels
func (h *AdminHandler) Overview(e *core.RequestEvent) error {
	stats, err := h.stationService.QueueStats(e.Request.Context())
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"stations": stats})
}
