package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"fuelqueue-system/security"
	"fuelqueue-system/services"
)

// OperatorHandler is the station operator surface. Every operation runs
// against the station baked into the resolved session, never against a
// station id taken from the request.
type OperatorHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
	sessions     *security.SessionManager
}

func NewOperatorHandler(app *pocketbase.PocketBase, queueService *services.QueueService, sessions *security.SessionManager) *OperatorHandler {
	return &OperatorHandler{
		app:          app,
		queueService: queueService,
		sessions:     sessions,
	}
}

func (h *OperatorHandler) requireSession(e *core.RequestEvent) (*security.OperatorSession, error) {
	token := strings.TrimPrefix(e.Request.Header.Get("Authorization"), "Bearer ")
	session, err := h.sessions.Resolve(e.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		return nil, apiError(err)
	}
	return session, nil
}

// Login - exchange operator credentials for a session token
func (h *OperatorHandler) Login(e *core.RequestEvent) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	session, err := h.sessions.Login(e.Request.Context(), req.Username, req.Password)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"token":        session.Token,
		"station_id":   session.StationID,
		"station_name": session.StationName,
	})
}

// Logout - invalidate the session token
func (h *OperatorHandler) Logout(e *core.RequestEvent) error {
	token := strings.TrimPrefix(e.Request.Header.Get("Authorization"), "Bearer ")
	if err := h.sessions.Logout(e.Request.Context(), strings.TrimSpace(token)); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "Logged out"})
}

// Promote - call the next waiting vehicles into the physical queue
func (h *OperatorHandler) Promote(e *core.RequestEvent) error {
	session, err := h.requireSession(e)
	if err != nil {
		return err
	}

	var req struct {
		Count int `json:"count"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	result, err := h.queueService.Promote(e.Request.Context(), session, req.Count)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, result)
}

// Serve - mark a called vehicle as served with the dispensed volume
func (h *OperatorHandler) Serve(e *core.RequestEvent) error {
	session, err := h.requireSession(e)
	if err != nil {
		return err
	}

	var req struct {
		EntryID string          `json:"entry_id"`
		Volume  decimal.Decimal `json:"volume"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EntryID == "" {
		return apis.NewBadRequestError("entry_id is required", nil)
	}

	if err := h.queueService.MarkServed(e.Request.Context(), session, req.EntryID, req.Volume); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Entry marked as served"})
}

// Cancel - cancel a called vehicle that can no longer be served
func (h *OperatorHandler) Cancel(e *core.RequestEvent) error {
	session, err := h.requireSession(e)
	if err != nil {
		return err
	}

	var req struct {
		EntryID string `json:"entry_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.EntryID == "" {
		return apis.NewBadRequestError("entry_id is required", nil)
	}

	if err := h.queueService.Cancel(e.Request.Context(), session, req.EntryID); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Entry cancelled"})
}

// Queues - the operator's physical and virtual queue views
func (h *OperatorHandler) Queues(e *core.RequestEvent) error {
	session, err := h.requireSession(e)
	if err != nil {
		return err
	}

	snapshot, err := h.queueService.QueuesOf(e.Request.Context(), session)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, snapshot)
}
