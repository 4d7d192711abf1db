package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"fuelqueue-system/internal/status"
)

// apiError maps domain errors to HTTP responses. Storage failures stay
// opaque to the caller; the detail is logged server-side only.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrRecentlyServed),
		errors.Is(err, status.ErrAlreadyQueued),
		errors.Is(err, status.ErrNoFuel),
		errors.Is(err, status.ErrInsufficientStock),
		errors.Is(err, status.ErrEntryNotCallable),
		errors.Is(err, status.ErrInvalidVolume):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrPromotionBusy):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)
	case errors.Is(err, status.ErrInvalidCredentials),
		errors.Is(err, status.ErrSessionExpired):
		return apis.NewUnauthorizedError(err.Error(), nil)
	default:
		slog.Error("request failed", "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Internal error", nil)
	}
}
