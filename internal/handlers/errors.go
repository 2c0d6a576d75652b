package handlers

import (
	"errors"
	"net/http"

	"github.com/sfall/freelance-office/internal/httpx"
	"github.com/sfall/freelance-office/internal/services"
)

// writeServiceError maps service-layer errors to JSON responses. All of
// these are expected conditions; anything unrecognized becomes a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *services.ValidationError
	var trErr *services.InvalidTransitionError
	var inErr *services.IneligibleStateError
	var dlErr *services.DeliveryError
	switch {
	case errors.As(err, &vErr):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", vErr.Violations)
	case errors.As(err, &trErr):
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", map[string]string{"from": trErr.From, "to": trErr.To})
	case errors.As(err, &inErr):
		httpx.JSONError(w, http.StatusConflict, "ineligible_state", map[string]string{"status": inErr.Status})
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrExpired):
		httpx.JSONError(w, http.StatusGone, "token_expired", nil)
	case errors.Is(err, services.ErrAlreadyUsed):
		httpx.JSONError(w, http.StatusConflict, "token_already_used", nil)
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", nil)
	case errors.As(err, &dlErr):
		httpx.JSONError(w, http.StatusBadGateway, "delivery_failed", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
