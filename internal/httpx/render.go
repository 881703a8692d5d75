package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"journal/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError translates service errors into HTTP outcomes.
// hideDenied collapses PermissionDenied into 404 on read paths so a
// hidden entry is indistinguishable from a missing one.
func writeDomainError(w http.ResponseWriter, err error, hideDenied bool) {
	var vErr *models.ValidationError
	var rlErr *models.RateLimitError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid input",
			"field":   vErr.Field,
			"message": vErr.Message,
		})
	case errors.As(err, &rlErr):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rlErr.RetryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, rlErr.Error())
	case errors.Is(err, models.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrPermissionDenied):
		if hideDenied {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, models.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
