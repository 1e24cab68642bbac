package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"fetcharr/internal/queue"
	"fetcharr/internal/utils/logging"
)

// writeJSON encodes v with the right content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.E("Failed to encode JSON response: %v", err)
	}
}

// writeError maps coordinator errors onto HTTP statuses with an
// {"error": ...} body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		valErr   *queue.ValidationError
		quotaErr *queue.QuotaExceededError
		stateErr *queue.InvalidStateError
	)
	switch {
	case errors.As(err, &valErr), errors.As(err, &quotaErr), errors.As(err, &stateErr):
		status = http.StatusBadRequest
	case errors.Is(err, queue.ErrNotFound):
		status = http.StatusNotFound
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
