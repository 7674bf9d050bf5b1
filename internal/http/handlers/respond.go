// Package handlers exposes the scheduling engine over HTTP. Handlers are
// thin: decode, call the engine, map domain errors onto status codes.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Status: "success", Message: message, Data: data})
}

// writeError maps the domain error taxonomy onto response codes: NotFound
// to 404, Conflict to 400, anything else to an opaque 500.
func writeError(w http.ResponseWriter, logger *logging.Logger, err error) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case apperr.IsNotFound(err):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(envelope{Status: "error", Message: err.Error()})
	case apperr.IsConflict(err):
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(envelope{Status: "error", Message: err.Error()})
	default:
		if logger != nil {
			logger.Error("internal error", "error", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(envelope{Status: "error", Message: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Conflict("invalid request body")
	}
	return nil
}
