package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/print-order-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OrderEnvelope answers order submissions and confirmations. JobID is null
// when the job could not be stored; Persisted is false when any filing step
// failed.
type OrderEnvelope struct {
	Success   bool    `json:"success"`
	Message   string  `json:"message"`
	JobID     *string `json:"jobId"`
	Persisted bool    `json:"persisted"`
}

// ConfigEnvelope carries one shop configuration document.
type ConfigEnvelope struct {
	Success bool            `json:"success"`
	Config  json.RawMessage `json:"config"`
}

type AddressesEnvelope struct {
	Success   bool                     `json:"success"`
	Addresses []domain.ShipmentAddress `json:"addresses"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps a service error onto a status code. notFoundMsg and
// failMsg are the customer-facing texts for 404 and 5xx answers; 400 answers
// carry the validation detail.
func writeServiceError(w http.ResponseWriter, err error, notFoundMsg, failMsg string) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		slog.Info("request target not found", "err", err)
		writeError(w, http.StatusNotFound, notFoundMsg)
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, failMsg)
	}
}

// decodeJSON reads a JSON body into v. Unknown fields are ignored.
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
