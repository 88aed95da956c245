package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/print-order-api/internal/application/verification"
)

const (
	msgVerificationNotFound = "E-Mail-Verifizierung nicht gefunden oder bereits abgelaufen. Der Link ist nur 24 Stunden gültig."
	msgNoEmail              = "Keine E-Mail-Adresse angegeben"
)

type CheckEnvelope struct {
	Success bool `json:"success"`
	*verification.CheckResult
}

type PollEnvelope struct {
	Success bool `json:"success"`
	*verification.PollResult
}

// EmailVerificationHandler handles the verify-before-order flow.
type EmailVerificationHandler struct {
	svc verification.Service
}

func NewEmailVerificationHandler(svc verification.Service) *EmailVerificationHandler {
	return &EmailVerificationHandler{svc: svc}
}

func (h *EmailVerificationHandler) Request(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email      string          `json:"email"`
		OrderState json.RawMessage `json:"orderState"`
	}
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.Email) == "" {
		writeError(w, http.StatusBadRequest, msgNoEmail)
		return
	}
	if err := h.svc.Request(r.Context(), strings.TrimSpace(body.Email), body.OrderState); err != nil {
		writeServiceError(w, err, msgVerificationNotFound, "Fehler beim Senden der Verifizierungs-Mail")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Success: true,
		Message: "Bitte überprüfen Sie Ihr E-Mail-Postfach und verifizieren Sie Ihre E-Mail-Adresse.",
	})
}

func (h *EmailVerificationHandler) Check(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.Token) == "" {
		writeError(w, http.StatusBadRequest, msgNoToken)
		return
	}
	res, err := h.svc.Check(r.Context(), strings.TrimSpace(body.Token))
	if err != nil {
		writeServiceError(w, err, msgVerificationNotFound, "Fehler bei der Verifizierung")
		return
	}
	writeJSON(w, http.StatusOK, CheckEnvelope{Success: true, CheckResult: res})
}

func (h *EmailVerificationHandler) Poll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.Email) == "" {
		writeError(w, http.StatusBadRequest, msgNoEmail)
		return
	}
	res, err := h.svc.Poll(r.Context(), strings.TrimSpace(body.Email))
	if err != nil {
		writeServiceError(w, err, msgVerificationNotFound, "Fehler beim Polling")
		return
	}
	writeJSON(w, http.StatusOK, PollEnvelope{Success: true, PollResult: res})
}
