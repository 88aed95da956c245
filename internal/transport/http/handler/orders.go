package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/print-order-api/internal/application/order"
)

const (
	msgOrderNotFound = "Bestellung nicht gefunden oder bereits abgelaufen. Der Link ist nur 24 Stunden gültig."
	msgOrderFailed   = "Fehler beim Verarbeiten der Bestellung"
	msgNoToken       = "Kein Token angegeben"
)

// OrderHandler handles order submission and confirmation endpoints.
type OrderHandler struct {
	svc            order.Service
	maxUploadBytes int64
}

func NewOrderHandler(svc order.Service, maxUploadBytes int64) *OrderHandler {
	return &OrderHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// RequestVerification parks a multipart order submission and mails the
// confirmation link.
func (h *OrderHandler) RequestVerification(w http.ResponseWriter, r *http.Request) {
	form, err := readOrderForm(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, formErrorStatus(err), err.Error())
		return
	}
	if err := h.svc.RequestConfirmation(r.Context(), form.Data, form.Attachments); err != nil {
		writeServiceError(w, err, msgOrderNotFound, "Fehler beim Senden der Verifizierungs-Mail")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Success: true,
		Message: "Bitte überprüfen Sie Ihr E-Mail-Postfach und bestätigen Sie Ihre Bestellung.",
	})
}

func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.Token) == "" {
		writeError(w, http.StatusBadRequest, msgNoToken)
		return
	}
	res, err := h.svc.Confirm(r.Context(), strings.TrimSpace(body.Token))
	if err != nil {
		writeServiceError(w, err, msgOrderNotFound, msgOrderFailed)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope("Bestellung erfolgreich bestätigt", res))
}

// SubmitVerified takes an order whose email was verified beforehand. The
// optional existingCustomerId field names the customer to update.
func (h *OrderHandler) SubmitVerified(w http.ResponseWriter, r *http.Request) {
	form, err := readOrderForm(w, r, h.maxUploadBytes)
	if err != nil {
		writeError(w, formErrorStatus(err), err.Error())
		return
	}
	res, err := h.svc.SubmitVerified(r.Context(), form.Data, form.Attachments, form.value("existingCustomerId"))
	if err != nil {
		writeServiceError(w, err, msgOrderNotFound, msgOrderFailed)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope("Bestellung erfolgreich abgeschickt", res))
}

func orderEnvelope(msg string, res *order.Result) OrderEnvelope {
	env := OrderEnvelope{Success: true, Message: msg, Persisted: res.Persisted}
	if res.JobID != "" {
		env.JobID = &res.JobID
	}
	if !res.Persisted {
		slog.Warn("order accepted with incomplete persistence", "job_id", res.JobID, "customer_id", res.CustomerID)
	}
	return env
}
