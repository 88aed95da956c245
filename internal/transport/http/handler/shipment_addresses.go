package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/print-order-api/internal/domain"
)

type addressLister interface {
	ListShipmentAddresses(ctx context.Context, customerID string) ([]domain.ShipmentAddress, error)
}

// ShipmentAddressHandler lists a customer's stored delivery addresses.
type ShipmentAddressHandler struct {
	svc addressLister
}

func NewShipmentAddressHandler(svc addressLister) *ShipmentAddressHandler {
	return &ShipmentAddressHandler{svc: svc}
}

func (h *ShipmentAddressHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(r.URL.Query().Get("customerId"))
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "Kunden-ID fehlt")
		return
	}
	addrs, err := h.svc.ListShipmentAddresses(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, err, "Kunde nicht gefunden", "Fehler beim Abrufen der Versandadressen")
		return
	}
	if addrs == nil {
		addrs = []domain.ShipmentAddress{}
	}
	writeJSON(w, http.StatusOK, AddressesEnvelope{Success: true, Addresses: addrs})
}
