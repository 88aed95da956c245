package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/print-order-api/internal/application/sweep"
)

type sweeper interface {
	SweepAll(ctx context.Context) (*sweep.Result, error)
}

type SweepEnvelope struct {
	Success bool          `json:"success"`
	Removed *sweep.Result `json:"removed"`
	Error   string        `json:"error,omitempty"`
}

// AdminHandler exposes maintenance operations.
type AdminHandler struct {
	sweeper sweeper
}

func NewAdminHandler(s sweeper) *AdminHandler { return &AdminHandler{sweeper: s} }

// Sweep removes expired records of every kind right away. Partial results
// are returned alongside a failure.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.SweepAll(r.Context())
	if err != nil {
		slog.Error("manual sweep failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, SweepEnvelope{Removed: res, Error: err.Error()})
		return
	}
	slog.Info("manual sweep done", "pending_orders", res.PendingOrders,
		"email_verifications", res.EmailVerifications, "verified_notices", res.VerifiedNotices)
	writeJSON(w, http.StatusOK, SweepEnvelope{Success: true, Removed: res})
}
