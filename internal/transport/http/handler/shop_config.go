package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/print-order-api/internal/application/shopconfig"
	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/transport/http/middleware"
)

// ShopConfigHandler serves storefront configuration documents.
type ShopConfigHandler struct {
	svc shopconfig.Service
}

func NewShopConfigHandler(svc shopconfig.Service) *ShopConfigHandler {
	return &ShopConfigHandler{svc: svc}
}

func (h *ShopConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "doc"))
	if err != nil {
		writeServiceError(w, err, "config not found", "config unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ConfigEnvelope{Success: true, Config: c.Config})
}

// AdminGet answers a missing document with config null instead of 404.
func (h *ShopConfigHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "doc"))
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusOK, ConfigEnvelope{Success: true, Config: json.RawMessage("null")})
		return
	}
	if err != nil {
		writeServiceError(w, err, "config not found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ConfigEnvelope{Success: true, Config: c.Config})
}

func (h *ShopConfigHandler) AdminPut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Config json.RawMessage `json:"config"`
	}
	if err := decodeJSON(r, &body); err != nil || len(body.Config) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}
	docID := chi.URLParam(r, "doc")
	if _, err := h.svc.Put(r.Context(), docID, body.Config); err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, "invalid_payload")
			return
		}
		writeServiceError(w, err, "config not found", err.Error())
		return
	}
	subject := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		subject = claims.Subject
	}
	slog.Info("shop config updated", "doc", docID, "by", subject)
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true})
}
