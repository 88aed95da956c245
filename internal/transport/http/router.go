package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/print-order-api/internal/config"
	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/transport/http/handler"
	appmiddleware "github.com/print-order-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// housekeeping of the rate limiter.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(appmiddleware.Metrics(deps.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	adminAuth := appmiddleware.Deny
	if deps.AdminVerifier != nil {
		adminAuth = appmiddleware.Auth(deps.AdminVerifier)
	}

	// 5 requests/second, burst of 10, on endpoints that send mail or accept uploads.
	submitRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	orderH := handler.NewOrderHandler(deps.Orders, cfg.MaxUploadBytes)
	verifyH := handler.NewEmailVerificationHandler(deps.Verifications)
	addressH := handler.NewShipmentAddressHandler(deps.Customers)
	configH := handler.NewShopConfigHandler(deps.ShopConfig)
	adminH := handler.NewAdminHandler(deps.Sweeper)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes ────────────────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(submitRL.Limit).Post("/orders/verification", orderH.RequestVerification)
		r.Post("/orders/confirm", orderH.Confirm)
		r.With(submitRL.Limit).Post("/orders/verified", orderH.SubmitVerified)

		r.With(submitRL.Limit).Post("/email-verifications", verifyH.Request)
		r.Post("/email-verifications/check", verifyH.Check)
		r.Post("/email-verifications/poll", verifyH.Poll)

		r.Get("/shipment-addresses", addressH.List)
		r.Get("/config/{doc}", configH.Get)

		// ── Admin routes ─────────────────────────────────────────────────────
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth)
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

			r.Get("/config/{doc}", configH.AdminGet)
			r.Put("/config/{doc}", configH.AdminPut)
			r.Post("/sweep", adminH.Sweep)
		})
	})

	return r
}
