package http

import (
	"context"
	"net/http"
	"time"

	"github.com/print-order-api/internal/application/customer"
	"github.com/print-order-api/internal/application/order"
	"github.com/print-order-api/internal/application/shopconfig"
	"github.com/print-order-api/internal/application/sweep"
	"github.com/print-order-api/internal/application/verification"
	jwtinfra "github.com/print-order-api/internal/infrastructure/jwt"
)

// TokenVerifier checks admin bearer tokens.
type TokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

// Sweeper removes expired records on demand.
type Sweeper interface {
	SweepAll(ctx context.Context) (*sweep.Result, error)
}

// Observer records request metrics and serves them.
type Observer interface {
	RecordHTTPRequest(method, route string, status int, d time.Duration)
	Handler() http.Handler
}

// Deps holds the application services the router exposes.
type Deps struct {
	Orders        order.Service
	Verifications verification.Service
	Customers     customer.Service
	ShopConfig    shopconfig.Service
	Sweeper       Sweeper

	// AdminVerifier is nil when no public key is configured; admin routes
	// are then closed.
	AdminVerifier TokenVerifier
	Metrics       Observer
}
