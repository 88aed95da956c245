package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrStorage marks a failure of the backing store (unreachable, write rejected, corrupt item).
	ErrStorage = errors.New("storage error")
	// ErrNotification marks a failed mail or SMS delivery.
	ErrNotification = errors.New("notification error")
)
