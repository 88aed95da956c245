package emailverification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/print-order-api/internal/application/expiring"
	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/pkg/token"
)

const Kind = "email_verification"

type storedVerification struct {
	Email          string          `json:"email"`
	ResumableState json.RawMessage `json:"resumableState,omitempty"`
}

// Manager tracks address-ownership checks: an email, optionally with the form
// state the client wants back once the address is confirmed.
type Manager struct {
	store *expiring.Store[storedVerification]
}

func NewManager(backend expiring.Backend, ttl time.Duration, opts ...expiring.Option) *Manager {
	return &Manager{store: expiring.New[storedVerification](Kind, backend, ttl, opts...)}
}

func (m *Manager) TTL() time.Duration { return m.store.TTL() }

// Save starts a verification for email and returns its token. resumableState
// may be nil.
func (m *Manager) Save(ctx context.Context, email string, resumableState json.RawMessage) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	tok := token.New()
	_, err := m.store.Put(ctx, tok, storedVerification{Email: email, ResumableState: domain.OptionalJSON(resumableState)})
	if err != nil {
		return "", err
	}
	return tok, nil
}

// Resolve returns the verification for tok, or domain.ErrNotFound. ResumableState
// is nil when none was saved.
func (m *Manager) Resolve(ctx context.Context, tok string) (*domain.EmailVerification, error) {
	if !token.Valid(tok) {
		return nil, fmt.Errorf("malformed token: %w", domain.ErrNotFound)
	}
	e, err := m.store.Get(ctx, tok)
	if err != nil {
		return nil, err
	}
	return toVerification(e), nil
}

func (m *Manager) Discard(ctx context.Context, tok string) error {
	return m.store.Delete(ctx, tok)
}

// Redeem resolves and discards tok atomically.
func (m *Manager) Redeem(ctx context.Context, tok string) (*domain.EmailVerification, error) {
	if !token.Valid(tok) {
		return nil, fmt.Errorf("malformed token: %w", domain.ErrNotFound)
	}
	e, err := m.store.Take(ctx, tok)
	if err != nil {
		return nil, err
	}
	return toVerification(e), nil
}

func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.store.SweepExpired(ctx)
}

func toVerification(e *expiring.Entry[storedVerification]) *domain.EmailVerification {
	return &domain.EmailVerification{
		Email:          e.Value.Email,
		ResumableState: domain.OptionalJSON(e.Value.ResumableState),
		CreatedAt:      e.CreatedAt,
		ExpiresAt:      e.ExpiresAt,
	}
}
