package notice

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/print-order-api/internal/application/expiring"
	"github.com/print-order-api/internal/domain"
	"golang.org/x/crypto/blake2b"
)

const Kind = "verified_email_notice"

type storedNotice struct {
	Email          string          `json:"email"`
	ResumableState json.RawMessage `json:"resumableState,omitempty"`
	CustomerData   json.RawMessage `json:"customerData,omitempty"`
}

// Manager hands a completed email verification over to a client that polls by
// email address. Each notice can be consumed once.
type Manager struct {
	store *expiring.Store[storedNotice]
}

func NewManager(backend expiring.Backend, ttl time.Duration, opts ...expiring.Option) *Manager {
	return &Manager{store: expiring.New[storedNotice](Kind, backend, ttl, opts...)}
}

// Key derives the storage key for email. Addresses differing only in case or
// surrounding whitespace map to the same key.
func Key(email string) string {
	sum := blake2b.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// Publish records that email was verified. A second publish for the same
// address replaces the first and restarts its lifetime.
func (m *Manager) Publish(ctx context.Context, email string, resumableState, customerData json.RawMessage) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	_, err := m.store.Put(ctx, Key(email), storedNotice{
		Email:          strings.TrimSpace(email),
		ResumableState: domain.OptionalJSON(resumableState),
		CustomerData:   domain.OptionalJSON(customerData),
	})
	return err
}

// Consume returns and removes the notice for email. domain.ErrNotFound means
// nothing was published yet, or it was consumed or has expired; pollers keep polling.
func (m *Manager) Consume(ctx context.Context, email string) (*domain.VerifiedEmailNotice, error) {
	e, err := m.store.Take(ctx, Key(email))
	if err != nil {
		return nil, err
	}
	return &domain.VerifiedEmailNotice{
		Email:          e.Value.Email,
		ResumableState: domain.OptionalJSON(e.Value.ResumableState),
		CustomerData:   domain.OptionalJSON(e.Value.CustomerData),
		VerifiedAt:     e.CreatedAt,
		ExpiresAt:      e.ExpiresAt,
	}, nil
}

func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.store.SweepExpired(ctx)
}
