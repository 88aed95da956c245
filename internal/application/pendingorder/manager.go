package pendingorder

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/print-order-api/internal/application/expiring"
	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/pkg/token"
)

// Kind labels pending-order records in logs and metrics.
const Kind = "pending_order"

// storedAttachment carries file content base64-encoded so the payload stays
// plain JSON text in every backend.
type storedAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
}

type storedOrder struct {
	OrderData   json.RawMessage    `json:"orderData"`
	Attachments []storedAttachment `json:"attachments"`
}

// Manager parks order submissions under a fresh token until they are confirmed.
type Manager struct {
	store *expiring.Store[storedOrder]
}

func NewManager(backend expiring.Backend, ttl time.Duration, opts ...expiring.Option) *Manager {
	return &Manager{store: expiring.New[storedOrder](Kind, backend, ttl, opts...)}
}

// TTL is how long a saved order stays redeemable.
func (m *Manager) TTL() time.Duration { return m.store.TTL() }

// Save stores the order and returns the token that redeems it. A storage
// failure is returned wrapped in domain.ErrStorage.
func (m *Manager) Save(ctx context.Context, orderData json.RawMessage, attachments []domain.Attachment) (string, error) {
	stored := storedOrder{
		OrderData:   orderData,
		Attachments: make([]storedAttachment, 0, len(attachments)),
	}
	for _, a := range attachments {
		stored.Attachments = append(stored.Attachments, storedAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	tok := token.New()
	if _, err := m.store.Put(ctx, tok, stored); err != nil {
		return "", err
	}
	return tok, nil
}

// Resolve returns the pending order for tok. Unknown, expired and already
// redeemed tokens all yield domain.ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, tok string) (*domain.PendingOrder, error) {
	if !token.Valid(tok) {
		return nil, fmt.Errorf("malformed token: %w", domain.ErrNotFound)
	}
	e, err := m.store.Get(ctx, tok)
	if err != nil {
		return nil, err
	}
	return toPendingOrder(e)
}

// Discard invalidates tok. Discarding twice is fine.
func (m *Manager) Discard(ctx context.Context, tok string) error {
	return m.store.Delete(ctx, tok)
}

// Redeem resolves and discards tok in one atomic step.
func (m *Manager) Redeem(ctx context.Context, tok string) (*domain.PendingOrder, error) {
	if !token.Valid(tok) {
		return nil, fmt.Errorf("malformed token: %w", domain.ErrNotFound)
	}
	e, err := m.store.Take(ctx, tok)
	if err != nil {
		return nil, err
	}
	return toPendingOrder(e)
}

func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.store.SweepExpired(ctx)
}

func toPendingOrder(e *expiring.Entry[storedOrder]) (*domain.PendingOrder, error) {
	po := &domain.PendingOrder{
		OrderData:   e.Value.OrderData,
		Attachments: make([]domain.Attachment, 0, len(e.Value.Attachments)),
		CreatedAt:   e.CreatedAt,
		ExpiresAt:   e.ExpiresAt,
	}
	for _, a := range e.Value.Attachments {
		content, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %q: %v: %w", a.Filename, err, domain.ErrStorage)
		}
		po.Attachments = append(po.Attachments, domain.Attachment{
			Filename:    a.Filename,
			Content:     content,
			ContentType: a.ContentType,
		})
	}
	return po, nil
}
