package expiring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/print-order-api/internal/domain"
)

// Backend persists expiring records. Get and Take return domain.ErrNotFound for
// unknown keys; Take must remove the key atomically with reading it. Backends
// do not interpret expiry on reads, the Store does.
type Backend interface {
	Put(ctx context.Context, rec domain.ExpiringRecord) error
	Get(ctx context.Context, key string) (*domain.ExpiringRecord, error)
	Delete(ctx context.Context, key string) error
	Take(ctx context.Context, key string) (*domain.ExpiringRecord, error)
	// DeleteExpired removes every record with ExpiresAt before now and returns how many it removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Observer receives lifecycle counts, labelled by the store's kind.
type Observer interface {
	RecordCreated(kind string)
	RecordRedeemed(kind string)
	RecordExpired(kind string, n int)
}

// Entry is a decoded record together with its lifetime.
type Entry[R any] struct {
	Value     R
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is a typed, self-cleaning view over a Backend. Values are stored as JSON.
type Store[R any] struct {
	kind     string
	backend  Backend
	ttl      time.Duration
	now      func() time.Time
	observer Observer
}

type options struct {
	now      func() time.Time
	observer Observer
}

type Option func(*options)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// New creates a store for records of one kind. Every record written through it
// expires ttl after creation.
func New[R any](kind string, backend Backend, ttl time.Duration, opts ...Option) *Store[R] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[R]{
		kind:     kind,
		backend:  backend,
		ttl:      ttl,
		now:      o.now,
		observer: o.observer,
	}
}

func (s *Store[R]) Kind() string       { return s.kind }
func (s *Store[R]) TTL() time.Duration { return s.ttl }

// Put stores value under key, overwriting any previous record.
func (s *Store[R]) Put(ctx context.Context, key string, value R) (*Entry[R], error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.kind, err)
	}
	now := s.now().UTC()
	rec := domain.ExpiringRecord{
		Key:       key,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("put %s: %v: %w", s.kind, err, domain.ErrStorage)
	}
	if s.observer != nil {
		s.observer.RecordCreated(s.kind)
	}
	return &Entry[R]{Value: value, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

// Get returns the live record under key. Unknown and expired keys both yield
// domain.ErrNotFound; an expired key is deleted before Get returns.
func (s *Store[R]) Get(ctx context.Context, key string) (*Entry[R], error) {
	rec, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	if rec.Expired(s.now()) {
		if err := s.backend.Delete(ctx, key); err != nil {
			slog.Warn("could not delete expired record", "kind", s.kind, "err", err)
		} else if s.observer != nil {
			s.observer.RecordExpired(s.kind, 1)
		}
		return nil, fmt.Errorf("%s expired: %w", s.kind, domain.ErrNotFound)
	}
	return s.decode(rec)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store[R]) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return s.wrap("delete", err)
	}
	return nil
}

// Take reads and removes key in one step, so only one caller can ever obtain
// a given record. Expired records are removed and reported as not found.
func (s *Store[R]) Take(ctx context.Context, key string) (*Entry[R], error) {
	rec, err := s.backend.Take(ctx, key)
	if err != nil {
		return nil, s.wrap("take", err)
	}
	if rec.Expired(s.now()) {
		if s.observer != nil {
			s.observer.RecordExpired(s.kind, 1)
		}
		return nil, fmt.Errorf("%s expired: %w", s.kind, domain.ErrNotFound)
	}
	if s.observer != nil {
		s.observer.RecordRedeemed(s.kind)
	}
	return s.decode(rec)
}

// SweepExpired deletes every record whose expiry lies strictly before now.
func (s *Store[R]) SweepExpired(ctx context.Context) (int, error) {
	n, err := s.backend.DeleteExpired(ctx, s.now())
	if s.observer != nil {
		s.observer.RecordExpired(s.kind, n)
	}
	if err != nil {
		return n, s.wrap("sweep", err)
	}
	if n > 0 {
		slog.Info("swept expired records", "kind", s.kind, "count", n)
	}
	return n, nil
}

func (s *Store[R]) decode(rec *domain.ExpiringRecord) (*Entry[R], error) {
	var v R
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", s.kind, err, domain.ErrStorage)
	}
	return &Entry[R]{Value: v, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *Store[R]) wrap(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", op, s.kind, domain.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %v: %w", op, s.kind, err, domain.ErrStorage)
}
