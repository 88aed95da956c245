package shopconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/print-order-api/internal/domain"
)

var docIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

type Service interface {
	Get(ctx context.Context, docID string) (*domain.ShopConfig, error)
	Put(ctx context.Context, docID string, config json.RawMessage) (*domain.ShopConfig, error)
}

type configStore interface {
	Get(ctx context.Context, docID string) (*domain.ShopConfig, error)
	Put(ctx context.Context, c *domain.ShopConfig) error
}

type service struct {
	repo         configStore
	fallbackPath string

	fallbackOnce sync.Once
	fallback     map[string]json.RawMessage
}

type ServiceDeps struct {
	ConfigRepo configStore
	// FallbackPath is a JSON file mapping document IDs to configs, served
	// when the store has no document or cannot be reached.
	FallbackPath string
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.ConfigRepo, fallbackPath: deps.FallbackPath}
}

func (s *service) Get(ctx context.Context, docID string) (*domain.ShopConfig, error) {
	if !docIDPattern.MatchString(docID) {
		return nil, fmt.Errorf("invalid config id: %w", domain.ErrBadRequest)
	}
	c, err := s.repo.Get(ctx, docID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("shop config store unavailable, using fallback", "doc", docID, "err", err)
	}
	if cfg, ok := s.loadFallback()[docID]; ok {
		return &domain.ShopConfig{DocID: docID, Config: cfg}, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("load shop config: %v: %w", err, domain.ErrStorage)
}

// Put replaces the document docID. config must be a JSON object.
func (s *service) Put(ctx context.Context, docID string, config json.RawMessage) (*domain.ShopConfig, error) {
	if !docIDPattern.MatchString(docID) {
		return nil, fmt.Errorf("invalid config id: %w", domain.ErrBadRequest)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(config, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("config must be a JSON object: %w", domain.ErrBadRequest)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, config); err != nil {
		return nil, fmt.Errorf("config must be a JSON object: %w", domain.ErrBadRequest)
	}
	c := &domain.ShopConfig{
		DocID:     docID,
		Config:    compact.Bytes(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("save shop config: %v: %w", err, domain.ErrStorage)
	}
	slog.Info("shop config updated", "doc", docID)
	return c, nil
}

func (s *service) loadFallback() map[string]json.RawMessage {
	s.fallbackOnce.Do(func() {
		if s.fallbackPath == "" {
			return
		}
		raw, err := os.ReadFile(s.fallbackPath)
		if err != nil {
			slog.Warn("could not read shop config fallback", "path", s.fallbackPath, "err", err)
			return
		}
		if err := json.Unmarshal(raw, &s.fallback); err != nil {
			slog.Warn("could not parse shop config fallback", "path", s.fallbackPath, "err", err)
		}
	})
	return s.fallback
}
