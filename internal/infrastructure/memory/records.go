package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/print-order-api/internal/domain"
)

// RecordStore keeps expiring records in a bounded in-process LRU. It serves
// single-instance deployments and local development; when the cache is full
// the least recently used record is evicted.
type RecordStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, domain.ExpiringRecord]
}

func NewRecordStore(size int) (*RecordStore, error) {
	cache, err := lru.New[string, domain.ExpiringRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &RecordStore{cache: cache}, nil
}

func (s *RecordStore) Put(_ context.Context, rec domain.ExpiringRecord) error {
	rec.Payload = append([]byte(nil), rec.Payload...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Add(rec.Key, rec)
	return nil
}

func (s *RecordStore) Get(_ context.Context, key string) (*domain.ExpiringRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *RecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(key)
	return nil
}

func (s *RecordStore) Take(_ context.Context, key string) (*domain.ExpiringRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.cache.Peek(key)
	if !ok {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	s.cache.Remove(key)
	return &rec, nil
}

func (s *RecordStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, key := range s.cache.Keys() {
		rec, ok := s.cache.Peek(key)
		if ok && rec.ExpiresAt.Before(now) {
			s.cache.Remove(key)
			n++
		}
	}
	return n, nil
}

// Len is the number of records currently held, expired ones included.
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
