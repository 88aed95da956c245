package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/print-order-api/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// sweepBatch bounds the number of keys watched by one sweep transaction.
const sweepBatch = 100

type storedRecord struct {
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RecordStore keeps expiring records as JSON strings under prefix+key. Keys
// carry a Redis expiry equal to the record lifetime, so Redis drops them on
// its own as well.
type RecordStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewRecordStore(rdb *goredis.Client, prefix string) *RecordStore {
	return &RecordStore{rdb: rdb, prefix: prefix}
}

func (s *RecordStore) Put(ctx context.Context, rec domain.ExpiringRecord) error {
	data, err := json.Marshal(storedRecord{Payload: rec.Payload, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	ttl := rec.ExpiresAt.Sub(rec.CreatedAt)
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, s.prefix+rec.Key, data, ttl).Err()
}

func (s *RecordStore) Get(ctx context.Context, key string) (*domain.ExpiringRecord, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		return nil, s.notFound(err)
	}
	return decode(key, data)
}

func (s *RecordStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// Take relies on GETDEL, which reads and removes the key in a single command.
func (s *RecordStore) Take(ctx context.Context, key string) (*domain.ExpiringRecord, error) {
	data, err := s.rdb.GetDel(ctx, s.prefix+key).Bytes()
	if err != nil {
		return nil, s.notFound(err)
	}
	return decode(key, data)
}

// DeleteExpired collects every key under the prefix first, then removes the
// expired ones in MULTI/EXEC batches. Deleting while SCAN is still iterating
// can make the cursor skip keys. Each batch is WATCHed so a key rewritten
// during the sweep is left alone.
func (s *RecordStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", sweepBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan %s: %w", s.prefix, err)
	}

	var deleted int
	for start := 0; start < len(keys); start += sweepBatch {
		end := min(start+sweepBatch, len(keys))
		n, err := s.deleteExpiredBatch(ctx, keys[start:end], now)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (s *RecordStore) deleteExpiredBatch(ctx context.Context, keys []string, now time.Time) (int, error) {
	var deleted int
	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		var expired []string
		for _, k := range keys {
			data, err := tx.Get(ctx, k).Bytes()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			rec, err := decode(strings.TrimPrefix(k, s.prefix), data)
			if err != nil {
				slog.Warn("removing undecodable record", "key", k, "err", err)
				expired = append(expired, k)
				continue
			}
			if rec.ExpiresAt.Before(now) {
				expired = append(expired, k)
			}
		}
		if len(expired) == 0 {
			return nil
		}
		var del *goredis.IntCmd
		_, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			del = pipe.Del(ctx, expired...)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = int(del.Val())
		return nil
	}, keys...)
	if errors.Is(err, goredis.TxFailedErr) {
		slog.Info("sweep batch changed concurrently, leaving it for the next run", "prefix", s.prefix)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sweep batch: %w", err)
	}
	return deleted, nil
}

func (s *RecordStore) notFound(err error) error {
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return err
}

func decode(key string, data []byte) (*domain.ExpiringRecord, error) {
	var sr storedRecord
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &domain.ExpiringRecord{
		Key:       key,
		Payload:   sr.Payload,
		CreatedAt: sr.CreatedAt,
		ExpiresAt: sr.ExpiresAt,
	}, nil
}
