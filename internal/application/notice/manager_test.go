package notice

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/print-order-api/internal/application/expiring"
	"github.com/print-order-api/internal/domain"
	"github.com/print-order-api/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	backend, err := memory.NewRecordStore(100)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewManager(backend, 5*time.Minute, expiring.WithClock(clock.Now)), clock
}

func TestPublishConsume_ReadOnce(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "a@b.com", nil, json.RawMessage(`{"name":"A"}`)))

	n, err := m.Consume(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, n.ResumableState)
	assert.JSONEq(t, `{"name":"A"}`, string(n.CustomerData))
	assert.Equal(t, "a@b.com", n.Email)
	assert.Equal(t, clock.Now(), n.VerifiedAt)
	assert.Equal(t, clock.Now().Add(5*time.Minute), n.ExpiresAt)

	_, err = m.Consume(ctx, "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsume_NothingPublished(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Consume(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPublish_SecondPublishOverwrites(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "a@b.com", json.RawMessage(`{"v":1}`), nil))
	require.NoError(t, m.Publish(ctx, "a@b.com", json.RawMessage(`{"v":2}`), nil))

	n, err := m.Consume(ctx, "a@b.com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(n.ResumableState))

	_, err = m.Consume(ctx, "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsume_Expired(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "a@b.com", nil, nil))
	clock.t = clock.t.Add(5*time.Minute + time.Second)

	_, err := m.Consume(ctx, "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsume_RepublishAfterConsumeStartsOver(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "a@b.com", nil, nil))
	_, err := m.Consume(ctx, "a@b.com")
	require.NoError(t, err)

	require.NoError(t, m.Publish(ctx, "a@b.com", nil, json.RawMessage(`{"name":"B"}`)))
	n, err := m.Consume(ctx, "a@b.com")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"B"}`, string(n.CustomerData))
}

func TestConsume_ConcurrentPollers_OneWins(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	require.NoError(t, m.Publish(ctx, "a@b.com", nil, nil))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		hits int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Consume(ctx, "a@b.com"); err == nil {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, hits)
}

func TestKey_NormalizesEmail(t *testing.T) {
	assert.Equal(t, Key("a@b.com"), Key("  A@B.com "))
	assert.NotEqual(t, Key("a@b.com"), Key("c@b.com"))
	assert.Len(t, Key("a@b.com"), 64)
}

func TestConsume_CaseInsensitive(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, "Kunde@Example.com", nil, nil))
	_, err := m.Consume(ctx, "kunde@example.com")
	assert.NoError(t, err)
}

func TestPublish_RequiresEmail(t *testing.T) {
	m, _ := newManager(t)
	assert.ErrorIs(t, m.Publish(context.Background(), "", nil, nil), domain.ErrBadRequest)
}
