package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/skillsync/skillsync/internal/jobsearch"
)

func TestNewRaisesShortFallbackTTL(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	c := New(NewMemoryStore(1), TTLs{Primary: 3 * time.Hour, Fallback: time.Hour}, zap.New(core))

	assert.Equal(t, 3*time.Hour, c.TTLs().Primary)
	assert.Equal(t, 3*time.Hour, c.TTLs().Fallback)
	assert.Equal(t, 1, logs.FilterMessage("fallback ttl is shorter than primary ttl, raising it").Len())
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c := New(NewMemoryStore(1), TTLs{}, nil)
	assert.Equal(t, DefaultPrimaryTTL, c.TTLs().Primary)
	assert.Equal(t, DefaultFallbackTTL, c.TTLs().Fallback)
}

func TestCacheDropsCorruptedEntries(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	store := NewMemoryStore(1)
	now := time.Now()
	store.shards[0].entries[entryKey{key: "k", tier: Fallback}] = &Entry{
		Key: "k", Tier: Fallback, StoredAt: now, ExpiresAt: now.Add(time.Hour),
	}

	c := New(store, TTLs{}, zap.New(core))

	_, ok := c.Get(context.Background(), "k", Fallback)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, logs.FilterMessage("dropping corrupted cache entry").Len())

	require.NoError(t, c.Store(context.Background(), "k", testBatch("k")))
	got, ok := c.Get(context.Background(), "k", Fallback)
	require.True(t, ok)
	assert.Equal(t, 2, got.Len())
}

type failingStore struct {
	Store
	err error
}

func (f *failingStore) Get(context.Context, string, Tier) (*jobsearch.Batch, bool, error) {
	return nil, false, f.err
}

func TestCacheReadFailureIsAbsent(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	c := New(&failingStore{Store: NewMemoryStore(1), err: errors.New("connection refused")}, TTLs{}, zap.New(core))

	_, ok := c.Get(context.Background(), "k", Primary)
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("cache read failed").Len())
}
