package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsync/skillsync/internal/jobsearch"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testBatch(key string) *jobsearch.Batch {
	return &jobsearch.Batch{
		Key:  key,
		Tier: jobsearch.TierLive,
		Items: []*jobsearch.Listing{
			{ID: "1", Title: "Go Developer"},
			{ID: "2", Title: "SRE"},
		},
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStore(0)
	store.now = clock.Now
	ctx := context.Background()

	batch := testBatch("k1")
	require.NoError(t, store.Put(ctx, "k1", batch, Primary, time.Hour))

	got, ok, err := store.Get(ctx, "k1", Primary)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, batch.IDs(), got.IDs())
	assert.Equal(t, "k1", got.Key)

	got.ExcludeIDs([]string{"1"})
	again, _, _ := store.Get(ctx, "k1", Primary)
	assert.Equal(t, 2, again.Len())

	_, ok, err = store.Get(ctx, "k1", Fallback)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreTierExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStore(4)
	store.now = clock.Now
	ctx := context.Background()

	c := New(store, TTLs{}, nil)
	require.NoError(t, c.Store(ctx, "k", testBatch("k")))

	clock.Advance(90 * time.Minute)

	_, ok := c.Get(ctx, "k", Primary)
	assert.False(t, ok, "primary must expire after one hour")

	fallback, ok := c.Get(ctx, "k", Fallback)
	require.True(t, ok, "fallback must outlive primary")
	assert.Equal(t, []string{"1", "2"}, fallback.IDs())

	clock.Advance(time.Hour)
	_, ok = c.Get(ctx, "k", Fallback)
	assert.False(t, ok)
}

func TestMemoryStoreExpiresExactlyAtTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStore(1)
	store.now = clock.Now
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", testBatch("k"), Primary, time.Minute))
	clock.Advance(time.Minute)

	_, ok, err := store.Get(ctx, "k", Primary)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorePutResetsExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStore(2)
	store.now = clock.Now
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", testBatch("k"), Primary, time.Hour))
	clock.Advance(50 * time.Minute)

	replacement := testBatch("k")
	replacement.Items = replacement.Items[:1]
	require.NoError(t, store.Put(ctx, "k", replacement, Primary, time.Hour))
	clock.Advance(50 * time.Minute)

	got, ok, err := store.Get(ctx, "k", Primary)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, got.Len())
}

func TestMemoryStorePutRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(1)
	ctx := context.Background()

	require.Error(t, store.Put(ctx, "k", nil, Primary, time.Hour))
	require.Error(t, store.Put(ctx, "k", testBatch("k"), Primary, 0))
	require.Error(t, store.Put(ctx, "k", testBatch("k"), Tier("warm"), time.Hour))
}

func TestMemoryStoreCorruption(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	now := clock.Now()

	tests := []struct {
		name  string
		entry *Entry
	}{
		{name: "nil batch", entry: &Entry{Key: "k", Tier: Primary, StoredAt: now, ExpiresAt: now.Add(time.Hour)}},
		{name: "key mismatch", entry: &Entry{Key: "other", Tier: Primary, Batch: testBatch("other"), StoredAt: now, ExpiresAt: now.Add(time.Hour)}},
		{name: "batch key mismatch", entry: &Entry{Key: "k", Tier: Primary, Batch: testBatch("other"), StoredAt: now, ExpiresAt: now.Add(time.Hour)}},
		{name: "tier mismatch", entry: &Entry{Key: "k", Tier: Fallback, Batch: testBatch("k"), StoredAt: now, ExpiresAt: now.Add(time.Hour)}},
		{name: "expiry before store", entry: &Entry{Key: "k", Tier: Primary, Batch: testBatch("k"), StoredAt: now, ExpiresAt: now.Add(-time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := NewMemoryStore(1)
			store.now = clock.Now
			store.shards[0].entries[entryKey{key: "k", tier: Primary}] = tt.entry

			_, ok, err := store.Get(context.Background(), "k", Primary)
			assert.False(t, ok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCacheCorruption))

			var cerr *CorruptionError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, "k", cerr.Key)
		})
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store := NewMemoryStore(8)
	store.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("k%d", i)
		require.NoError(t, store.Put(ctx, key, testBatch(key), Primary, time.Hour))
		require.NoError(t, store.Put(ctx, key, testBatch(key), Fallback, 2*time.Hour))
	}
	assert.Equal(t, 20, store.Len())

	assert.Equal(t, 0, store.Sweep(clock.Now()))
	assert.Equal(t, 10, store.Sweep(clock.Now().Add(time.Hour)))
	assert.Equal(t, 10, store.Len())
	assert.Equal(t, 10, store.Sweep(clock.Now().Add(3*time.Hour)))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(DefaultShards)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%8)
			for j := 0; j < 50; j++ {
				_ = store.Put(ctx, key, testBatch(key), Primary, time.Hour)
				if _, _, err := store.Get(ctx, key, Primary); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, store.Len())
}
