package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/skillsync/skillsync/internal/jobsearch"
)

const DefaultShards = 32

type entryKey struct {
	key  string
	tier Tier
}

type shard struct {
	mu      sync.RWMutex
	entries map[entryKey]*Entry
}

// MemoryStore is an in-process Store. Keys are spread over shards with their
// own locks so unrelated keys do not contend.
type MemoryStore struct {
	shards []*shard
	now    func() time.Time
}

func NewMemoryStore(shards int) *MemoryStore {
	if shards <= 0 {
		shards = DefaultShards
	}
	s := &MemoryStore{
		shards: make([]*shard, shards),
		now:    time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[entryKey]*Entry)}
	}
	return s
}

// WithClock replaces the time source used for expiry checks.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) Get(_ context.Context, key string, tier Tier) (*jobsearch.Batch, bool, error) {
	sh := s.shardFor(key)

	sh.mu.RLock()
	e, ok := sh.entries[entryKey{key: key, tier: tier}]
	sh.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if err := e.validate(key, tier); err != nil {
		return nil, false, err
	}
	if e.expired(s.now()) {
		return nil, false, nil
	}

	return e.Batch.Clone(), true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, batch *jobsearch.Batch, tier Tier, ttl time.Duration) error {
	e, err := newEntry(key, batch, tier, ttl, s.now())
	if err != nil {
		return err
	}

	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[entryKey{key: key, tier: tier}] = e
	sh.mu.Unlock()

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string, tier Tier) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, entryKey{key: key, tier: tier})
	sh.mu.Unlock()
	return nil
}

func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e == nil || e.expired(now) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
