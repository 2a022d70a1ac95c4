// Package cache stores listing batches for a search key in two TTL tiers.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillsync/skillsync/internal/jobsearch"
)

// Tier is a TTL class of cached batches.
type Tier string

const (
	Primary  Tier = "primary"
	Fallback Tier = "fallback"
)

// ErrCacheCorruption marks entries that fail consistency checks.
var ErrCacheCorruption = errors.New("cache entry corrupted")

// Store keeps batches by cache key and tier. Expired entries are reported as
// absent. Put replaces any previous entry for the same key and tier.
type Store interface {
	Get(ctx context.Context, key string, tier Tier) (*jobsearch.Batch, bool, error)
	Put(ctx context.Context, key string, batch *jobsearch.Batch, tier Tier, ttl time.Duration) error
	Delete(ctx context.Context, key string, tier Tier) error
	// Sweep drops entries expired at now and returns how many were removed.
	Sweep(now time.Time) int
}

// Entry is the stored form of a batch.
type Entry struct {
	Key       string           `json:"key"`
	Tier      Tier             `json:"tier"`
	Batch     *jobsearch.Batch `json:"batch"`
	StoredAt  time.Time        `json:"stored_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func newEntry(key string, batch *jobsearch.Batch, tier Tier, ttl time.Duration, now time.Time) (*Entry, error) {
	if batch == nil {
		return nil, errors.New("batch is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	if tier != Primary && tier != Fallback {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}

	stored := batch.Clone()
	stored.FromCache = false
	if stored.Key == "" {
		stored.Key = key
	}

	return &Entry{
		Key:       key,
		Tier:      tier,
		Batch:     stored,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// validate checks the entry belongs to key and tier and is well formed.
func (e *Entry) validate(key string, tier Tier) error {
	switch {
	case e == nil:
		return corrupt(key, tier, "empty entry", nil)
	case e.Batch == nil:
		return corrupt(key, tier, "nil batch", nil)
	case e.Key != key:
		return corrupt(key, tier, fmt.Sprintf("entry key %q", e.Key), nil)
	case e.Batch.Key != "" && e.Batch.Key != key:
		return corrupt(key, tier, fmt.Sprintf("batch key %q", e.Batch.Key), nil)
	case e.Tier != tier:
		return corrupt(key, tier, fmt.Sprintf("entry tier %q", e.Tier), nil)
	case !e.ExpiresAt.After(e.StoredAt):
		return corrupt(key, tier, "expiry not after store time", nil)
	}
	return nil
}

// CorruptionError describes an entry that was dropped because it failed
// validation. It matches ErrCacheCorruption with errors.Is.
type CorruptionError struct {
	Key    string
	Tier   Tier
	Reason string
	Err    error
}

func corrupt(key string, tier Tier, reason string, err error) error {
	return &CorruptionError{Key: key, Tier: tier, Reason: reason, Err: err}
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("cache entry %s/%s corrupted: %s", e.Tier, e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrCacheCorruption
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}
