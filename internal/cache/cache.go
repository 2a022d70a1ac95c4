package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/logger"
)

const (
	DefaultPrimaryTTL  = time.Hour
	DefaultFallbackTTL = 2 * time.Hour
)

// TTLs holds the lifetime of each tier.
type TTLs struct {
	Primary  time.Duration
	Fallback time.Duration
}

// Cache applies the tier TTLs on top of a Store and hides store faults from
// callers: corrupted entries are removed and read as absent.
type Cache struct {
	store  Store
	ttls   TTLs
	logger *zap.Logger
}

// New builds a Cache. Zero TTLs take defaults; a fallback TTL shorter than the
// primary one is raised to match it.
func New(store Store, ttls TTLs, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	if ttls.Primary <= 0 {
		ttls.Primary = DefaultPrimaryTTL
	}
	if ttls.Fallback <= 0 {
		ttls.Fallback = DefaultFallbackTTL
	}
	if ttls.Fallback < ttls.Primary {
		log.Warn("fallback ttl is shorter than primary ttl, raising it",
			zap.Duration("primary_ttl", ttls.Primary),
			zap.Duration("fallback_ttl", ttls.Fallback),
		)
		ttls.Fallback = ttls.Primary
	}

	return &Cache{store: store, ttls: ttls, logger: log}
}

func (c *Cache) TTLs() TTLs {
	return c.ttls
}

// Get returns the batch for key in tier. Missing, expired, corrupted or
// unreadable entries all read as absent.
func (c *Cache) Get(ctx context.Context, key string, tier Tier) (*jobsearch.Batch, bool) {
	batch, ok, err := c.store.Get(ctx, key, tier)
	if err == nil {
		return batch, ok
	}

	log := logger.WithFields(c.logger, logger.CacheFields(key, string(tier))...)
	if errors.Is(err, ErrCacheCorruption) {
		log.Warn("dropping corrupted cache entry", zap.Error(err))
		if derr := c.store.Delete(ctx, key, tier); derr != nil {
			log.Warn("deleting corrupted cache entry", zap.Error(derr))
		}
		return nil, false
	}

	log.Warn("cache read failed", zap.Error(err))
	return nil, false
}

// Store writes batch as both primary and fallback entries.
func (c *Cache) Store(ctx context.Context, key string, batch *jobsearch.Batch) error {
	if err := c.store.Put(ctx, key, batch, Primary, c.ttls.Primary); err != nil {
		return err
	}
	return c.store.Put(ctx, key, batch, Fallback, c.ttls.Fallback)
}

// Sweep removes expired entries from the underlying store.
func (c *Cache) Sweep(now time.Time) int {
	return c.store.Sweep(now)
}
