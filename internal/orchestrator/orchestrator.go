// Package orchestrator resolves listing searches from the cache or the live
// provider, sharing one provider call between concurrent identical misses.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/skillsync/skillsync/internal/cache"
	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/logger"
)

const defaultFetchTimeout = 20 * time.Second

// ErrProviderUnavailable is returned when the live fetch failed and no
// fallback entry could be served.
var ErrProviderUnavailable = errors.New("job provider unavailable")

// Provider fetches one page of listings.
type Provider interface {
	Search(ctx context.Context, params jobsearch.SearchParams) (*jobsearch.Batch, error)
}

type Options struct {
	// FetchTimeout bounds a shared live fetch regardless of its callers.
	FetchTimeout time.Duration
	// DefaultLocation replaces an empty search location.
	DefaultLocation string
}

type Orchestrator struct {
	cache    *cache.Cache
	provider Provider
	flights  singleflight.Group
	opts     Options
	logger   *zap.Logger
}

func New(c *cache.Cache, provider Provider, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.DefaultLocation == "" {
		opts.DefaultLocation = jobsearch.DefaultLocation
	}
	return &Orchestrator{
		cache:    c,
		provider: provider,
		opts:     opts,
		logger:   log,
	}
}

// Search returns listings for params. A fresh primary entry is served without
// a provider call. Otherwise one live fetch per key runs at a time and every
// concurrent caller for that key receives its result. If the fetch fails a
// fallback entry is served with tier fallback. The returned batch is owned by
// the caller.
func (o *Orchestrator) Search(ctx context.Context, params jobsearch.SearchParams) (*jobsearch.Batch, error) {
	params = params.Clean(o.opts.DefaultLocation)
	key := params.CacheKey()

	if batch, ok := o.cache.Get(ctx, key, cache.Primary); ok {
		o.logger.Debug("serving listings from cache", logger.CacheFields(key, string(cache.Primary))...)
		batch.FromCache = true
		return batch, nil
	}

	// The flight outlives any single caller; it is bounded by FetchTimeout.
	flightCtx := context.WithoutCancel(ctx)
	ch := o.flights.DoChan(key, func() (any, error) {
		return o.fetch(flightCtx, key, params)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			o.logger.Debug("joined in-flight fetch", logger.CacheFields(key, "")...)
		}
		return res.Val.(*jobsearch.Batch).Clone(), nil
	}
}

func (o *Orchestrator) fetch(ctx context.Context, key string, params jobsearch.SearchParams) (*jobsearch.Batch, error) {
	log := logger.WithFields(o.logger, logger.CacheFields(key, "")...)

	// A flight that finished just before this one may have filled the cache.
	if batch, ok := o.cache.Get(ctx, key, cache.Primary); ok {
		batch.FromCache = true
		return batch, nil
	}

	batch, err := o.live(ctx, params)
	if err == nil {
		batch.Key = key
		batch.Tier = jobsearch.TierLive
		batch.FromCache = false
		if werr := o.cache.Store(ctx, key, batch); werr != nil {
			log.Warn("writing listings to cache", zap.Error(werr))
		}
		log.Info("fetched live listings",
			zap.Int("count", batch.Len()),
			zap.Int("skipped", batch.Skipped),
		)
		return batch, nil
	}

	log.Warn("live fetch failed", zap.Error(err))

	if fallback, ok := o.cache.Get(ctx, key, cache.Fallback); ok {
		log.Info("serving fallback listings",
			zap.Int("count", fallback.Len()),
			zap.Time("fetched_at", fallback.FetchedAt),
		)
		fallback.Tier = jobsearch.TierFallback
		fallback.FromCache = true
		return fallback, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

func (o *Orchestrator) live(ctx context.Context, params jobsearch.SearchParams) (*jobsearch.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	batch, err := o.provider.Search(ctx, params)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, errors.New("provider returned no batch")
	}
	return batch, nil
}
