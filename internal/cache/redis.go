package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillsync/skillsync/internal/jobsearch"
)

const redisKeyPrefix = "skillsync:listings"

// redisClient is the subset of *redis.Client used by RedisStore.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore shares cached batches between processes. Redis expires keys on
// its own; expiry is still checked on read.
type RedisStore struct {
	client redisClient
	now    func() time.Time
}

func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

func redisKey(key string, tier Tier) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, tier, key)
}

func (s *RedisStore) Get(ctx context.Context, key string, tier Tier) (*jobsearch.Batch, bool, error) {
	data, err := s.client.Get(ctx, redisKey(key, tier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, corrupt(key, tier, "undecodable payload", err)
	}
	if err := e.validate(key, tier); err != nil {
		return nil, false, err
	}
	if e.expired(s.now()) {
		return nil, false, nil
	}

	return e.Batch, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, batch *jobsearch.Batch, tier Tier, ttl time.Duration) error {
	e, err := newEntry(key, batch, tier, ttl, s.now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(key, tier), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string, tier Tier) error {
	if err := s.client.Del(ctx, redisKey(key, tier)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Sweep is a no-op; Redis removes expired keys itself.
func (s *RedisStore) Sweep(time.Time) int {
	return 0
}
