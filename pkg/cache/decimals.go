package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DecimalsCache stores mint decimals. Decimals never change once a mint is
// created, so entries have no TTL. Quotes must never be stored here.
type DecimalsCache interface {
	// Get returns ok=false on a miss
	Get(ctx context.Context, mint string) (uint8, bool, error)
	Set(ctx context.Context, mint string, decimals uint8) error
	Close() error
}

// MemoryCache keeps decimals for the lifetime of the process
type MemoryCache struct {
	entries sync.Map
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

var _ DecimalsCache = (*MemoryCache)(nil)

func (m *MemoryCache) Get(_ context.Context, mint string) (uint8, bool, error) {
	v, ok := m.entries.Load(mint)
	if !ok {
		return 0, false, nil
	}
	return v.(uint8), true, nil
}

func (m *MemoryCache) Set(_ context.Context, mint string, decimals uint8) error {
	m.entries.Store(mint, decimals)
	return nil
}

func (m *MemoryCache) Close() error { return nil }

// RedisCache shares decimals between server processes
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis at addr
func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

var _ DecimalsCache = (*RedisCache)(nil)

func decimalsKey(mint string) string {
	return fmt.Sprintf("mint_decimals:%s", mint)
}

// Ping checks that the redis server is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(ctx context.Context, mint string) (uint8, bool, error) {
	data, err := r.client.Get(ctx, decimalsKey(mint)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "failed to read mint decimals")
	}

	n, err := strconv.ParseUint(data, 10, 8)
	if err != nil {
		// treat a corrupt entry as a miss so it gets rewritten
		return 0, false, nil
	}
	return uint8(n), true, nil
}

func (r *RedisCache) Set(ctx context.Context, mint string, decimals uint8) error {
	if err := r.client.Set(ctx, decimalsKey(mint), strconv.Itoa(int(decimals)), 0).Err(); err != nil {
		return errors.Wrap(err, "failed to store mint decimals")
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// NoopCache disables caching
type NoopCache struct{}

var _ DecimalsCache = NoopCache{}

func (NoopCache) Get(context.Context, string) (uint8, bool, error) { return 0, false, nil }
func (NoopCache) Set(context.Context, string, uint8) error         { return nil }
func (NoopCache) Close() error                                     { return nil }

// New selects a cache driver: memory, redis or none
func New(driver, redisAddr, redisPassword string, redisDB int) (DecimalsCache, error) {
	switch driver {
	case "", "memory":
		return NewMemoryCache(), nil
	case "redis":
		return NewRedisCache(redisAddr, redisPassword, redisDB), nil
	case "none":
		return NoopCache{}, nil
	default:
		return nil, errors.Errorf("unknown cache driver %q", driver)
	}
}
