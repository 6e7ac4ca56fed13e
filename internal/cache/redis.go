package cache

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/internal/config"
)

const (
	defaultCacheTTL   = time.Minute
	defaultRunLockTTL = 5 * time.Minute
	pingTimeout       = 5 * time.Second
	unlinkBatchSize   = 100
)

// Backend is the redis connection shared by the dashboard cache, the
// suggestion list cache and the run lock. A nil Backend stands for a disabled
// cache and hands out noop caches and a process-local lock.
type Backend struct {
	client   *redis.Client
	cacheTTL time.Duration
	lockTTL  time.Duration
}

// Open connects to redis when caching is enabled and returns nil otherwise
func Open(cfg config.CacheConfig) (*Backend, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	cacheTTL, lockTTL := resolveTTLs(cfg)
	return &Backend{client: client, cacheTTL: cacheTTL, lockTTL: lockTTL}, nil
}

func (b *Backend) DashboardCache() DashboardSummaryCache {
	if b == nil {
		return NewNoopDashboardCache()
	}
	return &redisDashboardCache{client: b.client, ttl: b.cacheTTL}
}

func (b *Backend) SuggestionCache() SuggestionListCache {
	if b == nil {
		return NewNoopSuggestionCache()
	}
	return &redisSuggestionCache{client: b.client, ttl: b.cacheTTL}
}

// RunLocker serializes refreshes and lifecycle commands across every process
// sharing this redis
func (b *Backend) RunLocker() RunLocker {
	if b == nil {
		return NewLocalRunLocker()
	}
	return newRedisRunLocker(b.client, b.lockTTL)
}

func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	return b.client.Close()
}

// resolveTTLs returns the expiry of cached reads and the lease of the run lock.
// Cached reads are dropped by every run anyway; the lease is kept alive while held.
func resolveTTLs(cfg config.CacheConfig) (cacheTTL, lockTTL time.Duration) {
	cacheTTL = time.Duration(cfg.DashboardTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	lockTTL = time.Duration(cfg.RunLockTTLSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = defaultRunLockTTL
	}
	return cacheTTL, lockTTL
}

func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     net.JoinHostPort(cmp.Or(cfg.RedisHost, "127.0.0.1"), cmp.Or(cfg.RedisPort, "6379")),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}
	opts.ClientName = "replenish"
	return opts, nil
}

// unlinkPrefix drops every key under prefix, unlinkBatchSize keys per call
func unlinkPrefix(ctx context.Context, client redis.UniversalClient, prefix string) error {
	batch := make([]string, 0, unlinkBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink %s*: %w", prefix, err)
		}
		batch = batch[:0]
		return nil
	}

	iter := client.Scan(ctx, 0, prefix+"*", unlinkBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s*: %w", prefix, err)
	}
	return flush()
}
