package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const runLockKey = "replenishment:run-lock"

// ErrLocked is returned when another holder owns the lock
var ErrLocked = errors.New("lock held by another run")

// ReleaseFunc gives a held lock back
type ReleaseFunc func(ctx context.Context) error

// RunLocker serializes calculation runs and lifecycle commands
type RunLocker interface {
	Acquire(ctx context.Context) (ReleaseFunc, error)
}

type redisRunLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// localRunLocker serializes runs within a single process
type localRunLocker struct {
	mu sync.Mutex
}

func newRedisRunLocker(client redis.UniversalClient, ttl time.Duration) *redisRunLocker {
	return &redisRunLocker{locker: redislock.New(client), ttl: ttl}
}

func NewLocalRunLocker() RunLocker {
	return &localRunLocker{}
}

// Acquire obtains the lock without waiting. The lease is extended in the
// background until the returned ReleaseFunc is called.
func (l *redisRunLocker) Acquire(ctx context.Context) (ReleaseFunc, error) {
	lock, err := l.locker.Obtain(ctx, runLockKey, l.ttl, &redislock.Options{
		RetryStrategy: redislock.NoRetry(),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("redis lock failed: %w", err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(lock, l.ttl, stop)
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("redis unlock failed: %w", err)
		}
		return nil
	}, nil
}

// lease is the part of a redislock.Lock that keepAlive extends
type lease interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

// keepAlive extends the lease every third of its ttl until stop is closed.
// It gives up after the first failed extension.
func keepAlive(l lease, ttl time.Duration, stop <-chan struct{}) {
	interval := ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := l.Refresh(ctx, ttl, nil)
			cancel()
			if err != nil {
				log.Warn().Err(err).Dur("ttl", ttl).Msg("run lock lease not extended, exclusivity may be lost")
				return
			}
		}
	}
}

func (l *localRunLocker) Acquire(ctx context.Context) (ReleaseFunc, error) {
	if !l.mu.TryLock() {
		return nil, ErrLocked
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}
