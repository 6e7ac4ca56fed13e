package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bsm/redislock"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{})
	if err != nil {
		t.Fatalf("redisOptions() error = %v", err)
	}
	if opts.Addr != "127.0.0.1:6379" || opts.ClientName != "replenish" {
		t.Errorf("default options = %+v", opts)
	}

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@cache:6380/2"})
	if err != nil {
		t.Fatalf("redisOptions() error = %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "secret" || opts.ClientName != "replenish" {
		t.Errorf("parsed options = %+v", opts)
	}

	if _, err := redisOptions(config.CacheConfig{RedisURL: "ftp://nope"}); err == nil {
		t.Error("expected error for invalid redis url")
	}
}

func TestResolveTTLs(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.CacheConfig
		wantCache time.Duration
		wantLock  time.Duration
	}{
		{"defaults", config.CacheConfig{}, defaultCacheTTL, defaultRunLockTTL},
		{"configured", config.CacheConfig{DashboardTTLSeconds: 30, RunLockTTLSeconds: 900}, 30 * time.Second, 15 * time.Minute},
		{"lock independent of cache", config.CacheConfig{DashboardTTLSeconds: 10}, 10 * time.Second, defaultRunLockTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cacheTTL, lockTTL := resolveTTLs(tt.cfg)
			if cacheTTL != tt.wantCache || lockTTL != tt.wantLock {
				t.Errorf("resolveTTLs() = %v, %v; want %v, %v", cacheTTL, lockTTL, tt.wantCache, tt.wantLock)
			}
		})
	}
}

type countingLease struct {
	refreshes atomic.Int32
	failAfter int32
}

func (l *countingLease) Refresh(context.Context, time.Duration, *redislock.Options) error {
	n := l.refreshes.Add(1)
	if l.failAfter > 0 && n >= l.failAfter {
		return redislock.ErrNotObtained
	}
	return nil
}

func TestKeepAliveExtendsLeaseUntilStopped(t *testing.T) {
	l := &countingLease{}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(l, 30*time.Millisecond, stop)
	}()

	time.Sleep(120 * time.Millisecond)
	close(stop)
	<-done

	got := l.refreshes.Load()
	if got < 2 {
		t.Fatalf("lease extended %d times, want it kept alive while held", got)
	}
	time.Sleep(40 * time.Millisecond)
	if after := l.refreshes.Load(); after != got {
		t.Errorf("lease extended after release: %d -> %d", got, after)
	}
}

func TestKeepAliveStopsOnFailedExtension(t *testing.T) {
	l := &countingLease{failAfter: 1}
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(l, 30*time.Millisecond, make(chan struct{}))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept running after the lease was lost")
	}
	if got := l.refreshes.Load(); got != 1 {
		t.Errorf("refresh attempts = %d, want 1", got)
	}
}

func TestSuggestionListKeyIsStable(t *testing.T) {
	a := domain.SuggestionFilter{
		Statuses:   []domain.SuggestionStatus{domain.StatusSnoozed, domain.StatusActive},
		Urgencies:  []domain.Urgency{domain.UrgencyCritical},
		LocationID: "store-1",
	}
	b := domain.SuggestionFilter{
		Statuses:   []domain.SuggestionStatus{domain.StatusActive, domain.StatusSnoozed},
		Urgencies:  []domain.Urgency{domain.UrgencyCritical},
		LocationID: "store-1",
	}
	c := b
	c.Type = domain.SuggestionTransfer

	if buildSuggestionListKey(a) != buildSuggestionListKey(b) {
		t.Error("status order changed the cache key")
	}
	if buildSuggestionListKey(b) == buildSuggestionListKey(c) {
		t.Error("type filter not part of the cache key")
	}
	if got := buildSuggestionListKey(domain.SuggestionFilter{}); got != suggestionListKeyPrefix+":default" {
		t.Errorf("empty filter key = %s", got)
	}
	if !strings.HasPrefix(buildSuggestionListKey(a), suggestionListKeyPrefix+":") {
		t.Error("key outside invalidation prefix")
	}
}

func TestDisabledCachesAreNoop(t *testing.T) {
	ctx := context.Background()

	backend, err := Open(config.CacheConfig{})
	if err != nil || backend != nil {
		t.Fatalf("Open() with cache disabled = %v, %v; want nil backend", backend, err)
	}

	dash := backend.DashboardCache()
	if err := dash.SetSummary(ctx, &domain.DashboardSummary{ActiveCount: 1}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := dash.GetSummary(ctx); ok || err != nil {
		t.Errorf("noop dashboard cache hit = %v, %v", ok, err)
	}

	list := backend.SuggestionCache()
	if _, ok, err := list.GetSuggestions(ctx, domain.SuggestionFilter{}); ok || err != nil {
		t.Errorf("noop suggestion cache hit = %v, %v", ok, err)
	}
	if err := backend.Close(); err != nil {
		t.Errorf("Close() on disabled backend error = %v", err)
	}
}

func TestLocalRunLocker(t *testing.T) {
	ctx := context.Background()
	var backend *Backend
	locker := backend.RunLocker()

	release, err := locker.Acquire(ctx)
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if _, err := locker.Acquire(ctx); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire() error = %v, want ErrLocked", err)
	}

	if err := release(ctx); err != nil {
		t.Fatal(err)
	}
	// releasing twice must not unlock a later holder
	if err := release(ctx); err != nil {
		t.Fatal(err)
	}

	release2, err := locker.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	if _, err := locker.Acquire(ctx); !errors.Is(err, ErrLocked) {
		t.Fatalf("double release unlocked the new holder: %v", err)
	}
	release2(ctx)
}
