package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	dashboardSummaryKeyPrefix = "replenishment:dashboard"
	dashboardSummaryKey       = dashboardSummaryKeyPrefix + ":latest"
)

// DashboardSummaryCache holds the summary of the latest run
type DashboardSummaryCache interface {
	GetSummary(ctx context.Context) (*domain.DashboardSummary, bool, error)
	SetSummary(ctx context.Context, summary *domain.DashboardSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDashboardCache struct{}

func NewNoopDashboardCache() DashboardSummaryCache {
	return &noopDashboardCache{}
}

func (c *redisDashboardCache) GetSummary(ctx context.Context) (*domain.DashboardSummary, bool, error) {
	payload, err := c.client.Get(ctx, dashboardSummaryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode dashboard summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisDashboardCache) SetSummary(ctx context.Context, summary *domain.DashboardSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode dashboard summary cache: %w", err)
	}

	if err := c.client.Set(ctx, dashboardSummaryKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisDashboardCache) InvalidateAll(ctx context.Context) error {
	return unlinkPrefix(ctx, c.client, dashboardSummaryKeyPrefix)
}

func (n *noopDashboardCache) GetSummary(ctx context.Context) (*domain.DashboardSummary, bool, error) {
	return nil, false, nil
}

func (n *noopDashboardCache) SetSummary(ctx context.Context, summary *domain.DashboardSummary) error {
	return nil
}

func (n *noopDashboardCache) InvalidateAll(ctx context.Context) error {
	return nil
}
