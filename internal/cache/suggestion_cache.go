package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/internal/domain"
)

const suggestionListKeyPrefix = "replenishment:suggestions"

// SuggestionListCache holds filtered suggestion listings until the next
// run or lifecycle change invalidates them
type SuggestionListCache interface {
	GetSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.Suggestion, bool, error)
	SetSuggestions(ctx context.Context, filter domain.SuggestionFilter, suggestions []domain.Suggestion) error
	InvalidateAll(ctx context.Context) error
}

type redisSuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSuggestionCache struct{}

func NewNoopSuggestionCache() SuggestionListCache {
	return &noopSuggestionCache{}
}

func (c *redisSuggestionCache) GetSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.Suggestion, bool, error) {
	payload, err := c.client.Get(ctx, buildSuggestionListKey(filter)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var suggestions []domain.Suggestion
	if err := json.Unmarshal(payload, &suggestions); err != nil {
		return nil, false, fmt.Errorf("decode suggestion list cache: %w", err)
	}

	return suggestions, true, nil
}

func (c *redisSuggestionCache) SetSuggestions(ctx context.Context, filter domain.SuggestionFilter, suggestions []domain.Suggestion) error {
	payload, err := json.Marshal(suggestions)
	if err != nil {
		return fmt.Errorf("encode suggestion list cache: %w", err)
	}

	if err := c.client.Set(ctx, buildSuggestionListKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSuggestionCache) InvalidateAll(ctx context.Context) error {
	return unlinkPrefix(ctx, c.client, suggestionListKeyPrefix)
}

func (n *noopSuggestionCache) GetSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.Suggestion, bool, error) {
	return nil, false, nil
}

func (n *noopSuggestionCache) SetSuggestions(ctx context.Context, filter domain.SuggestionFilter, suggestions []domain.Suggestion) error {
	return nil
}

func (n *noopSuggestionCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildSuggestionListKey(filter domain.SuggestionFilter) string {
	return fmt.Sprintf("%s:%s", suggestionListKeyPrefix, suggestionFilterHash(filter))
}

func suggestionFilterHash(filter domain.SuggestionFilter) string {
	parts := []string{}

	if len(filter.Statuses) > 0 {
		values := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			values[i] = string(s)
		}
		parts = append(parts, "status="+joinStrings(values))
	}
	if len(filter.Urgencies) > 0 {
		values := make([]string, len(filter.Urgencies))
		for i, u := range filter.Urgencies {
			values[i] = string(u)
		}
		parts = append(parts, "urgency="+joinStrings(values))
	}
	if filter.LocationID != "" {
		parts = append(parts, "location_id="+strings.TrimSpace(filter.LocationID))
	}
	if filter.ProductID != "" {
		parts = append(parts, "product_id="+strings.TrimSpace(filter.ProductID))
	}
	if filter.Type != "" {
		parts = append(parts, "type="+string(filter.Type))
	}

	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinStrings(values []string) string {
	c := append([]string(nil), values...)
	for i := range c {
		c[i] = strings.TrimSpace(strings.ToLower(c[i]))
	}
	sort.Strings(c)
	return strings.Join(c, ",")
}
