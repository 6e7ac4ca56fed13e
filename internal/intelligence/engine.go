package intelligence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/replenish/internal/domain"
)

// RunInput is everything one calculation run reads
type RunInput struct {
	Now      time.Time
	Settings domain.IntelligenceSettings
	Snapshot domain.Snapshot
	// Previous is the suggestion set returned by the last run, with lifecycle commands applied
	Previous []domain.Suggestion
}

// Notification flags a newly created suggestion matching the notification settings
type Notification struct {
	SuggestionID string         `json:"suggestion_id"`
	ProductID    string         `json:"product_id"`
	LocationID   string         `json:"location_id"`
	Urgency      domain.Urgency `json:"urgency"`
	Message      string         `json:"message"`
}

// RunStats counts what happened during a run
type RunStats struct {
	Forecasts      int `json:"forecasts"`
	PairsEvaluated int `json:"pairs_evaluated"`
	Suppressed     int `json:"suppressed"`
	Created        int `json:"created"`
	CarriedForward int `json:"carried_forward"`
	Reactivated    int `json:"reactivated"`
	Retired        int `json:"retired"`
}

// RunResult is the complete output of a run. Nothing is published before it is built.
type RunResult struct {
	RunAt         time.Time               `json:"run_at"`
	Suggestions   []domain.Suggestion     `json:"suggestions"`
	Retired       []domain.Suggestion     `json:"retired"`
	Forecasts     []domain.SalesForecast  `json:"forecasts"`
	Summary       domain.DashboardSummary `json:"summary"`
	Notifications []Notification          `json:"notifications"`
	Stats         RunStats                `json:"stats"`
}

// Engine runs the replenishment calculation over a snapshot
type Engine struct {
	workers int
	newID   IDGenerator
	logger  zerolog.Logger
}

type Option func(*Engine)

// WithWorkers bounds the number of pairs evaluated concurrently
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithIDGenerator replaces the suggestion id allocator
func WithIDGenerator(fn IDGenerator) Option {
	return func(e *Engine) { e.newID = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates every pair of the snapshot, reconciles the result with the
// previous suggestion set, ranks it and aggregates the dashboard. A cancelled
// context or invalid input returns an error and no result.
func (e *Engine) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	start := time.Now()

	gen, err := NewGenerator(in.Snapshot, in.Settings, e.workers)
	if err != nil {
		return nil, err
	}

	generation, err := gen.Generate(ctx, in.Now)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := NewLifecycleManager(e.newID).Reconcile(in.Previous, generation.Evaluations, in.Now)
	RankSuggestions(rec.Suggestions)

	result := &RunResult{
		RunAt:       in.Now,
		Suggestions: rec.Suggestions,
		Retired:     rec.Retired,
		Forecasts:   generation.Forecasts,
		Summary:     NewDashboardAggregator(in.Settings.RecentActivityDays).Aggregate(rec.Suggestions, in.Snapshot, in.Now),
		Stats: RunStats{
			Forecasts:      len(generation.Forecasts),
			PairsEvaluated: len(generation.Evaluations),
			Created:        len(rec.Created),
			CarriedForward: rec.CarriedForward,
			Reactivated:    rec.Reactivated,
			Retired:        len(rec.Retired),
		},
	}
	for _, ev := range generation.Evaluations {
		if !ev.Warranted() {
			result.Stats.Suppressed++
		}
	}
	result.Notifications = notifications(rec, in.Settings.Notifications)

	e.logger.Info().
		Int("forecasts", result.Stats.Forecasts).
		Int("evaluated", result.Stats.PairsEvaluated).
		Int("suppressed", result.Stats.Suppressed).
		Int("created", result.Stats.Created).
		Int("carried_forward", result.Stats.CarriedForward).
		Int("retired", result.Stats.Retired).
		Dur("elapsed", time.Since(start)).
		Msg("replenishment run completed")

	return result, nil
}

func notifications(rec Reconciliation, settings domain.NotificationSettings) []Notification {
	created := make(map[string]struct{}, len(rec.Created))
	for _, id := range rec.Created {
		created[id] = struct{}{}
	}

	var out []Notification
	for _, s := range rec.Suggestions {
		if _, ok := created[s.ID]; !ok {
			continue
		}
		switch {
		case s.Urgency == domain.UrgencyCritical && settings.NotifyOnCritical,
			s.Urgency == domain.UrgencyWarning && settings.NotifyOnWarning:
		default:
			continue
		}
		out = append(out, Notification{
			SuggestionID: s.ID,
			ProductID:    s.ProductID,
			LocationID:   s.DestinationLocationID,
			Urgency:      s.Urgency,
			Message:      notificationMessage(s),
		})
	}
	return out
}

func notificationMessage(s domain.Suggestion) string {
	msg := s.Urgency.Label() + ": " + s.SKU + " at " + s.DestinationLocationID
	if s.StockoutDate != nil {
		return msg + " runs out on " + s.StockoutDate.Format("2006-01-02")
	}
	return msg + " has no forecast cover"
}
