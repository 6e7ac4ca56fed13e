package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/intelligence"
	"github.com/andresuchdata/replenish/internal/repository"
)

var tracer = otel.Tracer("github.com/andresuchdata/replenish/internal/service")

// ErrRefreshInProgress is returned when another refresh holds the run lock
var ErrRefreshInProgress = errors.New("a refresh is already running")

const (
	defaultCommandLockWait = 2 * time.Second
	commandLockPoll        = 25 * time.Millisecond
)

// Exporter publishes the suggestions of a finished run somewhere outside the store
type Exporter interface {
	Publish(ctx context.Context, result *intelligence.RunResult) (string, error)
}

type AdvisorService struct {
	source    repository.SnapshotSource
	store     repository.SuggestionStore
	engine    *intelligence.Engine
	lifecycle *intelligence.LifecycleManager
	settings  domain.IntelligenceSettings

	dashboard cache.DashboardSummaryCache
	lists     cache.SuggestionListCache
	locker    cache.RunLocker
	exporter  Exporter
	now       func() time.Time

	// how long a lifecycle command waits for a running refresh
	commandWait time.Duration
}

type Option func(*AdvisorService)

func WithDashboardCache(c cache.DashboardSummaryCache) Option {
	return func(s *AdvisorService) { s.dashboard = c }
}

func WithSuggestionCache(c cache.SuggestionListCache) Option {
	return func(s *AdvisorService) { s.lists = c }
}

func WithRunLocker(l cache.RunLocker) Option {
	return func(s *AdvisorService) { s.locker = l }
}

func WithExporter(e Exporter) Option {
	return func(s *AdvisorService) { s.exporter = e }
}

// WithCommandLockWait bounds how long lifecycle commands wait on the run lock
// before failing with ErrRefreshInProgress
func WithCommandLockWait(d time.Duration) Option {
	return func(s *AdvisorService) { s.commandWait = d }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *AdvisorService) { s.now = now }
}

func NewAdvisorService(
	source repository.SnapshotSource,
	store repository.SuggestionStore,
	engine *intelligence.Engine,
	settings domain.IntelligenceSettings,
	opts ...Option,
) *AdvisorService {
	s := &AdvisorService{
		source:    source,
		store:     store,
		engine:    engine,
		lifecycle: intelligence.NewLifecycleManager(nil),
		settings:  settings,
		dashboard: cache.NewNoopDashboardCache(),
		lists:     cache.NewNoopSuggestionCache(),
		locker:    cache.NewLocalRunLocker(),
		now:       time.Now,

		commandWait: defaultCommandLockWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the default settings of refresh runs
func (s *AdvisorService) Settings() domain.IntelligenceSettings {
	return s.settings
}

// Refresh runs a calculation over a fresh snapshot and replaces the stored
// suggestion set. A nil settings value uses the configured defaults.
func (s *AdvisorService) Refresh(ctx context.Context, settings *domain.IntelligenceSettings) (*intelligence.RunResult, error) {
	ctx, span := tracer.Start(ctx, "advisor.Refresh")
	defer span.End()

	runSettings := s.settings
	if settings != nil {
		runSettings = *settings
	}
	if err := runSettings.Validate(); err != nil {
		return nil, recordErr(span, err)
	}

	release, err := s.acquire(ctx, 0)
	if err != nil {
		return nil, recordErr(span, err)
	}
	defer unlock(release)

	snapshot, err := s.source.LoadSnapshot(ctx)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("load snapshot: %w", err))
	}

	previous, err := s.store.CurrentSuggestions(ctx)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("load current suggestions: %w", err))
	}

	result, err := s.engine.Run(ctx, intelligence.RunInput{
		Now:      s.now(),
		Settings: runSettings,
		Snapshot: snapshot,
		Previous: previous,
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	if err := s.store.SaveRun(ctx, result); err != nil {
		return nil, recordErr(span, fmt.Errorf("save run: %w", err))
	}

	s.invalidateLists(ctx)
	if err := s.dashboard.SetSummary(ctx, &result.Summary); err != nil {
		log.Warn().Err(err).Msg("advisor: cache set dashboard failed")
	}

	for _, n := range result.Notifications {
		log.Info().
			Str("suggestion_id", n.SuggestionID).
			Str("urgency", string(n.Urgency)).
			Msg(n.Message)
	}

	if s.exporter != nil {
		if key, err := s.exporter.Publish(ctx, result); err != nil {
			log.Warn().Err(err).Msg("advisor: export failed")
		} else {
			log.Info().Str("key", key).Msg("advisor: suggestions exported")
		}
	}

	span.SetAttributes(
		attribute.Int("suggestions", len(result.Suggestions)),
		attribute.Int("created", result.Stats.Created),
		attribute.Int("retired", result.Stats.Retired),
	)
	return result, nil
}

// Execute applies a lifecycle command to a stored suggestion. Commands hold
// the run lock so a refresh never saves over them with the status it read
// before the command landed.
func (s *AdvisorService) Execute(ctx context.Context, cmd domain.LifecycleCommand) (domain.Suggestion, error) {
	ctx, span := tracer.Start(ctx, "advisor.Execute", trace.WithAttributes(
		attribute.String("action", string(cmd.Action)),
		attribute.String("suggestion_id", cmd.SuggestionID),
	))
	defer span.End()

	if err := cmd.Validate(); err != nil {
		return domain.Suggestion{}, recordErr(span, err)
	}

	release, err := s.acquire(ctx, s.commandWait)
	if err != nil {
		return domain.Suggestion{}, recordErr(span, err)
	}
	defer unlock(release)

	current, err := s.store.GetSuggestion(ctx, cmd.SuggestionID)
	if err != nil {
		return domain.Suggestion{}, recordErr(span, err)
	}

	updated, err := s.lifecycle.Apply([]domain.Suggestion{current}, cmd, s.now())
	if err != nil {
		return domain.Suggestion{}, recordErr(span, err)
	}

	if err := s.store.UpdateSuggestion(ctx, updated); err != nil {
		return domain.Suggestion{}, recordErr(span, err)
	}

	s.invalidateLists(ctx)
	log.Info().
		Str("suggestion_id", updated.ID).
		Str("action", string(cmd.Action)).
		Str("status", string(updated.Status)).
		Msg("advisor: suggestion updated")

	return updated, nil
}

func (s *AdvisorService) Accept(ctx context.Context, id string, qty *float64) (domain.Suggestion, error) {
	return s.Execute(ctx, domain.LifecycleCommand{Action: domain.ActionAccept, SuggestionID: id, Quantity: qty})
}

func (s *AdvisorService) Dismiss(ctx context.Context, id, reason string) (domain.Suggestion, error) {
	return s.Execute(ctx, domain.LifecycleCommand{Action: domain.ActionDismiss, SuggestionID: id, Reason: reason})
}

func (s *AdvisorService) Snooze(ctx context.Context, id string, until time.Time) (domain.Suggestion, error) {
	return s.Execute(ctx, domain.LifecycleCommand{Action: domain.ActionSnooze, SuggestionID: id, Until: &until})
}

func (s *AdvisorService) ListSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.Suggestion, error) {
	if suggestions, ok, err := s.lists.GetSuggestions(ctx, filter); err == nil && ok {
		return suggestions, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("advisor: cache get suggestions failed")
	}

	suggestions, err := s.store.ListSuggestions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = make([]domain.Suggestion, 0)
	}

	if err := s.lists.SetSuggestions(ctx, filter, suggestions); err != nil {
		log.Warn().Err(err).Msg("advisor: cache set suggestions failed")
	}
	return suggestions, nil
}

func (s *AdvisorService) GetSuggestion(ctx context.Context, id string) (domain.Suggestion, error) {
	return s.store.GetSuggestion(ctx, id)
}

// GetDashboard returns the summary of the latest run
func (s *AdvisorService) GetDashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	if summary, ok, err := s.dashboard.GetSummary(ctx); err == nil && ok {
		return summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("advisor: cache get dashboard failed")
	}

	summary, err := s.store.LatestDashboard(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.dashboard.SetSummary(ctx, summary); err != nil {
		log.Warn().Err(err).Msg("advisor: cache set dashboard failed")
	}
	return summary, nil
}

func (s *AdvisorService) ListForecasts(ctx context.Context) ([]domain.SalesForecast, error) {
	forecasts, err := s.store.ListForecasts(ctx)
	if err != nil {
		return nil, err
	}
	if forecasts == nil {
		forecasts = make([]domain.SalesForecast, 0)
	}
	return forecasts, nil
}

// acquire takes the run lock, polling for up to wait while someone else holds it
func (s *AdvisorService) acquire(ctx context.Context, wait time.Duration) (cache.ReleaseFunc, error) {
	deadline := time.Now().Add(wait)
	for {
		release, err := s.locker.Acquire(ctx)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, cache.ErrLocked) {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !time.Now().Before(deadline) {
			return nil, ErrRefreshInProgress
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(commandLockPoll):
		}
	}
}

func unlock(release cache.ReleaseFunc) {
	if err := release(context.Background()); err != nil {
		log.Warn().Err(err).Msg("advisor: release run lock failed")
	}
}

func (s *AdvisorService) invalidateLists(ctx context.Context) {
	if err := s.lists.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("advisor: cache invalidate suggestions failed")
	}
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
