package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/intelligence"
)

var ErrNotFound = errors.New("record not found")

// SnapshotSource loads the immutable input of a calculation run
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (domain.Snapshot, error)
}

// SnapshotWriter stores a snapshot so later runs can load it
type SnapshotWriter interface {
	ImportSnapshot(ctx context.Context, snapshot domain.Snapshot) error
}

// SuggestionStore persists suggestion sets between runs
type SuggestionStore interface {
	// CurrentSuggestions returns the carried set of the latest run with lifecycle changes applied
	CurrentSuggestions(ctx context.Context) ([]domain.Suggestion, error)
	// SaveRun replaces the carried set with the result of a run, atomically
	SaveRun(ctx context.Context, result *intelligence.RunResult) error
	GetSuggestion(ctx context.Context, id string) (domain.Suggestion, error)
	UpdateSuggestion(ctx context.Context, s domain.Suggestion) error
	ListSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.Suggestion, error)
	LatestDashboard(ctx context.Context) (*domain.DashboardSummary, error)
	ListForecasts(ctx context.Context) ([]domain.SalesForecast, error)
}
