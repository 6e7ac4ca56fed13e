package csvsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/intelligence"
	"github.com/andresuchdata/replenish/internal/repository"
)

// state is the on-disk document of a FileStore
type state struct {
	RunAt       time.Time                `json:"run_at"`
	Suggestions []domain.Suggestion      `json:"suggestions"`
	Forecasts   []domain.SalesForecast   `json:"forecasts"`
	Summary     *domain.DashboardSummary `json:"summary,omitempty"`
	Stats       intelligence.RunStats    `json:"stats"`
}

// FileStore keeps the carried suggestion set of the latest run in a JSON file.
// Retired suggestions are not kept.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (*state, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &state{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", s.path, err)
	}
	return &st, nil
}

// save replaces the state file atomically
func (s *FileStore) save(st *state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) CurrentSuggestions(ctx context.Context) ([]domain.Suggestion, error) {
	return s.ListSuggestions(ctx, domain.SuggestionFilter{})
}

func (s *FileStore) SaveRun(_ context.Context, result *intelligence.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := result.Summary
	return s.save(&state{
		RunAt:       result.RunAt,
		Suggestions: result.Suggestions,
		Forecasts:   result.Forecasts,
		Summary:     &summary,
		Stats:       result.Stats,
	})
}

func (s *FileStore) GetSuggestion(_ context.Context, id string) (domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return domain.Suggestion{}, err
	}
	for _, sug := range st.Suggestions {
		if sug.ID == id {
			return sug, nil
		}
	}
	return domain.Suggestion{}, fmt.Errorf("suggestion %s: %w", id, repository.ErrNotFound)
}

func (s *FileStore) UpdateSuggestion(_ context.Context, sug domain.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	for i := range st.Suggestions {
		if st.Suggestions[i].ID == sug.ID && st.Suggestions[i].RetiredAt == nil {
			st.Suggestions[i] = sug
			return s.save(st)
		}
	}
	return fmt.Errorf("suggestion %s: %w", sug.ID, repository.ErrNotFound)
}

// ListSuggestions returns matching suggestions in the ranked order of the last run
func (s *FileStore) ListSuggestions(_ context.Context, filter domain.SuggestionFilter) ([]domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, 0, len(st.Suggestions))
	for _, sug := range st.Suggestions {
		if sug.RetiredAt == nil && filter.Matches(sug) {
			out = append(out, sug)
		}
	}
	return out, nil
}

func (s *FileStore) LatestDashboard(_ context.Context) (*domain.DashboardSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if st.Summary == nil {
		return nil, fmt.Errorf("dashboard: %w", repository.ErrNotFound)
	}
	return st.Summary, nil
}

func (s *FileStore) ListForecasts(_ context.Context) ([]domain.SalesForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.Forecasts, nil
}

var (
	_ repository.SuggestionStore = (*FileStore)(nil)
	_ repository.SnapshotSource  = (*DirSource)(nil)
)
