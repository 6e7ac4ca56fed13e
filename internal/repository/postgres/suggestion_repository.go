package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/intelligence"
	"github.com/andresuchdata/replenish/internal/repository"
)

const upsertSuggestionQuery = `
	INSERT INTO replenishment_suggestions (
		id, product_id, destination_location_id, suggestion_type, urgency, status,
		days_remaining, snooze_until, retired_at, created_at, updated_at, payload
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		product_id = EXCLUDED.product_id,
		destination_location_id = EXCLUDED.destination_location_id,
		suggestion_type = EXCLUDED.suggestion_type,
		urgency = EXCLUDED.urgency,
		status = EXCLUDED.status,
		days_remaining = EXCLUDED.days_remaining,
		snooze_until = EXCLUDED.snooze_until,
		retired_at = EXCLUDED.retired_at,
		updated_at = EXCLUDED.updated_at,
		payload = EXCLUDED.payload
`

type suggestionRepository struct {
	db *DB
}

func NewSuggestionRepository(db *DB) *suggestionRepository {
	return &suggestionRepository{db: db}
}

func (r *suggestionRepository) CurrentSuggestions(ctx context.Context) ([]domain.Suggestion, error) {
	return r.ListSuggestions(ctx, domain.SuggestionFilter{})
}

// SaveRun writes every carried and retired suggestion, the computed forecast
// figures and the run summary in a single transaction.
func (r *suggestionRepository) SaveRun(ctx context.Context, result *intelligence.RunResult) error {
	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return fmt.Errorf("encode run stats: %w", err)
	}
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("encode dashboard summary: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSuggestionQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		write := func(s domain.Suggestion) error {
			args, err := suggestionArgs(s)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to upsert suggestion %s: %w", s.ID, err)
			}
			return nil
		}
		for _, s := range result.Suggestions {
			if err := write(s); err != nil {
				return err
			}
		}
		for _, s := range result.Retired {
			if err := write(s); err != nil {
				return err
			}
		}

		for _, f := range result.Forecasts {
			if _, err := tx.ExecContext(ctx, `
				UPDATE sales_forecasts SET
					daily_rate = $3,
					confidence = $4,
					effective_rate = $5,
					observations = $6,
					excluded_days = $7,
					calculated_at = $8
				WHERE product_id = $1 AND location_id = $2`,
				f.ProductID, f.LocationID, f.DailyRate, string(f.Confidence), f.EffectiveRate,
				f.Observations, f.ExcludedDays, f.CalculatedAt); err != nil {
				return fmt.Errorf("failed to update forecast %s/%s: %w", f.ProductID, f.LocationID, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO replenishment_runs (run_at, stats, summary) VALUES ($1, $2, $3)`,
			result.RunAt, string(stats), string(summary)); err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		return nil
	})
}

func (r *suggestionRepository) GetSuggestion(ctx context.Context, id string) (domain.Suggestion, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, `SELECT payload FROM replenishment_suggestions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Suggestion{}, fmt.Errorf("suggestion %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return decodeSuggestion(payload)
}

func (r *suggestionRepository) UpdateSuggestion(ctx context.Context, s domain.Suggestion) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode suggestion %s: %w", s.ID, err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE replenishment_suggestions SET
			status = $2,
			snooze_until = $3,
			updated_at = $4,
			payload = $5
		WHERE id = $1 AND retired_at IS NULL`,
		s.ID, string(s.Status), s.SnoozeUntil, s.UpdatedAt, string(payload))
	if err != nil {
		return fmt.Errorf("failed to update suggestion %s: %w", s.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("suggestion %s: %w", s.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *suggestionRepository) ListSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.Suggestion, error) {
	clause, args := buildSuggestionFilterClause(filter, "s", 1)
	query := fmt.Sprintf(`
		SELECT s.payload
		FROM replenishment_suggestions s
		WHERE s.retired_at IS NULL%s
		ORDER BY %s, s.days_remaining ASC NULLS FIRST, s.product_id, s.destination_location_id, s.suggestion_type
	`, clause, urgencyRankCase("s"))

	var payloads []string
	if err := sqlx.SelectContext(ctx, r.db, &payloads, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}

	out := make([]domain.Suggestion, 0, len(payloads))
	for _, p := range payloads {
		s, err := decodeSuggestion(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *suggestionRepository) LatestDashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, `SELECT summary FROM replenishment_runs ORDER BY run_at DESC, id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dashboard: %w", repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	var summary domain.DashboardSummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("decode dashboard summary: %w", err)
	}
	return &summary, nil
}

func (r *suggestionRepository) ListForecasts(ctx context.Context) ([]domain.SalesForecast, error) {
	var rows []forecastRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT product_id, location_id, daily_rate, confidence, seasonal_multipliers, trend_rate,
		       manual_override, is_enabled, effective_rate, observations, excluded_days, calculated_at
		FROM sales_forecasts
		ORDER BY product_id, location_id`); err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}

	out := make([]domain.SalesForecast, len(rows))
	for i, row := range rows {
		out[i] = row.SalesForecast
		out[i].SeasonalMultipliers = []float64(row.Seasonal)
	}
	return out, nil
}

// suggestionArgs returns the positional arguments of upsertSuggestionQuery
func suggestionArgs(s domain.Suggestion) ([]interface{}, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode suggestion %s: %w", s.ID, err)
	}
	return []interface{}{
		s.ID,
		s.ProductID,
		s.DestinationLocationID,
		string(s.Type()),
		string(s.Urgency),
		string(s.Status),
		s.DaysOfStockRemaining,
		s.SnoozeUntil,
		s.RetiredAt,
		s.CreatedAt,
		s.UpdatedAt,
		string(payload),
	}, nil
}

func decodeSuggestion(payload string) (domain.Suggestion, error) {
	var s domain.Suggestion
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return domain.Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	return s, nil
}

var (
	_ repository.SuggestionStore = (*suggestionRepository)(nil)
	_ repository.SnapshotSource  = (*snapshotRepository)(nil)
	_ repository.SnapshotWriter  = (*snapshotRepository)(nil)
)
