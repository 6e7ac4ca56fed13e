package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/domain"
)

type forecastRow struct {
	domain.SalesForecast
	Seasonal pq.Float64Array `db:"seasonal_multipliers"`
}

type routeRow struct {
	ID             string          `db:"id"`
	FromLocationID string          `db:"from_location_id"`
	ToLocationID   string          `db:"to_location_id"`
	Method         string          `db:"method"`
	TransitMin     int             `db:"transit_min"`
	TransitTypical int             `db:"transit_typical"`
	TransitMax     int             `db:"transit_max"`
	CostPerUnit    decimal.Decimal `db:"cost_per_unit"`
	CostFixed      decimal.Decimal `db:"cost_fixed"`
	IsActive       bool            `db:"is_active"`
	IsDefault      bool            `db:"is_default"`
}

func (r routeRow) toDomain() domain.ShippingRoute {
	return domain.ShippingRoute{
		ID:             r.ID,
		FromLocationID: r.FromLocationID,
		ToLocationID:   r.ToLocationID,
		Method:         r.Method,
		TransitDays:    domain.TransitDays{Min: r.TransitMin, Typical: r.TransitTypical, Max: r.TransitMax},
		Costs:          domain.RouteCosts{PerUnit: r.CostPerUnit, Fixed: r.CostFixed},
		IsActive:       r.IsActive,
		IsDefault:      r.IsDefault,
	}
}

type snapshotQuery struct {
	name  string
	dest  interface{}
	query string
	args  []interface{}
}

type snapshotRepository struct {
	db          *DB
	historyDays int
}

// NewSnapshotRepository loads snapshots from Postgres. Sales history older than
// historyDays (plus one day of slack) is not loaded; zero loads everything.
func NewSnapshotRepository(db *DB, historyDays int) *snapshotRepository {
	return &snapshotRepository{db: db, historyDays: historyDays}
}

func (r *snapshotRepository) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	snap := domain.Snapshot{CapturedAt: time.Now().UTC()}

	queries := []snapshotQuery{
		{"products", &snap.Products, `SELECT id, sku, name, default_supplier_id, unit_cost FROM products ORDER BY id`, nil},
		{"locations", &snap.Locations, `SELECT id, name, kind, is_active, can_supply FROM locations ORDER BY id`, nil},
		{"suppliers", &snap.Suppliers, `SELECT id, name, lead_time_days, min_order_qty, is_active FROM suppliers ORDER BY id`, nil},
		{"stock levels", &snap.StockLevels, `SELECT product_id, location_id, on_hand, in_transit FROM stock_levels`, nil},
		{"adjustments", &snap.Adjustments, `
			SELECT id, name, product_id, start_date, end_date, effect, multiplier, is_recurring, notes
			FROM forecast_adjustments
			ORDER BY start_date, id`, nil},
		{"safety stock rules", &snap.SafetyStockRules, `
			SELECT product_id, location_id, threshold_type, threshold_value, is_active
			FROM safety_stock_rules`, nil},
	}

	historyQuery := `SELECT product_id, location_id, sale_date, units_sold, source FROM sales_history`
	var historyArgs []interface{}
	if r.historyDays > 0 {
		historyQuery += ` WHERE sale_date >= CURRENT_DATE - $1::int`
		historyArgs = append(historyArgs, r.historyDays+1)
	}
	queries = append(queries, snapshotQuery{"sales history", &snap.SalesHistory, historyQuery, historyArgs})

	for _, q := range queries {
		if err := sqlx.SelectContext(ctx, r.db, q.dest, q.query, q.args...); err != nil {
			return domain.Snapshot{}, fmt.Errorf("load %s: %w", q.name, err)
		}
	}

	var forecasts []forecastRow
	if err := sqlx.SelectContext(ctx, r.db, &forecasts, `
		SELECT product_id, location_id, daily_rate, confidence, seasonal_multipliers, trend_rate,
		       manual_override, is_enabled, effective_rate, observations, excluded_days, calculated_at
		FROM sales_forecasts
		ORDER BY product_id, location_id`); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load forecasts: %w", err)
	}
	snap.Forecasts = make([]domain.SalesForecast, len(forecasts))
	for i, row := range forecasts {
		f := row.SalesForecast
		f.SeasonalMultipliers = []float64(row.Seasonal)
		snap.Forecasts[i] = f
	}

	var routes []routeRow
	if err := sqlx.SelectContext(ctx, r.db, &routes, `
		SELECT id, from_location_id, to_location_id, method, transit_min, transit_typical, transit_max,
		       cost_per_unit, cost_fixed, is_active, is_default
		FROM shipping_routes
		ORDER BY id`); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load routes: %w", err)
	}
	snap.Routes = make([]domain.ShippingRoute, len(routes))
	for i, row := range routes {
		snap.Routes[i] = row.toDomain()
	}

	return snap, nil
}

// ImportSnapshot upserts every record of a snapshot in one transaction
func (r *snapshotRepository) ImportSnapshot(ctx context.Context, snap domain.Snapshot) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, l := range snap.Locations {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO locations (id, name, kind, is_active, can_supply, updated_at)
				VALUES (:id, :name, :kind, :is_active, :can_supply, NOW())
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					kind = EXCLUDED.kind,
					is_active = EXCLUDED.is_active,
					can_supply = EXCLUDED.can_supply,
					updated_at = NOW()`, l); err != nil {
				return fmt.Errorf("failed to upsert location %s: %w", l.ID, err)
			}
		}

		for _, s := range snap.Suppliers {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO suppliers (id, name, lead_time_days, min_order_qty, is_active, updated_at)
				VALUES (:id, :name, :lead_time_days, :min_order_qty, :is_active, NOW())
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					lead_time_days = EXCLUDED.lead_time_days,
					min_order_qty = EXCLUDED.min_order_qty,
					is_active = EXCLUDED.is_active,
					updated_at = NOW()`, s); err != nil {
				return fmt.Errorf("failed to upsert supplier %s: %w", s.ID, err)
			}
		}

		for _, p := range snap.Products {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO products (id, sku, name, default_supplier_id, unit_cost, updated_at)
				VALUES (:id, :sku, :name, :default_supplier_id, :unit_cost, NOW())
				ON CONFLICT (id) DO UPDATE SET
					sku = EXCLUDED.sku,
					name = EXCLUDED.name,
					default_supplier_id = EXCLUDED.default_supplier_id,
					unit_cost = EXCLUDED.unit_cost,
					updated_at = NOW()`, p); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
			}
		}

		for _, st := range snap.StockLevels {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO stock_levels (product_id, location_id, on_hand, in_transit, updated_at)
				VALUES (:product_id, :location_id, :on_hand, :in_transit, NOW())
				ON CONFLICT (product_id, location_id) DO UPDATE SET
					on_hand = EXCLUDED.on_hand,
					in_transit = EXCLUDED.in_transit,
					updated_at = NOW()`, st); err != nil {
				return fmt.Errorf("failed to upsert stock %s/%s: %w", st.ProductID, st.LocationID, err)
			}
		}

		for _, h := range snap.SalesHistory {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO sales_history (product_id, location_id, sale_date, units_sold, source)
				VALUES (:product_id, :location_id, :sale_date, :units_sold, :source)
				ON CONFLICT (product_id, location_id, sale_date, source) DO UPDATE SET
					units_sold = EXCLUDED.units_sold`, h); err != nil {
				return fmt.Errorf("failed to upsert sales history: %w", err)
			}
		}

		for _, a := range snap.Adjustments {
			if err := a.Validate(); err != nil {
				return err
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO forecast_adjustments (id, name, product_id, start_date, end_date, effect, multiplier, is_recurring, notes)
				VALUES (:id, :name, :product_id, :start_date, :end_date, :effect, :multiplier, :is_recurring, :notes)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					product_id = EXCLUDED.product_id,
					start_date = EXCLUDED.start_date,
					end_date = EXCLUDED.end_date,
					effect = EXCLUDED.effect,
					multiplier = EXCLUDED.multiplier,
					is_recurring = EXCLUDED.is_recurring,
					notes = EXCLUDED.notes`, a); err != nil {
				return fmt.Errorf("failed to upsert adjustment %s: %w", a.ID, err)
			}
		}

		for _, f := range snap.Forecasts {
			seasonal := pq.Float64Array(f.SeasonalMultipliers)
			if seasonal == nil {
				seasonal = pq.Float64Array{}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sales_forecasts (product_id, location_id, seasonal_multipliers, trend_rate, manual_override, is_enabled)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (product_id, location_id) DO UPDATE SET
					seasonal_multipliers = EXCLUDED.seasonal_multipliers,
					trend_rate = EXCLUDED.trend_rate,
					manual_override = EXCLUDED.manual_override,
					is_enabled = EXCLUDED.is_enabled`,
				f.ProductID, f.LocationID, seasonal, f.TrendRate, f.ManualOverride, f.IsEnabled); err != nil {
				return fmt.Errorf("failed to upsert forecast %s/%s: %w", f.ProductID, f.LocationID, err)
			}
		}

		for _, rule := range snap.SafetyStockRules {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO safety_stock_rules (product_id, location_id, threshold_type, threshold_value, is_active)
				VALUES (:product_id, :location_id, :threshold_type, :threshold_value, :is_active)
				ON CONFLICT (product_id, location_id) DO UPDATE SET
					threshold_type = EXCLUDED.threshold_type,
					threshold_value = EXCLUDED.threshold_value,
					is_active = EXCLUDED.is_active`, rule); err != nil {
				return fmt.Errorf("failed to upsert safety rule %s/%s: %w", rule.ProductID, rule.LocationID, err)
			}
		}

		for _, rt := range snap.Routes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shipping_routes (id, from_location_id, to_location_id, method, transit_min, transit_typical,
					transit_max, cost_per_unit, cost_fixed, is_active, is_default)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (id) DO UPDATE SET
					from_location_id = EXCLUDED.from_location_id,
					to_location_id = EXCLUDED.to_location_id,
					method = EXCLUDED.method,
					transit_min = EXCLUDED.transit_min,
					transit_typical = EXCLUDED.transit_typical,
					transit_max = EXCLUDED.transit_max,
					cost_per_unit = EXCLUDED.cost_per_unit,
					cost_fixed = EXCLUDED.cost_fixed,
					is_active = EXCLUDED.is_active,
					is_default = EXCLUDED.is_default`,
				rt.ID, rt.FromLocationID, rt.ToLocationID, rt.Method, rt.TransitDays.Min, rt.TransitDays.Typical,
				rt.TransitDays.Max, rt.Costs.PerUnit, rt.Costs.Fixed, rt.IsActive, rt.IsDefault); err != nil {
				return fmt.Errorf("failed to upsert route %s: %w", rt.ID, err)
			}
		}

		return nil
	})
}
