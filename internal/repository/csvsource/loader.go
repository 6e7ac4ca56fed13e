// Package csvsource reads calculation snapshots from a directory of CSV or
// XLSX files and keeps suggestion state in a local JSON file.
package csvsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Snapshot file names, without extension
const (
	FileProducts     = "products"
	FileLocations    = "locations"
	FileSuppliers    = "suppliers"
	FileStockLevels  = "stock_levels"
	FileSalesHistory = "sales_history"
	FileAdjustments  = "adjustments"
	FileForecasts    = "forecasts"
	FileSafetyRules  = "safety_stock_rules"
	FileRoutes       = "routes"
)

// SnapshotFiles lists every file a snapshot directory may hold
var SnapshotFiles = []string{
	FileProducts, FileLocations, FileSuppliers, FileStockLevels, FileSalesHistory,
	FileAdjustments, FileForecasts, FileSafetyRules, FileRoutes,
}

var requiredFiles = map[string]bool{
	FileProducts:  true,
	FileLocations: true,
}

var errMissingFile = errors.New("snapshot file not found")

// DirSource loads snapshots from a directory
type DirSource struct {
	dir string
	now func() time.Time
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir, now: time.Now}
}

func (s *DirSource) LoadSnapshot(ctx context.Context) (domain.Snapshot, error) {
	snap := domain.Snapshot{CapturedAt: s.now().UTC()}

	loaders := []struct {
		file  string
		parse func(*table, *domain.Snapshot) error
	}{
		{FileProducts, parseProducts},
		{FileLocations, parseLocations},
		{FileSuppliers, parseSuppliers},
		{FileStockLevels, parseStockLevels},
		{FileSalesHistory, parseSalesHistory},
		{FileAdjustments, parseAdjustments},
		{FileForecasts, parseForecasts},
		{FileSafetyRules, parseSafetyRules},
		{FileRoutes, parseRoutes},
	}

	for _, l := range loaders {
		if err := ctx.Err(); err != nil {
			return domain.Snapshot{}, err
		}

		t, err := s.open(l.file)
		if errors.Is(err, errMissingFile) && !requiredFiles[l.file] {
			log.Debug().Str("dir", s.dir).Str("file", l.file).Msg("optional snapshot file not present")
			continue
		}
		if err != nil {
			return domain.Snapshot{}, err
		}
		if err := l.parse(t, &snap); err != nil {
			return domain.Snapshot{}, err
		}
	}

	log.Info().
		Str("dir", s.dir).
		Int("products", len(snap.Products)).
		Int("locations", len(snap.Locations)).
		Int("history_rows", len(snap.SalesHistory)).
		Int("forecasts", len(snap.Forecasts)).
		Msg("snapshot loaded")

	return snap, nil
}

// open prefers name.csv and falls back to name.xlsx
func (s *DirSource) open(name string) (*table, error) {
	csvPath := filepath.Join(s.dir, name+".csv")
	if _, err := os.Stat(csvPath); err == nil {
		return readTable(csvPath, name)
	}

	xlsxPath := filepath.Join(s.dir, name+".xlsx")
	if _, err := os.Stat(xlsxPath); err == nil {
		return readXLSX(xlsxPath, name)
	}

	return nil, fmt.Errorf("%s in %s: %w", name, s.dir, errMissingFile)
}

func parseProducts(t *table, snap *domain.Snapshot) error {
	idxID, err := t.require("id", "product_id")
	if err != nil {
		return err
	}
	idxSKU := t.colIndex("sku")
	idxName := t.colIndex("name", "product name", "nama")
	idxSupplier := t.colIndex("default_supplier_id", "supplier_id", "supplier")
	idxCost := t.colIndex("unit_cost", "cost", "hpp")

	for _, r := range t.rows() {
		snap.Products = append(snap.Products, domain.Product{
			ID:                r.get(idxID),
			SKU:               r.get(idxSKU),
			Name:              r.get(idxName),
			DefaultSupplierID: r.get(idxSupplier),
			UnitCost:          r.decimal(idxCost),
		})
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func parseLocations(t *table, snap *domain.Snapshot) error {
	idxID, err := t.require("id", "location_id")
	if err != nil {
		return err
	}
	idxName := t.colIndex("name", "store", "toko")
	idxKind := t.colIndex("kind", "type")
	idxActive := t.colIndex("is_active", "active")
	idxSupply := t.colIndex("can_supply")

	for _, r := range t.rows() {
		kind := domain.LocationKind(r.get(idxKind))
		if kind == "" {
			kind = domain.LocationStore
		}
		snap.Locations = append(snap.Locations, domain.Location{
			ID:        r.get(idxID),
			Name:      r.get(idxName),
			Kind:      kind,
			IsActive:  r.bool(idxActive, true),
			CanSupply: r.bool(idxSupply, kind == domain.LocationWarehouse),
		})
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func parseSuppliers(t *table, snap *domain.Snapshot) error {
	idxID, err := t.require("id", "supplier_id")
	if err != nil {
		return err
	}
	idxName := t.colIndex("name")
	idxLead := t.colIndex("lead_time_days", "lead_time", "lead time")
	idxMin := t.colIndex("min_order_qty", "min_order", "min. order")
	idxActive := t.colIndex("is_active", "active")

	for _, r := range t.rows() {
		snap.Suppliers = append(snap.Suppliers, domain.Supplier{
			ID:           r.get(idxID),
			Name:         r.get(idxName),
			LeadTimeDays: r.int(idxLead),
			MinOrderQty:  r.float(idxMin),
			IsActive:     r.bool(idxActive, true),
		})
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func parseStockLevels(t *table, snap *domain.Snapshot) error {
	idxProduct, err := t.require("product_id")
	if err != nil {
		return err
	}
	idxLocation, err := t.require("location_id")
	if err != nil {
		return err
	}
	idxOnHand := t.colIndex("on_hand", "stock", "stok")
	idxTransit := t.colIndex("in_transit", "sedang_po")

	for _, r := range t.rows() {
		snap.StockLevels = append(snap.StockLevels, domain.StockLevel{
			ProductID:  r.get(idxProduct),
			LocationID: r.get(idxLocation),
			OnHand:     r.float(idxOnHand),
			InTransit:  r.float(idxTransit),
		})
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func parseSalesHistory(t *table, snap *domain.Snapshot) error {
	idxProduct, err := t.require("product_id")
	if err != nil {
		return err
	}
	idxLocation, err := t.require("location_id")
	if err != nil {
		return err
	}
	idxDate, err := t.require("date", "sale_date")
	if err != nil {
		return err
	}
	idxUnits := t.colIndex("units_sold", "units", "qty")
	idxSource := t.colIndex("source")

	for _, r := range t.rows() {
		snap.SalesHistory = append(snap.SalesHistory, domain.SalesHistoryEntry{
			ProductID:  r.get(idxProduct),
			LocationID: r.get(idxLocation),
			Date:       r.date(idxDate),
			UnitsSold:  r.float(idxUnits),
			Source:     r.get(idxSource),
		})
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func parseAdjustments(t *table, snap *domain.Snapshot) error {
	idxStart, err := t.require("start_date")
	if err != nil {
		return err
	}
	idxEnd, err := t.require("end_date")
	if err != nil {
		return err
	}
	idxEffect, err := t.require("effect")
	if err != nil {
		return err
	}
	idxID := t.colIndex("id")
	idxName := t.colIndex("name")
	idxProduct := t.colIndex("product_id")
	idxMultiplier := t.colIndex("multiplier")
	idxRecurring := t.colIndex("is_recurring", "recurring")
	idxNotes := t.colIndex("notes")

	for _, r := range t.rows() {
		adj := domain.ForecastAdjustment{
			ID:          r.get(idxID),
			Name:        r.get(idxName),
			ProductID:   r.get(idxProduct),
			StartDate:   r.date(idxStart),
			EndDate:     r.date(idxEnd),
			Effect:      domain.AdjustmentEffect(r.get(idxEffect)),
			Multiplier:  r.optFloat(idxMultiplier),
			IsRecurring: r.bool(idxRecurring, false),
			Notes:       r.get(idxNotes),
		}
		if r.err != nil {
			return r.err
		}
		if err := adj.Validate(); err != nil {
			return fmt.Errorf("%s line %d: %w", t.name, r.line, err)
		}
		snap.Adjustments = append(snap.Adjustments, adj)
	}
	return nil
}

func parseForecasts(t *table, snap *domain.Snapshot) error {
	idxProduct, err := t.require("product_id")
	if err != nil {
		return err
	}
	idxLocation, err := t.require("location_id")
	if err != nil {
		return err
	}
	idxRate := t.colIndex("daily_rate")
	idxConfidence := t.colIndex("confidence")
	idxSeasonal := t.colIndex("seasonal_multipliers", "seasonal")
	idxTrend := t.colIndex("trend_rate", "trend")
	idxOverride := t.colIndex("manual_override", "override")
	idxEnabled := t.colIndex("is_enabled", "enabled")

	for _, r := range t.rows() {
		snap.Forecasts = append(snap.Forecasts, domain.SalesForecast{
			ProductID:           r.get(idxProduct),
			LocationID:          r.get(idxLocation),
			DailyRate:           r.float(idxRate),
			Confidence:          domain.Confidence(r.get(idxConfidence)),
			SeasonalMultipliers: r.floats(idxSeasonal),
			TrendRate:           r.float(idxTrend),
			ManualOverride:      r.optFloat(idxOverride),
			IsEnabled:           r.bool(idxEnabled, true),
		})
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func parseSafetyRules(t *table, snap *domain.Snapshot) error {
	idxProduct, err := t.require("product_id")
	if err != nil {
		return err
	}
	idxLocation, err := t.require("location_id")
	if err != nil {
		return err
	}
	idxType, err := t.require("threshold_type")
	if err != nil {
		return err
	}
	idxValue, err := t.require("threshold_value")
	if err != nil {
		return err
	}
	idxActive := t.colIndex("is_active", "active")

	for _, r := range t.rows() {
		snap.SafetyStockRules = append(snap.SafetyStockRules, domain.SafetyStockRule{
			ProductID:      r.get(idxProduct),
			LocationID:     r.get(idxLocation),
			ThresholdType:  domain.ThresholdType(r.get(idxType)),
			ThresholdValue: r.float(idxValue),
			IsActive:       r.bool(idxActive, true),
		})
		if r.err != nil {
			return r.err
		}
	}
	return nil
}

func parseRoutes(t *table, snap *domain.Snapshot) error {
	idxFrom, err := t.require("from_location_id", "from")
	if err != nil {
		return err
	}
	idxTo, err := t.require("to_location_id", "to")
	if err != nil {
		return err
	}
	idxID := t.colIndex("id", "route_id")
	idxMethod := t.colIndex("method")
	idxMin := t.colIndex("transit_min", "min_days")
	idxTypical := t.colIndex("transit_typical", "typical_days", "transit_days")
	idxMax := t.colIndex("transit_max", "max_days")
	idxPerUnit := t.colIndex("cost_per_unit", "per_unit")
	idxFixed := t.colIndex("cost_fixed", "fixed_cost")
	idxActive := t.colIndex("is_active", "active")
	idxDefault := t.colIndex("is_default", "default")

	for _, r := range t.rows() {
		route := domain.ShippingRoute{
			ID:             r.get(idxID),
			FromLocationID: r.get(idxFrom),
			ToLocationID:   r.get(idxTo),
			Method:         r.get(idxMethod),
			TransitDays: domain.TransitDays{
				Min:     r.int(idxMin),
				Typical: r.int(idxTypical),
				Max:     r.int(idxMax),
			},
			Costs: domain.RouteCosts{
				PerUnit: r.decimal(idxPerUnit),
				Fixed:   r.decimal(idxFixed),
			},
			IsActive:  r.bool(idxActive, true),
			IsDefault: r.bool(idxDefault, false),
		}
		if r.err != nil {
			return r.err
		}
		if route.ID == "" {
			route.ID = route.FromLocationID + "->" + route.ToLocationID + ":" + route.Method
		}
		snap.Routes = append(snap.Routes, route)
	}
	return nil
}
