package intelligence

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/internal/domain"
)

// maxStockoutHorizonDays bounds the projected stockout date for near-zero demand
const maxStockoutHorizonDays = 36500

// Evaluation is the generator output for one enabled forecast
type Evaluation struct {
	Key           domain.PairKey
	Forecast      ForecastResult
	DaysRemaining *float64
	Urgency       domain.Urgency
	Threshold     float64
	// Suggestion is nil when replenishment is not warranted
	Suggestion *domain.Suggestion
	Suppressed string
}

// Warranted reports whether the pair needs replenishment
func (e Evaluation) Warranted() bool {
	return e.Suggestion != nil
}

// Generation is the mapped output of one run over every forecast in a snapshot
type Generation struct {
	Forecasts   []domain.SalesForecast
	Evaluations []Evaluation
}

type snapshotIndex struct {
	products  map[string]domain.Product
	locations map[string]domain.Location
	suppliers map[string]domain.Supplier
	stock     map[domain.PairKey]domain.StockLevel
	history   map[domain.PairKey][]domain.SalesHistoryEntry
	rules     map[domain.PairKey]domain.SafetyStockRule
	// sources are the active supplying locations sorted by id
	sources []domain.Location
}

func newSnapshotIndex(s domain.Snapshot) *snapshotIndex {
	idx := &snapshotIndex{
		products:  make(map[string]domain.Product, len(s.Products)),
		locations: make(map[string]domain.Location, len(s.Locations)),
		suppliers: make(map[string]domain.Supplier, len(s.Suppliers)),
		stock:     make(map[domain.PairKey]domain.StockLevel, len(s.StockLevels)),
		history:   make(map[domain.PairKey][]domain.SalesHistoryEntry),
		rules:     make(map[domain.PairKey]domain.SafetyStockRule, len(s.SafetyStockRules)),
	}

	for _, p := range s.Products {
		idx.products[p.ID] = p
	}
	for _, l := range s.Locations {
		idx.locations[l.ID] = l
		if l.IsActive && l.CanSupply {
			idx.sources = append(idx.sources, l)
		}
	}
	sort.Slice(idx.sources, func(i, j int) bool { return idx.sources[i].ID < idx.sources[j].ID })

	for _, sp := range s.Suppliers {
		idx.suppliers[sp.ID] = sp
	}
	for _, st := range s.StockLevels {
		key := domain.PairKey{ProductID: st.ProductID, LocationID: st.LocationID}
		cur := idx.stock[key]
		cur.ProductID, cur.LocationID = st.ProductID, st.LocationID
		cur.OnHand += st.OnHand
		cur.InTransit += st.InTransit
		idx.stock[key] = cur
	}
	for _, h := range s.SalesHistory {
		key := domain.PairKey{ProductID: h.ProductID, LocationID: h.LocationID}
		idx.history[key] = append(idx.history[key], h)
	}
	for _, r := range s.SafetyStockRules {
		key := domain.PairKey{ProductID: r.ProductID, LocationID: r.LocationID}
		if prev, ok := idx.rules[key]; ok && prev.IsActive && !r.IsActive {
			continue
		}
		idx.rules[key] = r
	}
	return idx
}

func (idx *snapshotIndex) rule(key domain.PairKey) *domain.SafetyStockRule {
	if r, ok := idx.rules[key]; ok {
		return &r
	}
	return nil
}

// Generator turns forecasts and stock positions into replenishment suggestions
type Generator struct {
	settings   domain.IntelligenceSettings
	forecasts  []domain.SalesForecast
	index      *snapshotIndex
	calculator *ForecastCalculator
	safety     SafetyStockEvaluator
	planner    *RoutePlanner
	classifier *UrgencyClassifier
	workers    int
}

// NewGenerator validates the settings and indexes the snapshot. workers bounds
// the number of pairs evaluated concurrently; zero or less uses GOMAXPROCS.
func NewGenerator(snapshot domain.Snapshot, settings domain.IntelligenceSettings, workers int) (*Generator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[domain.PairKey]struct{}, len(snapshot.Forecasts))
	for _, f := range snapshot.Forecasts {
		if _, dup := seen[f.Key()]; dup {
			return nil, fmt.Errorf("%w: duplicate forecast for %s/%s", ErrInvalidForecast, f.ProductID, f.LocationID)
		}
		seen[f.Key()] = struct{}{}
	}

	resolver, err := NewAdjustmentResolver(snapshot.Adjustments)
	if err != nil {
		return nil, err
	}
	planner, err := NewRoutePlanner(snapshot.Routes)
	if err != nil {
		return nil, err
	}
	classifier, err := NewUrgencyClassifier(settings.Thresholds)
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Generator{
		settings:   settings,
		forecasts:  snapshot.Forecasts,
		index:      newSnapshotIndex(snapshot),
		calculator: NewForecastCalculator(resolver, settings),
		safety:     NewSafetyStockEvaluator(settings.DefaultSafetyStockDays),
		planner:    planner,
		classifier: classifier,
		workers:    workers,
	}, nil
}

// Generate computes every forecast, then evaluates each enabled one. Both phases
// run concurrently per pair; the second phase reads the completed demand of
// every pair to size transfer sources.
func (g *Generator) Generate(ctx context.Context, now time.Time) (*Generation, error) {
	today := dateOnly(now)

	results := make([]ForecastResult, len(g.forecasts))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range g.forecasts {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			f := g.forecasts[i]
			res, err := g.calculator.Calculate(f, g.index.history[f.Key()], today)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	demand := make(map[domain.PairKey]ForecastResult, len(results))
	forecasts := make([]domain.SalesForecast, len(g.forecasts))
	for i, f := range g.forecasts {
		demand[f.Key()] = results[i]
		forecasts[i] = ApplyForecast(f, results[i], now)
	}

	evaluations := make([]*Evaluation, len(g.forecasts))
	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range g.forecasts {
		if !g.forecasts[i].IsEnabled {
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			ev, err := g.Evaluate(results[i], demand, today)
			if err != nil {
				return err
			}
			evaluations[i] = ev
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &Generation{Forecasts: forecasts}
	for _, ev := range evaluations {
		if ev != nil {
			out.Evaluations = append(out.Evaluations, *ev)
		}
	}
	return out, nil
}

// Evaluate decides whether one pair needs replenishment and builds its suggestion.
// demand holds the forecast results of every pair in the run.
func (g *Generator) Evaluate(fr ForecastResult, demand map[domain.PairKey]ForecastResult, today time.Time) (*Evaluation, error) {
	key := fr.Key
	stock := g.index.stock[key]
	rate := fr.EffectiveRate

	ev := &Evaluation{Key: key, Forecast: fr}
	reasoning := append([]domain.ReasoningItem(nil), fr.Reasoning...)

	covered := stock.OnHand
	if g.settings.IncludeInTransitInCalculations {
		covered += stock.InTransit
	}

	var stockout *time.Time
	if rate > 0 {
		days := covered / rate
		ev.DaysRemaining = &days
		if days < maxStockoutHorizonDays {
			stockout = timePtr(addDays(today, int(math.Floor(days))))
		}
		reasoning = append(reasoning, domain.Calculation(roundFloat(days, 2),
			"%.0f units cover %.1f days at %.2f units/day", covered, days, rate))
	} else {
		reasoning = append(reasoning, domain.Warning("Effective daily rate is %.2f, days of stock cannot be computed", rate))
	}
	if g.settings.IncludeInTransitInCalculations && stock.InTransit > 0 {
		reasoning = append(reasoning, domain.Info("Includes %.0f units in transit", stock.InTransit))
	}

	ev.Urgency = g.classifier.Classify(ev.DaysRemaining)

	threshold, err := g.safety.Evaluate(g.index.rule(key), rate)
	if err != nil {
		return nil, err
	}
	ev.Threshold = threshold.Units
	reasoning = append(reasoning, threshold.Reasoning)

	critical := ev.Urgency == domain.UrgencyCritical
	switch {
	case covered >= threshold.Units && !critical:
		ev.Suppressed = fmt.Sprintf("stock %.0f at or above safety threshold %.0f", covered, threshold.Units)
		return ev, nil
	case ev.Urgency == domain.UrgencyMonitor && !g.settings.IncludeMonitorSuggestions:
		ev.Suppressed = "urgency is monitor"
		return ev, nil
	case covered >= threshold.Units:
		reasoning = append(reasoning, domain.Warning("Stock %.0f meets the safety threshold of %.0f but urgency is critical",
			covered, threshold.Units))
	default:
		reasoning = append(reasoning, domain.Info("Stock %.0f is below the safety threshold of %.0f",
			covered, threshold.Units))
	}

	target := g.settings.TargetDaysOfCover * math.Max(rate, 0)
	qty := ceilUnits(target - stock.OnHand - stock.InTransit)
	if qty < 1 {
		qty = 1
	}
	reasoning = append(reasoning, domain.Calculation(qty,
		"Recommend %.0f units: %.0f days target cover x %.2f units/day = %.1f, minus %.0f on hand and %.0f in transit",
		qty, g.settings.TargetDaysOfCover, math.Max(rate, 0), target, stock.OnHand, stock.InTransit))

	product, known := g.index.products[key.ProductID]
	if !known {
		reasoning = append(reasoning, domain.Warning("Product %s is not in the catalog", key.ProductID))
	}

	var (
		source domain.Source
		plan   RoutePlan
	)
	cand, ok, err := g.findTransferSource(key, qty, demand)
	if err != nil {
		return nil, err
	}
	if ok {
		plan = g.planner.PlanTransfer(cand.location.ID, key.LocationID, today)
		source = domain.Transfer{
			SourceLocationID: cand.location.ID,
			AvailableQty:     cand.available,
			Route:            plan.Selection(),
		}
		reasoning = append(reasoning, domain.Calculation(cand.available,
			"Transfer from %s, which has %.0f units available above its own safety stock", locationName(cand.location), cand.available))
		reasoning = append(reasoning, domain.Info(
			"Stock at %s is not reserved by this suggestion; other destinations may be offered the same units", locationName(cand.location)))
	} else {
		var supplier *domain.Supplier
		if sp, ok := g.index.suppliers[product.DefaultSupplierID]; ok && product.DefaultSupplierID != "" {
			supplier = &sp
		}

		po := domain.PurchaseOrder{SupplierID: product.DefaultSupplierID}
		switch {
		case supplier == nil:
			reasoning = append(reasoning, domain.Warning("No location can supply %.0f units and product has no known default supplier", qty))
		default:
			reasoning = append(reasoning, domain.Info("No location can supply %.0f units, raising a purchase order", qty))
			po.LeadTimeDays = supplier.LeadTimeDays
			po.MinOrderQty = supplier.MinOrderQty
			if !supplier.IsActive {
				reasoning = append(reasoning, domain.Warning("Default supplier %s is inactive", supplier.ID))
			}
			if supplier.MinOrderQty > qty {
				qty = ceilUnits(supplier.MinOrderQty)
				reasoning = append(reasoning, domain.Calculation(qty,
					"Quantity raised to supplier minimum order of %.0f units", supplier.MinOrderQty))
			}
		}
		plan = g.planner.PlanPurchaseOrder(supplier, today)
		source = po
	}
	reasoning = append(reasoning, plan.Reasoning...)

	sku := product.SKU
	if sku == "" {
		sku = key.ProductID
	}

	ev.Suggestion = &domain.Suggestion{
		ProductID:             key.ProductID,
		SKU:                   sku,
		DestinationLocationID: key.LocationID,
		CurrentStock:          stock.OnHand,
		InTransitQuantity:     stock.InTransit,
		DailySalesRate:        roundFloat(rate, 4),
		DaysOfStockRemaining:  roundedPtr(ev.DaysRemaining, 2),
		StockoutDate:          stockout,
		Urgency:               ev.Urgency,
		SafetyStockThreshold:  threshold.Units,
		RecommendedQty:        qty,
		EstimatedValue:        product.UnitCost.Mul(decimal.NewFromFloat(qty)),
		Source:                source,
		EstimatedArrival:      plan.EstimatedArrival,
		Reasoning:             reasoning,
	}
	return ev, nil
}

type transferCandidate struct {
	location  domain.Location
	available float64
	hasRoute  bool
	transit   int
}

// findTransferSource picks the supplying location able to cover qty: routed
// sources first, then shortest transit, then most available stock.
func (g *Generator) findTransferSource(dest domain.PairKey, qty float64, demand map[domain.PairKey]ForecastResult) (transferCandidate, bool, error) {
	var candidates []transferCandidate
	for _, loc := range g.index.sources {
		if loc.ID == dest.LocationID {
			continue
		}
		key := domain.PairKey{ProductID: dest.ProductID, LocationID: loc.ID}
		stock, ok := g.index.stock[key]
		if !ok || stock.OnHand <= 0 {
			continue
		}

		threshold, err := g.safety.Evaluate(g.index.rule(key), demand[key].EffectiveRate)
		if err != nil {
			return transferCandidate{}, false, err
		}
		available := stock.OnHand - threshold.Units
		if available < qty {
			continue
		}

		c := transferCandidate{location: loc, available: available}
		if route, ok := g.planner.SelectRoute(loc.ID, dest.LocationID); ok {
			c.hasRoute = true
			c.transit = route.TransitDays.Typical
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return transferCandidate{}, false, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.hasRoute != b.hasRoute {
			return a.hasRoute
		}
		if a.transit != b.transit {
			return a.transit < b.transit
		}
		return a.available > b.available
	})
	return candidates[0], true, nil
}

func locationName(l domain.Location) string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}

func roundedPtr(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	return floatPtr(roundFloat(*v, decimals))
}
