package intelligence

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/domain"
)

// DashboardAggregator folds a suggestion set and stock snapshot into a summary
type DashboardAggregator struct {
	lookbackDays int
}

func NewDashboardAggregator(lookbackDays int) DashboardAggregator {
	return DashboardAggregator{lookbackDays: lookbackDays}
}

// Aggregate builds the complete summary of a run at time now
func (a DashboardAggregator) Aggregate(suggestions []domain.Suggestion, snapshot domain.Snapshot, now time.Time) domain.DashboardSummary {
	summary := domain.DashboardSummary{
		TotalRecommendedValue:  decimal.Zero,
		LastCalculatedAt:       now,
		RecentActivityLookback: a.lookbackDays,
	}
	since := now.AddDate(0, 0, -a.lookbackDays)
	recent := func(s domain.Suggestion) bool {
		return s.StatusChangedAt != nil && !s.StatusChangedAt.Before(since) && !s.StatusChangedAt.After(now)
	}

	health := make(map[string]*domain.LocationHealth)
	location := func(id string) *domain.LocationHealth {
		h, ok := health[id]
		if !ok {
			h = &domain.LocationHealth{LocationID: id, LocationName: id, TotalValue: decimal.Zero}
			health[id] = h
		}
		return h
	}
	for _, l := range snapshot.Locations {
		h := location(l.ID)
		if l.Name != "" {
			h.LocationName = l.Name
		}
	}

	costs := make(map[string]decimal.Decimal, len(snapshot.Products))
	for _, p := range snapshot.Products {
		costs[p.ID] = p.UnitCost
	}
	for _, st := range snapshot.StockLevels {
		h := location(st.LocationID)
		h.TotalProducts++
		h.TotalValue = h.TotalValue.Add(costs[st.ProductID].Mul(decimal.NewFromFloat(st.OnHand)))
	}

	for _, s := range suggestions {
		switch s.Status {
		case domain.StatusActive:
			summary.ActiveCount++
			summary.TotalRecommendedValue = summary.TotalRecommendedValue.Add(s.EstimatedValue)
			switch s.Type() {
			case domain.SuggestionTransfer:
				summary.TransferCount++
			case domain.SuggestionPurchaseOrder:
				summary.PurchaseOrderCount++
			}

			h := location(s.DestinationLocationID)
			switch s.Urgency {
			case domain.UrgencyCritical:
				summary.ByUrgency.Critical++
				h.CriticalCount++
			case domain.UrgencyWarning:
				summary.ByUrgency.Warning++
				h.WarningCount++
			case domain.UrgencyPlanned:
				summary.ByUrgency.Planned++
			case domain.UrgencyMonitor:
				summary.ByUrgency.Monitor++
			}
		case domain.StatusSnoozed:
			summary.SnoozedCount++
			if recent(s) {
				summary.RecentlySnoozed++
			}
		case domain.StatusDismissed:
			if recent(s) {
				summary.RecentlyDismissed++
			}
		case domain.StatusAccepted:
			if recent(s) {
				summary.RecentlyAccepted++
			}
		}
	}

	summary.Locations = make([]domain.LocationHealth, 0, len(health))
	for _, h := range health {
		summary.Locations = append(summary.Locations, *h)
	}
	sort.Slice(summary.Locations, func(i, j int) bool {
		return summary.Locations[i].LocationID < summary.Locations[j].LocationID
	})
	return summary
}
