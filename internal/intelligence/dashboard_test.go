package intelligence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/domain"
)

func TestDashboardAggregate(t *testing.T) {
	now := day(2025, 6, 10)
	recent := now.Add(-48 * time.Hour)
	old := now.AddDate(0, 0, -30)

	transfer := domain.Transfer{SourceLocationID: "wh-1"}
	po := domain.PurchaseOrder{SupplierID: "sup-1"}
	suggestions := []domain.Suggestion{
		{ID: "a", DestinationLocationID: "store-1", Urgency: domain.UrgencyCritical, Status: domain.StatusActive, Source: po, EstimatedValue: decimal.NewFromInt(100)},
		{ID: "b", DestinationLocationID: "store-1", Urgency: domain.UrgencyWarning, Status: domain.StatusActive, Source: transfer, EstimatedValue: decimal.NewFromInt(50)},
		{ID: "c", DestinationLocationID: "store-2", Urgency: domain.UrgencyPlanned, Status: domain.StatusActive, Source: transfer, EstimatedValue: decimal.NewFromInt(25)},
		{ID: "d", DestinationLocationID: "store-2", Urgency: domain.UrgencyCritical, Status: domain.StatusSnoozed, StatusChangedAt: &recent, Source: po},
		{ID: "e", DestinationLocationID: "store-2", Urgency: domain.UrgencyCritical, Status: domain.StatusDismissed, StatusChangedAt: &recent, Source: po},
		{ID: "f", DestinationLocationID: "store-2", Urgency: domain.UrgencyCritical, Status: domain.StatusDismissed, StatusChangedAt: &old, Source: po},
		{ID: "g", DestinationLocationID: "store-1", Urgency: domain.UrgencyWarning, Status: domain.StatusAccepted, StatusChangedAt: &recent, Source: po},
	}
	snap := domain.Snapshot{
		Products: []domain.Product{{ID: "p-1", UnitCost: decimal.NewFromFloat(1.5)}},
		Locations: []domain.Location{
			{ID: "store-2", Name: "Store Two"},
			{ID: "store-1", Name: "Store One"},
		},
		StockLevels: []domain.StockLevel{
			{ProductID: "p-1", LocationID: "store-1", OnHand: 10},
			{ProductID: "p-1", LocationID: "store-2", OnHand: 4},
			{ProductID: "p-9", LocationID: "store-2", OnHand: 4},
		},
	}

	got := NewDashboardAggregator(7).Aggregate(suggestions, snap, now)

	want := domain.UrgencyCounts{Critical: 1, Warning: 1, Planned: 1}
	if got.ByUrgency != want {
		t.Errorf("by urgency = %+v, want %+v", got.ByUrgency, want)
	}
	if got.ActiveCount != 3 || got.SnoozedCount != 1 || got.TransferCount != 2 || got.PurchaseOrderCount != 1 {
		t.Errorf("counts = %+v", got)
	}
	if got.RecentlySnoozed != 1 || got.RecentlyDismissed != 1 || got.RecentlyAccepted != 1 {
		t.Errorf("recent = snoozed %d dismissed %d accepted %d, want 1 each", got.RecentlySnoozed, got.RecentlyDismissed, got.RecentlyAccepted)
	}
	if !got.TotalRecommendedValue.Equal(decimal.NewFromInt(175)) {
		t.Errorf("total value = %s, want 175", got.TotalRecommendedValue)
	}

	if len(got.Locations) != 2 || got.Locations[0].LocationID != "store-1" {
		t.Fatalf("locations = %+v", got.Locations)
	}
	s1, s2 := got.Locations[0], got.Locations[1]
	if s1.LocationName != "Store One" || s1.TotalProducts != 1 || s1.CriticalCount != 1 || s1.WarningCount != 1 || !s1.TotalValue.Equal(decimal.NewFromInt(15)) {
		t.Errorf("store-1 = %+v", s1)
	}
	if s2.TotalProducts != 2 || s2.CriticalCount != 0 || !s2.TotalValue.Equal(decimal.NewFromInt(6)) {
		t.Errorf("store-2 = %+v", s2)
	}
	if got.RecentActivityLookback != 7 || !got.LastCalculatedAt.Equal(now) {
		t.Errorf("lookback=%d last=%v", got.RecentActivityLookback, got.LastCalculatedAt)
	}
}
