package intelligence

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/domain"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// steadyHistory returns one entry per day for the n days before today
func steadyHistory(productID, locationID string, today time.Time, n int, units float64) []domain.SalesHistoryEntry {
	out := make([]domain.SalesHistoryEntry, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, domain.SalesHistoryEntry{
			ProductID:  productID,
			LocationID: locationID,
			Date:       today.AddDate(0, 0, -i),
			UnitsSold:  units,
			Source:     "pos",
		})
	}
	return out
}

// storeSnapshot has one product sold at one store at 10 units/day over the
// last 30 days, 50 units on hand and a purchase-order supplier with a 7 day lead time.
func storeSnapshot(today time.Time) domain.Snapshot {
	return domain.Snapshot{
		CapturedAt: today,
		Products: []domain.Product{
			{ID: "p-1", SKU: "SKU-1", Name: "Widget", DefaultSupplierID: "sup-1", UnitCost: decimal.NewFromFloat(2.5)},
		},
		Locations: []domain.Location{
			{ID: "store-1", Name: "Store One", Kind: domain.LocationStore, IsActive: true},
		},
		Suppliers: []domain.Supplier{
			{ID: "sup-1", Name: "Acme", LeadTimeDays: 7, IsActive: true},
		},
		StockLevels: []domain.StockLevel{
			{ProductID: "p-1", LocationID: "store-1", OnHand: 50},
		},
		SalesHistory: steadyHistory("p-1", "store-1", today, 30, 10),
		Forecasts: []domain.SalesForecast{
			{ProductID: "p-1", LocationID: "store-1", IsEnabled: true},
		},
	}
}

// withWarehouse adds a supplying warehouse holding onHand units of p-1 and a
// default 3 day route to store-1.
func withWarehouse(s domain.Snapshot, onHand float64) domain.Snapshot {
	s.Locations = append(s.Locations, domain.Location{
		ID: "wh-1", Name: "Central", Kind: domain.LocationWarehouse, IsActive: true, CanSupply: true,
	})
	s.StockLevels = append(s.StockLevels, domain.StockLevel{ProductID: "p-1", LocationID: "wh-1", OnHand: onHand})
	s.Routes = append(s.Routes, domain.ShippingRoute{
		ID: "r-wh-store", FromLocationID: "wh-1", ToLocationID: "store-1", Method: "truck",
		TransitDays: domain.TransitDays{Min: 2, Typical: 3, Max: 5}, IsActive: true, IsDefault: true,
	})
	return s
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("sg-%03d", n)
	}
}

func hasReasoning(items []domain.ReasoningItem, typ domain.ReasoningType) bool {
	for _, it := range items {
		if it.Type == typ {
			return true
		}
	}
	return false
}
