package intelligence

import (
	"sort"

	"github.com/andresuchdata/replenish/internal/domain"
)

// RankSuggestions sorts suggestions for display: most urgent tier first, then
// fewest days of stock remaining (unknown first), then product and destination.
func RankSuggestions(suggestions []domain.Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return rankLess(suggestions[i], suggestions[j])
	})
}

func rankLess(a, b domain.Suggestion) bool {
	if ra, rb := a.Urgency.Rank(), b.Urgency.Rank(); ra != rb {
		return ra < rb
	}

	switch da, db := a.DaysOfStockRemaining, b.DaysOfStockRemaining; {
	case da == nil && db != nil:
		return true
	case da != nil && db == nil:
		return false
	case da != nil && db != nil && *da != *db:
		return *da < *db
	}

	if a.ProductID != b.ProductID {
		return a.ProductID < b.ProductID
	}
	if a.DestinationLocationID != b.DestinationLocationID {
		return a.DestinationLocationID < b.DestinationLocationID
	}
	return a.Type() < b.Type()
}
