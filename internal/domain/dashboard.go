package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UrgencyCounts counts active suggestions per urgency tier
type UrgencyCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Planned  int `json:"planned"`
	Monitor  int `json:"monitor"`
}

// Total returns the number of counted suggestions
func (c UrgencyCounts) Total() int {
	return c.Critical + c.Warning + c.Planned + c.Monitor
}

// LocationHealth summarises the replenishment state of one location
type LocationHealth struct {
	LocationID    string          `json:"location_id"`
	LocationName  string          `json:"location_name"`
	TotalProducts int             `json:"total_products"`
	CriticalCount int             `json:"critical_count"`
	WarningCount  int             `json:"warning_count"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// DashboardSummary aggregates one calculation run for reporting
type DashboardSummary struct {
	ByUrgency              UrgencyCounts    `json:"by_urgency"`
	ActiveCount            int              `json:"active_count"`
	SnoozedCount           int              `json:"snoozed_count"`
	TransferCount          int              `json:"transfer_count"`
	PurchaseOrderCount     int              `json:"purchase_order_count"`
	RecentlyDismissed      int              `json:"recently_dismissed"`
	RecentlySnoozed        int              `json:"recently_snoozed"`
	RecentlyAccepted       int              `json:"recently_accepted"`
	TotalRecommendedValue  decimal.Decimal  `json:"total_recommended_value"`
	Locations              []LocationHealth `json:"locations"`
	LastCalculatedAt       time.Time        `json:"last_calculated_at"`
	RecentActivityLookback int              `json:"recent_activity_lookback_days"`
}
