package domain

import "github.com/shopspring/decimal"

// TransitDays is the min/typical/max transit duration of a route in days
type TransitDays struct {
	Min     int `json:"min"`
	Typical int `json:"typical"`
	Max     int `json:"max"`
}

// RouteCosts are the shipping costs of a route
type RouteCosts struct {
	PerUnit decimal.Decimal `json:"per_unit"`
	Fixed   decimal.Decimal `json:"fixed"`
}

// ShippingRoute connects two locations with a shipping method.
// At most one route per origin/destination pair may be the default.
type ShippingRoute struct {
	ID             string      `json:"id"`
	FromLocationID string      `json:"from_location_id"`
	ToLocationID   string      `json:"to_location_id"`
	Method         string      `json:"method"`
	TransitDays    TransitDays `json:"transit_days"`
	Costs          RouteCosts  `json:"costs"`
	IsActive       bool        `json:"is_active"`
	IsDefault      bool        `json:"is_default"`
}
