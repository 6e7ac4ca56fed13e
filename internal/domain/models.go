// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocationKind distinguishes warehouses from selling locations
type LocationKind string

const (
	LocationWarehouse LocationKind = "warehouse"
	LocationStore     LocationKind = "store"
)

// Location represents a stock-holding location
type Location struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Kind      LocationKind `json:"kind" db:"kind"`
	IsActive  bool         `json:"is_active" db:"is_active"`
	CanSupply bool         `json:"can_supply" db:"can_supply"` // may act as a transfer source
}

// Product represents a stocked item
type Product struct {
	ID                string          `json:"id" db:"id"`
	SKU               string          `json:"sku" db:"sku"`
	Name              string          `json:"name" db:"name"`
	DefaultSupplierID string          `json:"default_supplier_id" db:"default_supplier_id"`
	UnitCost          decimal.Decimal `json:"unit_cost" db:"unit_cost"`
}

// Supplier represents an external vendor purchase orders are raised against
type Supplier struct {
	ID           string  `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	LeadTimeDays int     `json:"lead_time_days" db:"lead_time_days"`
	MinOrderQty  float64 `json:"min_order_qty" db:"min_order_qty"`
	IsActive     bool    `json:"is_active" db:"is_active"`
}

// StockLevel is the stock position of a product at a location
type StockLevel struct {
	ProductID  string  `json:"product_id" db:"product_id"`
	LocationID string  `json:"location_id" db:"location_id"`
	OnHand     float64 `json:"on_hand" db:"on_hand"`
	InTransit  float64 `json:"in_transit" db:"in_transit"`
}

// SalesHistoryEntry is a single day of sales for a product at a location
type SalesHistoryEntry struct {
	ProductID  string    `json:"product_id" db:"product_id"`
	LocationID string    `json:"location_id" db:"location_id"`
	Date       time.Time `json:"date" db:"sale_date"`
	UnitsSold  float64   `json:"units_sold" db:"units_sold"`
	Source     string    `json:"source" db:"source"`
}

// PairKey identifies a product/location pair
type PairKey struct {
	ProductID  string
	LocationID string
}

// Snapshot is the immutable input of a calculation run
type Snapshot struct {
	CapturedAt       time.Time            `json:"captured_at"`
	Products         []Product            `json:"products"`
	Locations        []Location           `json:"locations"`
	Suppliers        []Supplier           `json:"suppliers"`
	StockLevels      []StockLevel         `json:"stock_levels"`
	SalesHistory     []SalesHistoryEntry  `json:"sales_history"`
	Adjustments      []ForecastAdjustment `json:"adjustments"`
	Forecasts        []SalesForecast      `json:"forecasts"`
	SafetyStockRules []SafetyStockRule    `json:"safety_stock_rules"`
	Routes           []ShippingRoute      `json:"routes"`
}
