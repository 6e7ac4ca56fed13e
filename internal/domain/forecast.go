package domain

import (
	"errors"
	"fmt"
	"time"
)

// AdjustmentEffect describes what a forecast adjustment does to the dates it covers
type AdjustmentEffect string

const (
	EffectExclude  AdjustmentEffect = "exclude"
	EffectMultiply AdjustmentEffect = "multiply"
)

// Confidence is the trust level of a computed forecast
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ThresholdType selects how a safety stock rule is expressed
type ThresholdType string

const (
	ThresholdUnits       ThresholdType = "units"
	ThresholdDaysOfCover ThresholdType = "days_of_cover"
)

var ErrInvalidAdjustment = errors.New("invalid forecast adjustment")

// ForecastAdjustment excludes or scales demand on a date range.
// An empty ProductID makes the adjustment account-wide.
type ForecastAdjustment struct {
	ID          string           `json:"id" db:"id"`
	Name        string           `json:"name" db:"name" validate:"required"`
	ProductID   string           `json:"product_id,omitempty" db:"product_id"`
	StartDate   time.Time        `json:"start_date" db:"start_date" validate:"required"`
	EndDate     time.Time        `json:"end_date" db:"end_date" validate:"required"`
	Effect      AdjustmentEffect `json:"effect" db:"effect" validate:"oneof=exclude multiply"`
	Multiplier  *float64         `json:"multiplier,omitempty" db:"multiplier" validate:"omitempty,gte=0"`
	IsRecurring bool             `json:"is_recurring" db:"is_recurring"`
	Notes       string           `json:"notes,omitempty" db:"notes"`
}

// IsAccountWide reports whether the adjustment applies to every product
func (a ForecastAdjustment) IsAccountWide() bool {
	return a.ProductID == ""
}

// Validate checks the adjustment invariants
func (a ForecastAdjustment) Validate() error {
	if err := ValidateStruct(a); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidAdjustment, a.Name, err)
	}
	if a.EndDate.Before(a.StartDate) {
		return fmt.Errorf("%w %q: end date %s is before start date %s",
			ErrInvalidAdjustment, a.Name, a.EndDate.Format("2006-01-02"), a.StartDate.Format("2006-01-02"))
	}
	switch a.Effect {
	case EffectMultiply:
		if a.Multiplier == nil {
			return fmt.Errorf("%w %q: multiply effect requires a multiplier", ErrInvalidAdjustment, a.Name)
		}
	case EffectExclude:
		if a.Multiplier != nil {
			return fmt.Errorf("%w %q: multiplier given with exclude effect", ErrInvalidAdjustment, a.Name)
		}
	}
	return nil
}

// SalesForecast holds the demand parameters of one product/location pair.
// DailyRate, Confidence and the computed fields are owned by the forecast calculator.
type SalesForecast struct {
	ProductID           string     `json:"product_id" db:"product_id"`
	LocationID          string     `json:"location_id" db:"location_id"`
	DailyRate           float64    `json:"daily_rate" db:"daily_rate"`
	Confidence          Confidence `json:"confidence" db:"confidence"`
	SeasonalMultipliers []float64  `json:"seasonal_multipliers" db:"-"`
	TrendRate           float64    `json:"trend_rate" db:"trend_rate"`
	ManualOverride      *float64   `json:"manual_override,omitempty" db:"manual_override"`
	IsEnabled           bool       `json:"is_enabled" db:"is_enabled"`

	EffectiveRate float64    `json:"effective_rate" db:"effective_rate"`
	Observations  int        `json:"observations" db:"observations"`
	ExcludedDays  int        `json:"excluded_days" db:"excluded_days"`
	CalculatedAt  *time.Time `json:"calculated_at,omitempty" db:"calculated_at"`
}

// Key returns the product/location pair of the forecast
func (f SalesForecast) Key() PairKey {
	return PairKey{ProductID: f.ProductID, LocationID: f.LocationID}
}

// HasOverride reports whether a manual override supersedes the computed rate
func (f SalesForecast) HasOverride() bool {
	return f.ManualOverride != nil && *f.ManualOverride != 0
}

// SafetyStockRule sets the minimum stock level of a product at a location
type SafetyStockRule struct {
	ProductID      string        `json:"product_id" db:"product_id"`
	LocationID     string        `json:"location_id" db:"location_id"`
	ThresholdType  ThresholdType `json:"threshold_type" db:"threshold_type"`
	ThresholdValue float64       `json:"threshold_value" db:"threshold_value"`
	IsActive       bool          `json:"is_active" db:"is_active"`
}
