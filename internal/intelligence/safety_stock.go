package intelligence

import (
	"fmt"

	"github.com/andresuchdata/replenish/internal/domain"
)

// SafetyThreshold is a minimum stock level in units and how it was derived
type SafetyThreshold struct {
	Units     float64
	FromRule  bool
	Reasoning domain.ReasoningItem
}

// SafetyStockEvaluator converts safety stock rules into unit thresholds
type SafetyStockEvaluator struct {
	defaultDays float64
}

func NewSafetyStockEvaluator(defaultDays float64) SafetyStockEvaluator {
	return SafetyStockEvaluator{defaultDays: defaultDays}
}

// Evaluate returns the threshold for rule at the given effective daily rate.
// A nil or inactive rule falls back to the default days of cover.
func (e SafetyStockEvaluator) Evaluate(rule *domain.SafetyStockRule, rate float64) (SafetyThreshold, error) {
	if rate < 0 {
		rate = 0
	}

	if rule == nil || !rule.IsActive {
		units := ceilUnits(e.defaultDays * rate)
		return SafetyThreshold{
			Units: units,
			Reasoning: domain.Calculation(units, "Safety threshold %.0f units (default %.0f days of cover at %.2f units/day)",
				units, e.defaultDays, rate),
		}, nil
	}

	if rule.ThresholdValue < 0 {
		return SafetyThreshold{}, fmt.Errorf("%w %s/%s: negative threshold %g",
			ErrInvalidSafetyRule, rule.ProductID, rule.LocationID, rule.ThresholdValue)
	}

	switch rule.ThresholdType {
	case domain.ThresholdUnits:
		return SafetyThreshold{
			Units:     rule.ThresholdValue,
			FromRule:  true,
			Reasoning: domain.Calculation(rule.ThresholdValue, "Safety threshold %.0f units (fixed rule)", rule.ThresholdValue),
		}, nil
	case domain.ThresholdDaysOfCover:
		units := ceilUnits(rule.ThresholdValue * rate)
		return SafetyThreshold{
			Units:    units,
			FromRule: true,
			Reasoning: domain.Calculation(units, "Safety threshold %.0f units (%.0f days of cover at %.2f units/day)",
				units, rule.ThresholdValue, rate),
		}, nil
	default:
		return SafetyThreshold{}, fmt.Errorf("%w %s/%s: unknown threshold type %q",
			ErrInvalidSafetyRule, rule.ProductID, rule.LocationID, rule.ThresholdType)
	}
}
