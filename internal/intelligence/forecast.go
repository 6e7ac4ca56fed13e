package intelligence

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ForecastResult is the outcome of one forecast calculation
type ForecastResult struct {
	Key                  domain.PairKey
	BaseRate             float64
	EffectiveRate        float64
	Confidence           domain.Confidence
	Observations         int
	ExcludedDays         int
	SeasonalMultiplier   float64
	TrendMultiplier      float64
	AdjustmentMultiplier float64
	Overridden           bool
	Reasoning            []domain.ReasoningItem
}

// ForecastCalculator derives daily demand from sales history
type ForecastCalculator struct {
	resolver *AdjustmentResolver
	settings domain.IntelligenceSettings
}

func NewForecastCalculator(resolver *AdjustmentResolver, settings domain.IntelligenceSettings) *ForecastCalculator {
	return &ForecastCalculator{resolver: resolver, settings: settings}
}

// Calculate computes the base and effective daily rate of a forecast as of today.
// history must hold the entries of the forecast's pair; entries outside the
// window ending the day before today are ignored.
func (c *ForecastCalculator) Calculate(f domain.SalesForecast, history []domain.SalesHistoryEntry, today time.Time) (ForecastResult, error) {
	res := ForecastResult{
		Key:                  f.Key(),
		SeasonalMultiplier:   1,
		TrendMultiplier:      1,
		AdjustmentMultiplier: 1,
	}

	if n := len(f.SeasonalMultipliers); n != 0 && n != 12 {
		return res, fmt.Errorf("%w %s/%s: %d seasonal multipliers, want 12",
			ErrInvalidForecast, f.ProductID, f.LocationID, n)
	}

	today = dateOnly(today)
	windowDays := c.settings.HistoryWindowDays
	windowStart := addDays(today, -windowDays)
	windowEnd := addDays(today, -1)

	daily := make(map[time.Time]float64)
	var first time.Time
	for _, e := range history {
		d := dateOnly(e.Date)
		if d.Before(windowStart) || d.After(windowEnd) {
			continue
		}
		daily[d] += e.UnitsSold
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}

	var total float64
	if !first.IsZero() {
		for d := first; !d.After(windowEnd); d = d.AddDate(0, 0, 1) {
			if c.resolver.Resolve(f.ProductID, d).Excluded {
				res.ExcludedDays++
				continue
			}
			total += daily[d]
			res.Observations++
		}
	}
	if res.Observations > 0 {
		res.BaseRate = total / float64(res.Observations)
	}
	res.Confidence = c.confidence(res.Observations)

	switch {
	case first.IsZero():
		res.Reasoning = append(res.Reasoning,
			domain.Warning("No sales history in the last %d days", windowDays))
	case res.Observations == 0:
		res.Reasoning = append(res.Reasoning,
			domain.Warning("All %d days of sales history are excluded by forecast adjustments", res.ExcludedDays))
	default:
		res.Reasoning = append(res.Reasoning,
			domain.Calculation(roundFloat(res.BaseRate, 2), "Base rate %.2f units/day from %d days of sales history",
				res.BaseRate, res.Observations))
	}
	if res.ExcludedDays > 0 && res.Observations > 0 {
		res.Reasoning = append(res.Reasoning,
			domain.Info("%d days excluded from history by forecast adjustments", res.ExcludedDays))
	}
	if res.Observations > 0 && res.Confidence == domain.ConfidenceLow {
		res.Reasoning = append(res.Reasoning,
			domain.Warning("Only %d days of usable history, forecast confidence is low", res.Observations))
	}

	if len(f.SeasonalMultipliers) == 12 {
		res.SeasonalMultiplier = f.SeasonalMultipliers[today.Month()-1]
		if res.SeasonalMultiplier != 1 {
			res.Reasoning = append(res.Reasoning,
				domain.Calculation(res.SeasonalMultiplier, "Seasonal multiplier for %s: x%.2f",
					today.Month(), res.SeasonalMultiplier))
		}
	}

	res.TrendMultiplier = 1 + f.TrendRate
	if f.TrendRate != 0 {
		res.Reasoning = append(res.Reasoning,
			domain.Calculation(f.TrendRate, "Trend adjustment %+.1f%%", f.TrendRate*100))
	}

	if effect := c.resolver.Resolve(f.ProductID, today); !effect.Excluded && effect.Multiplier != 1 {
		res.AdjustmentMultiplier = effect.Multiplier
		item := domain.Calculation(effect.Multiplier, "Forecast adjustments active today scale demand by x%.2f", effect.Multiplier)
		item.Detail = strings.Join(effect.Applied, ", ")
		res.Reasoning = append(res.Reasoning, item)
	}

	res.EffectiveRate = res.BaseRate * res.SeasonalMultiplier * res.TrendMultiplier * res.AdjustmentMultiplier

	if f.HasOverride() {
		computed := res.EffectiveRate
		res.EffectiveRate = *f.ManualOverride
		res.Overridden = true
		res.Reasoning = append(res.Reasoning,
			domain.Info("Manual override of %.2f units/day replaces the computed rate of %.2f", res.EffectiveRate, computed))
	}

	res.Reasoning = append(res.Reasoning,
		domain.Calculation(roundFloat(res.EffectiveRate, 4), "Effective daily rate %.2f units/day (%s confidence)",
			res.EffectiveRate, res.Confidence))

	return res, nil
}

func (c *ForecastCalculator) confidence(observations int) domain.Confidence {
	switch {
	case observations < c.settings.MinObservationsMedium:
		return domain.ConfidenceLow
	case observations <= c.settings.MinObservationsHigh:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceHigh
	}
}

// ApplyForecast copies computed figures onto the forecast record
func ApplyForecast(f domain.SalesForecast, res ForecastResult, calculatedAt time.Time) domain.SalesForecast {
	f.DailyRate = roundFloat(res.BaseRate, 4)
	f.EffectiveRate = roundFloat(res.EffectiveRate, 4)
	f.Confidence = res.Confidence
	f.Observations = res.Observations
	f.ExcludedDays = res.ExcludedDays
	f.CalculatedAt = timePtr(calculatedAt)
	return f
}
