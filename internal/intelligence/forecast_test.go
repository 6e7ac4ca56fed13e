package intelligence

import (
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

func newCalculator(t *testing.T, adjustments ...domain.ForecastAdjustment) *ForecastCalculator {
	t.Helper()
	r, err := NewAdjustmentResolver(adjustments)
	if err != nil {
		t.Fatalf("NewAdjustmentResolver: %v", err)
	}
	return NewForecastCalculator(r, domain.DefaultSettings())
}

func TestForecastExcludesAdjustedDays(t *testing.T) {
	today := day(2025, 12, 1)
	history := steadyHistory("p-1", "store-1", today, 30, 10)
	for i := range history {
		if d := history[i].Date.Day(); d >= 25 && d <= 29 {
			history[i].UnitsSold = 100
		}
	}
	f := domain.SalesForecast{ProductID: "p-1", LocationID: "store-1", IsEnabled: true}

	plain, err := newCalculator(t).Calculate(f, history, today)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if plain.Observations != 30 || !approx(plain.BaseRate, 25) {
		t.Fatalf("without exclusion: observations=%d base=%v, want 30 and 25", plain.Observations, plain.BaseRate)
	}

	calc := newCalculator(t, domain.ForecastAdjustment{
		Name:      "black friday",
		StartDate: day(2025, 11, 25),
		EndDate:   day(2025, 11, 29),
		Effect:    domain.EffectExclude,
	})
	got, err := calc.Calculate(f, history, today)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.Observations != 25 {
		t.Errorf("observations = %d, want 25", got.Observations)
	}
	if got.ExcludedDays != 5 {
		t.Errorf("excluded days = %d, want 5", got.ExcludedDays)
	}
	if !approx(got.BaseRate, 10) || !approx(got.EffectiveRate, 10) {
		t.Errorf("base=%v effective=%v, want 10", got.BaseRate, got.EffectiveRate)
	}
	if got.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", got.Confidence)
	}
}

func TestForecastConfidenceTiers(t *testing.T) {
	today := day(2025, 6, 15)
	tests := []struct {
		days int
		want domain.Confidence
	}{
		{0, domain.ConfidenceLow},
		{6, domain.ConfidenceLow},
		{7, domain.ConfidenceMedium},
		{21, domain.ConfidenceMedium},
		{22, domain.ConfidenceHigh},
		{30, domain.ConfidenceHigh},
	}

	calc := newCalculator(t)
	for _, tt := range tests {
		history := steadyHistory("p-1", "store-1", today, tt.days, 3)
		got, err := calc.Calculate(domain.SalesForecast{ProductID: "p-1", LocationID: "store-1"}, history, today)
		if err != nil {
			t.Fatalf("Calculate: %v", err)
		}
		if got.Observations != tt.days {
			t.Errorf("%d days: observations = %d", tt.days, got.Observations)
		}
		if got.Confidence != tt.want {
			t.Errorf("%d days: confidence = %s, want %s", tt.days, got.Confidence, tt.want)
		}
	}
}

func TestForecastWindowBounds(t *testing.T) {
	today := day(2025, 6, 15)
	history := steadyHistory("p-1", "store-1", today, 10, 4)
	history = append(history,
		domain.SalesHistoryEntry{ProductID: "p-1", LocationID: "store-1", Date: today, UnitsSold: 1000},
		domain.SalesHistoryEntry{ProductID: "p-1", LocationID: "store-1", Date: today.AddDate(0, 0, -31), UnitsSold: 1000},
	)

	got, err := newCalculator(t).Calculate(domain.SalesForecast{ProductID: "p-1", LocationID: "store-1"}, history, today)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.Observations != 10 || !approx(got.BaseRate, 4) {
		t.Errorf("observations=%d base=%v, want 10 and 4", got.Observations, got.BaseRate)
	}
}

func TestForecastCountsQuietDaysAsZero(t *testing.T) {
	today := day(2025, 6, 15)
	history := []domain.SalesHistoryEntry{
		{ProductID: "p-1", LocationID: "store-1", Date: today.AddDate(0, 0, -10), UnitsSold: 20},
		{ProductID: "p-1", LocationID: "store-1", Date: today.AddDate(0, 0, -10), UnitsSold: 10},
		{ProductID: "p-1", LocationID: "store-1", Date: today.AddDate(0, 0, -1), UnitsSold: 10},
	}

	got, err := newCalculator(t).Calculate(domain.SalesForecast{ProductID: "p-1", LocationID: "store-1"}, history, today)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.Observations != 10 || !approx(got.BaseRate, 4) {
		t.Errorf("observations=%d base=%v, want 10 and 4", got.Observations, got.BaseRate)
	}
}

func TestForecastSeasonalTrendAndAdjustment(t *testing.T) {
	today := day(2025, 12, 10)
	seasonal := make([]float64, 12)
	for i := range seasonal {
		seasonal[i] = 1
	}
	seasonal[11] = 1.5
	boost := 2.0

	calc := newCalculator(t, domain.ForecastAdjustment{
		Name: "holiday push", ProductID: "p-1",
		StartDate: day(2025, 12, 10), EndDate: day(2025, 12, 24),
		Effect: domain.EffectMultiply, Multiplier: &boost,
	})
	f := domain.SalesForecast{ProductID: "p-1", LocationID: "store-1", SeasonalMultipliers: seasonal, TrendRate: 0.1}
	got, err := calc.Calculate(f, steadyHistory("p-1", "store-1", today, 30, 10), today)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if !approx(got.BaseRate, 10) {
		t.Errorf("base = %v, want 10 (multiply adjustments do not touch history)", got.BaseRate)
	}
	if !approx(got.EffectiveRate, 10*1.5*1.1*2) {
		t.Errorf("effective = %v, want %v", got.EffectiveRate, 10*1.5*1.1*2)
	}
	if got.SeasonalMultiplier != 1.5 || !approx(got.TrendMultiplier, 1.1) || got.AdjustmentMultiplier != 2 {
		t.Errorf("multipliers = %v/%v/%v", got.SeasonalMultiplier, got.TrendMultiplier, got.AdjustmentMultiplier)
	}
}

func TestForecastManualOverride(t *testing.T) {
	today := day(2025, 6, 15)
	calc := newCalculator(t)

	override := 3.0
	f := domain.SalesForecast{ProductID: "p-1", LocationID: "store-1", ManualOverride: &override, TrendRate: 0.5}
	got, err := calc.Calculate(f, steadyHistory("p-1", "store-1", today, 5, 10), today)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !got.Overridden || got.EffectiveRate != 3 {
		t.Errorf("overridden=%v effective=%v, want override of 3", got.Overridden, got.EffectiveRate)
	}
	if got.Confidence != domain.ConfidenceLow {
		t.Errorf("confidence = %s, override must not change the tier", got.Confidence)
	}

	zero := 0.0
	f.ManualOverride = &zero
	got, err = calc.Calculate(f, steadyHistory("p-1", "store-1", today, 5, 10), today)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.Overridden || !approx(got.EffectiveRate, 15) {
		t.Errorf("zero override: overridden=%v effective=%v, want computed 15", got.Overridden, got.EffectiveRate)
	}
}

func TestForecastWithoutHistory(t *testing.T) {
	got, err := newCalculator(t).Calculate(domain.SalesForecast{ProductID: "p-1", LocationID: "store-1"}, nil, day(2025, 6, 15))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got.EffectiveRate != 0 || got.Confidence != domain.ConfidenceLow {
		t.Errorf("effective=%v confidence=%s, want 0 and low", got.EffectiveRate, got.Confidence)
	}
	if !hasReasoning(got.Reasoning, domain.ReasoningWarning) {
		t.Error("expected a warning reasoning item for missing history")
	}
}

func TestForecastRejectsBadSeasonality(t *testing.T) {
	f := domain.SalesForecast{ProductID: "p-1", LocationID: "store-1", SeasonalMultipliers: []float64{1, 1, 1}}
	_, err := newCalculator(t).Calculate(f, nil, day(2025, 6, 15))
	if !errors.Is(err, ErrInvalidForecast) {
		t.Fatalf("err = %v, want ErrInvalidForecast", err)
	}
}

func TestApplyForecast(t *testing.T) {
	now := day(2025, 6, 15).Add(9 * time.Hour)
	res := ForecastResult{BaseRate: 3.33333333, EffectiveRate: 4.123456, Confidence: domain.ConfidenceMedium, Observations: 12, ExcludedDays: 2}

	got := ApplyForecast(domain.SalesForecast{ProductID: "p-1", LocationID: "store-1", IsEnabled: true}, res, now)
	if got.DailyRate != 3.3333 || got.EffectiveRate != 4.1235 {
		t.Errorf("rates = %v/%v, want rounded to 4 places", got.DailyRate, got.EffectiveRate)
	}
	if got.CalculatedAt == nil || !got.CalculatedAt.Equal(now) {
		t.Errorf("calculated at = %v, want %v", got.CalculatedAt, now)
	}
	if !got.IsEnabled || got.Observations != 12 || got.ExcludedDays != 2 {
		t.Errorf("forecast = %+v", got)
	}
}
