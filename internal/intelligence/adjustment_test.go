package intelligence

import (
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

func TestMatchesRecurring(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		date  time.Time
		want  bool
	}{
		{"wrap start day", day(2023, 12, 20), day(2024, 1, 5), day(2030, 12, 20), true},
		{"wrap dec 31", day(2023, 12, 20), day(2024, 1, 5), day(2030, 12, 31), true},
		{"wrap jan 1", day(2023, 12, 20), day(2024, 1, 5), day(2031, 1, 1), true},
		{"wrap end day", day(2023, 12, 20), day(2024, 1, 5), day(2031, 1, 5), true},
		{"wrap day after end", day(2023, 12, 20), day(2024, 1, 5), day(2031, 1, 6), false},
		{"wrap day before start", day(2023, 12, 20), day(2024, 1, 5), day(2030, 12, 19), false},
		{"wrap mid year", day(2023, 12, 20), day(2024, 1, 5), day(2030, 7, 1), false},
		{"plain range inside", day(2025, 11, 25), day(2025, 11, 29), day(2031, 11, 27), true},
		{"plain range after", day(2025, 11, 25), day(2025, 11, 29), day(2031, 11, 30), false},
		{"single dec 31", day(2023, 12, 31), day(2023, 12, 31), day(2025, 12, 31), true},
		{"single dec 31 next day", day(2023, 12, 31), day(2023, 12, 31), day(2026, 1, 1), false},
		{"single jan 1 previous day", day(2024, 1, 1), day(2024, 1, 1), day(2025, 12, 31), false},
		{"leap start falls on feb 28 in common year", day(2024, 2, 29), day(2024, 3, 3), day(2025, 2, 28), true},
		{"leap start excludes feb 27", day(2024, 2, 29), day(2024, 3, 3), day(2025, 2, 27), false},
		{"single leap day in common year", day(2024, 2, 29), day(2024, 2, 29), day(2025, 2, 28), true},
		{"single leap day not mar 1", day(2024, 2, 29), day(2024, 2, 29), day(2025, 3, 1), false},
		{"single leap day in leap year", day(2024, 2, 29), day(2024, 2, 29), day(2028, 2, 29), true},
		{"single leap day not feb 28 of leap year", day(2024, 2, 29), day(2024, 2, 29), day(2028, 2, 28), false},
		{"leap end in common year", day(2024, 2, 20), day(2024, 2, 29), day(2025, 2, 28), true},
		{"leap start next day", day(2024, 2, 29), day(2024, 3, 3), day(2025, 3, 1), true},
		{"leap day in leap year", day(2024, 2, 29), day(2024, 3, 3), day(2028, 2, 29), true},
		{"february covers leap day", day(2023, 2, 1), day(2023, 2, 28), day(2024, 2, 29), true},
		{"february excludes march", day(2023, 2, 1), day(2023, 2, 28), day(2024, 3, 1), false},
		{"full year", day(2024, 1, 1), day(2024, 12, 31), day(2030, 7, 4), true},
		{"longer than a year", day(2023, 3, 1), day(2024, 3, 5), day(2030, 8, 15), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesRecurring(tt.start, tt.end, tt.date); got != tt.want {
				t.Errorf("MatchesRecurring(%s, %s, %s) = %v, want %v",
					tt.start.Format("2006-01-02"), tt.end.Format("2006-01-02"), tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestMatchesRecurringIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	date := time.Date(2030, 1, 5, 23, 30, 0, 0, loc)
	if !MatchesRecurring(day(2023, 12, 20), day(2024, 1, 5), date) {
		t.Fatal("expected late evening of the end day to match")
	}
}

func TestResolverExcludeDominatesMultiply(t *testing.T) {
	double, half := 2.0, 0.5
	r, err := NewAdjustmentResolver([]domain.ForecastAdjustment{
		{Name: "promo", StartDate: day(2025, 11, 1), EndDate: day(2025, 11, 30), Effect: domain.EffectMultiply, Multiplier: &double},
		{Name: "stock count", ProductID: "p-1", StartDate: day(2025, 11, 10), EndDate: day(2025, 11, 10), Effect: domain.EffectExclude},
		{Name: "slow week", ProductID: "p-1", StartDate: day(2025, 11, 8), EndDate: day(2025, 11, 12), Effect: domain.EffectMultiply, Multiplier: &half},
	})
	if err != nil {
		t.Fatalf("NewAdjustmentResolver: %v", err)
	}

	got := r.Resolve("p-1", day(2025, 11, 10))
	if !got.Excluded {
		t.Fatal("expected exclusion to apply")
	}
	if got.Multiplier != 1 {
		t.Errorf("multiplier = %v on an excluded date, want 1", got.Multiplier)
	}
	if len(got.Applied) != 3 {
		t.Errorf("applied = %v, want all three adjustments", got.Applied)
	}

	got = r.Resolve("p-1", day(2025, 11, 9))
	if got.Excluded || !approx(got.Multiplier, 1.0) {
		t.Errorf("Resolve(p-1, Nov 9) = %+v, want composed multiplier 1.0", got)
	}

	got = r.Resolve("p-2", day(2025, 11, 10))
	if got.Excluded || !approx(got.Multiplier, 2.0) {
		t.Errorf("Resolve(p-2, Nov 10) = %+v, want account-wide multiplier only", got)
	}

	got = r.Resolve("p-1", day(2025, 12, 1))
	if got.Excluded || got.Multiplier != 1 || len(got.Applied) != 0 {
		t.Errorf("Resolve outside every range = %+v, want neutral effect", got)
	}
}

func TestResolverRecurringAcrossYears(t *testing.T) {
	r, err := NewAdjustmentResolver([]domain.ForecastAdjustment{
		{Name: "holidays", StartDate: day(2023, 12, 20), EndDate: day(2024, 1, 5), Effect: domain.EffectExclude, IsRecurring: true},
	})
	if err != nil {
		t.Fatalf("NewAdjustmentResolver: %v", err)
	}

	for _, d := range []time.Time{day(2026, 12, 24), day(2027, 1, 2)} {
		if !r.Resolve("any", d).Excluded {
			t.Errorf("expected %s to be excluded", d.Format("2006-01-02"))
		}
	}
	if r.Resolve("any", day(2027, 1, 6)).Excluded {
		t.Error("expected Jan 6 not to be excluded")
	}
}

func TestNewAdjustmentResolverRejectsInvalid(t *testing.T) {
	m := 1.5
	tests := []struct {
		name string
		adj  domain.ForecastAdjustment
	}{
		{"end before start", domain.ForecastAdjustment{Name: "x", StartDate: day(2025, 2, 1), EndDate: day(2025, 1, 1), Effect: domain.EffectExclude}},
		{"multiplier with exclude", domain.ForecastAdjustment{Name: "x", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 2), Effect: domain.EffectExclude, Multiplier: &m}},
		{"multiply without multiplier", domain.ForecastAdjustment{Name: "x", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 2), Effect: domain.EffectMultiply}},
		{"unknown effect", domain.ForecastAdjustment{Name: "x", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 2), Effect: "boost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdjustmentResolver([]domain.ForecastAdjustment{tt.adj})
			if !errors.Is(err, domain.ErrInvalidAdjustment) {
				t.Fatalf("err = %v, want ErrInvalidAdjustment", err)
			}
		})
	}
}
