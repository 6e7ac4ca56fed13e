package intelligence

import (
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ResolvedEffect is the combined effect of every adjustment applying to one date.
// Multiplier is meaningful only when Excluded is false.
type ResolvedEffect struct {
	Excluded   bool
	Multiplier float64
	Applied    []string
}

// AdjustmentResolver answers which forecast adjustments apply to a product on a date
type AdjustmentResolver struct {
	accountWide []domain.ForecastAdjustment
	byProduct   map[string][]domain.ForecastAdjustment
}

// NewAdjustmentResolver indexes adjustments by scope. Adjustments are expected to be
// valid already; an invalid one aborts construction.
func NewAdjustmentResolver(adjustments []domain.ForecastAdjustment) (*AdjustmentResolver, error) {
	r := &AdjustmentResolver{
		byProduct: make(map[string][]domain.ForecastAdjustment),
	}
	for _, a := range adjustments {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if a.IsAccountWide() {
			r.accountWide = append(r.accountWide, a)
			continue
		}
		r.byProduct[a.ProductID] = append(r.byProduct[a.ProductID], a)
	}
	return r, nil
}

// Resolve combines the account-wide and product-specific adjustments active on date.
// Any exclusion wins over every multiplier; multipliers compose multiplicatively.
func (r *AdjustmentResolver) Resolve(productID string, date time.Time) ResolvedEffect {
	effect := ResolvedEffect{Multiplier: 1}
	if r == nil {
		return effect
	}

	apply := func(list []domain.ForecastAdjustment) {
		for _, a := range list {
			if !Applies(a, date) {
				continue
			}
			effect.Applied = append(effect.Applied, a.Name)
			switch a.Effect {
			case domain.EffectExclude:
				effect.Excluded = true
			case domain.EffectMultiply:
				effect.Multiplier *= *a.Multiplier
			}
		}
	}
	apply(r.accountWide)
	apply(r.byProduct[productID])

	if effect.Excluded {
		effect.Multiplier = 1
	}
	return effect
}

// Applies reports whether a single adjustment covers date
func Applies(a domain.ForecastAdjustment, date time.Time) bool {
	if a.IsRecurring {
		return MatchesRecurring(a.StartDate, a.EndDate, date)
	}
	d := dateOnly(date)
	return !d.Before(dateOnly(a.StartDate)) && !d.After(dateOnly(a.EndDate))
}

// MatchesRecurring reports whether date falls inside the yearly-recurring range
// start..end, comparing month/day only. Ranges may wrap the year end (Dec 20 - Jan 5).
// A range spanning a full year or more matches every date. A range ending on
// Feb 28 of a non-leap year also covers Feb 29 in leap years, and a Feb 29
// bound falls on Feb 28 in years without one.
func MatchesRecurring(start, end, date time.Time) bool {
	start, end = dateOnly(start), dateOnly(end)
	if !end.Before(start.AddDate(1, 0, -1)) {
		return true
	}

	s, e, d := monthDay(start), monthDay(end), monthDay(date)
	if end.Month() == time.February && end.Day() == 28 && !isLeapYear(end.Year()) {
		e = leapDay
	}
	if !isLeapYear(date.Year()) {
		s, e = commonYearDay(s), commonYearDay(e)
	}

	if s <= e {
		return s <= d && d <= e
	}
	return d >= s || d <= e
}

// month*100 + day of Feb 29 and Feb 28
const (
	leapDay       = 229
	lastFebCommon = 228
)

func monthDay(t time.Time) int {
	return int(t.Month())*100 + t.Day()
}

func commonYearDay(md int) int {
	if md == leapDay {
		return lastFebCommon
	}
	return md
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
