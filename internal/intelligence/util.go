package intelligence

import (
	"math"
	"time"
)

// ceilEpsilon absorbs float noise such as 14*0.1 = 1.4000000000000001 before rounding up.
const ceilEpsilon = 1e-9

// dateOnly truncates t to its calendar date, expressed in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// addDays returns the calendar date n days after t.
func addDays(t time.Time, n int) time.Time {
	return dateOnly(t).AddDate(0, 0, n)
}

// ceilUnits rounds a unit quantity up to the next whole unit.
func ceilUnits(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Ceil(v - ceilEpsilon)
}

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

func floatPtr(v float64) *float64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
