package service

import (
	"math"
	"time"
)

// ComputeCostCents turns a reservation's time span and the lot's hourly
// price into a cost in whole cents:
//
//	cost = (seconds elapsed / 3600) * price per hour
//
// rounded half-up to the nearest cent. The function is pure and
// deterministic; it returns ErrInvalidInterval when end precedes start.
func ComputeCostCents(start, end time.Time, priceCentsPerHour uint32) (int64, error) {
	if end.Before(start) {
		return 0, ErrInvalidInterval
	}
	seconds := int64(end.Sub(start) / time.Second)
	// Integer half-up rounding: both operands are non-negative.
	return (seconds*int64(priceCentsPerHour) + 1800) / 3600, nil
}

// DurationHours returns the span between start and end in hours,
// rounded to two decimals for display. Callers must pass end >= start.
func DurationHours(start, end time.Time) float64 {
	h := end.Sub(start).Hours()
	return math.Round(h*100) / 100
}
