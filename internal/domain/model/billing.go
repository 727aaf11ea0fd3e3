package model

import "time"

// NextBillingDate advances from by interval billing periods. Month and year
// arithmetic is calendar-aware: a day-of-month past the end of the target
// month clamps to that month's last day, so Jan 31 + 1 month lands on
// Feb 28/29 rather than normalizing into March.
func NextBillingDate(from time.Time, interval int, period PlanPeriod) time.Time {
	if interval <= 0 {
		interval = 1
	}
	switch period {
	case PlanPeriodYearly:
		return addMonthsClamped(from, 12*interval)
	default:
		return addMonthsClamped(from, interval)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	// First of the target month, then clamp the day.
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
