package core

import "time"

// NextRecurringDate advances a date by one recurrence interval. MONTHLY and
// YEARLY keep the day-of-month, clamped to the target month's length
// (Jan 31 -> Feb 29 on leap years, Feb 29 -> Feb 28 the year after).
func NextRecurringDate(from time.Time, interval RecurringInterval) time.Time {
	switch interval {
	case Daily:
		return from.AddDate(0, 0, 1)
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Monthly:
		return addMonthsClamped(from, 1)
	case Yearly:
		return addYearsClamped(from, 1)
	}
	return time.Time{}
}

// Due reports whether a recurring transaction should be regenerated at now.
// The lastProcessed guard keeps a cycle from being processed twice when the
// scheduler fires again before the source row is advanced.
func (t Transaction) Due(now time.Time) bool {
	if !t.IsRecurring || t.Status != StatusCompleted || t.NextRecurringDate.IsZero() {
		return false
	}
	if t.NextRecurringDate.After(now) {
		return false
	}
	return t.LastProcessed.IsZero() || t.LastProcessed.Before(t.NextRecurringDate)
}

func addMonthsClamped(from time.Time, months int) time.Time {
	year, month, day := from.Date()
	m := int(month) + months
	y := year + (m-1)/12
	m = (m-1)%12 + 1
	if last := daysInMonth(y, time.Month(m)); day > last {
		day = last
	}
	h, min, sec := from.Clock()
	return time.Date(y, time.Month(m), day, h, min, sec, from.Nanosecond(), from.Location())
}

func addYearsClamped(from time.Time, years int) time.Time {
	year, month, day := from.Date()
	y := year + years
	if last := daysInMonth(y, month); day > last {
		day = last
	}
	h, min, sec := from.Clock()
	return time.Date(y, month, day, h, min, sec, from.Nanosecond(), from.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameMonth reports whether two instants fall in the same calendar month.
// A zero first argument counts as an earlier month.
func SameMonth(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthRange returns the first instant of the month containing t and the
// first instant of the following month, for half-open range queries.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
