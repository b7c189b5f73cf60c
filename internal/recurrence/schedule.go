package recurrence

import "time"

// Horizon returns the exclusive end of the one-year schedule window for now.
func Horizon(now time.Time) Date {
	return DateOf(now).AddMonths(12)
}

// Expand lists every occurrence from dueDate (inclusive) up to one year after now
// (exclusive). The result is fully materialized and strictly increasing; a zero
// dueDate yields nil.
func Expand(dueDate Date, rule Rule, now time.Time, opts Options) []Date {
	if dueDate.IsZero() {
		return nil
	}

	rule = rule.Normalize()
	step := opts.step(rule)
	horizon := Horizon(now)

	var dates []Date
	for i := 0; ; i++ {
		d := Occurrence(dueDate, rule.Mode, step, i)
		if !d.Before(horizon.Time) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

// MonthsAhead returns the first day of now's month and of the n-1 months after it.
func MonthsAhead(now time.Time, n int) []Date {
	first := DateOf(now).FirstOfMonth()
	months := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, first.AddMonths(i))
	}
	return months
}

// FirstInMonth returns the first date of dates that falls in month's calendar month.
func FirstInMonth(dates []Date, month Date) (Date, bool) {
	for _, d := range dates {
		if d.SameMonth(month) {
			return d, true
		}
	}
	return Date{}, false
}
