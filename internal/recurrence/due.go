package recurrence

import "time"

// NextDueDate returns the next occurrence of a charge that started on startsOn and
// repeats by rule, relative to now.
//
// A start date after today is returned unchanged. Otherwise the result is the first
// occurrence strictly after today, found by counting the whole periods elapsed since
// startsOn, so the cost does not depend on how long ago the charge started.
// Occurrences follow each other, so a day clamped to a short month carries
// forward and the result is never more than one step after today.
func NextDueDate(startsOn Date, rule Rule, now time.Time) Date {
	rule = rule.Normalize()
	today := DateOf(now)
	if startsOn.After(today.Time) {
		return startsOn
	}

	switch rule.Mode {
	case Day, Week:
		step := rule.Interval
		if rule.Mode == Week {
			step *= 7
		}
		n := daysBetween(startsOn, today)/step + 1
		return startsOn.AddDays(n * step)
	default:
		step := rule.Interval
		if rule.Mode == Year {
			step *= 12
		}
		// k is the last occurrence whose month is not after today's month
		k := monthsBetween(startsOn, today) / step
		next := Occurrence(startsOn, Month, step, k)
		if !next.After(today.Time) {
			next = Occurrence(startsOn, Month, step, k+1)
		}
		return next
	}
}

// DueDate parses startsOn and returns its next due date. An unparsable start date
// yields ErrInvalidDate, which callers treat as "due date unknown".
func DueDate(startsOn string, rule Rule, now time.Time) (Date, error) {
	start, err := ParseDate(startsOn)
	if err != nil {
		return Date{}, err
	}
	return NextDueDate(start, rule, now), nil
}
