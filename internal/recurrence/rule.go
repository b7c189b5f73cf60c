package recurrence

import (
	"strings"
	"time"
)

// RepeatMode is the calendar unit of a billing cadence.
type RepeatMode string

const (
	Day   RepeatMode = "day"
	Week  RepeatMode = "week"
	Month RepeatMode = "month"
	Year  RepeatMode = "year"
)

// Modes lists the supported repeat modes, shortest first.
var Modes = []RepeatMode{Day, Week, Month, Year}

var modeAliases = map[string]RepeatMode{
	"day":     Day,
	"daily":   Day,
	"week":    Week,
	"weekly":  Week,
	"month":   Month,
	"monthly": Month,
	"year":    Year,
	"yearly":  Year,
	"annual":  Year,
}

// ParseRepeatMode maps s to a repeat mode. Unknown values fall back to Month and
// known is false, so callers can warn about suspicious data instead of failing.
func ParseRepeatMode(s string) (mode RepeatMode, known bool) {
	if m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, true
	}
	return Month, false
}

// Rule describes how often a charge repeats: every Interval units of Mode.
type Rule struct {
	Mode     RepeatMode
	Interval int
}

// Every returns a rule repeating every n units of mode.
func Every(n int, mode RepeatMode) Rule {
	return Rule{Mode: mode, Interval: n}
}

// Normalize resolves unknown modes to Month and intervals below 1 to 1.
func (r Rule) Normalize() Rule {
	mode, _ := ParseRepeatMode(string(r.Mode))
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	return Rule{Mode: mode, Interval: interval}
}

// Options tweak the projections that historically ignored the repeat interval.
type Options struct {
	// HonorInterval makes ProjectAverages, RemainingAmounts and Expand take the
	// repeat interval into account. When false (the legacy behaviour) a charge
	// billed every 2 months is projected as if it were billed monthly.
	HonorInterval bool
}

func (o Options) step(r Rule) int {
	if o.HonorInterval {
		return r.Interval
	}
	return 1
}

// Add returns d advanced by n units of mode.
func Add(d Date, mode RepeatMode, n int) Date {
	switch mode {
	case Day:
		return d.AddDays(n)
	case Week:
		return d.AddDays(7 * n)
	case Year:
		return d.AddMonths(12 * n)
	default:
		return d.AddMonths(n)
	}
}

// Occurrence returns the k-th occurrence after start for a cadence of step units
// of mode, as if each occurrence were derived from the previous one. A day clamped
// to a short month therefore carries forward: Jan 31 monthly gives Feb 29, Mar 29.
func Occurrence(start Date, mode RepeatMode, step, k int) Date {
	switch mode {
	case Day, Week:
		return Add(start, mode, step*k)
	case Year:
		step *= 12
	}
	month := start.FirstOfMonth().AddMonths(step * k)
	day := min(chainedDay(start, step, k), DaysIn(month.Year(), month.Month()))
	return NewDate(month.Year(), month.Month(), day)
}

// chainedDay is start's day clamped to the shortest month among the first k
// occurrences. Month lengths repeat once twelve steps have passed, unless
// February is among them.
func chainedDay(start Date, stepMonths, k int) int {
	day := start.Day()
	first := start.FirstOfMonth()
	februaries := false
	for j := 1; j <= k && day > 28; j++ {
		m := first.AddMonths(j * stepMonths)
		if m.Month() == time.February {
			februaries = true
		}
		day = min(day, DaysIn(m.Year(), m.Month()))
		if j >= 12 && !februaries {
			break
		}
	}
	return day
}
