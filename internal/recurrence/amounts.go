package recurrence

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	four         = decimal.NewFromInt(4)
	seven        = decimal.NewFromInt(7)
	twelve       = decimal.NewFromInt(12)
	thirty       = decimal.NewFromInt(30)
	fiftyTwo     = decimal.NewFromInt(52)
	threeSixFive = decimal.NewFromInt(365)
)

// Amounts holds one amount per summary period.
type Amounts struct {
	Week  decimal.Decimal `json:"week"`
	Month decimal.Decimal `json:"month"`
	Year  decimal.Decimal `json:"year"`
}

// ZeroAmounts returns amounts with every period set to zero.
func ZeroAmounts() Amounts {
	return Amounts{Week: decimal.Zero, Month: decimal.Zero, Year: decimal.Zero}
}

// For returns the amount of the given period. Day falls back to Week.
func (a Amounts) For(period RepeatMode) decimal.Decimal {
	switch period {
	case Month:
		return a.Month
	case Year:
		return a.Year
	default:
		return a.Week
	}
}

// Add sums two sets of amounts period by period.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		Week:  a.Week.Add(b.Week),
		Month: a.Month.Add(b.Month),
		Year:  a.Year.Add(b.Year),
	}
}

// ProjectAverages spreads amount over weeks, months and years according to the
// repeat mode. The factors are deliberate approximations (4 weeks per month,
// 30 days per month, 52 weeks and 365 days per year) and must stay that way so
// totals match what users have always seen.
func ProjectAverages(amount decimal.Decimal, rule Rule, opts Options) Amounts {
	rule = rule.Normalize()

	var a Amounts
	switch rule.Mode {
	case Day:
		a = Amounts{Week: amount.Mul(seven), Month: amount.Mul(thirty), Year: amount.Mul(threeSixFive)}
	case Week:
		a = Amounts{Week: amount, Month: amount.Mul(four), Year: amount.Mul(fiftyTwo)}
	case Year:
		a = Amounts{Week: amount.Div(fiftyTwo), Month: amount.Div(twelve), Year: amount}
	default:
		a = Amounts{Week: amount.Div(four), Month: amount, Year: amount.Mul(twelve)}
	}

	if opts.HonorInterval && rule.Interval > 1 {
		n := decimal.NewFromInt(int64(rule.Interval))
		a = Amounts{Week: a.Week.Div(n), Month: a.Month.Div(n), Year: a.Year.Div(n)}
	}
	return a
}

// Boundaries are the exclusive ends of the current week, month and year.
type Boundaries struct {
	WeekEnd  Date
	MonthEnd Date
	YearEnd  Date
}

// BoundariesOf returns the period ends for now's calendar date. Weeks start on
// Monday. The week end is clipped to the month end so the windows always nest.
func BoundariesOf(now time.Time) Boundaries {
	today := DateOf(now)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	b := Boundaries{
		WeekEnd:  today.AddDays(7 - sinceMonday),
		MonthEnd: today.FirstOfMonth().AddMonths(1),
		YearEnd:  NewDate(today.Year()+1, time.January, 1),
	}
	if b.WeekEnd.After(b.MonthEnd.Time) {
		b.WeekEnd = b.MonthEnd
	}
	return b
}

// RemainingAmounts sums the occurrences still due before the end of the current
// week, month and year, starting at dueDate itself. An occurrence inside the week
// is inside the month and the year as well, so it counts towards all three.
//
// dueDate is used as given; deriving it is the caller's job (see NextDueDate).
// A zero dueDate means "unknown" and yields zero amounts.
func RemainingAmounts(amount decimal.Decimal, rule Rule, dueDate Date, now time.Time, opts Options) Amounts {
	res := ZeroAmounts()
	if dueDate.IsZero() {
		return res
	}

	rule = rule.Normalize()
	step := opts.step(rule)
	b := BoundariesOf(now)

	for i := 0; ; i++ {
		d := Occurrence(dueDate, rule.Mode, step, i)
		if !d.Before(b.YearEnd.Time) {
			break
		}
		if d.Before(b.WeekEnd.Time) {
			res.Week = res.Week.Add(amount)
		}
		if d.Before(b.MonthEnd.Time) {
			res.Month = res.Month.Add(amount)
		}
		res.Year = res.Year.Add(amount)
	}
	return res
}
