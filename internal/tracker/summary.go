package tracker

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/aggregate"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

// Summary totals a set of views.
type Summary struct {
	Count       int                `json:"count"`
	Average     recurrence.Amounts `json:"average"`
	Remaining   recurrence.Amounts `json:"remaining"`
	Unconverted int                `json:"unconverted"`
	UnknownDue  int                `json:"unknown_due"`
}

// Summarize adds up averages and remaining amounts of views.
func Summarize(views []SubscriptionView) Summary {
	s := Summary{
		Count:     len(views),
		Average:   recurrence.ZeroAmounts(),
		Remaining: recurrence.ZeroAmounts(),
	}
	for _, v := range views {
		s.Average = s.Average.Add(v.Averages)
		s.Remaining = s.Remaining.Add(v.Remaining)
		if v.Converted.IsFallback() {
			s.Unconverted++
		}
		if v.DueDate == nil {
			s.UnknownDue++
		}
	}
	return s
}

// UpcomingItem is one charge in a month of the upcoming schedule.
type UpcomingItem struct {
	View SubscriptionView `json:"-"`
	Name string           `json:"name"`
	Date recurrence.Date  `json:"date"`
	// Amount is in the base currency unless the view is a conversion fallback.
	Amount decimal.Decimal `json:"amount"`
}

// MonthBucket holds the charges due in one calendar month.
type MonthBucket struct {
	Month recurrence.Date `json:"month"`
	Items []UpcomingItem  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Upcoming buckets the remaining due dates of views into months calendar months
// starting with now's month. A subscription appears in a month with the first
// of its due dates in that month; items are ordered by date.
func Upcoming(views []SubscriptionView, now time.Time, months int) []MonthBucket {
	buckets := make([]MonthBucket, 0, months)
	for _, month := range recurrence.MonthsAhead(now, months) {
		var items []UpcomingItem
		for _, v := range views {
			if d, ok := recurrence.FirstInMonth(v.RemainingDueDates, month); ok {
				items = append(items, UpcomingItem{View: v, Name: v.Subscription.Name, Date: d, Amount: v.Converted.Amount})
			}
		}
		items = aggregate.SortBy(items, aggregate.CompareBy(func(i UpcomingItem) int64 { return i.Date.Unix() }, false))
		buckets = append(buckets, MonthBucket{
			Month: month,
			Items: items,
			Total: aggregate.SumBy(items, func(i UpcomingItem) decimal.Decimal { return i.Amount }),
		})
	}
	return buckets
}

// MaxTotal returns the largest bucket total, for scaling bars.
func MaxTotal(buckets []MonthBucket) decimal.Decimal {
	m := decimal.Zero
	for _, b := range buckets {
		m = decimal.Max(m, b.Total)
	}
	return m
}

// DueWithin returns the views whose next due date is at most days days after
// now's date, soonest first.
func DueWithin(views []SubscriptionView, now time.Time, days int) []SubscriptionView {
	limit := recurrence.DateOf(now).AddDays(days)
	var due []SubscriptionView
	for _, v := range views {
		if v.DueDate != nil && !v.DueDate.After(limit.Time) {
			due = append(due, v)
		}
	}
	return SortViews(due, SortDue, false)
}

// SortKey selects the field SortViews orders by.
type SortKey string

const (
	SortName   SortKey = "name"
	SortAmount SortKey = "amount"
	SortDue    SortKey = "due"
)

// ParseSortKey returns the sort key for s, falling back to SortName.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(s)); k {
	case SortName, SortAmount, SortDue:
		return k, true
	}
	return SortName, false
}

// SortViews returns a stably sorted copy of views. Views without a due date sort
// after all others regardless of direction; names break ties.
func SortViews(views []SubscriptionView, key SortKey, descending bool) []SubscriptionView {
	byName := aggregate.CompareBy(func(v SubscriptionView) string { return strings.ToLower(v.Subscription.Name) }, false)

	var primary func(a, b SubscriptionView) int
	switch key {
	case SortAmount:
		primary = aggregate.CompareDecimalBy(func(v SubscriptionView) decimal.Decimal { return v.Averages.Month }, descending)
	case SortDue:
		byDue := aggregate.CompareBy(func(v SubscriptionView) int64 { return v.DueDate.Unix() }, descending)
		primary = func(a, b SubscriptionView) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			}
			return byDue(a, b)
		}
	default:
		primary = aggregate.CompareBy(func(v SubscriptionView) string { return strings.ToLower(v.Subscription.Name) }, descending)
	}
	return aggregate.SortBy(views, aggregate.Then(primary, byName))
}
