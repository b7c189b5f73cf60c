package budget

import (
	"github.com/gigurra/subscription-tracker/internal/aggregate"
	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

// Clone copies the budgets planned for from into to. The copies get ids from
// newID and keep name, amount and color.
func Clone(budgets []ledger.Budget, from, to recurrence.Date, newID func() string) []ledger.Budget {
	source := BudgetsInMonth(budgets, from)
	month := to.FirstOfMonth().String()

	clones := make([]ledger.Budget, 0, len(source))
	for _, b := range source {
		b.ID = newID()
		b.Month = month
		clones = append(clones, b)
	}
	return clones
}

// AvailableMonths lists the distinct months that have budgets, newest first,
// leaving out except. These are the months a clone into except can start from.
func AvailableMonths(budgets []ledger.Budget, except recurrence.Date) []recurrence.Date {
	var months []recurrence.Date
	for _, b := range budgets {
		if m := b.MonthStart(); !m.IsZero() && !m.SameMonth(except) {
			months = append(months, m)
		}
	}
	distinct := aggregate.GroupBy(months, func(d recurrence.Date) recurrence.Date { return d }).Keys
	return aggregate.SortBy(distinct, aggregate.CompareBy(func(d recurrence.Date) int64 { return d.Unix() }, true))
}
