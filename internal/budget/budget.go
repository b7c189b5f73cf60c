// Package budget computes monthly budget usage and spending breakdowns from
// budgets and expenses.
package budget

import (
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/aggregate"
	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

// LeftLabel names the trailing entry of SpendByBudget.
const LeftLabel = "Left to spend or save"

// UnbudgetedLabel names expenses that are not booked against any budget.
const UnbudgetedLabel = "Unbudgeted"

var (
	warningShare = decimal.RequireFromString("0.7")
	riskyShare   = decimal.RequireFromString("0.3")
)

// MonthRange returns the first day of d's month and the first day of the next one.
func MonthRange(d recurrence.Date) (start, end recurrence.Date) {
	start = d.FirstOfMonth()
	return start, start.AddMonths(1)
}

// InMonth returns the expenses dated in month's calendar month, in input order.
func InMonth(expenses []ledger.Expense, month recurrence.Date) []ledger.Expense {
	var out []ledger.Expense
	for _, e := range expenses {
		if day := e.Day(); !day.IsZero() && day.SameMonth(month) {
			out = append(out, e)
		}
	}
	return out
}

// BudgetsInMonth returns the budgets planned for month's calendar month.
func BudgetsInMonth(budgets []ledger.Budget, month recurrence.Date) []ledger.Budget {
	var out []ledger.Budget
	for _, b := range budgets {
		if start := b.MonthStart(); !start.IsZero() && start.SameMonth(month) {
			out = append(out, b)
		}
	}
	return out
}

// Level grades how much of a budget is used.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning" // more than 70% spent
	LevelDanger  Level = "danger"  // fully spent
)

// LevelFor grades spent against amount.
func LevelFor(spent, amount decimal.Decimal) Level {
	switch {
	case spent.GreaterThanOrEqual(amount):
		return LevelDanger
	case spent.GreaterThan(amount.Mul(warningShare)):
		return LevelWarning
	default:
		return LevelOK
	}
}

// Usage is the spending booked against one budget.
type Usage struct {
	Budget ledger.Budget   `json:"budget"`
	Spent  decimal.Decimal `json:"spent"`
	Left   decimal.Decimal `json:"left"`
	Ratio  decimal.Decimal `json:"ratio"` // spent / amount, 0 for a zero budget
	Level  Level           `json:"level"`
}

// Usages returns the usage of every budget, most used first.
func Usages(budgets []ledger.Budget, expenses []ledger.Expense) []Usage {
	byBudget := aggregate.GroupBy(expenses, func(e ledger.Expense) string { return e.BudgetID })

	usages := make([]Usage, 0, len(budgets))
	for _, b := range budgets {
		spent := aggregate.SumBy(byBudget.Get(b.ID), expenseAmount)
		ratio := decimal.Zero
		if b.Amount.IsPositive() {
			ratio = spent.Div(b.Amount)
		}
		usages = append(usages, Usage{
			Budget: b,
			Spent:  spent,
			Left:   b.Amount.Sub(spent),
			Ratio:  ratio,
			Level:  LevelFor(spent, b.Amount),
		})
	}
	return aggregate.SortBy(usages, aggregate.CompareDecimalBy(func(u Usage) decimal.Decimal { return u.Ratio }, true))
}

func expenseAmount(e ledger.Expense) decimal.Decimal { return e.Amount }

func budgetAmount(b ledger.Budget) decimal.Decimal { return b.Amount }

// TotalPlanned sums the budget amounts.
func TotalPlanned(budgets []ledger.Budget) decimal.Decimal {
	return aggregate.SumBy(budgets, budgetAmount)
}

// TotalSpent sums the expense amounts.
func TotalSpent(expenses []ledger.Expense) decimal.Decimal {
	return aggregate.SumBy(expenses, expenseAmount)
}

// LeftToSpend is the planned total minus everything spent.
func LeftToSpend(budgets []ledger.Budget, expenses []ledger.Expense) decimal.Decimal {
	return TotalPlanned(budgets).Sub(TotalSpent(expenses))
}

// Balance grades what is left to spend.
type Balance string

const (
	BalanceSafe      Balance = "safe"
	BalanceRisky     Balance = "risky"     // at most 30% of the planned total left
	BalanceDangerous Balance = "dangerous" // nothing left
)

// BalanceFor grades left against the planned total.
func BalanceFor(left, planned decimal.Decimal) Balance {
	switch {
	case !left.IsPositive():
		return BalanceDangerous
	case left.LessThanOrEqual(planned.Mul(riskyShare)):
		return BalanceRisky
	default:
		return BalanceSafe
	}
}

// Spend is a labelled spending total.
type Spend struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Color  string          `json:"color,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

func sortedSpend(totals []aggregate.Total[string], label func(key string) (string, string)) []Spend {
	spend := make([]Spend, 0, len(totals))
	for _, t := range totals {
		name, color := label(t.Key)
		spend = append(spend, Spend{Key: t.Key, Label: name, Color: color, Amount: t.Amount, Count: t.Count})
	}
	return aggregate.SortBy(spend, aggregate.CompareDecimalBy(func(s Spend) decimal.Decimal { return s.Amount }, true))
}

// SpendByBudget totals expenses per budget, largest first, followed by an entry
// holding what is left to spend. Expenses booked against an unknown budget are
// kept under their budget id.
func SpendByBudget(budgets []ledger.Budget, expenses []ledger.Expense) []Spend {
	known := make(map[string]ledger.Budget, len(budgets))
	for _, b := range budgets {
		known[b.ID] = b
	}

	totals := aggregate.SumGroups(aggregate.GroupBy(expenses, func(e ledger.Expense) string { return e.BudgetID }), expenseAmount)
	spend := sortedSpend(totals, func(id string) (string, string) {
		if b, ok := known[id]; ok {
			return b.Name, b.Color
		}
		if id == "" {
			return UnbudgetedLabel, ""
		}
		return id, ""
	})
	return append(spend, Spend{Key: "_left", Label: LeftLabel, Amount: LeftToSpend(budgets, expenses)})
}

// SpendByPayee totals expenses per payee, largest first.
func SpendByPayee(expenses []ledger.Expense) []Spend {
	totals := aggregate.SumGroups(aggregate.GroupBy(expenses, func(e ledger.Expense) string { return e.Payee }), expenseAmount)
	return sortedSpend(totals, func(payee string) (string, string) { return payee, "" })
}

// SpendByCategory totals expenses per category, largest first.
func SpendByCategory(expenses []ledger.Expense) []Spend {
	totals := aggregate.SumGroups(aggregate.GroupBy(expenses, func(e ledger.Expense) string { return e.Category }), expenseAmount)
	return sortedSpend(totals, func(category string) (string, string) {
		if category == "" {
			return "Uncategorized", ""
		}
		return category, ""
	})
}

// Line is an expense with its budget name and what was left to spend after it.
type Line struct {
	Expense    ledger.Expense  `json:"expense"`
	BudgetName string          `json:"budget_name,omitempty"`
	LeftAfter  decimal.Decimal `json:"left_after"`
}

// Day groups the expenses of one date.
type Day struct {
	Date  recurrence.Date `json:"date"`
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Daily lists expenses by date, oldest first, with a running balance that starts
// at the planned total and drops with every expense.
func Daily(budgets []ledger.Budget, expenses []ledger.Expense) []Day {
	names := make(map[string]string, len(budgets))
	for _, b := range budgets {
		names[b.ID] = b.Name
	}

	sorted := aggregate.SortBy(expenses, aggregate.CompareBy(func(e ledger.Expense) int64 { return e.Day().Unix() }, false))

	left := TotalPlanned(budgets)
	lines := make([]Line, 0, len(sorted))
	for _, e := range sorted {
		left = left.Sub(e.Amount)
		lines = append(lines, Line{Expense: e, BudgetName: names[e.BudgetID], LeftAfter: left})
	}

	byDate := aggregate.GroupBy(lines, func(l Line) recurrence.Date { return l.Expense.Day() })
	days := make([]Day, 0, byDate.Len())
	for _, date := range byDate.Keys {
		group := byDate.Get(date)
		days = append(days, Day{
			Date:  date,
			Lines: group,
			Total: aggregate.SumBy(group, func(l Line) decimal.Decimal { return l.Expense.Amount }),
		})
	}
	return days
}

// MonthTotal is the spending of one calendar month.
type MonthTotal struct {
	Month  recurrence.Date `json:"month"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// MonthlyTotals buckets expenses per calendar month, oldest first. Expenses with
// a malformed date are skipped.
func MonthlyTotals(expenses []ledger.Expense) []MonthTotal {
	dated := make([]ledger.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !e.Day().IsZero() {
			dated = append(dated, e)
		}
	}
	byMonth := aggregate.GroupBy(dated, func(e ledger.Expense) recurrence.Date { return e.Day().FirstOfMonth() })

	totals := make([]MonthTotal, 0, byMonth.Len())
	for _, m := range byMonth.Keys {
		group := byMonth.Get(m)
		totals = append(totals, MonthTotal{Month: m, Amount: aggregate.SumBy(group, expenseAmount), Count: len(group)})
	}
	return aggregate.SortBy(totals, aggregate.CompareBy(func(t MonthTotal) int64 { return t.Month.Unix() }, false))
}
