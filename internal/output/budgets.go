package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/budget"
	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

// BudgetSection is the budget overview of one month.
type BudgetSection struct {
	Month      recurrence.Date     `json:"month"`
	Usages     []budget.Usage      `json:"usages"`
	Planned    decimal.Decimal     `json:"planned"`
	Spent      decimal.Decimal     `json:"spent"`
	Left       decimal.Decimal     `json:"left"`
	Balance    budget.Balance      `json:"balance"`
	ByBudget   []budget.Spend      `json:"by_budget"`
	ByCategory []budget.Spend      `json:"by_category"`
	ByPayee    []budget.Spend      `json:"by_payee"`
	Daily      []budget.Day        `json:"daily"`
	History    []budget.MonthTotal `json:"history"`
}

// NewBudgetSection computes the overview of month from all budgets and expenses.
func NewBudgetSection(budgets []ledger.Budget, expenses []ledger.Expense, month recurrence.Date) BudgetSection {
	month = month.FirstOfMonth()
	mb := budget.BudgetsInMonth(budgets, month)
	me := budget.InMonth(expenses, month)

	planned := budget.TotalPlanned(mb)
	left := budget.LeftToSpend(mb, me)
	return BudgetSection{
		Month:      month,
		Usages:     budget.Usages(mb, me),
		Planned:    planned,
		Spent:      budget.TotalSpent(me),
		Left:       left,
		Balance:    budget.BalanceFor(left, planned),
		ByBudget:   budget.SpendByBudget(mb, me),
		ByCategory: budget.SpendByCategory(me),
		ByPayee:    budget.SpendByPayee(me),
		Daily:      budget.Daily(mb, me),
		History:    budget.MonthlyTotals(expenses),
	}
}

var levelColor = map[budget.Level]text.Colors{
	budget.LevelOK:      {text.FgGreen},
	budget.LevelWarning: {text.FgYellow},
	budget.LevelDanger:  {text.FgRed},
}

var balanceColor = map[budget.Balance]text.Colors{
	budget.BalanceSafe:      {text.FgGreen},
	budget.BalanceRisky:     {text.FgYellow},
	budget.BalanceDangerous: {text.FgRed},
}

func percent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).Round(0).String() + "%"
}

// PrintBudgetsTable outputs budget usage of the section's month and the
// spending per category.
func PrintBudgetsTable(w io.Writer, s BudgetSection, opts Options) {
	fmt.Fprintf(w, "Budgets for %s\n\n", s.Month.Format("January 2006"))

	t := newTable(w)
	t.AppendHeader(table.Row{"Budget", "Planned", "Spent", "Left", "Used"})
	for _, u := range s.Usages {
		t.AppendRow(table.Row{
			u.Budget.Name,
			opts.Currency.Format(u.Budget.Amount),
			opts.Currency.Format(u.Spent),
			opts.Currency.Format(u.Left),
			levelColor[u.Level].Sprint(percent(u.Ratio)),
		})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{
		bold(budget.LeftLabel),
		bold(opts.Currency.Format(s.Planned)),
		bold(opts.Currency.Format(s.Spent)),
		balanceColor[s.Balance].Sprint(bold(opts.Currency.Format(s.Left))),
		"",
	})
	alignRight(t, 5, 4)
	t.Render()

	if len(s.ByCategory) == 0 {
		return
	}
	fmt.Fprintln(w)
	c := newTable(w)
	c.AppendHeader(table.Row{"Category", "Expenses", "Spent"})
	for _, sp := range s.ByCategory {
		c.AppendRow(table.Row{sp.Label, sp.Count, opts.Currency.Format(sp.Amount)})
	}
	alignRight(c, 3, 2)
	c.Render()
}

// PrintExpensesTable outputs the month's expenses day by day with what is left
// to spend after each one.
func PrintExpensesTable(w io.Writer, s BudgetSection, opts Options) {
	fmt.Fprintf(w, "Expenses for %s\n\n", s.Month.Format("January 2006"))

	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Payee", "Category", "Budget", "Amount", "Left"})
	for i, day := range s.Daily {
		if i > 0 {
			t.AppendSeparator()
		}
		for _, l := range day.Lines {
			e := l.Expense
			t.AppendRow(table.Row{
				day.Date.String(),
				e.Payee,
				e.Category,
				l.BudgetName,
				opts.Currency.Format(e.Amount),
				opts.Currency.Format(l.LeftAfter),
			})
		}
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", bold("Total"), bold(opts.Currency.Format(s.Spent)),
		balanceColor[s.Balance].Sprint(opts.Currency.Format(s.Left))})
	alignRight(t, 6, 2)
	t.Render()
}
