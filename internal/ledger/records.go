// Package ledger defines the subscription, budget and expense records and reads
// them from files.
package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

// ErrInvalidRecord is wrapped by every validation error.
var ErrInvalidRecord = errors.New("invalid record")

var currencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

// NewID returns a new, lexically sortable record id.
func NewID() string {
	return ulid.Make().String()
}

// Subscription is a recurring charge.
//
// StartsOn and EndsOn are kept as written so that a malformed date still reaches
// the due date calculation, which reports it as unknown instead of failing the load.
type Subscription struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	Color          string          `json:"color,omitempty" yaml:"color,omitempty"`
	Amount         decimal.Decimal `json:"amount" yaml:"amount"`
	Currency       string          `json:"currency" yaml:"currency"`
	StartsOn       string          `json:"startsOn" yaml:"starts_on"`
	EndsOn         string          `json:"endsOn,omitempty" yaml:"ends_on,omitempty"`
	RepeatMode     string          `json:"repeatMode" yaml:"repeat_mode"`
	RepeatInterval int             `json:"repeatInterval" yaml:"repeat_interval"`
}

// Rule returns the normalized repeat rule and whether the repeat mode was recognized.
func (s Subscription) Rule() (recurrence.Rule, bool) {
	mode, known := recurrence.ParseRepeatMode(s.RepeatMode)
	return recurrence.Rule{Mode: mode, Interval: s.RepeatInterval}.Normalize(), known
}

func (s Subscription) Validate() error {
	var problems []string
	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "name is required")
	}
	if s.Amount.IsNegative() {
		problems = append(problems, "amount must not be negative")
	}
	if !currencyCode.MatchString(s.Currency) {
		problems = append(problems, fmt.Sprintf("currency %q is not a 3-letter code", s.Currency))
	}
	return invalid("subscription", s.Name, problems)
}

// Budget is a spending limit for one calendar month.
type Budget struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name" yaml:"name"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
	Color  string          `json:"color,omitempty" yaml:"color,omitempty"`
	Month  string          `json:"month" yaml:"month"`
}

// MonthStart returns the first day of the budget's month, or the zero date when
// Month is malformed.
func (b Budget) MonthStart() recurrence.Date {
	d, err := recurrence.ParseDate(b.Month)
	if err != nil {
		return recurrence.Date{}
	}
	return d.FirstOfMonth()
}

func (b Budget) Validate() error {
	var problems []string
	if strings.TrimSpace(b.Name) == "" {
		problems = append(problems, "name is required")
	}
	if b.Amount.IsNegative() {
		problems = append(problems, "amount must not be negative")
	}
	if _, err := recurrence.ParseDate(b.Month); err != nil {
		problems = append(problems, fmt.Sprintf("month: %v", err))
	}
	return invalid("budget", b.Name, problems)
}

// Expense is a single payment, optionally booked against a budget.
type Expense struct {
	ID       string          `json:"id" yaml:"id"`
	BudgetID string          `json:"budgetId,omitempty" yaml:"budget_id,omitempty"`
	Payee    string          `json:"payee" yaml:"payee"`
	Category string          `json:"category,omitempty" yaml:"category,omitempty"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Date     string          `json:"date" yaml:"date"`
	Note     string          `json:"note,omitempty" yaml:"note,omitempty"`
}

// Day returns the expense date, or the zero date when Date is malformed.
func (e Expense) Day() recurrence.Date {
	d, err := recurrence.ParseDate(e.Date)
	if err != nil {
		return recurrence.Date{}
	}
	return d
}

func (e Expense) Validate() error {
	var problems []string
	if strings.TrimSpace(e.Payee) == "" {
		problems = append(problems, "payee is required")
	}
	if _, err := recurrence.ParseDate(e.Date); err != nil {
		problems = append(problems, fmt.Sprintf("date: %v", err))
	}
	return invalid("expense", e.Payee, problems)
}

func invalid(kind, name string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s %q: %s", ErrInvalidRecord, kind, name, strings.Join(problems, ", "))
}

// Dataset is everything read from one or more sources.
type Dataset struct {
	Subscriptions []Subscription `json:"subscriptions" yaml:"subscriptions"`
	Budgets       []Budget       `json:"budgets" yaml:"budgets"`
	Expenses      []Expense      `json:"expenses" yaml:"expenses"`
}

// Merge appends other's records after d's.
func (d *Dataset) Merge(other Dataset) {
	d.Subscriptions = append(d.Subscriptions, other.Subscriptions...)
	d.Budgets = append(d.Budgets, other.Budgets...)
	d.Expenses = append(d.Expenses, other.Expenses...)
}

// Len returns the total number of records.
func (d Dataset) Len() int {
	return len(d.Subscriptions) + len(d.Budgets) + len(d.Expenses)
}

// AssignIDs gives every record without an id a new one.
func (d *Dataset) AssignIDs() {
	for i := range d.Subscriptions {
		if d.Subscriptions[i].ID == "" {
			d.Subscriptions[i].ID = NewID()
		}
	}
	for i := range d.Budgets {
		if d.Budgets[i].ID == "" {
			d.Budgets[i].ID = NewID()
		}
	}
	for i := range d.Expenses {
		if d.Expenses[i].ID == "" {
			d.Expenses[i].ID = NewID()
		}
	}
}

// Validate checks every record and returns all problems at once.
func (d Dataset) Validate() error {
	var errs []error
	for _, s := range d.Subscriptions {
		errs = append(errs, s.Validate())
	}
	for _, b := range d.Budgets {
		errs = append(errs, b.Validate())
	}
	for _, e := range d.Expenses {
		errs = append(errs, e.Validate())
	}
	return errors.Join(errs...)
}
