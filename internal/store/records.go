package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

const (
	subscriptionColumns = "id, name, description, color, amount, currency, starts_on, ends_on, repeat_mode, repeat_interval"
	budgetColumns       = "id, name, amount, color, month"
	expenseColumns      = "id, budget_id, payee, category, amount, date, note"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (ledger.Subscription, error) {
	var s ledger.Subscription
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Color, &s.Amount, &s.Currency,
		&s.StartsOn, &s.EndsOn, &s.RepeatMode, &s.RepeatInterval)
	return s, err
}

func scanBudget(row scanner) (ledger.Budget, error) {
	var b ledger.Budget
	err := row.Scan(&b.ID, &b.Name, &b.Amount, &b.Color, &b.Month)
	return b, err
}

func scanExpense(row scanner) (ledger.Expense, error) {
	var e ledger.Expense
	err := row.Scan(&e.ID, &e.BudgetID, &e.Payee, &e.Category, &e.Amount, &e.Date, &e.Note)
	return e, err
}

// normalizedDate returns s as YYYY-MM-DD when it parses, so that stored dates
// compare correctly as text. Unparsable values are kept as they are.
func normalizedDate(s string) string {
	if d, err := recurrence.ParseDate(s); err == nil {
		return d.String()
	}
	return s
}

func queryAll[T any](ctx context.Context, s *Storage, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Storage) upsertSubscription(ctx context.Context, ex execer, sub ledger.Subscription) error {
	query := `INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    description = excluded.description,
    color = excluded.color,
    amount = excluded.amount,
    currency = excluded.currency,
    starts_on = excluded.starts_on,
    ends_on = excluded.ends_on,
    repeat_mode = excluded.repeat_mode,
    repeat_interval = excluded.repeat_interval`

	_, err := ex.ExecContext(ctx, s.rebind(query),
		sub.ID, sub.Name, sub.Description, sub.Color, sub.Amount.String(), sub.Currency,
		sub.StartsOn, sub.EndsOn, sub.RepeatMode, sub.RepeatInterval)
	return err
}

// UpsertSubscription inserts the subscription or replaces the one with the same id.
// A subscription without id gets a new one, which is returned.
func (s *Storage) UpsertSubscription(ctx context.Context, sub ledger.Subscription) (ledger.Subscription, error) {
	const op = "store.UpsertSubscription"

	if err := sub.Validate(); err != nil {
		return ledger.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	if sub.ID == "" {
		sub.ID = ledger.NewID()
	}
	if err := s.upsertSubscription(ctx, s.db, sub); err != nil {
		return ledger.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

func (s *Storage) GetSubscription(ctx context.Context, id string) (ledger.Subscription, error) {
	const op = "store.GetSubscription"

	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?"), id)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Subscription{}, ErrNotFound
		}
		return ledger.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ListSubscriptions returns every subscription ordered by name.
func (s *Storage) ListSubscriptions(ctx context.Context) ([]ledger.Subscription, error) {
	const op = "store.ListSubscriptions"

	subs, err := queryAll(ctx, s, scanSubscription, "SELECT "+subscriptionColumns+" FROM subscriptions ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

func (s *Storage) DeleteSubscription(ctx context.Context, id string) error {
	const op = "store.DeleteSubscription"

	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM subscriptions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := deleted(res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) upsertBudget(ctx context.Context, ex execer, b ledger.Budget) error {
	query := `INSERT INTO budgets (` + budgetColumns + `)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    amount = excluded.amount,
    color = excluded.color,
    month = excluded.month`

	_, err := ex.ExecContext(ctx, s.rebind(query), b.ID, b.Name, b.Amount.String(), b.Color, b.MonthStart().String())
	return err
}

// UpsertBudget stores a budget. Month is stored as the first day of the month.
func (s *Storage) UpsertBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	const op = "store.UpsertBudget"

	if err := b.Validate(); err != nil {
		return ledger.Budget{}, fmt.Errorf("%s: %w", op, err)
	}
	if b.ID == "" {
		b.ID = ledger.NewID()
	}
	b.Month = b.MonthStart().String()
	if err := s.upsertBudget(ctx, s.db, b); err != nil {
		return ledger.Budget{}, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// ListBudgets returns every budget, newest month first.
func (s *Storage) ListBudgets(ctx context.Context) ([]ledger.Budget, error) {
	const op = "store.ListBudgets"

	budgets, err := queryAll(ctx, s, scanBudget, "SELECT "+budgetColumns+" FROM budgets ORDER BY month DESC, name, id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return budgets, nil
}

// BudgetsForMonth returns the budgets of month's calendar month.
func (s *Storage) BudgetsForMonth(ctx context.Context, month recurrence.Date) ([]ledger.Budget, error) {
	const op = "store.BudgetsForMonth"

	budgets, err := queryAll(ctx, s, scanBudget,
		"SELECT "+budgetColumns+" FROM budgets WHERE month = ? ORDER BY name, id", month.FirstOfMonth().String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return budgets, nil
}

func (s *Storage) DeleteBudget(ctx context.Context, id string) error {
	const op = "store.DeleteBudget"

	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM budgets WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := deleted(res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) upsertExpense(ctx context.Context, ex execer, e ledger.Expense) error {
	query := `INSERT INTO expenses (` + expenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    budget_id = excluded.budget_id,
    payee = excluded.payee,
    category = excluded.category,
    amount = excluded.amount,
    date = excluded.date,
    note = excluded.note`

	_, err := ex.ExecContext(ctx, s.rebind(query),
		e.ID, e.BudgetID, e.Payee, e.Category, e.Amount.String(), normalizedDate(e.Date), e.Note)
	return err
}

func (s *Storage) UpsertExpense(ctx context.Context, e ledger.Expense) (ledger.Expense, error) {
	const op = "store.UpsertExpense"

	if err := e.Validate(); err != nil {
		return ledger.Expense{}, fmt.Errorf("%s: %w", op, err)
	}
	if e.ID == "" {
		e.ID = ledger.NewID()
	}
	e.Date = normalizedDate(e.Date)
	if err := s.upsertExpense(ctx, s.db, e); err != nil {
		return ledger.Expense{}, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// ListExpenses returns every expense, oldest first.
func (s *Storage) ListExpenses(ctx context.Context) ([]ledger.Expense, error) {
	const op = "store.ListExpenses"

	expenses, err := queryAll(ctx, s, scanExpense, "SELECT "+expenseColumns+" FROM expenses ORDER BY date, id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return expenses, nil
}

// ExpensesBetween returns expenses dated in [from, to), oldest first.
func (s *Storage) ExpensesBetween(ctx context.Context, from, to recurrence.Date) ([]ledger.Expense, error) {
	const op = "store.ExpensesBetween"

	expenses, err := queryAll(ctx, s, scanExpense,
		"SELECT "+expenseColumns+" FROM expenses WHERE date >= ? AND date < ? ORDER BY date, id",
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return expenses, nil
}

func (s *Storage) DeleteExpense(ctx context.Context, id string) error {
	const op = "store.DeleteExpense"

	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM expenses WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := deleted(res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
