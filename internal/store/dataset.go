package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gigurra/subscription-tracker/internal/budget"
	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

// SaveDataset upserts every record of d in one transaction. Records are
// validated first; nothing is written if any of them is invalid.
func (s *Storage) SaveDataset(ctx context.Context, d ledger.Dataset) error {
	const op = "store.SaveDataset"

	if err := d.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	d.AssignIDs()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, sub := range d.Subscriptions {
			if err := s.upsertSubscription(ctx, tx, sub); err != nil {
				return fmt.Errorf("subscription %q: %w", sub.Name, err)
			}
		}
		for _, b := range d.Budgets {
			if err := s.upsertBudget(ctx, tx, b); err != nil {
				return fmt.Errorf("budget %q: %w", b.Name, err)
			}
		}
		for _, e := range d.Expenses {
			if err := s.upsertExpense(ctx, tx, e); err != nil {
				return fmt.Errorf("expense %q: %w", e.Payee, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadDataset reads every stored record.
func (s *Storage) LoadDataset(ctx context.Context) (ledger.Dataset, error) {
	var (
		d   ledger.Dataset
		err error
	)
	if d.Subscriptions, err = s.ListSubscriptions(ctx); err != nil {
		return ledger.Dataset{}, err
	}
	if d.Budgets, err = s.ListBudgets(ctx); err != nil {
		return ledger.Dataset{}, err
	}
	if d.Expenses, err = s.ListExpenses(ctx); err != nil {
		return ledger.Dataset{}, err
	}
	return d, nil
}

// CloneBudgets copies the budgets of from's month into to's month and returns
// the copies. Nothing is copied when to already has budgets.
func (s *Storage) CloneBudgets(ctx context.Context, from, to recurrence.Date) ([]ledger.Budget, error) {
	const op = "store.CloneBudgets"

	existing, err := s.BudgetsForMonth(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%s: %w: %s already has %d budgets", op, ErrMonthNotEmpty, to.FirstOfMonth(), len(existing))
	}

	source, err := s.BudgetsForMonth(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	clones := budget.Clone(source, from, to, ledger.NewID)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, b := range clones {
			if err := s.upsertBudget(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return clones, nil
}
