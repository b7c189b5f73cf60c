package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/money"
	"github.com/gigurra/subscription-tracker/internal/rates"
)

// RateCache keeps the latest rate snapshot per base currency in the database,
// so that rates survive between runs.
type RateCache struct {
	s *Storage
}

var _ rates.Cache = (*RateCache)(nil)

// RateCache returns a rates.Cache backed by s.
func (s *Storage) RateCache() *RateCache {
	return &RateCache{s: s}
}

func (c *RateCache) Lookup(ctx context.Context, base string) (rates.Snapshot, bool, error) {
	const op = "store.RateCache.Lookup"

	base = money.NormalizeCode(base)
	var raw, fetchedAt string
	err := c.s.db.QueryRowContext(ctx,
		c.s.rebind("SELECT rates, fetched_at FROM rate_snapshots WHERE base = ?"), base).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rates.Snapshot{}, false, nil
	}
	if err != nil {
		return rates.Snapshot{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var table map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return rates.Snapshot{}, false, fmt.Errorf("%s: decode rates: %w", op, err)
	}
	at, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return rates.Snapshot{}, false, fmt.Errorf("%s: decode fetched_at: %w", op, err)
	}
	return rates.Snapshot{Table: money.NewTable(base, table), FetchedAt: at}, true, nil
}

func (c *RateCache) Save(ctx context.Context, base string, snap rates.Snapshot) error {
	const op = "store.RateCache.Save"

	raw, err := json.Marshal(snap.Table.Rates)
	if err != nil {
		return fmt.Errorf("%s: encode rates: %w", op, err)
	}
	query := `INSERT INTO rate_snapshots (base, rates, fetched_at)
VALUES (?, ?, ?)
ON CONFLICT (base) DO UPDATE SET
    rates = excluded.rates,
    fetched_at = excluded.fetched_at`
	_, err = c.s.db.ExecContext(ctx, c.s.rebind(query),
		money.NormalizeCode(base), string(raw), snap.FetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
