// Package tracker evaluates subscriptions against a point in time and a rate
// table: due dates, converted amounts, projections and the upcoming schedule.
package tracker

import (
	"log/slog"
	"time"

	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/money"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
)

// SubscriptionView is a subscription with everything derived from it. Views are
// only valid for the time they were evaluated at.
type SubscriptionView struct {
	Subscription      ledger.Subscription `json:"subscription"`
	Rule              recurrence.Rule     `json:"-"`
	KnownMode         bool                `json:"known_mode"`
	DueDate           *recurrence.Date    `json:"due_date"` // nil when StartsOn is invalid
	Converted         money.Conversion    `json:"converted"`
	Averages          recurrence.Amounts  `json:"averages"`
	Remaining         recurrence.Amounts  `json:"remaining"`
	RemainingDueDates []recurrence.Date   `json:"remaining_due_dates"`
}

// Tracker evaluates subscriptions in the base currency of its rate table.
type Tracker struct {
	table money.Table
	opts  recurrence.Options
	log   *slog.Logger
}

// New creates a tracker. A nil logger discards logs.
func New(table money.Table, opts recurrence.Options, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Tracker{table: table, opts: opts, log: log}
}

// Base returns the currency all views are converted to.
func (t *Tracker) Base() string {
	return t.table.Base
}

// Evaluate derives a view for every subscription, in input order.
func (t *Tracker) Evaluate(subs []ledger.Subscription, now time.Time) []SubscriptionView {
	views := make([]SubscriptionView, 0, len(subs))
	for _, s := range subs {
		views = append(views, t.evaluate(s, now))
	}
	return views
}

func (t *Tracker) evaluate(s ledger.Subscription, now time.Time) SubscriptionView {
	rule, known := s.Rule()
	if !known {
		t.log.Warn("unknown repeat mode, assuming monthly",
			slog.String("subscription", s.Name),
			slog.String("repeat_mode", s.RepeatMode))
	}

	v := SubscriptionView{
		Subscription: s,
		Rule:         rule,
		KnownMode:    known,
		Converted:    t.table.Convert(s.Amount, s.Currency),
		Remaining:    recurrence.ZeroAmounts(),
	}
	if v.Converted.IsFallback() {
		t.log.Warn("no exchange rate, using unconverted amount",
			slog.String("subscription", s.Name),
			slog.String("currency", v.Converted.From),
			slog.String("base", t.table.Base))
	}

	amount := v.Converted.Amount
	v.Averages = recurrence.ProjectAverages(amount, rule, t.opts)

	due, err := recurrence.DueDate(s.StartsOn, rule, now)
	if err != nil {
		t.log.Warn("invalid start date, due date unknown",
			slog.String("subscription", s.Name),
			slog.Any("error", err))
		return v
	}

	v.DueDate = &due
	v.Remaining = recurrence.RemainingAmounts(amount, rule, due, now, t.opts)
	v.RemainingDueDates = recurrence.Expand(due, rule, now, t.opts)
	return v
}
