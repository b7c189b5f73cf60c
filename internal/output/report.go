package output

import (
	"time"

	"github.com/gigurra/subscription-tracker/internal/recurrence"
	"github.com/gigurra/subscription-tracker/internal/tracker"
)

// Report is the JSON document produced by --output json and uploaded by --upload.
// Sections that were not requested are left out.
type Report struct {
	GeneratedAt   time.Time             `json:"generated_at"`
	Today         recurrence.Date       `json:"today"`
	BaseCurrency  string                `json:"base_currency"`
	Period        recurrence.RepeatMode `json:"period"`
	HonorInterval bool                  `json:"honor_interval"`
	Subscriptions []JSONSubscription    `json:"subscriptions,omitempty"`
	Summary       *tracker.Summary      `json:"summary,omitempty"`
	Upcoming      []tracker.MonthBucket `json:"upcoming,omitempty"`
	Budgets       *BudgetSection        `json:"budgets,omitempty"`
}

// NewReport starts a report for now; add sections with the With methods.
func NewReport(now time.Time, opts Options, honorInterval bool) *Report {
	return &Report{
		GeneratedAt:   now.UTC(),
		Today:         recurrence.DateOf(now),
		BaseCurrency:  opts.Currency.Code,
		Period:        opts.Period,
		HonorInterval: honorInterval,
	}
}

func (r *Report) WithSubscriptions(views []tracker.SubscriptionView, opts Options) *Report {
	summary := tracker.Summarize(views)
	r.Subscriptions = SubscriptionsJSON(views, opts)
	r.Summary = &summary
	return r
}

func (r *Report) WithUpcoming(buckets []tracker.MonthBucket) *Report {
	r.Upcoming = buckets
	return r
}

func (r *Report) WithBudgets(s BudgetSection) *Report {
	r.Budgets = &s
	return r
}
