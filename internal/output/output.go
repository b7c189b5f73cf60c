// Package output renders tracker views as terminal tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/config"
	"github.com/gigurra/subscription-tracker/internal/money"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
	"github.com/gigurra/subscription-tracker/internal/tracker"
)

// Options controls how views are displayed
type Options struct {
	Currency money.Currency
	Period   recurrence.RepeatMode // week, month or year
	Config   *config.Config        // descriptions and tags, may be nil
	Now      time.Time
}

// ParsePeriod accepts week, month and year (and their -ly forms).
func ParsePeriod(s string) (recurrence.RepeatMode, bool) {
	mode, known := recurrence.ParseRepeatMode(s)
	if !known || mode == recurrence.Day {
		return recurrence.Month, false
	}
	return mode, true
}

var everyUnit = map[recurrence.RepeatMode]string{
	recurrence.Day:   "days",
	recurrence.Week:  "weeks",
	recurrence.Month: "months",
	recurrence.Year:  "years",
}

var adverb = map[recurrence.RepeatMode]string{
	recurrence.Day:   "daily",
	recurrence.Week:  "weekly",
	recurrence.Month: "monthly",
	recurrence.Year:  "yearly",
}

// DescribeRule returns "monthly" or "every 3 months".
func DescribeRule(r recurrence.Rule) string {
	r = r.Normalize()
	if r.Interval == 1 {
		return adverb[r.Mode]
	}
	return fmt.Sprintf("every %d %s", r.Interval, everyUnit[r.Mode])
}

// formatConverted formats a view-derived amount: in the base currency when the
// view was converted, in its original currency with a marker otherwise.
func formatConverted(v tracker.SubscriptionView, amount decimal.Decimal, base money.Currency) string {
	if v.Converted.IsFallback() {
		return money.GetCurrency(v.Converted.From).Format(amount) + text.FgYellow.Sprint("*")
	}
	return base.Format(amount)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// alignRight right-aligns the last n of cols columns.
func alignRight(t table.Writer, cols, n int) {
	var configs []table.ColumnConfig
	for i := cols - n + 1; i <= cols; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
}

func bold(s string) string {
	return text.Bold.Sprint(s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FilterByTags keeps views whose subscription has any of tags (case-insensitive).
func FilterByTags(views []tracker.SubscriptionView, tags []string, cfg *config.Config) []tracker.SubscriptionView {
	if cfg == nil || len(tags) == 0 {
		return views
	}
	var result []tracker.SubscriptionView
	for _, v := range views {
		if hasAnyTag(cfg.GetTags(v.Subscription.Name), tags) {
			result = append(result, v)
		}
	}
	return result
}

func hasAnyTag(subTags []string, filterTags []string) bool {
	for _, ft := range filterTags {
		for _, st := range subTags {
			if strings.EqualFold(st, ft) {
				return true
			}
		}
	}
	return false
}

// FilterByExclusions removes views matching the config's exclude patterns
func FilterByExclusions(views []tracker.SubscriptionView, cfg *config.Config) []tracker.SubscriptionView {
	if cfg == nil {
		return views
	}
	var result []tracker.SubscriptionView
	for _, v := range views {
		if !cfg.ShouldExclude(v.Subscription.Name) {
			result = append(result, v)
		}
	}
	return result
}
