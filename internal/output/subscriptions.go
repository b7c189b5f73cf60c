package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gigurra/subscription-tracker/internal/money"
	"github.com/gigurra/subscription-tracker/internal/tracker"
)

// PrintSubscriptionsTable outputs views as a table with per-period averages and
// what is still left to pay in the current period.
func PrintSubscriptionsTable(w io.Writer, views []tracker.SubscriptionView, opts Options) {
	summary := tracker.Summarize(views)
	period := string(opts.Period)

	fmt.Fprintf(w, "Tracking %d subscriptions in %s\n", summary.Count, opts.Currency.Code)
	fmt.Fprintf(w, "Showing: per %s\n\n", period)

	cfg := opts.Config
	hasDescriptions := false
	hasTags := false
	for _, v := range views {
		name := v.Subscription.Name
		if v.Subscription.Description != "" || cfg.GetDescription(name) != "" {
			hasDescriptions = true
		}
		if len(cfg.GetTags(name)) > 0 {
			hasTags = true
		}
	}

	t := newTable(w)

	header := table.Row{"Name"}
	if hasDescriptions {
		header = append(header, "Description")
	}
	if hasTags {
		header = append(header, "Tags")
	}
	header = append(header, "Repeat", "Next Due", "Amount", "Avg/"+period, "Left this "+period)
	t.AppendHeader(header)

	for _, v := range views {
		sub := v.Subscription

		repeat := DescribeRule(v.Rule)
		if !v.KnownMode {
			repeat = text.FgYellow.Sprint(repeat + "?")
		}
		due := text.FgHiBlack.Sprint("-")
		if v.DueDate != nil {
			due = v.DueDate.String()
		}

		row := table.Row{sub.Name}
		if hasDescriptions {
			desc := cfg.GetDescription(sub.Name)
			if desc == "" {
				desc = sub.Description
			}
			row = append(row, desc)
		}
		if hasTags {
			row = append(row, strings.Join(cfg.GetTags(sub.Name), ", "))
		}
		row = append(row,
			repeat,
			due,
			money.GetCurrency(sub.Currency).Format(sub.Amount),
			formatConverted(v, v.Averages.For(opts.Period), opts.Currency),
			formatConverted(v, v.Remaining.For(opts.Period), opts.Currency),
		)
		t.AppendRow(row)
	}

	t.AppendSeparator()

	footer := table.Row{""}
	if hasDescriptions {
		footer = append(footer, "")
	}
	if hasTags {
		footer = append(footer, "")
	}
	footer = append(footer, "", "", bold("Total"),
		bold(opts.Currency.Format(summary.Average.For(opts.Period))),
		bold(opts.Currency.Format(summary.Remaining.For(opts.Period))))
	t.AppendFooter(footer)

	alignRight(t, len(header), 3)
	t.Render()

	if summary.Unconverted > 0 {
		fmt.Fprintf(w, "%s %d amounts could not be converted to %s and are shown in their own currency\n",
			text.FgYellow.Sprint("*"), summary.Unconverted, opts.Currency.Code)
	}
	if summary.UnknownDue > 0 {
		fmt.Fprintf(w, "%d subscriptions have an invalid start date and no due date\n", summary.UnknownDue)
	}
}

// JSONSubscription is the JSON output format for a subscription
type JSONSubscription struct {
	tracker.SubscriptionView
	Repeat      string   `json:"repeat"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// SubscriptionsJSON annotates views with their repeat description and the
// configured description and tags.
func SubscriptionsJSON(views []tracker.SubscriptionView, opts Options) []JSONSubscription {
	out := make([]JSONSubscription, 0, len(views))
	for _, v := range views {
		desc := opts.Config.GetDescription(v.Subscription.Name)
		if desc == "" {
			desc = v.Subscription.Description
		}
		out = append(out, JSONSubscription{
			SubscriptionView: v,
			Repeat:           DescribeRule(v.Rule),
			Description:      desc,
			Tags:             opts.Config.GetTags(v.Subscription.Name),
		})
	}
	return out
}
