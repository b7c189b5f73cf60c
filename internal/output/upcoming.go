package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/aggregate"
	"github.com/gigurra/subscription-tracker/internal/tracker"
)

const barWidth = 20

// bar draws total relative to max as a row of blocks.
func bar(total, max decimal.Decimal) string {
	if !max.IsPositive() || !total.IsPositive() {
		return ""
	}
	n := int(total.Mul(decimal.NewFromInt(barWidth)).Div(max).Round(0).IntPart())
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// PrintUpcomingTable outputs one row per upcoming month with the charges due in it.
func PrintUpcomingTable(w io.Writer, buckets []tracker.MonthBucket, opts Options) {
	months := len(buckets)
	fmt.Fprintf(w, "Upcoming charges for the next %d months\n\n", months)

	max := tracker.MaxTotal(buckets)
	t := newTable(w)
	t.AppendHeader(table.Row{"Month", "Charges", "Total", ""})

	for _, b := range buckets {
		var names []string
		for _, it := range b.Items {
			name := fmt.Sprintf("%s (%d)", it.Name, it.Date.Day())
			if it.View.Converted.IsFallback() {
				name += text.FgYellow.Sprint("*")
			}
			names = append(names, name)
		}
		charges := strings.Join(names, ", ")
		if charges == "" {
			charges = text.FgHiBlack.Sprint("-")
		}
		t.AppendRow(table.Row{
			b.Month.Format("Jan 2006"),
			charges,
			opts.Currency.Format(b.Total),
			text.FgCyan.Sprint(bar(b.Total, max)),
		})
	}

	t.AppendSeparator()
	total := aggregate.SumBy(buckets, func(b tracker.MonthBucket) decimal.Decimal { return b.Total })
	t.AppendFooter(table.Row{"", bold("Total"), bold(opts.Currency.Format(total)), ""})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()
}
