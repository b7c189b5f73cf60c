package main

import (
	"context"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
)

type Params struct {
	File          string   `descr:"Record file, optionally prefixed with its format (json:path, yaml:path, subscriptions-xlsx:path)" positional:"true" optional:"true"`
	Include       []string `descr:"Additional record files, same syntax as the positional file" optional:"true"`
	Source        string   `descr:"Format of files whose extension says nothing" alts:"json,yaml,subscriptions-xlsx" strict:"true" default:"json"`
	Config        string   `descr:"Path to config file (default: ~/.subscription-tracker/config.yaml)" optional:"true"`
	View          string   `descr:"What to show" alts:"subscriptions,upcoming,budgets,expenses" strict:"true" default:"subscriptions"`
	Output        string   `descr:"Output format" alts:"table,json" strict:"true" default:"table"`
	Period        string   `descr:"Period for averages and remaining amounts" alts:"week,month,year" strict:"true" default:"month"`
	Sort          string   `descr:"Sort subscriptions by" alts:"name,amount,due" strict:"true" default:"name"`
	SortDir       string   `descr:"Sort direction" alts:"asc,desc" strict:"true" default:"asc"`
	Tags          []string `descr:"Only show subscriptions with any of these tags" optional:"true"`
	Base          string   `descr:"Base currency (default: config, then system locale)" optional:"true"`
	Now           string   `descr:"Evaluate as of this date instead of today (YYYY-MM-DD)" optional:"true"`
	Month         string   `descr:"Month for budgets and expenses (YYYY-MM, default: the month of --now)" optional:"true"`
	HonorInterval bool     `descr:"Take the repeat interval into account in averages and schedules" optional:"true"`
	Offline       bool     `descr:"Do not fetch exchange rates; amounts in other currencies stay unconverted" optional:"true"`
	Import        bool     `descr:"Save the loaded records to the configured store" optional:"true"`
	CloneFrom     string   `descr:"Copy the stored budgets of this month (YYYY-MM) into --month" optional:"true"`
	Publish       bool     `descr:"Publish reminders for subscriptions due soon to the configured AMQP exchange" optional:"true"`
	Upload        string   `descr:"Upload the full JSON report to s3://bucket/key" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("subscription-tracker").
		WithShort("Track subscriptions, upcoming charges and monthly budgets").
		WithLong("Computes next due dates, average and remaining costs per week, month and year, a twelve month schedule of upcoming charges, and budget usage. Amounts are converted into one base currency using current exchange rates.").
		WithRunFunc(func(params *Params) {
			if err := run(context.Background(), params, os.Stdout, os.Stderr); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}
