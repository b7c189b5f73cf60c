package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/gigurra/subscription-tracker/internal/cache"
	"github.com/gigurra/subscription-tracker/internal/config"
	"github.com/gigurra/subscription-tracker/internal/export"
	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/logging"
	"github.com/gigurra/subscription-tracker/internal/money"
	"github.com/gigurra/subscription-tracker/internal/notify"
	"github.com/gigurra/subscription-tracker/internal/output"
	"github.com/gigurra/subscription-tracker/internal/rates"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
	"github.com/gigurra/subscription-tracker/internal/store"
	"github.com/gigurra/subscription-tracker/internal/tracker"
)

const upcomingMonths = 12

var errNoRecords = errors.New("no records: pass a file or configure a store")

func run(ctx context.Context, p *Params, stdout, stderr io.Writer) error {
	_ = godotenv.Load()

	cfgPath := p.Config
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}

	now := time.Now()
	if p.Now != "" {
		d, err := recurrence.ParseDate(p.Now)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		now = d.Time
	}
	month := recurrence.DateOf(now).FirstOfMonth()
	if p.Month != "" {
		if month, err = parseMonth(p.Month); err != nil {
			return fmt.Errorf("--month: %w", err)
		}
	}

	currency, err := resolveCurrency(p.Base, cfg)
	if err != nil {
		return err
	}

	var st *store.Storage
	if cfg.Store.Backend != "none" {
		if st, err = openStore(ctx, cfg.Store); err != nil {
			return err
		}
		defer st.Close()
	}

	data, err := loadRecords(ctx, p, st, log)
	if err != nil {
		return err
	}

	if p.CloneFrom != "" {
		if st == nil {
			return errors.New("--clone-from needs a configured store")
		}
		from, err := parseMonth(p.CloneFrom)
		if err != nil {
			return fmt.Errorf("--clone-from: %w", err)
		}
		clones, err := st.CloneBudgets(ctx, from, month)
		if err != nil {
			return err
		}
		log.Info("cloned budgets", "from", from.String(), "to", month.String(), "count", len(clones))
		data.Budgets = append(data.Budgets, clones...)
	}

	table := fetchRates(ctx, currency.Code, p.Offline, cfg, st, log)

	opts := recurrence.Options{HonorInterval: p.HonorInterval || cfg.HonorInterval}
	views := tracker.New(table, opts, logging.WithComponent(log, "tracker")).Evaluate(data.Subscriptions, now)
	views = output.FilterByExclusions(views, cfg)
	views = output.FilterByTags(views, p.Tags, cfg)
	sortKey, _ := tracker.ParseSortKey(p.Sort)
	views = tracker.SortViews(views, sortKey, p.SortDir == "desc")

	period, _ := output.ParsePeriod(p.Period)
	outOpts := output.Options{Currency: currency, Period: period, Config: cfg, Now: now}

	if err := render(stdout, p, views, data, month, now, outOpts, opts.HonorInterval); err != nil {
		return err
	}

	if p.Publish {
		if err := publishReminders(ctx, cfg, views, now, currency.Code, log); err != nil {
			return err
		}
	}

	if p.Upload != "" {
		report := fullReport(views, data, month, now, outOpts, opts.HonorInterval)
		if err := uploadReport(ctx, p.Upload, cfg.Export.Region, report, now, log); err != nil {
			return err
		}
	}

	return nil
}

// parseMonth accepts YYYY-MM or any date and returns the first of that month.
func parseMonth(s string) (recurrence.Date, error) {
	if len(s) == len("2006-01") {
		s += "-01"
	}
	d, err := recurrence.ParseDate(s)
	if err != nil {
		return recurrence.Date{}, err
	}
	return d.FirstOfMonth(), nil
}

// resolveCurrency picks the base currency from the flag, the config or the
// system locale, in that order, and formats it in the configured locale.
func resolveCurrency(flag string, cfg *config.Config) (money.Currency, error) {
	tag := language.Und
	if cfg.Locale != "" {
		t, err := money.ParseLocale(cfg.Locale)
		if err != nil {
			return money.Currency{}, fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
		}
		tag = t
	}

	code := flag
	if code == "" {
		code = cfg.BaseCurrency
	}
	if code == "" {
		detected, detectedTag := money.DetectSystemCurrency()
		code = detected
		if tag == language.Und {
			tag = detectedTag
		}
	}
	if code == "" {
		code = "EUR"
	}
	return money.GetCurrencyWithLocale(code, tag), nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*store.Storage, error) {
	dsn := cfg.DSN
	if cfg.IAM.Endpoint != "" {
		var err error
		dsn, err = store.IAMDSN(ctx, store.IAMConfig{
			Endpoint: cfg.IAM.Endpoint,
			Region:   cfg.IAM.Region,
			User:     cfg.IAM.User,
			Database: cfg.IAM.Database,
		})
		if err != nil {
			return nil, err
		}
	}
	return store.Open(ctx, store.Backend(cfg.Backend), dsn)
}

// loadRecords reads the file arguments and the store. With --import the files
// are saved first and the store is the only source; otherwise file records are
// shown next to the stored ones.
func loadRecords(ctx context.Context, p *Params, st *store.Storage, log *slog.Logger) (ledger.Dataset, error) {
	var args []string
	if p.File != "" {
		args = append(args, p.File)
	}
	args = append(args, p.Include...)

	var files ledger.Dataset
	if len(args) > 0 {
		var err error
		if files, err = ledger.LoadAll(ctx, args, p.Source); err != nil {
			return ledger.Dataset{}, err
		}
		log.Debug("loaded record files", "files", len(args), "records", files.Len())
	}

	if st == nil {
		if p.Import {
			return ledger.Dataset{}, errors.New("--import needs a configured store")
		}
		if len(args) == 0 {
			return ledger.Dataset{}, errNoRecords
		}
		return files, nil
	}

	if p.Import {
		if err := st.SaveDataset(ctx, files); err != nil {
			return ledger.Dataset{}, err
		}
		log.Info("imported records", "records", files.Len(), "backend", string(st.Backend()))
	}

	stored, err := st.LoadDataset(ctx)
	if err != nil {
		return ledger.Dataset{}, err
	}
	if !p.Import {
		stored.Merge(files)
	}
	return stored, nil
}

// fetchRates returns the rate table for base. Failures are logged and yield an
// empty table, so every foreign amount is shown unconverted.
func fetchRates(ctx context.Context, base string, offline bool, cfg *config.Config, st *store.Storage, log *slog.Logger) money.Table {
	empty := money.NewTable(base, nil)
	if offline {
		return empty
	}

	c := newRateCache(st)
	client := rates.NewClient(cfg.Rates.BaseURL, cfg.Rates.Timeout)
	fetcher := rates.NewCachingFetcher(client, c, cfg.Rates.CacheTTL, logging.WithComponent(log, "rates"))

	table, err := fetcher.Fetch(ctx, base)
	if err != nil {
		log.Error("fetching exchange rates failed, amounts stay unconverted", "base", base, "error", err)
		return empty
	}
	return table
}

// newRateCache returns the store's rate cache, or a memory cache when there is
// no store. Memory snapshots never expire so a stale table can back a failed refetch.
func newRateCache(st *store.Storage, opts ...cache.Option) rates.Cache {
	if st != nil {
		return st.RateCache()
	}
	return rates.NewMemoryCache(8, 0, opts...)
}

func render(w io.Writer, p *Params, views []tracker.SubscriptionView, data ledger.Dataset, month recurrence.Date, now time.Time, opts output.Options, honorInterval bool) error {
	if p.Output == "json" {
		report := output.NewReport(now, opts, honorInterval)
		switch p.View {
		case "upcoming":
			report.WithUpcoming(tracker.Upcoming(views, now, upcomingMonths))
		case "budgets", "expenses":
			report.WithBudgets(output.NewBudgetSection(data.Budgets, data.Expenses, month))
		default:
			report.WithSubscriptions(views, opts)
		}
		return output.WriteJSON(w, report)
	}

	switch p.View {
	case "upcoming":
		output.PrintUpcomingTable(w, tracker.Upcoming(views, now, upcomingMonths), opts)
	case "budgets":
		output.PrintBudgetsTable(w, output.NewBudgetSection(data.Budgets, data.Expenses, month), opts)
	case "expenses":
		output.PrintExpensesTable(w, output.NewBudgetSection(data.Budgets, data.Expenses, month), opts)
	default:
		if len(views) == 0 {
			fmt.Fprintln(w, "No subscriptions.")
			return nil
		}
		output.PrintSubscriptionsTable(w, views, opts)
	}
	return nil
}

func fullReport(views []tracker.SubscriptionView, data ledger.Dataset, month recurrence.Date, now time.Time, opts output.Options, honorInterval bool) *output.Report {
	return output.NewReport(now, opts, honorInterval).
		WithSubscriptions(views, opts).
		WithUpcoming(tracker.Upcoming(views, now, upcomingMonths)).
		WithBudgets(output.NewBudgetSection(data.Budgets, data.Expenses, month))
}

func publishReminders(ctx context.Context, cfg *config.Config, views []tracker.SubscriptionView, now time.Time, base string, log *slog.Logger) error {
	if cfg.AMQP.URL == "" {
		return errors.New("--publish needs amqp.url in the config")
	}
	reminders := notify.Reminders(views, now, cfg.Reminders.Days, base)
	if len(reminders) == 0 {
		log.Info("no subscriptions due soon", "days", cfg.Reminders.Days)
		return nil
	}

	pub, err := notify.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey, logging.WithComponent(log, "notify"))
	if err != nil {
		return err
	}
	defer pub.Close()

	n, err := pub.PublishAll(ctx, reminders)
	if err != nil {
		return fmt.Errorf("published %d of %d reminders: %w", n, len(reminders), err)
	}
	log.Info("published reminders", "count", n)
	return nil
}

func uploadReport(ctx context.Context, dest, region string, report *output.Report, now time.Time, log *slog.Logger) error {
	name := "subscriptions-" + recurrence.DateOf(now).String() + ".json"
	loc, err := export.ParseS3URL(dest, name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := output.WriteJSON(&buf, report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	uploader, err := export.NewS3Uploader(ctx, region)
	if err != nil {
		return err
	}
	if err := uploader.Upload(ctx, loc, buf.Bytes(), "application/json"); err != nil {
		return err
	}
	log.Info("uploaded report", "location", loc.String(), "bytes", buf.Len())
	return nil
}
