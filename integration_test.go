package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/cache"
	"github.com/gigurra/subscription-tracker/internal/config"
	"github.com/gigurra/subscription-tracker/internal/money"
	"github.com/gigurra/subscription-tracker/internal/rates"
)

const sampleFile = "testdata/sample.json"

func TestMain(m *testing.M) {
	text.DisableColors()
	os.Exit(m.Run())
}

type jsonReport struct {
	Today         string `json:"today"`
	BaseCurrency  string `json:"base_currency"`
	Period        string `json:"period"`
	Subscriptions []struct {
		Subscription struct {
			Name string `json:"name"`
		} `json:"subscription"`
		DueDate     *string  `json:"due_date"`
		Repeat      string   `json:"repeat"`
		Description string   `json:"description"`
		Tags        []string `json:"tags"`
		Converted   struct {
			From   string `json:"from"`
			Status string `json:"status"`
		} `json:"converted"`
	} `json:"subscriptions"`
	Summary *struct {
		Count       int `json:"count"`
		Unconverted int `json:"unconverted"`
	} `json:"summary"`
	Upcoming []struct {
		Month string `json:"month"`
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	} `json:"upcoming"`
	Budgets *struct {
		Month   string `json:"month"`
		Planned string `json:"planned"`
		Spent   string `json:"spent"`
		Left    string `json:"left"`
	} `json:"budgets"`
}

// defaultParams mirrors the flag defaults, which only apply when boa parses the command line.
func defaultParams() *Params {
	return &Params{
		File:    sampleFile,
		Source:  "json",
		View:    "subscriptions",
		Output:  "table",
		Period:  "month",
		Sort:    "name",
		SortDir: "asc",
		Base:    "EUR",
		Now:     "2024-06-10",
		Offline: true,
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runCLIWithConfig runs the command in-process with the given config content and returns stdout
func runCLIWithConfig(t *testing.T, configContent string, p *Params) string {
	t.Helper()
	if p.Config == "" {
		p.Config = writeConfig(t, configContent)
	}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), p, &stdout, &stderr); err != nil {
		t.Fatalf("run failed: %v\nStderr: %s", err, stderr.String())
	}
	return stdout.String()
}

// runCLI uses an empty config to avoid interference from the user's config
func runCLI(t *testing.T, p *Params) string {
	t.Helper()
	return runCLIWithConfig(t, "", p)
}

func runCLIJSON(t *testing.T, configContent string, p *Params) jsonReport {
	t.Helper()
	p.Output = "json"
	output := runCLIWithConfig(t, configContent, p)

	var result jsonReport
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nOutput: %s", err, output)
	}
	return result
}

func names(r jsonReport) string {
	var out []string
	for _, s := range r.Subscriptions {
		out = append(out, s.Subscription.Name)
	}
	return strings.Join(out, ",")
}

func TestIntegration_JSONSubscriptions(t *testing.T) {
	result := runCLIJSON(t, "", defaultParams())

	if result.Today != "2024-06-10" || result.BaseCurrency != "EUR" || result.Period != "month" {
		t.Errorf("header = %s %s %s", result.Today, result.BaseCurrency, result.Period)
	}
	if got := names(result); got != "Github,Insurance,Netflix,Spotify" {
		t.Errorf("subscriptions = %s", got)
	}
	if result.Summary == nil || result.Summary.Count != 4 || result.Summary.Unconverted != 1 {
		t.Errorf("summary = %+v, want 4 subscriptions with 1 unconverted", result.Summary)
	}
	if result.Upcoming != nil || result.Budgets != nil {
		t.Error("subscriptions view should not include other sections")
	}

	due := map[string]string{}
	for _, s := range result.Subscriptions {
		if s.DueDate != nil {
			due[s.Subscription.Name] = *s.DueDate
		}
		if s.Subscription.Name == "Github" && (s.Converted.From != "USD" || s.Converted.Status != "unconverted_fallback") {
			t.Errorf("Github offline conversion = %+v, want unconverted USD", s.Converted)
		}
	}
	want := map[string]string{
		"Github":    "2024-06-12",
		"Insurance": "2025-01-01",
		"Netflix":   "2024-06-15",
		"Spotify":   "2024-06-29",
	}
	for name, date := range want {
		if due[name] != date {
			t.Errorf("%s due = %q, want %s", name, due[name], date)
		}
	}
}

func TestIntegration_TableOutput(t *testing.T) {
	output := runCLI(t, defaultParams())

	for _, want := range []string{"Tracking 4 subscriptions", "Netflix", "Spotify", "2024-06-15", "monthly", "yearly"} {
		if !strings.Contains(output, want) {
			t.Errorf("table output missing %q:\n%s", want, output)
		}
	}
}

func TestIntegration_NoSubscriptions(t *testing.T) {
	p := defaultParams()
	p.Config = writeConfig(t, "exclude:\n  - \".*\"\n")
	output := runCLI(t, p)

	if strings.TrimSpace(output) != "No subscriptions." {
		t.Errorf("output = %q, want No subscriptions.", output)
	}
}

func TestIntegration_Tags(t *testing.T) {
	config := `
tags:
  Netflix: [entertainment]
  Spotify: [entertainment, music]
  Insurance: [home]
`
	result := runCLIJSON(t, config, defaultParams())
	for _, s := range result.Subscriptions {
		if s.Subscription.Name == "Spotify" && strings.Join(s.Tags, ",") != "entertainment,music" {
			t.Errorf("Spotify tags = %v", s.Tags)
		}
		if s.Subscription.Name == "Github" && len(s.Tags) != 0 {
			t.Errorf("Github tags = %v, want none", s.Tags)
		}
	}

	p := defaultParams()
	p.Tags = []string{"entertainment"}
	filtered := runCLIJSON(t, config, p)
	if got := names(filtered); got != "Netflix,Spotify" {
		t.Errorf("--tags entertainment = %s, want Netflix,Spotify", got)
	}
}

func TestIntegration_Descriptions(t *testing.T) {
	config := `
descriptions:
  Netflix: "Family plan"
`
	output := runCLIWithConfig(t, config, defaultParams())
	if !strings.Contains(output, "Family plan") {
		t.Errorf("description missing from table:\n%s", output)
	}

	result := runCLIJSON(t, config, defaultParams())
	for _, s := range result.Subscriptions {
		if s.Subscription.Name == "Netflix" && s.Description != "Family plan" {
			t.Errorf("Netflix description = %q", s.Description)
		}
	}
}

func TestIntegration_Exclusions(t *testing.T) {
	config := `
exclude:
  - "^git"
  - "insur"
`
	result := runCLIJSON(t, config, defaultParams())
	if got := names(result); got != "Netflix,Spotify" {
		t.Errorf("after exclusions = %s, want Netflix,Spotify", got)
	}
}

func TestIntegration_Sorting(t *testing.T) {
	tests := []struct {
		sort, dir string
		want      string
	}{
		{"name", "desc", "Spotify,Netflix,Insurance,Github"},
		{"amount", "desc", "Spotify,Insurance,Netflix,Github"},
		{"due", "asc", "Github,Netflix,Spotify,Insurance"},
	}
	for _, tt := range tests {
		t.Run(tt.sort+"-"+tt.dir, func(t *testing.T) {
			p := defaultParams()
			p.Sort, p.SortDir = tt.sort, tt.dir
			if got := names(runCLIJSON(t, "", p)); got != tt.want {
				t.Errorf("--sort %s --sort-dir %s = %s, want %s", tt.sort, tt.dir, got, tt.want)
			}
		})
	}
}

func TestIntegration_Upcoming(t *testing.T) {
	p := defaultParams()
	p.View = "upcoming"
	result := runCLIJSON(t, "", p)

	if len(result.Upcoming) != 12 || result.Subscriptions != nil {
		t.Fatalf("upcoming = %d buckets, subscriptions %v", len(result.Upcoming), result.Subscriptions != nil)
	}
	june := result.Upcoming[0]
	var got []string
	for _, it := range june.Items {
		got = append(got, it.Name)
	}
	if june.Month != "2024-06-01" || strings.Join(got, ",") != "Github,Netflix,Spotify" {
		t.Errorf("June bucket = %s %v", june.Month, got)
	}

	p = defaultParams()
	p.View = "upcoming"
	if output := runCLI(t, p); !strings.Contains(output, "Jun 2024") || !strings.Contains(output, "Netflix (15)") {
		t.Errorf("upcoming table:\n%s", output)
	}
}

func TestIntegration_Budgets(t *testing.T) {
	p := defaultParams()
	p.View = "budgets"
	result := runCLIJSON(t, "", p)

	b := result.Budgets
	if b == nil {
		t.Fatal("budgets section missing")
	}
	if b.Month != "2024-06-01" || b.Planned != "500" || b.Spent != "215" || b.Left != "285" {
		t.Errorf("budgets = %+v", *b)
	}

	p = defaultParams()
	p.View = "budgets"
	output := runCLI(t, p)
	for _, want := range []string{"Food", "Fun", "95%", "groceries"} {
		if !strings.Contains(output, want) {
			t.Errorf("budgets table missing %q:\n%s", want, output)
		}
	}

	p = defaultParams()
	p.View = "expenses"
	output = runCLI(t, p)
	for _, want := range []string{"Grocer", "Cinema", "2024-06-05"} {
		if !strings.Contains(output, want) {
			t.Errorf("expenses table missing %q:\n%s", want, output)
		}
	}
}

func TestIntegration_BudgetsOtherMonth(t *testing.T) {
	p := defaultParams()
	p.View = "budgets"
	p.Month = "2024-07"
	result := runCLIJSON(t, "", p)

	if result.Budgets == nil || result.Budgets.Month != "2024-07-01" || result.Budgets.Planned != "0" {
		t.Errorf("July budgets = %+v", result.Budgets)
	}
}

func TestIntegration_StoreImportAndClone(t *testing.T) {
	dir := t.TempDir()
	config := "store:\n  backend: sqlite\n  dsn: " + filepath.Join(dir, "tracker.db") + "\n"
	configPath := writeConfig(t, config)

	p := defaultParams()
	p.Config = configPath
	p.Import = true
	imported := runCLIJSON(t, "", p)
	if imported.Summary == nil || imported.Summary.Count != 4 {
		t.Fatalf("import summary = %+v", imported.Summary)
	}

	// the store alone now serves the records
	p = defaultParams()
	p.Config = configPath
	p.File = ""
	if got := names(runCLIJSON(t, "", p)); got != "Github,Insurance,Netflix,Spotify" {
		t.Errorf("stored subscriptions = %s", got)
	}

	p = defaultParams()
	p.Config = configPath
	p.File = ""
	p.View = "budgets"
	p.Month = "2024-07"
	p.CloneFrom = "2024-06"
	cloned := runCLIJSON(t, "", p)
	if cloned.Budgets == nil || cloned.Budgets.Planned != "500" || cloned.Budgets.Spent != "0" {
		t.Errorf("cloned July budgets = %+v", cloned.Budgets)
	}

	p = defaultParams()
	p.Config = configPath
	p.File = ""
	p.Month = "2024-07"
	p.CloneFrom = "2024-06"
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), p, &stdout, &stderr); err == nil || !strings.Contains(err.Error(), "month already has budgets") {
		t.Errorf("second clone error = %v, want month already has budgets", err)
	}
}

func TestIntegration_Errors(t *testing.T) {
	emptyConfig := writeConfig(t, "")
	tests := []struct {
		name   string
		modify func(p *Params)
		want   string
	}{
		{"no records", func(p *Params) { p.File = "" }, errNoRecords.Error()},
		{"missing file", func(p *Params) { p.File = "testdata/missing.json" }, "missing.json"},
		{"bad now", func(p *Params) { p.Now = "10/06/2024" }, "--now"},
		{"bad month", func(p *Params) { p.Month = "June" }, "--month"},
		{"import without store", func(p *Params) { p.Import = true }, "--import needs a configured store"},
		{"clone without store", func(p *Params) { p.CloneFrom = "2024-05" }, "--clone-from needs a configured store"},
		{"publish without amqp", func(p *Params) { p.Publish = true }, "amqp.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			p.Config = emptyConfig
			tt.modify(p)

			var stdout, stderr bytes.Buffer
			err := run(context.Background(), p, &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("run() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestIntegration_InvalidConfig(t *testing.T) {
	p := defaultParams()
	p.Config = writeConfig(t, "base_currency: euro\n")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), p, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "configuration validation failed") {
		t.Errorf("run() error = %v, want validation failure", err)
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-06", "2024-06-01", false},
		{"2024-06-17", "2024-06-01", false},
		{"2024-13", "", true},
		{"june", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMonth(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMonth(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("parseMonth(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveCurrency(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		cfg     *config.Config
		want    string
		wantErr bool
	}{
		{"flag wins", "usd", &config.Config{BaseCurrency: "SEK"}, "USD", false},
		{"config", "", &config.Config{BaseCurrency: "sek"}, "SEK", false},
		{"config locale", "", &config.Config{BaseCurrency: "EUR", Locale: "de_DE.UTF-8"}, "EUR", false},
		{"bad locale", "EUR", &config.Config{Locale: "not a locale!"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCurrency(tt.flag, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveCurrency() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Code != tt.want {
				t.Errorf("resolveCurrency() = %s, want %s", got.Code, tt.want)
			}
		})
	}
}

type flakyFetcher struct {
	err error
}

func (f *flakyFetcher) Fetch(_ context.Context, base string) (money.Table, error) {
	if f.err != nil {
		return money.Table{}, f.err
	}
	return money.NewTable(base, map[string]decimal.Decimal{"USD": decimal.RequireFromString("1.08")}), nil
}

func TestNewRateCache_ServesStaleAfterTTL(t *testing.T) {
	now := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ttl := time.Hour

	inner := &flakyFetcher{}
	f := rates.NewCachingFetcher(inner, newRateCache(nil, cache.WithClock(clock)), ttl, nil).WithClock(clock)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, "EUR"); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	now = now.Add(3 * ttl)
	inner.err = errors.New("provider down")

	table, err := f.Fetch(ctx, "EUR")
	if err != nil {
		t.Fatalf("Fetch() after ttl error = %v, want stale table", err)
	}
	if got := table.Rates["USD"].String(); got != "1.08" {
		t.Errorf("stale USD rate = %s, want 1.08", got)
	}
}
