package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/config"
	"github.com/gigurra/subscription-tracker/internal/ledger"
	"github.com/gigurra/subscription-tracker/internal/money"
	"github.com/gigurra/subscription-tracker/internal/recurrence"
	"github.com/gigurra/subscription-tracker/internal/tracker"
)

func TestMain(m *testing.M) {
	text.DisableColors()
	os.Exit(m.Run())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var now = time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

func testViews() []tracker.SubscriptionView {
	table := money.NewTable("USD", map[string]decimal.Decimal{"EUR": dec("0.8")})
	subs := []ledger.Subscription{
		{ID: "1", Name: "Netflix", Amount: dec("9.99"), Currency: "USD", StartsOn: "2023-01-15", RepeatMode: "month", RepeatInterval: 1},
		{ID: "2", Name: "Insurance", Amount: dec("96"), Currency: "EUR", StartsOn: "2020-01-01", RepeatMode: "year", RepeatInterval: 1},
		{ID: "3", Name: "Gym", Amount: dec("300"), Currency: "SEK", StartsOn: "2024-05-20", RepeatMode: "month", RepeatInterval: 3},
	}
	return tracker.New(table, recurrence.Options{}, nil).Evaluate(subs, now)
}

func testOptions(cfg *config.Config) Options {
	return Options{Currency: money.GetCurrency("USD"), Period: recurrence.Month, Config: cfg, Now: now}
}

func TestDescribeRule(t *testing.T) {
	tests := []struct {
		rule recurrence.Rule
		want string
	}{
		{recurrence.Every(1, recurrence.Month), "monthly"},
		{recurrence.Every(0, recurrence.Week), "weekly"},
		{recurrence.Every(3, recurrence.Month), "every 3 months"},
		{recurrence.Every(2, recurrence.Year), "every 2 years"},
		{recurrence.Every(10, recurrence.Day), "every 10 days"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := DescribeRule(tt.rule); got != tt.want {
				t.Errorf("DescribeRule(%+v) = %q, want %q", tt.rule, got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in    string
		want  recurrence.RepeatMode
		known bool
	}{
		{"week", recurrence.Week, true},
		{"Yearly", recurrence.Year, true},
		{"month", recurrence.Month, true},
		{"day", recurrence.Month, false},
		{"decade", recurrence.Month, false},
	}
	for _, tt := range tests {
		got, known := ParsePeriod(tt.in)
		if got != tt.want || known != tt.known {
			t.Errorf("ParsePeriod(%q) = %s, %v, want %s, %v", tt.in, got, known, tt.want, tt.known)
		}
	}
}

func TestPrintSubscriptionsTable(t *testing.T) {
	var buf bytes.Buffer
	PrintSubscriptionsTable(&buf, testViews(), testOptions(nil))
	out := buf.String()

	for _, want := range []string{
		"Tracking 3 subscriptions in USD",
		"Showing: per month",
		"Avg/month",
		"Left this month",
		"Netflix",
		"2024-06-15",
		"$9.99",
		"every 3 months",
		"2025-01-01",
		"1 amounts could not be converted to USD",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Description") || strings.Contains(out, "Tags") {
		t.Errorf("optional columns shown without annotations:\n%s", out)
	}
}

func TestPrintSubscriptionsTable_Annotations(t *testing.T) {
	cfg := &config.Config{
		Descriptions: map[string]string{"Netflix": "Family plan"},
		Tags:         map[string][]string{"Gym": {"health", "sport"}},
	}
	var buf bytes.Buffer
	PrintSubscriptionsTable(&buf, testViews(), testOptions(cfg))
	out := buf.String()

	for _, want := range []string{"Description", "Family plan", "Tags", "health, sport"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintUpcomingTable(t *testing.T) {
	views := testViews()
	var buf bytes.Buffer
	PrintUpcomingTable(&buf, tracker.Upcoming(views, now, 12), testOptions(nil))
	out := buf.String()

	for _, want := range []string{"next 12 months", "Jun 2024", "Netflix (15)", "Gym (20)*", "Jan 2025", "Insurance (1)", "May 2025"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		total, max string
		want       int
	}{
		{"10", "10", barWidth},
		{"5", "10", barWidth / 2},
		{"0.01", "100", 1},
		{"0", "10", 0},
		{"5", "0", 0},
	}
	for _, tt := range tests {
		got := len([]rune(bar(dec(tt.total), dec(tt.max))))
		if got != tt.want {
			t.Errorf("bar(%s, %s) has %d blocks, want %d", tt.total, tt.max, got, tt.want)
		}
	}
}

func budgetData() ([]ledger.Budget, []ledger.Expense) {
	budgets := []ledger.Budget{
		{ID: "food", Name: "Food", Amount: dec("400"), Month: "2024-06-01"},
		{ID: "fun", Name: "Fun", Amount: dec("100"), Month: "2024-06-01"},
		{ID: "old", Name: "Food", Amount: dec("350"), Month: "2024-05-01"},
	}
	expenses := []ledger.Expense{
		{ID: "e1", BudgetID: "food", Payee: "Grocer", Category: "groceries", Amount: dec("120"), Date: "2024-06-02"},
		{ID: "e2", BudgetID: "fun", Payee: "Cinema", Category: "movies", Amount: dec("95"), Date: "2024-06-05"},
		{ID: "e3", BudgetID: "food", Payee: "Bakery", Amount: dec("10"), Date: "2024-06-05"},
		{ID: "e4", BudgetID: "old", Payee: "Grocer", Amount: dec("300"), Date: "2024-05-20"},
	}
	return budgets, expenses
}

func TestNewBudgetSection(t *testing.T) {
	budgets, expenses := budgetData()
	s := NewBudgetSection(budgets, expenses, recurrence.MustParseDate("2024-06-17"))

	if s.Month.String() != "2024-06-01" || len(s.Usages) != 2 {
		t.Fatalf("section month %s with %d usages", s.Month, len(s.Usages))
	}
	if !s.Planned.Equal(dec("500")) || !s.Spent.Equal(dec("225")) || !s.Left.Equal(dec("275")) {
		t.Errorf("planned %s spent %s left %s", s.Planned, s.Spent, s.Left)
	}
	if s.Usages[0].Budget.Name != "Fun" {
		t.Errorf("highest ratio first, got %s", s.Usages[0].Budget.Name)
	}
	if len(s.Daily) != 2 || len(s.History) != 2 {
		t.Errorf("daily %d days, history %d months", len(s.Daily), len(s.History))
	}
}

func TestPrintBudgetsTable(t *testing.T) {
	budgets, expenses := budgetData()
	s := NewBudgetSection(budgets, expenses, recurrence.MustParseDate("2024-06-01"))

	var buf bytes.Buffer
	PrintBudgetsTable(&buf, s, testOptions(nil))
	out := buf.String()
	for _, want := range []string{"Budgets for June 2024", "Fun", "95%", "33%", "Left to spend or save", "$275.00", "Uncategorized", "groceries"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintExpensesTable(t *testing.T) {
	budgets, expenses := budgetData()
	s := NewBudgetSection(budgets, expenses, recurrence.MustParseDate("2024-06-01"))

	var buf bytes.Buffer
	PrintExpensesTable(&buf, s, testOptions(nil))
	out := buf.String()
	for _, want := range []string{"Expenses for June 2024", "2024-06-02", "Grocer", "Cinema", "$380.00", "$275.00", "$225.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2024-05-20") {
		t.Errorf("expense from another month shown:\n%s", out)
	}
}

func TestReport_JSON(t *testing.T) {
	views := testViews()
	opts := testOptions(&config.Config{Tags: map[string][]string{"Netflix": {"video"}}})
	budgets, expenses := budgetData()

	r := NewReport(now, opts, false).
		WithSubscriptions(views, opts).
		WithUpcoming(tracker.Upcoming(views, now, 12)).
		WithBudgets(NewBudgetSection(budgets, expenses, recurrence.DateOf(now)))

	var buf bytes.Buffer
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var got struct {
		Today         string `json:"today"`
		BaseCurrency  string `json:"base_currency"`
		Period        string `json:"period"`
		Subscriptions []struct {
			Repeat    string   `json:"repeat"`
			Tags      []string `json:"tags"`
			DueDate   *string  `json:"due_date"`
			Converted struct {
				Status string `json:"status"`
			} `json:"converted"`
		} `json:"subscriptions"`
		Summary struct {
			Count       int `json:"count"`
			Unconverted int `json:"unconverted"`
		} `json:"summary"`
		Upcoming []json.RawMessage `json:"upcoming"`
		Budgets  struct {
			Left string `json:"left"`
		} `json:"budgets"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, buf.String())
	}

	if got.Today != "2024-06-10" || got.BaseCurrency != "USD" || got.Period != "month" {
		t.Errorf("header = %q %q %q", got.Today, got.BaseCurrency, got.Period)
	}
	if len(got.Subscriptions) != 3 || got.Subscriptions[0].Repeat != "monthly" || got.Subscriptions[0].Tags[0] != "video" {
		t.Fatalf("subscriptions = %+v", got.Subscriptions)
	}
	if got.Subscriptions[0].DueDate == nil || *got.Subscriptions[0].DueDate != "2024-06-15" {
		t.Errorf("due_date = %v", got.Subscriptions[0].DueDate)
	}
	if got.Subscriptions[2].Converted.Status != "unconverted_fallback" {
		t.Errorf("Gym conversion status = %q", got.Subscriptions[2].Converted.Status)
	}
	if got.Summary.Count != 3 || got.Summary.Unconverted != 1 || len(got.Upcoming) != 12 || got.Budgets.Left != "275" {
		t.Errorf("summary %+v, %d upcoming, budgets left %q", got.Summary, len(got.Upcoming), got.Budgets.Left)
	}
}

func TestFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "tags:\n  Netflix: [Video]\n  Gym: [health]\nexclude:\n  - insur\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	views := testViews()
	if got := FilterByExclusions(views, cfg); len(got) != 2 {
		t.Errorf("FilterByExclusions() kept %d, want 2", len(got))
	}
	got := FilterByTags(views, []string{"video"}, cfg)
	if len(got) != 1 || got[0].Subscription.Name != "Netflix" {
		t.Errorf("FilterByTags(video) = %d views", len(got))
	}
	if got := FilterByTags(views, nil, cfg); len(got) != 3 {
		t.Errorf("FilterByTags(nil) kept %d, want 3", len(got))
	}
}
