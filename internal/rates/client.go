// Package rates fetches exchange rate tables and caches them.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigurra/subscription-tracker/internal/money"
)

// DefaultBaseURL serves the ECB reference rates in the expected format.
const DefaultBaseURL = "https://api.frankfurter.app"

// ErrUnexpectedStatus is returned when the rate provider answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status from rate provider")

// Fetcher returns the rate table for a base currency.
type Fetcher interface {
	Fetch(ctx context.Context, base string) (money.Table, error)
}

// Client fetches rates over HTTP from GET <baseURL>/latest?base=<CUR>.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a rate client. A zero timeout means 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				DialContext:           dialer.DialContext,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
			Timeout: timeout,
		},
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Fetch downloads the latest rates for base.
func (c *Client) Fetch(ctx context.Context, base string) (money.Table, error) {
	base = money.NormalizeCode(base)
	u := c.baseURL + "/latest?base=" + url.QueryEscape(base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return money.Table{}, fmt.Errorf("building rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return money.Table{}, fmt.Errorf("fetching rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return money.Table{}, fmt.Errorf("fetching rates for %s: %w: %d", base, ErrUnexpectedStatus, resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return money.Table{}, fmt.Errorf("decoding rates for %s: %w", base, err)
	}
	return money.NewTable(base, body.Rates), nil
}
