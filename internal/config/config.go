// Package config loads the tracker configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/gigurra/subscription-tracker/internal/rates"
)

type RatesConfig struct {
	BaseURL  string        `yaml:"base_url,omitempty" env:"SUBTRACK_RATES_URL"`
	Timeout  time.Duration `yaml:"timeout,omitempty" env:"SUBTRACK_RATES_TIMEOUT"`
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty" env:"SUBTRACK_RATES_CACHE_TTL"`
}

// IAMConfig enables IAM authentication for a postgres store on RDS. When
// Endpoint is set the DSN is built from it and the configured dsn is ignored.
type IAMConfig struct {
	Endpoint string `yaml:"endpoint,omitempty" env:"SUBTRACK_STORE_IAM_ENDPOINT"`
	Region   string `yaml:"region,omitempty" env:"SUBTRACK_STORE_IAM_REGION"`
	User     string `yaml:"user,omitempty" env:"SUBTRACK_STORE_IAM_USER"`
	Database string `yaml:"database,omitempty" env:"SUBTRACK_STORE_IAM_DATABASE"`
}

type StoreConfig struct {
	// Backend is none, sqlite or postgres.
	Backend string    `yaml:"backend,omitempty" env:"SUBTRACK_STORE_BACKEND"`
	DSN     string    `yaml:"dsn,omitempty" env:"SUBTRACK_STORE_DSN"`
	IAM     IAMConfig `yaml:"iam,omitempty"`
}

type AMQPConfig struct {
	URL        string `yaml:"url,omitempty" env:"SUBTRACK_AMQP_URL"`
	Exchange   string `yaml:"exchange,omitempty" env:"SUBTRACK_AMQP_EXCHANGE"`
	RoutingKey string `yaml:"routing_key,omitempty" env:"SUBTRACK_AMQP_ROUTING_KEY"`
}

type RemindersConfig struct {
	Days int `yaml:"days,omitempty" env:"SUBTRACK_REMINDER_DAYS"`
}

type ExportConfig struct {
	Region string `yaml:"region,omitempty" env:"SUBTRACK_EXPORT_REGION"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"SUBTRACK_LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"SUBTRACK_LOG_FORMAT"`
}

type Config struct {
	// BaseCurrency is the currency every amount is converted into. Empty means
	// the currency of the system locale.
	BaseCurrency string `yaml:"base_currency,omitempty" env:"SUBTRACK_BASE_CURRENCY"`
	Locale       string `yaml:"locale,omitempty" env:"SUBTRACK_LOCALE"`

	// HonorInterval divides projections by the repeat interval. Off by default,
	// so "every 3 months" projects like "every month".
	HonorInterval bool `yaml:"honor_interval,omitempty" env:"SUBTRACK_HONOR_INTERVAL"`

	// Descriptions maps subscription names to custom descriptions
	Descriptions map[string]string `yaml:"descriptions,omitempty"`

	// Tags maps subscription names to a list of tags (e.g., "entertainment", "utilities")
	Tags map[string][]string `yaml:"tags,omitempty"`

	// Exclude hides subscriptions whose name matches one of these patterns (case-insensitive)
	Exclude []string `yaml:"exclude,omitempty"`

	Rates     RatesConfig     `yaml:"rates,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
	AMQP      AMQPConfig      `yaml:"amqp,omitempty"`
	Reminders RemindersConfig `yaml:"reminders,omitempty"`
	Export    ExportConfig    `yaml:"export,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`

	excludes []*regexp.Regexp `yaml:"-"`
}

// DefaultConfigPath returns the default config file path (~/.subscription-tracker/config.yaml)
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".subscription-tracker", "config.yaml")
}

// DefaultDBPath is where the sqlite database goes when no dsn is configured.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tracker.db"
	}
	return filepath.Join(home, ".subscription-tracker", "tracker.db")
}

// NewDefaultConfig returns the configuration used when no file exists.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Rates.BaseURL == "" {
		c.Rates.BaseURL = rates.DefaultBaseURL
	}
	if c.Rates.Timeout == 0 {
		c.Rates.Timeout = 10 * time.Second
	}
	if c.Rates.CacheTTL == 0 {
		c.Rates.CacheTTL = 12 * time.Hour
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "none"
	}
	if c.Store.Backend == "sqlite" && c.Store.DSN == "" {
		c.Store.DSN = DefaultDBPath()
	}
	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "subscriptions"
	}
	if c.AMQP.RoutingKey == "" {
		c.AMQP.RoutingKey = "due_reminders"
	}
	if c.Reminders.Days == 0 {
		c.Reminders.Days = 7
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// LoadConfig reads path, applies SUBTRACK_* environment overrides and fills in
// defaults. A missing file is not an error: the defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.applyDefaults()

	for _, pattern := range cfg.Exclude {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		cfg.excludes = append(cfg.excludes, re)
	}

	return &cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.BaseCurrency != "" && len(strings.TrimSpace(c.BaseCurrency)) != 3 {
		problems = append(problems, fmt.Sprintf("invalid base currency %q: must be a 3-letter code", c.BaseCurrency))
	}

	if u, err := url.Parse(c.Rates.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		problems = append(problems, fmt.Sprintf("invalid rates base url %q: must be http or https", c.Rates.BaseURL))
	}
	if c.Rates.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("invalid rates timeout %v: must not be negative", c.Rates.Timeout))
	}
	if c.Rates.CacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid rates cache ttl %v: must not be negative", c.Rates.CacheTTL))
	}

	switch c.Store.Backend {
	case "none", "sqlite":
	case "postgres":
		if c.Store.DSN == "" && c.Store.IAM.Endpoint == "" {
			problems = append(problems, "postgres store needs a dsn or an iam endpoint")
		}
		if c.Store.IAM.Endpoint != "" && (c.Store.IAM.User == "" || c.Store.IAM.Database == "") {
			problems = append(problems, "iam store authentication needs user and database")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend %q: must be one of none, sqlite, postgres", c.Store.Backend))
	}

	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL %q: %v", c.AMQP.URL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", u.Scheme))
		}
	}

	if c.Reminders.Days < 0 {
		problems = append(problems, fmt.Sprintf("invalid reminder days %d: must not be negative", c.Reminders.Days))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format %q: must be text or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ShouldExclude returns true if name matches any exclude pattern
func (c *Config) ShouldExclude(name string) bool {
	if c == nil {
		return false
	}
	for _, re := range c.excludes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// GetDescription returns the custom description for a subscription, or empty string
func (c *Config) GetDescription(name string) string {
	if c == nil || c.Descriptions == nil {
		return ""
	}
	return c.Descriptions[name]
}

// GetTags returns the tags for a subscription, or nil if none
func (c *Config) GetTags(name string) []string {
	if c == nil || c.Tags == nil {
		return nil
	}
	return c.Tags[name]
}
