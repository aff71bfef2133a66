package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all settings for both binaries, populated from environment
// variables. A .env file in the working directory is honored when present.
type Config struct {
	// NWIS API.
	BaseURL            string
	HTTPTimeout        time.Duration
	MaxAttempts        int
	RateLimitRPS       float64
	RateLimitBurst     int
	MaxSitesPerRequest int

	// Collection.
	MaxConcurrency int
	ParameterCodes []string
	SiteTypes      []string
	StartDate      time.Time
	EndDate        time.Time
	PageWindow     time.Duration
	States         []string
	Resume         bool

	// Output artifacts.
	OutputDir   string
	CatalogPath string

	// Ambient.
	LogLevel  string
	LogFormat string
	HTTPAddr  string // empty disables the ops server

	// Optional summary sink, enabled when brokers are set.
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// KafkaEnabled reports whether per-partition summaries should be published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from the environment, applying defaults where
// unset and validating the rest.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	pageWindow, err := parseDuration("PAGE_WINDOW", "720h")
	if err != nil {
		return nil, err
	}
	maxAttempts, err := parsePositiveInt("MAX_ATTEMPTS", 4)
	if err != nil {
		return nil, err
	}
	rps, err := parsePositiveFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}
	burst, err := parsePositiveInt("RATE_LIMIT_BURST", 5)
	if err != nil {
		return nil, err
	}
	batchSize, err := parsePositiveInt("MAX_SITES_PER_REQUEST", 50)
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("MAX_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	start, end, err := parseDateRange()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:            strings.TrimRight(envOrDefault("NWIS_BASE_URL", "https://waterservices.usgs.gov/nwis"), "/"),
		HTTPTimeout:        httpTimeout,
		MaxAttempts:        maxAttempts,
		RateLimitRPS:       rps,
		RateLimitBurst:     burst,
		MaxSitesPerRequest: batchSize,
		MaxConcurrency:     concurrency,
		ParameterCodes:     splitCodes(envOrDefault("PARAMETER_CODES", "00060,00065")),
		SiteTypes:          splitCodes(envOrDefault("SITE_TYPES", "ST")),
		StartDate:          start,
		EndDate:            end,
		PageWindow:         pageWindow,
		States:             splitCodes(os.Getenv("STATES")),
		Resume:             os.Getenv("RESUME") == "true",
		OutputDir:          envOrDefault("OUTPUT_DIR", "data"),
		CatalogPath:        envOrDefault("CATALOG_PATH", "data/usgs_all_sites.parquet"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:           os.Getenv("HTTP_ADDR"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaSummaryTopic:  envOrDefault("KAFKA_SUMMARY_TOPIC", "water-collection-summaries"),
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("NWIS_BASE_URL must not be empty")
	}
	if !cfg.EndDate.After(cfg.StartDate) {
		return nil, fmt.Errorf("START_DATE %s must precede END_DATE %s",
			cfg.StartDate.Format(time.DateOnly), cfg.EndDate.Format(time.DateOnly))
	}
	if len(cfg.ParameterCodes) == 0 {
		return nil, fmt.Errorf("PARAMETER_CODES must not be empty")
	}
	for _, st := range cfg.States {
		if len(st) != 2 {
			return nil, fmt.Errorf("STATES entry %q is not a two-letter state code", st)
		}
	}

	return cfg, nil
}

// parseDateRange resolves START_DATE/END_DATE (YYYY-MM-DD). The default
// window is the three years ending today (UTC).
func parseDateRange() (time.Time, time.Time, error) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(-3, 0, 0)

	if s := os.Getenv("END_DATE"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid END_DATE %q: %w", s, err)
		}
		end = t
		start = end.AddDate(-3, 0, 0)
	}
	if s := os.Getenv("START_DATE"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid START_DATE %q: %w", s, err)
		}
		start = t
	}
	return start, end, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitList splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitCodes splits like splitList and uppercases entries, matching NWIS
// conventions for state and parameter codes.
func splitCodes(s string) []string {
	parts := splitList(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p)
	}
	return parts
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, s)
	}
	return f, nil
}
