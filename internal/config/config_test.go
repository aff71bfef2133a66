package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://waterservices.usgs.gov/nwis", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, 50, cfg.MaxSitesPerRequest)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, []string{"00060", "00065"}, cfg.ParameterCodes)
	assert.Equal(t, []string{"ST"}, cfg.SiteTypes)
	assert.Equal(t, 720*time.Hour, cfg.PageWindow)
	assert.Empty(t, cfg.States)
	assert.False(t, cfg.Resume)
	assert.Equal(t, "data", cfg.OutputDir)
	assert.Equal(t, "data/usgs_all_sites.parquet", cfg.CatalogPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.HTTPAddr)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "water-collection-summaries", cfg.KafkaSummaryTopic)

	// Default window is the three years ending today.
	assert.Equal(t, cfg.EndDate.AddDate(-3, 0, 0), cfg.StartDate)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("NWIS_BASE_URL", "http://localhost:8080/nwis/")
	t.Setenv("HTTP_TIMEOUT", "10s")
	t.Setenv("MAX_ATTEMPTS", "3")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "1")
	t.Setenv("MAX_SITES_PER_REQUEST", "25")
	t.Setenv("MAX_CONCURRENCY", "4")
	t.Setenv("PARAMETER_CODES", "00010, 00095")
	t.Setenv("SITE_TYPES", "ST,LK")
	t.Setenv("START_DATE", "2022-11-07")
	t.Setenv("END_DATE", "2025-11-07")
	t.Setenv("PAGE_WINDOW", "168h")
	t.Setenv("STATES", "mn,wi")
	t.Setenv("RESUME", "true")
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("CATALOG_PATH", "/tmp/out/sites.parquet")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SUMMARY_TOPIC", "custom-summaries")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/nwis", cfg.BaseURL) // trailing slash trimmed
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 1, cfg.RateLimitBurst)
	assert.Equal(t, 25, cfg.MaxSitesPerRequest)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, []string{"00010", "00095"}, cfg.ParameterCodes)
	assert.Equal(t, []string{"ST", "LK"}, cfg.SiteTypes)
	assert.Equal(t, time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC), cfg.EndDate)
	assert.Equal(t, 168*time.Hour, cfg.PageWindow)
	assert.Equal(t, []string{"MN", "WI"}, cfg.States) // uppercased
	assert.True(t, cfg.Resume)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-summaries", cfg.KafkaSummaryTopic)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
}

func TestLoad_InvalidMaxAttempts(t *testing.T) {
	t.Setenv("MAX_ATTEMPTS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_ATTEMPTS")
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "-1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")
}

func TestLoad_InvertedDateRange(t *testing.T) {
	t.Setenv("START_DATE", "2025-11-07")
	t.Setenv("END_DATE", "2022-11-07")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "START_DATE")
}

func TestLoad_BadStateCode(t *testing.T) {
	t.Setenv("STATES", "MN,Minnesota")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATES")
}

func TestLoad_BadDate(t *testing.T) {
	t.Setenv("START_DATE", "11/07/2022")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "START_DATE")
}
