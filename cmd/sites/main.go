// Command sites builds the nationwide USGS site catalog: one RDB listing per
// state, merged, deduplicated by site number, and written as a single parquet
// file. Exits non-zero if the build yields no usable catalog.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/riverwatch/usgs-water-etl/internal/adapter/nwis"
	"github.com/riverwatch/usgs-water-etl/internal/adapter/parquetio"
	"github.com/riverwatch/usgs-water-etl/internal/catalog"
	"github.com/riverwatch/usgs-water-etl/internal/config"
	"github.com/riverwatch/usgs-water-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	client := nwis.NewClient(cfg, limiter, clockwork.NewRealClock(), logger, metrics)
	builder := catalog.NewBuilder(client, cfg.States, cfg.MaxConcurrency, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := builder.Build(ctx)
	if err != nil {
		logger.Error("catalog build failed", "error", err)
		os.Exit(1)
	}

	store := parquetio.NewStore()
	if err := store.WriteSites(cfg.CatalogPath, cat.Sites()); err != nil {
		logger.Error("catalog write failed", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	logger.Info("catalog written", "path", cfg.CatalogPath, "sites", cat.Len())
}
