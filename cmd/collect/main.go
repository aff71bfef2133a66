// Command collect reads the site catalog and pulls instantaneous-values
// readings for every state partition, writing one parquet file per state.
// Individual partition failures are logged and summarized; the exit code is
// non-zero only when the catalog is unreadable or every partition failed.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	httpadapter "github.com/riverwatch/usgs-water-etl/internal/adapter/http"
	kafkaadapter "github.com/riverwatch/usgs-water-etl/internal/adapter/kafka"
	"github.com/riverwatch/usgs-water-etl/internal/adapter/nwis"
	"github.com/riverwatch/usgs-water-etl/internal/adapter/parquetio"
	"github.com/riverwatch/usgs-water-etl/internal/collector"
	"github.com/riverwatch/usgs-water-etl/internal/config"
	"github.com/riverwatch/usgs-water-etl/internal/domain"
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
	clock := clockwork.NewRealClock()

	store := parquetio.NewStore()
	sites, err := store.ReadSites(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to read site catalog; run the sites command first",
			"path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	cat := domain.NewSiteCatalog(sites)
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "sites", cat.Len())

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	client := nwis.NewClient(cfg, limiter, clock, logger, metrics)

	// Summary sink is feature-flagged on KAFKA_BROKERS.
	var publisher collector.SummaryPublisher
	if cfg.KafkaEnabled() {
		p := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := p.Close(); err != nil {
				logger.Error("summary publisher close error", "error", err)
			}
		}()
		publisher = p
		logger.Info("summary sink enabled", "topic", cfg.KafkaSummaryTopic)
	}

	c := collector.New(client, store, publisher, cfg, logger, metrics, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ops server is optional; HTTP_ADDR unset keeps the run headless.
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, c, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", "error", err)
			}
		}()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error("ops server shutdown error", "error", err)
			}
		}()
	}

	summary, err := c.Run(ctx, cat, cfg.States)
	logger.Info("run complete",
		"partitions_ok", summary.PartitionsOK,
		"partitions_failed", summary.PartitionsFailed,
		"failed_partitions", summary.FailedPartitions,
		"readings_written", summary.ReadingsWritten,
		"skipped_sites", summary.SkippedSites,
	)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}
