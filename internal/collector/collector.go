// Package collector drives per-state collection: batch a partition's sites,
// fetch their readings concurrently, deduplicate, and write one parquet file
// per partition. Partitions are independent and idempotent; a rerun simply
// overwrites the partition's file.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/riverwatch/usgs-water-etl/internal/config"
	"github.com/riverwatch/usgs-water-etl/internal/domain"
	"github.com/riverwatch/usgs-water-etl/internal/observability"
)

// ReadingsStore persists one partition's readings.
type ReadingsStore interface {
	WriteReadings(path string, readings []domain.Reading) error
	OutputExists(path string) bool
}

// SummaryPublisher delivers per-partition result records to an external sink.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, summary domain.PartitionSummary) error
}

// Outcome is the result of collecting one partition.
type Outcome struct {
	State         string
	SitesSelected int
	Written       int
	SkippedSites  []string
	Resumed       bool
	Err           error
}

// Summary aggregates a full run across partitions.
type Summary struct {
	PartitionsOK     int
	PartitionsFailed int
	ReadingsWritten  int
	SkippedSites     int
	FailedPartitions []string
}

// Collector fetches and writes readings partition by partition.
type Collector struct {
	fetcher   domain.ReadingsFetcher
	store     ReadingsStore
	publisher SummaryPublisher // nil when the summary sink is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock

	outputDir   string
	siteTypes   []string
	paramCodes  []string
	start, end  time.Time
	batchSize   int
	concurrency int
	resume      bool

	ready atomic.Bool
}

// New creates a Collector from the run configuration. publisher may be nil.
func New(fetcher domain.ReadingsFetcher, store ReadingsStore, publisher SummaryPublisher,
	cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Collector {
	return &Collector{
		fetcher:     fetcher,
		store:       store,
		publisher:   publisher,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
		outputDir:   cfg.OutputDir,
		siteTypes:   cfg.SiteTypes,
		paramCodes:  cfg.ParameterCodes,
		start:       cfg.StartDate,
		end:         cfg.EndDate,
		batchSize:   cfg.MaxSitesPerRequest,
		concurrency: cfg.MaxConcurrency,
		resume:      cfg.Resume,
	}
}

// CheckReadiness returns nil once at least one partition has completed.
func (c *Collector) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return fmt.Errorf("no partition has completed yet")
	}
	return nil
}

// OutputPath returns the deterministic partition file path for a state.
func (c *Collector) OutputPath(state string) string {
	return filepath.Join(c.outputDir, fmt.Sprintf("readings_%s.parquet", state))
}

// CollectPartition fetches all readings for one state's sites and writes the
// partition file. Batch-level permanent failures are recorded in
// SkippedSites; the file is written from whatever was retrieved.
func (c *Collector) CollectPartition(ctx context.Context, state string, cat *domain.SiteCatalog) Outcome {
	out := Outcome{State: state}
	path := c.OutputPath(state)

	if c.resume && c.store.OutputExists(path) {
		c.logger.Info("partition output exists, skipping", "state", state, "path", path)
		out.Resumed = true
		return out
	}

	sites := cat.SitesForState(state, c.siteTypes)
	out.SitesSelected = len(sites)

	siteIDs := make([]string, len(sites))
	for i, s := range sites {
		siteIDs[i] = s.SiteNumber
	}

	set := domain.NewReadingSet()
	out.SkippedSites = c.fetchBatches(ctx, state, siteIDs, set)
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	readings := set.Sorted()
	if err := c.store.WriteReadings(path, readings); err != nil {
		out.Err = fmt.Errorf("write partition %s: %w", state, err)
		return out
	}
	out.Written = len(readings)
	return out
}

// fetchBatches runs the partition's site batches through a bounded worker
// pool. Returns the site numbers of batches that failed.
func (c *Collector) fetchBatches(ctx context.Context, state string, siteIDs []string, set *domain.ReadingSet) []string {
	batches := batchSites(siteIDs, c.batchSize)

	var (
		mu      sync.Mutex
		skipped []string
	)
	jobs := make(chan []string)
	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				readings, err := c.fetcher.FetchReadings(ctx, domain.ReadingsQuery{
					State:          state,
					Sites:          batch,
					Start:          c.start,
					End:            c.end,
					ParameterCodes: c.paramCodes,
				})
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					level := slog.LevelError
					if domain.IsPermanent(err) {
						level = slog.LevelWarn
					}
					c.logger.Log(ctx, level, "batch failed, skipping sites",
						"state", state, "sites", len(batch), "error", err)
					c.metrics.SitesSkipped.Add(float64(len(batch)))
					mu.Lock()
					skipped = append(skipped, batch...)
					mu.Unlock()
					continue
				}
				mu.Lock()
				set.AddAll(readings)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, batch := range batches {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- batch:
		}
	}
	close(jobs)
	wg.Wait()

	return skipped
}

// Run collects every partition in order, aggregating counts. A single
// partition's failure does not stop the run; Run errors only when every
// partition failed.
func (c *Collector) Run(ctx context.Context, cat *domain.SiteCatalog, states []string) (Summary, error) {
	if len(states) == 0 {
		states = domain.USStates
	}

	c.metrics.RunActive.Set(1)
	defer c.metrics.RunActive.Set(0)

	var summary Summary
	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		start := c.clock.Now()
		out := c.CollectPartition(ctx, state, cat)
		elapsed := c.clock.Since(start)
		c.metrics.PartitionDuration.Observe(elapsed.Seconds())

		switch {
		case out.Err != nil:
			summary.PartitionsFailed++
			summary.FailedPartitions = append(summary.FailedPartitions, state)
			c.metrics.Partitions.WithLabelValues("failed").Inc()
			c.logger.Error("partition failed", "state", state, "error", out.Err)
		case out.Resumed:
			summary.PartitionsOK++
			c.metrics.Partitions.WithLabelValues("resumed").Inc()
		default:
			summary.PartitionsOK++
			summary.ReadingsWritten += out.Written
			summary.SkippedSites += len(out.SkippedSites)
			c.metrics.Partitions.WithLabelValues("success").Inc()
			c.metrics.ReadingsWritten.Add(float64(out.Written))
			c.logger.Info("partition complete",
				"state", state,
				"sites", out.SitesSelected,
				"readings", out.Written,
				"skipped_sites", len(out.SkippedSites),
				"duration", elapsed,
			)
		}

		c.publish(ctx, out, elapsed)
		c.ready.Store(true)
	}

	if summary.PartitionsOK == 0 && summary.PartitionsFailed > 0 {
		return summary, fmt.Errorf("all %d partitions failed", summary.PartitionsFailed)
	}
	return summary, nil
}

// publish sends the partition summary to the optional sink. Failures are
// logged and ignored; the sink is advisory.
func (c *Collector) publish(ctx context.Context, out Outcome, elapsed time.Duration) {
	if c.publisher == nil {
		return
	}
	s := domain.PartitionSummary{
		State:           out.State,
		SitesSelected:   out.SitesSelected,
		ReadingsWritten: out.Written,
		SkippedSites:    out.SkippedSites,
		OutputPath:      c.OutputPath(out.State),
		Skipped:         out.Resumed,
		Duration:        elapsed.String(),
		CompletedAt:     c.clock.Now().UTC(),
	}
	if out.Err != nil {
		s.Error = out.Err.Error()
	}
	if err := c.publisher.PublishSummary(ctx, s); err != nil {
		c.logger.Warn("summary publish failed", "state", out.State, "error", err)
	}
}

// batchSites splits site numbers into groups of at most size.
func batchSites(siteIDs []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var batches [][]string
	for len(siteIDs) > 0 {
		n := min(size, len(siteIDs))
		batches = append(batches, siteIDs[:n])
		siteIDs = siteIDs[n:]
	}
	return batches
}
