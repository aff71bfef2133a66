// Package catalog builds the nationwide site index: one RDB fetch per state,
// merged and deduplicated by site number into a single parquet table.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

// Builder assembles the nationwide catalog from per-state listings.
type Builder struct {
	fetcher     domain.SiteFetcher
	states      []string
	concurrency int
	logger      *slog.Logger
}

// NewBuilder creates a Builder over the given partition keys. A nil or empty
// states slice means all US states.
func NewBuilder(fetcher domain.SiteFetcher, states []string, concurrency int, logger *slog.Logger) *Builder {
	if len(states) == 0 {
		states = domain.USStates
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{fetcher: fetcher, states: states, concurrency: concurrency, logger: logger}
}

// Build fetches every state's site listing and merges them. Individual state
// failures are logged and tolerated (the build is re-runnable), but a build
// in which no state yields sites is fatal: there is no useful partial
// nationwide catalog.
func (b *Builder) Build(ctx context.Context) (*domain.SiteCatalog, error) {
	results := make([][]domain.Site, len(b.states))
	failed := make([]bool, len(b.states))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				state := b.states[i]
				sites, err := b.fetcher.FetchSites(ctx, state)
				if err != nil {
					b.logger.Warn("state listing failed", "state", state, "error", err)
					failed[i] = true
					continue
				}
				b.logger.Info("state listing fetched", "state", state, "sites", len(sites))
				results[i] = sites
			}
		}()
	}

feed:
	for i := range b.states {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged, duplicates := mergeStates(results)
	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("catalog build produced no sites (%d/%d states failed): %w",
			failures, len(b.states), errNoSites)
	}

	b.logger.Info("catalog built",
		"sites", len(merged),
		"duplicates_removed", duplicates,
		"states_failed", failures,
	)
	return domain.NewSiteCatalog(merged), nil
}

var errNoSites = errors.New("no usable site listings")

// mergeStates concatenates per-state results in state order and drops
// duplicate site numbers, keeping the first occurrence. A site listed by
// several agencies appears once, under the state that listed it first.
func mergeStates(results [][]domain.Site) ([]domain.Site, int) {
	seen := make(map[string]struct{})
	var merged []domain.Site
	duplicates := 0
	for _, sites := range results {
		for _, s := range sites {
			if _, ok := seen[s.SiteNumber]; ok {
				duplicates++
				continue
			}
			seen[s.SiteNumber] = struct{}{}
			merged = append(merged, s)
		}
	}
	return merged, duplicates
}
