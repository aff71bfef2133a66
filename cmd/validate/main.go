// Command validate performs offline integrity checks over produced parquet
// artifacts: catalog invariants (non-empty site numbers, coordinates in
// bounds, no duplicate sites), partition/state consistency, reading
// uniqueness, and catalog membership of every reading's site.
//
// Usage:
//
//	go run ./cmd/validate -catalog data/usgs_all_sites.parquet -readings-dir data
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/riverwatch/usgs-water-etl/internal/adapter/parquetio"
	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func (p *phase) report() {
	if p.passed() {
		fmt.Printf("PASS  %s\n", p.name)
		return
	}
	fmt.Printf("FAIL  %s\n", p.name)
	for _, e := range p.errors {
		fmt.Printf("      %s\n", e)
	}
}

func main() {
	catalogPath := flag.String("catalog", "", "path to the site catalog parquet file")
	readingsDir := flag.String("readings-dir", "", "directory containing readings_<STATE>.parquet files")
	flag.Parse()

	if *catalogPath == "" || *readingsDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*catalogPath, *readingsDir))
}

func run(catalogPath, readingsDir string) int {
	store := parquetio.NewStore()

	sites, err := store.ReadSites(catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read catalog: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCatalog(sites),
	}

	bySiteNo := make(map[string]domain.Site, len(sites))
	for _, s := range sites {
		bySiteNo[s.SiteNumber] = s
	}

	files, err := filepath.Glob(filepath.Join(readingsDir, "readings_*.parquet"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "list readings dir: %v\n", err)
		return 1
	}
	for _, f := range files {
		readings, err := store.ReadReadings(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", f, err)
			return 1
		}
		phases = append(phases, validatePartition(f, readings, bySiteNo))
	}

	failed := 0
	for _, p := range phases {
		p.report()
		if !p.passed() {
			failed++
		}
	}
	fmt.Printf("\n%d phases, %d failed\n", len(phases), failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func validateCatalog(sites []domain.Site) *phase {
	p := &phase{name: "catalog invariants"}
	seen := make(map[string]bool, len(sites))
	for i, s := range sites {
		if s.SiteNumber == "" {
			p.errorf("row %d: empty site number", i)
			continue
		}
		if seen[s.SiteNumber] {
			p.errorf("duplicate site number %s", s.SiteNumber)
		}
		seen[s.SiteNumber] = true
		if !s.Valid() {
			p.errorf("site %s: coordinates out of bounds (%f, %f)", s.SiteNumber, s.Latitude, s.Longitude)
		}
	}
	if len(sites) == 0 {
		p.errorf("catalog is empty")
	}
	return p
}

func validatePartition(path string, readings []domain.Reading, catalog map[string]domain.Site) *phase {
	p := &phase{name: fmt.Sprintf("partition %s", filepath.Base(path))}

	state := partitionState(path)
	if state == "" {
		p.errorf("cannot derive state from filename")
		return p
	}

	seen := make(map[domain.ReadingKey]bool, len(readings))
	for i, r := range readings {
		if r.State != state {
			p.errorf("row %d: state %s does not match partition %s", i, r.State, state)
		}
		if _, ok := catalog[r.SiteNumber]; !ok {
			p.errorf("row %d: site %s not in catalog", i, r.SiteNumber)
		}
		key := r.Key()
		if seen[key] {
			p.errorf("duplicate reading %s/%s@%d", key.SiteNumber, key.ParameterCode, key.UnixMilli)
		}
		seen[key] = true
	}
	return p
}

// partitionState extracts the state code from readings_<STATE>.parquet.
func partitionState(path string) string {
	base := filepath.Base(path)
	base = strings.TrimPrefix(base, "readings_")
	base = strings.TrimSuffix(base, ".parquet")
	if len(base) != 2 {
		return ""
	}
	return base
}
