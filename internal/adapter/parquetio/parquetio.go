// Package parquetio persists catalog and reading tables as snappy-compressed
// parquet files. Writes go to a temporary file in the target directory and
// are renamed into place, so an interrupted run never leaves a partial file.
package parquetio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

// SiteRow is the catalog file schema. Column names follow the NWIS RDB
// headers so the file joins cleanly against other NWIS-derived datasets.
type SiteRow struct {
	AgencyCode string  `parquet:"agency_cd"`
	SiteNumber string  `parquet:"site_no"`
	Name       string  `parquet:"station_nm"`
	SiteType   string  `parquet:"site_tp_cd"`
	Latitude   float64 `parquet:"dec_lat_va"`
	Longitude  float64 `parquet:"dec_long_va"`
	HUCCode    string  `parquet:"huc_cd"`
	State      string  `parquet:"source_state"`
}

// ReadingRow is the partition file schema, one row per observation.
type ReadingRow struct {
	SiteNumber    string    `parquet:"site_no"`
	State         string    `parquet:"state"`
	Timestamp     time.Time `parquet:"datetime,timestamp(millisecond)"`
	ParameterCode string    `parquet:"param_code"`
	ParameterName string    `parquet:"param_name"`
	Unit          string    `parquet:"unit"`
	Value         float64   `parquet:"value"`
	Qualifiers    string    `parquet:"qualifiers"`
}

// Store reads and writes parquet artifacts under the filesystem.
type Store struct{}

// NewStore returns a filesystem-backed store.
func NewStore() *Store { return &Store{} }

// WriteSites writes the site catalog to path atomically.
func (s *Store) WriteSites(path string, sites []domain.Site) error {
	rows := make([]SiteRow, len(sites))
	for i, site := range sites {
		rows[i] = SiteRow{
			AgencyCode: site.AgencyCode,
			SiteNumber: site.SiteNumber,
			Name:       site.Name,
			SiteType:   site.SiteType,
			Latitude:   site.Latitude,
			Longitude:  site.Longitude,
			HUCCode:    site.HUCCode,
			State:      site.State,
		}
	}
	return writeAtomic(path, rows)
}

// ReadSites loads a site catalog written by WriteSites.
func (s *Store) ReadSites(path string) ([]domain.Site, error) {
	rows, err := parquet.ReadFile[SiteRow](path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	sites := make([]domain.Site, len(rows))
	for i, row := range rows {
		sites[i] = domain.Site{
			AgencyCode: row.AgencyCode,
			SiteNumber: row.SiteNumber,
			Name:       row.Name,
			SiteType:   row.SiteType,
			Latitude:   row.Latitude,
			Longitude:  row.Longitude,
			HUCCode:    row.HUCCode,
			State:      row.State,
		}
	}
	return sites, nil
}

// WriteReadings writes one partition's readings to path atomically. An empty
// slice still produces a valid zero-row file, so "collected, nothing there"
// is distinguishable from "never collected".
func (s *Store) WriteReadings(path string, readings []domain.Reading) error {
	rows := make([]ReadingRow, len(readings))
	for i, r := range readings {
		rows[i] = ReadingRow{
			SiteNumber:    r.SiteNumber,
			State:         r.State,
			Timestamp:     r.Timestamp,
			ParameterCode: r.ParameterCode,
			ParameterName: r.ParameterName,
			Unit:          r.Unit,
			Value:         r.Value,
			Qualifiers:    r.Qualifiers,
		}
	}
	return writeAtomic(path, rows)
}

// ReadReadings loads a partition file written by WriteReadings.
func (s *Store) ReadReadings(path string) ([]domain.Reading, error) {
	rows, err := parquet.ReadFile[ReadingRow](path)
	if err != nil {
		return nil, fmt.Errorf("read readings %s: %w", path, err)
	}
	readings := make([]domain.Reading, len(rows))
	for i, row := range rows {
		readings[i] = domain.Reading{
			SiteNumber:    row.SiteNumber,
			State:         row.State,
			Timestamp:     row.Timestamp.UTC(),
			ParameterCode: row.ParameterCode,
			ParameterName: row.ParameterName,
			Unit:          row.Unit,
			Value:         row.Value,
			Qualifiers:    row.Qualifiers,
		}
	}
	return readings, nil
}

// OutputExists reports whether path holds a non-trivial prior output, used
// for resume runs. Parquet's footer alone is a few hundred bytes, so any
// real file clears the threshold.
func (s *Store) OutputExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// writeAtomic writes rows to a temp file in path's directory, syncs, and
// renames into place. Rename within one directory is atomic on POSIX.
func writeAtomic[T any](path string, rows []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	w := parquet.NewGenericWriter[T](tmp, parquet.Compression(&parquet.Snappy))
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
