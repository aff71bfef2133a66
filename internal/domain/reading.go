package domain

import (
	"sort"
	"time"
)

// Reading is one timestamped observation of a parameter at a site.
type Reading struct {
	SiteNumber    string
	State         string
	Timestamp     time.Time
	ParameterCode string
	ParameterName string
	Unit          string
	Value         float64
	Qualifiers    string
}

// ReadingKey identifies an observation uniquely. Two readings with the same
// key are the same fact, possibly fetched twice across overlapping pages.
type ReadingKey struct {
	SiteNumber    string
	ParameterCode string
	UnixMilli     int64
}

// Key returns the dedupe tuple for the reading.
func (r Reading) Key() ReadingKey {
	return ReadingKey{
		SiteNumber:    r.SiteNumber,
		ParameterCode: r.ParameterCode,
		UnixMilli:     r.Timestamp.UnixMilli(),
	}
}

// ReadingSet accumulates readings with last-write-wins deduplication on
// (site, timestamp, parameter). Not safe for concurrent use; callers
// serialize Add with their own lock.
type ReadingSet struct {
	byKey map[ReadingKey]Reading
}

// NewReadingSet returns an empty set.
func NewReadingSet() *ReadingSet {
	return &ReadingSet{byKey: make(map[ReadingKey]Reading)}
}

// Add inserts r, replacing any earlier reading with the same key.
func (s *ReadingSet) Add(r Reading) {
	s.byKey[r.Key()] = r
}

// AddAll inserts readings in order, so the last duplicate in the slice wins.
func (s *ReadingSet) AddAll(readings []Reading) {
	for _, r := range readings {
		s.Add(r)
	}
}

// Len returns the number of distinct readings.
func (s *ReadingSet) Len() int { return len(s.byKey) }

// Sorted returns the readings ordered by (site, parameter, timestamp).
// The ordering is total, so reruns over identical data produce identical
// output files.
func (s *ReadingSet) Sorted() []Reading {
	out := make([]Reading, 0, len(s.byKey))
	for _, r := range s.byKey {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SiteNumber != b.SiteNumber {
			return a.SiteNumber < b.SiteNumber
		}
		if a.ParameterCode != b.ParameterCode {
			return a.ParameterCode < b.ParameterCode
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return out
}

// PartitionSummary is the per-partition result record published to the
// optional summary sink and logged at the end of a partition.
type PartitionSummary struct {
	State           string    `json:"state"`
	SitesSelected   int       `json:"sites_selected"`
	ReadingsWritten int       `json:"readings_written"`
	SkippedSites    []string  `json:"skipped_sites,omitempty"`
	OutputPath      string    `json:"output_path,omitempty"`
	Skipped         bool      `json:"skipped,omitempty"` // resume hit, nothing fetched
	Error           string    `json:"error,omitempty"`
	Duration        string    `json:"duration"`
	CompletedAt     time.Time `json:"completed_at"`
}
