package domain

import (
	"context"
	"time"
)

// USStates lists the partition keys for a nationwide run: 50 states plus DC,
// as two-letter postal codes.
var USStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DC", "DE", "FL",
	"GA", "HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME",
	"MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH",
	"NJ", "NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI",
	"SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// Site is one NWIS monitoring station. Sites are immutable once fetched; a
// catalog rebuild refetches everything rather than updating in place.
type Site struct {
	AgencyCode string
	SiteNumber string
	Name       string
	SiteType   string
	Latitude   float64
	Longitude  float64
	HUCCode    string
	// State is the two-letter code of the state whose listing returned this
	// site, which is the partition key for collection.
	State string
}

// Valid reports whether the site carries the minimum usable metadata: a site
// number and coordinates inside WGS-84 bounds. NWIS listings include rows with
// blank coordinates (historic or administrative entries); those are dropped.
func (s Site) Valid() bool {
	if s.SiteNumber == "" {
		return false
	}
	if s.Latitude < -90 || s.Latitude > 90 || s.Latitude == 0 {
		return false
	}
	if s.Longitude < -180 || s.Longitude > 180 || s.Longitude == 0 {
		return false
	}
	return true
}

// SiteCatalog is the nationwide site index, deduplicated by site number.
type SiteCatalog struct {
	sites   []Site
	byState map[string][]Site
}

// NewSiteCatalog builds a catalog from sites already deduplicated by the
// caller. Input order is preserved.
func NewSiteCatalog(sites []Site) *SiteCatalog {
	byState := make(map[string][]Site)
	for _, s := range sites {
		byState[s.State] = append(byState[s.State], s)
	}
	return &SiteCatalog{sites: sites, byState: byState}
}

// Sites returns all catalog entries in insertion order.
func (c *SiteCatalog) Sites() []Site { return c.sites }

// Len returns the number of catalog entries.
func (c *SiteCatalog) Len() int { return len(c.sites) }

// SitesForState returns the sites whose partition key matches state,
// optionally filtered to the given site type codes. An empty siteTypes set
// means no filter.
func (c *SiteCatalog) SitesForState(state string, siteTypes []string) []Site {
	candidates := c.byState[state]
	if len(siteTypes) == 0 {
		return candidates
	}
	var out []Site
	for _, s := range candidates {
		for _, tp := range siteTypes {
			if s.SiteType == tp {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// ReadingsQuery describes one batched request for observations.
type ReadingsQuery struct {
	// State is the partition key stamped onto every returned Reading.
	State string
	// Sites are the site numbers for this batch. Must be non-empty and within
	// the service's per-request ceiling; the caller is responsible for
	// batching.
	Sites []string
	// Start and End bound the observation timestamps, inclusive.
	Start time.Time
	End   time.Time
	// ParameterCodes filters the measured quantities. Empty means the
	// client's default discharge/gage-height set.
	ParameterCodes []string
}

// SiteFetcher retrieves the site listing for one state.
type SiteFetcher interface {
	FetchSites(ctx context.Context, stateCd string) ([]Site, error)
}

// ReadingsFetcher retrieves all observations for one batched query,
// transparently paging through the remote service's size limits.
type ReadingsFetcher interface {
	FetchReadings(ctx context.Context, q ReadingsQuery) ([]Reading, error)
}
