package nwis

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

// formatSpecRe matches values of the RDB format-specification row, e.g. "5s",
// "15s", "16d". That row describes field widths, not a site.
var formatSpecRe = regexp.MustCompile(`^\d+[sdn]$`)

// Columns of interest in a site listing. The service returns more; unknown
// columns are ignored so upstream schema additions don't break parsing.
const (
	colAgency   = "agency_cd"
	colSiteNo   = "site_no"
	colName     = "station_nm"
	colSiteType = "site_tp_cd"
	colLat      = "dec_lat_va"
	colLon      = "dec_long_va"
	colHUC      = "huc_cd"
)

// parseRDB reads a USGS RDB site listing: tab-separated values with '#'
// comment lines, a header row, and a format-specification row. Rows missing
// a site number or valid coordinates are dropped; the count of drops is
// returned for logging.
func parseRDB(r io.Reader, state string) ([]domain.Site, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read RDB header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colSiteNo, colLat, colLon} {
		if _, ok := idx[required]; !ok {
			return nil, 0, fmt.Errorf("RDB header missing column %q", required)
		}
	}

	var (
		sites   []domain.Site
		dropped int
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read RDB row: %w", err)
		}
		if isFormatRow(record, idx) {
			continue
		}

		site := domain.Site{
			AgencyCode: field(record, idx, colAgency),
			SiteNumber: field(record, idx, colSiteNo),
			Name:       field(record, idx, colName),
			SiteType:   field(record, idx, colSiteType),
			Latitude:   parseCoord(field(record, idx, colLat)),
			Longitude:  parseCoord(field(record, idx, colLon)),
			HUCCode:    field(record, idx, colHUC),
			State:      state,
		}
		if !site.Valid() {
			dropped++
			continue
		}
		sites = append(sites, site)
	}
	return sites, dropped, nil
}

// isFormatRow detects the RDB format-specification row by its agency_cd (or,
// if absent, site_no) value.
func isFormatRow(record []string, idx map[string]int) bool {
	probe := field(record, idx, colAgency)
	if probe == "" {
		probe = field(record, idx, colSiteNo)
	}
	return formatSpecRe.MatchString(probe)
}

func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseCoord(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
