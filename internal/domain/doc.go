// Package domain models USGS National Water Information System (NWIS) data.
//
// # Data Sources
//
// Site metadata comes from the NWIS Site Service at
// https://waterservices.usgs.gov/nwis/site/ in RDB format, a tab-separated
// text layout with three non-data artifacts: comment lines prefixed with '#',
// a header row of column names, and a "format specification" row whose values
// encode field widths (agency_cd="5s", site_no="15s", ...). The format row is
// metadata, not a site, and must be discarded during parsing.
//
// Time-series observations come from the NWIS Instantaneous Values Service at
// https://waterservices.usgs.gov/nwis/iv/ as nested JSON: one timeSeries block
// per (site, parameter) pair, each holding a variable description and a list
// of timestamped string values.
//
// # NWIS Conventions
//
// Site numbers:
//
//	8-15 digit string codes, unique nationwide. Leading zeros are significant,
//	so site numbers are never parsed as integers. A site can be listed by more
//	than one agency; the site number is the dedupe key.
//
// Parameter codes:
//
//	5-digit strings identifying the measured quantity:
//	  00060 - Discharge (cubic feet per second)
//	  00065 - Gage height (feet)
//	  00010 - Temperature, water (degrees Celsius)
//	  00095 - Specific conductance
//
// Site type codes:
//
//	Two-letter category, e.g. "ST" (stream), "LK" (lake), "GW" (groundwater
//	well). Bulk collection usually targets stream gages only.
//
// Missing values:
//
//	-999999 is the NWIS sentinel for a missing or unavailable observation.
//	Sentinel and empty values are dropped during flattening rather than
//	written as zeros.
//
// # Deduplication
//
// Overlapping date-window requests can return the same observation twice. A
// (site number, timestamp, parameter code) tuple identifies an observation
// uniquely; ReadingSet reconciles duplicates with a last-write-wins rule.
package domain
