package nwis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRDB_SkipsCommentsAndFormatRow(t *testing.T) {
	sites, dropped, err := parseRDB(strings.NewReader(siteRDB), "MN")
	require.NoError(t, err)

	assert.Equal(t, 1, dropped, "row without coordinates is dropped")
	require.Len(t, sites, 2)
	assert.Equal(t, "05331000", sites[0].SiteNumber)
	assert.Equal(t, "05330920", sites[1].SiteNumber)
}

func TestParseRDB_ToleratesUnknownColumns(t *testing.T) {
	in := "agency_cd\tsite_no\tstation_nm\tsite_tp_cd\tdec_lat_va\tdec_long_va\thuc_cd\tcounty_cd\talt_va\n" +
		"5s\t15s\t50s\t7s\t16s\t16s\t16s\t5s\t8s\n" +
		"USGS\t05331000\tSOME RIVER\tST\t44.9\t-93.0\t07010206\t163\t702.1\n"

	sites, dropped, err := parseRDB(strings.NewReader(in), "MN")
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, sites, 1)
	assert.Equal(t, "05331000", sites[0].SiteNumber)
}

func TestParseRDB_ShortRecords(t *testing.T) {
	// Trailing columns can be absent from individual rows.
	in := "agency_cd\tsite_no\tstation_nm\tsite_tp_cd\tdec_lat_va\tdec_long_va\thuc_cd\n" +
		"5s\t15s\t50s\t7s\t16s\t16s\t16s\n" +
		"USGS\t05331000\tSOME RIVER\tST\t44.9\t-93.0\n"

	sites, dropped, err := parseRDB(strings.NewReader(in), "MN")
	require.NoError(t, err)
	assert.Zero(t, dropped)
	require.Len(t, sites, 1)
	assert.Empty(t, sites[0].HUCCode)
}

func TestParseRDB_MissingRequiredColumn(t *testing.T) {
	in := "agency_cd\tstation_nm\n5s\t50s\nUSGS\tSOME RIVER\n"
	_, _, err := parseRDB(strings.NewReader(in), "MN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site_no")
}

func TestParseRDB_EmptyInput(t *testing.T) {
	_, _, err := parseRDB(strings.NewReader(""), "MN")
	require.Error(t, err)
}

func TestIsFormatRowVariants(t *testing.T) {
	idx := map[string]int{colAgency: 0, colSiteNo: 1}
	assert.True(t, isFormatRow([]string{"5s", "15s"}, idx))
	assert.True(t, isFormatRow([]string{"", "15d"}, idx))
	assert.False(t, isFormatRow([]string{"USGS", "05331000"}, idx))
}
