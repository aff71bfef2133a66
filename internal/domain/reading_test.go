package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(site, param string, ts time.Time, value float64) Reading {
	return Reading{
		SiteNumber:    site,
		State:         "MN",
		Timestamp:     ts,
		ParameterCode: param,
		Value:         value,
	}
}

func TestReadingSet_LastWriteWins(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	set := NewReadingSet()
	set.Add(reading("05331000", "00060", ts, 120))
	set.Add(reading("05331000", "00060", ts, 125))

	require.Equal(t, 1, set.Len())
	assert.Equal(t, 125.0, set.Sorted()[0].Value)
}

func TestReadingSet_DistinctKeys(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	set := NewReadingSet()
	set.Add(reading("05331000", "00060", ts, 120))
	set.Add(reading("05331000", "00065", ts, 4.2))          // different parameter
	set.Add(reading("05331000", "00060", ts.Add(time.Minute), 121)) // different timestamp
	set.Add(reading("05330920", "00060", ts, 98))           // different site

	assert.Equal(t, 4, set.Len())
}

func TestReadingSet_SortedIsTotalOrder(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	set := NewReadingSet()
	set.AddAll([]Reading{
		reading("05331000", "00065", ts, 1),
		reading("05330920", "00060", ts.Add(time.Hour), 2),
		reading("05330920", "00060", ts, 3),
		reading("05331000", "00060", ts, 4),
	})

	sorted := set.Sorted()
	require.Len(t, sorted, 4)
	assert.Equal(t, "05330920", sorted[0].SiteNumber)
	assert.Equal(t, ts, sorted[0].Timestamp)
	assert.Equal(t, "05330920", sorted[1].SiteNumber)
	assert.Equal(t, ts.Add(time.Hour), sorted[1].Timestamp)
	assert.Equal(t, "00060", sorted[2].ParameterCode)
	assert.Equal(t, "00065", sorted[3].ParameterCode)
}

func TestSite_Valid(t *testing.T) {
	tests := []struct {
		name string
		site Site
		want bool
	}{
		{"ok", Site{SiteNumber: "05331000", Latitude: 44.9, Longitude: -93.1}, true},
		{"missing site number", Site{Latitude: 44.9, Longitude: -93.1}, false},
		{"zero coordinates", Site{SiteNumber: "05331000"}, false},
		{"latitude out of range", Site{SiteNumber: "05331000", Latitude: 91, Longitude: -93.1}, false},
		{"longitude out of range", Site{SiteNumber: "05331000", Latitude: 44.9, Longitude: -181}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.site.Valid())
		})
	}
}

func TestSiteCatalog_SitesForState(t *testing.T) {
	cat := NewSiteCatalog([]Site{
		{SiteNumber: "1", State: "MN", SiteType: "ST", Latitude: 45, Longitude: -93},
		{SiteNumber: "2", State: "MN", SiteType: "LK", Latitude: 45, Longitude: -93},
		{SiteNumber: "3", State: "WI", SiteType: "ST", Latitude: 44, Longitude: -89},
	})

	streams := cat.SitesForState("MN", []string{"ST"})
	require.Len(t, streams, 1)
	assert.Equal(t, "1", streams[0].SiteNumber)

	all := cat.SitesForState("MN", nil)
	assert.Len(t, all, 2)

	assert.Empty(t, cat.SitesForState("TX", nil))
}

func TestPermanentError_Wrapping(t *testing.T) {
	err := Permanent(assert.AnError)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, assert.AnError)

	assert.False(t, IsPermanent(assert.AnError))
	assert.Nil(t, Permanent(nil))
}
