package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

func TestSerializeSummary(t *testing.T) {
	completed := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	summary := domain.PartitionSummary{
		State:           "MN",
		SitesSelected:   812,
		ReadingsWritten: 104233,
		SkippedSites:    []string{"05331000"},
		OutputPath:      "data/readings_MN.parquet",
		Duration:        "4m12s",
		CompletedAt:     completed,
	}

	msg, err := serializeSummary(summary)
	require.NoError(t, err)

	assert.Equal(t, []byte("MN"), msg.Key, "keyed by state so per-partition ordering holds")

	var got domain.PartitionSummary
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, summary, got)

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "completed_at", msg.Headers[0].Key)
	assert.Equal(t, "2025-06-01T18:30:00Z", string(msg.Headers[0].Value))
}

func TestSerializeSummary_OmitsEmptyOptionalFields(t *testing.T) {
	msg, err := serializeSummary(domain.PartitionSummary{State: "WY", Duration: "1s"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &raw))
	assert.NotContains(t, raw, "skipped_sites")
	assert.NotContains(t, raw, "error")
	assert.NotContains(t, raw, "skipped")
}
