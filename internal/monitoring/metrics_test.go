package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.RecordEventStored("shell")
	m.RecordEventStored("shell")
	m.RecordEventStored("browser")
	m.IncrementDuplicateSuppressed()
	m.IncrementCommandRedacted()
	m.RecordCollectorRun("git", true)
	m.RecordCollectorRun("browser", false)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.Equal(t, float64(50), stats["error_rate_percent"])
	assert.Equal(t, float64(50), stats["cache_hit_rate_percent"])

	ingest, ok := stats["ingest"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int64(3), ingest["events_stored"])
	assert.Equal(t, int64(1), ingest["duplicates_suppressed"])

	bySource, ok := ingest["events_by_source"].(map[string]int64)
	require.True(t, ok)
	assert.Equal(t, int64(2), bySource["shell"])

	errs, ok := ingest["collector_errors"].(map[string]int64)
	require.True(t, ok)
	assert.Equal(t, int64(1), errs["browser"])
	assert.Zero(t, errs["git"])
}

func TestMetricsPercentiles(t *testing.T) {
	m := NewMetrics()

	for i := 1; i <= 100; i++ {
		m.RecordResponseTime(time.Duration(i) * time.Millisecond)
	}

	p50 := m.GetPercentileResponseTime(50)
	p99 := m.GetPercentileResponseTime(99)
	assert.Equal(t, 50*time.Millisecond, p50)
	assert.Equal(t, 99*time.Millisecond, p99)
	assert.Zero(t, NewMetrics().GetPercentileResponseTime(95))
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.IncrementRequest()
	m.RecordEventStored("shell")
	m.RecordRequestByStatus(200)

	m.Reset()

	stats := m.GetStats()
	assert.Equal(t, int64(0), stats["total_requests"])
	assert.Empty(t, m.GetStatusCodeDistribution())

	ingest := stats["ingest"].(map[string]interface{})
	assert.Equal(t, int64(0), ingest["events_stored"])
}
