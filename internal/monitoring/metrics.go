package monitoring

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds daemon counters exposed through the stats endpoint.
type Metrics struct {
	RequestCount         int64
	ErrorCount           int64
	CacheHits            int64
	CacheMisses          int64
	EventsStored         int64
	DuplicatesSuppressed int64
	CommandsRedacted     int64
	CommandsSkipped      int64
	RateLimitedRequests  int64
	AverageResponseTime  int64 // in nanoseconds
	StartTime            time.Time

	// Response time samples for percentiles
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	// Per-source ingest and per-collector run tracking
	EventsBySource  map[string]int64
	CollectorRuns   map[string]int64
	CollectorErrors map[string]int64
	DomainMutex     sync.RWMutex
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, 1000),
		RequestCountByStatus: make(map[int]int64),
		EventsBySource:       make(map[string]int64),
		CollectorRuns:        make(map[string]int64),
		CollectorErrors:      make(map[string]int64),
	}
}

// IncrementRequest increments the request count.
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count.
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count.
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count.
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

// RecordEventStored notes one event persisted for the given source.
func (m *Metrics) RecordEventStored(source string) {
	atomic.AddInt64(&m.EventsStored, 1)

	m.DomainMutex.Lock()
	m.EventsBySource[source]++
	m.DomainMutex.Unlock()
}

// IncrementDuplicateSuppressed notes one event dropped as a duplicate.
func (m *Metrics) IncrementDuplicateSuppressed() {
	atomic.AddInt64(&m.DuplicatesSuppressed, 1)
}

// IncrementCommandRedacted notes one command rewritten by redaction.
func (m *Metrics) IncrementCommandRedacted() {
	atomic.AddInt64(&m.CommandsRedacted, 1)
}

// IncrementCommandSkipped notes one command refused storage entirely.
func (m *Metrics) IncrementCommandSkipped() {
	atomic.AddInt64(&m.CommandsSkipped, 1)
}

// IncrementRateLimited notes one request rejected by the rate limiter.
func (m *Metrics) IncrementRateLimited() {
	atomic.AddInt64(&m.RateLimitedRequests, 1)
}

// RecordCollectorRun notes one collector invocation and its outcome.
func (m *Metrics) RecordCollectorRun(name string, success bool) {
	m.DomainMutex.Lock()
	defer m.DomainMutex.Unlock()

	m.CollectorRuns[name]++
	if !success {
		m.CollectorErrors[name]++
	}
}

// RecordResponseTime records response time for averaging and percentiles.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	// Keep the last 1000 samples.
	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code.
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// GetPercentileResponseTime calculates percentile response time.
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)
	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}
	return times[index]
}

// GetStatusCodeDistribution returns request count by status code.
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64)
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetIngestStats returns per-source and per-collector counters.
func (m *Metrics) GetIngestStats() map[string]interface{} {
	m.DomainMutex.RLock()
	defer m.DomainMutex.RUnlock()

	bySource := make(map[string]int64, len(m.EventsBySource))
	for source, count := range m.EventsBySource {
		bySource[source] = count
	}
	runs := make(map[string]int64, len(m.CollectorRuns))
	for name, count := range m.CollectorRuns {
		runs[name] = count
	}
	errs := make(map[string]int64, len(m.CollectorErrors))
	for name, count := range m.CollectorErrors {
		errs[name] = count
	}

	return map[string]interface{}{
		"events_by_source":      bySource,
		"events_stored":         atomic.LoadInt64(&m.EventsStored),
		"duplicates_suppressed": atomic.LoadInt64(&m.DuplicatesSuppressed),
		"commands_redacted":     atomic.LoadInt64(&m.CommandsRedacted),
		"commands_skipped":      atomic.LoadInt64(&m.CommandsSkipped),
		"collector_runs":        runs,
		"collector_errors":      errs,
	}
}

// GetStats returns current metrics statistics.
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	totalCacheRequests := cacheHits + cacheMisses
	if totalCacheRequests > 0 {
		cacheHitRate = float64(cacheHits) / float64(totalCacheRequests) * 100
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"rate_limited_requests":  atomic.LoadInt64(&m.RateLimitedRequests),
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,
		"avg_response_time_ms":   float64(avgResponseTime) / 1000000,
		"start_time":             m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1000000,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1000000,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),

		"ingest": m.GetIngestStats(),

		"go_gc_count":          int64(mem.NumGC),
		"go_gc_pause_total_ns": int64(mem.PauseTotalNs),
		"go_heap_alloc_bytes":  int64(mem.HeapAlloc),
		"go_heap_sys_bytes":    int64(mem.HeapSys),
		"go_goroutines":        runtime.NumGoroutine(),
	}
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.EventsStored, 0)
	atomic.StoreInt64(&m.DuplicatesSuppressed, 0)
	atomic.StoreInt64(&m.CommandsRedacted, 0)
	atomic.StoreInt64(&m.CommandsSkipped, 0)
	atomic.StoreInt64(&m.RateLimitedRequests, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = m.ResponseTimes[:0]
	m.ResponseTimesMutex.Unlock()

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.DomainMutex.Lock()
	m.EventsBySource = make(map[string]int64)
	m.CollectorRuns = make(map[string]int64)
	m.CollectorErrors = make(map[string]int64)
	m.DomainMutex.Unlock()

	m.StartTime = time.Now()
}
