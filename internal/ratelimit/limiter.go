package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kevinreber/siphon/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IngestPerSecond int           // per-source ingest budget
	QueryPerMinute  int           // per-endpoint query budget
	BurstMultiplier int           // burst capacity multiplier
	CleanupInterval time.Duration // how often idle limiters are swept
	MaxIdle         time.Duration // limiters unused this long are dropped
}

// DefaultConfig returns default rate limiting configuration. The
// budgets only need to stop a runaway hook from hammering SQLite;
// interactive use never comes close.
func DefaultConfig() Config {
	return Config{
		IngestPerSecond: 50,
		QueryPerMinute:  120,
		BurstMultiplier: 2,
		CleanupInterval: 10 * time.Minute,
		MaxIdle:         30 * time.Minute,
	}
}

// Rate describes one limit: Limit requests per Period.
type Rate struct {
	Limit  int
	Period time.Duration
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter provides in-memory token-bucket rate limiting keyed by
// caller-chosen strings (ingest source, query endpoint).
type Limiter struct {
	config  Config
	metrics *monitoring.Metrics

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a rate limiter and starts its cleanup loop.
func NewLimiter(config Config, metrics *monitoring.Metrics) *Limiter {
	l := &Limiter{
		config:   config,
		metrics:  metrics,
		limiters: make(map[string]*clientLimiter),
		stop:     make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow checks whether one request under key fits within r.
func (l *Limiter) Allow(key string, r Rate) *Result {
	l.mu.Lock()
	entry, exists := l.limiters[key]
	if !exists {
		rps := rate.Limit(float64(r.Limit) / r.Period.Seconds())
		burst := r.Limit * l.config.BurstMultiplier
		if burst < 5 {
			burst = 5
		}
		entry = &clientLimiter{limiter: rate.NewLimiter(rps, burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	limiter := entry.limiter
	l.mu.Unlock()

	allowed := limiter.Allow()

	tokens := limiter.Tokens()
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Limit:     r.Limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(r.Period),
	}

	if !allowed {
		result.RetryAfter = time.Until(result.ResetAt)
		if l.metrics != nil {
			l.metrics.IncrementRateLimited()
		}
	}

	return result
}

// cleanupLoop periodically removes limiters that have gone idle.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			removed := 0
			for key, entry := range l.limiters {
				if time.Since(entry.lastSeen) > l.config.MaxIdle {
					delete(l.limiters, key)
					removed++
				}
			}
			l.mu.Unlock()
			if removed > 0 {
				slog.Debug("Cleaned up idle rate limiters", "removed", removed)
			}
		case <-l.stop:
			return
		}
	}
}

// Close stops the cleanup loop.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// GetStats returns rate limiter statistics
func (l *Limiter) GetStats() map[string]interface{} {
	l.mu.Lock()
	active := len(l.limiters)
	l.mu.Unlock()

	return map[string]interface{}{
		"active_limiters":   active,
		"ingest_per_second": l.config.IngestPerSecond,
		"query_per_minute":  l.config.QueryPerMinute,
	}
}
