// Package collect pulls developer activity out of sources that were never
// wired to the daemon: shell history files, git logs, and browser history
// databases. Collectors tolerate absent sources; a machine without Firefox
// still collects everything else.
package collect

import (
	"context"
	"time"

	"github.com/kevinreber/siphon/internal/config"
	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/event"
	"github.com/kevinreber/siphon/internal/monitoring"
)

// Collector materializes events from one source since a point in time.
type Collector interface {
	Name() string
	Collect(ctx context.Context, since time.Time) ([]event.Event, error)
}

// RunResult reports one collector's outcome within a CollectAll run.
type RunResult struct {
	Collector string        `json:"collector"`
	Events    int           `json:"events"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Runner executes a set of collectors and merges their output.
type Runner struct {
	collectors []Collector
	logger     *monitoring.Logger
	metrics    *monitoring.Metrics
}

// NewRunner creates a runner over the given collectors.
func NewRunner(logger *monitoring.Logger, metrics *monitoring.Metrics, collectors ...Collector) *Runner {
	return &Runner{
		collectors: collectors,
		logger:     logger,
		metrics:    metrics,
	}
}

// FromConfig builds a runner with the standard collectors, configured from
// the collect section.
func FromConfig(cfg config.CollectConfig, logger *monitoring.Logger, metrics *monitoring.Metrics) *Runner {
	browser := NewBrowserCollector(nil).
		WithMaxWindow(time.Duration(cfg.BrowserHistoryHours) * time.Hour)

	return NewRunner(logger, metrics,
		NewShellCollector(cfg.ShellHistoryLimit),
		NewGitCollector(cfg.GitRepos),
		browser,
	)
}

// CollectAll runs every collector, skipping failures. An unavailable
// source contributes zero events and a logged RunResult, never an error;
// the merged slice is sorted by timestamp.
func (r *Runner) CollectAll(ctx context.Context, since time.Time) ([]event.Event, []RunResult) {
	var merged []event.Event
	results := make([]RunResult, 0, len(r.collectors))

	for _, c := range r.collectors {
		start := time.Now()
		events, err := c.Collect(ctx, since)

		// Sources fail transiently mid-flush (locked history databases,
		// half-written history files). Give those one spaced re-run.
		if err != nil && apperrors.IsRetryableError(err) {
			select {
			case <-time.After(apperrors.GetRetryDelay(err, 1)):
				events, err = c.Collect(ctx, since)
			case <-ctx.Done():
			}
		}
		elapsed := time.Since(start)

		result := RunResult{
			Collector: c.Name(),
			Events:    len(events),
			Duration:  elapsed,
			Err:       err,
		}
		results = append(results, result)

		if r.logger != nil {
			r.logger.CollectorLogger(c.Name(), len(events), 0, elapsed, err)
		}
		if r.metrics != nil {
			r.metrics.RecordCollectorRun(c.Name(), err == nil)
		}

		if err != nil {
			continue
		}
		merged = append(merged, events...)
	}

	event.SortByTime(merged)
	return merged, results
}
