package monitoring

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// Logger provides structured logging with domain-specific helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout.
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details.
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// IngestLogger logs one stored event.
func (l *Logger) IngestLogger(source, eventType, project string) {
	l.Debug("Event Stored",
		"source", source,
		"event_type", eventType,
		"project", project,
	)
}

// AnalysisLogger logs one analysis run.
func (l *Logger) AnalysisLogger(eventCount, clusterCount, sessionCount, ideaCount int, duration time.Duration, cacheHit bool) {
	l.Info("Analysis Completed",
		"event_count", eventCount,
		"cluster_count", clusterCount,
		"session_count", sessionCount,
		"idea_count", ideaCount,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// CollectorLogger logs one collector run.
func (l *Logger) CollectorLogger(name string, imported, duplicates int, duration time.Duration, err error) {
	if err != nil {
		l.Warn("Collector Failed",
			"collector", name,
			"error", err.Error(),
			"duration_ms", duration.Milliseconds(),
		)
		return
	}
	l.Info("Collector Completed",
		"collector", name,
		"imported", imported,
		"duplicates", duplicates,
		"duration_ms", duration.Milliseconds(),
	)
}

// ExportLogger logs one export run.
func (l *Logger) ExportLogger(format, destination string, bytes int) {
	l.Info("Export Completed",
		"format", format,
		"destination", destination,
		"bytes", bytes,
	)
}

// APIErrorLogger logs API errors with context.
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"caller", caller,
	)
}

// CacheLogger logs cache operations.
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	l.Debug("Cache Operation",
		"operation", operation,
		"key", key,
		"hit", hit,
		"cache_size", itemCount,
	)
}

// SystemLogger logs system-level events.
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

// PerformanceLogger logs performance metrics.
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Info("Performance Metric",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	l.Logger = slog.New(handler)
}

// ParseLevel resolves a configured level name (debug, info, warn, error).
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (want debug, info, warn, or error)", name)
	}
	return level, nil
}

var startTime = time.Now()
