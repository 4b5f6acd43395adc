package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/kevinreber/siphon/internal/analysis"
	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/store"
)

// recentWindowHours is the fixed lookback for /events/recent. Editor
// plugins poll it for their status line; two hours covers a working block
// without dragging the whole day across the wire.
const recentWindowHours = 2

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	httpStatus := http.StatusOK
	storageCheck := "ok"

	total, err := s.store.TotalCount()
	if err != nil {
		status = "degraded"
		storageCheck = err.Error()
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"total_events":   total,
		"checks": gin.H{
			"storage": storageCheck,
		},
	})
}

// parseWindow resolves the query window: explicit from/to timestamps win,
// then an hours lookback, then the configured default.
func parseWindow(c *gin.Context, defaultHours int) (time.Time, time.Time, error) {
	now := time.Now()

	fromParam, toParam := c.Query("from"), c.Query("to")
	if fromParam != "" || toParam != "" {
		start, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from timestamp %q: %w", fromParam, err)
		}
		end := now
		if toParam != "" {
			end, err = time.Parse(time.RFC3339, toParam)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid to timestamp %q: %w", toParam, err)
			}
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("window ends before it starts")
		}
		return start, end, nil
	}

	hours := defaultHours
	if h := c.Query("hours"); h != "" {
		parsed, err := strconv.Atoi(h)
		if err != nil || parsed <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("hours must be a positive integer, got %q", h)
		}
		hours = parsed
	}
	return now.Add(-time.Duration(hours) * time.Hour), now, nil
}

func (s *Server) handleEvents(c *gin.Context) {
	start, end, err := parseWindow(c, s.cfg.Analysis.WindowHours)
	if err != nil {
		s.rejectInvalid(c, "invalid query window", err)
		return
	}

	filter := store.Filter{
		Source:  c.Query("source"),
		Project: c.Query("project"),
	}
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			s.rejectInvalid(c, "invalid limit", fmt.Errorf("limit must be a positive integer, got %q", l))
			return
		}
		filter.Limit = parsed
	}

	events, err := s.store.EventsFiltered(start, end, filter)
	if err != nil {
		appErr := apperrors.NewStorageError("failed to query events", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (s *Server) handleRecentEvents(c *gin.Context) {
	limit := 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			s.rejectInvalid(c, "invalid limit", fmt.Errorf("limit must be a positive integer, got %q", l))
			return
		}
		limit = parsed
	}

	events, err := s.store.RecentEvents(recentWindowHours, limit)
	if err != nil {
		appErr := apperrors.NewStorageError("failed to query recent events", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

func (s *Server) handleStats(c *gin.Context) {
	total, err := s.store.TotalCount()
	if err != nil {
		appErr := apperrors.NewStorageError("failed to read event count", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	bySource, err := s.store.CountBySource()
	if err != nil {
		appErr := apperrors.NewStorageError("failed to read source breakdown", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	// The remaining numbers are decoration; a failure there should not
	// take the whole stats endpoint down.
	byProject, _ := s.store.CountByProject(10)
	daily, _ := s.store.DailyCounts(30)
	size, _ := s.store.Size()

	var oldest, newest any
	if o, n, ok, err := s.store.TimeRange(); err == nil && ok {
		oldest = o.Format(time.RFC3339)
		newest = n.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_events":      total,
		"events_by_source":  bySource,
		"events_by_project": byProject,
		"daily_counts":      daily,
		"db_size_bytes":     size,
		"db_size_human":     humanize.Bytes(uint64(size)),
		"oldest_event":      oldest,
		"newest_event":      newest,
		"dedup":             s.dedup.Stats(),
		"cache":             s.cache.Stats(),
		"uptime_seconds":    int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleSession(c *gin.Context) {
	state := string(s.idle.State())

	session := s.idle.Session()
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"active": false, "state": state})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"active":           true,
		"state":            state,
		"session_id":       session.ID,
		"started_at":       session.StartedAt.Format(time.RFC3339),
		"duration_minutes": session.DurationMinutes,
		"event_count":      session.EventCount,
		"idle_periods":     len(session.IdlePeriods),
	})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSummary(c *gin.Context) {
	result, ok := s.runAnalysis(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result.Summary)
}

// runAnalysis loads the requested window and runs the pipeline over it.
// Responses for /analysis and /summary sit behind the cache middleware, so
// this only executes on a cache miss.
func (s *Server) runAnalysis(c *gin.Context) (*analysis.AnalysisResult, bool) {
	start, end, err := parseWindow(c, s.cfg.Analysis.WindowHours)
	if err != nil {
		s.rejectInvalid(c, "invalid query window", err)
		return nil, false
	}

	events, err := s.store.EventsBetween(start, end)
	if err != nil {
		appErr := apperrors.NewStorageError("failed to load events for analysis", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return nil, false
	}

	began := time.Now()
	result, err := s.analyzer.Analyze(events)
	if err != nil {
		appErr := apperrors.NewInternalError("analysis failed", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return nil, false
	}
	s.logger.AnalysisLogger(len(events), len(result.Clusters), len(result.Sessions),
		len(result.Ideas), time.Since(began), false)

	return result, true
}

func (s *Server) handleMetrics(c *gin.Context) {
	stats := s.metrics.GetStats()
	stats["rate_limiter"] = s.limiter.GetStats()
	stats["compression"] = s.compress.Stats()
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCleanup(c *gin.Context) {
	req := CleanupRequest{RetentionDays: s.cfg.Storage.RetentionDays}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.rejectInvalid(c, "invalid cleanup request", err)
			return
		}
		if req.RetentionDays <= 0 {
			req.RetentionDays = s.cfg.Storage.RetentionDays
		}
	}

	deleted, err := s.store.Cleanup(req.RetentionDays)
	if err != nil {
		appErr := apperrors.NewStorageError("cleanup failed", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	vacuumed := false
	if req.Vacuum {
		vacuumed = s.store.Vacuum() == nil
	}

	size, _ := s.store.Size()
	s.logger.SystemLogger("cleanup",
		fmt.Sprintf("deleted %d events older than %d days", deleted, req.RetentionDays))
	s.cache.Clear()

	c.JSON(http.StatusOK, gin.H{
		"deleted_count": deleted,
		"vacuumed":      vacuumed,
		"db_size_bytes": size,
	})
}
