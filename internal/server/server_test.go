package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinreber/siphon/internal/event"
)

func seedEvent(t *testing.T, s *Server, age time.Duration, eventType string, payload event.Payload, project string) {
	t.Helper()
	require.NoError(t, s.store.InsertEvent(event.New(time.Now().Add(-age), eventType, payload, project)))
}

func seedShell(t *testing.T, s *Server, age time.Duration, command string) {
	t.Helper()
	seedEvent(t, s, age, "command", event.ShellPayload{Command: command}, "siphon")
}

func TestHealthReportsDaemonState(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(0), body["total_events"])
}

func TestEventsQueryWindow(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 3*time.Hour, "docker build -t app .")
	seedShell(t, s, 30*time.Minute, "docker compose up")

	w := do(t, s, http.MethodGet, "/events?hours=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = do(t, s, http.MethodGet, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["count"])
}

func TestEventsQueryExplicitRange(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 3*time.Hour, "make deploy")
	seedShell(t, s, 20*time.Minute, "make test")

	from := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	w := do(t, s, http.MethodGet, "/events?from="+from, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
}

func TestEventsQueryFilters(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 10*time.Minute, "go test ./...")
	seedEvent(t, s, 15*time.Minute, "commit", event.GitPayload{Action: "commit", Message: "wip"}, "blog")

	w := do(t, s, http.MethodGet, "/events?source=git", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = do(t, s, http.MethodGet, "/events?project=siphon", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = do(t, s, http.MethodGet, "/events?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
}

func TestEventsQueryRejectsBadParams(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"non-numeric hours", "/events?hours=yesterday"},
		{"zero hours", "/events?hours=0"},
		{"malformed from", "/events?from=not-a-timestamp"},
		{"negative limit", "/events?limit=-5"},
		{"inverted range", "/events?from=2026-08-20T12:00:00Z&to=2026-08-20T09:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRecentEventsStayInsideWindow(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 3*time.Hour, "vim notes.md")
	seedShell(t, s, 10*time.Minute, "git status")

	w := do(t, s, http.MethodGet, "/events/recent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])
}

func TestStatsAggregates(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 10*time.Minute, "go build ./...")
	seedShell(t, s, 8*time.Minute, "go test ./...")
	seedEvent(t, s, 5*time.Minute, "commit", event.GitPayload{Action: "commit"}, "siphon")

	w := do(t, s, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["total_events"])
	assert.NotEmpty(t, body["db_size_human"])
	assert.Contains(t, body, "dedup")
	assert.Contains(t, body, "daily_counts")

	bySource, ok := body["events_by_source"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, bySource)
	top := bySource[0].(map[string]any)
	assert.Equal(t, "shell", top["source"])
	assert.Equal(t, float64(2), top["count"])
}

func TestSessionTracksIngestedActivity(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["active"])
	assert.Equal(t, "active", body["state"])

	do(t, s, http.MethodPost, "/events/shell", map[string]any{"command": "go vet ./..."})

	w = do(t, s, http.MethodGet, "/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, true, body["active"])
	assert.Equal(t, float64(1), body["event_count"])
	assert.NotEmpty(t, body["session_id"])
}

func TestAnalysisRunsPipelineOverStoredEvents(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 4; i++ {
		seedShell(t, s, time.Duration(50-2*i)*time.Minute, "docker compose up")
	}

	w := do(t, s, http.MethodGet, "/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), summary["total_events"])

	clusters, ok := body["clusters"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, clusters)
	assert.Equal(t, "docker", clusters[0].(map[string]any)["topic"])
}

func TestAnalysisResponsesAreCachedUntilIngest(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 30*time.Minute, "cargo build")

	first := do(t, s, http.MethodGet, "/analysis", nil)
	require.Equal(t, http.StatusOK, first.Code)

	// Cluster and session IDs are regenerated per run, so byte-equal
	// responses can only come from the cache.
	second := do(t, s, http.MethodGet, "/analysis", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	do(t, s, http.MethodPost, "/events/shell", map[string]any{"command": "cargo test"})

	third := do(t, s, http.MethodGet, "/analysis", nil)
	require.Equal(t, http.StatusOK, third.Code)
	summary := decodeBody(t, third)["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total_events"])
}

func TestSummaryReturnsOnlySummarySection(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 15*time.Minute, "npm run build")

	w := do(t, s, http.MethodGet, "/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Contains(t, body, "total_events")
	assert.NotContains(t, body, "clusters")
}

func TestCleanupDeletesBeyondRetention(t *testing.T) {
	s := newTestServer(t)
	seedShell(t, s, 90*24*time.Hour, "ancient command")
	seedShell(t, s, time.Hour, "recent command")

	w := do(t, s, http.MethodPost, "/cleanup", map[string]any{"retention_days": 30, "vacuum": true})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["deleted_count"])
	assert.Equal(t, true, body["vacuumed"])

	total, err := s.store.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestMetricsCountRequests(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/health", nil)

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.GreaterOrEqual(t, body["total_requests"].(float64), float64(1))
	assert.Contains(t, body, "rate_limiter")
	assert.Contains(t, body, "ingest")
}

func TestCORSPreflightAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/events/editor", nil)
	req.RemoteAddr = "127.0.0.1:54321"
	req.Header.Set("Origin", "vscode-webview://extension")
	req.Header.Set("Access-Control-Request-Method", "POST")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
