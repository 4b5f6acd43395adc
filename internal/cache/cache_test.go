package cache

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinreber/siphon/internal/monitoring"
)

func TestCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("analysis:24", []byte(`{"clusters":[]}`))

	data, found := c.Get("analysis:24")
	require.True(t, found)
	assert.Equal(t, `{"clusters":[]}`, string(data))

	_, found = c.Get("analysis:48")
	assert.False(t, found)
}

func TestCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set("key", []byte("value"))
	time.Sleep(25 * time.Millisecond)

	_, found := c.Get("key")
	assert.False(t, found)
}

func TestCacheClearAndSize(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	assert.Equal(t, 2, c.Size())

	c.Delete("a")
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCacheStats(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", []byte("1"))

	stats := c.Stats()
	assert.Equal(t, 1, stats["total_items"])
	assert.Equal(t, 0, stats["expired_items"])
	assert.Equal(t, 60.0, stats["ttl_seconds"])
}

func TestMiddlewareCachesConfiguredPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := New(time.Minute)
	metrics := monitoring.NewMetrics()

	handlerCalls := 0
	r := gin.New()
	r.Use(c.Middleware(metrics, "/analysis"))
	r.GET("/analysis", func(ctx *gin.Context) {
		handlerCalls++
		ctx.JSON(http.StatusOK, gin.H{"clusters": []string{}})
	})
	r.GET("/health", func(ctx *gin.Context) {
		handlerCalls++
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// First request misses, second hits without invoking the handler.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/analysis?hours=24", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "clusters")
	}
	assert.Equal(t, 1, handlerCalls)

	// A different query string is a different cache entry.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analysis?hours=48", nil))
	assert.Equal(t, 2, handlerCalls)

	// Paths outside the configured set are never cached.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	assert.Equal(t, 4, handlerCalls)
}
