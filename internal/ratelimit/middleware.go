package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// IngestMiddleware limits event ingestion per source path. Each
// POST /events/<source> route gets its own bucket so a runaway shell
// hook cannot starve editor or git ingestion.
func (l *Limiter) IngestMiddleware() gin.HandlerFunc {
	r := Rate{Limit: l.config.IngestPerSecond, Period: time.Second}

	return func(c *gin.Context) {
		key := "ingest:" + c.Request.URL.Path

		result := l.Allow(key, r)

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "event ingestion rate limit exceeded",
				"message":     fmt.Sprintf("This source is limited to %d events per second", result.Limit),
				"retry_after": int(result.RetryAfter.Seconds()),
				"reset_at":    result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// QueryMiddleware limits read endpoints per path per minute.
func (l *Limiter) QueryMiddleware() gin.HandlerFunc {
	r := Rate{Limit: l.config.QueryPerMinute, Period: time.Minute}

	return func(c *gin.Context) {
		key := "query:" + c.Request.URL.Path

		result := l.Allow(key, r)

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "query rate limit exceeded",
				"message":     fmt.Sprintf("This endpoint is limited to %d requests per minute", result.Limit),
				"retry_after": int(result.RetryAfter.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
