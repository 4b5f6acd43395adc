// Package security hardens the daemon's HTTP surface. The listener
// already binds a loopback address; these middlewares are the second
// fence against misconfigured binds and port-forwarded peers.
package security

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Config holds the daemon hardening knobs.
type Config struct {
	// MaxBodyBytes caps request bodies. Event payloads are small; the
	// largest legitimate body is one long redacted command line.
	MaxBodyBytes int64 `json:"max_body_bytes"`
	// RequestTimeout bounds handler time, analysis runs included.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 30 * time.Second,
	}
}

// Middleware bundles the hardening handlers.
type Middleware struct {
	config Config
}

// New creates the middleware set.
func New(config Config) *Middleware {
	return &Middleware{config: config}
}

// LoopbackOnly rejects non-local peers. Captured activity never leaves
// the machine, so nothing on the network has any business here.
func (m *Middleware) LoopbackOnly(c *gin.Context) {
	ip := net.ParseIP(c.ClientIP())
	if ip == nil || !ip.IsLoopback() {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "this daemon only serves local clients",
		})
		c.Abort()
		return
	}
	c.Next()
}

// SecurityHeaders adds defensive headers to every response.
func (m *Middleware) SecurityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")
	c.Header("Referrer-Policy", "no-referrer")
	c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	c.Next()
}

// ValidateContentType requires JSON bodies on mutating requests.
func (m *Middleware) ValidateContentType(c *gin.Context) {
	if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
		c.Next()
		return
	}

	contentType := c.GetHeader("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "application/json") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "unsupported content type",
		})
		c.Abort()
		return
	}
	c.Next()
}

// BodySizeLimit caps the request body before binding reads it.
func (m *Middleware) BodySizeLimit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, m.config.MaxBodyBytes)
	c.Next()
}

// RequestTimeout attaches a deadline to the request context.
func (m *Middleware) RequestTimeout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), m.config.RequestTimeout)
	defer cancel()

	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Timeout", strconv.Itoa(int(m.config.RequestTimeout.Seconds())))
	c.Next()
}
