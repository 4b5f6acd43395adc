// Package middleware holds HTTP middleware shared across the daemon's
// routes rather than tied to one subsystem.
package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig tunes response compression.
type CompressionConfig struct {
	// MinSize is the smallest first write that gets compressed. Event
	// lists and analysis payloads run to hundreds of kilobytes; health
	// checks and ingest acks are never worth the CPU.
	MinSize int
	// Level is the gzip level.
	Level int
}

// DefaultCompressionConfig returns the production settings.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1 << 10,
		Level:   gzip.DefaultCompression,
	}
}

// Compressor gzips responses for clients that accept it. Writers are
// pooled; one daemon serves a steady stream of poll requests.
type Compressor struct {
	config CompressionConfig
	stats  compressionStats
	pool   sync.Pool
}

// NewCompressor creates a compressor with pooled gzip writers.
func NewCompressor(config CompressionConfig) *Compressor {
	c := &Compressor{config: config}
	c.pool = sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, config.Level)
			return w
		},
	}
	return c
}

// Middleware returns the gin handler. The compress-or-not decision is
// made on the first body write, when the content type and size are known.
func (c *Compressor) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.Contains(ctx.GetHeader("Accept-Encoding"), "gzip") {
			ctx.Next()
			return
		}

		gw := &gzipWriter{ResponseWriter: ctx.Writer, compressor: c}
		ctx.Writer = gw
		ctx.Next()
		gw.finish()
	}
}

// Stats reports how much compression is saving.
func (c *Compressor) Stats() map[string]interface{} {
	return c.stats.snapshot()
}

func (c *Compressor) getWriter(w io.Writer) *gzip.Writer {
	gz := c.pool.Get().(*gzip.Writer)
	gz.Reset(w)
	return gz
}

func (c *Compressor) putWriter(gz *gzip.Writer) {
	c.pool.Put(gz)
}

func compressible(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json") ||
		strings.HasPrefix(contentType, "application/xml") ||
		strings.HasPrefix(contentType, "text/")
}

// gzipWriter defers the compression decision to the first write. Gin only
// flushes headers on the first body write, so Content-Encoding can still
// be set here.
type gzipWriter struct {
	gin.ResponseWriter
	compressor *Compressor
	gz         *gzip.Writer
	skipped    bool
	rawBytes   int64
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	w.rawBytes += int64(len(data))

	if w.gz == nil && !w.skipped {
		if len(data) < w.compressor.config.MinSize || !compressible(w.Header().Get("Content-Type")) {
			w.skipped = true
		} else {
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Add("Vary", "Accept-Encoding")
			w.Header().Del("Content-Length")
			w.gz = w.compressor.getWriter(w.ResponseWriter)
		}
	}

	if w.gz == nil {
		return w.ResponseWriter.Write(data)
	}
	return w.gz.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipWriter) Flush() {
	if w.gz != nil {
		w.gz.Flush()
	}
	w.ResponseWriter.Flush()
}

// finish closes the gzip stream and records the outcome. Must run after
// the handler chain; the gzip trailer is written here.
func (w *gzipWriter) finish() {
	if w.gz != nil {
		w.gz.Close()
		w.compressor.putWriter(w.gz)
	}
	// Size is -1 when the response carried no body at all.
	sent := int64(w.Size())
	if sent < 0 {
		sent = 0
	}
	w.compressor.stats.record(w.rawBytes, sent, w.gz != nil)
}

type compressionStats struct {
	mu              sync.Mutex
	totalResponses  int64
	compressedCount int64
	rawBytes        int64
	sentBytes       int64
}

func (s *compressionStats) record(raw, sent int64, compressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalResponses++
	s.rawBytes += raw
	s.sentBytes += sent
	if compressed {
		s.compressedCount++
	}
}

func (s *compressionStats) snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ratio := float64(0)
	if s.rawBytes > 0 {
		ratio = float64(s.sentBytes) / float64(s.rawBytes)
	}
	return map[string]interface{}{
		"total_responses":      s.totalResponses,
		"compressed_responses": s.compressedCount,
		"raw_bytes":            s.rawBytes,
		"sent_bytes":           s.sentBytes,
		"compression_ratio":    ratio,
	}
}
