// Package server is the HTTP daemon. It receives events from shell hooks,
// editor plugins, and the watcher scripts, answers queries over the stored
// history, and runs the analysis pipeline on demand. The daemon binds to
// loopback only; see the security package for the enforcement.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kevinreber/siphon/internal/analysis"
	"github.com/kevinreber/siphon/internal/cache"
	"github.com/kevinreber/siphon/internal/config"
	"github.com/kevinreber/siphon/internal/dedup"
	apperrors "github.com/kevinreber/siphon/internal/errors"
	"github.com/kevinreber/siphon/internal/idle"
	"github.com/kevinreber/siphon/internal/middleware"
	"github.com/kevinreber/siphon/internal/monitoring"
	"github.com/kevinreber/siphon/internal/ratelimit"
	"github.com/kevinreber/siphon/internal/security"
	"github.com/kevinreber/siphon/internal/store"
)

const (
	shutdownTimeout = 10 * time.Second
	idlePollPeriod  = 30 * time.Second
)

// Server wires the storage, analysis, and protection layers behind one
// gin router.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	analyzer *analysis.Analyzer
	dedup    *dedup.Deduplicator
	idle     *idle.Detector
	cache    *cache.Cache
	limiter  *ratelimit.Limiter
	guard    *security.Middleware
	compress *middleware.Compressor
	metrics  *monitoring.Metrics
	logger   *monitoring.Logger

	engine  *gin.Engine
	http    *http.Server
	started time.Time
	version string
}

// New assembles a server around an open store. The caller keeps ownership
// of the store; Run does not close it.
func New(cfg *config.Config, st *store.Store, version string) *Server {
	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLogger()
	if level, err := monitoring.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	s := &Server{
		cfg:      cfg,
		store:    st,
		analyzer: analysis.NewAnalyzer(),
		dedup:    dedup.New(dedup.DefaultConfig()),
		idle:     idle.New(idle.DefaultConfig()),
		cache:    cache.New(time.Duration(cfg.Analysis.CacheTTLMinutes) * time.Minute),
		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig(), metrics),
		guard:    security.New(security.DefaultConfig()),
		compress: middleware.NewCompressor(middleware.DefaultCompressionConfig()),
		metrics:  metrics,
		logger:   logger,
		started:  time.Now(),
		version:  version,
	}
	s.engine = s.buildRouter()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()

	// CORS stays permissive so the VS Code extension and browser-side
	// capture scripts can post from their own origins. The loopback guard
	// is what actually keeps remote clients out.
	corsConfig := cors.DefaultConfig()
	origins := s.cfg.Server.CORSOrigins
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))

	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	r.Use(s.guard.LoopbackOnly)
	r.Use(s.guard.SecurityHeaders)
	r.Use(s.guard.ValidateContentType)
	r.Use(s.guard.BodySizeLimit)
	r.Use(s.guard.RequestTimeout)

	// Compression sits outside the cache so cached entries hold plain
	// bytes and hits are re-compressed per client.
	r.Use(s.compress.Middleware())
	r.Use(s.cache.Middleware(s.metrics, "/analysis", "/summary"))

	ingest := s.limiter.IngestMiddleware()
	query := s.limiter.QueryMiddleware()

	r.GET("/health", s.handleHealth)

	r.POST("/events/shell", ingest, s.handleShellEvent)
	r.POST("/events/editor", ingest, s.handleEditorEvent)
	r.POST("/events/filesystem", ingest, s.handleFilesystemEvent)
	r.POST("/events/git", ingest, s.handleGitEvent)
	r.POST("/events/browser", ingest, s.handleBrowserEvent)

	r.GET("/events", query, s.handleEvents)
	r.GET("/events/recent", query, s.handleRecentEvents)
	r.GET("/stats", query, s.handleStats)
	r.GET("/session", query, s.handleSession)
	r.GET("/analysis", query, s.handleAnalysis)
	r.GET("/summary", query, s.handleSummary)

	r.GET("/metrics", s.handleMetrics)
	r.POST("/cleanup", s.handleCleanup)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Run serves until ctx is canceled, then drains in-flight requests. It
// returns early if the listener fails to start.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    s.cfg.Server.Addr(),
		Handler: s.engine,
	}

	idleCtx, stopIdle := context.WithCancel(context.Background())
	defer stopIdle()
	go s.watchIdle(idleCtx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Daemon listening", "addr", s.http.Addr, "version", s.version)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down daemon")
	s.limiter.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	slog.Info("Daemon stopped")
	return nil
}

// watchIdle polls the activity state machine so idle and away transitions
// happen even when no events arrive. Going away closes the work session.
func (s *Server) watchIdle(ctx context.Context) {
	ticker := time.NewTicker(idlePollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tr := s.idle.CheckIdle()
			if tr == nil {
				continue
			}
			s.logger.SystemLogger("idle_transition",
				fmt.Sprintf("%s -> %s after %ds", tr.Previous, tr.New, tr.IdleDurationSecs))

			if tr.New == idle.StateAway {
				if sess := s.idle.EndSession(); sess != nil {
					s.logger.SystemLogger("session_ended",
						fmt.Sprintf("session %s: %d events over %d minutes",
							sess.ID, sess.EventCount, sess.DurationMinutes))
				}
			}
		}
	}
}
