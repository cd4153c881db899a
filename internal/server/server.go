// Package server exposes a read-only HTTP API over the stored series.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"KinneretSentinel/internal/history"
	"KinneretSentinel/internal/model"
	"KinneretSentinel/internal/scheduler"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 1000
	requestTimeout      = 10 * time.Second
)

// Backend provides the data served by the API.
type Backend interface {
	LoadHistory(ctx context.Context) ([]model.Record, error)
	Status(ctx context.Context) (*scheduler.Status, error)
}

// Server bundles the router and its dependencies.
type Server struct {
	addr    string
	backend Backend
	engine  *gin.Engine
	logger  *slog.Logger
}

// New constructs a server with routes and middleware. A nil registry disables /metrics.
func New(addr string, backend Backend, reg *prometheus.Registry, logger *slog.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))

	s := &Server{addr: addr, backend: backend, engine: engine, logger: logger}
	s.registerRoutes(reg)
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("http server listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(reg *prometheus.Registry) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if reg != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	v1 := s.engine.Group("/api/v1")
	v1.GET("/history", s.handleHistory)
	v1.GET("/trend", s.handleTrend)
	v1.GET("/status", s.handleStatus)
}

// GET /api/v1/history?limit=N
func (s *Server) handleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	records, err := s.backend.LoadHistory(ctx)
	if errors.Is(err, history.ErrNoHistory) {
		records, err = nil, nil
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total := len(records)
	if len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []model.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": records,
		"meta": gin.H{"count": len(records), "total": total},
	})
}

// GET /api/v1/trend
func (s *Server) handleTrend(c *gin.Context) {
	st, ok := s.status(c)
	if !ok {
		return
	}
	if st.Snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no records yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st.Snapshot})
}

// GET /api/v1/status
func (s *Server) handleStatus(c *gin.Context) {
	st, ok := s.status(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}

func (s *Server) status(c *gin.Context) (*scheduler.Status, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	st, err := s.backend.Status(ctx)
	switch {
	case errors.Is(err, history.ErrNoHistory):
		c.JSON(http.StatusNotFound, gin.H{"error": "no history yet"})
		return nil, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return st, true
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
