// Package api exposes the coach over HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aisri/internal/service"
	"aisri/internal/strava"
)

// EventHandler processes one Strava webhook event
type EventHandler interface {
	HandleEvent(ctx context.Context, ev strava.WebhookEvent) error
}

// WebhookConfig holds the Strava subscription secrets. An empty Secret
// disables signature checks.
type WebhookConfig struct {
	VerifyToken string
	Secret      string
}

// Server is the HTTP surface of a coach
type Server struct {
	coach    *service.Coach
	events   EventHandler
	webhook  WebhookConfig
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	// webhook events outlive their request
	eventsCtx    context.Context
	cancelEvents context.CancelFunc
	pending      sync.WaitGroup

	mu     sync.Mutex // guards closed and pending.Add
	closed bool
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithEventHandler enables POST /webhooks/strava
func WithEventHandler(h EventHandler, cfg WebhookConfig) ServerOption {
	return func(s *Server) {
		s.events = h
		s.webhook = cfg
	}
}

// WithGatherer serves g on /metrics
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.gatherer = g }
}

// WithServerLogger sets the request logger
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server for coach
func NewServer(coach *service.Coach, opts ...ServerOption) *Server {
	s := &Server{
		coach:    coach,
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.eventsCtx, s.cancelEvents = context.WithCancel(context.Background())
	return s
}

// Handler builds the gin engine with every route registered
func (s *Server) Handler() *gin.Engine {
	engine := gin.New()
	engine.Use(requestLogger(s.logger), gin.Recovery())
	engine.NoRoute(func(c *gin.Context) {
		abortWithError(c, fmt.Errorf("%s %s: %w", c.Request.Method, c.Request.URL.Path, service.ErrNotFound))
	})

	s.initCoachRouter(engine)
	if s.events != nil {
		s.initWebhookRouter(engine)
	}
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests and webhook events
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// Close cancels pending webhook events and waits for them to stop
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelEvents()
	s.mu.Unlock()
	s.pending.Wait()
}

// goEvent runs fn in the background unless Close has begun
func (s *Server) goEvent(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		fn(s.eventsCtx)
	}()
	return true
}

// requestLogger logs one line per request
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Error())
		}
		logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}
