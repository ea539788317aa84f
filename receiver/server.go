package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prilive-com/gramflow/internal/metrics"
)

// Server hosts the webhook endpoint plus liveness and metrics routes.
// Anything outside those paths is a 404, keeping the surface minimal for a
// process that is reachable from the public internet.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	shutdownTimeout time.Duration
	ready           atomic.Bool
}

// NewServer builds the HTTP server around an already-constructed webhook
// handler. The metrics route is mounted only when a metrics set is given.
func NewServer(handler *WebhookHandler, logger *slog.Logger, cfg Config, m *metrics.Metrics) *Server {
	s := &Server{
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	// A request can only reach the health route through a live listener, so
	// the flag starts true and flips only while draining.
	s.ready.Store(true)

	r := chi.NewRouter()
	r.Post(cfg.WebhookPath, handler.ServeHTTP)
	r.Get("/health", s.handleHealth)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// Start begins serving. It blocks until the listener fails or Shutdown is
// called; a clean shutdown returns nil.
func (s *Server) Start() error {
	s.ready.Store(true)
	s.logger.Info("webhook server listening", "addr", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	s.ready.Store(false)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server, allowing in-flight requests to finish within
// the configured grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.logger.Info("webhook server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler exposes the routing table, for mounting under an existing server
// instead of running the built-in listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Ready reports whether the server is accepting traffic.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// handleHealth answers liveness probes. It reports only that the HTTP
// listener is up, not whether Telegram deliveries are flowing.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
