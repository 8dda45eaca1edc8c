package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/dittoauth/internal/logger"
)

// Handler returns the /metrics HTTP handler for the registry.
// Returns nil if metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Server serves the metrics endpoint.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a metrics server listening on addr ("host:port", ":9090").
func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Start begins serving /metrics in the background.
// It fails if metrics are disabled or the address cannot be bound.
func (s *Server) Start() error {
	h := Handler()
	if h == nil {
		return errors.New("metrics registry not initialized")
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("metrics server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", logger.KeyError, err)
		}
	}()

	logger.Info("Metrics server started", "addr", listener.Addr().String())
	return nil
}

// Stop gracefully shuts the server down. Safe to call when not running.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	logger.Debug("Metrics server stopped")
	return nil
}

// Addr returns the bound address, or "" if not started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
