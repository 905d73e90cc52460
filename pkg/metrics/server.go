package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// HealthResponse is served on /health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Started  bool   `json:"started"`
}

// Server exposes /metrics and /health over HTTP, next to the stdio channel
type Server struct {
	collector  *Collector
	provider   types.Provider
	version    string
	logger     *slog.Logger
	startTime  time.Time
	mux        *http.ServeMux
	httpServer *http.Server
	addr       string
}

// NewServer creates the HTTP server; nothing listens until Start
func NewServer(collector *Collector, provider types.Provider, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		collector: collector,
		provider:  provider,
		version:   version,
		logger:    logger,
		startTime: time.Now(),
		mux:       http.NewServeMux(),
	}
	s.mux.Handle("/metrics", collector.Handler())
	s.mux.HandleFunc("/health", s.health)
	return s
}

// Handler returns the routed handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	// Execution order: Recovery -> Logging -> mux
	return Recovery(s.logger, Logging(s.logger, s.mux))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	}
	if s.provider != nil {
		resp.Provider = string(s.provider.Type())
		resp.Model = s.provider.Config().Model
		resp.Started = s.provider.Started()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Start listens on addr and serves until Shutdown. It returns once the
// listener is bound; serve errors are logged.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.addr = listener.Addr().String()
	s.logger.Info("metrics server listening", "addr", s.addr)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has returned
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown metrics server: %w", err)
	}
	s.logger.Info("metrics server shutdown complete")
	return nil
}
