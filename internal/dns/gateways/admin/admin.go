// Package admin serves the operational HTTP endpoints: Prometheus metrics on
// /metrics and the balancer health view on /healthz.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/common/metrics"
	"github.com/haukened/lbdns/internal/dns/services/balancer"
)

const shutdownTimeout = 5 * time.Second

// StatusSource reports the balancer health view.
type StatusSource interface {
	Status() balancer.Status
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	State string `json:"status"`
	balancer.Status
}

// Server is the admin HTTP server.
type Server struct {
	addr   string
	mux    *http.ServeMux
	status StatusSource
	logger log.Logger

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
	group  *errgroup.Group
	cancel context.CancelFunc
}

// New creates an admin server for addr. Nothing is bound until Start.
func New(addr string, status StatusSource, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Server{
		addr:   addr,
		mux:    http.NewServeMux(),
		status: status,
		logger: logger,
	}
	s.mux.HandleFunc("/healthz", s.healthHandler)
	s.mux.Handle("/metrics", metrics.Handler())
	return s
}

// Handler returns the HTTP handler for embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start binds the listener and serves until ctx ends or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("admin server already running")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind admin listener on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})

	s.server, s.ln, s.group, s.cancel = srv, ln, g, cancel
	s.logger.Info(map[string]any{"address": ln.Addr().String()}, "admin server started")
	return nil
}

// Stop shuts the server down and waits for it to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	g, cancel := s.group, s.cancel
	s.server, s.group, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	cancel()
	err := g.Wait()
	s.logger.Info(map[string]any{"address": s.addr}, "admin server stopped")
	return err
}

// Address returns the bound address once started, or the configured one before.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// healthHandler reports "ok" while a backend is active and the last refresh
// succeeded, "degraded" after failed refreshes, and 503 before the first
// selection.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.status.Status()
	resp := HealthResponse{State: "ok", Status: st}
	code := http.StatusOK
	switch {
	case st.Active == "":
		resp.State = "unavailable"
		code = http.StatusServiceUnavailable
	case st.ConsecutiveFailures > 0:
		resp.State = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
