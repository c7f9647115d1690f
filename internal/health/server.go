// Package health serves liveness, status and Prometheus metrics over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/premiumwatch/internal/logger"
	"github.com/rewired-gh/premiumwatch/internal/models"
)

// StatusFunc returns the current monitor snapshot.
type StatusFunc func() models.Status

// Config holds server settings.
type Config struct {
	ListenAddr string
	// StaleAfter is the heartbeat age beyond which /healthz reports failure.
	StaleAfter time.Duration
}

// Server is the read-only HTTP surface of the monitor.
type Server struct {
	router   *mux.Router
	server   *http.Server
	listener net.Listener
	config   Config
	status   StatusFunc
	now      func() time.Time
}

// NewServer wires the routes. gatherer may be nil to omit /metrics.
func NewServer(config Config, status StatusFunc, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router: mux.NewRouter(),
		config: config,
		status: status,
		now:    time.Now,
	}

	s.router.Use(s.requestLoggingMiddleware)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.server = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the listen address so bind errors surface before serving.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("health server listen on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until Shutdown, binding first if Listen was not called.
// It returns nil after a clean shutdown.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	logger.Info("Starting health server on %s", s.listener.Addr())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down health server")
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Heartbeat time.Time `json:"heartbeat"`
	Age       string    `json:"age"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.status()
	resp := healthResponse{Status: "ok", Heartbeat: st.Heartbeat}
	code := http.StatusOK

	switch {
	case st.Heartbeat.IsZero():
		resp.Status = "starting"
		code = http.StatusServiceUnavailable
	default:
		age := s.now().Sub(st.Heartbeat)
		resp.Age = age.Round(time.Second).String()
		if age > s.config.StaleAfter {
			resp.Status = "stale"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("HTTP %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}
