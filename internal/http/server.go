// Package http serves the liveness, readiness and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"poupazap/internal/log"
	"poupazap/internal/metrics"
)

const aliveText = "PoupaZap está vivo!"

// Checker reports whether a dependency answers, e.g. the database.
type Checker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	checks  map[string]Checker
	started time.Time
	logger  *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. checks
// are consulted by /readyz only.
func NewServer(addr string, m *metrics.Metrics, checks map[string]Checker, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           log.Middleware(logger)(withSecurityHeaders(mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		checks:  checks,
		started: time.Now(),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", m.Handler())
	return s
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(aliveText))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			results[name] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err)
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": results})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// withSecurityHeaders adds the headers every response carries. The
// endpoints serve no HTML, so the policy is as strict as it gets.
func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
