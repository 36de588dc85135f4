// Package server exposes benchmarks over a small REST API: one-shot
// synchronous runs, asynchronous jobs with progress polling, and a websocket
// stream of live job snapshots.
package server

import (
	"bufio"
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/llmpulse/llmpulse/internal/config"
	"github.com/llmpulse/llmpulse/internal/jobs"
	"github.com/llmpulse/llmpulse/internal/store"
)

// Server wires the HTTP API to the job manager and report store.
type Server struct {
	cfg      config.Config
	manager  *jobs.Manager
	store    *store.Store
	log      zerolog.Logger
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
}

// New creates a Server. The store may be nil when persistence is disabled.
func New(cfg config.Config, manager *jobs.Manager, st *store.Store, logger zerolog.Logger) *Server {
	limit := rate.Limit(cfg.Server.RateLimit)
	if cfg.Server.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Server.Burst
	if burst < 1 {
		burst = 1
	}
	return &Server{
		cfg:     cfg,
		manager: manager,
		store:   st,
		log:     logger,
		limiter: rate.NewLimiter(limit, burst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.basicAuth)

	api.HandleFunc("/benchmark", s.withSubmitLimit(s.handleBenchmark)).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.withSubmitLimit(s.handleSubmitJob)).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleJobStatus).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleCancelJob).Methods(http.MethodDelete)
	api.HandleFunc("/jobs/{id}/watch", s.handleWatchJob).Methods(http.MethodGet)
	api.HandleFunc("/reports", s.handleListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", s.handleGetReport).Methods(http.MethodGet)

	return router
}

// ListenAndServe runs the API until ctx is cancelled, then drains with a
// short grace period.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Listen).Msg("api server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.manager.Shutdown(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

// logRequests emits one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// basicAuth guards the API with constant-time credential checks.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !credentialsMatch(user, s.cfg.Server.Username) || !credentialsMatch(pass, s.cfg.Server.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="llmpulse"`)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func credentialsMatch(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// withSubmitLimit throttles benchmark submissions.
func (s *Server) withSubmitLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "benchmark submission rate exceeded")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the logging wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
