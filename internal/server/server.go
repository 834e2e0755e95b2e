// Package server exposes the publish pipeline over HTTP so that clients
// without Git host credentials can submit registry updates.
//
// Routes:
//
//	POST /api/registry/update   build style documents and open a pull request
//	GET  /api/registry/events   websocket feed of publish step events
//	GET  /healthz               liveness
//	GET  /metrics               Prometheus metrics
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harmonyui/harmonycn/internal/github"
	"github.com/harmonyui/harmonycn/internal/publish"
	"github.com/harmonyui/harmonycn/internal/telemetry"
)

// Publisher opens pull requests. *publish.Pipeline implements it.
type Publisher interface {
	Publish(ctx context.Context, files []publish.File, target publish.Target) (*publish.Result, error)
}

// ContentReader reads files from the registry repository. *github.Client
// implements it.
type ContentReader interface {
	GetContent(ctx context.Context, repo github.Repo, path, ref string) (string, error)
}

// Config configures a Server.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// Target is the repository pull requests are opened against.
	Target publish.Target

	Publisher Publisher

	// Content, when set, supplies sources of items whose files were not
	// all submitted.
	Content ContentReader

	Events   *EventHub
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
	Gatherer prometheus.Gatherer

	// MaxBodyBytes limits update request bodies (default 10 MiB).
	MaxBodyBytes int64
}

// Server is the registry update server.
type Server struct {
	cfg    Config
	router chi.Router
	logger *slog.Logger
}

// New creates a server and its routes.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Events == nil {
		cfg.Events = NewEventHub(cfg.Metrics)
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 10 << 20
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/registry", func(r chi.Router) {
		r.Post("/update", s.handleUpdate)
		r.Get("/events", cfg.Events.HandleWebSocket)
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("update server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.cfg.Events.Close()
	return srv.Shutdown(shutdownCtx)
}

// instrument logs each request and records it in metrics under its route
// pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.cfg.Metrics.RecordHTTPRequest(r.Method, route, status, elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
