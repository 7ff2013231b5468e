package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/poiesic/chatrag/answer"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultRequestTimeout bounds a single request, including the model call.
	DefaultRequestTimeout = 120 * time.Second

	maxBodyBytes = 1 << 20
)

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrAnswererRequired is returned when an answerer is not provided.
	ErrAnswererRequired = errors.New("answerer required")
)

// Retriever returns context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) core.ContextBundle
}

// Answerer answers a question from retrieved context.
type Answerer interface {
	Answer(ctx context.Context, question string) answer.Answer
}

// HealthChecker reports whether the document store is reachable.
type HealthChecker interface {
	IsEmpty(ctx context.Context) (bool, error)
}

// Server routes HTTP requests to a Retriever and an Answerer.
type Server struct {
	retriever Retriever
	answerer  Answerer
	health    HealthChecker
	validate  *validator.Validate
	timeout   time.Duration
	logger    *slog.Logger
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server) error

// WithHealthCheck makes /healthz probe the store.
func WithHealthCheck(h HealthChecker) Option {
	return func(s *Server) error {
		s.health = h
		return nil
	}
}

// WithRequestTimeout sets the per-request deadline. Default is DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d > 0 {
			s.timeout = d
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "server")
		return nil
	}
}

// New creates a Server.
func New(retriever Retriever, answerer Answerer, opts ...Option) (*Server, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if answerer == nil {
		return nil, ErrAnswererRequired
	}

	s := &Server{
		retriever: retriever,
		answerer:  answerer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		timeout:   DefaultRequestTimeout,
		logger:    slog.Default().With("component", "server"),
	}
	s.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(instrument(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/ask", s.handleAsk)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "no route for "+r.URL.Path, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed", nil)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
