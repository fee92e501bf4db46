package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jivzik/AI-Advent-Challenge-sub000/internal/metrics"
)

// DefaultRequestTimeout bounds a request when Options.Timeout is zero. LLM
// rescoring can take a while, so it is generous.
const DefaultRequestTimeout = 2 * time.Minute

// Options configures the router.
type Options struct {
	// Metrics, when set, observes every request and serves GET /metrics.
	Metrics *metrics.Collector
	Logger  *slog.Logger
	Timeout time.Duration
}

// Router wraps a chi router with handler configuration
type Router struct {
	chi     chi.Router
	handler *Handler
}

// NewRouter creates a new Router serving svc
func NewRouter(svc Service, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	handler := NewHandler(svc, logger)

	r := chi.NewRouter()

	// Apply middleware
	r.Use(requestID)
	if opts.Metrics != nil {
		r.Use(accessLog(logger, opts.Metrics))
	} else {
		r.Use(accessLog(logger, nil))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Register routes
	r.Get("/health", handler.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", handler.Search)
		r.Post("/chunk", handler.Chunk)
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", handler.ListDocuments)
			r.Post("/", handler.IngestDocument)
			r.Get("/{id}", handler.GetDocument)
			r.Delete("/{id}", handler.DeleteDocument)
		})
	})

	return &Router{
		chi:     r,
		handler: handler,
	}
}

// ServeHTTP implements the http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.chi.ServeHTTP(w, req)
}
