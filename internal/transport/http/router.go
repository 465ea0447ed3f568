// Package http exposes the Gold KPI tables over a read-only JSON API, plus a
// trigger endpoint for running the pipeline and the Prometheus scrape
// endpoint. The handlers never assume freshness beyond the last run.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "hrpulse/internal/errors"
	"hrpulse/internal/infrastructure"
	"hrpulse/internal/kpi"
	"hrpulse/internal/pipeline"
	"hrpulse/internal/storage"
)

// Handler bundles the dependencies of the HTTP layer.
type Handler struct {
	db       *storage.DB
	specs    []kpi.Spec
	pipeline *pipeline.Pipeline
	metrics  *infrastructure.Metrics
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler set. The pipeline may be nil, which
// disables the trigger endpoint.
func NewHandler(db *storage.DB, specs []kpi.Spec, p *pipeline.Pipeline, metrics *infrastructure.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:       db,
		specs:    specs,
		pipeline: p,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "http")),
	}
}

// Router builds the chi router with the standard middleware stack.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.countRequests)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrNotFound))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/version", h.Version)
		r.Get("/kpis", h.ListKPIs)
		r.Get("/kpis/{name}", h.GetKPI)
		r.Get("/kpis/{name}/chart", h.GetChart)
		if h.pipeline != nil {
			r.Post("/pipeline/run", h.RunPipeline)
		}
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler)
	}

	return r
}

// countRequests records request counts by route pattern and status.
func (h *Handler) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		h.metrics.CountRequest(r.Context(), route, ww.Status())
	})
}
