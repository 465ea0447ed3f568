package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"hrpulse/internal/charts"
	apierrors "hrpulse/internal/errors"
	"hrpulse/internal/kpi"
)

// KPIListResponse lists the available KPI tables.
type KPIListResponse struct {
	KPIs []kpi.Spec `json:"kpis"`
}

// KPIDataResponse carries the rows of one Gold table.
type KPIDataResponse struct {
	Name    string           `json:"name"`
	Table   string           `json:"table"`
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ListKPIs returns the KPI catalog.
func (h *Handler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, &KPIListResponse{KPIs: h.specs})
}

// GetKPI returns the rows of one Gold table.
func (h *Handler) GetKPI(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	spec, ok := kpi.Lookup(h.specs, name)
	if !ok {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.KPINotFoundError(name)))
		return
	}

	data, err := h.db.QueryTable(r.Context(), spec.Table)
	if err != nil {
		h.renderQueryError(w, r, name, err)
		return
	}

	rows := make([]map[string]any, len(data.Rows))
	for i, row := range data.Rows {
		m := make(map[string]any, len(data.Columns))
		for j, col := range data.Columns {
			m[col] = row[j]
		}
		rows[i] = m
	}

	render.JSON(w, r, &KPIDataResponse{
		Name:    spec.Name,
		Table:   spec.Table,
		Columns: data.Columns,
		Rows:    rows,
	})
}

// GetChart returns the chart config for one KPI.
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	spec, ok := kpi.Lookup(h.specs, name)
	if !ok {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.KPINotFoundError(name)))
		return
	}

	data, err := h.db.QueryTable(r.Context(), spec.Table)
	if err != nil {
		h.renderQueryError(w, r, name, err)
		return
	}

	cfg, err := charts.Build(spec, data)
	if err != nil {
		h.logger.Error("Chart build failed",
			slog.String("kpi", name),
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.QueryError(err)))
		return
	}

	render.JSON(w, r, cfg)
}

// renderQueryError maps a missing Gold table onto the stale-data error so
// clients can tell "pipeline never ran" from a real failure.
func (h *Handler) renderQueryError(w http.ResponseWriter, r *http.Request, name string, err error) {
	h.logger.Error("KPI table read failed",
		slog.String("kpi", name),
		slog.String("error", err.Error()))
	if strings.Contains(err.Error(), "does not exist") {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrStaleData))
		return
	}
	render.Render(w, r, apierrors.NewErrorResponse(apierrors.QueryError(err)))
}
