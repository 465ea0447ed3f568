package http

import (
	"net/http"

	"github.com/go-chi/render"

	"hrpulse/pkg/contracts"
)

// HealthResponse reports service and database status.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
}

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := &HealthResponse{Status: "ok", Database: "ok", Version: contracts.Version}

	if err := h.db.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		render.Status(r, http.StatusServiceUnavailable)
	}

	render.JSON(w, r, resp)
}

// Version reports the detailed build information.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
