package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "hrpulse/internal/errors"
	"hrpulse/internal/pipeline"
)

// RunResponse wraps a completed pipeline run.
type RunResponse struct {
	Success bool                `json:"success"`
	Run     *pipeline.RunResult `json:"run"`
}

// RunPipeline triggers a synchronous pipeline run. Concurrent runs are not
// guarded against; this endpoint is for operator use, not scheduling.
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Run(r.Context())
	if err != nil {
		h.logger.Error("Pipeline run via API failed",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.PipelineError(err)))
		return
	}

	render.JSON(w, r, &RunResponse{Success: true, Run: result})
}
