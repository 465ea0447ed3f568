// Package transform turns raw extracted row sets into the cleaned, typed
// silver-layer records: deduplication, temporal parsing, derived columns and
// anomaly flags. Row-level failures are dropped or flagged and counted in a
// QualityReport; only structural problems (a missing required column) are
// returned as errors.
package transform

import (
	"log/slog"
	"time"

	"hrpulse/internal/config"
)

// Transformer applies the cleaning rules with the configured thresholds.
type Transformer struct {
	cfg    config.PipelineConfig
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Transformer. The now function bounds tenure for still-active
// employees; tests override it for determinism.
func New(cfg config.PipelineConfig, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "transformer")),
		now:    time.Now,
	}
}

// WithNow overrides the clock used for tenure of active employees.
func (t *Transformer) WithNow(now func() time.Time) *Transformer {
	t.now = now
	return t
}
