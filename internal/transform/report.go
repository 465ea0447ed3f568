package transform

import "log/slog"

// DatasetReport summarizes what the transform stage did to one dataset.
// Row-level failures are recovered locally and counted here instead of
// propagating as errors.
type DatasetReport struct {
	Name                 string `json:"name"`
	RowsIn               int    `json:"rows_in"`
	RowsOut              int    `json:"rows_out"`
	DuplicatesDropped    int    `json:"duplicates_dropped"`
	ParseFailures        int    `json:"parse_failures"`
	ConstraintViolations int    `json:"constraint_violations"`
	InvalidHours         int    `json:"invalid_hours"`
}

// DroppedRate returns the fraction of input rows that did not survive.
func (r *DatasetReport) DroppedRate() float64 {
	if r.RowsIn == 0 {
		return 0
	}
	return float64(r.RowsIn-r.RowsOut) / float64(r.RowsIn)
}

// QualityReport is the run-level quality summary handed to the orchestrator.
type QualityReport struct {
	Employees  DatasetReport `json:"employees"`
	Timesheets DatasetReport `json:"timesheets"`
}

// LogSummary writes the per-dataset counters to the run logger.
func (q *QualityReport) LogSummary(logger *slog.Logger) {
	for _, r := range []DatasetReport{q.Employees, q.Timesheets} {
		logger.Info("Transform quality summary",
			slog.String("dataset", r.Name),
			slog.Int("rows_in", r.RowsIn),
			slog.Int("rows_out", r.RowsOut),
			slog.Int("duplicates_dropped", r.DuplicatesDropped),
			slog.Int("parse_failures", r.ParseFailures),
			slog.Int("constraint_violations", r.ConstraintViolations),
			slog.Int("invalid_hours", r.InvalidHours),
			slog.Float64("dropped_rate", r.DroppedRate()))
	}
}
