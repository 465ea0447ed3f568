// Package kpi builds the nine Gold tables from the silver snapshot. Each
// aggregation replaces its own output table; a single KPI's failure is
// recorded and does not block the other eight.
package kpi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hrpulse/internal/storage"
)

// Result reports the outcome of one KPI aggregation.
type Result struct {
	Name  string `json:"name"`
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
	Err   error  `json:"-"`
}

// Aggregator runs the KPI queries against the database.
type Aggregator struct {
	db     *storage.DB
	specs  []Spec
	logger *slog.Logger
}

// NewAggregator creates an Aggregator with the given options.
func NewAggregator(db *storage.DB, opts Options, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		db:     db,
		specs:  Definitions(opts),
		logger: logger.With(slog.String("component", "aggregator")),
	}
}

// Specs returns the KPI definitions this aggregator runs.
func (a *Aggregator) Specs() []Spec {
	return a.specs
}

// Run executes every KPI aggregation. Failures are isolated per KPI: all
// nine are always attempted, and the joined error of the failed ones is
// returned alongside the per-KPI results.
func (a *Aggregator) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(a.specs))
	var failures []error

	for _, spec := range a.specs {
		res := Result{Name: spec.Name, Table: spec.Table}

		ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", spec.Table, spec.query)
		if err := a.db.Exec(ctx, ddl); err != nil {
			res.Err = fmt.Errorf("kpi %s: %w", spec.Name, err)
			failures = append(failures, res.Err)
			a.logger.Error("KPI aggregation failed",
				slog.String("kpi", spec.Name),
				slog.String("error", err.Error()))
			results = append(results, res)
			continue
		}

		rows, err := a.db.TableCount(ctx, spec.Table)
		if err != nil {
			res.Err = fmt.Errorf("kpi %s: %w", spec.Name, err)
			failures = append(failures, res.Err)
			results = append(results, res)
			continue
		}
		res.Rows = rows

		a.logger.Info("KPI table built",
			slog.String("kpi", spec.Name),
			slog.String("table", spec.Table),
			slog.Int64("rows", rows))
		results = append(results, res)
	}

	return results, errors.Join(failures...)
}
