// Package pipeline sequences the batch run: Extract, Bronze, Transform,
// Silver, KPI aggregation. Stages run strictly in order; a fatal stage
// failure aborts the remaining stages and leaves previously committed stage
// tables in place. Row-level problems never abort the run; they end up in
// the quality report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"hrpulse/internal/config"
	"hrpulse/internal/extract"
	"hrpulse/internal/infrastructure"
	"hrpulse/internal/kpi"
	"hrpulse/internal/storage"
	"hrpulse/internal/transform"
)

// StageResult records the per-table row counts and timing of one stage.
type StageResult struct {
	Stage    string           `json:"stage"`
	Rows     map[string]int64 `json:"rows,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	ID          string                   `json:"id"`
	StartedAt   time.Time                `json:"started_at"`
	FinishedAt  time.Time                `json:"finished_at"`
	Stages      []StageResult            `json:"stages"`
	Quality     *transform.QualityReport `json:"quality,omitempty"`
	KPIs        []kpi.Result             `json:"kpis,omitempty"`
	KPIFailures int                      `json:"kpi_failures"`
}

// Pipeline orchestrates one run over the configured input directory and
// database file.
type Pipeline struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *infrastructure.Metrics
	db      *storage.DB
}

// New creates a Pipeline. Metrics may be nil.
func New(cfg *config.Config, logger *slog.Logger, metrics *infrastructure.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: logger, metrics: metrics}
}

// WithDB makes the pipeline reuse an already-open database handle instead of
// opening and closing its own. DuckDB holds an exclusive file lock, so a
// process that keeps the database open (the web server) must share its
// handle with triggered runs.
func (p *Pipeline) WithDB(db *storage.DB) *Pipeline {
	p.db = db
	return p
}

// Run executes the full pipeline. The database connection is opened once and
// released when the run completes or fails.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	ctx = infrastructure.WithRunID(ctx, result.ID)
	logger := p.logger.With(slog.String("run_id", result.ID))

	logger.InfoContext(ctx, "Pipeline run started",
		slog.String("raw_dir", p.cfg.Paths.RawDir),
		slog.String("database", p.cfg.Paths.DatabasePath))

	err := p.run(ctx, logger, result)
	result.FinishedAt = time.Now()

	if err != nil {
		p.metrics.CountRun(ctx, "failed")
		logger.ErrorContext(ctx, "Pipeline run failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
		return result, err
	}

	p.metrics.CountRun(ctx, "succeeded")
	logger.InfoContext(ctx, "Pipeline run completed",
		slog.Int("kpi_failures", result.KPIFailures),
		slog.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, result *RunResult) error {
	// Stage 1: extract.
	started := time.Now()
	employeeFile, timesheetFiles, err := p.discoverInputs()
	if err != nil {
		return fmt.Errorf("extract stage: %w", err)
	}

	extractor := extract.New(p.cfg.Pipeline.DelimiterRune(), logger)
	rawEmployees, err := extractor.ExtractEmployees(employeeFile)
	if err != nil {
		return fmt.Errorf("extract stage: %w", err)
	}
	rawTimesheets, err := extractor.ExtractTimesheets(timesheetFiles)
	if err != nil {
		return fmt.Errorf("extract stage: %w", err)
	}
	result.Stages = append(result.Stages, StageResult{
		Stage: "extract",
		Rows: map[string]int64{
			"employees":  int64(len(rawEmployees.Rows)),
			"timesheets": int64(len(rawTimesheets.Rows)),
		},
		Duration: time.Since(started),
	})

	db := p.db
	if db == nil {
		var err error
		db, err = storage.Open(p.cfg.Paths.DatabasePath, logger)
		if err != nil {
			return fmt.Errorf("bronze stage: %w", err)
		}
		defer db.Close()
	}

	// Stage 2: bronze load.
	started = time.Now()
	bronzeRows := make(map[string]int64, 2)
	for _, load := range []struct {
		table string
		rs    *extract.RowSet
	}{
		{storage.TableBronzeEmployees, rawEmployees},
		{storage.TableBronzeTimesheets, rawTimesheets},
	} {
		n, err := db.ReplaceRaw(ctx, load.table, load.rs)
		if err != nil {
			return fmt.Errorf("bronze stage: %w", err)
		}
		bronzeRows[load.table] = n
		p.metrics.CountRows(ctx, load.table, n)
	}
	result.Stages = append(result.Stages, StageResult{
		Stage: "bronze", Rows: bronzeRows, Duration: time.Since(started),
	})

	// Stage 3: transform.
	started = time.Now()
	transformer := transform.New(p.cfg.Pipeline, logger)
	employees, empReport, err := transformer.Employees(rawEmployees)
	if err != nil {
		return fmt.Errorf("transform stage: %w", err)
	}
	punches, tsReport, err := transformer.Timesheets(rawTimesheets)
	if err != nil {
		return fmt.Errorf("transform stage: %w", err)
	}
	result.Quality = &transform.QualityReport{Employees: empReport, Timesheets: tsReport}
	result.Quality.LogSummary(logger)
	p.countDropped(ctx, empReport)
	p.countDropped(ctx, tsReport)
	result.Stages = append(result.Stages, StageResult{
		Stage: "transform",
		Rows: map[string]int64{
			"employees":  int64(len(employees)),
			"timesheets": int64(len(punches)),
		},
		Duration: time.Since(started),
	})

	// Stage 4: silver load.
	started = time.Now()
	silverRows := make(map[string]int64, 2)
	n, err := db.ReplaceEmployees(ctx, employees)
	if err != nil {
		return fmt.Errorf("silver stage: %w", err)
	}
	silverRows[storage.TableSilverEmployees] = n
	p.metrics.CountRows(ctx, storage.TableSilverEmployees, n)

	n, err = db.ReplaceTimesheets(ctx, punches)
	if err != nil {
		return fmt.Errorf("silver stage: %w", err)
	}
	silverRows[storage.TableSilverTimesheets] = n
	p.metrics.CountRows(ctx, storage.TableSilverTimesheets, n)
	result.Stages = append(result.Stages, StageResult{
		Stage: "silver", Rows: silverRows, Duration: time.Since(started),
	})

	// Stage 5: KPI aggregation. Individual KPI failures are isolated:
	// they are logged and counted, but the run still completes.
	started = time.Now()
	aggregator := kpi.NewAggregator(db, kpi.Options{
		EarlyAttritionDays: p.cfg.Pipeline.EarlyAttritionDays,
		RollingWindowRows:  p.cfg.Pipeline.RollingWindowRows,
	}, logger)

	results, aggErr := aggregator.Run(ctx)
	result.KPIs = results
	goldRows := make(map[string]int64, len(results))
	for _, r := range results {
		if r.Err != nil {
			result.KPIFailures++
			p.metrics.CountKPIFailure(ctx, r.Table)
			continue
		}
		goldRows[r.Table] = r.Rows
		p.metrics.CountRows(ctx, r.Table, r.Rows)
	}
	if aggErr != nil {
		logger.WarnContext(ctx, "Some KPI aggregations failed",
			slog.Int("failed", result.KPIFailures),
			slog.String("error", aggErr.Error()))
	}
	result.Stages = append(result.Stages, StageResult{
		Stage: "gold", Rows: goldRows, Duration: time.Since(started),
	})

	return nil
}

// discoverInputs resolves the employee file and the ordered timesheet files
// from the raw directory globs.
func (p *Pipeline) discoverInputs() (string, []string, error) {
	employeeMatches, err := filepath.Glob(filepath.Join(p.cfg.Paths.RawDir, p.cfg.Pipeline.EmployeeGlob))
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad employee glob: %v", extract.ErrSourceUnreadable, err)
	}
	if len(employeeMatches) == 0 {
		return "", nil, fmt.Errorf("%w: no employee file matching %s in %s",
			extract.ErrSourceUnreadable, p.cfg.Pipeline.EmployeeGlob, p.cfg.Paths.RawDir)
	}
	sort.Strings(employeeMatches)

	timesheetMatches, err := filepath.Glob(filepath.Join(p.cfg.Paths.RawDir, p.cfg.Pipeline.TimesheetGlob))
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad timesheet glob: %v", extract.ErrSourceUnreadable, err)
	}
	if len(timesheetMatches) == 0 {
		return "", nil, fmt.Errorf("%w: no timesheet files matching %s in %s",
			extract.ErrSourceUnreadable, p.cfg.Pipeline.TimesheetGlob, p.cfg.Paths.RawDir)
	}
	sort.Strings(timesheetMatches)

	return employeeMatches[0], timesheetMatches, nil
}

// countDropped feeds the transform drop counters into metrics.
func (p *Pipeline) countDropped(ctx context.Context, r transform.DatasetReport) {
	p.metrics.CountDropped(ctx, "duplicate", int64(r.DuplicatesDropped))
	p.metrics.CountDropped(ctx, "parse_failure", int64(r.ParseFailures))
	p.metrics.CountDropped(ctx, "constraint_violation", int64(r.ConstraintViolations))
	p.metrics.CountDropped(ctx, "invalid_hours", int64(r.InvalidHours))
}
