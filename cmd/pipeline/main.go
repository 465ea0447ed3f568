// Command pipeline runs the batch ETL end to end: raw CSV extracts in,
// bronze and silver stage tables, then the nine Gold KPI tables, all inside
// the local DuckDB database file. Optionally exports the Gold tables.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"hrpulse/internal/config"
	"hrpulse/internal/exporter"
	"hrpulse/internal/infrastructure"
	"hrpulse/internal/kpi"
	"hrpulse/internal/pipeline"
	"hrpulse/internal/storage"
	"hrpulse/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	rawDir := flag.String("raw", "", "override raw input directory")
	dbPath := flag.String("db", "", "override database file path")
	exportCSV := flag.Bool("export-csv", false, "export Gold tables to CSV after the run")
	exportXLSX := flag.Bool("export-xlsx", false, "export Gold tables to an Excel workbook after the run")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *rawDir != "" {
		cfg.Paths.RawDir = *rawDir
	}
	if *dbPath != "" {
		cfg.Paths.DatabasePath = *dbPath
	}

	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to create directories", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	metrics, err := infrastructure.InitializeMetrics(logger)
	if err != nil {
		logger.Warn("Failed to initialize metrics, continuing without", slog.String("error", err.Error()))
		metrics = nil
	}

	logger.Info("Starting batch run", slog.String("build", contracts.GetVersionString()))

	ctx := context.Background()
	result, err := pipeline.New(cfg, logger, metrics).Run(ctx)
	if err != nil {
		logger.Error("Pipeline failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, stage := range result.Stages {
		logger.Info("Stage summary",
			slog.String("stage", stage.Stage),
			slog.Any("rows", stage.Rows),
			slog.Duration("duration", stage.Duration))
	}

	if *exportCSV || *exportXLSX {
		if err := exportGold(ctx, cfg, logger, *exportCSV, *exportXLSX); err != nil {
			logger.Error("Export failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if result.KPIFailures > 0 {
		logger.Warn("Run completed with KPI failures",
			slog.Int("kpi_failures", result.KPIFailures))
		os.Exit(2)
	}
}

// exportGold reopens the database read side and writes the requested export
// formats into the export directory.
func exportGold(ctx context.Context, cfg *config.Config, logger *slog.Logger, asCSV, asXLSX bool) error {
	db, err := storage.Open(cfg.Paths.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	specs := kpi.Definitions(kpi.Options{
		EarlyAttritionDays: cfg.Pipeline.EarlyAttritionDays,
		RollingWindowRows:  cfg.Pipeline.RollingWindowRows,
	})
	exp := exporter.New(db, logger)

	if asCSV {
		for _, spec := range specs {
			path := filepath.Join(cfg.Paths.ExportDir, spec.Table+".csv")
			if err := exp.WriteCSV(ctx, spec.Table, path); err != nil {
				return err
			}
		}
	}
	if asXLSX {
		path := filepath.Join(cfg.Paths.ExportDir, "kpis.xlsx")
		if err := exp.WriteWorkbook(ctx, specs, path); err != nil {
			return err
		}
	}
	return nil
}
