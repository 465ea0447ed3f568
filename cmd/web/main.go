// Command web serves the read-only KPI query API over the Gold tables,
// along with a pipeline trigger endpoint and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrpulse/internal/config"
	"hrpulse/internal/infrastructure"
	"hrpulse/internal/kpi"
	"hrpulse/internal/pipeline"
	"hrpulse/internal/storage"
	transport "hrpulse/internal/transport/http"
	"hrpulse/pkg/contracts"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (env vars take precedence)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
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

	db, err := storage.Open(cfg.Paths.DatabasePath, logger)
	if err != nil {
		logger.Error("Failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	specs := kpi.Definitions(kpi.Options{
		EarlyAttritionDays: cfg.Pipeline.EarlyAttritionDays,
		RollingWindowRows:  cfg.Pipeline.RollingWindowRows,
	})
	p := pipeline.New(cfg, logger, metrics).WithDB(db)
	handler := transport.NewHandler(db, specs, p, metrics, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening",
			slog.String("build", contracts.GetVersionString()),
			slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", slog.String("error", err.Error()))
	}
	if metrics != nil {
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics shutdown failed", slog.String("error", err.Error()))
		}
	}
}
