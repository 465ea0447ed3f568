// Package exporter writes the Gold KPI tables out as CSV files and Excel
// workbooks for downstream consumers that do not query the database.
package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hrpulse/internal/storage"
)

// Exporter reads Gold tables and renders them to files.
type Exporter struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates an Exporter.
func New(db *storage.DB, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		db:     db,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// WriteCSV exports one table to a CSV file with a UTF-8 BOM so spreadsheet
// tools recognize the encoding.
func (e *Exporter) WriteCSV(ctx context.Context, table, filePath string) error {
	data, err := e.db.QueryTable(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", table, err)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(data.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range data.Rows {
		record := make([]string, len(row))
		for j, cell := range row {
			record[j] = formatCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := writer.Error(); err != nil {
		return err
	}

	e.logger.Info("Exported table to CSV",
		slog.String("table", table),
		slog.String("file", filePath),
		slog.Int("rows", len(data.Rows)))
	return nil
}

// formatCell renders a database value for a text cell.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
