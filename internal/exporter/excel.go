package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"hrpulse/internal/kpi"
)

// WriteWorkbook exports every KPI Gold table into one Excel workbook, one
// sheet per KPI. KPIs whose table is missing (for example after an isolated
// aggregation failure) are skipped with a warning.
func (e *Exporter) WriteWorkbook(ctx context.Context, specs []kpi.Spec, filePath string) error {
	f := excelize.NewFile()
	defer f.Close()

	written := 0
	for _, spec := range specs {
		data, err := e.db.QueryTable(ctx, spec.Table)
		if err != nil {
			e.logger.Warn("Skipping KPI sheet",
				slog.String("kpi", spec.Name),
				slog.String("error", err.Error()))
			continue
		}

		sheet := spec.Name
		if written == 0 {
			// Rename the default sheet instead of leaving an empty one.
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
			}
		}

		header := make([]any, len(data.Columns))
		for i, c := range data.Columns {
			header[i] = c
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header of %s: %w", sheet, err)
		}

		for i, row := range data.Rows {
			cells := make([]any, len(row))
			for j, cell := range row {
				cells[j] = excelCell(cell)
			}
			addr, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return fmt.Errorf("failed to address row %d of %s: %w", i, sheet, err)
			}
			if err := f.SetSheetRow(sheet, addr, &cells); err != nil {
				return fmt.Errorf("failed to write row %d of %s: %w", i, sheet, err)
			}
		}
		written++
	}

	if written == 0 {
		return fmt.Errorf("no KPI tables available to export")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Exported KPI workbook",
		slog.String("file", filePath),
		slog.Int("sheets", written))
	return nil
}

// excelCell converts a database value into something excelize can write.
func excelCell(v any) any {
	if t, ok := v.(time.Time); ok {
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	}
	return v
}
