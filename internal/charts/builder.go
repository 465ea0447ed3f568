// Package charts produces render-ready chart configurations from the Gold
// KPI tables. Building is pure presentation: no computation beyond label
// formatting and value coercion happens here.
package charts

import (
	"fmt"
	"strconv"
	"time"

	"hrpulse/internal/kpi"
	"hrpulse/internal/storage"
)

// Default color palette for chart series.
var defaultColors = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Point is one labeled value on a series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a named sequence of points.
type Series struct {
	Name  string  `json:"name"`
	Data  []Point `json:"data"`
	Color string  `json:"color,omitempty"`
}

// Config is a render-ready chart description.
type Config struct {
	ChartType  string   `json:"chart_type"`
	Title      string   `json:"title"`
	XAxis      string   `json:"x_axis"`
	YAxis      string   `json:"y_axis"`
	ShowLegend bool     `json:"show_legend"`
	ShowGrid   bool     `json:"show_grid"`
	Series     []Series `json:"series"`
	Colors     []string `json:"colors"`
}

// Build produces a chart config for one KPI from its Gold table rows, using
// the spec's chart hints to pick the label and value columns.
func Build(spec kpi.Spec, data *storage.TableData) (*Config, error) {
	xIdx, yIdx := -1, -1
	for i, c := range data.Columns {
		switch c {
		case spec.XColumn:
			xIdx = i
		case spec.YColumn:
			yIdx = i
		}
	}
	if xIdx < 0 || yIdx < 0 {
		return nil, fmt.Errorf("kpi %s: table %s is missing chart columns %s/%s",
			spec.Name, spec.Table, spec.XColumn, spec.YColumn)
	}

	points := make([]Point, 0, len(data.Rows))
	for _, row := range data.Rows {
		value, ok := coerceValue(row[yIdx])
		if !ok {
			continue
		}
		points = append(points, Point{
			Label: formatLabel(row[xIdx]),
			Value: value,
		})
	}

	cfg := &Config{
		ChartType:  spec.ChartType,
		Title:      spec.Title,
		XAxis:      spec.XColumn,
		YAxis:      spec.YColumn,
		ShowLegend: true,
		ShowGrid:   spec.ChartType != "pie",
		Series: []Series{{
			Name: spec.Title,
			Data: points,
		}},
	}
	cfg.Colors = assignColors(len(cfg.Series))
	return cfg, nil
}

// formatLabel renders a label cell; dates collapse to day precision and
// month-truncated dates read naturally on an axis.
func formatLabel(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// coerceValue turns a numeric cell into a float64.
func coerceValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func assignColors(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = defaultColors[i%len(defaultColors)]
	}
	return colors
}
