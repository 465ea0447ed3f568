package kpi

import "fmt"

// Spec describes one KPI: the Gold table it owns, the aggregation that
// builds it, and presentation hints for the chart builder.
type Spec struct {
	Name      string `json:"name"`
	Table     string `json:"table"`
	Title     string `json:"title"`
	ChartType string `json:"chart_type"`
	XColumn   string `json:"x_column"`
	YColumn   string `json:"y_column"`

	query string
}

// Options are the tunable aggregation parameters.
type Options struct {
	// EarlyAttritionDays is the inclusive tenure boundary below which a
	// terminated employee counts as early attrition.
	EarlyAttritionDays int
	// RollingWindowRows is the row-count window of the rolling average,
	// inclusive of the current row.
	RollingWindowRows int
}

// Definitions returns the nine KPI specs. Each aggregation is a pure
// function of the current silver snapshot; none depends on another KPI's
// output, so order is irrelevant and failures can be isolated.
func Definitions(opts Options) []Spec {
	return []Spec{
		{
			Name:      "active_headcount",
			Table:     "kpi_active_headcount",
			Title:     "Active Headcount Over Time",
			ChartType: "line",
			XColumn:   "month",
			YColumn:   "active_headcount",
			// Employee-level window-join against the distinct months
			// observed in timesheets; the month-end activity date is the
			// last punch date within the month. Deliberately not a
			// timesheet row count. The join is LEFT so an observed month
			// with nobody active still appears with a zero count.
			query: `
				WITH months AS (
					SELECT DATE_TRUNC('month', work_date) AS month,
					       MAX(work_date) AS month_end
					FROM silver_timesheets
					GROUP BY 1
				)
				SELECT m.month,
				       COUNT(DISTINCT e.employee_id) AS active_headcount
				FROM months m
				LEFT JOIN silver_employees e
				  ON e.hire_date <= m.month_end
				 AND (e.termination_date IS NULL OR e.termination_date > m.month_end)
				GROUP BY m.month
				ORDER BY m.month`,
		},
		{
			Name:      "turnover",
			Table:     "kpi_turnover",
			Title:     "Monthly Turnover",
			ChartType: "line",
			XColumn:   "month",
			YColumn:   "terminations",
			query: `
				SELECT DATE_TRUNC('month', termination_date) AS month,
				       COUNT(*) AS terminations
				FROM silver_employees
				WHERE termination_date IS NOT NULL
				GROUP BY 1
				ORDER BY 1`,
		},
		{
			Name:      "avg_tenure",
			Table:     "kpi_avg_tenure",
			Title:     "Average Tenure by Department",
			ChartType: "bar",
			XColumn:   "department",
			YColumn:   "avg_tenure_years",
			query: `
				SELECT department,
				       ROUND(AVG(tenure_days) / 365.25, 2) AS avg_tenure_years,
				       COUNT(*) AS employee_count
				FROM silver_employees
				WHERE department IS NOT NULL AND department <> ''
				GROUP BY department
				ORDER BY avg_tenure_years DESC`,
		},
		{
			Name:      "avg_working_hours",
			Table:     "kpi_avg_working_hours",
			Title:     "Average Weekly Working Hours",
			ChartType: "line",
			XColumn:   "week",
			YColumn:   "avg_hours",
			// Scoped to normal-work rows only: the KPI is a baseline of
			// regular hours, so overtime and short days are excluded.
			query: `
				SELECT employee_id,
				       DATE_TRUNC('week', work_date) AS week,
				       ROUND(AVG(hours_worked), 2) AS avg_hours,
				       COUNT(*) AS days_worked
				FROM silver_timesheets
				WHERE is_normal_work
				GROUP BY employee_id, DATE_TRUNC('week', work_date)
				ORDER BY week, employee_id`,
		},
		{
			Name:      "late_arrivals",
			Table:     "kpi_late_arrivals",
			Title:     "Late Arrivals by Employee",
			ChartType: "bar",
			XColumn:   "employee_id",
			YColumn:   "late_count",
			query: `
				SELECT employee_id,
				       COUNT(*) AS late_count,
				       ROUND(AVG(minutes_late), 2) AS avg_minutes_late
				FROM silver_timesheets
				WHERE is_late
				GROUP BY employee_id
				ORDER BY late_count DESC`,
		},
		{
			Name:      "early_departures",
			Table:     "kpi_early_departures",
			Title:     "Early Departures by Employee",
			ChartType: "bar",
			XColumn:   "employee_id",
			YColumn:   "early_count",
			query: `
				SELECT employee_id,
				       COUNT(*) AS early_count,
				       ROUND(AVG(minutes_early), 2) AS avg_minutes_early
				FROM silver_timesheets
				WHERE is_early
				GROUP BY employee_id
				ORDER BY early_count DESC`,
		},
		{
			Name:      "overtime",
			Table:     "kpi_overtime",
			Title:     "Overtime Days by Employee",
			ChartType: "bar",
			XColumn:   "employee_id",
			YColumn:   "overtime_days",
			query: `
				SELECT employee_id,
				       COUNT(*) AS overtime_days,
				       ROUND(SUM(hours_worked - 8), 2) AS total_extra_hours
				FROM silver_timesheets
				WHERE is_overtime AND is_valid_hours
				GROUP BY employee_id
				ORDER BY overtime_days DESC`,
		},
		{
			Name:      "rolling_avg_hours",
			Table:     "kpi_rolling_avg_hours",
			Title:     "Rolling 30-Day Average Hours",
			ChartType: "line",
			XColumn:   "work_date",
			YColumn:   "rolling_avg_hours",
			// Row-count window, not calendar-day: the trailing N rows by
			// date order per employee, inclusive of the current row.
			query: fmt.Sprintf(`
				SELECT employee_id,
				       work_date,
				       ROUND(AVG(hours_worked) OVER (
				           PARTITION BY employee_id
				           ORDER BY work_date
				           ROWS BETWEEN %d PRECEDING AND CURRENT ROW
				       ), 2) AS rolling_avg_hours
				FROM silver_timesheets
				WHERE is_valid_hours
				ORDER BY employee_id, work_date`, opts.RollingWindowRows-1),
		},
		{
			Name:      "attrition",
			Table:     "kpi_attrition",
			Title:     "Attrition Type",
			ChartType: "pie",
			XColumn:   "attrition_type",
			YColumn:   "employee_count",
			// Total partition of terminated employees: every one lands in
			// exactly one class.
			query: fmt.Sprintf(`
				SELECT CASE WHEN tenure_days <= %d
				            THEN 'Early Attrition'
				            ELSE 'Other'
				       END AS attrition_type,
				       COUNT(*) AS employee_count
				FROM silver_employees
				WHERE termination_date IS NOT NULL
				GROUP BY 1
				ORDER BY 1`, opts.EarlyAttritionDays),
		},
	}
}

// Lookup finds a KPI spec by name.
func Lookup(specs []Spec, name string) (Spec, bool) {
	for _, s := range specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
