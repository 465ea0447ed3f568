package transform

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"hrpulse/internal/extract"
	"hrpulse/pkg/contracts/domain"
)

// Raw timesheet extract column names after header normalization.
const (
	colPunchDate      = "punch_apply_date"
	colScheduledStart = "scheduled_start_datetime"
	colScheduledEnd   = "scheduled_end_datetime"
	colPunchIn        = "punch_in_datetime"
	colPunchOut       = "punch_out_datetime"
	colHoursWorked    = "hours_worked"
)

// Timesheets cleans the raw timesheet row set, in order: deduplicate by
// (employee ID, punch-in timestamp) keeping the first occurrence, parse all
// timestamp columns dropping rows where a scheduled or actual timestamp is
// unparsable, then derive the lateness, overtime and validity flags.
//
// Rows whose hours_worked is negative or above 24 are flagged invalid but
// kept; hours-based aggregates filter on the flag instead.
func (t *Transformer) Timesheets(rs *extract.RowSet) ([]domain.Punch, DatasetReport, error) {
	report := DatasetReport{Name: "timesheets", RowsIn: len(rs.Rows)}

	idx, err := requireColumns(rs, colEmployeeID, colPunchDate, colScheduledStart,
		colScheduledEnd, colPunchIn, colPunchOut, colHoursWorked)
	if err != nil {
		return nil, report, fmt.Errorf("timesheet extract: %w", err)
	}

	type punchKey struct {
		employeeID string
		punchIn    string
	}
	seen := make(map[punchKey]bool, len(rs.Rows))
	punches := make([]domain.Punch, 0, len(rs.Rows))

	for _, row := range rs.Rows {
		id := strings.TrimSpace(row[idx[colEmployeeID]])
		if id == "" {
			report.ParseFailures++
			continue
		}

		key := punchKey{employeeID: id, punchIn: strings.TrimSpace(row[idx[colPunchIn]])}
		if seen[key] {
			report.DuplicatesDropped++
			continue
		}
		seen[key] = true

		p := domain.Punch{EmployeeID: id}

		parseOK := true
		if p.WorkDate, _, err = parseDate(row[idx[colPunchDate]]); err != nil {
			parseOK = false
		}
		if p.ScheduledStart, _, err = parseTimestamp(row[idx[colScheduledStart]]); err != nil {
			parseOK = false
		}
		if p.ScheduledEnd, _, err = parseTimestamp(row[idx[colScheduledEnd]]); err != nil {
			parseOK = false
		}
		if p.PunchIn, _, err = parseTimestamp(row[idx[colPunchIn]]); err != nil {
			parseOK = false
		}
		if p.PunchOut, _, err = parseTimestamp(row[idx[colPunchOut]]); err != nil {
			parseOK = false
		}
		if !parseOK || p.WorkDate.IsZero() || p.ScheduledStart.IsZero() ||
			p.ScheduledEnd.IsZero() || p.PunchIn.IsZero() || p.PunchOut.IsZero() {
			report.ParseFailures++
			t.logger.Warn("Dropping timesheet row with unparsable timestamps",
				slog.String("employee_id", id),
				slog.String("punch_apply_date", row[idx[colPunchDate]]))
			continue
		}

		hours, err := strconv.ParseFloat(strings.TrimSpace(row[idx[colHoursWorked]]), 64)
		if err != nil {
			report.ParseFailures++
			continue
		}
		p.HoursWorked = hours

		p.MinutesLate = p.PunchIn.Sub(p.ScheduledStart).Minutes()
		p.MinutesEarly = p.ScheduledEnd.Sub(p.PunchOut).Minutes()
		p.IsLate = p.MinutesLate > t.cfg.GraceMinutes
		p.IsEarly = p.MinutesEarly > t.cfg.GraceMinutes
		p.IsOvertime = p.HoursWorked > t.cfg.OvertimeHours
		p.IsNormalWork = p.HoursWorked >= t.cfg.NormalMinHours && p.HoursWorked <= t.cfg.NormalMaxHours
		p.IsValidHours = p.HoursWorked >= 0 && p.HoursWorked <= 24
		if !p.IsValidHours {
			report.InvalidHours++
		}

		punches = append(punches, p)
	}

	report.RowsOut = len(punches)
	return punches, report, nil
}
