package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrpulse/internal/extract"
)

var timesheetColumns = []string{
	"client_employee_id", "punch_apply_date",
	"scheduled_start_datetime", "scheduled_end_datetime",
	"punch_in_datetime", "punch_out_datetime", "hours_worked",
}

// punchRow builds a raw timesheet row for a 09:00-17:00 schedule on the given
// date.
func punchRow(id, date, punchIn, punchOut, hours string) []string {
	return []string{
		id, date,
		date + " 09:00:00", date + " 17:00:00",
		punchIn, punchOut, hours,
	}
}

func TestTimesheetsLatenessFlags(t *testing.T) {
	// Punch-ins 6, 10 and -2 minutes relative to the 09:00 schedule with a
	// 5 minute grace period: the first two are late, the third is not.
	rs := &extract.RowSet{
		Columns: timesheetColumns,
		Rows: [][]string{
			punchRow("E001", "2024-02-01", "2024-02-01 09:06:00", "2024-02-01 17:00:00", "7.9"),
			punchRow("E001", "2024-02-02", "2024-02-02 09:10:00", "2024-02-02 17:00:00", "7.83"),
			punchRow("E001", "2024-02-03", "2024-02-03 08:58:00", "2024-02-03 17:00:00", "8.03"),
		},
	}

	tr := newTestTransformer(t)
	punches, report, err := tr.Timesheets(rs)
	require.NoError(t, err)
	require.Len(t, punches, 3)

	assert.InDelta(t, 6, punches[0].MinutesLate, 0.001)
	assert.True(t, punches[0].IsLate)
	assert.InDelta(t, 10, punches[1].MinutesLate, 0.001)
	assert.True(t, punches[1].IsLate)
	assert.InDelta(t, -2, punches[2].MinutesLate, 0.001)
	assert.False(t, punches[2].IsLate)

	assert.Equal(t, 3, report.RowsOut)
	assert.Zero(t, report.ParseFailures)
}

func TestTimesheetsEarlyDepartureAndOvertime(t *testing.T) {
	rs := &extract.RowSet{
		Columns: timesheetColumns,
		Rows: [][]string{
			// Left 20 minutes before scheduled end.
			punchRow("E001", "2024-02-01", "2024-02-01 09:00:00", "2024-02-01 16:40:00", "7.67"),
			// 9.5 hours worked: overtime, outside the normal band.
			punchRow("E001", "2024-02-02", "2024-02-02 09:00:00", "2024-02-02 18:30:00", "9.5"),
			// Exactly 8 hours: normal work, no overtime.
			punchRow("E001", "2024-02-03", "2024-02-03 09:00:00", "2024-02-03 17:00:00", "8"),
		},
	}

	tr := newTestTransformer(t)
	punches, _, err := tr.Timesheets(rs)
	require.NoError(t, err)
	require.Len(t, punches, 3)

	assert.True(t, punches[0].IsEarly)
	assert.InDelta(t, 20, punches[0].MinutesEarly, 0.001)
	assert.False(t, punches[0].IsOvertime)

	assert.True(t, punches[1].IsOvertime)
	assert.False(t, punches[1].IsNormalWork)
	assert.False(t, punches[1].IsEarly)

	assert.False(t, punches[2].IsOvertime)
	assert.True(t, punches[2].IsNormalWork)
}

func TestTimesheetsInvalidHoursFlaggedNotDropped(t *testing.T) {
	rs := &extract.RowSet{
		Columns: timesheetColumns,
		Rows: [][]string{
			punchRow("E001", "2024-02-01", "2024-02-01 09:00:00", "2024-02-01 17:00:00", "30"),
			punchRow("E001", "2024-02-02", "2024-02-02 09:00:00", "2024-02-02 17:00:00", "-1"),
			punchRow("E001", "2024-02-03", "2024-02-03 09:00:00", "2024-02-03 17:00:00", "8"),
		},
	}

	tr := newTestTransformer(t)
	punches, report, err := tr.Timesheets(rs)
	require.NoError(t, err)

	require.Len(t, punches, 3)
	assert.False(t, punches[0].IsValidHours)
	assert.False(t, punches[1].IsValidHours)
	assert.True(t, punches[2].IsValidHours)
	assert.Equal(t, 2, report.InvalidHours)
	assert.Equal(t, 3, report.RowsOut)
}

func TestTimesheetsDeduplicateByEmployeeAndPunchIn(t *testing.T) {
	row := punchRow("E001", "2024-02-01", "2024-02-01 09:00:00", "2024-02-01 17:00:00", "8")
	other := punchRow("E002", "2024-02-01", "2024-02-01 09:00:00", "2024-02-01 17:00:00", "8")

	rs := &extract.RowSet{
		Columns: timesheetColumns,
		Rows:    [][]string{row, row, other},
	}

	tr := newTestTransformer(t)
	punches, report, err := tr.Timesheets(rs)
	require.NoError(t, err)

	// Same punch-in for a different employee is not a duplicate.
	require.Len(t, punches, 2)
	assert.Equal(t, 1, report.DuplicatesDropped)
}

func TestTimesheetsDropsUnparsableTimestamps(t *testing.T) {
	rs := &extract.RowSet{
		Columns: timesheetColumns,
		Rows: [][]string{
			punchRow("E001", "2024-02-01", "not-a-time", "2024-02-01 17:00:00", "8"),
			punchRow("E002", "2024-02-01", "", "2024-02-01 17:00:00", "8"),
			punchRow("E003", "2024-02-01", "2024-02-01 09:00:00", "2024-02-01 17:00:00", "8"),
		},
	}

	tr := newTestTransformer(t)
	punches, report, err := tr.Timesheets(rs)
	require.NoError(t, err)

	require.Len(t, punches, 1)
	assert.Equal(t, "E003", punches[0].EmployeeID)
	assert.Equal(t, 2, report.ParseFailures)
}

func TestTimesheetsDropsUnparsableHours(t *testing.T) {
	rs := &extract.RowSet{
		Columns: timesheetColumns,
		Rows: [][]string{
			punchRow("E001", "2024-02-01", "2024-02-01 09:00:00", "2024-02-01 17:00:00", "eight"),
		},
	}

	tr := newTestTransformer(t)
	punches, report, err := tr.Timesheets(rs)
	require.NoError(t, err)
	assert.Empty(t, punches)
	assert.Equal(t, 1, report.ParseFailures)
}

func TestTimesheetsMissingRequiredColumn(t *testing.T) {
	rs := &extract.RowSet{
		Columns: []string{"client_employee_id", "hours_worked"},
		Rows:    [][]string{{"E001", "8"}},
	}

	tr := newTestTransformer(t)
	_, _, err := tr.Timesheets(rs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "punch_apply_date")
}

func TestDatasetReportDroppedRate(t *testing.T) {
	r := DatasetReport{RowsIn: 10, RowsOut: 8, DuplicatesDropped: 1, ParseFailures: 1}
	assert.InDelta(t, 0.2, r.DroppedRate(), 0.001)

	empty := DatasetReport{}
	assert.Zero(t, empty.DroppedRate())
}
