package transform

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrpulse/internal/config"
	"hrpulse/internal/extract"
	"hrpulse/pkg/contracts/domain"
)

var employeeColumns = []string{
	"client_employee_id", "first_name", "last_name",
	"department_name", "hire_date", "term_date", "dob",
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func newTestTransformer(t *testing.T) *Transformer {
	t.Helper()
	return New(config.Default().Pipeline, nil).WithNow(fixedNow)
}

func TestEmployeesCleansAndDerives(t *testing.T) {
	rs := &extract.RowSet{
		Columns: employeeColumns,
		Rows: [][]string{
			{"E001", "Alice", "Nguyen", "Engineering", "2024-01-01", "", "1990-05-20"},
			{"E002", "Bob", "Smith", "Sales", "2024-02-01", "2024-03-15", ""},
		},
	}

	tr := newTestTransformer(t)
	employees, report, err := tr.Employees(rs)
	require.NoError(t, err)
	require.Len(t, employees, 2)

	alice := employees[0]
	assert.Equal(t, "E001", alice.EmployeeID)
	assert.Equal(t, "Alice Nguyen", alice.FullName)
	assert.Equal(t, "Engineering", alice.Department)
	assert.True(t, alice.IsActive)
	assert.Nil(t, alice.TerminationDate)
	require.NotNil(t, alice.BirthDate)
	// Active employee: tenure runs from hire to the injected clock.
	assert.Equal(t, 152, alice.TenureDays)

	assert.False(t, alice.Terminated())

	bob := employees[1]
	assert.False(t, bob.IsActive)
	assert.True(t, bob.Terminated())
	require.NotNil(t, bob.TerminationDate)
	assert.Equal(t, 43, bob.TenureDays)

	assert.Equal(t, 2, report.RowsIn)
	assert.Equal(t, 2, report.RowsOut)
	assert.Zero(t, report.DuplicatesDropped)
	assert.Zero(t, report.ParseFailures)
}

func TestEmployeesDeduplicateFirstWins(t *testing.T) {
	rs := &extract.RowSet{
		Columns: employeeColumns,
		Rows: [][]string{
			{"E001", "Alice", "Nguyen", "Engineering", "2024-01-01", "", ""},
			{"E001", "Alicia", "Nguyen", "Sales", "2023-01-01", "", ""},
			{"E002", "Bob", "Smith", "Sales", "2024-02-01", "", ""},
		},
	}

	tr := newTestTransformer(t)
	employees, report, err := tr.Employees(rs)
	require.NoError(t, err)
	require.Len(t, employees, 2)

	assert.Equal(t, "Alice Nguyen", employees[0].FullName)
	assert.Equal(t, "Engineering", employees[0].Department)
	assert.Equal(t, 1, report.DuplicatesDropped)
}

func TestEmployeesIdempotent(t *testing.T) {
	rs := &extract.RowSet{
		Columns: employeeColumns,
		Rows: [][]string{
			{"E001", "Alice", "Nguyen", "Engineering", "2024-01-01", "", ""},
			{"E001", "Alice", "Nguyen", "Engineering", "2024-01-01", "", ""},
			{"E002", "Bob", "Smith", "Sales", "2024-02-01", "2024-03-15", ""},
		},
	}

	tr := newTestTransformer(t)
	first, _, err := tr.Employees(rs)
	require.NoError(t, err)

	// Feed the cleaned output back through: row count must not change.
	again, report, err := tr.Employees(roundTrip(first))
	require.NoError(t, err)
	assert.Len(t, again, len(first))
	assert.Zero(t, report.DuplicatesDropped)
	assert.Zero(t, report.ParseFailures)
}

// roundTrip serializes cleaned employees back into a raw row set.
func roundTrip(employees []domain.Employee) *extract.RowSet {
	rs := &extract.RowSet{Columns: employeeColumns}
	for _, e := range employees {
		term := ""
		if e.TerminationDate != nil {
			term = e.TerminationDate.Format("2006-01-02")
		}
		rs.Rows = append(rs.Rows, []string{
			e.EmployeeID, e.FullName, "", e.Department,
			e.HireDate.Format("2006-01-02"), term, "",
		})
	}
	return rs
}

func TestEmployeesDropsUnparsableHireDate(t *testing.T) {
	rs := &extract.RowSet{
		Columns: employeeColumns,
		Rows: [][]string{
			{"E001", "Alice", "Nguyen", "Engineering", "not-a-date", "", ""},
			{"E002", "Bob", "Smith", "Sales", "", "", ""},
			{"E003", "Cara", "Jones", "Sales", "2024-02-01", "", ""},
		},
	}

	tr := newTestTransformer(t)
	employees, report, err := tr.Employees(rs)
	require.NoError(t, err)

	require.Len(t, employees, 1)
	assert.Equal(t, "E003", employees[0].EmployeeID)
	assert.Equal(t, 2, report.ParseFailures)
}

func TestEmployeesMalformedOptionalDateNullsField(t *testing.T) {
	rs := &extract.RowSet{
		Columns: employeeColumns,
		Rows: [][]string{
			{"E001", "Alice", "Nguyen", "Engineering", "2024-01-01", "garbage", "also-garbage"},
		},
	}

	tr := newTestTransformer(t)
	employees, report, err := tr.Employees(rs)
	require.NoError(t, err)

	require.Len(t, employees, 1)
	assert.Nil(t, employees[0].TerminationDate)
	assert.Nil(t, employees[0].BirthDate)
	assert.True(t, employees[0].IsActive)
	assert.Equal(t, 2, report.ParseFailures)
}

func TestEmployeesTerminationBeforeHireClampsTenure(t *testing.T) {
	rs := &extract.RowSet{
		Columns: employeeColumns,
		Rows: [][]string{
			{"E001", "Alice", "Nguyen", "Engineering", "2024-03-01", "2024-01-01", ""},
		},
	}

	tr := newTestTransformer(t)
	employees, report, err := tr.Employees(rs)
	require.NoError(t, err)

	require.Len(t, employees, 1)
	assert.Equal(t, 0, employees[0].TenureDays)
	assert.True(t, employees[0].TermBeforeHire)
	assert.Equal(t, 1, report.ConstraintViolations)
}

func TestEmployeesMissingRequiredColumn(t *testing.T) {
	rs := &extract.RowSet{
		Columns: []string{"client_employee_id", "first_name"},
		Rows:    [][]string{{"E001", "Alice"}},
	}

	tr := newTestTransformer(t)
	_, _, err := tr.Employees(rs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hire_date")
}

func TestEmployeesNeverNegativeTenure(t *testing.T) {
	tr := newTestTransformer(t)
	for i, row := range [][]string{
		{"E001", "A", "B", "X", "2024-01-01", "2023-12-31", ""},
		{"E002", "A", "B", "X", "2024-01-01", "2024-01-01", ""},
		{"E003", "A", "B", "X", "2030-01-01", "", ""},
	} {
		rs := &extract.RowSet{Columns: employeeColumns, Rows: [][]string{row}}
		employees, _, err := tr.Employees(rs)
		require.NoError(t, err)
		require.Len(t, employees, 1)
		assert.GreaterOrEqual(t, employees[0].TenureDays, 0, fmt.Sprintf("row %d", i))
	}
}
