package transform

import (
	"fmt"
	"log/slog"
	"strings"

	"hrpulse/internal/extract"
	"hrpulse/pkg/contracts/domain"
)

// Raw employee extract column names after header normalization.
const (
	colEmployeeID = "client_employee_id"
	colFirstName  = "first_name"
	colLastName   = "last_name"
	colDepartment = "department_name"
	colHireDate   = "hire_date"
	colTermDate   = "term_date"
	colBirthDate  = "dob"
)

// Employees cleans the raw employee row set, in order: deduplicate by
// employee ID keeping the first occurrence, parse date fields dropping rows
// with an unparsable hire date, then derive is_active and tenure_days.
func (t *Transformer) Employees(rs *extract.RowSet) ([]domain.Employee, DatasetReport, error) {
	report := DatasetReport{Name: "employees", RowsIn: len(rs.Rows)}

	idx, err := requireColumns(rs, colEmployeeID, colHireDate)
	if err != nil {
		return nil, report, fmt.Errorf("employee extract: %w", err)
	}
	optIdx := optionalColumns(rs, colFirstName, colLastName, colDepartment, colTermDate, colBirthDate)

	now := t.now()
	seen := make(map[string]bool, len(rs.Rows))
	employees := make([]domain.Employee, 0, len(rs.Rows))

	for _, row := range rs.Rows {
		id := strings.TrimSpace(row[idx[colEmployeeID]])
		if id == "" {
			report.ParseFailures++
			continue
		}

		// First occurrence in input order wins; a different tie-break
		// would silently change headcount KPIs.
		if seen[id] {
			report.DuplicatesDropped++
			continue
		}
		seen[id] = true

		hireDate, ok, err := parseDate(row[idx[colHireDate]])
		if err != nil || !ok {
			report.ParseFailures++
			t.logger.Warn("Dropping employee row with unparsable hire date",
				slog.String("employee_id", id),
				slog.String("hire_date", row[idx[colHireDate]]))
			continue
		}

		emp := domain.Employee{
			EmployeeID: id,
			FullName:   joinName(cell(row, optIdx, colFirstName), cell(row, optIdx, colLastName)),
			Department: cell(row, optIdx, colDepartment),
			HireDate:   hireDate,
		}

		// Termination and birth dates are optional; a malformed value
		// nulls the field rather than dropping the row.
		if termDate, ok, err := parseDate(cell(row, optIdx, colTermDate)); err != nil {
			report.ParseFailures++
		} else if ok {
			emp.TerminationDate = &termDate
		}
		if birthDate, ok, err := parseDate(cell(row, optIdx, colBirthDate)); err != nil {
			report.ParseFailures++
		} else if ok {
			emp.BirthDate = &birthDate
		}

		emp.IsActive = !emp.Terminated()

		end := now
		if emp.TerminationDate != nil {
			end = *emp.TerminationDate
		}
		tenure := int(end.Sub(emp.HireDate).Hours() / 24)
		if tenure < 0 {
			// Termination before hire: keep the row, flag it, and clamp
			// so tenure aggregates stay non-negative.
			emp.TermBeforeHire = true
			report.ConstraintViolations++
			tenure = 0
		}
		emp.TenureDays = tenure

		employees = append(employees, emp)
	}

	report.RowsOut = len(employees)
	return employees, report, nil
}

// joinName combines the split name columns of the raw extract.
func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// requireColumns resolves mandatory columns, failing on absence.
func requireColumns(rs *extract.RowSet, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		i := rs.ColumnIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("missing required column %q", name)
		}
		idx[name] = i
	}
	return idx, nil
}

// optionalColumns resolves columns that may be absent from the extract.
func optionalColumns(rs *extract.RowSet, names ...string) map[string]int {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		if i := rs.ColumnIndex(name); i >= 0 {
			idx[name] = i
		}
	}
	return idx
}

// cell reads an optional column from a row, returning "" when absent.
func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
