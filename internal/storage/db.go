// Package storage owns the embedded DuckDB database file and the stage-table
// replacement semantics: every load is a full CREATE OR REPLACE TABLE, so a
// concurrent reader sees either the old or the new table, never a partial one.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"hrpulse/internal/extract"
	"hrpulse/pkg/contracts/domain"
)

// Stage table names.
const (
	TableBronzeEmployees  = "bronze_employees"
	TableBronzeTimesheets = "bronze_timesheets"
	TableSilverEmployees  = "silver_employees"
	TableSilverTimesheets = "silver_timesheets"
)

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// DB wraps the process-wide DuckDB connection. It is opened once per run and
// closed on completion or failure.
type DB struct {
	sql    *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the DuckDB database file. An empty path
// opens an in-memory database, used by tests.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	logger.Info("Database opened", slog.String("path", path))
	return &DB{
		sql:    db,
		path:   path,
		logger: logger.With(slog.String("component", "storage")),
	}, nil
}

// Close releases the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks database reachability, used by the health endpoint.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Exec runs a statement against the database.
func (d *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := d.sql.ExecContext(ctx, query, args...)
	return err
}

// ReplaceRaw persists an extracted row set verbatim as an all-VARCHAR bronze
// table, replacing any existing table of the same name. No validation is
// performed; bronze is a faithful mirror of input.
func (d *DB) ReplaceRaw(ctx context.Context, table string, rs *extract.RowSet) (int64, error) {
	if err := checkTableName(table); err != nil {
		return 0, err
	}

	cols := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		if !tableNameRe.MatchString(c) {
			return 0, fmt.Errorf("invalid column name %q for table %s", c, table)
		}
		cols[i] = fmt.Sprintf("%s VARCHAR", c)
	}
	ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", table, strings.Join(cols, ", "))

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		table, placeholders(len(rs.Columns)))

	rows := make([][]any, len(rs.Rows))
	for i, row := range rs.Rows {
		vals := make([]any, len(row))
		for j, cell := range row {
			vals[j] = cell
		}
		rows[i] = vals
	}

	return d.replaceTable(ctx, table, ddl, insert, rows)
}

// ReplaceEmployees persists the cleaned employee records as the silver
// employees table.
func (d *DB) ReplaceEmployees(ctx context.Context, employees []domain.Employee) (int64, error) {
	ddl := fmt.Sprintf(`CREATE OR REPLACE TABLE %s (
		employee_id VARCHAR NOT NULL,
		full_name VARCHAR,
		department VARCHAR,
		hire_date DATE NOT NULL,
		termination_date DATE,
		birth_date DATE,
		is_active BOOLEAN NOT NULL,
		tenure_days INTEGER NOT NULL,
		term_before_hire BOOLEAN NOT NULL
	)`, TableSilverEmployees)

	insert := fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", TableSilverEmployees)

	rows := make([][]any, len(employees))
	for i, e := range employees {
		rows[i] = []any{
			e.EmployeeID, e.FullName, e.Department,
			e.HireDate, nullableDate(e.TerminationDate), nullableDate(e.BirthDate),
			e.IsActive, e.TenureDays, e.TermBeforeHire,
		}
	}

	return d.replaceTable(ctx, TableSilverEmployees, ddl, insert, rows)
}

// ReplaceTimesheets persists the cleaned punches as the silver timesheets
// table.
func (d *DB) ReplaceTimesheets(ctx context.Context, punches []domain.Punch) (int64, error) {
	ddl := fmt.Sprintf(`CREATE OR REPLACE TABLE %s (
		employee_id VARCHAR NOT NULL,
		work_date DATE NOT NULL,
		scheduled_start TIMESTAMP NOT NULL,
		scheduled_end TIMESTAMP NOT NULL,
		punch_in TIMESTAMP NOT NULL,
		punch_out TIMESTAMP NOT NULL,
		hours_worked DOUBLE NOT NULL,
		minutes_late DOUBLE NOT NULL,
		minutes_early DOUBLE NOT NULL,
		is_late BOOLEAN NOT NULL,
		is_early BOOLEAN NOT NULL,
		is_overtime BOOLEAN NOT NULL,
		is_normal_work BOOLEAN NOT NULL,
		is_valid_hours BOOLEAN NOT NULL
	)`, TableSilverTimesheets)

	insert := fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", TableSilverTimesheets)

	rows := make([][]any, len(punches))
	for i, p := range punches {
		rows[i] = []any{
			p.EmployeeID, p.WorkDate,
			p.ScheduledStart, p.ScheduledEnd, p.PunchIn, p.PunchOut,
			p.HoursWorked, p.MinutesLate, p.MinutesEarly,
			p.IsLate, p.IsEarly, p.IsOvertime, p.IsNormalWork, p.IsValidHours,
		}
	}

	return d.replaceTable(ctx, TableSilverTimesheets, ddl, insert, rows)
}

// replaceTable recreates a table and loads its rows inside one transaction,
// so the replacement is atomic at the table boundary.
func (d *DB) replaceTable(ctx context.Context, table, ddl, insert string, rows [][]any) (int64, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("failed to insert row %d into %s: %w", i, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", table, err)
	}

	d.logger.Info("Replaced stage table",
		slog.String("table", table),
		slog.Int("rows", len(rows)))
	return int64(len(rows)), nil
}

// TableCount returns the row count of a table.
func (d *DB) TableCount(ctx context.Context, table string) (int64, error) {
	if err := checkTableName(table); err != nil {
		return 0, err
	}
	var n int64
	err := d.sql.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// TableData is a generic read of one table, used by the HTTP layer, the
// chart builder and the exporters.
type TableData struct {
	Columns []string
	Rows    [][]any
}

// QueryTable reads an entire table in its stored order.
func (d *DB) QueryTable(ctx context.Context, table string) (*TableData, error) {
	if err := checkTableName(table); err != nil {
		return nil, err
	}

	rows, err := d.sql.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	data := &TableData{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		data.Rows = append(data.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}

	return data, nil
}

// nullableDate converts an optional date into a bind parameter. The driver
// binds plain time.Time values only, so pointers must be dereferenced here;
// a nil pointer becomes a SQL NULL.
func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// checkTableName guards identifier interpolation into DDL and queries.
func checkTableName(table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// placeholders builds a "?, ?, ..." list of length n.
func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
