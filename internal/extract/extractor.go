// Package extract reads the raw employee and timesheet CSV extracts into
// in-memory row sets with normalized column names. No deduplication or type
// parsing happens here; that is the transform stage's job.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrSourceUnreadable marks a fatal extraction failure: a required input
// file is missing or cannot be parsed. Partial reads are never returned.
var ErrSourceUnreadable = errors.New("source unreadable")

// RowSet is a rectangular block of string cells with named columns, the
// extraction-stage mirror of one CSV source.
type RowSet struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column, or -1.
func (rs *RowSet) ColumnIndex(name string) int {
	for i, c := range rs.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Extractor reads delimited files into row sets.
type Extractor struct {
	delimiter rune
	logger    *slog.Logger
}

// New creates an Extractor for the given delimiter.
func New(delimiter rune, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		delimiter: delimiter,
		logger:    logger.With(slog.String("component", "extractor")),
	}
}

// ExtractEmployees reads the single employee file.
func (e *Extractor) ExtractEmployees(path string) (*RowSet, error) {
	rs, err := e.readFile(path)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Extracted employee records",
		slog.String("file", path),
		slog.Int("rows", len(rs.Rows)))
	return rs, nil
}

// ExtractTimesheets reads all timesheet files and concatenates them in input
// order. The files must share a schema; rows keep the column order of the
// first file. Cross-file duplicates are preserved for the transform stage.
func (e *Extractor) ExtractTimesheets(paths []string) (*RowSet, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no timesheet files given", ErrSourceUnreadable)
	}

	var combined *RowSet
	for _, path := range paths {
		rs, err := e.readFile(path)
		if err != nil {
			return nil, err
		}

		if combined == nil {
			combined = rs
			continue
		}

		remap, err := columnRemap(combined.Columns, rs.Columns)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, path, err)
		}
		for _, row := range rs.Rows {
			aligned := make([]string, len(combined.Columns))
			for dst, src := range remap {
				aligned[dst] = row[src]
			}
			combined.Rows = append(combined.Rows, aligned)
		}
	}

	e.logger.Info("Extracted timesheet records",
		slog.Int("files", len(paths)),
		slog.Int("rows", len(combined.Rows)))
	return combined, nil
}

// readFile parses one delimited file into a RowSet. Any read or parse error
// fails the whole file.
func (e *Extractor) readFile(path string) (*RowSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = e.delimiter

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: missing header: %v", ErrSourceUnreadable, path, err)
	}

	rs := &RowSet{Columns: normalizeColumns(header)}
	if err := checkColumns(rs.Columns); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, path, err)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, path, err)
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rs.Rows = append(rs.Rows, record)
	}

	return rs, nil
}

// normalizeColumns trims header cells and folds them to lower_snake_case.
func normalizeColumns(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.Join(strings.Fields(h), "_")
		out[i] = h
	}
	return out
}

// checkColumns rejects empty or duplicate column names.
func checkColumns(cols []string) error {
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if c == "" {
			return fmt.Errorf("empty column name at position %d", i)
		}
		if seen[c] {
			return fmt.Errorf("duplicate column name %q", c)
		}
		seen[c] = true
	}
	return nil
}

// columnRemap maps positions in want onto positions in got, requiring the
// same column set in any order.
func columnRemap(want, got []string) (map[int]int, error) {
	if len(want) != len(got) {
		return nil, fmt.Errorf("column count mismatch: expected %d, got %d", len(want), len(got))
	}
	gotIdx := make(map[string]int, len(got))
	for i, c := range got {
		gotIdx[c] = i
	}
	remap := make(map[int]int, len(want))
	for i, c := range want {
		j, ok := gotIdx[c]
		if !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
		remap[i] = j
	}
	return remap, nil
}
