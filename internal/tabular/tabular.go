// Package tabular is the row-oriented table boundary between the pipeline
// and its input/output files. The core stages only ever see a Table
// (ordered columns, ordered rows of strings); whether the bytes on disk are
// CSV or XLSX is decided here and nowhere else.
package tabular

import (
	"fmt"
	"strings"
)

type Table struct {
	// Source names where the table came from, for error messages.
	Source  string
	Columns []string
	Rows    [][]string
}

// SchemaError is fatal: a stage refused to start because required columns
// are absent. It names the file and every missing column so the operator
// can fix the input in one pass.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

func (t *Table) Append(row ...string) {
	for len(row) < len(t.Columns) {
		row = append(row, "")
	}
	t.Rows = append(t.Rows, row)
}

// ColumnIndex returns the position of a named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Require verifies the named columns all exist, returning a SchemaError
// listing every absent one.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, col := range columns {
		if t.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Source: t.Source, Missing: missing}
	}
	return nil
}

// Cell returns the value at (row, column name), tolerating ragged rows.
func (t *Table) Cell(row int, column string) string {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// Project returns a copy holding only the named columns, in the given
// order. Large reference tables are projected down to the columns a stage
// actually reads before any matching starts.
func (t *Table) Project(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	indices := make([]int, len(columns))
	for i, col := range columns {
		indices[i] = t.ColumnIndex(col)
	}
	out := &Table{Source: t.Source, Columns: append([]string(nil), columns...)}
	for _, row := range t.Rows {
		projected := make([]string, len(indices))
		for i, idx := range indices {
			if idx < len(row) {
				projected[i] = row[idx]
			}
		}
		out.Rows = append(out.Rows, projected)
	}
	return out, nil
}
