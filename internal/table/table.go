// Package table implements the schema-bound grid of string cells that
// mappings rewrite.
//
// A Table is a value: every edit returns a new Table built from copies of
// the rows it changes, and the receiver is never modified. Tables can be
// handed to several mappings, or goroutines, at once.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/JonMunkholm/schemamap/internal/schema"
)

var (
	// ErrColumnNotFound is returned when a referenced column is absent.
	ErrColumnNotFound = errors.New("column not found")

	// ErrLengthMismatch is returned when a column's values do not line up
	// with the table's rows.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrRaggedRow is returned when a row's width differs from the schema.
	ErrRaggedRow = errors.New("ragged row")
)

// Table pairs a Schema with rows of cells. Every row has exactly
// Schema().Len() cells.
type Table struct {
	schema schema.Schema
	rows   [][]string
}

// New builds a Table, copying rows. Returns ErrRaggedRow if any row's
// width differs from the schema length.
func New(s schema.Schema, rows [][]string) (Table, error) {
	width := s.Len()
	copied := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return Table{}, fmt.Errorf("%w: row %d has %d cells, schema has %d columns",
				ErrRaggedRow, i, len(row), width)
		}
		copied[i] = slices.Clone(row)
	}
	return Table{schema: s, rows: copied}, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(columns []string, rows ...[]string) Table {
	t, err := New(schema.New(columns...), rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Schema returns the table's schema.
func (t Table) Schema() schema.Schema {
	return t.schema
}

// Columns returns the column names in order.
func (t Table) Columns() []string {
	return t.schema.Names()
}

// Width returns the number of columns.
func (t Table) Width() int {
	return t.schema.Len()
}

// RowCount returns the number of rows.
func (t Table) RowCount() int {
	return len(t.rows)
}

// Rows returns a deep copy of the rows.
func (t Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = slices.Clone(row)
	}
	return out
}

// Equal reports whether both tables have the same schema and cells.
func (t Table) Equal(other Table) bool {
	if !t.schema.Equal(other.schema) || len(t.rows) != len(other.rows) {
		return false
	}
	for i := range t.rows {
		if !slices.Equal(t.rows[i], other.rows[i]) {
			return false
		}
	}
	return true
}

// ColumnOf returns the position of the first column called name.
func (t Table) ColumnOf(name string) (int, bool) {
	return t.schema.IndexOf(name)
}

// Column returns the cells of the named column, top to bottom.
func (t Table) Column(name string) ([]string, bool) {
	i, ok := t.ColumnOf(name)
	if !ok {
		return nil, false
	}
	return t.columnAt(i), true
}

// Cell returns a single cell by row index and column name.
func (t Table) Cell(row int, name string) (string, bool) {
	i, ok := t.ColumnOf(name)
	if !ok || row < 0 || row >= len(t.rows) {
		return "", false
	}
	return t.rows[row][i], true
}

// Add appends a column. values must have one entry per row.
func (t Table) Add(name string, values []string) (Table, error) {
	return t.InsertAt(t.Width(), name, values)
}

// InsertAt places a column at position i (0 <= i <= Width).
func (t Table) InsertAt(i int, name string, values []string) (Table, error) {
	if len(values) != len(t.rows) {
		return Table{}, fmt.Errorf("%w: column %q has %d values, table has %d rows",
			ErrLengthMismatch, name, len(values), len(t.rows))
	}
	s, err := t.schema.Insert(i, name)
	if err != nil {
		return Table{}, err
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		rows[r] = slices.Insert(slices.Clone(row), i, values[r])
	}
	return Table{schema: s, rows: rows}, nil
}

// Rename replaces the name of the first column called oldName.
// Returns t unchanged when oldName is absent.
func (t Table) Rename(oldName, newName string) Table {
	s, ok := t.schema.Rename(oldName, newName)
	if !ok {
		return t
	}
	// Cells are untouched, so rows are shared with t.
	return Table{schema: s, rows: t.rows}
}

// Relocate swaps the named column with the column at position j, moving
// both names and cells.
func (t Table) Relocate(name string, j int) (Table, error) {
	i, ok := t.ColumnOf(name)
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	s, err := t.schema.Relocate(i, j)
	if err != nil {
		return Table{}, err
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		row = slices.Clone(row)
		row[i], row[j] = row[j], row[i]
		rows[r] = row
	}
	return Table{schema: s, rows: rows}, nil
}

// Delete removes the first column called name from the schema and every
// row. Returns t unchanged when the column is absent.
func (t Table) Delete(name string) Table {
	i, ok := t.ColumnOf(name)
	if !ok {
		return t
	}
	return t.deleteAt(i)
}

// Combine computes a new column by applying f to the cells of col1 and col2
// row by row, appends it as newName and removes both source columns.
func (t Table) Combine(col1, col2, newName string, f func(a, b string) string) (Table, error) {
	i, ok := t.ColumnOf(col1)
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrColumnNotFound, col1)
	}
	j, ok := t.ColumnOf(col2)
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrColumnNotFound, col2)
	}

	values := make([]string, len(t.rows))
	for r, row := range t.rows {
		values[r] = f(row[i], row[j])
	}

	out, err := t.Add(newName, values)
	if err != nil {
		return Table{}, err
	}
	// Remove the higher index first so the lower one stays valid. The
	// appended column sits after both and is never hit.
	hi, lo := max(i, j), min(i, j)
	out = out.deleteAt(hi)
	if lo != hi {
		out = out.deleteAt(lo)
	}
	return out, nil
}

// Transform rewrites every cell of the named column with f.
func (t Table) Transform(name string, f func(string) string) (Table, error) {
	i, ok := t.ColumnOf(name)
	if !ok {
		return Table{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		row = slices.Clone(row)
		row[i] = f(row[i])
		rows[r] = row
	}
	return Table{schema: t.schema, rows: rows}, nil
}

func (t Table) columnAt(i int) []string {
	values := make([]string, len(t.rows))
	for r, row := range t.rows {
		values[r] = row[i]
	}
	return values
}

func (t Table) deleteAt(i int) Table {
	s, err := t.schema.Delete(i)
	if err != nil {
		return t
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		rows[r] = slices.Delete(slices.Clone(row), i, i+1)
	}
	return Table{schema: s, rows: rows}
}

// wireTable is the JSON shape of a Table.
type wireTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...]]}.
func (t Table) MarshalJSON() ([]byte, error) {
	w := wireTable{Columns: t.Columns(), Rows: t.rows}
	if w.Columns == nil {
		w.Columns = []string{}
	}
	if w.Rows == nil {
		w.Rows = [][]string{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates a table. Ragged rows are rejected.
func (t *Table) UnmarshalJSON(data []byte) error {
	var w wireTable
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}
	decoded, err := New(schema.New(w.Columns...), w.Rows)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}
