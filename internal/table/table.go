// Package table provides a small in-memory string table used to carry GTEx
// rows through the formatting pipeline. Missing values are empty strings.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered set of named columns over string rows.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.columns = append(t.columns, name)
	t.index[name] = len(t.columns) - 1
	return len(t.columns) - 1
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require returns an error naming the first column that is not present.
func (t *Table) Require(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("%w: %q", ErrMissingColumn, n)
		}
	}
	return nil
}

// Append adds a row. The row must have one value per column.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns a view of the i-th row.
func (t *Table) Row(i int) Row {
	return Row{t: t, index: i, values: t.rows[i]}
}

// Values returns the raw values of the i-th row.
func (t *Table) Values(i int) []string {
	return t.rows[i]
}

// Get returns the value of column name in row i, or "" if the column is absent.
func (t *Table) Get(i int, name string) string {
	return t.Row(i).Get(name)
}

// SetColumn assigns fn(row) to column name for every row. An existing column
// is overwritten in place; a new column is appended.
func (t *Table) SetColumn(name string, fn func(r Row) string) {
	existing := t.HasColumn(name)
	idx := t.addColumn(name)
	for i, vals := range t.rows {
		if !existing {
			vals = append(vals, "")
			t.rows[i] = vals
		}
		vals[idx] = fn(Row{t: t, index: i, values: vals})
	}
}

// DropColumns removes the named columns. Unknown names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[int]bool, len(names))
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return
	}

	keep := make([]int, 0, len(t.columns)-len(drop))
	for i := range t.columns {
		if !drop[i] {
			keep = append(keep, i)
		}
	}

	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = t.columns[i]
	}
	for r, vals := range t.rows {
		out := make([]string, len(keep))
		for j, i := range keep {
			out[j] = vals[i]
		}
		t.rows[r] = out
	}

	t.columns = cols
	t.index = make(map[string]int, len(cols))
	for i, c := range cols {
		t.index[c] = i
	}
}

// Filter returns a new table holding copies of the rows for which keep
// returns true.
func (t *Table) Filter(keep func(r Row) bool) *Table {
	out := New(t.columns...)
	for i, vals := range t.rows {
		if keep(Row{t: t, index: i, values: vals}) {
			out.rows = append(out.rows, cloneRow(vals))
		}
	}
	return out
}

// Explode splits column name on sep and returns a new table with one row per
// element. Elements are trimmed of surrounding spaces. A row with an empty
// value is kept once with the empty value.
func (t *Table) Explode(name, sep string) (*Table, error) {
	idx, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}

	out := New(t.columns...)
	out.rows = make([][]string, 0, len(t.rows))
	for _, vals := range t.rows {
		if vals[idx] == "" {
			out.rows = append(out.rows, cloneRow(vals))
			continue
		}
		for _, part := range strings.Split(vals[idx], sep) {
			row := cloneRow(vals)
			row[idx] = strings.TrimSpace(part)
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

func cloneRow(vals []string) []string {
	return append(make([]string, 0, len(vals)+8), vals...)
}

// Row is a read-only view of one table row.
type Row struct {
	t      *Table
	index  int
	values []string
}

// Index returns the position of the row in its table.
func (r Row) Index() int {
	return r.index
}

// Get returns the value of the named column, or "" if the column is absent.
func (r Row) Get(name string) string {
	i, ok := r.t.index[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}
