// Package table provides the read-only tabular model used by the gene
// validator, plus the loader that turns a delimited reference source into
// its definition row and content rows.
//
// A Table keeps its columns in source order and resolves column names through
// a HeaderIndex, so lookups by name are O(1). Cells are plain strings; a
// missing value is the empty string.
package table

import (
	"fmt"
	"strings"
)

// HeaderIndex maps a column name to its position in a row.
// Names are matched exactly: gene columns are case-sensitive.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Returns an error naming the first column that appears twice.
func MakeHeaderIndex(header []string) (HeaderIndex, error) {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		if _, dup := idx[h]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		idx[h] = i
	}
	return idx, nil
}

// Table is an ordered, named set of columns over string rows.
type Table struct {
	columns []string
	index   HeaderIndex
	rows    [][]string
}

// New builds a Table from a header and rows. Rows shorter than the header are
// padded with empty cells; longer rows are truncated. The inputs are copied.
func New(columns []string, rows [][]string) (*Table, error) {
	cols := append([]string(nil), columns...)
	idx, err := MakeHeaderIndex(cols)
	if err != nil {
		return nil, err
	}

	body := make([][]string, len(rows))
	for i, row := range rows {
		r := make([]string, len(cols))
		copy(r, row)
		body[i] = r
	}

	return &Table{columns: cols, index: idx, rows: body}, nil
}

// MustNew is New for fixtures and tests. It panics on error.
func MustNew(columns []string, rows [][]string) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column names in table order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column's cells, top to bottom.
func (t *Table) Column(name string) ([]string, bool) {
	pos, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[pos]
	}
	return out, true
}

// Cell returns the value at row i in the named column.
func (t *Table) Cell(i int, name string) (string, bool) {
	pos, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.rows) {
		return "", false
	}
	return t.rows[i][pos], true
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Select returns a new table holding only the named columns, in the order
// given. It fails if any name is not a column of t.
func (t *Table) Select(names ...string) (*Table, error) {
	positions := make([]int, len(names))
	var missing []string
	for i, name := range names {
		pos, ok := t.index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		positions[i] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("column not found: %s", strings.Join(missing, ", "))
	}

	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		r := make([]string, len(positions))
		for j, pos := range positions {
			r[j] = row[pos]
		}
		rows[i] = r
	}
	return New(names, rows)
}
