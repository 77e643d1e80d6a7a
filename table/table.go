// Package table holds the tabular value produced by queries: labelled
// columns, a row index and the rows themselves.
//
// Tables are immutable. Methods that change the shape or the index return
// a new Table that may share row storage with the receiver.
package table

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// Row is one row of values, ordered like the table's columns.
type Row = []any

type Table struct {
	columns []string
	index   []int64
	rows    []Row
}

// New wraps rows in a table labelled with columns. The index runs from 0 to len(rows)-1.
// Every row must have exactly one value per column.
func New(rows [][]any, columns []string) (*Table, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, errors.Errorf("row %d has %d values, expected %d", i, len(r), len(columns))
		}
	}

	index := make([]int64, len(rows))
	for i := range index {
		index[i] = int64(i)
	}

	return &Table{
		columns: slices.Clone(columns),
		index:   index,
		rows:    rows,
	}, nil
}

// Empty returns a table with no rows labelled with columns.
func Empty(columns []string) *Table {
	return &Table{
		columns: slices.Clone(columns),
		index:   []int64{},
		rows:    []Row{},
	}
}

// Empty returns a zero-row slice of t with the same columns.
func (t *Table) Empty() *Table {
	return t.Head(0)
}

// Head returns the first n rows of t, keeping their index values.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return &Table{
		columns: t.columns,
		index:   t.index[:n:n],
		rows:    t.rows[:n:n],
	}
}

// WithIndexOffset returns t with every index value shifted by offset.
func (t *Table) WithIndexOffset(offset int64) *Table {
	if offset == 0 || len(t.index) == 0 {
		return t
	}

	index := make([]int64, len(t.index))
	for i, v := range t.index {
		index[i] = v + offset
	}
	return &Table{
		columns: t.columns,
		index:   index,
		rows:    t.rows,
	}
}

// Concat appends tables in order. All tables must have identical columns.
// Index values are kept as they are.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.New("nothing to concatenate")
	}

	columns := tables[0].columns
	var n int
	for i, t := range tables {
		if !slices.Equal(columns, t.columns) {
			return nil, errors.Errorf("table %d has columns %v, expected %v", i, t.columns, columns)
		}
		n += len(t.rows)
	}

	out := &Table{
		columns: columns,
		index:   make([]int64, 0, n),
		rows:    make([]Row, 0, n),
	}
	for _, t := range tables {
		out.index = append(out.index, t.index...)
		out.rows = append(out.rows, t.rows...)
	}
	return out, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns the column labels.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Index returns the row index values.
func (t *Table) Index() []int64 {
	return slices.Clone(t.index)
}

// IndexRange returns the first and last index values. ok is false for an empty table.
func (t *Table) IndexRange() (first, last int64, ok bool) {
	if len(t.index) == 0 {
		return 0, 0, false
	}
	return t.index[0], t.index[len(t.index)-1], true
}

// Row returns the i-th row by position.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns the rows by position.
func (t *Table) Rows() []Row {
	return t.rows
}

// Value returns the value of column in the i-th row by position.
func (t *Table) Value(i int, column string) (any, bool) {
	c := slices.Index(t.columns, column)
	if c < 0 || i < 0 || i >= len(t.rows) {
		return nil, false
	}
	return t.rows[i][c], true
}

func (t *Table) String() string {
	if first, last, ok := t.IndexRange(); ok {
		return fmt.Sprintf("Table%v[%d rows, index %d..%d]", t.columns, len(t.rows), first, last)
	}
	return fmt.Sprintf("Table%v[0 rows]", t.columns)
}
