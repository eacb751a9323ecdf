// Package frame holds the small column-named numeric table that flows between
// the descriptor, experiment and prediction stages.
package frame

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

// Table is a row-major table of float64 values with named columns.
type Table struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// New builds a table and checks that every row matches the column count.
func New(columns []string, rows ...[]float64) (*Table, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, errors.Newf(errors.ErrCodeValidation,
				"row %d has %d values for %d columns", i, len(r), len(columns))
		}
	}
	return &Table{Columns: slices.Clone(columns), Rows: rows}, nil
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{Columns: []string{}, Rows: [][]float64{}}
}

// IsEmpty reports whether the table carries no rows.
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// Width is the number of columns.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Height is the number of rows.
func (t *Table) Height() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Row returns row i, or nil when out of range.
func (t *Table) Row(i int) []float64 {
	if t == nil || i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i]
}

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	if t == nil {
		return -1
	}
	return slices.Index(t.Columns, column)
}

// Value returns the cell at (row, column).
func (t *Table) Value(row int, column string) (float64, bool) {
	idx := t.Index(column)
	r := t.Row(row)
	if idx < 0 || r == nil {
		return 0, false
	}
	return r[idx], true
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(columns []string) (*Table, error) {
	idx := make([]int, len(columns))
	for k, c := range columns {
		i := t.Index(c)
		if i < 0 {
			return nil, errors.Newf(errors.ErrCodeModelSchemaMismatch, "column %q not present", c)
		}
		idx[k] = i
	}
	rows := lo.Map(t.Rows, func(r []float64, _ int) []float64 {
		return lo.Map(idx, func(i int, _ int) float64 { return r[i] })
	})
	return &Table{Columns: slices.Clone(columns), Rows: rows}, nil
}

// HConcat joins tables side by side. Every table must have the same number of
// rows; column names are kept as given, in argument order.
func HConcat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return Empty(), nil
	}
	height := tables[0].Height()
	for i, t := range tables[1:] {
		if t.Height() != height {
			return nil, errors.Newf(errors.ErrCodeValidation,
				"cannot concatenate table %d with %d rows onto %d rows", i+1, t.Height(), height)
		}
	}
	out := &Table{
		Columns: lo.FlatMap(tables, func(t *Table, _ int) []string { return t.Columns }),
		Rows:    make([][]float64, height),
	}
	for r := 0; r < height; r++ {
		out.Rows[r] = lo.FlatMap(tables, func(t *Table, _ int) []float64 { return t.Rows[r] })
	}
	return out, nil
}

// Records renders the table as a list of column→value maps, one per row.
func (t *Table) Records() []map[string]float64 {
	if t == nil {
		return nil
	}
	return lo.Map(t.Rows, func(r []float64, _ int) map[string]float64 {
		return lo.SliceToMap(lo.Range(len(t.Columns)), func(i int) (string, float64) {
			return t.Columns[i], r[i]
		})
	})
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(%d×%d)", t.Height(), t.Width())
}
