// Package dataset holds the feature matrix shared by every pipeline stage:
// an ordered set of named numeric columns with one integer label column.
package dataset

import (
	"errors"
	"fmt"
	"math"
)

// Column is a named, typed column. Int columns keep integral values in
// Values so that every column shares one representation.
type Column struct {
	Name   string
	Kind   Kind
	Values []float64
}

// Frame is a column-major table.
type Frame struct {
	cols []Column
	rows int
}

// New builds a frame from columns of equal length. Names are not required to
// be unique here; see DuplicateNames.
func New(cols ...Column) (*Frame, error) {
	f := &Frame{cols: cols}
	for i, c := range cols {
		if i == 0 {
			f.rows = len(c.Values)
			continue
		}
		if len(c.Values) != f.rows {
			return nil, fmt.Errorf("dataset: column %q has %d rows, want %d", c.Name, len(c.Values), f.rows)
		}
	}
	return f, nil
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.cols) }

// Columns returns the columns in order. The slice must not be modified.
func (f *Frame) Columns() []Column { return f.cols }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.cols))
	for i, c := range f.cols {
		out[i] = c.Name
	}
	return out
}

// Schema returns the column layout.
func (f *Frame) Schema() Schema {
	s := Schema{Names: f.Names(), Kinds: make([]Kind, len(f.cols))}
	for i, c := range f.cols {
		s.Kinds[i] = c.Kind
	}
	return s
}

// Column returns the first column with the given name.
func (f *Frame) Column(name string) (Column, bool) {
	for _, c := range f.cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// DuplicateNames returns every name that appears more than once, in order of
// first repetition.
func (f *Frame) DuplicateNames() []string {
	seen := make(map[string]int, len(f.cols))
	var dups []string
	for _, c := range f.cols {
		seen[c.Name]++
		if seen[c.Name] == 2 {
			dups = append(dups, c.Name)
		}
	}
	return dups
}

// Row returns a copy of row i across all columns.
func (f *Frame) Row(i int) []float64 {
	out := make([]float64, len(f.cols))
	for j, c := range f.cols {
		out[j] = c.Values[i]
	}
	return out
}

// XY splits the frame into row-major predictors and integer labels. Every
// column except label becomes a predictor, in frame order.
func (f *Frame) XY(label string) ([][]float64, []int, error) {
	li := -1
	for i, c := range f.cols {
		if c.Name == label {
			li = i
			break
		}
	}
	if li < 0 {
		return nil, nil, fmt.Errorf("dataset: label column %q not found", label)
	}

	X := make([][]float64, f.rows)
	y := make([]int, f.rows)
	p := len(f.cols) - 1
	for i := 0; i < f.rows; i++ {
		row := make([]float64, 0, p)
		for j, c := range f.cols {
			if j == li {
				continue
			}
			row = append(row, c.Values[i])
		}
		X[i] = row

		v := f.cols[li].Values[i]
		if v != math.Trunc(v) {
			return nil, nil, errors.New("dataset: label column holds non-integral values")
		}
		y[i] = int(v)
	}
	return X, y, nil
}

// Equal reports whether two frames have the same schema and values.
func (f *Frame) Equal(o *Frame) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.rows != o.rows || !f.Schema().Equal(o.Schema()) {
		return false
	}
	for j := range f.cols {
		a, b := f.cols[j].Values, o.cols[j].Values
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
