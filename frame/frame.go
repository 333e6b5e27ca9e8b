// Package frame holds the tabular payload of a dataset: an ordered, typed
// column schema plus row-major records, persisted as a single SQLite file.
package frame

import (
	"fmt"
	"reflect"
	"time"
)

// Type classifies the cells of a column.
type Type string

const (
	Text   Type = "text"
	Number Type = "number"
	Bool   Type = "bool"
	Date   Type = "date"
	JSONB  Type = "jsonb"
)

func validType(t Type) bool {
	switch t {
	case Text, Number, Bool, Date, JSONB:
		return true
	}
	return false
}

// Column describes one column of a frame.
type Column struct {
	Name        string
	Type        Type
	Required    bool
	Description string
}

// Frame is a column schema plus rows. Cells are held in canonical form:
// string for text, float64 for number, bool for bool, time.Time for date and
// any JSON-representable value for jsonb. Absent cells are nil.
type Frame struct {
	cols []Column
	rows [][]any
}

// New validates a column schema and returns an empty frame over it.
func New(cols []Column) (*Frame, error) {
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d: name is required", i)
		}
		if !validType(c.Type) {
			return nil, fmt.Errorf("column %q: unknown type %q", c.Name, c.Type)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("column %q: duplicate name", c.Name)
		}
		seen[c.Name] = true
	}
	f := &Frame{cols: make([]Column, len(cols))}
	copy(f.cols, cols)
	return f, nil
}

// Append coerces one row of cells into canonical form and appends it. The
// number of cells must match the schema.
func (f *Frame) Append(cells ...any) error {
	if len(cells) != len(f.cols) {
		return fmt.Errorf("append: got %d cells, schema has %d columns", len(cells), len(f.cols))
	}
	row := make([]any, len(cells))
	for i, v := range cells {
		cv, err := coerce(f.cols[i], v)
		if err != nil {
			return err
		}
		row[i] = cv
	}
	f.rows = append(f.rows, row)
	return nil
}

// Len reports the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Columns returns a copy of the schema.
func (f *Frame) Columns() []Column {
	out := make([]Column, len(f.cols))
	copy(out, f.cols)
	return out
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []any {
	out := make([]any, len(f.rows[i]))
	copy(out, f.rows[i])
	return out
}

// Records returns a copy of every row in order.
func (f *Frame) Records() [][]any {
	out := make([][]any, len(f.rows))
	for i := range f.rows {
		out[i] = f.Row(i)
	}
	return out
}

// Equal reports whether two frames carry the same schema and the same cell
// values. Date cells compare by instant, jsonb cells structurally.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if len(f.cols) != len(other.cols) || len(f.rows) != len(other.rows) {
		return false
	}
	for i := range f.cols {
		if f.cols[i] != other.cols[i] {
			return false
		}
	}
	for i := range f.rows {
		for j := range f.cols {
			if !cellEqual(f.cols[j].Type, f.rows[i][j], other.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func cellEqual(t Type, x, y any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	switch t {
	case Date:
		xt, xok := x.(time.Time)
		yt, yok := y.(time.Time)
		return xok && yok && xt.Equal(yt)
	case JSONB:
		return reflect.DeepEqual(x, y)
	}
	return x == y
}

// coerce maps a freshly appended cell to its canonical form. Integer values
// are widened into the number representation; everything else must arrive in
// the column's canonical type already.
func coerce(c Column, v any) (any, error) {
	if v == nil {
		if c.Required {
			return nil, fmt.Errorf("column %q: required cell is nil", c.Name)
		}
		return nil, nil
	}
	switch c.Type {
	case Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Number:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint:
			return float64(n), nil
		case uint32:
			return float64(n), nil
		case uint64:
			return float64(n), nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Date:
		if ts, ok := v.(time.Time); ok {
			return ts, nil
		}
	case JSONB:
		return v, nil
	}
	return nil, fmt.Errorf("column %q (%s): cannot hold %T", c.Name, c.Type, v)
}
