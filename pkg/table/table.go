// Package table defines tabfy's tabular result value and converts an
// interpreter's JSON document into it.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Cell is one named value in a row.
type Cell struct {
	Column string
	Value  string
}

// Row is an ordered list of cells. Rows in one table need not share columns.
type Row []Cell

// Get returns the value stored under column.
func (r Row) Get(column string) (string, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return "", false
}

// Columns returns the row's column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, c := range r {
		cols[i] = c.Column
	}
	return cols
}

// MarshalJSON encodes the row as an object, keeping cell order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Column)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Warning records an array element that did not become a row.
type Warning struct {
	Index int    // position in the source array
	Shape string // "array", "scalar", ...
}

func (w Warning) String() string {
	return fmt.Sprintf("element %d: skipped %s (not an object)", w.Index, w.Shape)
}

// Table is the materialized result: ordered rows plus any warnings raised
// while building them.
type Table struct {
	Rows     []Row
	Warnings []Warning
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Columns returns the union of all column names in first-seen order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var cols []string
	for _, r := range t.Rows {
		for _, c := range r {
			if !seen[c.Column] {
				seen[c.Column] = true
				cols = append(cols, c.Column)
			}
		}
	}
	return cols
}

// MarshalJSON encodes the table as an array of row objects.
func (t *Table) MarshalJSON() ([]byte, error) {
	if t == nil || len(t.Rows) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Rows)
}
