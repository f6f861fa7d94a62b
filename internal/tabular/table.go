// Package tabular holds named-column tables as they cross the input and
// output boundaries of a run.
package tabular

import (
	"fmt"
	"strings"

	"github.com/roach88/salesmix/internal/model"
)

// Table is a named relation of string cells. Rows may be shorter than
// the header; missing cells read as empty.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// New creates an empty table with the given header.
func New(name string, header ...string) *Table {
	return &Table{Name: name, Header: header}
}

// FromValues builds a table whose first row is the header.
func FromValues(name string, values [][]string) *Table {
	t := &Table{Name: name}
	if len(values) == 0 {
		return t
	}
	t.Header = make([]string, len(values[0]))
	for i, h := range values[0] {
		t.Header[i] = strings.TrimSpace(h)
	}
	t.Rows = values[1:]
	return t
}

// Append adds a row.
func (t *Table) Append(values ...string) {
	t.Rows = append(t.Rows, values)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of col in the header, or -1.
func (t *Table) Index(col string) int {
	if t.index == nil || len(t.index) != len(t.Header) {
		t.index = make(map[string]int, len(t.Header))
		for i, h := range t.Header {
			if _, dup := t.index[h]; !dup {
				t.index[h] = i
			}
		}
	}
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

// Has reports whether the header contains col.
func (t *Table) Has(col string) bool {
	return t.Index(col) >= 0
}

// Cell returns the trimmed value of col in row, or "" when absent.
func (t *Table) Cell(row []string, col string) string {
	i := t.Index(col)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// MissingColumnsError reports required columns absent from a table. It is
// a structural failure: no partial result can be built from the table.
type MissingColumnsError struct {
	Table   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("table %q is missing required columns: %s", e.Table, strings.Join(e.Columns, ", "))
}

// Require checks that every column in cols is present.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Table: t.Name, Columns: missing}
	}
	return nil
}

// Values returns the header followed by the rows.
func (t *Table) Values() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	out = append(out, t.Rows...)
	return out
}

// Digest is a content digest of the table's header and rows.
func (t *Table) Digest() (string, error) {
	return model.TableDigest(t.Header, t.Rows)
}

// Concat appends the rows of tables that share t's header. Tables with a
// different header are rejected.
func (t *Table) Concat(others ...*Table) error {
	for _, o := range others {
		if o.Len() == 0 {
			continue
		}
		if !sameHeader(t.Header, o.Header) {
			return fmt.Errorf("concat %q: header of %q differs", t.Name, o.Name)
		}
		t.Rows = append(t.Rows, o.Rows...)
	}
	return nil
}

func sameHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
