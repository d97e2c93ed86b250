// Package table holds the in-memory string table shared by the downloader and
// the pivot transformer. Every cell is kept as text exactly as the API
// returned it; an empty (or whitespace only) cell counts as missing.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoColumn is returned when an operation names a column the table lacks.
var ErrNoColumn = errors.New("column not found")

// Table is a header plus rows. Rows are always padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with a copy of header.
func New(header []string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// ColumnIndex returns the position of name in the header or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(row []string) {
	t.Rows = append(t.Rows, fit(row, len(t.Header)))
}

// Value returns the cell of row i in column name, or "" when the column
// does not exist.
func (t *Table) Value(i int, name string) string {
	idx := t.ColumnIndex(name)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][idx]
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := New(t.Header)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, append([]string(nil), r...))
		}
	}
	return out
}

// IsEmptyCell reports whether a cell counts as missing.
func IsEmptyCell(s string) bool {
	return strings.TrimSpace(s) == ""
}

// DropEmptyColumns returns a copy without the columns that are empty in
// every row. Columns named in keep are always retained. A table without rows
// loses every column not in keep.
func (t *Table) DropEmptyColumns(keep ...string) *Table {
	pinned := make(map[string]bool, len(keep))
	for _, k := range keep {
		pinned[k] = true
	}

	var cols []int
	for i, h := range t.Header {
		if pinned[h] {
			cols = append(cols, i)
			continue
		}
		for _, r := range t.Rows {
			if !IsEmptyCell(r[i]) {
				cols = append(cols, i)
				break
			}
		}
	}
	return t.project(cols)
}

func (t *Table) project(cols []int) *Table {
	header := make([]string, len(cols))
	for j, i := range cols {
		header[j] = t.Header[i]
	}
	out := &Table{Header: header, Rows: make([][]string, 0, len(t.Rows))}
	for _, r := range t.Rows {
		nr := make([]string, len(cols))
		for j, i := range cols {
			nr[j] = r[i]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// MaxValue returns the largest value of column name according to
// ComparePeriods, ignoring empty cells.
func (t *Table) MaxValue(name string) (string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrNoColumn, name)
	}
	max := ""
	for _, r := range t.Rows {
		v := r[idx]
		if IsEmptyCell(v) {
			continue
		}
		if max == "" || ComparePeriods(v, max) > 0 {
			max = v
		}
	}
	return max, nil
}

// KeepLatest keeps the rows whose column name equals the column maximum.
// Ties all pass. The maximum is returned alongside the filtered table.
func (t *Table) KeepLatest(name string) (*Table, string, error) {
	max, err := t.MaxValue(name)
	if err != nil {
		return nil, "", err
	}
	idx := t.ColumnIndex(name)
	out := t.Filter(func(row []string) bool {
		return ComparePeriods(row[idx], max) == 0
	})
	return out, max, nil
}

// ComparePeriods orders two sortable period values. Values that both parse
// as integers compare numerically, anything else compares as text.
func ComparePeriods(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

// Concat stacks tables on top of each other. The header is the union of all
// headers in first-seen order; cells for columns a table lacks are empty.
func Concat(tables ...*Table) *Table {
	var header []string
	seen := map[string]int{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, h := range t.Header {
			if _, ok := seen[h]; !ok {
				seen[h] = len(header)
				header = append(header, h)
			}
		}
	}

	out := New(header)
	for _, t := range tables {
		if t == nil {
			continue
		}
		pos := make([]int, len(t.Header))
		for i, h := range t.Header {
			pos[i] = seen[h]
		}
		for _, r := range t.Rows {
			nr := make([]string, len(header))
			for i, v := range r {
				nr[pos[i]] = v
			}
			out.Rows = append(out.Rows, nr)
		}
	}
	return out
}

func fit(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}
