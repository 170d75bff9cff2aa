package tables

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
)

// Fragment is one raw table grid as found on a page, before stitching.
type Fragment struct {
	Page  int
	Cells [][]string
}

// NewFragment pads ragged rows so every row has the widest row's column count.
func NewFragment(page int, rows [][]string) Fragment {
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	cells := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, cols)
		copy(row, r)
		cells[i] = row
	}
	return Fragment{Page: page, Cells: cells}
}

// Rows returns the row count.
func (f Fragment) Rows() int { return len(f.Cells) }

// Cols returns the column count.
func (f Fragment) Cols() int {
	if len(f.Cells) == 0 {
		return 0
	}
	return len(f.Cells[0])
}

func (f Fragment) clone() Fragment {
	cells := make([][]string, len(f.Cells))
	for i, r := range f.Cells {
		cells[i] = append([]string(nil), r...)
	}
	return Fragment{Page: f.Page, Cells: cells}
}

// Extractor finds raw table fragments in a PDF, in page order.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Fragment, error)
}

// Table is a stitched table with positional schema columns.
type Table struct {
	Schema   *forms.TableSchema
	Columns  []string
	Rows     [][]string
	Fallback bool
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Role returns the schema role, or "" for a table without schema.
func (t *Table) Role() string {
	if t.Schema == nil {
		return ""
	}
	return t.Schema.Role
}

// Cell returns the value at row in the named column.
func (t *Table) Cell(row int, column string) (string, bool) {
	if row < 0 || row >= len(t.Rows) {
		return "", false
	}
	for i, c := range t.Columns {
		if c == column {
			if i < len(t.Rows[row]) {
				return t.Rows[row][i], true
			}
			return "", false
		}
	}
	return "", false
}

type tableView struct {
	Role     string              `json:"role" yaml:"role"`
	Columns  []string            `json:"columns" yaml:"columns"`
	Rows     []map[string]string `json:"rows" yaml:"rows"`
	Fallback bool                `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

func (t *Table) view() tableView {
	out := tableView{Role: t.Role(), Columns: t.Columns, Rows: make([]map[string]string, len(t.Rows)), Fallback: t.Fallback}
	for i, r := range t.Rows {
		m := make(map[string]string, len(t.Columns))
		for j, c := range t.Columns {
			if j < len(r) {
				m[c] = r[j]
			}
		}
		out.Rows[i] = m
	}
	return out
}

// MarshalJSON writes rows as column-keyed objects.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.view())
}

// MarshalYAML writes the same shape as MarshalJSON.
func (t *Table) MarshalYAML() (interface{}, error) {
	return t.view(), nil
}

// String renders the table as pipe-separated text.
func (t *Table) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, " | "))
	for _, r := range t.Rows {
		b.WriteByte('\n')
		b.WriteString(strings.Join(r, " | "))
	}
	return b.String()
}
