/**
 * Table stitching
 *
 * The tabular extractor returns one fragment per table region per page. A logical
 * table broken by a page boundary shows up as consecutive fragments with equal
 * column counts; those are merged here, repairing a last row whose cells wrapped
 * onto the next page, and the result is bound to the form's positional schema.
 */

package tables

import (
	"fmt"
	"strings"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// FallbackSingleFragment is logged when one merged table fills both slots.
const FallbackSingleFragment = "single_fragment_reused"

// Stitched holds the two tables of a form.
type Stitched struct {
	Tables [2]*Table
	// Fallback is set when a single merged table was reused for both slots.
	Fallback bool
}

// Stitcher merges fragments. It holds no per-document state.
type Stitcher struct {
	log *logging.Logger
}

// NewStitcher creates a stitcher.
func NewStitcher(log *logging.Logger) *Stitcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Stitcher{log: log}
}

// Stitch merges fragments into the two tables declared by tpl.
func (s *Stitcher) Stitch(fragments []Fragment, tpl *forms.Template) (*Stitched, error) {
	lay := tpl.Tables
	if len(fragments) <= lay.LeadingDrop+lay.TrailingDrop {
		return nil, ferrors.NewStructuralError("tables",
			fmt.Sprintf("%d raw tables found, none left after dropping boilerplate", len(fragments)))
	}
	kept := fragments[lay.LeadingDrop : len(fragments)-lay.TrailingDrop]

	merged := Merge(kept, lay.ContinuationSkip)
	s.log.Debug("Merged table fragments", "fragments", len(kept), "tables", len(merged))

	switch len(merged) {
	case 2:
		out := &Stitched{}
		for slot, frag := range merged {
			t, err := bind(frag, lay.Schemas[slot])
			if err != nil {
				return nil, err
			}
			out.Tables[slot] = t
		}
		return out, nil
	case 1:
		schema, ok := lay.SchemaWithColumns(merged[0].Cols())
		if !ok {
			return nil, ferrors.NewStructuralError("tables",
				fmt.Sprintf("single table with %d columns matches no %s schema", merged[0].Cols(), tpl.Kind))
		}
		s.log.Warn("Only one table after merging, reusing it for both slots",
			"fallback", FallbackSingleFragment, "form", string(tpl.Kind), "columns", merged[0].Cols())
		out := &Stitched{Fallback: true}
		for slot := range out.Tables {
			t, err := bind(merged[0], schema)
			if err != nil {
				return nil, err
			}
			t.Fallback = true
			out.Tables[slot] = t
		}
		return out, nil
	}
	return nil, ferrors.NewStructuralError("tables",
		fmt.Sprintf("expected 2 tables after merging, got %d", len(merged)))
}

// Merge folds each fragment into its predecessor when the column counts match.
// Continuation fragments repeat skip header rows, which are not copied.
func Merge(fragments []Fragment, skip int) []Fragment {
	var out []Fragment
	for _, f := range fragments {
		if len(out) > 0 && out[len(out)-1].Cols() == f.Cols() {
			appendContinuation(&out[len(out)-1], f, skip)
			continue
		}
		out = append(out, f.clone())
	}
	return out
}

// appendContinuation appends the data rows of next to acc. When the first data row
// has an empty leading cell it is the wrapped tail of acc's last row: its cells are
// joined onto that row and the data rows resume two rows in.
func appendContinuation(acc *Fragment, next Fragment, skip int) {
	if skip > len(next.Cells) {
		skip = len(next.Cells)
	}
	data := next.Cells[skip:]
	if len(data) == 0 {
		return
	}

	if len(data[0]) > 0 && strings.TrimSpace(data[0][0]) == "" && len(acc.Cells) > 0 {
		last := acc.Cells[len(acc.Cells)-1]
		for c := range last {
			if c < len(data[0]) {
				last[c] = joinCell(last[c], data[0][c])
			}
		}
		if len(data) > 2 {
			data = data[2:]
		} else {
			data = nil
		}
	}
	for _, r := range data {
		acc.Cells = append(acc.Cells, append([]string(nil), r...))
	}
}

func joinCell(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// bind strips line breaks, drops the schema header rows and assigns column names.
func bind(f Fragment, schema *forms.TableSchema) (*Table, error) {
	if schema == nil {
		return nil, ferrors.NewStructuralError("tables", "no schema for table slot")
	}
	if f.Cols() != len(schema.Columns) {
		return nil, ferrors.NewStructuralError("tables",
			fmt.Sprintf("%s %s table has %d columns, schema expects %d", schema.Form, schema.Role, f.Cols(), len(schema.Columns)))
	}

	rows := f.Cells
	if schema.HeaderRows < len(rows) {
		rows = rows[schema.HeaderRows:]
	} else {
		rows = nil
	}

	t := &Table{Schema: schema, Columns: schema.ColumnNames(), Rows: make([][]string, len(rows))}
	for i, r := range rows {
		row := make([]string, len(r))
		for j, cell := range r {
			row[j] = stripBreaks(cell)
		}
		t.Rows[i] = row
	}
	return t, nil
}

// stripBreaks turns a wrapped cell into one line. Each break becomes a single
// space so the words on either side stay apart.
func stripBreaks(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
