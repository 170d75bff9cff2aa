package tables

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// DefaultRulingTolerance is the maximum thickness, in PDF points, of a ruling
// rectangle and the distance under which two edges are considered the same.
const DefaultRulingTolerance = 2.0

// Lattice finds ruled tables: thin filled rectangles form the grid and glyphs are
// assigned to the cell containing their centre.
type Lattice struct {
	Tolerance float64
	log       *logging.Logger
}

// NewLattice creates a lattice extractor.
func NewLattice(log *logging.Logger) *Lattice {
	if log == nil {
		log = logging.Nop()
	}
	return &Lattice{Tolerance: DefaultRulingTolerance, log: log}
}

// Extract implements Extractor.
func (l *Lattice) Extract(ctx context.Context, path string) ([]Fragment, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var out []Fragment
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := pageContent(page)
		if err != nil {
			l.log.Warn("Skipping unreadable page content", "page", i, "error", err)
			continue
		}
		grids := Grids(i, content.Rect, content.Text, l.Tolerance)
		l.log.Debug("Lattice page scanned", "page", i, "rects", len(content.Rect), "tables", len(grids))
		out = append(out, grids...)
	}
	return out, nil
}

// pageContent guards against the panics the content stream interpreter raises on
// malformed operators.
func pageContent(p pdf.Page) (c pdf.Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream: %v", r)
		}
	}()
	return p.Content(), nil
}

type ruling struct {
	horizontal bool
	pos        float64
	from, to   float64
}

func (r ruling) box(tol float64) (x0, y0, x1, y1 float64) {
	if r.horizontal {
		return r.from - tol, r.pos - tol, r.to + tol, r.pos + tol
	}
	return r.pos - tol, r.from - tol, r.pos + tol, r.to + tol
}

func rulingsOf(rects []pdf.Rect, tol float64) []ruling {
	var out []ruling
	for _, rc := range rects {
		x0, x1 := math.Min(rc.Min.X, rc.Max.X), math.Max(rc.Min.X, rc.Max.X)
		y0, y1 := math.Min(rc.Min.Y, rc.Max.Y), math.Max(rc.Min.Y, rc.Max.Y)
		w, h := x1-x0, y1-y0
		switch {
		case h <= tol && w > tol:
			out = append(out, ruling{horizontal: true, pos: (y0 + y1) / 2, from: x0, to: x1})
		case w <= tol && h > tol:
			out = append(out, ruling{pos: (x0 + x1) / 2, from: y0, to: y1})
		case w > tol && h > tol:
			out = append(out,
				ruling{horizontal: true, pos: y0, from: x0, to: x1},
				ruling{horizontal: true, pos: y1, from: x0, to: x1},
				ruling{pos: x0, from: y0, to: y1},
				ruling{pos: x1, from: y0, to: y1},
			)
		}
	}
	return out
}

// clusters groups rulings whose tolerance boxes touch.
func clusters(rs []ruling, tol float64) [][]ruling {
	parent := make([]int, len(rs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range rs {
		ax0, ay0, ax1, ay1 := rs[i].box(tol)
		for j := i + 1; j < len(rs); j++ {
			bx0, by0, bx1, by1 := rs[j].box(tol)
			if ax0 <= bx1 && bx0 <= ax1 && ay0 <= by1 && by0 <= ay1 {
				parent[find(i)] = find(j)
			}
		}
	}
	groups := map[int][]ruling{}
	var order []int
	for i, r := range rs {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], r)
	}
	out := make([][]ruling, 0, len(order))
	for _, root := range order {
		out = append(out, groups[root])
	}
	return out
}

func uniq(vals []float64, tol float64) []float64 {
	sort.Float64s(vals)
	var out []float64
	for _, v := range vals {
		if len(out) == 0 || v-out[len(out)-1] > tol {
			out = append(out, v)
		}
	}
	return out
}

type grid struct {
	xs []float64 // ascending
	ys []float64 // descending, top of page first
}

func (g grid) cell(x, y float64) (row, col int, ok bool) {
	col, row = -1, -1
	for i := 0; i+1 < len(g.xs); i++ {
		if x >= g.xs[i] && x < g.xs[i+1] {
			col = i
			break
		}
	}
	for j := 0; j+1 < len(g.ys); j++ {
		if y <= g.ys[j] && y > g.ys[j+1] {
			row = j
			break
		}
	}
	return row, col, row >= 0 && col >= 0
}

// Grids builds one fragment per ruled table on a page, top to bottom.
func Grids(page int, rects []pdf.Rect, texts []pdf.Text, tol float64) []Fragment {
	var grids []grid
	for _, group := range clusters(rulingsOf(rects, tol), tol) {
		var xs, ys []float64
		for _, r := range group {
			if r.horizontal {
				ys = append(ys, r.pos)
			} else {
				xs = append(xs, r.pos)
			}
		}
		xs, ys = uniq(xs, tol), uniq(ys, tol)
		if len(xs) < 2 || len(ys) < 2 {
			continue
		}
		for i, j := 0, len(ys)-1; i < j; i, j = i+1, j-1 {
			ys[i], ys[j] = ys[j], ys[i]
		}
		grids = append(grids, grid{xs: xs, ys: ys})
	}
	sort.SliceStable(grids, func(i, j int) bool { return grids[i].ys[0] > grids[j].ys[0] })

	out := make([]Fragment, 0, len(grids))
	for _, g := range grids {
		glyphs := make([][][]pdf.Text, len(g.ys)-1)
		for r := range glyphs {
			glyphs[r] = make([][]pdf.Text, len(g.xs)-1)
		}
		for _, t := range texts {
			row, col, ok := g.cell(t.X+t.W/2, t.Y+t.FontSize*0.3)
			if ok {
				glyphs[row][col] = append(glyphs[row][col], t)
			}
		}
		cells := make([][]string, len(glyphs))
		for r := range glyphs {
			cells[r] = make([]string, len(glyphs[r]))
			for c := range glyphs[r] {
				cells[r][c] = cellText(glyphs[r][c])
			}
		}
		out = append(out, Fragment{Page: page, Cells: cells})
	}
	return out
}

// cellText joins glyphs in reading order; separate baselines become "\n".
func cellText(glyphs []pdf.Text) string {
	if len(glyphs) == 0 {
		return ""
	}
	sort.SliceStable(glyphs, func(i, j int) bool {
		a, b := glyphs[i], glyphs[j]
		if math.Abs(a.Y-b.Y) > lineGap(a, b) {
			return a.Y > b.Y
		}
		return a.X < b.X
	})

	var sb strings.Builder
	prev := glyphs[0]
	sb.WriteString(prev.S)
	for _, t := range glyphs[1:] {
		switch {
		case math.Abs(t.Y-prev.Y) > lineGap(t, prev):
			sb.WriteByte('\n')
		case t.X-(prev.X+prev.W) > math.Max(t.FontSize, prev.FontSize)*0.25:
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		prev = t
	}
	return strings.TrimSpace(sb.String())
}

func lineGap(a, b pdf.Text) float64 {
	return math.Max(math.Max(a.FontSize, b.FontSize)/2, 1)
}
