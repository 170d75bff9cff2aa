/**
 * Horizontal rule lines
 *
 * Lines are the coordinate anchors of a scanned form. Downstream code addresses them
 * by index, so the list must be sorted top to bottom and free of near-duplicates
 * before any field rectangle is computed.
 */

package layout

import (
	"math"
	"sort"
)

// DedupeTolerance is the pixel tolerance used by Dedupe.
const DedupeTolerance = 10

// maxSlope is the largest |dy|/|dx| still treated as horizontal.
const maxSlope = 0.1

// slopeEpsilon keeps vertical segments from dividing by zero.
const slopeEpsilon = 0.001

// Line is a detected rule segment in page pixel coordinates.
type Line struct {
	X1, Y1, X2, Y2 int
}

// Span returns the horizontal extent of the line.
func (l Line) Span() int {
	return abs(l.X2 - l.X1)
}

// IsHorizontal reports whether |dy| / (|dx| + eps) < 0.1.
func (l Line) IsHorizontal() bool {
	dy := math.Abs(float64(l.Y2 - l.Y1))
	dx := math.Abs(float64(l.X2 - l.X1))
	return dy/(dx+slopeEpsilon) < maxSlope
}

// FilterHorizontal keeps only near-horizontal segments, preserving order.
func FilterHorizontal(segments []Line) []Line {
	out := make([]Line, 0, len(segments))
	for _, s := range segments {
		if s.IsHorizontal() {
			out = append(out, s)
		}
	}
	return out
}

// SortLines sorts in place ascending by Y1. Ties keep detector order.
func SortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Y1 < lines[j].Y1
	})
}

// Duplicates reports whether b is a near-duplicate of a:
// (|y1a-y1b| < eps OR |y2a-y2b| < eps) AND (|x1a-x1b| < eps OR |x2a-x2b| < eps).
func Duplicates(a, b Line, eps int) bool {
	yClose := abs(a.Y1-b.Y1) < eps || abs(a.Y2-b.Y2) < eps
	xClose := abs(a.X1-b.X1) < eps || abs(a.X2-b.X2) < eps
	return yClose && xClose
}

// Dedupe drops every line that duplicates its predecessor in the output, that is
// the last line kept. No two neighbours of the result are duplicates, so a second
// pass is a no-op. Input must be sorted.
func Dedupe(sorted []Line) []Line {
	if len(sorted) == 0 {
		return nil
	}
	out := []Line{sorted[0]}
	for _, l := range sorted[1:] {
		if Duplicates(l, out[len(out)-1], DedupeTolerance) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Normalize filters, sorts and deduplicates raw segments.
func Normalize(segments []Line) []Line {
	lines := FilterHorizontal(segments)
	SortLines(lines)
	return Dedupe(lines)
}

// LongLines returns the lines whose span exceeds minSpan, in order.
func LongLines(lines []Line, minSpan int) []Line {
	var out []Line
	for _, l := range lines {
		if l.Span() > minSpan {
			out = append(out, l)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
