package extract

import (
	"errors"
	"image"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/layout"
)

// errUnanchored marks an optional block whose anchor or line is missing.
var errUnanchored = errors.New("block anchor not present")

// Locator resolves template regions to page rectangles for one document.
type Locator struct {
	bounds  image.Rectangle
	lines   []layout.Line
	long    []layout.Line
	anchors layout.Anchors
}

// NewLocator binds the detected lines and anchors of one page.
func NewLocator(bounds image.Rectangle, lines []layout.Line, anchors layout.Anchors, longLineSpan int) *Locator {
	return &Locator{
		bounds:  bounds,
		lines:   lines,
		long:    layout.LongLines(lines, longLineSpan),
		anchors: anchors,
	}
}

// Rect computes the clamped rectangle of b. An inverted or out-of-page region
// yields an empty rectangle, which reads as empty text. A required block referencing
// a missing line is a structural error; an optional one returns errUnanchored.
func (l *Locator) Rect(b forms.Block) (image.Rectangle, error) {
	var r image.Rectangle
	var err error
	resolve := func(e forms.Edge, vertical bool) int {
		if err != nil {
			return 0
		}
		var v int
		v, err = l.edge(b, e, vertical)
		return v
	}
	r.Min.X = resolve(b.Region.Left, false)
	r.Min.Y = resolve(b.Region.Top, true)
	r.Max.X = resolve(b.Region.Right, false)
	r.Max.Y = resolve(b.Region.Bottom, true)
	if err != nil {
		return image.Rectangle{}, err
	}
	// Intersect returns the zero rectangle for inverted input.
	return r.Intersect(l.bounds), nil
}

func (l *Locator) edge(b forms.Block, e forms.Edge, vertical bool) (int, error) {
	switch e.From {
	case forms.End:
		if vertical {
			return l.bounds.Max.Y + e.Offset, nil
		}
		return l.bounds.Max.X + e.Offset, nil
	case forms.Line:
		set := l.lines
		if b.Lines == forms.LongLines {
			set = l.long
		}
		if e.Index < 0 || e.Index >= len(set) {
			if b.Optional {
				return 0, errUnanchored
			}
			return 0, ferrors.NewMissingLineError(fieldLabel(b), e.Index, len(set))
		}
		return coord(set[e.Index], e.Coord) + e.Offset, nil
	case forms.Anchor:
		line := l.anchors.Get(b.Anchor)
		if line == nil {
			if b.Optional {
				return 0, errUnanchored
			}
			return 0, ferrors.NewStructuralError("locate", "required anchor "+b.Anchor.String()+" not found for "+fieldLabel(b))
		}
		return coord(*line, e.Coord) + e.Offset, nil
	}
	return e.Offset, nil
}

func coord(l layout.Line, c forms.Coord) int {
	switch c {
	case forms.Y1:
		return l.Y1
	case forms.X2:
		return l.X2
	case forms.Y2:
		return l.Y2
	}
	return l.X1
}

func fieldLabel(b forms.Block) string {
	if len(b.Outputs) > 0 {
		return b.Outputs[0]
	}
	return b.Name
}
