package layout

import (
	"context"
	"fmt"
	"image"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// DefaultEdgeThreshold mirrors Canny(50, 50) on the blurred page.
const DefaultEdgeThreshold = 50

// Params are the template-tunable detection settings.
type Params struct {
	Threshold     int
	MinLineLength int
	MaxLineGap    int
	// MinLines is how many lines must survive for the template to be usable.
	MinLines int
}

// Detector turns a page raster into the ordered anchor line list.
type Detector struct {
	segments      SegmentDetector
	edgeThreshold int
	log           *logging.Logger
}

// NewDetector creates a detector. A nil primitive selects RunSegments.
func NewDetector(primitive SegmentDetector, log *logging.Logger) *Detector {
	if primitive == nil {
		primitive = RunSegments{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Detector{
		segments:      primitive,
		edgeThreshold: DefaultEdgeThreshold,
		log:           log,
	}
}

// Detect runs blur, edge detection, the segment primitive, the horizontal filter,
// the sort and the dedupe pass. Too few lines is a structural failure.
func (d *Detector) Detect(ctx context.Context, page image.Image, p Params) ([]Line, error) {
	d.log.Debug("Detect lines", "threshold", p.Threshold, "min_length", p.MinLineLength)

	edges := Edges(Blur(ToGray(page)), d.edgeThreshold)

	raw, err := d.segments.Segments(ctx, edges, SegmentParams{
		Threshold:     p.Threshold,
		MinLineLength: p.MinLineLength,
		MaxLineGap:    p.MaxLineGap,
	})
	if err != nil {
		return nil, fmt.Errorf("segment detection: %w", err)
	}
	if len(raw) == 0 {
		return nil, ferrors.NewStructuralError("lines", "no line segments detected on page")
	}

	lines := Normalize(raw)
	d.log.Debug("Lines detected", "raw", len(raw), "kept", len(lines))

	if len(lines) < p.MinLines {
		return nil, ferrors.NewStructuralError("lines",
			fmt.Sprintf("template needs %d rule lines, found %d", p.MinLines, len(lines)))
	}
	return lines, nil
}
