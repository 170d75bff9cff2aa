package layout

import (
	"context"
	"image"
	"image/color"
	"image/draw"
)

// SegmentParams tunes the segment primitive.
type SegmentParams struct {
	// Threshold is the minimum number of edge pixels (votes) on a segment.
	Threshold int
	// MinLineLength is the minimum segment length in pixels.
	MinLineLength int
	// MaxLineGap is the largest run of non-edge pixels bridged inside one segment.
	MaxLineGap int
}

// SegmentDetector finds straight segments on a binary edge map.
type SegmentDetector interface {
	Segments(ctx context.Context, edges *image.Gray, p SegmentParams) ([]Line, error)
}

// RunSegments is a horizontal run detector: every row is scanned for runs of edge
// pixels, bridged across gaps of at most MaxLineGap. It only reports horizontal
// segments, which is all the form templates anchor on.
type RunSegments struct{}

// Segments implements SegmentDetector.
func (RunSegments) Segments(ctx context.Context, edges *image.Gray, p SegmentParams) ([]Line, error) {
	b := edges.Bounds()
	var out []Line
	for y := b.Min.Y; y < b.Max.Y; y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		start, last, votes := -1, -1, 0
		flush := func() {
			if start >= 0 && last-start+1 >= p.MinLineLength && votes >= p.Threshold {
				out = append(out, Line{X1: start, Y1: y, X2: last, Y2: y})
			}
			start, last, votes = -1, -1, 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			if edges.GrayAt(x, y).Y == 0 {
				continue
			}
			if start >= 0 && x-last-1 > p.MaxLineGap {
				flush()
			}
			if start < 0 {
				start = x
			}
			last = x
			votes++
		}
		flush()
	}
	return out, nil
}

// ToGray converts any image to an 8-bit grayscale copy.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// Blur applies a separable 5x5 binomial (Gaussian) kernel.
func Blur(src *image.Gray) *image.Gray {
	kernel := [5]int{1, 4, 6, 4, 1}
	b := src.Bounds()
	tmp := image.NewGray(b)
	dst := image.NewGray(b)

	clampX := func(x int) int { return clamp(x, b.Min.X, b.Max.X-1) }
	clampY := func(y int) int { return clamp(y, b.Min.Y, b.Max.Y-1) }

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += kernel[k+2] * int(src.GrayAt(clampX(x+k), y).Y)
			}
			tmp.SetGray(x, y, color.Gray{Y: uint8(sum / 16)})
		}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				sum += kernel[k+2] * int(tmp.GrayAt(x, clampY(y+k)).Y)
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(sum / 16)})
		}
	}
	return dst
}

// Edges marks pixels whose Sobel gradient magnitude (L1) reaches threshold.
// Edge pixels are 255, everything else 0.
func Edges(src *image.Gray, threshold int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	at := func(x, y int) int {
		return int(src.GrayAt(clamp(x, b.Min.X, b.Max.X-1), clamp(y, b.Min.Y, b.Max.Y-1)).Y)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			if abs(gx)+abs(gy) >= threshold {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
