/**
 * Page rasterization
 *
 * Scanned forms arrive as PDFs wrapping one full-page image per page. The embedded
 * scans are extracted with pdfcpu; documents without them are rendered with pdftoppm.
 * Every page is scaled to the template width so pixel constants line up.
 */

package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// Rasterizer turns a PDF file into ordered page images.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) ([]image.Image, error)
}

// Chain tries rasterizers in order and scales the first successful result.
type Chain struct {
	steps []Rasterizer
	width int
	log   *logging.Logger
}

// NewChain creates a chain scaling pages to width. A zero width keeps native size.
func NewChain(width int, log *logging.Logger, steps ...Rasterizer) *Chain {
	if log == nil {
		log = logging.Nop()
	}
	return &Chain{steps: steps, width: width, log: log}
}

// Rasterize implements Rasterizer.
func (c *Chain) Rasterize(ctx context.Context, path string) ([]image.Image, error) {
	var lastErr error
	for i, step := range c.steps {
		pages, err := step.Rasterize(ctx, path)
		if err == nil && len(pages) > 0 {
			if c.width > 0 {
				for p := range pages {
					pages[p] = ScaleToWidth(pages[p], c.width)
				}
			}
			c.log.Debug("Rasterized document", "pages", len(pages), "step", i)
			return pages, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("no pages produced")
		}
		c.log.Warn("Rasterizer step failed, trying next", "step", i, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no rasterizer configured")
	}
	return nil, lastErr
}

// ScaleToWidth returns a grayscale copy of img resized to width, keeping aspect ratio.
func ScaleToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || (b.Dx() == width && b.Min == image.Point{}) {
		return img
	}
	height := b.Dy() * width / b.Dx()
	dst := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Decode reads an embedded page image. format is the pdfcpu file type
// ("png", "jpg", "tif"); an unknown type is sniffed by the standard decoders.
func Decode(r io.Reader, format string) (image.Image, error) {
	switch strings.ToLower(format) {
	case "png":
		return png.Decode(r)
	case "jpg", "jpeg":
		return jpeg.Decode(r)
	case "tif", "tiff":
		return tiff.Decode(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported page image format %q: %w", format, err)
	}
	return img, nil
}
