package raster

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// Embedded extracts the largest image of every page. It fails for pages that
// carry no image, so vector PDFs fall through to the next rasterizer.
type Embedded struct {
	log *logging.Logger
}

// NewEmbedded creates an embedded-scan rasterizer.
func NewEmbedded(log *logging.Logger) *Embedded {
	if log == nil {
		log = logging.Nop()
	}
	return &Embedded{log: log}
}

// Rasterize implements Rasterizer.
func (e *Embedded) Rasterize(ctx context.Context, path string) ([]image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pdf, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]image.Image, 0, pdf.PageCount)
	for pageNr := 1; pageNr <= pdf.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := largestPageImage(pdf, pageNr)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

func largestPageImage(pdf *model.Context, pageNr int) (image.Image, error) {
	images, err := pdfcpu.ExtractPageImages(pdf, pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	var best *model.Image
	for objNr := range images {
		img := images[objNr]
		if best == nil || img.Width*img.Height > best.Width*best.Height {
			best = &img
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no embedded scan")
	}
	return Decode(best, best.FileType)
}
