/**
 * Field extraction
 *
 * Runs one template against the rasterized pages of a document: rule lines are
 * detected on the first page, labelled anchors are probed, and every enabled block
 * is located, read and parsed into the ordered Report.
 */

package extract

import (
	"context"
	"errors"
	"image"
	"strings"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/layout"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// Reader reads normalized text from page regions and raw text from whole pages.
type Reader interface {
	layout.TextReader
	// PageText returns the text of a full page with line breaks preserved.
	PageText(ctx context.Context, page image.Image) string
}

// Extractor builds Reports. It holds no per-document state.
type Extractor struct {
	detector *layout.Detector
	reader   Reader
	log      *logging.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(detector *layout.Detector, reader Reader, log *logging.Logger) *Extractor {
	if log == nil {
		log = logging.Nop()
	}
	return &Extractor{detector: detector, reader: reader, log: log}
}

// Extract builds the report of tpl from pages. Structural failures abort with no
// partial report; unreadable optional fields become null.
func (e *Extractor) Extract(ctx context.Context, pages []image.Image, tpl *forms.Template, gates forms.Gates) (*Report, error) {
	if len(pages) == 0 {
		return nil, ferrors.NewStructuralError("raster", "document has no pages")
	}
	page := pages[0]
	log := e.log.With("form", string(tpl.Kind))

	log.Info("Detect lines")
	lines, err := e.detector.Detect(ctx, page, tpl.Lines)
	if err != nil {
		return nil, err
	}

	var anchors layout.Anchors
	if len(tpl.Keywords) > 0 {
		anchors = layout.ProbeAnchors(ctx, page, lines, e.reader, tpl.Keywords)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loc := NewLocator(page.Bounds(), lines, anchors, tpl.LongLineSpan)
	b := newBuilder(tpl.Kind, tpl.FieldNames(gates))

	for i, block := range tpl.Blocks {
		if !gates.Enabled(block.Gate) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("Parsing block", "step", i+1, "block", block.Name)

		values, err := e.readBlock(ctx, pages, loc, block)
		if err != nil {
			return nil, err
		}
		for j, name := range block.Outputs {
			if err := b.set(name, values[j]); err != nil {
				return nil, ferrors.NewStructuralError("report", err.Error())
			}
		}
	}

	return b.build(), nil
}

func (e *Extractor) readBlock(ctx context.Context, pages []image.Image, loc *Locator, block forms.Block) ([]Value, error) {
	if block.Parser.Kind == forms.ParseLabelScan {
		var full strings.Builder
		for _, p := range pages {
			full.WriteString(e.reader.PageText(ctx, p))
			full.WriteByte('\n')
		}
		return ScanLabels(full.String(), block.Outputs), nil
	}

	rect, err := loc.Rect(block)
	if errors.Is(err, errUnanchored) {
		e.log.Warn("Optional block not anchored, fields set to null", "block", block.Name)
		out := make([]Value, len(block.Outputs))
		for i := range out {
			out[i] = null
		}
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	raw := e.reader.Text(ctx, pages[0], rect)
	return Parse(block.Parser, raw, len(block.Outputs)), nil
}
