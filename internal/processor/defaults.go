package processor

import (
	"github.com/Donskoy-Andrey/Documents-Parser/internal/config"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/layout"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/ocr"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/raster"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/tables"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/validate"
)

// NewFromConfig wires the production collaborators: embedded page scans with a
// pdftoppm fallback, Tesseract OCR, and lattice tables with a text-layer fallback.
func NewFromConfig(cfg *config.Config, log *logging.Logger) (*Processor, error) {
	if log == nil {
		log = logging.Nop()
	}

	rasterizer := raster.NewChain(0, log.With("component", "raster"),
		raster.NewEmbedded(log),
		&raster.Pdftoppm{Path: cfg.PdftoppmPath, DPI: cfg.RasterDPI, TempDir: cfg.TempDir},
	)

	reader := ocr.NewAdapter(
		ocr.NewTesseract(&ocr.TesseractConfig{TessdataPrefix: cfg.TessdataPrefix}),
		cfg.Language, cfg.OCRTimeout, log.With("component", "ocr"))

	extractor := tables.NewFirstOf(log.With("component", "tables"),
		tables.NewLattice(log),
		tables.NewDelimited(log),
	)

	return NewProcessor(&ProcessorConfig{
		Rasterizer:        rasterizer,
		Tables:            extractor,
		Reader:            reader,
		Detector:          layout.NewDetector(layout.RunSegments{}, log),
		Validator:         validate.New(),
		RasterTimeout:     cfg.RasterTimeout,
		TableTimeout:      cfg.TableTimeout,
		ProcessingTimeout: cfg.ProcessingTimeout,
		MaxFileSize:       cfg.MaxFileSize,
		TempDir:           cfg.TempDir,
		Logger:            log,
	})
}
