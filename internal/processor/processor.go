/**
 * Document Processor for formscan
 *
 * Runs the extraction pipeline for one document, strictly in sequence:
 * - Input checks (existence, extension, PDF magic bytes, size limit)
 * - Rasterization and scaling to the template width
 * - Line detection, anchor probing, field location, OCR and parsing
 * - Raw table extraction and stitching
 * - Validation of the report and both tables
 *
 * Every external collaborator call runs under its own timeout.
 */

package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/extract"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/layout"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/raster"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/tables"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/validate"
)

var pdfMagic = []byte("%PDF")

// DocumentProcessorInterface defines the interface for document processing
type DocumentProcessorInterface interface {
	Process(ctx context.Context, path string, kind forms.Kind, opts Options) (*Result, error)
	ProcessBytes(ctx context.Context, data []byte, kind forms.Kind, opts Options) (*Result, error)
}

// ProcessorConfig holds the collaborators and limits of a processor
type ProcessorConfig struct {
	Rasterizer raster.Rasterizer
	Tables     tables.Extractor
	Reader     extract.Reader
	// Detector defaults to the run-based segment detector.
	Detector  *layout.Detector
	Validator *validate.Validator

	RasterTimeout     time.Duration
	TableTimeout      time.Duration
	ProcessingTimeout time.Duration

	MaxFileSize int64
	TempDir     string

	Logger *logging.Logger
}

// Options are per-document switches.
type Options struct {
	// Committee enables the optional committee block of ФМУ-76.
	Committee bool
	// DocumentID tags logs and errors; a random ID is generated when empty.
	DocumentID string
}

func (o Options) gates() forms.Gates {
	return forms.Gates{Committee: o.Committee}
}

// Result is the outcome of a full pipeline run.
type Result struct {
	DocumentID       string            `json:"documentId" yaml:"documentId"`
	Form             forms.Kind        `json:"form" yaml:"form"`
	Report           *extract.Report   `json:"report" yaml:"report"`
	Tables           [2]*tables.Table  `json:"tables" yaml:"tables"`
	Fallback         bool              `json:"tablesFallback,omitempty" yaml:"tablesFallback,omitempty"`
	Outcome          *validate.Outcome `json:"outcome" yaml:"outcome"`
	ProcessingTimeMs int64             `json:"processingTimeMs" yaml:"processingTimeMs"`
}

// Processor handles documents. It keeps no per-document state, so one instance can
// serve concurrent callers as long as its collaborators can.
type Processor struct {
	config    *ProcessorConfig
	extractor *extract.Extractor
	stitcher  *tables.Stitcher
	validator *validate.Validator
	log       *logging.Logger
}

// NewProcessor creates a new document processor
func NewProcessor(cfg *ProcessorConfig) (*Processor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Rasterizer == nil {
		return nil, fmt.Errorf("rasterizer is required")
	}
	if cfg.Reader == nil {
		return nil, fmt.Errorf("text reader is required")
	}
	if cfg.Tables == nil {
		return nil, fmt.Errorf("table extractor is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	detector := cfg.Detector
	if detector == nil {
		detector = layout.NewDetector(nil, log)
	}
	v := cfg.Validator
	if v == nil {
		v = validate.New()
	}

	return &Processor{
		config:    cfg,
		extractor: extract.NewExtractor(detector, cfg.Reader, log),
		stitcher:  tables.NewStitcher(log),
		validator: v,
		log:       log,
	}, nil
}

// ExtractDocument builds the field report of the document at path.
func (p *Processor) ExtractDocument(ctx context.Context, path string, kind forms.Kind, opts Options) (*extract.Report, error) {
	tpl, err := lookup(path, kind)
	if err != nil {
		return nil, err
	}
	if err := p.checkInput(path); err != nil {
		return nil, err
	}
	id := documentID(opts)
	return p.extractReport(ctx, id, path, tpl, opts)
}

// ExtractTables extracts and stitches the two tables of the document at path.
func (p *Processor) ExtractTables(ctx context.Context, path string, kind forms.Kind) (*tables.Stitched, error) {
	tpl, err := lookup(path, kind)
	if err != nil {
		return nil, err
	}
	if err := p.checkInput(path); err != nil {
		return nil, err
	}
	return p.extractTables(ctx, documentID(Options{}), path, tpl)
}

// Process runs every stage on the document at path. A rejected document is a
// successful run; only fatal conditions are returned as errors.
func (p *Processor) Process(ctx context.Context, path string, kind forms.Kind, opts Options) (*Result, error) {
	start := time.Now()
	id := documentID(opts)
	log := p.log.With("document", id)

	tpl, err := lookup(path, kind)
	if err != nil {
		return nil, err
	}
	if err := p.checkInput(path); err != nil {
		return nil, err.WithDocument(id)
	}

	if p.config.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProcessingTimeout)
		defer cancel()
	}

	log.Info("Starting document processing pipeline", "form", tpl.Kind, "path", filepath.Base(path))

	log.Info("Step 1: Extracting report fields")
	report, err := p.extractReport(ctx, id, path, tpl, opts)
	if err != nil {
		return nil, p.overall(ctx, id, err)
	}

	log.Info("Step 2: Extracting tables")
	stitched, err := p.extractTables(ctx, id, path, tpl)
	if err != nil {
		return nil, p.overall(ctx, id, err)
	}

	log.Info("Step 3: Validating")
	outcome, err := p.validator.Document(tpl.Kind, report, stitched)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}

	res := &Result{
		DocumentID:       id,
		Form:             tpl.Kind,
		Report:           report,
		Tables:           stitched.Tables,
		Fallback:         stitched.Fallback,
		Outcome:          outcome,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	log.Info("Document processed",
		"accepted", outcome.Accepted, "issues", len(outcome.Locations), "duration_ms", res.ProcessingTimeMs)
	return res, nil
}

// ProcessBytes spools data to a temporary PDF file and processes it.
func (p *Processor) ProcessBytes(ctx context.Context, data []byte, kind forms.Kind, opts Options) (*Result, error) {
	if len(data) == 0 {
		return nil, ferrors.NewInvalidInputError("", "empty file buffer")
	}
	if p.config.MaxFileSize > 0 && int64(len(data)) > p.config.MaxFileSize {
		return nil, ferrors.NewInvalidInputError("",
			fmt.Sprintf("file too large: %d bytes exceeds limit of %d", len(data), p.config.MaxFileSize))
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, ferrors.NewInvalidInputError("", "buffer is not a PDF document")
	}

	f, err := os.CreateTemp(p.config.TempDir, "formscan-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	return p.Process(ctx, f.Name(), kind, opts)
}

func (p *Processor) extractReport(ctx context.Context, id, path string, tpl *forms.Template, opts Options) (*extract.Report, error) {
	rctx, cancel := withTimeout(ctx, p.config.RasterTimeout)
	pages, err := p.config.Rasterizer.Rasterize(rctx, path)
	cancel()
	if err != nil {
		return nil, stageError(id, p.config.RasterTimeout, err, func(err error) error {
			return ferrors.NewRasterizeFailedError(path, err).WithDocument(id)
		})
	}
	if len(pages) == 0 {
		return nil, ferrors.NewRasterizeFailedError(path, errors.New("document has no pages")).WithDocument(id)
	}

	scaled := make([]image.Image, len(pages))
	for i, pg := range pages {
		scaled[i] = raster.ScaleToWidth(pg, tpl.PageWidth)
	}

	report, err := p.extractor.Extract(ctx, scaled, tpl, opts.gates())
	if err != nil {
		var pe *ferrors.ProcessingError
		if errors.As(err, &pe) {
			return nil, pe.WithDocument(id)
		}
		return nil, err
	}
	return report, nil
}

func (p *Processor) extractTables(ctx context.Context, id, path string, tpl *forms.Template) (*tables.Stitched, error) {
	tctx, cancel := withTimeout(ctx, p.config.TableTimeout)
	frags, err := p.config.Tables.Extract(tctx, path)
	cancel()
	if err != nil {
		return nil, stageError(id, p.config.TableTimeout, err, func(err error) error {
			return ferrors.NewTableExtractionFailedError(path, err).WithDocument(id)
		})
	}
	p.log.Debug("Raw table fragments extracted", "document", id, "fragments", len(frags))

	stitched, err := p.stitcher.Stitch(frags, tpl)
	if err != nil {
		var pe *ferrors.ProcessingError
		if errors.As(err, &pe) {
			return nil, pe.WithDocument(id)
		}
		return nil, err
	}
	return stitched, nil
}

// checkInput rejects anything that is not a readable PDF within the size limit
// before any stage runs.
func (p *Processor) checkInput(path string) *ferrors.ProcessingError {
	if path == "" {
		return ferrors.NewInvalidInputError(path, "no input file given")
	}
	info, err := os.Stat(path)
	if err != nil {
		return ferrors.NewInvalidInputError(path, fmt.Sprintf("cannot access file: %v", err))
	}
	if info.IsDir() {
		return ferrors.NewInvalidInputError(path, "path is a directory")
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return ferrors.NewInvalidInputError(path, "only PDF files are supported")
	}
	if p.config.MaxFileSize > 0 && info.Size() > p.config.MaxFileSize {
		return ferrors.NewInvalidInputError(path,
			fmt.Sprintf("file too large: %d bytes exceeds limit of %d", info.Size(), p.config.MaxFileSize))
	}

	f, err := os.Open(path)
	if err != nil {
		return ferrors.NewInvalidInputError(path, fmt.Sprintf("cannot open file: %v", err))
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, pdfMagic) {
		return ferrors.NewInvalidInputError(path, "file is not a PDF document")
	}
	return nil
}

// overall maps an error raised after the processing deadline passed to a timeout.
func (p *Processor) overall(ctx context.Context, id string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && ferrors.CodeOf(err) != ferrors.ErrorProcessingTimeout {
		return ferrors.NewProcessingTimeoutError(id, p.config.ProcessingTimeout, err)
	}
	return err
}

func lookup(path string, kind forms.Kind) (*forms.Template, error) {
	tpl, err := forms.Lookup(kind)
	if err != nil {
		return nil, ferrors.NewInvalidInputError(path, err.Error())
	}
	return tpl, nil
}

func documentID(opts Options) string {
	if opts.DocumentID != "" {
		return opts.DocumentID
	}
	return uuid.New().String()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// stageError maps a collaborator failure: deadline overruns become timeouts,
// cancellation passes through, anything else is wrapped by wrap.
func stageError(id string, timeout time.Duration, err error, wrap func(error) error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ferrors.NewProcessingTimeoutError(id, timeout, err)
	case errors.Is(err, context.Canceled):
		return err
	}
	return wrap(err)
}
