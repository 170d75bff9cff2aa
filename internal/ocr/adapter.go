package ocr

import (
	"context"
	"image"
	"image/draw"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// Recognizer is the text recognition engine.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, lang string) (string, error)
}

// Adapter crops page regions, calls the recognizer under a per-call timeout and
// normalizes the result. Failures are logged and read as empty text.
type Adapter struct {
	rec     Recognizer
	lang    string
	timeout time.Duration
	log     *logging.Logger
}

// NewAdapter creates an adapter. A zero timeout disables the per-call deadline.
func NewAdapter(rec Recognizer, lang string, timeout time.Duration, log *logging.Logger) *Adapter {
	if log == nil {
		log = logging.Nop()
	}
	return &Adapter{rec: rec, lang: lang, timeout: timeout, log: log}
}

// Text recognizes r on page and returns a single-line normalized string.
func (a *Adapter) Text(ctx context.Context, page image.Image, r image.Rectangle) string {
	r = r.Intersect(page.Bounds())
	if r.Empty() {
		return ""
	}
	return Normalize(a.recognize(ctx, crop(page, r), r))
}

// PageText recognizes the whole page, keeping line breaks.
func (a *Adapter) PageText(ctx context.Context, page image.Image) string {
	raw := a.recognize(ctx, page, page.Bounds())
	return norm.NFC.String(strings.TrimSpace(raw))
}

func (a *Adapter) recognize(ctx context.Context, img image.Image, r image.Rectangle) string {
	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.rec.Recognize(callCtx, img, a.lang)
	if err != nil {
		a.log.Warn("Recognition degraded, using empty text", "rect", r.String(), "error", err)
		return ""
	}
	if strings.TrimSpace(text) == "" {
		a.log.Debug("Recognition returned no text", "rect", r.String())
	}
	return text
}

// Normalize trims, joins lines with single spaces, trims again and applies NFC.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return norm.NFC.String(strings.TrimSpace(s))
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop returns r of img with its origin kept, so encoders see only the region.
func crop(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(r)
	draw.Draw(dst, r, img, r.Min, draw.Src)
	return dst
}
