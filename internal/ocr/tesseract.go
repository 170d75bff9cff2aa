/**
 * Tesseract recognizer
 *
 * Offline OCR through gosseract. A fresh client is created for every call, so a
 * Tesseract value can be shared by goroutines while the underlying API handles are not.
 */

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TesseractConfig holds Tesseract configuration
type TesseractConfig struct {
	// TessdataPrefix overrides the TESSDATA_PREFIX of the engine when set.
	TessdataPrefix string
}

// Tesseract implements Recognizer with gosseract.
type Tesseract struct {
	tessdataPrefix string
}

// NewTesseract creates a new Tesseract recognizer
func NewTesseract(cfg *TesseractConfig) *Tesseract {
	if cfg == nil {
		cfg = &TesseractConfig{}
	}
	return &Tesseract{tessdataPrefix: cfg.TessdataPrefix}
}

type recognition struct {
	text string
	err  error
}

// Recognize runs Tesseract on img. The engine call cannot be interrupted, so on
// cancellation the client is left to finish in the background and its result dropped.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode crop: %w", err)
	}

	done := make(chan recognition, 1)
	go func() {
		text, err := t.run(buf.Bytes(), lang)
		done <- recognition{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func (t *Tesseract) run(data []byte, lang string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		client.TessdataPrefix = t.tessdataPrefix
	}
	if lang != "" {
		if err := client.SetLanguage(lang); err != nil {
			return "", fmt.Errorf("failed to set language %q: %w", lang, err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract OCR failed: %w", err)
	}
	return text, nil
}
