package raster

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
)

// Pdftoppm renders pages with poppler's pdftoppm.
type Pdftoppm struct {
	Path    string
	DPI     int
	TempDir string
}

// Rasterize implements Rasterizer.
func (p *Pdftoppm) Rasterize(ctx context.Context, path string) ([]image.Image, error) {
	bin := p.Path
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 200
	}

	dir, err := os.MkdirTemp(p.TempDir, "formscan-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	cmd := exec.CommandContext(ctx, bin, "-r", strconv.Itoa(dpi), "-gray", "-png", path, filepath.Join(dir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	// pdftoppm zero-pads page numbers to a common width
	sort.Strings(files)

	pages := make([]image.Image, 0, len(files))
	for _, name := range files {
		img, err := decodeFile(name)
		if err != nil {
			return nil, err
		}
		pages = append(pages, img)
	}
	return pages, nil
}

func decodeFile(name string) (image.Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := Decode(f, filepath.Ext(name)[1:])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	return img, nil
}
