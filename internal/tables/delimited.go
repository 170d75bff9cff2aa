package tables

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
)

// Delimited finds tables in the plain text layer of a PDF: runs of consecutive
// lines split by the same delimiter ("|", tab) with a stable cell count.
// It is a lower-accuracy fallback for PDFs without ruling rectangles.
type Delimited struct {
	log *logging.Logger
}

// NewDelimited creates a text-heuristic extractor.
func NewDelimited(log *logging.Logger) *Delimited {
	if log == nil {
		log = logging.Nop()
	}
	return &Delimited{log: log}
}

// Extract implements Extractor.
func (d *Delimited) Extract(ctx context.Context, path string) ([]Fragment, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var out []Fragment
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			d.log.Warn("Skipping page without text layer", "page", i, "error", err)
			continue
		}
		found := DetectFragments(i, text)
		d.log.Debug("Text heuristics scanned page", "page", i, "tables", len(found))
		out = append(out, found...)
	}
	return out, nil
}

// DetectFragments splits page text into delimiter-based table regions. Only regions
// of two or more lines are kept.
func DetectFragments(page int, text string) []Fragment {
	lines := splitIntoLines(text)
	var out []Fragment

	i := 0
	for i < len(lines) {
		delimiter := detectDelimiter(lines[i])
		if delimiter == "" {
			i++
			continue
		}

		rows := [][]string{extractCells(lines[i], delimiter)}
		expected := len(rows[0])
		i++
		for i < len(lines) && detectDelimiter(lines[i]) == delimiter {
			cells := extractCells(lines[i], delimiter)
			if len(cells) != expected {
				break
			}
			rows = append(rows, cells)
			i++
		}

		if len(rows) >= 2 {
			out = append(out, NewFragment(page, rows))
		}
	}
	return out
}

// detectDelimiter identifies the delimiter used in a line
func detectDelimiter(line string) string {
	for _, delim := range []string{"|", "\t"} {
		// at least 2 delimiters needed for a table
		if strings.Count(line, delim) >= 2 {
			return delim
		}
	}
	return ""
}

// extractCells splits line into trimmed cells; the empty cells produced by leading
// and trailing pipes are removed.
func extractCells(line, delimiter string) []string {
	cells := strings.Split(line, delimiter)
	if delimiter == "|" {
		if len(cells) > 0 && strings.TrimSpace(cells[0]) == "" {
			cells = cells[1:]
		}
		if len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func splitIntoLines(text string) []string {
	var lines []string
	for _, l := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
