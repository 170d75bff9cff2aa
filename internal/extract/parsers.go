package extract

import (
	"strings"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
)

// Parse post-processes the recognized text of one block into n output values.
func Parse(p forms.Parser, raw string, n int) []Value {
	switch p.Kind {
	case forms.ParseAfterSeparator:
		return pad([]Value{text(afterSeparator(raw, p.Separator))}, n)
	case forms.ParseTokens:
		return pad(pickTokens(raw, p.Primary, p.Fallback), n)
	case forms.ParseStripLabel:
		v := stripLabel(raw, p.Label)
		if v == "" && p.NullIfEmpty {
			return pad([]Value{null}, n)
		}
		return pad([]Value{text(v)}, n)
	case forms.ParseActNumberDate:
		return pad(actNumberDate(raw), n)
	}
	return pad([]Value{text(raw)}, n)
}

// afterSeparator returns the segment following the first separator, or "" when the
// separator is missing.
func afterSeparator(raw, sep string) string {
	parts := strings.Split(raw, sep)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// pickTokens reads whitespace tokens at primary positions. When the text holds too
// few tokens for the primary layout (the leading label was not recognized) the
// fallback positions are used. Positions past the end yield "".
func pickTokens(raw string, primary, fallback []int) []Value {
	tokens := strings.Fields(raw)
	idx := primary
	if len(fallback) > 0 && len(tokens) <= maxIndex(primary) {
		idx = fallback
	}
	out := make([]Value, len(idx))
	for i, at := range idx {
		if at < len(tokens) {
			out[i] = text(tokens[at])
		}
	}
	return out
}

func maxIndex(idx []int) int {
	m := -1
	for _, i := range idx {
		if i > m {
			m = i
		}
	}
	return m
}

func stripLabel(raw, label string) string {
	s := strings.ReplaceAll(raw, label, "")
	s = strings.ReplaceAll(s, "  ", " ")
	return strings.TrimSpace(s)
}

// actNumberDate splits "<number> <date>" printed in a two-cell box; the box rules are
// recognized as '|' and '—'.
func actNumberDate(raw string) []Value {
	s := strings.ReplaceAll(raw, "|", " ")
	s = strings.ReplaceAll(s, "—", "")
	tokens := strings.Fields(s)
	out := []Value{text(""), text("")}
	for i := 0; i < len(tokens) && i < 2; i++ {
		out[i] = text(tokens[i])
	}
	return out
}

// ScanLabels looks for "label: value" lines in full page text. A later occurrence of
// a label overrides an earlier one; labels never seen are null.
func ScanLabels(fullText string, labels []string) []Value {
	out := make([]Value, len(labels))
	for i := range out {
		out[i] = null
	}
	for _, line := range strings.Split(fullText, "\n") {
		for i, label := range labels {
			if !strings.Contains(line, label) {
				continue
			}
			parts := strings.Split(line, ":")
			if len(parts) < 2 {
				out[i] = text("")
				continue
			}
			out[i] = text(strings.TrimSpace(parts[1]))
		}
	}
	return out
}

func pad(vals []Value, n int) []Value {
	for len(vals) < n {
		vals = append(vals, text(""))
	}
	return vals[:n]
}
