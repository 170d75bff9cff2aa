/**
 * Declarative form templates
 *
 * A template describes where every field of one printed form lives, relative to the
 * page edges or to detected rule lines, and how the recognized text is post-processed.
 * Template drift between form revisions is expressed here as data.
 */

package forms

import (
	"fmt"
	"strings"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/layout"
)

// Kind identifies a supported form family.
type Kind string

const (
	KindM11   Kind = "m11"
	KindFMU76 Kind = "fmu76"
)

// ParseKind accepts the CLI/queue spelling of a form kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m11", "m-11", "м-11", "м11":
		return KindM11, nil
	case "fmu76", "fmu-76", "фму-76", "фму76":
		return KindFMU76, nil
	}
	return "", fmt.Errorf("unknown form kind %q (want m11 or fmu76)", s)
}

// Gate switches a group of fields on or off per request.
type Gate string

const (
	GateNone      Gate = ""
	GateCommittee Gate = "committee"
)

// Gates holds the enabled optional gates of one request.
type Gates struct {
	Committee bool
}

// Enabled reports whether fields behind g should be produced.
func (g Gates) Enabled(gate Gate) bool {
	switch gate {
	case GateNone:
		return true
	case GateCommittee:
		return g.Committee
	}
	return false
}

// FieldSpec is one entry of the ordered report schema.
type FieldSpec struct {
	Name string
	Gate Gate
}

// Source selects what an Edge is measured from.
type Source int

const (
	// Start is the page origin; Offset is the absolute coordinate.
	Start Source = iota
	// End is the page width (x) or height (y); Offset is usually negative.
	End
	// Line is a detected rule line addressed by Index.
	Line
	// Anchor is the line recorded for the block's anchor slot.
	Anchor
)

// Coord picks one coordinate of a line.
type Coord int

const (
	X1 Coord = iota
	Y1
	X2
	Y2
)

// Edge is one side of a field rectangle.
type Edge struct {
	From   Source
	Index  int
	Coord  Coord
	Offset int
}

// At is an absolute pixel coordinate.
func At(v int) Edge { return Edge{From: Start, Offset: v} }

// FromEnd is measured back from the right or bottom page edge.
func FromEnd(offset int) Edge { return Edge{From: End, Offset: offset} }

// LineEdge is measured from a coordinate of line index.
func LineEdge(index int, c Coord, offset int) Edge {
	return Edge{From: Line, Index: index, Coord: c, Offset: offset}
}

// AnchorEdge is measured from a coordinate of the block anchor.
func AnchorEdge(c Coord, offset int) Edge {
	return Edge{From: Anchor, Coord: c, Offset: offset}
}

// Region is a rectangle [Left, Right) x [Top, Bottom).
type Region struct {
	Left, Top, Right, Bottom Edge
}

// ParserKind selects the post-processing applied to recognized text.
type ParserKind int

const (
	ParsePlain ParserKind = iota
	// ParseAfterSeparator keeps the text after Separator.
	ParseAfterSeparator
	// ParseTokens splits on whitespace and picks Primary indices, or Fallback when
	// there are too few tokens for Primary.
	ParseTokens
	// ParseStripLabel removes Label from the text.
	ParseStripLabel
	// ParseActNumberDate splits "<number> <date>" after removing table rule artefacts.
	ParseActNumberDate
	// ParseLabelScan reads "label: value" lines from the full text of every page.
	ParseLabelScan
)

// Parser configures one ParserKind.
type Parser struct {
	Kind        ParserKind
	Separator   string
	Primary     []int
	Fallback    []int
	Label       string
	NullIfEmpty bool
}

// LineSet selects which detected lines a block indexes into.
type LineSet int

const (
	AllLines LineSet = iota
	// LongLines keeps only lines with span greater than Template.LongLineSpan.
	LongLines
)

// Block extracts one or more report fields from one region.
type Block struct {
	Name    string
	Region  Region
	Parser  Parser
	Outputs []string
	// Optional blocks produce null fields instead of failing when their anchor or
	// lines are missing.
	Optional bool
	Anchor   layout.AnchorSlot
	Lines    LineSet
	Gate     Gate
}

// Template is the complete layout definition of one form family.
type Template struct {
	Kind  Kind
	Title string
	// PageWidth is the raster width the pixel constants are expressed in.
	PageWidth    int
	Lines        layout.Params
	LongLineSpan int
	Keywords     []layout.Keyword
	Fields       []FieldSpec
	Blocks       []Block
	Tables       TableLayout
	// RequiredPhrase must appear in the "Тип формы" field.
	RequiredPhrase string
}

// FieldNames returns the report field order for the enabled gates.
func (t *Template) FieldNames(g Gates) []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		if g.Enabled(f.Gate) {
			names = append(names, f.Name)
		}
	}
	return names
}

// Check verifies that every block output is a declared field and that every
// declared field has exactly one producing block.
func (t *Template) Check() error {
	declared := make(map[string]Gate, len(t.Fields))
	for _, f := range t.Fields {
		if _, dup := declared[f.Name]; dup {
			return fmt.Errorf("%s: field %q declared twice", t.Kind, f.Name)
		}
		declared[f.Name] = f.Gate
	}
	produced := make(map[string]bool, len(t.Fields))
	for _, b := range t.Blocks {
		for _, out := range b.Outputs {
			gate, ok := declared[out]
			if !ok {
				return fmt.Errorf("%s: block %q produces undeclared field %q", t.Kind, b.Name, out)
			}
			if gate != b.Gate {
				return fmt.Errorf("%s: field %q gate mismatch in block %q", t.Kind, out, b.Name)
			}
			if produced[out] {
				return fmt.Errorf("%s: field %q produced twice", t.Kind, out)
			}
			produced[out] = true
		}
	}
	for _, f := range t.Fields {
		if !produced[f.Name] {
			return fmt.Errorf("%s: field %q has no block", t.Kind, f.Name)
		}
	}
	return nil
}

var registry = map[Kind]*Template{}

func register(t *Template) *Template {
	if err := t.Check(); err != nil {
		panic(err)
	}
	registry[t.Kind] = t
	return t
}

// Lookup returns the template for kind.
func Lookup(kind Kind) (*Template, error) {
	t, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("no template for form kind %q", kind)
	}
	return t, nil
}

// Kinds lists the registered form kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindM11, KindFMU76}
}
