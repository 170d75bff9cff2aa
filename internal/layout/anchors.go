package layout

import (
	"context"
	"image"
	"strings"
)

// AnchorSlot names one optional labelled anchor.
type AnchorSlot int

const (
	SlotNone AnchorSlot = iota
	SlotViaWho
	SlotRequestedBy
	SlotAuthorizedBy
)

func (s AnchorSlot) String() string {
	switch s {
	case SlotViaWho:
		return "via_who"
	case SlotRequestedBy:
		return "requested_by"
	case SlotAuthorizedBy:
		return "authorized_by"
	}
	return "none"
}

// Anchors holds the labelled lines found while probing. Nil means the label was
// not seen on this document.
type Anchors struct {
	ViaWho       *Line
	RequestedBy  *Line
	AuthorizedBy *Line
}

// Get returns the line recorded for slot, or nil.
func (a Anchors) Get(slot AnchorSlot) *Line {
	switch slot {
	case SlotViaWho:
		return a.ViaWho
	case SlotRequestedBy:
		return a.RequestedBy
	case SlotAuthorizedBy:
		return a.AuthorizedBy
	}
	return nil
}

// setOnce records l for slot unless the slot is already filled.
func (a *Anchors) setOnce(slot AnchorSlot, l Line) {
	ptr := &a.ViaWho
	switch slot {
	case SlotViaWho:
	case SlotRequestedBy:
		ptr = &a.RequestedBy
	case SlotAuthorizedBy:
		ptr = &a.AuthorizedBy
	default:
		return
	}
	if *ptr == nil {
		line := l
		*ptr = &line
	}
}

// Keyword is a label searched for in the strip above each line. Sibling, when set,
// is filled from the same line if still empty: both approval labels on the М-11
// sheet sit on one rule.
type Keyword struct {
	Label   string
	Slot    AnchorSlot
	Sibling AnchorSlot
}

// ProbeHeight is the height of the text strip read above each line.
const ProbeHeight = 50

// TextReader reads normalized text from a page region.
type TextReader interface {
	Text(ctx context.Context, page image.Image, r image.Rectangle) string
}

// ProbeAnchors reads the strip left of and above every line and records the first
// line carrying each keyword.
func ProbeAnchors(ctx context.Context, page image.Image, lines []Line, reader TextReader, keywords []Keyword) Anchors {
	var a Anchors
	if len(keywords) == 0 {
		return a
	}
	for _, l := range lines {
		if ctx.Err() != nil {
			break
		}
		strip := image.Rect(0, l.Y1-ProbeHeight, l.X1, l.Y1)
		if strip.Empty() {
			continue
		}
		text := reader.Text(ctx, page, strip)
		if text == "" {
			continue
		}
		for _, kw := range keywords {
			if !strings.Contains(text, kw.Label) {
				continue
			}
			a.setOnce(kw.Slot, l)
			a.setOnce(kw.Sibling, l)
		}
	}
	return a
}
