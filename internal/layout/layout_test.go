package layout

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
)

func whitePage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func drawRule(img *image.Gray, x1, x2, y, thickness int) {
	for dy := 0; dy < thickness; dy++ {
		for x := x1; x <= x2; x++ {
			img.SetGray(x, y+dy, color.Gray{Y: 0})
		}
	}
}

func TestIsHorizontal(t *testing.T) {
	assert.True(t, Line{0, 100, 1000, 105}.IsHorizontal())
	assert.False(t, Line{0, 100, 100, 120}.IsHorizontal())
	assert.False(t, Line{50, 0, 50, 400}.IsHorizontal())
}

func TestDuplicatesPredicate(t *testing.T) {
	tests := []struct {
		name string
		a, b Line
		want bool
	}{
		{"same rule", Line{100, 200, 1500, 200}, Line{103, 204, 1498, 204}, true},
		{"same row, different columns", Line{0, 100, 500, 100}, Line{600, 101, 1200, 101}, false},
		{"same left edge, far apart", Line{100, 100, 900, 100}, Line{100, 300, 900, 300}, false},
		{"close y2 and close x2 only", Line{0, 100, 900, 108}, Line{400, 130, 905, 101}, true},
		{"tolerance is strict", Line{0, 100, 900, 100}, Line{10, 110, 910, 110}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Duplicates(tt.a, tt.b, DedupeTolerance))
		})
	}
}

func TestDedupeComparesWithLastKept(t *testing.T) {
	a := Line{0, 0, 500, 0}
	b := Line{5, 8, 505, 8}
	c := Line{9, 16, 509, 16}

	// b duplicates a and is dropped; c is 16px below a, so it stays.
	assert.Equal(t, []Line{a, c}, Dedupe([]Line{a, b, c}))
}

func TestDedupeIdempotentOnSkippedNeighbour(t *testing.T) {
	lines := []Line{{0, 0, 100, 0}, {0, 5, 500, 5}, {50, 8, 100, 8}}

	once := Dedupe(lines)
	assert.Equal(t, []Line{{0, 0, 100, 0}}, once)
	assert.Equal(t, once, Dedupe(once))
}

func TestDedupeIdempotent(t *testing.T) {
	var lines []Line
	rows := []int{120, 260, 410, 415, 700, 1010}
	for i, y := range rows {
		for j := 0; j < 4; j++ {
			lines = append(lines, Line{X1: 100 + j, Y1: y + j, X2: 1400 - j, Y2: y + j})
		}
		if i%2 == 0 {
			lines = append(lines, Line{X1: 1600, Y1: y, X2: 2200, Y2: y})
		}
	}
	SortLines(lines)

	once := Dedupe(lines)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
	assert.Less(t, len(once), len(lines))
}

func TestNormalizeSorted(t *testing.T) {
	raw := []Line{
		{100, 900, 1500, 900},
		{100, 300, 1500, 301},
		{40, 10, 40, 800},
		{100, 600, 1500, 600},
		{102, 303, 1499, 303},
	}

	lines := Normalize(raw)
	require.Len(t, lines, 3)
	for i := 1; i < len(lines); i++ {
		assert.Less(t, lines[i-1].Y1, lines[i].Y1)
	}
}

func TestLongLines(t *testing.T) {
	lines := []Line{{0, 10, 1200, 10}, {0, 20, 1400, 20}, {300, 30, 1700, 30}}
	assert.Equal(t, []Line{{0, 20, 1400, 20}, {300, 30, 1700, 30}}, LongLines(lines, 1300))
}

func TestDetectSyntheticPage(t *testing.T) {
	page := whitePage(1200, 400)
	drawRule(page, 100, 1100, 100, 3)
	drawRule(page, 150, 1000, 250, 3)
	drawRule(page, 50, 200, 350, 3)

	d := NewDetector(nil, nil)
	lines, err := d.Detect(context.Background(), page, Params{Threshold: 200, MinLineLength: 300, MinLines: 2})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.InDelta(t, 100, lines[0].Y1, 6)
	assert.InDelta(t, 250, lines[1].Y1, 6)
	assert.Greater(t, lines[0].Span(), 900)
	assert.Greater(t, lines[1].Span(), 800)
}

func TestDetectStructuralFailures(t *testing.T) {
	d := NewDetector(nil, nil)

	_, err := d.Detect(context.Background(), whitePage(800, 200), Params{Threshold: 200, MinLineLength: 300})
	require.Error(t, err)
	assert.True(t, ferrors.IsStructural(err))

	page := whitePage(1200, 400)
	drawRule(page, 100, 1100, 100, 3)
	_, err = d.Detect(context.Background(), page, Params{Threshold: 200, MinLineLength: 300, MinLines: 3})
	require.Error(t, err)
	assert.True(t, ferrors.IsStructural(err))
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := whitePage(600, 200)
	drawRule(page, 10, 590, 100, 2)
	_, err := NewDetector(nil, nil).Detect(ctx, page, Params{Threshold: 10, MinLineLength: 100})
	require.ErrorIs(t, err, context.Canceled)
}

type stripReader struct {
	byBottom map[int]string
	calls    int
}

func (r *stripReader) Text(_ context.Context, _ image.Image, rect image.Rectangle) string {
	r.calls++
	return r.byBottom[rect.Max.Y]
}

func TestProbeAnchorsFirstMatchWins(t *testing.T) {
	lines := []Line{
		{0, 200, 2000, 200},
		{300, 600, 2000, 600},
		{300, 900, 1600, 900},
		{300, 1200, 2000, 1200},
	}
	reader := &stripReader{byBottom: map[int]string{
		600:  "Через кого",
		900:  "Затребовал Разрешил",
		1200: "Через кого",
	}}
	keywords := []Keyword{
		{Label: "Через", Slot: SlotViaWho},
		{Label: "Затребовал", Slot: SlotRequestedBy, Sibling: SlotAuthorizedBy},
		{Label: "Разрешил", Slot: SlotAuthorizedBy, Sibling: SlotRequestedBy},
	}

	a := ProbeAnchors(context.Background(), whitePage(10, 10), lines, reader, keywords)

	require.NotNil(t, a.ViaWho)
	assert.Equal(t, 600, a.ViaWho.Y1)
	require.NotNil(t, a.RequestedBy)
	assert.Equal(t, 900, a.RequestedBy.Y1)
	require.NotNil(t, a.AuthorizedBy)
	assert.Equal(t, 900, a.Get(SlotAuthorizedBy).Y1)

	// the first line starts at x=0, so its strip is empty and never read
	assert.Equal(t, 3, reader.calls)
}

func TestProbeAnchorsSiblingDoesNotOverwrite(t *testing.T) {
	lines := []Line{{300, 500, 2000, 500}, {300, 800, 2000, 800}}
	reader := &stripReader{byBottom: map[int]string{
		500: "Разрешил",
		800: "Затребовал",
	}}
	keywords := []Keyword{
		{Label: "Затребовал", Slot: SlotRequestedBy, Sibling: SlotAuthorizedBy},
		{Label: "Разрешил", Slot: SlotAuthorizedBy, Sibling: SlotRequestedBy},
	}

	a := ProbeAnchors(context.Background(), whitePage(10, 10), lines, reader, keywords)
	assert.Equal(t, 500, a.AuthorizedBy.Y1)
	assert.Equal(t, 500, a.RequestedBy.Y1)
	assert.Nil(t, a.ViaWho)
}
