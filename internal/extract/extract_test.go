package extract

import (
	"context"
	"encoding/json"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/layout"
)

type fixedSegments []layout.Line

func (f fixedSegments) Segments(context.Context, *image.Gray, layout.SegmentParams) ([]layout.Line, error) {
	return append([]layout.Line(nil), f...), nil
}

type fakeReader struct {
	texts    map[image.Rectangle]string
	pageText string
	reads    []image.Rectangle
}

func (r *fakeReader) Text(_ context.Context, _ image.Image, rect image.Rectangle) string {
	r.reads = append(r.reads, rect)
	return r.texts[rect]
}

func (r *fakeReader) PageText(context.Context, image.Image) string {
	return r.pageText
}

func blankPage() image.Image {
	return image.NewGray(image.Rect(0, 0, 2339, 1200))
}

func TestParseTokensFallback(t *testing.T) {
	p := forms.Parser{Kind: forms.ParseTokens, Primary: []int{1, 3, 4}, Fallback: []int{0, 2, 3}}

	full := Parse(p, "Форма 0315006 по 12345678 7", 3)
	assert.Equal(t, []Value{text("0315006"), text("12345678"), text("7")}, full)

	shifted := Parse(p, "0315006 по 12345678 7", 3)
	assert.Equal(t, []Value{text("0315006"), text("12345678"), text("7")}, shifted)

	short := Parse(p, "0315006", 3)
	assert.Equal(t, []Value{text("0315006"), text(""), text("")}, short)
}

func TestParseSimpleParsers(t *testing.T) {
	assert.Equal(t, []Value{text("17")},
		Parse(forms.Parser{Kind: forms.ParseAfterSeparator, Separator: "№"}, "ТРЕБОВАНИЕ-НАКЛАДНАЯ № 17", 1))
	assert.Equal(t, []Value{text("")},
		Parse(forms.Parser{Kind: forms.ParseAfterSeparator, Separator: "№"}, "ТРЕБОВАНИЕ-НАКЛАДНАЯ 17", 1))

	assert.Equal(t, []Value{text("Петров П.П.")},
		Parse(forms.Parser{Kind: forms.ParseStripLabel, Label: "Разрешил"}, "Разрешил  Петров П.П. ", 1))
	assert.Equal(t, []Value{null},
		Parse(forms.Parser{Kind: forms.ParseStripLabel, Label: "Затребовал", NullIfEmpty: true}, "Затребовал", 1))

	assert.Equal(t, []Value{text("42"), text("01.02.2023")},
		Parse(forms.Parser{Kind: forms.ParseActNumberDate}, "| 42 | — 01.02.2023 |", 2))
	assert.Equal(t, []Value{text(""), text("")},
		Parse(forms.Parser{Kind: forms.ParseActNumberDate}, "", 2))
}

func TestScanLabels(t *testing.T) {
	full := "Документа сбыта: 100\nпрочее\nДокумента сбыта: 200\nБухгалтерский документ без двоеточия"
	got := ScanLabels(full, []string{"Документа сбыта", "Документа материала", "Бухгалтерский документ"})
	assert.Equal(t, []Value{text("200"), null, text("")}, got)
}

func TestLocatorMissingLines(t *testing.T) {
	bounds := image.Rect(0, 0, 2339, 1200)
	loc := NewLocator(bounds, []layout.Line{{X1: 300, Y1: 300, X2: 2000, Y2: 300}}, layout.Anchors{}, 1300)

	required := forms.Block{
		Name:    "department",
		Region:  forms.Region{Left: forms.At(0), Top: forms.LineEdge(0, forms.Y1, 0), Right: forms.FromEnd(0), Bottom: forms.LineEdge(1, forms.Y1, 0)},
		Outputs: []string{"Структурное подразделение"},
	}
	_, err := loc.Rect(required)
	require.Error(t, err)
	assert.True(t, ferrors.IsStructural(err))

	optional := required
	optional.Optional = true
	_, err = loc.Rect(optional)
	assert.ErrorIs(t, err, errUnanchored)
}

func TestLocatorClampsAndEmpties(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 500)
	loc := NewLocator(bounds, []layout.Line{{X1: 100, Y1: 20, X2: 900, Y2: 20}}, layout.Anchors{}, 1300)

	r, err := loc.Rect(forms.Block{Region: forms.Region{
		Left: forms.At(-50), Top: forms.LineEdge(0, forms.Y1, -40), Right: forms.FromEnd(100), Bottom: forms.LineEdge(0, forms.Y1, 0),
	}})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1000, 20), r)

	r, err = loc.Rect(forms.Block{Region: forms.Region{
		Left: forms.At(500), Top: forms.At(300), Right: forms.At(400), Bottom: forms.At(400),
	}})
	require.NoError(t, err)
	assert.True(t, r.Empty())
}

func m11Reader() *fakeReader {
	return &fakeReader{
		texts: map[image.Rectangle]string{
			image.Rect(0, 750, 300, 800):       "Затребовал",
			image.Rect(1000, 30, 1600, 170):    "Типовая межотраслевая форма № М-11",
			image.Rect(400, 150, 1200, 210):    "ТРЕБОВАНИЕ-НАКЛАДНАЯ № 17",
			image.Rect(300, 260, 2000, 300):    "ООО Ромашка",
			image.Rect(300, 300, 2000, 450):    "Склад номер один",
			image.Rect(1949, 210, 2239, 450):   "Коды 0315006 по 12345678 7",
			image.Rect(100, 700, 800, 800):     "Затребовал Иванов И.И.",
			image.Rect(1539, 700, 2339, 800):   "Разрешил",
		},
		pageText: "Документа сбыта: 123\nшум\nБухгалтерский документ: 55",
	}
}

func TestExtractM11(t *testing.T) {
	segments := fixedSegments{
		{X1: 300, Y1: 450, X2: 2000, Y2: 450},
		{X1: 300, Y1: 300, X2: 2000, Y2: 300},
		{X1: 300, Y1: 800, X2: 1600, Y2: 800},
	}
	reader := m11Reader()
	ex := NewExtractor(layout.NewDetector(segments, nil), reader, nil)

	report, err := ex.Extract(context.Background(), []image.Image{blankPage()}, forms.M11, forms.Gates{})
	require.NoError(t, err)

	assert.Equal(t, forms.M11.FieldNames(forms.Gates{}), report.Names())
	assert.Equal(t, forms.KindM11, report.Kind())

	want := map[string]string{
		"Тип формы":                 "Типовая межотраслевая форма № М-11",
		"Требование-накладная":      "17",
		"Организация":               "ООО Ромашка",
		"Структурное подразделение": "Склад номер один",
		"Коды [Форма по ОКУД]":      "0315006",
		"Коды [Форма по ОКПО]":      "12345678",
		"Коды [Форма, 3 поле]":      "7",
		"Затребовал":                "Иванов И.И.",
		"Разрешил":                  "",
		"Документа сбыта":           "123",
		"Бухгалтерский документ":    "55",
	}
	for name, value := range want {
		f, ok := report.Get(name)
		require.True(t, ok, name)
		assert.False(t, f.Null, name)
		assert.Equal(t, value, f.Value, name)
	}

	via, _ := report.Get("Через кого")
	assert.True(t, via.Null)
	doc, _ := report.Get("Документа материала")
	assert.True(t, doc.Null)
}

func TestExtractOrderIndependentOfContent(t *testing.T) {
	segments := fixedSegments{
		{X1: 300, Y1: 300, X2: 2000, Y2: 300},
		{X1: 300, Y1: 450, X2: 2000, Y2: 450},
	}
	ex := NewExtractor(layout.NewDetector(segments, nil), &fakeReader{}, nil)

	for _, tpl := range []*forms.Template{forms.M11, forms.FMU76} {
		for _, gates := range []forms.Gates{{}, {Committee: true}} {
			report, err := ex.Extract(context.Background(), []image.Image{blankPage()}, tpl, gates)
			require.NoError(t, err)
			assert.Equal(t, tpl.FieldNames(gates), report.Names())
		}
	}
}

func TestExtractFMU76CommitteeWithoutLongLines(t *testing.T) {
	segments := fixedSegments{
		{X1: 200, Y1: 300, X2: 1000, Y2: 300},
		{X1: 200, Y1: 420, X2: 1100, Y2: 420},
	}
	reader := &fakeReader{texts: map[image.Rectangle]string{
		image.Rect(1040, 560, 1300, 600): "| 42 | 01.02.2023",
		image.Rect(1980, 70, 2159, 430):  "0315007 1234 55",
	}}
	ex := NewExtractor(layout.NewDetector(segments, nil), reader, nil)

	report, err := ex.Extract(context.Background(), []image.Image{blankPage()}, forms.FMU76, forms.Gates{Committee: true})
	require.NoError(t, err)

	assert.Equal(t, 16, report.Len())
	assert.Equal(t, "42", report.Value("Номер акта"))
	assert.Equal(t, "01.02.2023", report.Value("Дата акта"))
	assert.Equal(t, "0315007", report.Value("Коды [Форма по ОКУД]"))
	assert.Equal(t, "55", report.Value("Коды [Форма, БЕ]"))

	members, ok := report.Get("Комиссия в составе")
	require.True(t, ok)
	assert.True(t, members.Null)
}

func TestExtractStructuralErrors(t *testing.T) {
	ex := NewExtractor(layout.NewDetector(fixedSegments{{X1: 0, Y1: 10, X2: 900, Y2: 10}}, nil), &fakeReader{}, nil)

	_, err := ex.Extract(context.Background(), nil, forms.M11, forms.Gates{})
	assert.True(t, ferrors.IsStructural(err))

	_, err = ex.Extract(context.Background(), []image.Image{blankPage()}, forms.M11, forms.Gates{})
	assert.True(t, ferrors.IsStructural(err))
}

func TestReportEncoding(t *testing.T) {
	r := NewReport(forms.KindM11, []Field{
		{Name: "Тип формы", Value: "Типовая межотраслевая форма"},
		{Name: "Через кого", Null: true},
		{Name: "Организация", Value: "ООО Ромашка"},
	})

	js, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"Тип формы":"Типовая межотраслевая форма","Через кого":null,"Организация":"ООО Ромашка"}`, string(js))

	y, err := yaml.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, "Тип формы: Типовая межотраслевая форма\nЧерез кого: null\nОрганизация: ООО Ромашка\n", string(y))

	fields := r.Fields()
	fields[0].Value = "changed"
	assert.Equal(t, "Типовая межотраслевая форма", r.Value("Тип формы"))
}
