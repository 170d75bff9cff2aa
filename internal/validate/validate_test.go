package validate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/extract"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/tables"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newValidator() *Validator {
	return &Validator{Now: func() time.Time { return fixedNow }}
}

func TestCheckDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"31.12.2023", true},
		{"1.2.2024", true},
		{"01.06.2024", true},
		{"32.01.2023", false},
		{"00.01.2023", false},
		{"15.13.2023", false},
		{"01-01-2023", false},
		{"01/01/2023", false},
		{"1.1.2025", false},
		{"01.01.23", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckDate(tt.in, fixedNow))
		})
	}
}

func TestCheckOrganization(t *testing.T) {
	assert.True(t, CheckOrganization("ООО Ромашка"))
	assert.True(t, CheckOrganization("ПАО \"Северсталь\""))
	assert.False(t, CheckOrganization("Ромашка"))
	assert.False(t, CheckOrganization(""))
}

func TestCheckName(t *testing.T) {
	assert.True(t, CheckName("Иванов И.И."))
	assert.True(t, CheckName("Petrov Ivan"))
	assert.False(t, CheckName("иванов И.И."))
	assert.False(t, CheckName("Иванов И"))
	assert.False(t, CheckName(""))
}

func TestNumericRules(t *testing.T) {
	assert.True(t, CheckNumber("0310001"))
	assert.True(t, CheckNumber(" 12.5 "))
	assert.False(t, CheckNumber("12,5"))
	assert.False(t, CheckNumber("NaN"))

	assert.True(t, CheckPositive("3"))
	assert.False(t, CheckPositive("0"))
	assert.False(t, CheckPositive("-1"))

	assert.True(t, CheckMinWords("Цех номер один", 3))
	assert.False(t, CheckMinWords("Цех один", 3))
}

func TestCellRules(t *testing.T) {
	assert.True(t, CheckDigits("0012"))
	assert.False(t, CheckDigits("12a"))
	assert.True(t, CheckMoney("1500,00"))
	assert.False(t, CheckMoney("1500.00"))
	assert.False(t, CheckMoney("1500"))
	assert.True(t, CheckAccountCode("10.01", "10"))
	assert.False(t, CheckAccountCode("20.01", "10"))
	assert.False(t, CheckAccountCode("10-01", "10"))
	assert.True(t, CheckAlphanumeric("Цех 12"))
	assert.False(t, CheckAlphanumeric("Цех#12"))
	assert.False(t, CheckAlphanumeric(""))
}

func TestReportMissingPhraseSingleIssue(t *testing.T) {
	r := extract.NewReport(forms.KindM11, []extract.Field{
		{Name: "Тип формы", Value: "Требование-накладная"},
		{Name: "Организация", Value: "ООО Ромашка"},
	})
	locs, reasons, err := newValidator().Report(forms.KindM11, r)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.Len(t, reasons, 1)
	assert.Equal(t, FieldAt("Тип формы"), locs[0])
	assert.Contains(t, reasons[0], "Типовая межотраслевая форма")
}

func TestReportDispatch(t *testing.T) {
	r := extract.NewReport(forms.KindM11, []extract.Field{
		{Name: "Тип формы", Value: "Типовая межотраслевая форма № М-11"},
		{Name: "Требование-накладная", Value: "x17"},
		{Name: "Организация", Value: "Ромашка"},
		{Name: "Структурное подразделение", Value: "Цех номер один"},
		{Name: "Коды [Форма по ОКУД]", Value: "0315006"},
		{Name: "Коды [Форма по ОКПО]", Value: "abc"},
		{Name: "Через кого", Null: true},
		{Name: "Разрешил", Value: "Иванов"},
		{Name: "Документа сбыта", Value: "0"},
		{Name: "Бухгалтерский документ", Value: "15"},
	})
	locs, reasons, err := newValidator().Report(forms.KindM11, r)
	require.NoError(t, err)
	require.Equal(t, len(locs), len(reasons))

	var fields []string
	for _, l := range locs {
		fields = append(fields, l.Field)
	}
	assert.Equal(t, []string{
		"Требование-накладная",
		"Организация",
		"Коды [Форма по ОКПО]",
		"Через кого",
		"Разрешил",
		"Документа сбыта",
	}, fields)
	assert.Equal(t, "value is missing", reasons[3])
}

func TestReportFMU76Rules(t *testing.T) {
	r := extract.NewReport(forms.KindFMU76, []extract.Field{
		{Name: "Тип формы", Value: "Форма ФМУ-76"},
		{Name: "Номер акта", Value: "42"},
		{Name: "Дата акта", Value: "12.05.2024"},
		{Name: "Утверждено (ФИО)", Value: "петров П.П."},
		{Name: "Утверждено (дата)", Value: "12.05.2030"},
	})
	locs, _, err := newValidator().Report(forms.KindFMU76, r)
	require.NoError(t, err)
	assert.Equal(t, []Location{FieldAt("Утверждено (ФИО)"), FieldAt("Утверждено (дата)")}, locs)
}

func TestReportErrors(t *testing.T) {
	_, _, err := newValidator().Report(forms.KindM11, nil)
	assert.Error(t, err)

	_, _, err = newValidator().Report(forms.Kind("m-99"), extract.NewReport(forms.KindM11, nil))
	assert.Error(t, err)
}

func m11Operation(rows ...[]string) *tables.Table {
	s := forms.M11.Tables.Schemas[0]
	return &tables.Table{Schema: s, Columns: s.ColumnNames(), Rows: rows}
}

func TestTableRules(t *testing.T) {
	tbl := m11Operation(
		[]string{"01.02.2023", "12", "Склад", "", "Цех 1", "", "10.01", "", ""},
		[]string{"1.2.23", "1a", "", "Склад", "", "", "20.01", "", "A-1"},
	)
	locs, reasons, err := newValidator().Table(tbl)
	require.NoError(t, err)
	require.Equal(t, len(locs), len(reasons))

	assert.Equal(t, []Location{
		CellAt("operation", 1, "Дата составления"),
		CellAt("operation", 1, "Код вида операции"),
		CellAt("operation", 1, "Корреспондирующий счет (счет, субсчет)"),
		CellAt("operation", 1, "Учетная единица выпуска продукции (работ, услуг)"),
		CellAt("operation", 1, "Получатель (структурное подразделение)"),
	}, locs)
	assert.Contains(t, reasons[4], "Получатель (вид деятельности)")
}

func TestTableMissingRequiredCell(t *testing.T) {
	s := forms.FMU76.Tables.Schemas[1]
	row := make([]string, len(s.Columns))
	row[0] = "Гвозди"
	row[1] = "1001"
	row[2] = "796"
	row[3] = "шт"
	row[5] = "10"
	row[6] = "150,00"
	row[7] = "20"
	tbl := &tables.Table{Schema: s, Columns: s.ColumnNames(), Rows: [][]string{row}}

	locs, _, err := newValidator().Table(tbl)
	require.NoError(t, err)
	assert.Empty(t, locs)

	row[6] = ""
	locs, reasons, err := newValidator().Table(tbl)
	require.NoError(t, err)
	assert.Equal(t, []Location{CellAt("consumption", 0, "Фактический расход (сумма)")}, locs)
	assert.Equal(t, []string{"value is missing"}, reasons)
}

func TestTableUnknownSchema(t *testing.T) {
	_, _, err := newValidator().Table(&tables.Table{Columns: []string{"Неизвестно"}})
	assert.Error(t, err)

	_, _, err = newValidator().Table(&tables.Table{Columns: []string{"Дата составления", "лишняя"}})
	assert.Error(t, err)
}

func TestDocumentOutcome(t *testing.T) {
	r := extract.NewReport(forms.KindM11, []extract.Field{
		{Name: "Тип формы", Value: "Типовая межотраслевая форма № М-11"},
	})
	good := m11Operation([]string{"01.02.2023", "", "Склад", "", "Цех 1", "", "", "", ""})

	out, err := newValidator().Document(forms.KindM11, r, &tables.Stitched{Tables: [2]*tables.Table{good, good}, Fallback: true})
	require.NoError(t, err)
	assert.True(t, out.Accepted)
	assert.Empty(t, out.Locations)

	bad := m11Operation([]string{"2023", "", "Склад", "", "Цех 1", "", "", "", ""})
	out, err = newValidator().Document(forms.KindM11, r, &tables.Stitched{Tables: [2]*tables.Table{bad, bad}})
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Len(t, out.Locations, 2)
	assert.Len(t, out.Reasons, 2)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"table":"operation"`)
}
