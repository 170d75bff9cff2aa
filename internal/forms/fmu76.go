package forms

import "github.com/Donskoy-Andrey/Documents-Parser/internal/layout"

// Approval and act blocks hang below the department divider (line 1).
const fmuDivider = 1

// ФМУ-76 "Акт о расходе материалов", A4 landscape at 200 dpi. The committee block
// indexes into long lines (span > 1300) 2, 3 and 4.
var FMU76 = register(&Template{
	Kind:           KindFMU76,
	Title:          "Акт о расходе материалов (ФМУ-76)",
	PageWidth:      2339,
	Lines:          layout.Params{Threshold: 200, MinLineLength: 300, MaxLineGap: 0, MinLines: 2},
	LongLineSpan:   1300,
	RequiredPhrase: "ФМУ-76",
	Fields: []FieldSpec{
		{Name: "Тип формы"},
		{Name: "Номер акта"},
		{Name: "Дата акта"},
		{Name: "Организация"},
		{Name: "Структурное подразделение"},
		{Name: "Утверждено (должность)"},
		{Name: "Утверждено (ФИО)"},
		{Name: "Утверждено (дата)"},
		{Name: "Коды [Форма по ОКУД]"},
		{Name: "Коды [Форма по ОКПО]"},
		{Name: "Коды [Форма, БЕ]"},
		{Name: "Материально ответственное лицо (должность)", Gate: GateCommittee},
		{Name: "Материально ответственное лицо (ФИО)", Gate: GateCommittee},
		{Name: "Направление расхода", Gate: GateCommittee},
		{Name: "Инвентарный номер ремонтируемого основного средства", Gate: GateCommittee},
		{Name: "Комиссия в составе", Gate: GateCommittee},
	},
	Blocks: []Block{
		{
			Name:    "hat",
			Region:  Region{Left: At(1600), Top: At(0), Right: FromEnd(0), Bottom: At(70)},
			Outputs: []string{"Тип формы"},
		},
		{
			Name: "organisation",
			Region: Region{
				Left: LineEdge(0, X1, 0), Top: LineEdge(0, Y1, -40),
				Right: LineEdge(0, X2, 0), Bottom: LineEdge(0, Y2, 0),
			},
			Outputs: []string{"Организация"},
		},
		{
			Name: "department",
			Region: Region{
				Left: LineEdge(0, X1, 0), Top: LineEdge(0, Y1, 20),
				Right: LineEdge(1, X2, 0), Bottom: LineEdge(1, Y1, 0),
			},
			Outputs: []string{"Структурное подразделение"},
		},
		{
			Name: "permission_leader",
			Region: Region{
				Left: At(1700), Top: LineEdge(fmuDivider, Y1, 100),
				Right: FromEnd(-350), Bottom: LineEdge(fmuDivider, Y1, 150),
			},
			Outputs: []string{"Утверждено (должность)"},
		},
		{
			Name: "permission_name",
			Region: Region{
				Left: At(1800), Top: LineEdge(fmuDivider, Y1, 150),
				Right: FromEnd(-250), Bottom: LineEdge(fmuDivider, Y1, 220),
			},
			Outputs: []string{"Утверждено (ФИО)"},
		},
		{
			Name: "permission_date",
			Region: Region{
				Left: At(1600), Top: LineEdge(fmuDivider, Y1, 240),
				Right: FromEnd(-300), Bottom: LineEdge(fmuDivider, Y1, 270),
			},
			Outputs: []string{"Утверждено (дата)"},
		},
		{
			Name: "act",
			Region: Region{
				Left: At(1040), Top: LineEdge(fmuDivider, Y1, 140),
				Right: At(1300), Bottom: LineEdge(fmuDivider, Y1, 180),
			},
			Parser:  Parser{Kind: ParseActNumberDate},
			Outputs: []string{"Номер акта", "Дата акта"},
		},
		{
			Name: "codes",
			Region: Region{
				Left: At(1980), Top: At(70),
				Right: FromEnd(-180), Bottom: LineEdge(fmuDivider, Y1, 10),
			},
			Parser:  Parser{Kind: ParseTokens, Primary: []int{1, 2, 3}, Fallback: []int{0, 1, 2}},
			Outputs: []string{"Коды [Форма по ОКУД]", "Коды [Форма по ОКПО]", "Коды [Форма, БЕ]"},
		},
		committeeBlock("committee_person_position", Region{
			Left: LineEdge(2, X1, 0), Top: LineEdge(2, Y1, -50),
			Right: LineEdge(2, X1, 285), Bottom: LineEdge(2, Y1, 0),
		}, "Материально ответственное лицо (должность)"),
		committeeBlock("committee_person_name", Region{
			Left: LineEdge(2, X1, 285), Top: LineEdge(2, Y1, -50),
			Right: LineEdge(2, X2, 0), Bottom: LineEdge(2, Y1, 0),
		}, "Материально ответственное лицо (ФИО)"),
		committeeBlock("committee_output", Region{
			Left: LineEdge(3, X1, 0), Top: LineEdge(3, Y1, -35),
			Right: LineEdge(3, X2, 0), Bottom: LineEdge(3, Y1, 0),
		}, "Направление расхода"),
		committeeBlock("committee_inventory", Region{
			Left: LineEdge(3, X1, 315), Top: LineEdge(3, Y1, 2),
			Right: LineEdge(3, X2, 0), Bottom: LineEdge(3, Y1, 35),
		}, "Инвентарный номер ремонтируемого основного средства"),
		committeeBlock("committee_members", Region{
			Left: LineEdge(4, X1, 0), Top: LineEdge(4, Y1, -50),
			Right: LineEdge(4, X2, 0), Bottom: LineEdge(4, Y1, 0),
		}, "Комиссия в составе"),
	},
	Tables: TableLayout{
		LeadingDrop:      1,
		TrailingDrop:     1,
		ContinuationSkip: 3,
		Schemas: [2]*TableSchema{
			{
				Form:       KindFMU76,
				Role:       "operation",
				HeaderRows: 2,
				Columns: []Column{
					{Name: "Номер документа", Rule: RuleDigits},
					{Name: "Дата составления", Rule: RuleDate},
					{Name: "Код вида операции", Rule: RuleDigits, AllowEmpty: true},
					{Name: "Отправитель", Rule: RuleOneOf, Group: "parties", MinLen: 2},
					{Name: "Получатель", Rule: RuleOneOf, Group: "parties", MinLen: 2},
				},
			},
			{
				Form:       KindFMU76,
				Role:       "consumption",
				HeaderRows: 3,
				Columns: []Column{
					{Name: "Материальные ценности (наименование)", Rule: RuleText},
					{Name: "Материальные ценности (номенклатурный номер)", Rule: RuleDigits},
					{Name: "Единица измерения (код)", Rule: RuleDigits},
					{Name: "Единица измерения (наименование)", Rule: RuleText},
					{Name: "Норма расхода", Rule: RuleText, AllowEmpty: true},
					{Name: "Фактический расход (количество)", Rule: RuleText},
					{Name: "Фактический расход (сумма)", Rule: RuleMoney},
					{Name: "Счет затрат", Rule: RuleAlphanumeric},
					{Name: "Статья затрат", Rule: RuleAlphanumeric, AllowEmpty: true},
				},
			},
		},
	},
})

func committeeBlock(name string, r Region, field string) Block {
	return Block{
		Name:     name,
		Region:   r,
		Outputs:  []string{field},
		Optional: true,
		Lines:    LongLines,
		Gate:     GateCommittee,
	}
}
