package forms

import "github.com/Donskoy-Andrey/Documents-Parser/internal/layout"

// М-11 "Требование-накладная", A4 landscape at 200 dpi.
var M11 = register(&Template{
	Kind:           KindM11,
	Title:          "Требование-накладная (М-11)",
	PageWidth:      2339,
	Lines:          layout.Params{Threshold: 200, MinLineLength: 300, MaxLineGap: 0, MinLines: 2},
	LongLineSpan:   1300,
	RequiredPhrase: "Типовая межотраслевая форма",
	Keywords: []layout.Keyword{
		{Label: "Через", Slot: layout.SlotViaWho},
		{Label: "Затребовал", Slot: layout.SlotRequestedBy, Sibling: layout.SlotAuthorizedBy},
		{Label: "Разрешил", Slot: layout.SlotAuthorizedBy, Sibling: layout.SlotRequestedBy},
	},
	Fields: []FieldSpec{
		{Name: "Тип формы"},
		{Name: "Требование-накладная"},
		{Name: "Организация"},
		{Name: "Структурное подразделение"},
		{Name: "Коды [Форма по ОКУД]"},
		{Name: "Коды [Форма по ОКПО]"},
		{Name: "Коды [Форма, 3 поле]"},
		{Name: "Через кого"},
		{Name: "Затребовал"},
		{Name: "Разрешил"},
		{Name: "Документа сбыта"},
		{Name: "Документа материала"},
		{Name: "Бухгалтерский документ"},
	},
	Blocks: []Block{
		{
			Name:    "hat",
			Region:  Region{Left: At(1000), Top: At(30), Right: At(1600), Bottom: At(170)},
			Outputs: []string{"Тип формы"},
		},
		{
			Name:    "number",
			Region:  Region{Left: At(400), Top: At(150), Right: At(1200), Bottom: At(210)},
			Parser:  Parser{Kind: ParseAfterSeparator, Separator: "№"},
			Outputs: []string{"Требование-накладная"},
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
				Left: LineEdge(0, X1, 0), Top: LineEdge(0, Y1, 0),
				Right: LineEdge(1, X2, 0), Bottom: LineEdge(1, Y1, 0),
			},
			Outputs: []string{"Структурное подразделение"},
		},
		{
			Name: "codes",
			Region: Region{
				Left: FromEnd(-390), Top: At(210),
				Right: FromEnd(-100), Bottom: LineEdge(1, Y1, 0),
			},
			Parser:  Parser{Kind: ParseTokens, Primary: []int{1, 3, 4}, Fallback: []int{0, 2, 3}},
			Outputs: []string{"Коды [Форма по ОКУД]", "Коды [Форма по ОКПО]", "Коды [Форма, 3 поле]"},
		},
		{
			Name: "via_who",
			Region: Region{
				Left: At(0), Top: AnchorEdge(Y1, -70),
				Right: FromEnd(0), Bottom: AnchorEdge(Y1, 0),
			},
			Parser:   Parser{Kind: ParseStripLabel, Label: "Через кого"},
			Outputs:  []string{"Через кого"},
			Optional: true,
			Anchor:   layout.SlotViaWho,
		},
		{
			Name: "requested_by",
			Region: Region{
				Left: At(100), Top: AnchorEdge(Y1, -100),
				Right: At(800), Bottom: AnchorEdge(Y1, 0),
			},
			Parser:   Parser{Kind: ParseStripLabel, Label: "Затребовал", NullIfEmpty: true},
			Outputs:  []string{"Затребовал"},
			Optional: true,
			Anchor:   layout.SlotRequestedBy,
		},
		{
			Name: "authorized_by",
			Region: Region{
				Left: FromEnd(-800), Top: AnchorEdge(Y1, -100),
				Right: FromEnd(0), Bottom: AnchorEdge(Y1, 0),
			},
			Parser:   Parser{Kind: ParseStripLabel, Label: "Разрешил"},
			Outputs:  []string{"Разрешил"},
			Optional: true,
			Anchor:   layout.SlotAuthorizedBy,
		},
		{
			Name:     "document_refs",
			Parser:   Parser{Kind: ParseLabelScan},
			Outputs:  []string{"Документа сбыта", "Документа материала", "Бухгалтерский документ"},
			Optional: true,
		},
	},
	Tables: TableLayout{
		LeadingDrop:      1,
		TrailingDrop:     1,
		ContinuationSkip: 3,
		Schemas: [2]*TableSchema{
			{
				Form:       KindM11,
				Role:       "operation",
				HeaderRows: 2,
				Columns: []Column{
					{Name: "Дата составления", Rule: RuleDate},
					{Name: "Код вида операции", Rule: RuleDigits, AllowEmpty: true},
					{Name: "Отправитель (структурное подразделение)", Rule: RuleOneOf, Group: "sender", MinLen: 2},
					{Name: "Отправитель (вид деятельности)", Rule: RuleOneOf, Group: "sender", MinLen: 2},
					{Name: "Получатель (структурное подразделение)", Rule: RuleOneOf, Group: "receiver", MinLen: 2},
					{Name: "Получатель (вид деятельности)", Rule: RuleOneOf, Group: "receiver", MinLen: 2},
					{Name: "Корреспондирующий счет (счет, субсчет)", Rule: RuleAccountCode, Prefix: "10", AllowEmpty: true},
					{Name: "Корреспондирующий счет (код аналитического учета)", Rule: RuleAlphanumeric, AllowEmpty: true},
					{Name: "Учетная единица выпуска продукции (работ, услуг)", Rule: RuleAlphanumeric, AllowEmpty: true},
				},
			},
			{
				Form:       KindM11,
				Role:       "materials",
				HeaderRows: 3,
				Columns: []Column{
					{Name: "Корреспондирующий счет (счет, субсчет)", Rule: RuleAccountCode, Prefix: "10"},
					{Name: "Корреспондирующий счет (код аналитического учета)", Rule: RuleAlphanumeric, AllowEmpty: true},
					{Name: "Материальные ценности (наименование)", Rule: RuleText},
					{Name: "Материальные ценности (номенклатурный номер)", Rule: RuleDigits},
					{Name: "Единица измерения (код)", Rule: RuleDigits},
					{Name: "Единица измерения (наименование)", Rule: RuleText},
					{Name: "Количество (затребовано)", Rule: RuleText, AllowEmpty: true},
					{Name: "Количество (отпущено)", Rule: RuleText},
					{Name: "Цена, руб. коп.", Rule: RuleMoney},
					{Name: "Сумма без учета НДС, руб. коп.", Rule: RuleMoney},
					{Name: "Порядковый номер по складской картотеке", Rule: RuleDigits, AllowEmpty: true},
				},
			},
		},
	},
})
