package forms

// ColumnRule is the validation role of a table column.
type ColumnRule int

const (
	// RuleText only requires a value unless the column allows empty cells.
	RuleText ColumnRule = iota
	RuleDate
	RuleDigits
	// RuleAccountCode requires digits (with optional dots) starting with Prefix.
	RuleAccountCode
	// RuleMoney requires "<integer>,<integer>".
	RuleMoney
	RuleAlphanumeric
	// RuleOneOf requires at least one column of Group to hold more than MinLen runes.
	RuleOneOf
)

// Column is one positional column of a stitched table.
type Column struct {
	Name       string
	Rule       ColumnRule
	AllowEmpty bool
	Prefix     string
	Group      string
	MinLen     int
}

// TableSchema is the column layout of one table slot.
type TableSchema struct {
	Form Kind
	Role string
	// HeaderRows are dropped from the top of the merged table.
	HeaderRows int
	Columns    []Column
}

// ColumnNames returns the column names in order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Signature is the first column name, used to recognize the table role.
func (s *TableSchema) Signature() string {
	if len(s.Columns) == 0 {
		return ""
	}
	return s.Columns[0].Name
}

// TableLayout describes how raw fragments of one form are stitched.
type TableLayout struct {
	// LeadingDrop and TrailingDrop fragments are boilerplate regions, not data tables.
	LeadingDrop  int
	TrailingDrop int
	// ContinuationSkip is the number of repeated header rows on a continuation fragment.
	ContinuationSkip int
	Schemas          [2]*TableSchema
}

// SchemaWithColumns returns the slot schema with n columns, if any.
func (l *TableLayout) SchemaWithColumns(n int) (*TableSchema, bool) {
	for _, s := range l.Schemas {
		if s != nil && len(s.Columns) == n {
			return s, true
		}
	}
	return nil, false
}

// SchemaBySignature finds the schema of any registered form whose first column is name.
func SchemaBySignature(name string) (*TableSchema, bool) {
	for _, kind := range Kinds() {
		t, ok := registry[kind]
		if !ok {
			continue
		}
		for _, s := range t.Tables.Schemas {
			if s != nil && s.Signature() == name {
				return s, true
			}
		}
	}
	return nil, false
}
