package validate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/tables"
)

// Table validates every row of t against the column rules of its schema. The schema
// is recognised from the first column name.
func (v *Validator) Table(t *tables.Table) ([]Location, []string, error) {
	if t == nil || len(t.Columns) == 0 {
		return nil, nil, fmt.Errorf("validate: empty table")
	}
	schema, ok := forms.SchemaBySignature(t.Columns[0])
	if !ok {
		return nil, nil, fmt.Errorf("validate: unknown table with first column %q", t.Columns[0])
	}
	if len(schema.Columns) != len(t.Columns) {
		return nil, nil, fmt.Errorf("validate: table %q has %d columns, want %d",
			schema.Role, len(t.Columns), len(schema.Columns))
	}

	var out issues
	now := v.now()
	for row, cells := range t.Rows {
		groups := map[string]bool{}
		var groupOrder []string

		for i, col := range schema.Columns {
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			loc := CellAt(schema.Role, row, col.Name)

			if col.Rule == forms.RuleOneOf {
				if _, seen := groups[col.Group]; !seen {
					groupOrder = append(groupOrder, col.Group)
					groups[col.Group] = false
				}
				if utf8.RuneCountInString(value) > col.MinLen {
					groups[col.Group] = true
				}
				continue
			}
			if value == "" {
				if !col.AllowEmpty {
					out.add(loc, "value is missing")
				}
				continue
			}
			if reason := checkCell(col, value, now); reason != "" {
				out.add(loc, reason)
			}
		}

		for _, g := range groupOrder {
			if groups[g] {
				continue
			}
			names := groupColumns(schema, g)
			out.add(CellAt(schema.Role, row, names[0]),
				fmt.Sprintf("one of %s must be filled", strings.Join(names, ", ")))
		}
	}
	return out.locations, out.reasons, nil
}

func checkCell(col forms.Column, value string, now time.Time) string {
	switch col.Rule {
	case forms.RuleDate:
		if !CheckDate(value, now) {
			return "not a valid date (dd.mm.yyyy)"
		}
	case forms.RuleDigits:
		if !CheckDigits(value) {
			return "must contain digits only"
		}
	case forms.RuleAccountCode:
		if !CheckAccountCode(value, col.Prefix) {
			return fmt.Sprintf("account code must start with %s", col.Prefix)
		}
	case forms.RuleMoney:
		if !CheckMoney(value) {
			return "amount must be written as <units>,<subunits>"
		}
	case forms.RuleAlphanumeric:
		if !CheckAlphanumeric(value) {
			return "must contain letters and digits only"
		}
	}
	return ""
}

func groupColumns(s *forms.TableSchema, group string) []string {
	var names []string
	for _, c := range s.Columns {
		if c.Rule == forms.RuleOneOf && c.Group == group {
			names = append(names, c.Name)
		}
	}
	return names
}
