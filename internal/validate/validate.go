/**
 * Business-rule validation of extracted reports and stitched tables.
 * Issues are reported as parallel location and reason lists; a rejected document
 * is a normal outcome, not an error.
 */

package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/extract"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/tables"
)

// Location points at a report field, or at a cell of a table when Table is set.
type Location struct {
	Field  string `json:"field,omitempty" yaml:"field,omitempty"`
	Table  string `json:"table,omitempty" yaml:"table,omitempty"`
	Row    int    `json:"row,omitempty" yaml:"row,omitempty"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
}

// FieldAt returns the location of a report field.
func FieldAt(name string) Location { return Location{Field: name} }

// CellAt returns the location of a table cell.
func CellAt(table string, row int, column string) Location {
	return Location{Table: table, Row: row, Column: column}
}

func (l Location) String() string {
	if l.Table == "" {
		return l.Field
	}
	return fmt.Sprintf("%s[%d].%s", l.Table, l.Row, l.Column)
}

// Outcome is the validation verdict of one document.
type Outcome struct {
	Accepted  bool       `json:"accepted" yaml:"accepted"`
	Locations []Location `json:"locations" yaml:"locations"`
	Reasons   []string   `json:"reasons" yaml:"reasons"`
}

// Validator applies form rules. Now is the clock used for the date-year bound.
type Validator struct {
	Now func() time.Time
}

// New creates a validator using the wall clock.
func New() *Validator {
	return &Validator{Now: time.Now}
}

func (v *Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

type issues struct {
	locations []Location
	reasons   []string
}

func (is *issues) add(loc Location, reason string) {
	is.locations = append(is.locations, loc)
	is.reasons = append(is.reasons, reason)
}

// fieldRule checks a non-null value and returns the failure reason, or "".
type fieldRule func(value string) string

// Report validates every field of r against the rules of the form kind.
func (v *Validator) Report(kind forms.Kind, r *extract.Report) ([]Location, []string, error) {
	if r == nil {
		return nil, nil, fmt.Errorf("validate: nil report")
	}
	tpl, err := forms.Lookup(kind)
	if err != nil {
		return nil, nil, fmt.Errorf("validate: %w", err)
	}

	var out issues
	for _, f := range r.Fields() {
		if f.Null {
			out.add(FieldAt(f.Name), "value is missing")
			continue
		}
		if reason := v.ruleFor(tpl, f.Name)(f.Value); reason != "" {
			out.add(FieldAt(f.Name), reason)
		}
	}
	return out.locations, out.reasons, nil
}

// ruleFor dispatches by exact name, then by name substring, then falls back to the
// word-count rule.
func (v *Validator) ruleFor(tpl *forms.Template, name string) fieldRule {
	switch name {
	case "Тип формы":
		return func(s string) string {
			if !CheckPhrase(s, tpl.RequiredPhrase) {
				return fmt.Sprintf("required phrase %q not found", tpl.RequiredPhrase)
			}
			return ""
		}
	case "Организация":
		return func(s string) string {
			if !CheckOrganization(s) {
				return "organisation type not recognised (expected one of " + strings.Join(OrganizationTypes, ", ") + ")"
			}
			return ""
		}
	case "Требование-накладная", "Номер акта":
		return numberRule
	case "Дата акта", "Утверждено (дата)":
		return v.dateRule
	case "Утверждено (ФИО)", "Материально ответственное лицо (ФИО)":
		return nameRule
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "коды"):
		return numberRule
	case strings.Contains(lower, "документ"):
		return func(s string) string {
			if !CheckPositive(s) {
				return "must be a positive number"
			}
			return ""
		}
	}
	return func(s string) string {
		if !CheckMinWords(s, MinWords) {
			return fmt.Sprintf("must contain at least %d words", MinWords)
		}
		return ""
	}
}

func numberRule(s string) string {
	if !CheckNumber(s) {
		return "not a number"
	}
	return ""
}

func nameRule(s string) string {
	if !CheckName(s) {
		return "every part of the name must be capitalised and longer than one letter"
	}
	return ""
}

func (v *Validator) dateRule(s string) string {
	if !CheckDate(s, v.now()) {
		return "not a valid date (dd.mm.yyyy)"
	}
	return ""
}

// Document validates the report and the stitched tables. When the tables are the
// single-fragment fallback, only the first copy is checked so issues are not doubled.
func (v *Validator) Document(kind forms.Kind, r *extract.Report, st *tables.Stitched) (*Outcome, error) {
	var out issues
	if r != nil {
		locs, reasons, err := v.Report(kind, r)
		if err != nil {
			return nil, err
		}
		out.locations, out.reasons = append(out.locations, locs...), append(out.reasons, reasons...)
	}
	if st != nil {
		for i, t := range st.Tables {
			if t == nil || (st.Fallback && i > 0) {
				continue
			}
			locs, reasons, err := v.Table(t)
			if err != nil {
				return nil, err
			}
			out.locations, out.reasons = append(out.locations, locs...), append(out.reasons, reasons...)
		}
	}
	return &Outcome{
		Accepted:  len(out.locations) == 0,
		Locations: nonNil(out.locations),
		Reasons:   nonNilStrings(out.reasons),
	}, nil
}

func nonNil(l []Location) []Location {
	if l == nil {
		return []Location{}
	}
	return l
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
