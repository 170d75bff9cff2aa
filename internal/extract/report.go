package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
)

// Field is one extracted report value. Null marks an optional field whose anchor was
// absent or whose parser produced no value; Value is then empty.
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
	Null  bool   `json:"null,omitempty" yaml:"null,omitempty"`
}

// Report is the ordered, immutable field set of one document. Field order is the
// template's declared order.
type Report struct {
	kind   forms.Kind
	fields []Field
	index  map[string]int
}

// Kind returns the form kind the report was extracted with.
func (r *Report) Kind() forms.Kind { return r.kind }

// Len returns the number of fields.
func (r *Report) Len() int { return len(r.fields) }

// Get returns the named field.
func (r *Report) Get(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Value returns the named value, or "" when it is absent or null.
func (r *Report) Value(name string) string {
	f, _ := r.Get(name)
	return f.Value
}

// Names returns the field names in order.
func (r *Report) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the ordered fields.
func (r *Report) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// MarshalJSON writes the report as an ordered object; null fields become JSON null.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if f.Null {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the report as an ordered mapping.
func (r *Report) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range r.fields {
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Value}
		if f.Null {
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name}, val)
	}
	return node, nil
}

// Value is a parsed block output before it is placed in the report.
type Value struct {
	Text string
	Null bool
}

func text(s string) Value { return Value{Text: s} }

var null = Value{Null: true}

// builder collects values for a fixed field order and freezes them into a Report.
type builder struct {
	kind   forms.Kind
	names  []string
	values map[string]Value
}

func newBuilder(kind forms.Kind, names []string) *builder {
	return &builder{kind: kind, names: names, values: make(map[string]Value, len(names))}
}

func (b *builder) set(name string, v Value) error {
	if _, dup := b.values[name]; dup {
		return fmt.Errorf("field %q set twice", name)
	}
	b.values[name] = v
	return nil
}

// build orders the values by the declared names. Names that were never set are null.
func (b *builder) build() *Report {
	r := &Report{
		kind:   b.kind,
		fields: make([]Field, len(b.names)),
		index:  make(map[string]int, len(b.names)),
	}
	for i, name := range b.names {
		v, ok := b.values[name]
		if !ok {
			v = null
		}
		r.fields[i] = Field{Name: name, Value: v.Text, Null: v.Null}
		r.index[name] = i
	}
	return r
}

// NewReport builds a report from explicit fields, in the given order. It is used by
// callers that carry reports across process boundaries.
func NewReport(kind forms.Kind, fields []Field) *Report {
	names := make([]string, len(fields))
	b := newBuilder(kind, names)
	for i, f := range fields {
		names[i] = f.Name
		b.values[f.Name] = Value{Text: f.Value, Null: f.Null}
	}
	return b.build()
}
