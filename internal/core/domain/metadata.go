package domain

import (
	"time"
)

// DocumentMetadata is the strongly-typed metadata record of one note.
//
// Values are held by kind:
//
//   - number: float64
//   - boolean: bool
//   - array: []string
//   - date, datetime: time.Time
//   - text: string
//
// A DocumentMetadata is immutable once built. The only supported change is
// WithModified, which returns a copy with a new modified timestamp.
type DocumentMetadata struct {
	schema *Schema
	values map[string]any
}

// NewDocumentMetadata builds a record over schema. Undeclared keys and values
// whose Go type does not match the declared kind are dropped.
func NewDocumentMetadata(schema *Schema, values map[string]any) *DocumentMetadata {
	m := &DocumentMetadata{
		schema: schema,
		values: make(map[string]any, len(values)),
	}
	for name, v := range values {
		kind := schema.Kind(name)
		if kind == "" || !valueMatchesKind(kind, v) {
			continue
		}
		if arr, ok := v.([]string); ok {
			if len(arr) == 0 {
				continue
			}
			v = append([]string(nil), arr...)
		}
		m.values[name] = v
	}
	return m
}

func valueMatchesKind(kind FieldKind, v any) bool {
	switch kind {
	case KindNumber:
		_, ok := v.(float64)
		return ok
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindArray:
		_, ok := v.([]string)
		return ok
	case KindDate, KindDatetime:
		t, ok := v.(time.Time)
		return ok && !t.IsZero()
	case KindText:
		s, ok := v.(string)
		return ok && s != ""
	default:
		return false
	}
}

// Schema returns the schema the record was built against.
func (m *DocumentMetadata) Schema() *Schema {
	return m.schema
}

// Get returns the value of a field.
func (m *DocumentMetadata) Get(name string) (any, bool) {
	v, ok := m.values[name]
	if arr, isArr := v.([]string); isArr {
		return append([]string(nil), arr...), ok
	}
	return v, ok
}

// Has reports whether a field is set.
func (m *DocumentMetadata) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Text returns a text field, or "" when unset.
func (m *DocumentMetadata) Text(name string) string {
	s, _ := m.values[name].(string)
	return s
}

// Number returns a number field.
func (m *DocumentMetadata) Number(name string) (float64, bool) {
	n, ok := m.values[name].(float64)
	return n, ok
}

// Bool returns a boolean field, or false when unset.
func (m *DocumentMetadata) Bool(name string) bool {
	b, _ := m.values[name].(bool)
	return b
}

// Strings returns an array field, or nil when unset.
func (m *DocumentMetadata) Strings(name string) []string {
	arr, _ := m.values[name].([]string)
	return append([]string(nil), arr...)
}

// Time returns a date or datetime field.
func (m *DocumentMetadata) Time(name string) (time.Time, bool) {
	t, ok := m.values[name].(time.Time)
	return t, ok
}

// ID returns the document identifier.
func (m *DocumentMetadata) ID() string {
	return m.Text(FieldID)
}

// Title returns the document title.
func (m *DocumentMetadata) Title() string {
	return m.Text(FieldTitle)
}

// Category returns the document category.
func (m *DocumentMetadata) Category() Category {
	return Category(m.Text(FieldCategory))
}

// Confidence returns the classification confidence, 0 when unset.
func (m *DocumentMetadata) Confidence() float64 {
	c, _ := m.Number(FieldConfidence)
	return c
}

// Degraded reports whether classification fell back to defaults.
func (m *DocumentMetadata) Degraded() bool {
	return m.Bool(FieldDegraded)
}

// Fields returns the names of all set fields in header order.
func (m *DocumentMetadata) Fields() []string {
	names := make([]string, 0, len(m.values))
	for _, f := range m.schema.fields {
		if _, ok := m.values[f.Name]; ok {
			names = append(names, f.Name)
		}
	}
	return names
}

// Len returns the number of set fields.
func (m *DocumentMetadata) Len() int {
	return len(m.values)
}

// Values returns a copy of all set values.
func (m *DocumentMetadata) Values() map[string]any {
	out := make(map[string]any, len(m.values))
	for name := range m.values {
		out[name], _ = m.Get(name)
	}
	return out
}

// WithModified returns a copy of the record with modified set to t.
func (m *DocumentMetadata) WithModified(t time.Time) *DocumentMetadata {
	values := m.Values()
	values[FieldModified] = t
	return NewDocumentMetadata(m.schema, values)
}
