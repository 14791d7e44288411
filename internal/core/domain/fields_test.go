package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()

	assert.Greater(t, s.Len(), 60)
	assert.Equal(t, 0, s.Order(FieldID))
	assert.Less(t, s.Order(FieldCategory), s.Order(FieldDueDate))
	assert.Less(t, s.Order(FieldDueDate), s.Order(FieldLinks))
	assert.Less(t, s.Order(FieldLinks), s.Order(FieldChecksum))
	assert.Equal(t, -1, s.Order("nope"))

	f, ok := s.Lookup(FieldActivityType)
	require.True(t, ok)
	assert.Equal(t, GroupHealth, f.Group)
	assert.Equal(t, KindText, f.Kind)
}

func TestNewSchema_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		fields []FieldSpec
	}{
		{"empty", nil},
		{"unnamed", []FieldSpec{{"", KindText, GroupCore}}},
		{"unknown kind", []FieldSpec{{"x", FieldKind("blob"), GroupCore}}},
		{"no group", []FieldSpec{{"x", KindText, ""}}},
		{"duplicate", []FieldSpec{{"x", KindText, GroupCore}, {"x", KindNumber, GroupCore}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(tt.fields)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestDocumentMetadata(t *testing.T) {
	s := DefaultSchema()
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	m := NewDocumentMetadata(s, map[string]any{
		FieldID:        "abc",
		FieldCategory:  "finance",
		FieldAmount:    3200.0,
		FieldReceipt:   true,
		FieldTags:      []string{"food"},
		FieldLinks:     []string{},
		FieldCreated:   created,
		FieldModified:  created,
		"unknownKey":   "dropped",
		FieldWordCount: "not a number",
	})

	assert.Equal(t, "abc", m.ID())
	assert.Equal(t, CategoryFinance, m.Category())
	assert.True(t, m.Bool(FieldReceipt))
	assert.False(t, m.Has("unknownKey"))
	assert.False(t, m.Has(FieldWordCount))
	assert.False(t, m.Has(FieldLinks), "empty arrays are not stored")
	assert.Equal(t, []string{FieldID, FieldCreated, FieldModified, FieldCategory, FieldTags, FieldAmount, FieldReceipt}, m.Fields())

	t.Run("arrays are copied", func(t *testing.T) {
		tags := m.Strings(FieldTags)
		tags[0] = "mutated"
		assert.Equal(t, []string{"food"}, m.Strings(FieldTags))
	})

	t.Run("WithModified returns a copy", func(t *testing.T) {
		later := created.Add(time.Hour)
		m2 := m.WithModified(later)

		got, _ := m2.Time(FieldModified)
		assert.Equal(t, later, got)
		orig, _ := m.Time(FieldModified)
		assert.Equal(t, created, orig)
		assert.Equal(t, m.Len(), m2.Len())
	})
}

func TestContentType(t *testing.T) {
	ct, err := ParseContentType("")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeText, ct)

	ct, err = ParseContentType(" Voice-Transcript ")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeVoiceTranscript, ct)

	_, err = ParseContentType("image")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestRawItem_Validate(t *testing.T) {
	now := time.Now()
	assert.NoError(t, RawItem{Content: "hi", ContentType: ContentTypeText, CreatedAt: now}.Validate())
	assert.ErrorIs(t, RawItem{Content: "  ", ContentType: ContentTypeText, CreatedAt: now}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, RawItem{Content: "hi", ContentType: "pdf", CreatedAt: now}.Validate(), ErrUnsupportedType)
	assert.ErrorIs(t, RawItem{Content: "hi", ContentType: ContentTypeURL}.Validate(), ErrInvalidInput)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Finance ")
	require.NoError(t, err)
	assert.Equal(t, CategoryFinance, c)

	_, err = ParseCategory("gossip")
	assert.ErrorIs(t, err, ErrInvalidInput)

	for _, c := range AllCategories() {
		assert.NotEqual(t, unknownDescription, c.Description(), c)
	}
}
