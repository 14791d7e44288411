package domain

import (
	"errors"
	"fmt"
)

// FieldKind is the declared type class of a metadata field.
type FieldKind string

// Field kinds. Every metadata field has exactly one.
const (
	KindNumber   FieldKind = "number"
	KindBoolean  FieldKind = "boolean"
	KindArray    FieldKind = "array"
	KindDate     FieldKind = "date"
	KindDatetime FieldKind = "datetime"
	KindText     FieldKind = "text"
)

// IsValid returns true if the kind is recognised.
func (k FieldKind) IsValid() bool {
	switch k {
	case KindNumber, KindBoolean, KindArray, KindDate, KindDatetime, KindText:
		return true
	default:
		return false
	}
}

// FieldGroup groups related metadata fields.
type FieldGroup string

// Field groups in header order.
const (
	GroupCore           FieldGroup = "core"
	GroupClassification FieldGroup = "classification"
	GroupAnalytics      FieldGroup = "analytics"
	GroupTask           FieldGroup = "task"
	GroupFinance        FieldGroup = "finance"
	GroupHealth         FieldGroup = "health"
	GroupKnowledge      FieldGroup = "knowledge"
	GroupTemporal       FieldGroup = "temporal"
	GroupCollaboration  FieldGroup = "collaboration"
	GroupRelations      FieldGroup = "relations"
	GroupDisplay        FieldGroup = "display"
	GroupSystem         FieldGroup = "system"
)

// IsCommon reports whether fields of the group are allowed for every category.
func (g FieldGroup) IsCommon() bool {
	switch g {
	case GroupCore, GroupClassification, GroupAnalytics, GroupRelations, GroupDisplay, GroupSystem:
		return true
	default:
		return false
	}
}

// FieldSpec declares one metadata field.
type FieldSpec struct {
	Name  string
	Kind  FieldKind
	Group FieldGroup
}

// Field names referenced directly by the pipeline.
const (
	FieldID                = "id"
	FieldTitle             = "title"
	FieldCreated           = "created"
	FieldModified          = "modified"
	FieldSource            = "source"
	FieldSourceRef         = "sourceRef"
	FieldSourceURL         = "sourceUrl"
	FieldCategory          = "category"
	FieldConfidence        = "confidence"
	FieldQuality           = "quality"
	FieldSummary           = "summary"
	FieldTags              = "tags"
	FieldWordCount         = "wordCount"
	FieldCharCount         = "charCount"
	FieldSentenceCount     = "sentenceCount"
	FieldReadingTime       = "readingTime"
	FieldDueDate           = "dueDate"
	FieldEstimatedHours    = "estimatedHours"
	FieldCompleted         = "completed"
	FieldAmount            = "amount"
	FieldCurrency          = "currency"
	FieldReceipt           = "receipt"
	FieldTaxDeductible     = "taxDeductible"
	FieldActivityType      = "activityType"
	FieldLinks             = "links"
	FieldRelatedDocuments  = "relatedDocuments"
	FieldAIModel           = "aiModel"
	FieldDegraded          = "degraded"
	FieldDegradedReason    = "degradedReason"
	FieldProcessingVersion = "processingVersion"
	FieldChecksum          = "checksum"
)

// DefaultFields returns the built-in field declarations in header order.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{FieldID, KindText, GroupCore},
		{FieldTitle, KindText, GroupCore},
		{FieldCreated, KindDatetime, GroupCore},
		{FieldModified, KindDatetime, GroupCore},
		{FieldSource, KindText, GroupCore},
		{FieldSourceRef, KindText, GroupCore},
		{FieldSourceURL, KindText, GroupCore},
		{"language", KindText, GroupCore},

		{FieldCategory, KindText, GroupClassification},
		{"subcategory", KindText, GroupClassification},
		{FieldConfidence, KindNumber, GroupClassification},
		{FieldQuality, KindText, GroupClassification},
		{FieldSummary, KindText, GroupClassification},
		{FieldTags, KindArray, GroupClassification},
		{"keywords", KindArray, GroupClassification},
		{"sentiment", KindText, GroupClassification},

		{FieldWordCount, KindNumber, GroupAnalytics},
		{FieldCharCount, KindNumber, GroupAnalytics},
		{FieldSentenceCount, KindNumber, GroupAnalytics},
		{FieldReadingTime, KindNumber, GroupAnalytics},

		{"status", KindText, GroupTask},
		{"priority", KindText, GroupTask},
		{FieldDueDate, KindDate, GroupTask},
		{"progress", KindNumber, GroupTask},
		{FieldEstimatedHours, KindNumber, GroupTask},
		{FieldCompleted, KindBoolean, GroupTask},
		{"assignee", KindText, GroupTask},
		{"project", KindText, GroupTask},
		{"recurring", KindBoolean, GroupTask},

		{FieldAmount, KindNumber, GroupFinance},
		{FieldCurrency, KindText, GroupFinance},
		{"merchant", KindText, GroupFinance},
		{"paymentMethod", KindText, GroupFinance},
		{"transactionDate", KindDate, GroupFinance},
		{FieldReceipt, KindBoolean, GroupFinance},
		{FieldTaxDeductible, KindBoolean, GroupFinance},
		{"expenseCategory", KindText, GroupFinance},

		{FieldActivityType, KindText, GroupHealth},
		{"durationMinutes", KindNumber, GroupHealth},
		{"distanceKm", KindNumber, GroupHealth},
		{"calories", KindNumber, GroupHealth},
		{"heartRateAvg", KindNumber, GroupHealth},
		{"sleepHours", KindNumber, GroupHealth},
		{"mood", KindText, GroupHealth},
		{"weightKg", KindNumber, GroupHealth},

		{"topic", KindText, GroupKnowledge},
		{"difficulty", KindText, GroupKnowledge},
		{"reviewDate", KindDate, GroupKnowledge},
		{"references", KindArray, GroupKnowledge},
		{"author", KindText, GroupKnowledge},
		{"keyPoints", KindText, GroupKnowledge},
		{"questions", KindArray, GroupKnowledge},

		{"eventDate", KindDate, GroupTemporal},
		{"startTime", KindDatetime, GroupTemporal},
		{"endTime", KindDatetime, GroupTemporal},
		{"location", KindText, GroupTemporal},
		{"reminder", KindDatetime, GroupTemporal},
		{"timezone", KindText, GroupTemporal},

		{"participants", KindArray, GroupCollaboration},
		{"mentions", KindArray, GroupCollaboration},
		{"organizer", KindText, GroupCollaboration},
		{"sharedWith", KindArray, GroupCollaboration},

		{FieldLinks, KindArray, GroupRelations},
		{FieldRelatedDocuments, KindArray, GroupRelations},
		{"parent", KindText, GroupRelations},
		{"aliases", KindArray, GroupRelations},

		{"icon", KindText, GroupDisplay},
		{"color", KindText, GroupDisplay},
		{"pinned", KindBoolean, GroupDisplay},
		{"archived", KindBoolean, GroupDisplay},
		{"cssClass", KindText, GroupDisplay},

		{FieldAIModel, KindText, GroupSystem},
		{FieldDegraded, KindBoolean, GroupSystem},
		{FieldDegradedReason, KindText, GroupSystem},
		{FieldProcessingVersion, KindText, GroupSystem},
		{FieldChecksum, KindText, GroupSystem},
	}
}

// ErrInvalidSchema indicates a field declaration table is malformed.
var ErrInvalidSchema = errors.New("invalid field schema")

// Schema is an ordered, validated set of field declarations.
// The declaration order is the header render order.
type Schema struct {
	fields []FieldSpec
	index  map[string]int
}

// NewSchema validates the declarations and builds a Schema.
// Names must be non-empty and unique, and every kind must be known.
func NewSchema(fields []FieldSpec) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields declared", ErrInvalidSchema)
	}
	s := &Schema{
		fields: make([]FieldSpec, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		}
		if !f.Kind.IsValid() {
			return nil, fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidSchema, f.Name, f.Kind)
		}
		if f.Group == "" {
			return nil, fmt.Errorf("%w: field %q has no group", ErrInvalidSchema, f.Name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: field %q declared twice", ErrInvalidSchema, f.Name)
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
// Use only with built-in declaration tables.
func MustSchema(fields []FieldSpec) *Schema {
	s, err := NewSchema(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// DefaultSchema returns a Schema over DefaultFields.
func DefaultSchema() *Schema {
	return MustSchema(DefaultFields())
}

// Lookup returns the declaration of a field.
func (s *Schema) Lookup(name string) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Kind returns the kind of a field, or "" if it is not declared.
func (s *Schema) Kind(name string) FieldKind {
	f, _ := s.Lookup(name)
	return f.Kind
}

// Fields returns all declarations in header order.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Order returns the header position of a field, or -1 if it is not declared.
func (s *Schema) Order(name string) int {
	i, ok := s.index[name]
	if !ok {
		return -1
	}
	return i
}

// GroupFields returns the names of all fields in a group, in header order.
func (s *Schema) GroupFields(g FieldGroup) []string {
	var names []string
	for _, f := range s.fields {
		if f.Group == g {
			names = append(names, f.Name)
		}
	}
	return names
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.fields)
}
