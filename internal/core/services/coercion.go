package services

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// noteNamespace scopes deterministic note ids.
var noteNamespace = uuid.MustParse("8f1d5c3e-6b0a-4c52-9e27-3d4a1f0b7c61")

// truthy holds the lower-cased strings read as boolean true.
var truthy = map[string]bool{
	"true": true, "yes": true, "y": true, "1": true, "on": true,
	"x": true, "✓": true, "kept": true, "done": true, "済": true,
}

// dateLayouts are tried in order for date and datetime fields.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// computedFields are owned by coercion; extracted values never override them.
var computedFields = map[string]bool{
	domain.FieldID:                true,
	domain.FieldCreated:           true,
	domain.FieldModified:          true,
	domain.FieldSource:            true,
	domain.FieldSourceRef:         true,
	domain.FieldCategory:          true,
	domain.FieldConfidence:        true,
	domain.FieldQuality:           true,
	domain.FieldSummary:           true,
	domain.FieldTags:              true,
	domain.FieldWordCount:         true,
	domain.FieldCharCount:         true,
	domain.FieldSentenceCount:     true,
	domain.FieldReadingTime:       true,
	domain.FieldRelatedDocuments:  true,
	domain.FieldAIModel:           true,
	domain.FieldDegraded:          true,
	domain.FieldDegradedReason:    true,
	domain.FieldProcessingVersion: true,
	domain.FieldChecksum:          true,
}

// MetadataCoercer turns a ClassificationResult into typed note metadata.
// It is stateless and never fails: values that cannot be coerced to their
// declared kind are omitted.
type MetadataCoercer struct {
	schema    *domain.Schema
	fieldSets domain.FieldSets
	notes     domain.NotesConfig
}

// NewMetadataCoercer creates a coercer. The field-set table is resolved
// against schema; an invalid table is domain.ErrInvalidConfig.
func NewMetadataCoercer(schema *domain.Schema, notes domain.NotesConfig) (*MetadataCoercer, error) {
	fieldSets, err := domain.ResolveFieldSets(schema, notes.FieldSets)
	if err != nil {
		return nil, err
	}
	return &MetadataCoercer{
		schema:    schema,
		fieldSets: fieldSets,
		notes:     notes,
	}, nil
}

// Schema returns the schema metadata is built against.
func (c *MetadataCoercer) Schema() *domain.Schema {
	return c.schema
}

// Coerce builds the metadata of the note for item. body is the normalised
// note body the analytics and checksum are computed from.
func (c *MetadataCoercer) Coerce(result *domain.ClassificationResult, item domain.RawItem, body string) *domain.DocumentMetadata {
	category := result.Category
	if !category.IsValid() {
		category = domain.CategoryUncategorized
	}

	values := make(map[string]any, len(result.Extracted)+24)
	for name, raw := range result.Extracted {
		if computedFields[name] || !c.fieldSets.Allows(c.schema, category, name) {
			continue
		}
		if v, ok := CoerceValue(c.schema.Kind(name), raw); ok {
			values[name] = v
		}
	}

	// Core.
	created := item.CreatedAt.UTC().Truncate(time.Second)
	values[domain.FieldID] = NoteID(item)
	values[domain.FieldCreated] = created
	values[domain.FieldModified] = created
	values[domain.FieldSource] = item.ContentType.String()
	if item.SourceRef != "" {
		values[domain.FieldSourceRef] = item.SourceRef
	}
	if title, ok := values[domain.FieldTitle].(string); !ok || title == "" {
		values[domain.FieldTitle] = fallbackTitle(body, c.notes.TitleMaxRunes)
	}

	// Classification.
	confidence := math.Round(clamp01(result.Confidence)*100) / 100
	values[domain.FieldCategory] = category.String()
	values[domain.FieldConfidence] = confidence
	values[domain.FieldQuality] = c.notes.QualityFor(confidence)
	if s := strings.TrimSpace(result.Summary); s != "" {
		values[domain.FieldSummary] = s
	}
	if tags, ok := coerceArray(result.Tags); ok {
		values[domain.FieldTags] = tags
	}

	// Analytics.
	stats := Analyse(body, c.notes.ReadingSpeed)
	values[domain.FieldWordCount] = float64(stats.Words)
	values[domain.FieldCharCount] = float64(stats.Chars)
	values[domain.FieldSentenceCount] = float64(stats.Sentences)
	values[domain.FieldReadingTime] = float64(stats.ReadingMinutes)

	// System.
	if result.Model != "" {
		values[domain.FieldAIModel] = result.Model
	}
	values[domain.FieldDegraded] = result.Degraded
	if result.Degraded && result.DegradedReason != "" {
		values[domain.FieldDegradedReason] = result.DegradedReason
	}
	values[domain.FieldProcessingVersion] = c.notes.ProcessingVersion
	values[domain.FieldChecksum] = Checksum(body)

	return domain.NewDocumentMetadata(c.schema, values)
}

// NoteID returns the deterministic id of the note for item.
func NoteID(item domain.RawItem) string {
	return uuid.NewSHA1(noteNamespace, []byte(item.SourceRef+"\x00"+item.Content)).String()
}

// Checksum returns the hex SHA-256 of a note body.
func Checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// CoerceValue converts raw to the Go type of kind. ok is false when the
// value cannot be represented.
func CoerceValue(kind domain.FieldKind, raw any) (any, bool) {
	switch kind {
	case domain.KindNumber:
		return coerceNumber(raw)
	case domain.KindBoolean:
		return coerceBool(raw)
	case domain.KindArray:
		return coerceArray(raw)
	case domain.KindDate:
		t, ok := coerceTime(raw)
		if !ok {
			return nil, false
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	case domain.KindDatetime:
		t, ok := coerceTime(raw)
		if !ok {
			return nil, false
		}
		return t.UTC().Truncate(time.Second), true
	case domain.KindText:
		return coerceText(raw)
	default:
		return nil, false
	}
}

func coerceNumber(raw any) (any, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if r == ',' || r == '_' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) || r == '円' {
				return -1
			}
			return r
		}, v)
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, false
		}
		f = parsed
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func coerceBool(raw any) (any, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(v))], true
	default:
		return nil, false
	}
}

func coerceArray(raw any) ([]string, bool) {
	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, item := range v {
			if s, ok := coerceText(item); ok {
				items = append(items, s.(string))
			}
		}
	case string:
		items = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '、' })
	default:
		return nil, false
	}

	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func coerceTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func coerceText(raw any) (any, bool) {
	var s string
	switch v := raw.(type) {
	case string:
		s = strings.TrimSpace(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		return nil, false
	}
	if s == "" {
		return nil, false
	}
	return s, true
}

// TextStats are the content analytics of a note body.
type TextStats struct {
	Words          int
	Chars          int
	Sentences      int
	ReadingMinutes int
}

// Analyse computes content analytics. Each CJK character counts as a
// word; Chars excludes whitespace.
func Analyse(body string, readingSpeed int) TextStats {
	var stats TextStats
	inWord := false
	pendingSentence := false
	for _, r := range body {
		switch {
		case unicode.IsSpace(r):
			inWord = false
			continue
		case isCJK(r):
			stats.Words++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				stats.Words++
				inWord = true
			}
		}
		stats.Chars++

		if isSentenceEnd(r) {
			if pendingSentence {
				stats.Sentences++
				pendingSentence = false
			}
		} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
			pendingSentence = true
		}
	}
	if pendingSentence {
		stats.Sentences++
	}

	if readingSpeed <= 0 {
		readingSpeed = domain.DefaultConfig().Notes.ReadingSpeed
	}
	stats.ReadingMinutes = max(1, int(math.Ceil(float64(stats.Words)/float64(readingSpeed))))
	return stats
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	default:
		return false
	}
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r)
}

// fallbackTitle returns the first non-empty line of body, truncated.
func fallbackTitle(body string, limit int) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		if limit > 0 && utf8.RuneCountInString(line) > limit {
			line = strings.TrimSpace(string([]rune(line)[:limit])) + "…"
		}
		return line
	}
	return "Untitled"
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
