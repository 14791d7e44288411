package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

const (
	delimiter = "---"

	dateLayout     = "2006-01-02"
	datetimeLayout = time.RFC3339
)

var (
	// ErrUnsupportedKind indicates a schema declares a kind the serializer
	// cannot render.
	ErrUnsupportedKind = errors.New("unsupported field kind")

	// ErrMalformedDocument indicates text is not a header plus body.
	ErrMalformedDocument = errors.New("malformed document")
)

// Serializer renders DocumentMetadata. It holds no mutable state and is
// safe for concurrent use.
type Serializer struct {
	schema *domain.Schema
}

// New creates a Serializer for schema. Every declared kind must be
// renderable; this is checked here so that Render never meets an
// unknown kind.
func New(schema *domain.Schema) (*Serializer, error) {
	if schema == nil {
		return nil, fmt.Errorf("frontmatter: schema is required")
	}
	for _, f := range schema.Fields() {
		switch f.Kind {
		case domain.KindNumber, domain.KindBoolean, domain.KindArray,
			domain.KindDate, domain.KindDatetime, domain.KindText:
		default:
			return nil, fmt.Errorf("frontmatter: field %q: %w %q", f.Name, ErrUnsupportedKind, f.Kind)
		}
	}
	return &Serializer{schema: schema}, nil
}

// Render returns the note text for meta and body.
func (s *Serializer) Render(meta *domain.DocumentMetadata, body string) (string, error) {
	if meta == nil {
		return "", fmt.Errorf("frontmatter: metadata is required")
	}

	header := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range meta.Fields() {
		def, ok := s.schema.Lookup(name)
		if !ok {
			continue
		}
		v, _ := meta.Get(name)
		value, ok := valueNode(def.Kind, v)
		if !ok {
			continue
		}
		header.Content = append(header.Content, strNode(name), value)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	if len(header.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(header); err != nil {
			return "", fmt.Errorf("frontmatter: encode header: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("frontmatter: encode header: %w", err)
		}
	}
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(normaliseBody(body))
	buf.WriteString("\n")
	return buf.String(), nil
}

// valueNode builds the YAML node of one value. ok is false for values
// that render as nothing, such as empty arrays.
func valueNode(kind domain.FieldKind, v any) (*yaml.Node, bool) {
	switch kind {
	case domain.KindText:
		s, _ := v.(string)
		if s == "" {
			return nil, false
		}
		n := strNode(s)
		if strings.Contains(s, "\n") {
			n.Style = yaml.LiteralStyle
		}
		return n, true

	case domain.KindNumber:
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		return plainNode(strconv.FormatFloat(f, 'f', -1, 64)), true

	case domain.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, false
		}
		return plainNode(strconv.FormatBool(b)), true

	case domain.KindDate:
		t, ok := v.(time.Time)
		if !ok {
			return nil, false
		}
		return plainNode(t.Format(dateLayout)), true

	case domain.KindDatetime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, false
		}
		return plainNode(t.Format(datetimeLayout)), true

	case domain.KindArray:
		items, _ := v.([]string)
		if len(items) == 0 {
			return nil, false
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, item := range items {
			seq.Content = append(seq.Content, strNode(item))
		}
		return seq, true
	}
	return nil, false
}

// strNode is a string scalar. The explicit tag makes the encoder quote
// values such as "true" or "2025" that would otherwise resolve to another type.
func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func plainNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

// normaliseBody trims trailing whitespace so re-rendering a parsed body
// is stable.
func normaliseBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.TrimRight(body, " \t\n")
}
