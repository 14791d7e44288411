package frontmatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// Parse reads rendered note text back into metadata and body.
// Header keys the schema does not declare, and values that do not parse
// as their declared kind, are dropped.
func (s *Serializer) Parse(text string) (*domain.DocumentMetadata, string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(text, delimiter+"\n") {
		return nil, "", fmt.Errorf("%w: missing opening delimiter", ErrMalformedDocument)
	}
	rest := text[len(delimiter)+1:]

	var header string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n"):
		rest = rest[len(delimiter)+1:]
	default:
		end := strings.Index(rest, "\n"+delimiter+"\n")
		if end < 0 {
			return nil, "", fmt.Errorf("%w: missing closing delimiter", ErrMalformedDocument)
		}
		header = rest[:end+1]
		rest = rest[end+len(delimiter)+2:]
	}
	body := normaliseBody(strings.TrimPrefix(rest, "\n"))

	values := make(map[string]any)
	if strings.TrimSpace(header) != "" {
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(header), &doc); err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
			return nil, "", fmt.Errorf("%w: header is not a mapping", ErrMalformedDocument)
		}
		mapping := doc.Content[0]
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			name := mapping.Content[i].Value
			def, ok := s.schema.Lookup(name)
			if !ok {
				continue
			}
			if v, ok := parseValue(def.Kind, mapping.Content[i+1]); ok {
				values[name] = v
			}
		}
	}

	return domain.NewDocumentMetadata(s.schema, values), body, nil
}

func parseValue(kind domain.FieldKind, n *yaml.Node) (any, bool) {
	if kind == domain.KindArray {
		if n.Kind != yaml.SequenceNode {
			return nil, false
		}
		items := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			if c.Kind == yaml.ScalarNode {
				items = append(items, c.Value)
			}
		}
		return items, true
	}
	if n.Kind != yaml.ScalarNode {
		return nil, false
	}

	switch kind {
	case domain.KindText:
		return n.Value, n.Value != ""
	case domain.KindNumber:
		f, err := strconv.ParseFloat(n.Value, 64)
		return f, err == nil
	case domain.KindBoolean:
		b, err := strconv.ParseBool(n.Value)
		return b, err == nil
	case domain.KindDate:
		t, err := time.Parse(dateLayout, n.Value)
		return t, err == nil
	case domain.KindDatetime:
		t, err := time.Parse(datetimeLayout, n.Value)
		return t, err == nil
	}
	return nil, false
}
