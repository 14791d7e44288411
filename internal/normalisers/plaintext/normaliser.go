// Package plaintext provides a BodyNormaliser for text messages.
// Markdown is kept as written; only whitespace is tidied.
package plaintext

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.BodyNormaliser = (*Normaliser)(nil)

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// invisible drops characters chat clients insert that carry no text.
var invisible = strings.NewReplacer(
	"\ufeff", "", // byte order mark
	"\u200b", "", // zero width space
	"\u200c", "",
	"\u200d", "",
	"\u00a0", " ", // non-breaking space
)

// Normaliser handles plain text and markdown messages.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// ContentTypes returns the content types this normaliser handles.
func (n *Normaliser) ContentTypes() []domain.ContentType {
	return []domain.ContentType{domain.ContentTypeText}
}

// Normalise tidies line endings and whitespace.
func (n *Normaliser) Normalise(item domain.RawItem) (string, error) {
	return Tidy(item.Content), nil
}

// Tidy unifies line endings, drops invisible characters, trims trailing
// whitespace from every line and collapses runs of blank lines.
func Tidy(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = invisible.Replace(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
