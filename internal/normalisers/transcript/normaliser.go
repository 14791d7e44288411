// Package transcript provides a BodyNormaliser for transcribed voice memos.
// Timing data from subtitle-style transcripts is removed, filler words are
// dropped and wrapped caption lines are joined into paragraphs.
package transcript

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.BodyNormaliser = (*Normaliser)(nil)

var (
	cueTiming   = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?([.,]\d{1,3})?\s*-->\s*\d{1,2}:\d{2}(:\d{2})?([.,]\d{1,3})?.*$`)
	cueNumber   = regexp.MustCompile(`^\d+$`)
	timestamp   = regexp.MustCompile(`[\[(]\d{1,2}:\d{2}(:\d{2})?([.,]\d{1,3})?[\])]\s*`)
	leadingTime = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?\s+(-\s+)?`)
	fillers     = regexp.MustCompile(`(?i)(^|\s)(um+|uh+|erm+|hmm+)[,.]?(\s|$)`)
	jaFillers   = regexp.MustCompile(`(えーと|えっと|あのー)[、,]?\s*`)
	multiSpaces = regexp.MustCompile(`[ \t]{2,}`)
)

// Normaliser handles voice transcripts.
type Normaliser struct{}

// New creates a new transcript normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// ContentTypes returns the content types this normaliser handles.
func (n *Normaliser) ContentTypes() []domain.ContentType {
	return []domain.ContentType{domain.ContentTypeVoiceTranscript}
}

// Normalise returns the spoken text as paragraphs.
func (n *Normaliser) Normalise(item domain.RawItem) (string, error) {
	content := plaintext.Tidy(item.Content)

	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
			continue
		case line == "WEBVTT" || strings.HasPrefix(line, "WEBVTT "), cueTiming.MatchString(line):
			continue
		case cueNumber.MatchString(line) && i+1 < len(lines) && cueTiming.MatchString(strings.TrimSpace(lines[i+1])):
			continue
		}

		line = timestamp.ReplaceAllString(line, "")
		line = leadingTime.ReplaceAllString(line, "")
		line = removeFillers(line)
		if line != "" {
			current = append(current, line)
		}
	}
	flush()

	return strings.Join(paragraphs, "\n\n"), nil
}

func removeFillers(line string) string {
	// Fillers can be adjacent, so repeat until stable.
	for {
		next := fillers.ReplaceAllString(line, "$1$3")
		if next == line {
			break
		}
		line = next
	}
	line = jaFillers.ReplaceAllString(line, "")
	line = multiSpaces.ReplaceAllString(line, " ")
	return strings.TrimSpace(line)
}
