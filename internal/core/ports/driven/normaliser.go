package driven

import "github.com/custodia-labs/kbnote/internal/core/domain"

// BodyNormaliser turns the raw content of an item into the plain body text
// used for analytics, pattern extraction and the note body.
type BodyNormaliser interface {
	// ContentTypes returns the content types this normaliser handles.
	ContentTypes() []domain.ContentType

	// Normalise returns the body text of an item.
	Normalise(item domain.RawItem) (string, error)
}
