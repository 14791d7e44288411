package driven

import "github.com/custodia-labs/kbnote/internal/core/domain"

// NoteRenderer serialises notes to text and reads them back.
type NoteRenderer interface {
	// Render returns the note text for metadata and body.
	Render(meta *domain.DocumentMetadata, body string) (string, error)

	// Parse reads note text back into metadata and body.
	Parse(text string) (*domain.DocumentMetadata, string, error)
}
