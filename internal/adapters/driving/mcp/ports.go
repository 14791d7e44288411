package mcp

import (
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Classification classifies text without storing it.
	Classification driving.ClassificationService

	// Notes stores notes and answers related-document queries.
	Notes driving.NoteService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Classification == nil {
		return ErrMissingClassificationService
	}
	if p.Notes == nil {
		return ErrMissingNoteService
	}
	return nil
}
