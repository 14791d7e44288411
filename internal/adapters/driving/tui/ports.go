// Package tui provides the interactive terminal view of a processing run.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Notes reads stored notes for the note view.
	Notes driving.NoteService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(notes driving.NoteService) *Ports {
	return &Ports{Notes: notes}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Notes == nil {
		return ErrMissingNoteService
	}
	return nil
}
