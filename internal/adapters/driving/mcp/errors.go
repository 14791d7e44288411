// Package mcp provides an MCP (Model Context Protocol) server adapter for kbnote.
// It lets AI assistants classify text into notes and look up related notes.
package mcp

import "errors"

var (
	// ErrMissingClassificationService is returned when the classification service is not provided.
	ErrMissingClassificationService = errors.New("mcp: classification service is required")

	// ErrMissingNoteService is returned when the note service is not provided.
	ErrMissingNoteService = errors.New("mcp: note service is required")
)
