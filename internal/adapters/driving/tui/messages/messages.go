// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"time"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
	"github.com/custodia-labs/kbnote/internal/core/ports/driving"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewProgress lists processed items as they complete.
	ViewProgress ViewType = iota
	// ViewNote shows one stored note.
	ViewNote
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewProgress:
		return "progress"
	case ViewNote:
		return "note"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ItemProcessed is sent after an item was replied to.
type ItemProcessed struct {
	SourceRef      string
	DocumentID     string
	Title          string
	Category       domain.Category
	Location       string
	Degraded       bool
	DegradedReason string
	CacheHit       bool
	LatencyMs      int64
	Related        int

	// Reason is the failure sentence; empty on success.
	Reason string

	At time.Time
}

// NewItemProcessed builds the message for one worker pool outcome.
// result is nil when the item failed.
func NewItemProcessed(outcome driven.ItemOutcome, result *driving.NoteResult) ItemProcessed {
	msg := ItemProcessed{
		SourceRef: outcome.Item.SourceRef,
		Location:  outcome.Location,
		Reason:    outcome.Reason,
		At:        time.Now(),
	}
	if result == nil {
		return msg
	}
	msg.DocumentID = result.Document.ID
	msg.Title = result.Document.Title
	msg.Category = result.Document.Category
	msg.Related = len(result.Related)
	if c := result.Classification; c != nil {
		msg.Degraded = c.Degraded
		msg.DegradedReason = c.DegradedReason
		msg.CacheHit = c.CacheHit
		msg.LatencyMs = c.InferenceLatencyMs
	}
	return msg
}

// Failed reports whether the item produced no note.
func (m ItemProcessed) Failed() bool {
	return m.Reason != ""
}

// RunFinished is sent once the worker pool has stopped.
type RunFinished struct {
	Processed int64
	Failed    int64
	Degraded  int64
	Err       error
}

// NoteSelected asks to open a stored note.
type NoteSelected struct {
	DocumentID string
}

// NoteLoaded carries a stored note.
type NoteLoaded struct {
	DocumentID string
	Document   *domain.Document
	Err        error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
