package driven

import (
	"context"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// ItemSource is the chat transport collaborator. It delivers raw items and
// receives either the rendered note or a failure reason back.
type ItemSource interface {
	// Items streams inbound items until ctx is done. Non-fatal delivery
	// problems are sent on the error channel. Both channels are closed
	// when the source stops.
	Items(ctx context.Context) (<-chan domain.RawItem, <-chan error)

	// Reply reports the outcome of one item.
	Reply(ctx context.Context, outcome ItemOutcome) error
}

// ItemOutcome is the result of processing one item.
type ItemOutcome struct {
	Item domain.RawItem

	// Rendered is the note text on success.
	Rendered string

	// Location is the stored-location identifier on success.
	Location string

	// Reason is a single human-readable sentence on failure.
	Reason string
}

// Succeeded reports whether a note was produced.
func (o ItemOutcome) Succeeded() bool {
	return o.Reason == ""
}
