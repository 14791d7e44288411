package domain

import "time"

// Document is a persisted note.
type Document struct {
	// ID is the deterministic document identifier.
	ID string

	// Category is the folder-level bucket the note was filed under.
	Category Category

	// Location is the stored-location identifier returned by the store.
	Location string

	// Title is the note title.
	Title string

	// Rendered is the full note text, header and body.
	Rendered string

	// Metadata is the typed record. Stores may leave it nil and callers
	// parse Rendered instead.
	Metadata *DocumentMetadata

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VectorEntry is the term-weight vector of one indexed document.
type VectorEntry struct {
	DocumentID string

	// TermCounts are the raw term frequencies of the document.
	TermCounts map[string]int

	// TermWeights are the TF-IDF weights at the time of the last (re)index.
	TermWeights map[string]float64

	// Norm is the Euclidean norm of TermWeights.
	Norm float64
}

// RelatedDocument is one similarity hit.
type RelatedDocument struct {
	DocumentID string
	Score      float64
}
