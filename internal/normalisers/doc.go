// Package normalisers provides implementations of the BodyNormaliser
// interface for the content types a chat surface delivers. Each normaliser
// turns the raw content of an item into the body text of its note.
//
// Normalisers are registered with the NormaliserRegistry at startup.
package normalisers
