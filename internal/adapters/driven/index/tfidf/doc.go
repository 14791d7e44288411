// Package tfidf provides a TF-IDF similarity index over note bodies.
//
// Document frequencies are updated incrementally on every Index and Remove.
// Stored document weights are only recomputed for the document being
// indexed, so older vectors drift slightly as the corpus grows until
// Rebuild recomputes them all. Queries always use the current IDF.
package tfidf
