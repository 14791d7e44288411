// Package domain defines the core business entities for kbnote.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawItem: One inbound piece of content from a chat surface
//   - InferenceResult: The flat result of a single model call
//   - ClassificationResult: Pattern and inference output reconciled per item
//   - Schema / FieldSpec: The declared, ordered set of metadata fields
//   - DocumentMetadata: The strongly-typed record rendered into a note
//   - Document: A persisted note
//   - VectorEntry: The term-weight vector of one document
//   - Config: The validated runtime configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
