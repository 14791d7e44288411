// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Note persistence. The store decides locations.
//   - PromptStore: Classification prompt templates
//   - BodyNormaliser: Turns a RawItem into plain body text
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model calls. Without it every note is degraded.
//   - SimilarityIndex / VectorEntryStore: Related-document lookups.
//   - ItemSource: Delivers items from a chat surface for the watch loop.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
