// Package domain defines the core entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Text extracted from one loaded file (or one PDF page)
//   - Chunk: A bounded substring of a Document, the unit of embedding
//   - IndexedVector: A Chunk's embedding plus its text and metadata
//   - RetrievedSet: The ranked chunks selected for one question
//   - ConversationTurn: A question, its answer and the outcome status
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
