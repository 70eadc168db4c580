package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file kind without a loader.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyDocument indicates a document with no readable text.
	ErrEmptyDocument = errors.New("document appears to be empty")

	// ErrDimensionMismatch indicates embedding and collection sizes differ.
	// This is a configuration error, raised at startup.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrLLMUnavailable indicates the chat model is not configured or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured or unreachable.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrMMRUnsupported indicates a store cannot return candidate vectors.
	// Retrieval falls back to similarity ranking.
	ErrMMRUnsupported = errors.New("diversity search unsupported")

	// ErrPathOutsideRoot indicates a tool path resolved outside the project root.
	ErrPathOutsideRoot = errors.New("path outside project root")

	// ErrUnknownTool indicates a tool name with no handler.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolRegistry indicates an incomplete or inconsistent tool table.
	ErrToolRegistry = errors.New("tool registry invalid")
)
