package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Normaliser extracts text from one document kind.
type Normaliser interface {
	// Kind returns the document kind this normaliser handles.
	Kind() domain.DocumentKind

	// Normalise extracts documents from raw file bytes.
	// Paginated formats may return one document per page.
	Normalise(ctx context.Context, raw *RawFile) ([]domain.Document, error)
}

// RawFile is a file's bytes before text extraction.
type RawFile struct {
	// Path is where the file was read from.
	Path string

	// Name is the base file name, used as the source label.
	Name string

	// Content is the raw bytes.
	Content []byte
}

// NormaliserRegistry dispatches files to the normaliser bound to their kind.
type NormaliserRegistry interface {
	// Load reads and normalises one file.
	// Unsupported kinds fail with ErrUnsupportedType, whitespace-only
	// text with ErrEmptyDocument.
	Load(ctx context.Context, path string) ([]domain.Document, error)

	// Supports returns true if the path's kind has a normaliser.
	Supports(path string) bool
}
