package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IndexService loads, chunks, embeds and stores documents.
type IndexService interface {
	// Index processes a batch of files.
	// Per-file load failures are recorded in the report and never abort the batch.
	// The returned error is set only when embedding or storage fails.
	Index(ctx context.Context, paths []string) (*domain.IndexReport, error)

	// Clear deletes and recreates the collection.
	// It returns the user-facing status string.
	Clear(ctx context.Context) (string, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}

// SourceRemover is implemented by index services that can drop the chunks
// of individual files.
type SourceRemover interface {
	// RemoveSources deletes the stored chunks of each path and returns how
	// many were removed. Stores without per-file deletion remove nothing.
	RemoveSources(ctx context.Context, paths []string) (int, error)
}
