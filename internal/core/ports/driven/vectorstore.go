package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// VectorStore is a collection-based nearest-neighbour store.
// Implementations own one named collection of a fixed dimension.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error

	// DeleteCollection removes the collection and every vector in it.
	// Deleting a missing collection is not an error.
	DeleteCollection(ctx context.Context) error

	// Upsert stores vectors. Existing vectors are never modified by a new ID.
	// Vectors whose length differs from Dimensions fail with ErrDimensionMismatch.
	Upsert(ctx context.Context, vectors []domain.IndexedVector) error

	// SimilaritySearch returns up to k hits ordered by descending similarity.
	// An empty or missing collection returns no hits and no error.
	SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.ScoredVector, error)

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Collection returns the collection name.
	Collection() string

	// Dimensions returns the configured vector size.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// CandidateSearcher is implemented by stores that can return the stored
// vectors of their hits, which diversity-aware retrieval needs.
type CandidateSearcher interface {
	// SearchCandidates returns up to fetchK hits with Vector populated,
	// ordered by descending similarity.
	SearchCandidates(ctx context.Context, query []float32, fetchK int) ([]domain.ScoredVector, error)
}

// SourceDeleter is implemented by stores that can drop every vector loaded
// from one file, matched on the file_path metadata.
type SourceDeleter interface {
	// DeleteBySource removes the vectors whose file_path equals filePath and
	// returns how many were removed. A missing collection removes nothing.
	DeleteBySource(ctx context.Context, filePath string) (int, error)
}
