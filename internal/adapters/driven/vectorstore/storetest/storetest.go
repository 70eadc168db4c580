// Package storetest provides a behaviour suite every vector store backend runs.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Dimensions is the collection size the suite expects stores to be built with.
const Dimensions = 3

// Factory returns a fresh, empty store with Dimensions dimensions.
type Factory func(t *testing.T) driven.VectorStore

func vec(id, source string, index int, v ...float32) domain.IndexedVector {
	return domain.IndexedVector{
		ID:      id,
		Vector:  v,
		Content: "content of " + id,
		Metadata: map[string]any{
			domain.MetaSource:     source,
			domain.MetaFilePath:   "/docs/" + source,
			domain.MetaChunkIndex: index,
		},
	}
}

// Fixture returns three vectors: a and b point the same way, c is orthogonal.
func Fixture() []domain.IndexedVector {
	return []domain.IndexedVector{
		vec("a", "alpha.txt", 0, 1, 0, 0),
		vec("b", "alpha.txt", 1, 0.9, 0.1, 0),
		vec("c", "beta.md", 2, 0, 0, 1),
	}
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("search before collection exists", func(t *testing.T) {
		s := newStore(t)
		hits, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("search empty collection", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx))
		require.NoError(t, s.EnsureCollection(ctx), "ensure is idempotent")

		hits, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("upsert and rank", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx))
		require.NoError(t, s.Upsert(ctx, Fixture()))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		hits, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "a", hits[0].ID)
		assert.Equal(t, "b", hits[1].ID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
		assert.Greater(t, hits[0].Score, hits[1].Score)

		chunk := hits[1].ToChunk()
		assert.Equal(t, "content of b", chunk.Content)
		assert.Equal(t, "alpha.txt", chunk.Source())
		assert.Equal(t, 1, chunk.Index)
		assert.Equal(t, "/docs/alpha.txt", chunk.Metadata[domain.MetaFilePath])
	})

	t.Run("k larger than collection", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx))
		require.NoError(t, s.Upsert(ctx, Fixture()))

		hits, err := s.SimilaritySearch(ctx, []float32{0, 0, 1}, 50)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "c", hits[0].ID)
	})

	t.Run("indexing twice adds vectors", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx))
		require.NoError(t, s.Upsert(ctx, Fixture()[:1]))
		require.NoError(t, s.Upsert(ctx, []domain.IndexedVector{vec("a2", "alpha.txt", 0, 1, 0, 0)}))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx))

		err := s.Upsert(ctx, []domain.IndexedVector{vec("bad", "x.txt", 0, 1, 0)})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "a rejected batch stores nothing")
	})

	t.Run("delete and recreate", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx))
		require.NoError(t, s.Upsert(ctx, Fixture()))

		require.NoError(t, s.DeleteCollection(ctx))
		require.NoError(t, s.DeleteCollection(ctx), "deleting a missing collection is not an error")
		require.NoError(t, s.EnsureCollection(ctx))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		hits, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("candidates carry vectors", func(t *testing.T) {
		s := newStore(t)
		cs, ok := s.(driven.CandidateSearcher)
		if !ok {
			t.Skip("store does not return candidates")
		}
		require.NoError(t, s.EnsureCollection(ctx))
		require.NoError(t, s.Upsert(ctx, Fixture()))

		hits, err := cs.SearchCandidates(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		for _, h := range hits {
			assert.Len(t, h.Vector, Dimensions)
		}
		assert.InDeltaSlice(t, []float32{1, 0, 0}, hits[0].Vector, 1e-6)
	})

	t.Run("delete by source", func(t *testing.T) {
		s := newStore(t)
		sd, ok := s.(driven.SourceDeleter)
		if !ok {
			t.Skip("store does not delete by source")
		}

		n, err := sd.DeleteBySource(ctx, "/docs/alpha.txt")
		require.NoError(t, err, "missing collection")
		assert.Zero(t, n)

		require.NoError(t, s.EnsureCollection(ctx))
		require.NoError(t, s.Upsert(ctx, Fixture()))

		n, err = sd.DeleteBySource(ctx, "/docs/alpha.txt")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = sd.DeleteBySource(ctx, "/docs/missing.txt")
		require.NoError(t, err)
		assert.Zero(t, n)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		hits, err := s.SimilaritySearch(ctx, []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "c", hits[0].ID)
	})

	t.Run("metadata", func(t *testing.T) {
		s := newStore(t)
		assert.Equal(t, Dimensions, s.Dimensions())
		assert.NotEmpty(t, s.Collection())
	})
}
