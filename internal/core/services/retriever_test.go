package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

func vec(id string, v ...float32) domain.ScoredVector {
	return domain.ScoredVector{IndexedVector: domain.IndexedVector{
		ID:       id,
		Vector:   v,
		Content:  id,
		Metadata: map[string]any{domain.MetaSource: id + ".txt"},
	}}
}

func ids(vs []domain.ScoredVector) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestMMR(t *testing.T) {
	query := []float32{1, 1, 0}
	candidates := []domain.ScoredVector{
		vec("a", 1, 0, 0),
		vec("a-dup", 1, 0, 0),
		vec("b", 0, 1, 0),
		vec("c", 0, 0, 1),
	}

	t.Run("first pick is most relevant", func(t *testing.T) {
		got := MMR([]float32{0, 0, 1}, candidates, 1, 0.5)
		assert.Equal(t, []string{"c"}, ids(got))
	})

	t.Run("diversity penalises duplicates", func(t *testing.T) {
		got := MMR(query, candidates, 3, 0.5)
		assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	})

	t.Run("lambda one is pure relevance", func(t *testing.T) {
		got := MMR(query, candidates, 3, 1)
		assert.Equal(t, []string{"a", "a-dup", "b"}, ids(got))
	})

	t.Run("k larger than pool returns all", func(t *testing.T) {
		got := MMR(query, candidates, 10, 0.5)
		assert.Len(t, got, 4)
	})

	t.Run("ties keep earlier candidate", func(t *testing.T) {
		tied := []domain.ScoredVector{vec("first", 0, 1, 0), vec("second", 0, 1, 0)}
		got := MMR(query, tied, 1, 0.5)
		assert.Equal(t, []string{"first"}, ids(got))
	})

	t.Run("scores are relevance", func(t *testing.T) {
		got := MMR(query, candidates, 2, 0.5)
		require.Len(t, got, 2)
		assert.InDelta(t, 0.7071, got[0].Score, 1e-4)
		assert.InDelta(t, 0.7071, got[1].Score, 1e-4)
	})

	t.Run("missing vectors use store score", func(t *testing.T) {
		bare := []domain.ScoredVector{vec("low"), vec("high")}
		bare[0].Score, bare[1].Score = 0.2, 0.9
		got := MMR(query, bare, 1, 0.5)
		assert.Equal(t, []string{"high"}, ids(got))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, MMR(query, nil, 3, 0.5))
		assert.Nil(t, MMR(query, candidates, 0, 0.5))
	})
}

func seedStore(t *testing.T, f *fixture, vectors ...domain.ScoredVector) {
	t.Helper()
	indexed := make([]domain.IndexedVector, len(vectors))
	for i, v := range vectors {
		indexed[i] = v.IndexedVector
	}
	require.NoError(t, f.store.Upsert(context.Background(), indexed))
}

func TestRetriever_MMR(t *testing.T) {
	f := newFixture()
	f.settings.Retrieval.K = 2
	f.settings.Retrieval.FetchK = 3
	f.settings.Retrieval.Lambda = 0.3
	seedStore(t, f, vec("a", 1, 0, 0), vec("a-dup", 1, 0, 0), vec("b", 0.6, 0.8, 0))
	p, err := f.pipeline()
	require.NoError(t, err)

	set, err := NewRetriever(p).Retrieve(context.Background(), "question")

	require.NoError(t, err)
	assert.Equal(t, domain.StrategyMMR, set.Strategy)
	assert.False(t, set.FellBack)
	require.Len(t, set.Chunks, 2)
	assert.Contains(t, []string{"a", "a-dup"}, set.Chunks[0].Content)
	assert.Equal(t, "b", set.Chunks[1].Content)
	assert.Equal(t, 1, set.Chunks[0].Rank)
	assert.Equal(t, 2, set.Chunks[1].Rank)
}

func TestRetriever_FallsBackWithoutCandidates(t *testing.T) {
	tests := []struct {
		name string
		wrap func(*memory.Store) driven.VectorStore
	}{
		{"store without capability", func(s *memory.Store) driven.VectorStore { return similarityOnlyStore{s} }},
		{"store reports unsupported", func(s *memory.Store) driven.VectorStore { return unsupportedCandidatesStore{s} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.settings.Retrieval.K = 2
			seedStore(t, f, vec("a", 1, 0, 0), vec("a-dup", 1, 0, 0), vec("b", 0.6, 0.8, 0))
			f.store = tt.wrap(f.store.(*memory.Store))
			p, err := f.pipeline()
			require.NoError(t, err)

			set, err := NewRetriever(p).Retrieve(context.Background(), "question")

			require.NoError(t, err)
			assert.True(t, set.FellBack)
			assert.Equal(t, domain.StrategySimilarity, set.Strategy)
			require.Len(t, set.Chunks, 2)
			assert.ElementsMatch(t, []string{"a", "a-dup"}, []string{set.Chunks[0].Content, set.Chunks[1].Content})
		})
	}
}

func TestRetriever_Similarity(t *testing.T) {
	f := newFixture()
	f.settings.Retrieval.SearchType = domain.StrategySimilarity
	f.settings.Retrieval.K = 1
	seedStore(t, f, vec("far", 0, 0, 1), vec("near", 1, 0, 0))
	p, err := f.pipeline()
	require.NoError(t, err)

	set, err := NewRetriever(p).Retrieve(context.Background(), "question")

	require.NoError(t, err)
	assert.False(t, set.FellBack)
	require.Len(t, set.Chunks, 1)
	assert.Equal(t, "near", set.Chunks[0].Content)
	assert.Equal(t, "near.txt", set.Chunks[0].Source())
}

func TestRetriever_EmptyStore(t *testing.T) {
	f := newFixture()
	p, err := f.pipeline()
	require.NoError(t, err)

	set, err := NewRetriever(p).Retrieve(context.Background(), "question")

	require.NoError(t, err)
	assert.True(t, set.IsEmpty())
}

func TestRetriever_Errors(t *testing.T) {
	t.Run("embedding", func(t *testing.T) {
		f := newFixture()
		f.embedder.err = domain.ErrEmbeddingUnavailable
		p, err := f.pipeline()
		require.NoError(t, err)

		_, err = NewRetriever(p).Retrieve(context.Background(), "question")
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("store", func(t *testing.T) {
		f := newFixture()
		f.store = &failingStore{Store: memory.New("test", 3), err: domain.ErrVectorStoreUnavailable}
		p, err := f.pipeline()
		require.NoError(t, err)

		_, err = NewRetriever(p).Retrieve(context.Background(), "question")
		assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
	})
}
