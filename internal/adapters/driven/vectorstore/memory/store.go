// Package memory provides an in-process vector store.
// The collection lives as long as the process, so it only suits long-lived
// sessions such as chat, watch and the ask REPL.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore       = (*Store)(nil)
	_ driven.CandidateSearcher = (*Store)(nil)
	_ driven.SourceDeleter     = (*Store)(nil)
)

// Store is a brute-force cosine store guarded by an RWMutex.
type Store struct {
	mu         sync.RWMutex
	collection string
	dimensions int
	exists     bool
	order      []string
	vectors    map[string]domain.IndexedVector
}

// New creates an in-memory store for one collection.
func New(collection string, dimensions int) *Store {
	return &Store{
		collection: collection,
		dimensions: dimensions,
		vectors:    make(map[string]domain.IndexedVector),
	}
}

// EnsureCollection creates the collection if it does not exist.
func (s *Store) EnsureCollection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = true
	return nil
}

// DeleteCollection drops every vector.
func (s *Store) DeleteCollection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = false
	s.order = nil
	s.vectors = make(map[string]domain.IndexedVector)
	return nil
}

// Upsert stores vectors, replacing any with the same ID.
func (s *Store) Upsert(_ context.Context, vectors []domain.IndexedVector) error {
	if err := vectorstore.CheckDimensions(vectors, s.dimensions); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = true
	for _, v := range vectors {
		if _, ok := s.vectors[v.ID]; !ok {
			s.order = append(s.order, v.ID)
		}
		v.Vector = append([]float32(nil), v.Vector...)
		v.Metadata = domain.CopyMetadata(v.Metadata)
		s.vectors[v.ID] = v
	}
	return nil
}

// SimilaritySearch returns the k most similar vectors without their embeddings.
func (s *Store) SimilaritySearch(_ context.Context, query []float32, k int) ([]domain.ScoredVector, error) {
	return s.search(query, k, false)
}

// SearchCandidates returns the fetchK most similar vectors with embeddings.
func (s *Store) SearchCandidates(_ context.Context, query []float32, fetchK int) ([]domain.ScoredVector, error) {
	return s.search(query, fetchK, true)
}

func (s *Store) search(query []float32, k int, withVectors bool) ([]domain.ScoredVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.exists || len(s.order) == 0 {
		return nil, nil
	}
	if err := vectorstore.CheckQuery(query, s.dimensions); err != nil {
		return nil, err
	}

	candidates := make([]domain.IndexedVector, 0, len(s.order))
	for _, id := range s.order {
		candidates = append(candidates, s.vectors[id])
	}
	return vectorstore.Rank(query, candidates, k, withVectors), nil
}

// DeleteBySource drops the vectors loaded from filePath.
func (s *Store) DeleteBySource(_ context.Context, filePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if vectorstore.FromSource(s.vectors[id], filePath) {
			delete(s.vectors, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// Dimensions returns the configured vector size.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
