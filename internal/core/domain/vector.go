package domain

import "math"

// IndexedVector is a chunk's embedding stored alongside its text and metadata.
// It is owned by the vector store until the collection is cleared.
type IndexedVector struct {
	// ID is the unique identifier, equal to the chunk ID.
	ID string

	// Vector is the embedding. Its length must match the collection dimension.
	Vector []float32

	// Content is the chunk text.
	Content string

	// Metadata carries source, file path and chunk index.
	Metadata map[string]any
}

// ScoredVector is a vector store hit.
type ScoredVector struct {
	IndexedVector

	// Score is the cosine similarity to the query.
	Score float64
}

// ToChunk rebuilds the chunk a stored vector was created from.
func (v *ScoredVector) ToChunk() Chunk {
	chunk := Chunk{
		ID:       v.ID,
		Content:  v.Content,
		Metadata: v.Metadata,
	}
	if idx, ok := intFromAny(v.Metadata[MetaChunkIndex]); ok {
		chunk.Index = idx
	}
	return chunk
}

// CosineSimilarity returns the cosine similarity of two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// intFromAny handles the numeric types metadata picks up from JSON, TOML and drivers.
func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
