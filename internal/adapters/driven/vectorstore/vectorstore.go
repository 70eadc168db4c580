// Package vectorstore holds helpers shared by the vector collection backends.
//
// Backends live in subpackages:
//
//   - memory: process-lifetime collection
//   - sqlite: local file, vectors as little-endian float32 blobs
//   - qdrant: Qdrant server over its REST API
//   - redis: Redis hashes plus a member set
//
// The memory, sqlite and redis backends score candidates in Go with cosine
// similarity, so every one of them can return candidate vectors for MMR.
package vectorstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// CheckDimensions rejects vectors whose length differs from dim.
func CheckDimensions(vectors []domain.IndexedVector, dim int) error {
	for _, v := range vectors {
		if len(v.Vector) != dim {
			return fmt.Errorf("%w: vector %s has %d dimensions, collection has %d",
				domain.ErrDimensionMismatch, v.ID, len(v.Vector), dim)
		}
	}
	return nil
}

// CheckQuery rejects a query vector whose length differs from dim.
func CheckQuery(query []float32, dim int) error {
	if len(query) != dim {
		return fmt.Errorf("%w: query has %d dimensions, collection has %d",
			domain.ErrDimensionMismatch, len(query), dim)
	}
	return nil
}

// Rank scores candidates against query and returns the top k by descending
// cosine similarity. Equal scores keep candidate order. When withVectors is
// false the returned hits carry no vector.
func Rank(query []float32, candidates []domain.IndexedVector, k int, withVectors bool) []domain.ScoredVector {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	hits := make([]domain.ScoredVector, len(candidates))
	for i, c := range candidates {
		hits[i] = domain.ScoredVector{
			IndexedVector: c,
			Score:         domain.CosineSimilarity(query, c.Vector),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	// Hits never alias the caller's candidates.
	for i := range hits {
		hits[i].Metadata = domain.CopyMetadata(hits[i].Metadata)
		if withVectors {
			hits[i].Vector = append([]float32(nil), hits[i].Vector...)
		} else {
			hits[i].Vector = nil
		}
	}
	return hits
}

// EncodeVector packs a vector as little-endian float32 bytes.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks little-endian float32 bytes.
// Trailing bytes that do not form a full float are ignored.
func DecodeVector(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// FromSource reports whether a vector was loaded from filePath.
func FromSource(v domain.IndexedVector, filePath string) bool {
	path, _ := v.Metadata[domain.MetaFilePath].(string)
	return path != "" && path == filePath
}
