package domain

// RetrievalStrategy names how a RetrievedSet was selected.
type RetrievalStrategy string

// Available retrieval strategies.
const (
	// StrategyMMR is maximal marginal relevance selection.
	StrategyMMR RetrievalStrategy = "mmr"

	// StrategySimilarity is plain top-k relevance ranking.
	StrategySimilarity RetrievalStrategy = "similarity"
)

// IsValid returns true if the strategy is recognised.
func (s RetrievalStrategy) IsValid() bool {
	return s == StrategyMMR || s == StrategySimilarity
}

// ScoredChunk is a retrieved chunk with its relevance and selection rank.
type ScoredChunk struct {
	Chunk

	// Score is the cosine similarity to the question.
	Score float64

	// Rank is the 1-based selection order.
	Rank int
}

// RetrievedSet is the ordered sequence of chunks returned for one question.
// It lives only for one query-answer cycle.
type RetrievedSet struct {
	// Query is the question that was embedded.
	Query string

	// Chunks are in selection order.
	Chunks []ScoredChunk

	// Strategy is the selection strategy that produced Chunks.
	Strategy RetrievalStrategy

	// FellBack is true when MMR was requested but similarity was used.
	FellBack bool
}

// IsEmpty returns true if no chunks were retrieved.
func (s *RetrievedSet) IsEmpty() bool {
	return s == nil || len(s.Chunks) == 0
}

// Len returns the number of retrieved chunks.
func (s *RetrievedSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Chunks)
}

// SourceGroup holds the chunks retrieved from one source, in retrieval order.
type SourceGroup struct {
	Source string
	Chunks []ScoredChunk
}

// GroupBySource groups chunks by source file.
// Sources appear in order of first occurrence; chunks keep retrieval order.
func (s *RetrievedSet) GroupBySource() []SourceGroup {
	if s == nil {
		return nil
	}
	return GroupChunks(s.Chunks)
}

// GroupChunks groups chunks by source file, preserving first-occurrence order.
func GroupChunks(chunks []ScoredChunk) []SourceGroup {
	var groups []SourceGroup
	index := make(map[string]int)
	for _, c := range chunks {
		src := c.Source()
		i, ok := index[src]
		if !ok {
			i = len(groups)
			index[src] = i
			groups = append(groups, SourceGroup{Source: src})
		}
		groups[i].Chunks = append(groups[i].Chunks, c)
	}
	return groups
}

// TruncationPolicy controls how assembled context is fitted to its budget.
type TruncationPolicy string

// Available truncation policies.
const (
	// TruncateCut renders every chunk and cuts at the character budget.
	TruncateCut TruncationPolicy = "cut"

	// TruncateDropChunks admits whole chunks in rank order while they fit.
	TruncateDropChunks TruncationPolicy = "drop_chunks"
)

// IsValid returns true if the policy is recognised.
func (p TruncationPolicy) IsValid() bool {
	return p == TruncateCut || p == TruncateDropChunks
}

// AssembledContext is the bounded, attributable text block sent to the model.
type AssembledContext struct {
	// Text is the serialised context.
	Text string

	// Included is the number of chunks rendered (fully or partially).
	Included int

	// Dropped is the number of chunks left out entirely.
	Dropped int

	// Truncated is true when any text was cut or dropped.
	Truncated bool
}
