package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Retriever selects the chunks most useful for answering a question.
type Retriever struct {
	p *Pipeline
}

// NewRetriever creates a retriever over the pipeline.
func NewRetriever(p *Pipeline) *Retriever {
	return &Retriever{p: p}
}

// Retrieve embeds the question and selects up to k chunks.
// MMR is used when configured and the store can return candidate vectors;
// otherwise plain similarity ranking is used and FellBack is set.
func (r *Retriever) Retrieve(ctx context.Context, question string) (*domain.RetrievedSet, error) {
	cfg := r.p.settings.Retrieval

	query, err := r.p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	set := &domain.RetrievedSet{Query: question, Strategy: cfg.SearchType}

	if cfg.SearchType == domain.StrategyMMR {
		hits, err := r.searchCandidates(ctx, query, cfg.FetchK)
		switch {
		case err == nil:
			set.Chunks = scored(MMR(query, hits, cfg.K, cfg.Lambda))
			return set, nil
		case errors.Is(err, domain.ErrMMRUnsupported):
			logger.Debug("store %s cannot return candidates, using similarity search", r.p.store.Collection())
			set.Strategy = domain.StrategySimilarity
			set.FellBack = true
		default:
			return nil, fmt.Errorf("search candidates: %w", err)
		}
	}

	hits, err := r.p.store.SimilaritySearch(ctx, query, cfg.K)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	set.Chunks = scored(hits)
	return set, nil
}

func (r *Retriever) searchCandidates(ctx context.Context, query []float32, fetchK int) ([]domain.ScoredVector, error) {
	searcher, ok := r.p.store.(driven.CandidateSearcher)
	if !ok {
		return nil, domain.ErrMMRUnsupported
	}
	return searcher.SearchCandidates(ctx, query, fetchK)
}

// MMR selects up to k candidates by maximal marginal relevance.
// The first pick is the most relevant candidate. Each later pick maximises
// lambda*sim(q,c) - (1-lambda)*max sim(c,selected); ties keep the earlier candidate.
func MMR(query []float32, candidates []domain.ScoredVector, k int, lambda float64) []domain.ScoredVector {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	relevance := make([]float64, len(candidates))
	for i := range candidates {
		if len(candidates[i].Vector) == 0 {
			relevance[i] = candidates[i].Score
			continue
		}
		relevance[i] = domain.CosineSimilarity(query, candidates[i].Vector)
	}

	// redundancy[i] is the highest similarity of candidate i to any pick so far.
	redundancy := make([]float64, len(candidates))
	used := make([]bool, len(candidates))
	selected := make([]domain.ScoredVector, 0, min(k, len(candidates)))

	for len(selected) < k && len(selected) < len(candidates) {
		best := -1
		var bestScore float64
		for i := range candidates {
			if used[i] {
				continue
			}
			score := relevance[i]
			if len(selected) > 0 {
				score = lambda*relevance[i] - (1-lambda)*redundancy[i]
			}
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}

		used[best] = true
		pick := candidates[best]
		pick.Score = relevance[best]
		selected = append(selected, pick)

		for i := range candidates {
			if used[i] {
				continue
			}
			if sim := domain.CosineSimilarity(pick.Vector, candidates[i].Vector); len(selected) == 1 || sim > redundancy[i] {
				redundancy[i] = sim
			}
		}
	}
	return selected
}

// scored converts store hits to ranked chunks.
func scored(hits []domain.ScoredVector) []domain.ScoredChunk {
	if len(hits) == 0 {
		return nil
	}
	out := make([]domain.ScoredChunk, len(hits))
	for i := range hits {
		out[i] = domain.ScoredChunk{
			Chunk: hits[i].ToChunk(),
			Score: hits[i].Score,
			Rank:  i + 1,
		}
	}
	return out
}
