package services

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// PipelineDeps are the collaborators a Pipeline is built from.
type PipelineDeps struct {
	Settings domain.AppSettings
	Loader   driven.NormaliserRegistry
	Chunker  driven.PostProcessorPipeline
	Embedder driven.EmbeddingService
	Store    driven.VectorStore
	LLM      driven.LLMService
	Prompts  driven.PromptStore
}

// Pipeline is the context shared by every stage of indexing and answering.
// It is built once per process and handed to each service.
type Pipeline struct {
	settings domain.AppSettings
	loader   driven.NormaliserRegistry
	chunker  driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	store    driven.VectorStore
	llm      driven.LLMService
	prompts  driven.PromptStore
	history  *History
}

// NewPipeline validates deps and builds the shared context.
// A known embedding dimension that differs from the store's fails with
// ErrDimensionMismatch.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	var missing []string
	if deps.Loader == nil {
		missing = append(missing, "loader")
	}
	if deps.Chunker == nil {
		missing = append(missing, "chunker")
	}
	if deps.Embedder == nil {
		missing = append(missing, "embedder")
	}
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if deps.LLM == nil {
		missing = append(missing, "llm")
	}
	if deps.Prompts == nil {
		missing = append(missing, "prompts")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: pipeline missing %v", domain.ErrInvalidInput, missing)
	}

	if dims := deps.Embedder.Dimensions(); dims > 0 && dims != deps.Store.Dimensions() {
		return nil, fmt.Errorf("%w: model %s produces %d dimensions, collection %s expects %d",
			domain.ErrDimensionMismatch, deps.Embedder.ModelName(), dims,
			deps.Store.Collection(), deps.Store.Dimensions())
	}

	return &Pipeline{
		settings: normaliseSettings(deps.Settings),
		loader:   deps.Loader,
		chunker:  deps.Chunker,
		embedder: deps.Embedder,
		store:    deps.Store,
		llm:      deps.LLM,
		prompts:  deps.Prompts,
		history:  NewHistory(),
	}, nil
}

// Settings returns the settings the pipeline was built with.
func (p *Pipeline) Settings() domain.AppSettings {
	return p.settings
}

// Store returns the vector store.
func (p *Pipeline) Store() driven.VectorStore {
	return p.store
}

// Supports reports whether a path has a loader.
func (p *Pipeline) Supports(path string) bool {
	return p.loader.Supports(path)
}

// Close releases the embedder, model and store.
func (p *Pipeline) Close() error {
	return errors.Join(p.embedder.Close(), p.llm.Close(), p.store.Close())
}

// normaliseSettings fills zero retrieval and context values with defaults.
func normaliseSettings(s domain.AppSettings) domain.AppSettings {
	if s.Retrieval.SearchType == "" {
		s.Retrieval.SearchType = domain.StrategyMMR
	}
	if s.Retrieval.K <= 0 {
		s.Retrieval.K = domain.DefaultK
	}
	if s.Retrieval.FetchK < s.Retrieval.K {
		s.Retrieval.FetchK = max(domain.DefaultFetchK, s.Retrieval.K)
	}
	if s.Context.Budget <= 0 {
		s.Context.Budget = domain.DefaultContextBudget
	}
	if s.Context.Truncation == "" {
		s.Context.Truncation = domain.TruncateDropChunks
	}
	return s
}
