// Package app wires settings, driven adapters and core services for the CLI.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/stores"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// Builders create the provider-backed adapters. Tests replace them.
type Builders struct {
	Embedder func(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error)
	LLM      func(settings *domain.LLMSettings) (driven.LLMService, error)
	Store    func(ctx context.Context, settings domain.VectorStoreSettings) (driven.VectorStore, error)
}

// DefaultBuilders uses the real providers and vector stores.
func DefaultBuilders() Builders {
	return Builders{
		Embedder: ai.CreateEmbeddingService,
		LLM:      ai.CreateLLMService,
		Store:    stores.Open,
	}
}

// Bootstrap is the cli.Bootstrap used by the docqa binary.
func Bootstrap(opts cli.Options) (*cli.Services, error) {
	return NewBootstrap(DefaultBuilders())(opts)
}

// NewBootstrap returns a cli.Bootstrap that builds adapters with b.
func NewBootstrap(b Builders) cli.Bootstrap {
	return func(opts cli.Options) (*cli.Services, error) {
		configStore, err := file.NewConfigStore(opts.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		settings := services.NewSettingsService(configStore, ai.NewConfigValidator())

		return &cli.Services{
			Settings: settings,
			OpenSession: func(ctx context.Context) (*cli.Session, error) {
				return openSession(ctx, settings, opts.ConfigDir, b)
			},
		}, nil
	}
}

// dimensionSample is embedded when a model does not report its vector size.
const dimensionSample = "dimension check"

// checkDimensions fails with ErrDimensionMismatch when the embedding size
// differs from the collection's. A model that does not report its size is
// asked for one embedding first.
func checkDimensions(ctx context.Context, embedder driven.EmbeddingService, want int) error {
	dims := embedder.Dimensions()
	if dims == 0 {
		vec, err := embedder.Embed(ctx, dimensionSample)
		if err != nil {
			return fmt.Errorf("measuring embedding dimensions: %w", err)
		}
		dims = len(vec)
		logger.Debug("%s produces %d dimensions", embedder.ModelName(), dims)
	}
	if dims != want {
		return fmt.Errorf("%w: model %s produces %d dimensions, collection expects %d",
			domain.ErrDimensionMismatch, embedder.ModelName(), dims, want)
	}
	return nil
}

// openSession builds the pipeline. Adapters opened before a failure are closed.
func openSession(ctx context.Context, settingsSvc *services.SettingsService, configDir string, b Builders) (_ *cli.Session, err error) {
	if err := settingsSvc.Validate(); err != nil {
		return nil, err
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, err
	}

	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, "prompts")
		if settings.VectorStore.Path == "" {
			settings.VectorStore.Path = filepath.Join(configDir, "data")
		}
	}

	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				logger.Warn("closing after failed start: %v", cerr)
			}
		}
	}()

	embedder, err := b.Embedder(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	closers = append(closers, embedder.Close)
	if err := checkDimensions(ctx, embedder, settings.VectorStore.Dimensions); err != nil {
		return nil, err
	}

	llm, err := b.LLM(&settings.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating LLM service: %w", err)
	}
	closers = append(closers, llm.Close)

	store, err := b.Store(ctx, settings.VectorStore)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	closers = append(closers, store.Close)

	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	chunker, err := postprocessors.DefaultRegistry().BuildPipeline(settings.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	pipeline, err := services.NewPipeline(services.PipelineDeps{
		Settings: *settings,
		Loader:   normalisers.DefaultRegistry(),
		Chunker:  chunker,
		Embedder: ai.ThrottleEmbedding(embedder, settings.Limits.EmbedRPS),
		Store:    store,
		LLM:      ai.GuardLLM(llm, settings.Limits.BreakerFailures),
		Prompts:  prompts,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("pipeline ready: %s embeddings, %s answers, %s store",
		embedder.ModelName(), llm.ModelName(), settings.VectorStore.Backend)

	query := services.NewQueryService(pipeline)
	return &cli.Session{
		Index:    services.NewIndexService(pipeline),
		Query:    query,
		History:  query,
		Supports: pipeline.Supports,
		Close:    pipeline.Close,
	}, nil
}
