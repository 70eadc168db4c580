// Package stores opens the configured vector store backend.
package stores

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/qdrant"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/redis"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Open builds the store selected by settings. Remote backends fall back to
// their default address when URL is empty.
func Open(ctx context.Context, settings domain.VectorStoreSettings) (driven.VectorStore, error) {
	collection := settings.Collection
	if collection == "" {
		collection = domain.DefaultCollection
	}
	dims := settings.Dimensions
	if dims <= 0 {
		return nil, fmt.Errorf("%w: vector_store.dimensions must be positive", domain.ErrInvalidInput)
	}
	url := settings.URL
	if url == "" {
		url = domain.DefaultVectorURLs()[settings.Backend]
	}

	switch settings.Backend {
	case domain.VectorBackendMemory:
		return memory.New(collection, dims), nil
	case domain.VectorBackendSQLite, "":
		return sqlite.NewStore(settings.Path, collection, dims)
	case domain.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:        url,
			APIKey:     settings.APIKey,
			Collection: collection,
			Dimensions: dims,
		})
	case domain.VectorBackendRedis:
		return redis.New(ctx, redis.Config{
			Addr:       url,
			Password:   settings.APIKey,
			Collection: collection,
			Dimensions: dims,
		})
	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}
