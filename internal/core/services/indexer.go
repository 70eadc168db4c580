package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure IndexService implements the interface.
var (
	_ driving.IndexService  = (*IndexService)(nil)
	_ driving.SourceRemover = (*IndexService)(nil)
)

// EmbedBatchSize is the number of chunks embedded per provider call.
const EmbedBatchSize = 64

// IndexService loads, chunks, embeds and stores documents.
type IndexService struct {
	p *Pipeline
}

// NewIndexService creates an index service over the pipeline.
func NewIndexService(p *Pipeline) *IndexService {
	return &IndexService{p: p}
}

// Index processes a batch of files.
// Chunk indexes are assigned across the whole batch in output order from 0.
func (s *IndexService) Index(ctx context.Context, paths []string) (*domain.IndexReport, error) {
	report := &domain.IndexReport{}
	if len(paths) == 0 {
		return report, nil
	}

	logger.Section("Indexing")

	var chunks []domain.Chunk
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report, err
		}

		name := filepath.Base(path)
		fileChunks, err := s.loadFile(ctx, path)
		if err != nil {
			logger.Debug("skipping %s: %v", name, err)
			report.Failures = append(report.Failures, domain.FileFailure{File: name, Err: err})
			continue
		}
		logger.Debug("loaded %s: %d chunk(s)", name, len(fileChunks))
		report.Processed = append(report.Processed, name)
		chunks = append(chunks, fileChunks...)
	}

	if len(chunks) == 0 {
		return report, nil
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Metadata[domain.MetaChunkIndex] = i
	}

	if err := s.store(ctx, chunks, report); err != nil {
		report.Err = err
		return report, err
	}

	logger.Debug("indexed %d chunk(s) from %d file(s)", report.ChunkCount, len(report.Processed))
	return report, nil
}

// loadFile normalises and chunks one file. Empty pages are skipped; a file
// with no text at all fails with ErrEmptyDocument.
func (s *IndexService) loadFile(ctx context.Context, path string) ([]domain.Chunk, error) {
	docs, err := s.p.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	var out []domain.Chunk
	for i := range docs {
		chunks, err := s.p.chunker.Process(ctx, &docs[i])
		if errors.Is(err, domain.ErrEmptyDocument) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for j := range chunks {
			if chunks[j].Metadata == nil {
				chunks[j].Metadata = domain.CopyMetadata(docs[i].Metadata)
			}
		}
		out = append(out, chunks...)
	}
	if len(out) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return out, nil
}

// store embeds chunks in batches and upserts each batch.
func (s *IndexService) store(ctx context.Context, chunks []domain.Chunk, report *domain.IndexReport) error {
	if err := s.p.store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	for start := 0; start < len(chunks); start += EmbedBatchSize {
		end := min(start+EmbedBatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		embeddings, err := s.p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("%w: got %d embeddings for %d chunks",
				domain.ErrEmbeddingUnavailable, len(embeddings), len(batch))
		}

		vectors := make([]domain.IndexedVector, len(batch))
		for i, c := range batch {
			vectors[i] = domain.IndexedVector{
				ID:       c.ID,
				Vector:   embeddings[i],
				Content:  c.Content,
				Metadata: c.Metadata,
			}
		}
		if err := s.p.store.Upsert(ctx, vectors); err != nil {
			return fmt.Errorf("upsert chunks %d-%d: %w", start, end-1, err)
		}
		report.ChunkCount += len(batch)
		logger.Debug("stored chunks %d-%d", start, end-1)
	}
	return nil
}

// Clear deletes and recreates the collection.
func (s *IndexService) Clear(ctx context.Context) (string, error) {
	if err := s.p.store.DeleteCollection(ctx); err != nil {
		return domain.StatusClearFailed + err.Error(), fmt.Errorf("delete collection: %w", err)
	}
	if err := s.p.store.EnsureCollection(ctx); err != nil {
		return domain.StatusClearFailed + err.Error(), fmt.Errorf("recreate collection: %w", err)
	}
	logger.Debug("cleared collection %s", s.p.store.Collection())
	return domain.StatusCleared, nil
}

// RemoveSources deletes the chunks previously loaded from paths, matched on
// the file_path metadata.
func (s *IndexService) RemoveSources(ctx context.Context, paths []string) (int, error) {
	deleter, ok := s.p.store.(driven.SourceDeleter)
	if !ok {
		logger.Debug("store %s cannot delete by source", s.p.store.Collection())
		return 0, nil
	}

	removed := 0
	for _, path := range paths {
		n, err := deleter.DeleteBySource(ctx, path)
		if err != nil {
			return removed, fmt.Errorf("remove %s: %w", filepath.Base(path), err)
		}
		if n > 0 {
			logger.Debug("removed %d chunk(s) of %s", n, filepath.Base(path))
		}
		removed += n
	}
	return removed, nil
}

// Count returns the number of stored chunks.
func (s *IndexService) Count(ctx context.Context) (int, error) {
	return s.p.store.Count(ctx)
}
