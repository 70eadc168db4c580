package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// mockLoader serves documents from an in-memory map keyed by path.
type mockLoader struct {
	docs map[string][]domain.Document
	errs map[string]error
}

func newMockLoader() *mockLoader {
	return &mockLoader{docs: map[string][]domain.Document{}, errs: map[string]error{}}
}

func (m *mockLoader) add(path, content string) {
	name := filepath.Base(path)
	m.docs[path] = append(m.docs[path], domain.Document{
		ID:      path,
		URI:     path,
		Content: content,
		Metadata: map[string]any{
			domain.MetaSource:   name,
			domain.MetaFilePath: path,
		},
	})
}

func (m *mockLoader) Load(_ context.Context, path string) ([]domain.Document, error) {
	if err, ok := m.errs[path]; ok {
		return nil, err
	}
	docs, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return docs, nil
}

func (m *mockLoader) Supports(path string) bool {
	_, ok := m.docs[path]
	return ok
}

// paragraphChunker emits one chunk per blank-line separated paragraph.
type paragraphChunker struct{}

func (paragraphChunker) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for i, para := range strings.Split(doc.Content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s#%d", doc.ID, i),
			DocumentID: doc.ID,
			Content:    para,
			Position:   i,
			Metadata:   domain.CopyMetadata(doc.Metadata),
		})
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return chunks, nil
}

// mockEmbedding maps text to fixed vectors; unknown text embeds to fallback.
type mockEmbedding struct {
	mu       sync.Mutex
	dims     int
	vectors  map[string][]float32
	fallback []float32
	err      error
	batches  []int
}

func newMockEmbedding(dims int) *mockEmbedding {
	fallback := make([]float32, dims)
	fallback[0] = 1
	return &mockEmbedding{dims: dims, vectors: map[string][]float32{}, fallback: fallback}
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, len(texts))
	m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int              { return m.dims }
func (m *mockEmbedding) ModelName() string            { return "mock-embed" }
func (m *mockEmbedding) Ping(_ context.Context) error { return nil }
func (m *mockEmbedding) Close() error                 { return nil }

// mockLLM records the messages it receives.
type mockLLM struct {
	answer   string
	err      error
	messages []driven.ChatMessage
	opts     driven.ChatOptions
	closed   bool
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.messages = messages
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string           { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error {
	m.closed = true
	return nil
}

// mockPrompts serves fixed templates.
type mockPrompts struct {
	prompts map[string]string
}

func newMockPrompts() *mockPrompts {
	return &mockPrompts{prompts: map[string]string{
		driven.PromptRAGSystem:   "system prompt",
		driven.PromptRAGQuestion: "CONTEXT:\n%s\nQUESTION: %s",
	}}
}

func (m *mockPrompts) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("unknown prompt: " + name)
	}
	return p, nil
}

func (m *mockPrompts) Reload() {}

// similarityOnlyStore hides the candidate capability of the memory store.
type similarityOnlyStore struct {
	driven.VectorStore
}

// unsupportedCandidatesStore reports ErrMMRUnsupported from SearchCandidates.
type unsupportedCandidatesStore struct {
	*memory.Store
}

func (s unsupportedCandidatesStore) SearchCandidates(_ context.Context, _ []float32, _ int) ([]domain.ScoredVector, error) {
	return nil, domain.ErrMMRUnsupported
}

// failingStore fails every operation with err.
type failingStore struct {
	*memory.Store
	err        error
	failEnsure bool
}

func (s *failingStore) EnsureCollection(ctx context.Context) error {
	if s.failEnsure {
		return s.err
	}
	return s.Store.EnsureCollection(ctx)
}

func (s *failingStore) DeleteCollection(_ context.Context) error {
	return s.err
}

func (s *failingStore) Upsert(_ context.Context, _ []domain.IndexedVector) error {
	return s.err
}

func (s *failingStore) SimilaritySearch(_ context.Context, _ []float32, _ int) ([]domain.ScoredVector, error) {
	return nil, s.err
}

func (s *failingStore) SearchCandidates(_ context.Context, _ []float32, _ int) ([]domain.ScoredVector, error) {
	return nil, s.err
}

// fixture bundles a pipeline with its mocks.
type fixture struct {
	loader   *mockLoader
	embedder *mockEmbedding
	store    driven.VectorStore
	llm      *mockLLM
	prompts  *mockPrompts
	settings domain.AppSettings
}

func newFixture() *fixture {
	return &fixture{
		loader:   newMockLoader(),
		embedder: newMockEmbedding(3),
		store:    memory.New("test", 3),
		llm:      &mockLLM{answer: "the answer"},
		prompts:  newMockPrompts(),
		settings: domain.DefaultAppSettings(),
	}
}

func (f *fixture) pipeline() (*Pipeline, error) {
	return NewPipeline(PipelineDeps{
		Settings: f.settings,
		Loader:   f.loader,
		Chunker:  paragraphChunker{},
		Embedder: f.embedder,
		Store:    f.store,
		LLM:      f.llm,
		Prompts:  f.prompts,
	})
}
