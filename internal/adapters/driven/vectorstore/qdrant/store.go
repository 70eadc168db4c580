// Package qdrant provides a vector store backed by a Qdrant server.
// It talks to the REST API directly: collections use cosine distance, and
// searches can return stored vectors so MMR retrieval works unchanged.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

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

// DefaultTimeout bounds each REST call.
const DefaultTimeout = 30 * time.Second

// Payload keys.
const (
	payloadID       = "chunk_id"
	payloadContent  = "content"
	payloadMetadata = "metadata"
)

// errCollectionNotFound marks a 404 from a collection endpoint.
var errCollectionNotFound = errors.New("collection not found")

// Config holds Qdrant connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
	Timeout    time.Duration
}

// Store is a REST client bound to one Qdrant collection.
type Store struct {
	baseURL    string
	apiKey     string
	collection string
	dimensions int
	client     *http.Client
}

// New creates a Qdrant store. No request is made until the first call.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// Dimensions returns the configured vector size.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// collectionInfo is the subset of GET /collections/{name} we read.
type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection creates the collection with cosine distance if missing.
// An existing collection with another size is a configuration error.
func (s *Store) EnsureCollection(ctx context.Context) error {
	var info collectionInfo
	err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, &info)
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != s.dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, configured %d",
				domain.ErrDimensionMismatch, s.collection, size, s.dimensions)
		}
		return nil
	case !errors.Is(err, errCollectionNotFound):
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil)
}

// DeleteCollection drops the collection. A missing collection is not an error.
func (s *Store) DeleteCollection(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionPath(""), nil, nil)
	if errors.Is(err, errCollectionNotFound) {
		return nil
	}
	return err
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes points and waits for the write to be applied.
func (s *Store) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	if err := vectorstore.CheckDimensions(vectors, s.dimensions); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}

	points := make([]point, len(vectors))
	for i, v := range vectors {
		points[i] = point{
			ID:     pointID(v.ID),
			Vector: v.Vector,
			Payload: map[string]any{
				payloadID:       v.ID,
				payloadContent:  v.Content,
				payloadMetadata: v.Metadata,
			},
		}
	}

	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, nil); err != nil {
		if errors.Is(err, errCollectionNotFound) {
			return fmt.Errorf("%w: collection %s does not exist", domain.ErrVectorStoreUnavailable, s.collection)
		}
		return err
	}
	return nil
}

// pointID returns a Qdrant-compatible ID. Qdrant accepts UUIDs or integers,
// so other IDs are mapped to a stable name-based UUID.
func pointID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

type searchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
		Vector  []float32      `json:"vector"`
	} `json:"result"`
}

// SimilaritySearch returns the k most similar points without their vectors.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.ScoredVector, error) {
	return s.search(ctx, query, k, false)
}

// SearchCandidates returns the fetchK most similar points with their vectors.
func (s *Store) SearchCandidates(ctx context.Context, query []float32, fetchK int) ([]domain.ScoredVector, error) {
	return s.search(ctx, query, fetchK, true)
}

func (s *Store) search(ctx context.Context, query []float32, k int, withVectors bool) ([]domain.ScoredVector, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := vectorstore.CheckQuery(query, s.dimensions); err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
		"with_vector":  withVectors,
	}
	var resp searchResponse
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), body, &resp)
	if errors.Is(err, errCollectionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hits := make([]domain.ScoredVector, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := domain.ScoredVector{Score: r.Score}
		hit.ID, _ = r.Payload[payloadID].(string)
		if hit.ID == "" {
			hit.ID = fmt.Sprint(r.ID)
		}
		hit.Content, _ = r.Payload[payloadContent].(string)
		if meta, ok := r.Payload[payloadMetadata].(map[string]any); ok {
			hit.Metadata = meta
		}
		if withVectors {
			hit.Vector = r.Vector
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the exact number of points.
func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), map[string]any{"exact": true}, &resp)
	if errors.Is(err, errCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// DeleteBySource drops the points whose payload metadata.file_path is filePath.
func (s *Store) DeleteBySource(ctx context.Context, filePath string) (int, error) {
	filter := map[string]any{
		"must": []map[string]any{{
			"key":   payloadMetadata + "." + domain.MetaFilePath,
			"match": map[string]any{"value": filePath},
		}},
	}

	var counted struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"),
		map[string]any{"exact": true, "filter": filter}, &counted)
	if errors.Is(err, errCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if counted.Result.Count == 0 {
		return 0, nil
	}

	err = s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"),
		map[string]any{"filter": filter}, nil)
	if errors.Is(err, errCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counted.Result.Count, nil
}

func (s *Store) collectionPath(suffix string) string {
	return s.baseURL + "/collections/" + url.PathEscape(s.collection) + suffix
}

// do sends a JSON request and decodes the JSON response into out.
func (s *Store) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s: %v", domain.ErrVectorStoreUnavailable, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errCollectionNotFound
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, endpoint, resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
