// Package redis provides a vector store kept in plain Redis data structures.
//
// Each collection uses:
//
//	docqa:{collection}:meta      hash with the collection dimensions
//	docqa:{collection}:ids       sorted set of vector IDs in insertion order
//	docqa:{collection}:seq       insertion counter
//	docqa:{collection}:vec:{id}  hash with content, metadata JSON and vector bytes
//
// Search loads the collection and ranks it in Go, so no Redis modules are needed.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

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

const keyPrefix = "docqa:"

// Hash fields.
const (
	fieldDimensions = "dimensions"
	fieldContent    = "content"
	fieldMetadata   = "metadata"
	fieldVector     = "vector"
)

// Config holds Redis connection settings.
type Config struct {
	Addr        string
	Password    string
	DB          int
	Collection  string
	Dimensions  int
	DialTimeout time.Duration
}

// Store is a Redis-backed vector collection.
type Store struct {
	client     *goredis.Client
	collection string
	dimensions int
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is required", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: connect to redis at %s: %v", domain.ErrVectorStoreUnavailable, cfg.Addr, err)
	}

	return &Store{
		client:     client,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
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

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(suffix string) string {
	return keyPrefix + s.collection + ":" + suffix
}

func (s *Store) vectorKey(id string) string {
	return s.key("vec:" + id)
}

// EnsureCollection records the collection dimensions if the collection is new.
func (s *Store) EnsureCollection(ctx context.Context) error {
	metaKey := s.key("meta")
	if err := s.client.HSetNX(ctx, metaKey, fieldDimensions, s.dimensions).Err(); err != nil {
		return wrapErr("create collection", err)
	}

	stored, err := s.client.HGet(ctx, metaKey, fieldDimensions).Int()
	if err != nil {
		return wrapErr("read collection", err)
	}
	if stored != s.dimensions {
		return fmt.Errorf("%w: collection %s has %d dimensions, configured %d",
			domain.ErrDimensionMismatch, s.collection, stored, s.dimensions)
	}
	return nil
}

// DeleteCollection removes every key of the collection.
func (s *Store) DeleteCollection(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.key("ids"), 0, -1).Result()
	if err != nil {
		return wrapErr("list vectors", err)
	}

	keys := []string{s.key("meta"), s.key("ids"), s.key("seq")}
	for _, id := range ids {
		keys = append(keys, s.vectorKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return wrapErr("delete collection", err)
	}
	return nil
}

// Upsert stores vectors, creating the collection if needed.
// Re-upserting an ID overwrites it in place.
func (s *Store) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	if err := vectorstore.CheckDimensions(vectors, s.dimensions); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}

	// Reserve a contiguous block of insertion positions.
	last, err := s.client.IncrBy(ctx, s.key("seq"), int64(len(vectors))).Result()
	if err != nil {
		return wrapErr("reserve positions", err)
	}
	first := last - int64(len(vectors)) + 1

	pipe := s.client.TxPipeline()
	for i, v := range vectors {
		meta, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", v.ID, err)
		}
		pipe.HSet(ctx, s.vectorKey(v.ID),
			fieldContent, v.Content,
			fieldMetadata, string(meta),
			fieldVector, vectorstore.EncodeVector(v.Vector),
		)
		pipe.ZAddNX(ctx, s.key("ids"), goredis.Z{Score: float64(first + int64(i)), Member: v.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr("write vectors", err)
	}
	return nil
}

// SimilaritySearch returns the k most similar vectors without their values.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.ScoredVector, error) {
	return s.search(ctx, query, k, false)
}

// SearchCandidates returns the fetchK most similar vectors with their values.
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

	candidates, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return vectorstore.Rank(query, candidates, k, withVectors), nil
}

// load reads every vector of the collection in insertion order.
func (s *Store) load(ctx context.Context) ([]domain.IndexedVector, error) {
	ids, err := s.client.ZRange(ctx, s.key("ids"), 0, -1).Result()
	if err != nil {
		return nil, wrapErr("list vectors", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.vectorKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapErr("read vectors", err)
	}

	vectors := make([]domain.IndexedVector, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		v := domain.IndexedVector{
			ID:      ids[i],
			Content: fields[fieldContent],
			Vector:  vectorstore.DecodeVector([]byte(fields[fieldVector])),
		}
		if raw := fields[fieldMetadata]; raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &v.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", ids[i], err)
			}
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// DeleteBySource drops the vectors loaded from filePath.
func (s *Store) DeleteBySource(ctx context.Context, filePath string) (int, error) {
	vectors, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	removed := 0
	for _, v := range vectors {
		if !vectorstore.FromSource(v, filePath) {
			continue
		}
		pipe.ZRem(ctx, s.key("ids"), v.ID)
		pipe.Del(ctx, s.vectorKey(v.ID))
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, wrapErr("delete vectors", err)
	}
	return removed, nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key("ids")).Result()
	if err != nil {
		return 0, wrapErr("count vectors", err)
	}
	return int(n), nil
}

func wrapErr(op string, err error) error {
	if errors.Is(err, goredis.Nil) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrVectorStoreUnavailable, op, err)
}
