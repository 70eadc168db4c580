package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.VectorStore       = (*Store)(nil)
	_ driven.CandidateSearcher = (*Store)(nil)
	_ driven.SourceDeleter     = (*Store)(nil)
)

// DatabaseFile is the file name inside the data directory.
const DatabaseFile = "vectors.db"

// Store is a SQLite-backed vector collection.
type Store struct {
	db         *sql.DB
	path       string
	collection string
	dimensions int
}

// NewStore opens (or creates) the database in dataDir and binds one collection.
// If dataDir is empty, defaults to ~/.docqa/data.
func NewStore(dataDir, collection string, dimensions int) (*Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", domain.ErrInvalidInput)
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while an index batch is being written.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		collection: collection,
		dimensions: dimensions,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Collection returns the collection name.
func (s *Store) Collection() string {
	return s.collection
}

// Dimensions returns the configured vector size.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// migrate runs all pending migrations and records their versions.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_vectors.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// EnsureCollection creates the collection row if it does not exist.
// An existing collection with a different dimension is a configuration error.
func (s *Store) EnsureCollection(ctx context.Context) error {
	return ensureCollection(ctx, s.db, s.collection, s.dimensions)
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensureCollection(ctx context.Context, db execQueryer, name string, dimensions int) error {
	_, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, dimensions) VALUES (?, ?)", name, dimensions)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	var stored int
	if err := db.QueryRowContext(ctx,
		"SELECT dimensions FROM collections WHERE name = ?", name).Scan(&stored); err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}
	if stored != dimensions {
		return fmt.Errorf("%w: collection %s has %d dimensions, configured %d",
			domain.ErrDimensionMismatch, name, stored, dimensions)
	}
	return nil
}

// DeleteCollection removes the collection and, by cascade, its vectors.
func (s *Store) DeleteCollection(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE collection = ?", s.collection); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", s.collection); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return tx.Commit()
}

// Upsert stores vectors in one transaction, replacing rows with the same ID.
func (s *Store) Upsert(ctx context.Context, vectors []domain.IndexedVector) error {
	if err := vectorstore.CheckDimensions(vectors, s.dimensions); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := ensureCollection(ctx, tx, s.collection, s.dimensions); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, id, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vectors {
		metaJSON, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", v.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, v.ID, v.Content, string(metaJSON),
			vectorstore.EncodeVector(v.Vector)); err != nil {
			return fmt.Errorf("inserting vector %s: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// SimilaritySearch returns the k most similar vectors without their embeddings.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.ScoredVector, error) {
	return s.search(ctx, query, k, false)
}

// SearchCandidates returns the fetchK most similar vectors with embeddings.
func (s *Store) SearchCandidates(ctx context.Context, query []float32, fetchK int) ([]domain.ScoredVector, error) {
	return s.search(ctx, query, fetchK, true)
}

func (s *Store) search(ctx context.Context, query []float32, k int, withVectors bool) ([]domain.ScoredVector, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata, embedding FROM vectors WHERE collection = ? ORDER BY rowid",
		s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var candidates []domain.IndexedVector
	for rows.Next() {
		var (
			v        domain.IndexedVector
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&v.ID, &v.Content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		if metaJSON != "" && metaJSON != "null" {
			if err := json.Unmarshal([]byte(metaJSON), &v.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling metadata for %s: %w", v.ID, err)
			}
		}
		v.Vector = vectorstore.DecodeVector(blob)
		candidates = append(candidates, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	if err := vectorstore.CheckQuery(query, s.dimensions); err != nil {
		return nil, err
	}
	return vectorstore.Rank(query, candidates, k, withVectors), nil
}

// Count returns the number of stored vectors.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE collection = ?", s.collection).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// DeleteBySource drops the vectors loaded from filePath.
func (s *Store) DeleteBySource(ctx context.Context, filePath string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE collection = ? AND json_extract(metadata, '$.file_path') = ?",
		s.collection, filePath)
	if err != nil {
		return 0, fmt.Errorf("deleting vectors of %s: %w", filePath, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted vectors: %w", err)
	}
	return int(n), nil
}
