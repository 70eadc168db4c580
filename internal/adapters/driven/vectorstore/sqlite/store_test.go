package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorstore/storetest"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// setupTestStore creates a store in a temporary directory.
func setupTestStore(t *testing.T, dir, collection string, dims int) *Store {
	t.Helper()
	store, err := NewStore(dir, collection, dims)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) driven.VectorStore {
		return setupTestStore(t, t.TempDir(), "test_collection", storetest.Dimensions)
	})
}

func TestNewStore_Validation(t *testing.T) {
	_, err := NewStore(t.TempDir(), "", 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewStore(t.TempDir(), "c", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewStore(dir, "docs", storetest.Dimensions)
	require.NoError(t, err)
	require.NoError(t, first.Upsert(ctx, storetest.Fixture()))
	require.NoError(t, first.Close())

	second := setupTestStore(t, dir, "docs", storetest.Dimensions)
	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var version int
	require.NoError(t, second.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a := setupTestStore(t, dir, "a", storetest.Dimensions)
	b := setupTestStore(t, dir, "b", storetest.Dimensions)
	require.NoError(t, a.Upsert(ctx, storetest.Fixture()))

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, b.DeleteCollection(ctx))
	n, err = a.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_DimensionChangeRejected(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	small := setupTestStore(t, dir, "docs", storetest.Dimensions)
	require.NoError(t, small.EnsureCollection(ctx))

	large := setupTestStore(t, dir, "docs", 8)
	assert.ErrorIs(t, large.EnsureCollection(ctx), domain.ErrDimensionMismatch)
}
