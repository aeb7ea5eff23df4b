package kv

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitSQLite(db))
	return NewSQLiteStore(db)
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "persist:pageSize", map[string]int{"users": 25}, 0))
	require.NoError(t, s.Set(ctx, "persist:pageSize", map[string]int{"users": 75}, 0))

	var got map[string]int
	ok, err := s.Get(ctx, "persist:pageSize", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]int{"users": 75}, got)
}

func TestSQLiteStore_MissCorruptDelete(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	var got map[string]int
	ok, err := s.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetRaw(ctx, "k", []byte("nope"), 0))
	ok, err = s.Get(ctx, "k", &got)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, s.Delete(ctx, "k"))
	ok, err = s.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}
