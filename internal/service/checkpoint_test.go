package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/batch"
	"github.com/MimeLyc/srt-translator/internal/persistence"
)

func newSQLiteStore(t *testing.T) *persistence.SQLiteStore {
	t.Helper()
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "srt-translator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPersistentBatchCheckpoints_SaveAndReload(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	b := batch.Batch{Number: 1, TranslateIDs: []int{2, 3}}

	cp, err := newPersistentBatchCheckpoints(ctx, store, "job-1")
	require.NoError(t, err)
	_, ok := cp.Load(b)
	assert.False(t, ok)

	require.NoError(t, cp.Save(ctx, b, map[int]string{2: "deux", 3: "trois"}))
	got, ok := cp.Load(b)
	require.True(t, ok)
	assert.Equal(t, map[int]string{2: "deux", 3: "trois"}, got)

	reloaded, err := newPersistentBatchCheckpoints(ctx, store, "job-1")
	require.NoError(t, err)
	got, ok = reloaded.Load(b)
	require.True(t, ok)
	assert.Equal(t, "trois", got[3])

	require.NoError(t, reloaded.clear(ctx))
	cleared, err := newPersistentBatchCheckpoints(ctx, store, "job-1")
	require.NoError(t, err)
	_, ok = cleared.Load(b)
	assert.False(t, ok)
}

func TestPersistentBatchCheckpoints_IgnoresDifferentPlan(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveBatchCheckpoint(ctx, "job-1", 0, map[int]string{0: "zéro", 1: "un"}))

	cp, err := newPersistentBatchCheckpoints(ctx, store, "job-1")
	require.NoError(t, err)

	_, ok := cp.Load(batch.Batch{Number: 0, TranslateIDs: []int{0, 1, 2}})
	assert.False(t, ok)
	_, ok = cp.Load(batch.Batch{Number: 0, TranslateIDs: []int{0, 5}})
	assert.False(t, ok)
	_, ok = cp.Load(batch.Batch{Number: 0, TranslateIDs: []int{0, 1}})
	assert.True(t, ok)
}

func TestPersistentBatchCheckpoints_Validation(t *testing.T) {
	_, err := newPersistentBatchCheckpoints(context.Background(), nil, "job-1")
	require.Error(t, err)
	_, err = newPersistentBatchCheckpoints(context.Background(), newSQLiteStore(t), "")
	require.Error(t, err)

	var nilCheckpoints *persistentBatchCheckpoints
	_, ok := nilCheckpoints.Load(batch.Batch{})
	assert.False(t, ok)
	require.NoError(t, nilCheckpoints.clear(context.Background()))
}
