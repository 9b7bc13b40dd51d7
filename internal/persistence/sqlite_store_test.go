package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/jobs"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "srt-translator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_JobsRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	job := &jobs.TranslationJob{
		ID:       "job-1",
		FileID:   "file-1",
		FileName: "a.srt",
		Status:   jobs.StatusRunning,
		Options: jobs.Options{
			TargetLang: "fr",
			BatchSize:  25,
			Threads:    3,
		},
		DoneCues:     10,
		TotalCues:    40,
		Percent:      25,
		TotalBatches: 2,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	job.Status = jobs.StatusError
	job.Error = "HTTP error: status 500: oops"
	job.Advice = "retry later"
	require.NoError(t, store.UpsertJob(ctx, job))

	all, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, jobs.StatusError, got.Status)
	assert.Equal(t, job.Options, got.Options)
	assert.Equal(t, 10, got.DoneCues)
	assert.Equal(t, 25.0, got.Percent)
	assert.Equal(t, "retry later", got.Advice)
	assert.True(t, now.Equal(got.CreatedAt))

	require.NoError(t, store.DeleteJob(ctx, job.ID))
	all, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLiteStore_FilesRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	item := jobs.FileItem{
		ID:        "file-1",
		Path:      "/subs/a.srt",
		Name:      "a.srt",
		CueCount:  12,
		Language:  "ja",
		Status:    jobs.FileReady,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, store.UpsertFile(ctx, item))

	item.Status = jobs.FileDone
	require.NoError(t, store.UpsertFile(ctx, item))

	files, err := store.LoadFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, item.Path, files[0].Path)
	assert.Equal(t, jobs.FileDone, files[0].Status)
	assert.Equal(t, 12, files[0].CueCount)

	require.NoError(t, store.DeleteFile(ctx, item.ID))
	files, err = store.LoadFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSQLiteStore_CheckpointAndCleanup(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	jobID := "job-1"
	require.NoError(t, store.SaveBatchCheckpoint(ctx, jobID, 2, map[int]string{3: "c", 4: "d"}))
	require.NoError(t, store.SaveBatchCheckpoint(ctx, jobID, 1, map[int]string{0: "a", 1: "b\nb"}))
	require.NoError(t, store.SaveBatchCheckpoint(ctx, "job-2", 1, map[int]string{0: "x"}))

	cps, err := store.LoadBatchCheckpoints(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, 1, cps[0].BatchNo)
	assert.Equal(t, map[int]string{0: "a", 1: "b\nb"}, cps[0].Translations)
	assert.Equal(t, 2, cps[1].BatchNo)

	require.NoError(t, store.DeleteBatchCheckpoints(ctx, jobID))
	cps, err = store.LoadBatchCheckpoints(ctx, jobID)
	require.NoError(t, err)
	assert.Empty(t, cps)

	other, err := store.LoadBatchCheckpoints(ctx, "job-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSQLiteStore_ReopenKeepsSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "srt-translator.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.UpsertFile(context.Background(), jobs.FileItem{
		ID: "file-1", Path: "/a.srt", Name: "a.srt", Status: jobs.FileReady, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	files, err := reopened.LoadFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestMigrationVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("012_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := NewSQLiteStore("  ")
	assert.Error(t, err)
}
