package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

func newWatchedService(t *testing.T, dir string) *Service {
	t.Helper()
	cfg := testConfig()
	cfg.Watch.Dir = dir
	cfg.Watch.CronExpr = "*/10 * * * *"
	return New(cfg,
		WithClientFactory(func(_ config.LLMConfig) (translator.Client, error) { return echoClient, nil }),
		WithOrchestrator(NewOrchestrator(WithSleeper(noSleep))),
	)
}

func TestWatcher_ScanStartsJobsForNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeSRT(t, dir, "a.srt", twoCueSRT)
	writeSRT(t, dir, "b_translated.srt", twoCueSRT)
	writeSRT(t, dir, "c.srt", twoCueSRT)
	writeSRT(t, dir, "c_translated.srt", twoCueSRT)
	writeSRT(t, dir, "notes.txt", "not a subtitle")

	svc := newWatchedService(t, dir)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	c := cron.New()
	w, err := svc.Watch(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	started, err := w.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, started, 1)
	assert.Equal(t, "a.srt", started[0].FileName)

	done := waitJob(t, svc, started[0].ID)
	require.Equal(t, jobs.StatusDone, done.Status, done.Error)
	_, err = os.Stat(filepath.Join(dir, "a_translated.srt"))
	require.NoError(t, err)

	again, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestWatcher_PicksUpFilesAfterLastScan(t *testing.T) {
	dir := t.TempDir()
	svc := newWatchedService(t, dir)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	w, err := svc.Watch(context.Background(), cron.New())
	require.NoError(t, err)

	started, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, started)

	path := writeSRT(t, dir, "late.srt", twoCueSRT)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	started, err = w.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, started, 1)
	waitJob(t, svc, started[0].ID)
}

func TestWatcher_Reschedule(t *testing.T) {
	svc := newWatchedService(t, t.TempDir())
	c := cron.New()
	w, err := svc.Watch(context.Background(), c)
	require.NoError(t, err)

	require.Error(t, w.Reschedule("not a cron"))
	require.Len(t, c.Entries(), 1)

	require.NoError(t, w.Reschedule("@hourly"))
	require.Len(t, c.Entries(), 1)

	require.NoError(t, svc.ApplyRuntimeSettings(config.RuntimeSettings{
		LLMAPIURL:      "http://localhost:8000/v1",
		LLMModel:       "m",
		CronExpr:       "5 * * * *",
		TargetLanguage: "fr",
	}))
	assert.Equal(t, "5 * * * *", w.cronExpr)
	require.Len(t, c.Entries(), 1)

	w.Stop()
	assert.Empty(t, c.Entries())
}

func TestWatch_RequiresDirectory(t *testing.T) {
	svc := newTestService(t, echoClient)
	_, err := svc.Watch(context.Background(), cron.New())
	require.Error(t, err)
}

func TestWatcher_StartTime(t *testing.T) {
	w := &Watcher{cronExpr: "0 0 1 1 *"}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	got, err := w.startTime(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)

	w.cronExpr = "*/10 * * * *"
	got, err = w.startTime(now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), got)

	w.lastRun = now.Add(-time.Minute)
	got, err = w.startTime(now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Minute), got)
}
