package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/pkg/file"
	"github.com/MimeLyc/srt-translator/pkg/icron"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// Watcher periodically imports new subtitle files from a directory and
// starts a translation job for each.
type Watcher struct {
	svc  *Service
	cron *cron.Cron
	dir  string
	now  func() time.Time

	mu       sync.Mutex
	cronExpr string
	entryID  cron.EntryID
	lastRun  time.Time

	runs singleflight.Group
}

// Watch schedules a watcher for the configured directory on c. The caller
// owns c and starts or stops it.
func (s *Service) Watch(ctx context.Context, c *cron.Cron) (*Watcher, error) {
	cfg := s.Config()
	if !cfg.Watch.Enabled() {
		return nil, fmt.Errorf("watch directory is not configured")
	}
	w := &Watcher{
		svc:  s,
		cron: c,
		dir:  cfg.Watch.Dir,
		now:  time.Now,
	}
	if err := w.schedule(ctx, cfg.Watch.CronExpr); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
	return w, nil
}

func (w *Watcher) schedule(ctx context.Context, expr string) error {
	if _, err := icron.GetTriggerInfo(expr, w.now()); err != nil {
		return NewErrorWithCause(ErrValidation, "invalid cron expression", err)
	}

	id, err := w.cron.AddFunc(expr, func() {
		if _, err := w.Scan(ctx); err != nil {
			log.Error("Failed to scan %s: %v", w.dir, err)
		}
	})
	if err != nil {
		return NewErrorWithCause(ErrValidation, "invalid cron expression", err)
	}

	w.mu.Lock()
	old := w.entryID
	w.entryID = id
	w.cronExpr = expr
	w.mu.Unlock()

	if old != 0 {
		w.cron.Remove(old)
	}
	log.Info("Watching %s on schedule %q", w.dir, expr)
	return nil
}

// Reschedule replaces the schedule. An unchanged expression is a no-op.
func (w *Watcher) Reschedule(expr string) error {
	w.mu.Lock()
	same := expr == w.cronExpr
	w.mu.Unlock()
	if same {
		return nil
	}
	return w.schedule(context.Background(), expr)
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	id := w.entryID
	w.entryID = 0
	w.mu.Unlock()
	if id != 0 {
		w.cron.Remove(id)
	}
}

// Scan imports subtitle files modified since the previous scan and starts a
// job for each. Outputs of earlier runs and files already translated are
// skipped. Overlapping scans share one run.
func (w *Watcher) Scan(ctx context.Context) ([]*jobs.TranslationJob, error) {
	v, err, _ := w.runs.Do("run", func() (any, error) {
		return w.scan(ctx)
	})
	started, _ := v.([]*jobs.TranslationJob)
	return started, err
}

func (w *Watcher) scan(ctx context.Context) ([]*jobs.TranslationJob, error) {
	scanTime := w.now()
	since, err := w.startTime(scanTime)
	if err != nil {
		return nil, err
	}
	log.Info("Searching %s for subtitles modified after %v", w.dir, since)

	candidates, err := file.FindRecentAfter(w.dir, since, ".srt")
	if err != nil {
		return nil, fmt.Errorf("failed to find recent files: %w", err)
	}

	suffix := w.svc.DefaultOptions().OutputSuffix
	imported := make(map[string]struct{})
	for _, item := range w.svc.ListFiles() {
		imported[item.Path] = struct{}{}
	}

	var (
		started []*jobs.TranslationJob
		errs    []error
	)
	for _, path := range candidates {
		if file.HasSuffix(path, suffix) {
			continue
		}
		if _, ok := imported[path]; ok {
			continue
		}
		if _, err := os.Stat(file.TranslatedPath(path, suffix)); err == nil {
			continue
		}

		job, err := w.enqueue(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		started = append(started, job)
	}

	w.mu.Lock()
	w.lastRun = scanTime
	w.mu.Unlock()

	log.Info("Started %d jobs from %s", len(started), w.dir)
	return started, errors.Join(errs...)
}

func (w *Watcher) enqueue(ctx context.Context, path string) (*jobs.TranslationJob, error) {
	items, err := w.svc.ImportFiles([]string{path})
	if err != nil {
		return nil, err
	}
	job, err := w.svc.CreateJob(items[0].ID, w.svc.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return w.svc.StartJob(ctx, job.ID)
}

// startTime is the previous scan, or on the first scan the previous cron
// firing. A first firing within the last day looks back a week instead.
func (w *Watcher) startTime(now time.Time) (time.Time, error) {
	w.mu.Lock()
	last, expr := w.lastRun, w.cronExpr
	w.mu.Unlock()
	if !last.IsZero() {
		return last, nil
	}

	info, err := icron.GetTriggerInfo(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get cron schedule: %w", err)
	}
	if now.Add(-24 * time.Hour).Before(info.Last) {
		return now.Add(-24 * 7 * time.Hour), nil
	}
	return info.Last, nil
}
