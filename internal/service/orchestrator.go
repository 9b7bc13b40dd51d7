package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/MimeLyc/srt-translator/internal/batch"
	"github.com/MimeLyc/srt-translator/internal/subtitle"
	"github.com/MimeLyc/srt-translator/internal/tagmask"
	"github.com/MimeLyc/srt-translator/internal/termmap"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

const (
	minThreads = 1
	maxThreads = 10
)

// Options control one document translation.
type Options struct {
	SourceLang string // BCP 47 tag or "auto"
	TargetLang string
	Batch      batch.Config
	Threads    int
	MaxRetries int
	MinDelay   time.Duration
	// Terms is an optional glossary matched against every batch.
	Terms termmap.TermMap
}

type TranslateRequest struct {
	JobID       string
	FileName    string
	Document    *subtitle.Document
	Options     Options
	Client      translator.Client
	Sink        EventSink
	Checkpoints BatchCheckpoints
}

// Orchestrator translates documents batch by batch on a bounded number of
// concurrent requests.
type Orchestrator struct {
	sleep Sleeper
	now   func() time.Time
}

type OrchestratorOption func(*Orchestrator)

// WithSleeper replaces the pacing and backoff sleep.
func WithSleeper(sleep Sleeper) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sleep: sleepContext,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func clampThreads(n int) int {
	return max(minThreads, min(n, maxThreads))
}

// TranslateDocument translates every cue of the document and returns the
// unmasked translations keyed by cue id. All dispatched batches are awaited
// before a failure is reported; the reported error is the one of the
// lowest-numbered failed batch.
func (o *Orchestrator) TranslateDocument(ctx context.Context, req TranslateRequest) (subtitle.Translations, error) {
	doc := req.Document
	if doc == nil || len(doc.Cues) == 0 {
		return nil, fmt.Errorf("document has no cues")
	}
	if req.Client == nil {
		return nil, fmt.Errorf("translation client is required")
	}

	opts := req.Options
	batches := batch.Plan(doc.Cues, opts.Batch)
	sourceLabel := translator.ResolveSourceLabel(opts.SourceLang, doc.Language)
	targetLabel := translator.ResolveTargetLabel(opts.TargetLang)

	run := &documentRun{
		jobID:        req.JobID,
		fileName:     req.FileName,
		doc:          doc,
		total:        len(doc.Cues),
		totalBatches: len(batches),
		translator:   translator.NewProtocolTranslator(req.Client, sourceLabel, targetLabel, translator.WithTermMap(opts.Terms)),
		policy: retryPolicy{
			maxRetries: opts.MaxRetries,
			minDelay:   opts.MinDelay,
			sleep:      o.sleep,
		},
		sink:        req.Sink,
		checkpoints: req.Checkpoints,
		now:         o.now,
		started:     o.now(),
		result:      make(subtitle.Translations, len(doc.Cues)),
	}
	if run.sink == nil {
		run.sink = nopSink{}
	}

	pending := run.restore(batches)
	threads := clampThreads(opts.Threads)
	log.Info("Translating %s: %d cues in %d batches (%d pending), %d threads, %s -> %s",
		req.FileName, run.total, len(batches), len(pending), threads, sourceLabel, targetLabel)

	sem := semaphore.NewWeighted(int64(threads))
	errs := make([]error, len(pending))
	var (
		g           errgroup.Group
		dispatchErr error
	)
	for i, b := range pending {
		i, b := i, b
		if err := sem.Acquire(ctx, 1); err != nil {
			dispatchErr = err
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			errs[i] = run.translateBatch(ctx, b)
			return errs[i]
		})
	}

	if err := g.Wait(); err != nil {
		for _, e := range errs {
			if e != nil {
				return nil, e
			}
		}
	}
	if dispatchErr != nil {
		return nil, dispatchErr
	}
	return run.translations(), nil
}

type documentRun struct {
	jobID        string
	fileName     string
	doc          *subtitle.Document
	total        int
	totalBatches int
	translator   *translator.ProtocolTranslator
	policy       retryPolicy
	sink         EventSink
	checkpoints  BatchCheckpoints
	now          func() time.Time
	started      time.Time
	resumed      int

	mu     sync.Mutex
	result subtitle.Translations

	done   atomic.Int64
	active atomic.Int32
}

// restore merges checkpointed batches and returns the ones still to run.
func (r *documentRun) restore(batches []batch.Batch) []batch.Batch {
	if r.checkpoints == nil {
		return batches
	}

	pending := make([]batch.Batch, 0, len(batches))
	for _, b := range batches {
		cached, ok := r.checkpoints.Load(b)
		if !ok {
			pending = append(pending, b)
			continue
		}
		r.merge(cached)
		r.resumed += len(b.TranslateIDs)
		r.status(b, BatchDone, "")
	}
	if r.resumed > 0 {
		done := r.done.Add(int64(r.resumed))
		r.emitProgress(int(done))
		log.Info("Resumed %d cues of %s from checkpoints", r.resumed, r.fileName)
	}
	return pending
}

func (r *documentRun) translateBatch(ctx context.Context, b batch.Batch) error {
	r.active.Add(1)
	defer r.active.Add(-1)

	r.status(b, BatchRunning, "")

	prompt, err := r.translator.Prompt(b)
	if err != nil {
		r.status(b, BatchError, err.Error())
		return fmt.Errorf("batch %d: %w", b.Number, err)
	}

	var out []string
	_, err = r.policy.run(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.translator.Exchange(ctx, prompt)
		return err
	}, func(attempt int, err error) {
		r.sink.Warning(WarningEvent{
			JobID:   r.jobID,
			BatchNo: b.Number,
			Message: fmt.Sprintf("Retrying batch %d (attempt %d): %v", b.Number, attempt, err),
		})
	})
	if err != nil {
		r.status(b, BatchError, err.Error())
		return fmt.Errorf("batch %d: %w", b.Number, err)
	}

	local := make(map[int]string, len(b.TranslateIDs))
	for i, id := range b.TranslateIDs {
		// The mapping is recomputed from the original text; Mask is pure.
		_, mapping := tagmask.Mask(r.doc.Cues[id].Text())
		if missing := tagmask.Missing(out[i], mapping); len(missing) > 0 {
			r.sink.Warning(WarningEvent{
				JobID:   r.jobID,
				BatchNo: b.Number,
				Message: fmt.Sprintf("Cue %d lost placeholders %s", id, strings.Join(missing, ", ")),
			})
		}
		local[id] = tagmask.Unmask(out[i], mapping)
	}
	r.merge(local)

	if r.checkpoints != nil {
		if err := r.checkpoints.Save(ctx, b, local); err != nil {
			log.Warn("Failed to checkpoint batch %d of job %s: %v", b.Number, r.jobID, err)
		}
	}

	done := r.done.Add(int64(len(b.TranslateIDs)))
	r.emitProgress(int(done))
	r.status(b, BatchDone, "")
	return nil
}

func (r *documentRun) merge(local map[int]string) {
	r.mu.Lock()
	for id, text := range local {
		r.result[id] = text
	}
	r.mu.Unlock()
}

func (r *documentRun) translations() subtitle.Translations {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make(subtitle.Translations, len(r.result))
	for id, text := range r.result {
		ret[id] = text
	}
	return ret
}

// emitProgress reports done cues with an ETA projected from the throughput
// of this run. Resumed cues do not count toward throughput.
func (r *documentRun) emitProgress(done int) {
	elapsed := max(r.now().Sub(r.started).Seconds(), 0.001)
	rate := float64(done-r.resumed) / elapsed
	remaining := float64(r.total - done)

	var eta int64
	if rate > 0 {
		eta = int64(math.Ceil(remaining / rate))
	}

	r.sink.Progress(ProgressEvent{
		JobID:         r.jobID,
		FileName:      r.fileName,
		DoneCues:      done,
		TotalCues:     r.total,
		Percent:       float64(done) / float64(r.total) * 100,
		ETASeconds:    eta,
		Stage:         StageTranslating,
		ActiveThreads: int(r.active.Load()),
	})
}

func (r *documentRun) status(b batch.Batch, state BatchState, errMsg string) {
	r.sink.BatchStatus(BatchStatus{
		JobID:        r.jobID,
		BatchNo:      b.Number,
		TotalBatches: r.totalBatches,
		Status:       state,
		CueStart:     b.FirstID(),
		CueEnd:       b.LastID(),
		ErrorMsg:     errMsg,
	})
}
