package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	"github.com/MimeLyc/srt-translator/internal/batch"
	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/llm"
	"github.com/MimeLyc/srt-translator/internal/subtitle"
	"github.com/MimeLyc/srt-translator/internal/termmap"
	"github.com/MimeLyc/srt-translator/internal/translator"
	"github.com/MimeLyc/srt-translator/pkg/file"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

// Store persists everything the service needs to survive a restart.
type Store interface {
	jobs.Store
	jobs.FileStore
	jobs.CheckpointStore
}

// ClientFactory builds the remote client used by one job.
type ClientFactory func(cfg config.LLMConfig) (translator.Client, error)

// NewLLMClient is the default ClientFactory.
func NewLLMClient(cfg config.LLMConfig) (translator.Client, error) {
	return llm.NewClient(&llm.Config{
		APIKey:      cfg.APIKey,
		APIURL:      cfg.APIURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		SiteURL:     cfg.SiteURL,
		AppName:     cfg.AppName,
	})
}

// Service is the command surface over files and translation jobs.
type Service struct {
	mu  sync.RWMutex
	cfg config.Config

	registry     *jobs.Registry
	queue        *jobs.Queue
	checkpoints  jobs.CheckpointStore
	orchestrator *Orchestrator
	newClient    ClientFactory
	sink         EventSink
	events       *Broadcaster
	watcher      *Watcher

	starts singleflight.Group
}

type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	store        Store
	newClient    ClientFactory
	orchestrator *Orchestrator
	sink         EventSink
	events       *Broadcaster
}

// WithStore persists files, jobs and checkpoints.
func WithStore(store Store) ServiceOption {
	return func(o *serviceOptions) {
		o.store = store
	}
}

func WithClientFactory(f ClientFactory) ServiceOption {
	return func(o *serviceOptions) {
		o.newClient = f
	}
}

func WithOrchestrator(orch *Orchestrator) ServiceOption {
	return func(o *serviceOptions) {
		o.orchestrator = orch
	}
}

// WithEventSink adds a sink that receives every job's events.
func WithEventSink(sink EventSink) ServiceOption {
	return func(o *serviceOptions) {
		o.sink = sink
	}
}

func WithBroadcaster(b *Broadcaster) ServiceOption {
	return func(o *serviceOptions) {
		o.events = b
	}
}

func New(cfg config.Config, opts ...ServiceOption) *Service {
	o := serviceOptions{
		newClient: NewLLMClient,
		sink:      LogSink{},
		events:    NewBroadcaster(0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.orchestrator == nil {
		o.orchestrator = NewOrchestrator()
	}

	s := &Service{
		cfg:          cfg,
		orchestrator: o.orchestrator,
		newClient:    o.newClient,
		events:       o.events,
	}
	s.sink = MultiSink{o.sink, o.events}

	var (
		jobStore  jobs.Store
		fileStore jobs.FileStore
	)
	if o.store != nil {
		jobStore, fileStore, s.checkpoints = o.store, o.store, o.store
	}
	s.registry = jobs.NewRegistry(fileStore)
	s.queue = jobs.NewQueue(
		cfg.Server.Workers,
		jobStore,
		jobs.WithAdvisor(Advice),
		jobs.WithObserver(s.publishJob),
	)
	return s
}

// Start reloads persisted files and launches the job workers.
func (s *Service) Start(ctx context.Context) error {
	if err := s.registry.Hydrate(ctx, subtitle.ReadFile); err != nil {
		return err
	}
	s.queue.Start(s.execute)
	return nil
}

func (s *Service) Stop() {
	s.mu.RLock()
	w := s.watcher
	s.mu.RUnlock()
	if w != nil {
		w.Stop()
	}
	s.queue.Stop()
}

func (s *Service) Events() *Broadcaster {
	return s.events
}

func (s *Service) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ApplyRuntimeSettings updates the defaults used by new jobs and
// reschedules the watcher.
func (s *Service) ApplyRuntimeSettings(settings config.RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return NewErrorWithCause(ErrValidation, "invalid runtime settings", err)
	}

	s.mu.Lock()
	settings.Apply(&s.cfg)
	cronExpr := s.cfg.Watch.CronExpr
	w := s.watcher
	s.mu.Unlock()

	if w != nil {
		return w.Reschedule(cronExpr)
	}
	return nil
}

// DefaultOptions returns job options built from the configuration.
func (s *Service) DefaultOptions() jobs.Options {
	t := s.Config().Translate
	return jobs.Options{
		SourceLang:         t.SourceLanguage,
		TargetLang:         t.TargetLanguage.String(),
		BatchSize:          t.BatchSize,
		MaxCharsPerRequest: t.MaxCharsPerRequest,
		ContextBefore:      t.ContextBefore,
		ContextAfter:       t.ContextAfter,
		Threads:            t.Threads,
		MaxRetries:         t.MaxRetries,
		MinDelayMS:         t.MinDelayMS,
		OutputSuffix:       t.OutputSuffix,
	}
}

// ImportFiles decodes and registers each path. Files that fail to decode
// are reported in the joined error; the others are still imported.
func (s *Service) ImportFiles(paths []string) ([]jobs.FileItem, error) {
	items := make([]jobs.FileItem, 0, len(paths))
	var errs []error
	for _, path := range paths {
		doc, err := subtitle.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("import %s: %w", path, err))
			continue
		}
		item := s.registry.AddFile(path, doc)
		log.Info("Imported %s: %d cues, language %q", item.Name, item.CueCount, item.Language)
		items = append(items, item)
	}
	return items, errors.Join(errs...)
}

func (s *Service) RemoveFile(id string) error {
	return s.registry.RemoveFile(id)
}

func (s *Service) File(id string) (jobs.FileItem, bool) {
	item, _, ok := s.registry.File(id)
	return item, ok
}

func (s *Service) ListFiles() []jobs.FileItem {
	return s.registry.ListFiles()
}

// CreateJob registers a queued job for an imported file. Empty option
// fields fall back to the configured defaults.
func (s *Service) CreateJob(fileID string, opts jobs.Options) (*jobs.TranslationJob, error) {
	item, _, ok := s.registry.File(fileID)
	if !ok {
		return nil, fmt.Errorf("file %s: %w", fileID, jobs.ErrNotFound)
	}

	opts = s.resolveOptions(opts)
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	job := s.queue.Create(jobs.CreateRequest{
		FileID:    item.ID,
		FileName:  item.Name,
		TotalCues: item.CueCount,
		Options:   opts,
	})
	log.Info("Created job %s for %s (%s -> %s)", job.ID, item.Name, opts.SourceLang, opts.TargetLang)
	return job, nil
}

// StartJob hands a queued job to the workers. Concurrent and repeated
// calls for the same job start it once.
func (s *Service) StartJob(_ context.Context, jobID string) (*jobs.TranslationJob, error) {
	v, err, _ := s.starts.Do(jobID, func() (any, error) {
		job, dispatched, err := s.queue.Dispatch(jobID)
		if err != nil {
			return nil, err
		}
		if dispatched {
			log.Info("Started job %s", jobID)
		}
		return job, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*jobs.TranslationJob), nil
}

func (s *Service) GetJob(id string) (*jobs.TranslationJob, bool) {
	return s.queue.Get(id)
}

func (s *Service) ListJobs() []*jobs.TranslationJob {
	return s.queue.List()
}

// Wait blocks until the job reaches a terminal state.
func (s *Service) Wait(ctx context.Context, jobID string) (*jobs.TranslationJob, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, ok := s.queue.Get(jobID)
		if !ok {
			return nil, fmt.Errorf("job %s: %w", jobID, jobs.ErrNotFound)
		}
		if job.Status.Terminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) resolveOptions(o jobs.Options) jobs.Options {
	d := s.DefaultOptions()
	if strings.TrimSpace(o.SourceLang) == "" {
		o.SourceLang = d.SourceLang
	}
	if strings.TrimSpace(o.TargetLang) == "" {
		o.TargetLang = d.TargetLang
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.MaxCharsPerRequest <= 0 {
		o.MaxCharsPerRequest = d.MaxCharsPerRequest
	}
	if o.Threads <= 0 {
		o.Threads = d.Threads
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.MinDelayMS < 0 {
		o.MinDelayMS = d.MinDelayMS
	}
	if o.OutputSuffix == "" {
		o.OutputSuffix = d.OutputSuffix
	}
	return o
}

func validateOptions(o jobs.Options) error {
	if _, err := language.Parse(o.TargetLang); err != nil {
		return NewErrorWithCause(ErrValidation, fmt.Sprintf("invalid target language %q", o.TargetLang), err)
	}
	if !strings.EqualFold(o.SourceLang, translator.AutoLanguage) {
		if _, err := language.Parse(o.SourceLang); err != nil {
			return NewErrorWithCause(ErrValidation, fmt.Sprintf("invalid source language %q", o.SourceLang), err)
		}
	}
	if o.ContextBefore < 0 || o.ContextAfter < 0 {
		return NewError(ErrValidation, "context sizes must not be negative")
	}
	if err := file.ValidateSuffix(o.OutputSuffix); err != nil {
		return NewErrorWithCause(ErrValidation, "invalid output suffix", err)
	}
	return nil
}

func translateOptions(o jobs.Options) Options {
	return Options{
		SourceLang: o.SourceLang,
		TargetLang: o.TargetLang,
		Batch: batch.Config{
			BatchSize:          o.BatchSize,
			MaxCharsPerRequest: o.MaxCharsPerRequest,
			ContextBefore:      o.ContextBefore,
			ContextAfter:       o.ContextAfter,
		},
		Threads:    o.Threads,
		MaxRetries: o.MaxRetries,
		MinDelay:   time.Duration(o.MinDelayMS) * time.Millisecond,
	}
}

// execute runs one job on a queue worker: translate, then write the output
// next to the source file.
func (s *Service) execute(ctx context.Context, job *jobs.TranslationJob) (err error) {
	item, doc, ok := s.registry.File(job.FileID)
	if !ok {
		return NewError(ErrNotFound, fmt.Sprintf("file %s is no longer imported", job.FileID))
	}
	if doc == nil {
		return NewError(ErrFileRead, fmt.Sprintf("file %s could not be loaded: %s", item.Path, item.Error))
	}
	output, err := file.OutputPath(item.Path, job.Options.OutputSuffix)
	if err != nil {
		return WrapError(err, ErrValidation, "refusing to write output").WithContext("path", item.Path)
	}

	s.registry.SetFileStatus(item.ID, jobs.FileProcessing, "")
	defer func() {
		if err != nil {
			s.registry.SetFileStatus(item.ID, jobs.FileError, err.Error())
			return
		}
		s.registry.SetFileStatus(item.ID, jobs.FileDone, "")
	}()

	cfg := s.Config()
	client, err := s.newClient(cfg.LLM)
	if err != nil {
		return WrapError(err, ErrConfig, "failed to create LLM client")
	}

	var checkpoints *persistentBatchCheckpoints
	if s.checkpoints != nil {
		checkpoints, err = newPersistentBatchCheckpoints(ctx, s.checkpoints, job.ID)
		if err != nil {
			log.Warn("Failed to load checkpoints of job %s, starting over: %v", job.ID, err)
			checkpoints = nil
		}
	}

	opts := translateOptions(job.Options)
	opts.Terms = loadTermMap(item.Path, opts.SourceLang, doc.Language, opts.TargetLang)

	req := TranslateRequest{
		JobID:    job.ID,
		FileName: item.Name,
		Document: doc,
		Options:  opts,
		Client:   client,
		Sink:     MultiSink{s.sink, jobProgressSink{queue: s.queue, jobID: job.ID}},
	}
	if checkpoints != nil {
		req.Checkpoints = checkpoints
	}

	var translations subtitle.Translations
	err = SafeExecute(func() error {
		var err error
		translations, err = s.orchestrator.TranslateDocument(ctx, req)
		return err
	})
	if err != nil {
		return err
	}

	if err := subtitle.WriteFile(output, doc, translations); err != nil {
		return WrapError(err, ErrFileWrite, "failed to write translated file").WithContext("path", output)
	}
	s.queue.Update(job.ID, func(j *jobs.TranslationJob) {
		j.OutputPath = output
	})
	log.Info("Job %s wrote %s", job.ID, output)

	if err := checkpoints.clear(ctx); err != nil {
		log.Warn("Failed to clear checkpoints of job %s: %v", job.ID, err)
	}
	return nil
}

// loadTermMap looks for a glossary next to the subtitle or in one of its
// parent directories. An "auto" source uses the detected document language.
func loadTermMap(path, sourceLang string, detected language.Tag, targetLang string) termmap.TermMap {
	if strings.EqualFold(strings.TrimSpace(sourceLang), "auto") && detected != language.Und {
		sourceLang = detected.String()
	}
	found := termmap.Find(filepath.Dir(path), sourceLang, targetLang)
	if found == "" {
		return nil
	}
	tm, err := termmap.Load(found)
	if err != nil {
		log.Warn("Ignoring term map %s: %v", found, err)
		return nil
	}
	log.Info("Using term map %s (%d terms)", found, len(tm))
	return tm
}

func (s *Service) publishJob(job *jobs.TranslationJob) {
	s.events.Publish(Event{Type: EventJob, Data: *job})
}

// jobProgressSink mirrors orchestrator events onto the job record.
type jobProgressSink struct {
	queue *jobs.Queue
	jobID string
}

func (s jobProgressSink) Progress(ev ProgressEvent) {
	s.queue.Update(s.jobID, func(j *jobs.TranslationJob) {
		// Events from concurrent batches may arrive out of order.
		if ev.DoneCues < j.DoneCues {
			return
		}
		j.DoneCues = ev.DoneCues
		j.TotalCues = ev.TotalCues
		j.Percent = ev.Percent
		j.ETASeconds = ev.ETASeconds
	})
}

func (s jobProgressSink) BatchStatus(ev BatchStatus) {
	s.queue.Update(s.jobID, func(j *jobs.TranslationJob) {
		j.TotalBatches = ev.TotalBatches
		if ev.Status == BatchDone {
			j.DoneBatches++
		}
	})
}

func (jobProgressSink) Warning(WarningEvent) {}
