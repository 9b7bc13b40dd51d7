package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/srt-translator/pkg/log"
)

type Executor func(ctx context.Context, job *TranslationJob) error

// Advisor turns a job failure into a hint stored on the job.
type Advisor func(err error) string

// Observer is called with a snapshot after every job change.
type Observer func(job *TranslationJob)

// Queue tracks translation jobs and runs started ones on a bounded set of
// workers.
type Queue struct {
	workerCount int
	maxJobs     int
	store       Store
	advise      Advisor
	observe     Observer

	mu         sync.RWMutex
	jobs       map[string]*TranslationJob
	dispatched map[string]struct{}
	recovered  []string
	started    bool
	pendingIDs chan string
	ctx        context.Context
	cancel     context.CancelFunc
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

type QueueOption func(*Queue)

// WithAdvisor sets the failure advisor.
func WithAdvisor(advise Advisor) QueueOption {
	return func(q *Queue) {
		q.advise = advise
	}
}

func WithObserver(observe Observer) QueueOption {
	return func(q *Queue) {
		q.observe = observe
	}
}

// WithMaxJobs bounds how many jobs are kept before terminal ones are pruned.
func WithMaxJobs(n int) QueueOption {
	return func(q *Queue) {
		q.maxJobs = n
	}
}

func NewQueue(workerCount int, store Store, opts ...QueueOption) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		workerCount: workerCount,
		maxJobs:     1000,
		store:       store,
		jobs:        make(map[string]*TranslationJob),
		dispatched:  make(map[string]struct{}),
		pendingIDs:  make(chan string, 1024),
		ctx:         ctx,
		cancel:      cancel,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.hydrateFromStore(context.Background())
	return q
}

// Create registers a queued job. It does not run until Dispatch.
func (q *Queue) Create(req CreateRequest) *TranslationJob {
	now := time.Now()
	job := &TranslationJob{
		ID:        uuid.NewString(),
		FileID:    req.FileID,
		FileName:  req.FileName,
		Status:    StatusQueued,
		Options:   req.Options,
		TotalCues: req.TotalCues,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	pruned := q.pruneTerminalJobsLocked()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	q.deleteJobsFromStore(pruned)
	return snapshot
}

// Dispatch hands a queued job to the workers. The bool is false when the
// job was already dispatched.
func (q *Queue) Dispatch(id string) (*TranslationJob, bool, error) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return nil, false, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if _, seen := q.dispatched[id]; seen {
		snapshot := cloneJob(job)
		q.mu.Unlock()
		return snapshot, false, nil
	}
	if job.Status != StatusQueued {
		q.mu.Unlock()
		return nil, false, fmt.Errorf("job %s is %s: %w", id, job.Status, ErrAlreadyStarted)
	}
	q.dispatched[id] = struct{}{}
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.enqueuePendingID(id)
	return snapshot, true, nil
}

func (q *Queue) Get(id string) (*TranslationJob, bool) {
	q.mu.RLock()
	job, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns jobs ordered by creation time.
func (q *Queue) List() []*TranslationJob {
	q.mu.RLock()
	ret := make([]*TranslationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

// Update applies fn to a non-terminal job and persists the result.
func (q *Queue) Update(id string, fn func(job *TranslationJob)) (*TranslationJob, bool) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status.Terminal() {
		q.mu.Unlock()
		return nil, false
	}
	fn(job)
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	return snapshot, true
}

// Start launches the workers. Jobs interrupted by a restart are dispatched
// again.
func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	recovered := q.recovered
	q.recovered = nil
	for _, id := range recovered {
		q.dispatched[id] = struct{}{}
	}
	q.mu.Unlock()

	for _, id := range recovered {
		q.enqueuePendingID(id)
	}

	for w := 0; w < q.workerCount; w++ {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
		q.cancel()
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case id := <-q.pendingIDs:
			job, ok := q.markRunning(id)
			if !ok {
				continue
			}

			err := exec(q.ctx, job)
			if err != nil {
				q.markFailed(id, err)
				continue
			}
			q.markDone(id)
		}
	}
}

// enqueuePendingID hands id to the workers. When the buffer is full the
// send moves to a goroutine that gives up once the queue stops.
func (q *Queue) enqueuePendingID(id string) {
	select {
	case <-q.stopCh:
		return
	case q.pendingIDs <- id:
		return
	default:
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case q.pendingIDs <- id:
		case <-q.stopCh:
		}
	}()
}

func (q *Queue) markRunning(id string) (*TranslationJob, bool) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusQueued {
		delete(q.dispatched, id)
		q.mu.Unlock()
		return nil, false
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	return snapshot, true
}

func (q *Queue) markDone(id string) {
	q.finish(id, func(job *TranslationJob) {
		job.Status = StatusDone
		job.Error = ""
		job.Advice = ""
		job.Percent = 100
		job.ETASeconds = 0
	})
}

func (q *Queue) markFailed(id string, err error) {
	q.finish(id, func(job *TranslationJob) {
		job.Status = StatusError
		if err != nil {
			job.Error = err.Error()
			if q.advise != nil {
				job.Advice = q.advise(err)
			}
		}
	})
}

func (q *Queue) finish(id string, apply func(job *TranslationJob)) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	apply(job)
	job.UpdatedAt = time.Now()
	delete(q.dispatched, id)
	pruned := q.pruneTerminalJobsLocked()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.persistJob(snapshot)
	q.deleteJobsFromStore(pruned)
}

func (q *Queue) pruneTerminalJobsLocked() []string {
	if q.maxJobs <= 0 || len(q.jobs) <= q.maxJobs {
		return nil
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.jobs))
	for id, job := range q.jobs {
		if job == nil || !job.Status.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return nil
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := min(len(q.jobs)-q.maxJobs, len(terminal))
	pruned := make([]string, 0, toRemove)
	for i := 0; i < toRemove; i++ {
		id := terminal[i].id
		delete(q.jobs, id)
		pruned = append(pruned, id)
	}
	return pruned
}

func (q *Queue) deleteJobsFromStore(ids []string) {
	if q.store == nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := q.store.DeleteJob(context.Background(), id); err != nil {
			log.Error("Failed to delete pruned job %s from store: %v", id, err)
		}
	}
}

func (q *Queue) hydrateFromStore(ctx context.Context) {
	if q.store == nil {
		return
	}
	loaded, err := q.store.LoadJobs(ctx)
	if err != nil {
		log.Error("Failed to load jobs from store: %v", err)
		return
	}

	now := time.Now()
	toPersist := make([]*TranslationJob, 0)
	q.mu.Lock()
	for _, raw := range loaded {
		if raw == nil || raw.ID == "" {
			continue
		}
		job := cloneJob(raw)
		if job.Status == StatusRunning {
			job.Status = StatusQueued
			job.DoneCues = 0
			job.DoneBatches = 0
			job.Percent = 0
			job.ETASeconds = 0
			job.UpdatedAt = now
			q.recovered = append(q.recovered, job.ID)
			toPersist = append(toPersist, cloneJob(job))
		}
		q.jobs[job.ID] = job
	}
	q.mu.Unlock()

	for _, job := range toPersist {
		q.persistJob(job)
	}
	if len(q.recovered) > 0 {
		log.Info("Recovered %d interrupted jobs", len(q.recovered))
	}
}

func (q *Queue) persistJob(job *TranslationJob) {
	if job == nil {
		return
	}
	if q.store != nil {
		if err := q.store.UpsertJob(context.Background(), job); err != nil {
			log.Error("Failed to persist job %s: %v", job.ID, err)
		}
	}
	if q.observe != nil {
		q.observe(job)
	}
}

func cloneJob(job *TranslationJob) *TranslationJob {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}
