package service

import (
	"sync"

	"github.com/MimeLyc/srt-translator/pkg/log"
)

const StageTranslating = "translating"

type BatchState string

const (
	BatchRunning BatchState = "running"
	BatchDone    BatchState = "done"
	BatchError   BatchState = "error"
)

// ProgressEvent reports job progress after a batch finishes.
type ProgressEvent struct {
	JobID         string  `json:"job_id"`
	FileName      string  `json:"file_name"`
	DoneCues      int     `json:"done_cues"`
	TotalCues     int     `json:"total_cues"`
	Percent       float64 `json:"percent"`
	ETASeconds    int64   `json:"eta_seconds"`
	Stage         string  `json:"stage"`
	ActiveThreads int     `json:"active_threads"`
}

type BatchStatus struct {
	JobID        string     `json:"job_id"`
	BatchNo      int        `json:"batch_no"`
	TotalBatches int        `json:"total_batches"`
	Status       BatchState `json:"status"`
	CueStart     int        `json:"cue_start"`
	CueEnd       int        `json:"cue_end"`
	ErrorMsg     string     `json:"error_msg,omitempty"`
}

type WarningEvent struct {
	JobID   string `json:"job_id"`
	BatchNo int    `json:"batch_no"`
	Message string `json:"message"`
}

// EventSink receives transient job telemetry. Implementations must not
// block; delivery is best effort.
type EventSink interface {
	Progress(ev ProgressEvent)
	BatchStatus(ev BatchStatus)
	Warning(ev WarningEvent)
}

type nopSink struct{}

func (nopSink) Progress(ProgressEvent)  {}
func (nopSink) BatchStatus(BatchStatus) {}
func (nopSink) Warning(WarningEvent)    {}

// LogSink writes events to the package logger.
type LogSink struct{}

func (LogSink) Progress(ev ProgressEvent) {
	log.Info("Job %s (%s): %d/%d cues, %.1f%%, eta %ds", ev.JobID, ev.FileName, ev.DoneCues, ev.TotalCues, ev.Percent, ev.ETASeconds)
}

func (LogSink) BatchStatus(ev BatchStatus) {
	if ev.Status == BatchError {
		log.Error("Job %s batch %d/%d (cues %d-%d) failed: %s", ev.JobID, ev.BatchNo+1, ev.TotalBatches, ev.CueStart, ev.CueEnd, ev.ErrorMsg)
		return
	}
	log.Debug("Job %s batch %d/%d (cues %d-%d) %s", ev.JobID, ev.BatchNo+1, ev.TotalBatches, ev.CueStart, ev.CueEnd, ev.Status)
}

func (LogSink) Warning(ev WarningEvent) {
	log.Warn("Job %s: %s", ev.JobID, ev.Message)
}

// MultiSink fans each event out to every non-nil sink.
type MultiSink []EventSink

func (m MultiSink) Progress(ev ProgressEvent) {
	for _, s := range m {
		if s != nil {
			s.Progress(ev)
		}
	}
}

func (m MultiSink) BatchStatus(ev BatchStatus) {
	for _, s := range m {
		if s != nil {
			s.BatchStatus(ev)
		}
	}
}

func (m MultiSink) Warning(ev WarningEvent) {
	for _, s := range m {
		if s != nil {
			s.Warning(ev)
		}
	}
}

// RecordingSink keeps every event in memory.
type RecordingSink struct {
	mu       sync.Mutex
	progress []ProgressEvent
	statuses []BatchStatus
	warnings []WarningEvent
}

func (r *RecordingSink) Progress(ev ProgressEvent) {
	r.mu.Lock()
	r.progress = append(r.progress, ev)
	r.mu.Unlock()
}

func (r *RecordingSink) BatchStatus(ev BatchStatus) {
	r.mu.Lock()
	r.statuses = append(r.statuses, ev)
	r.mu.Unlock()
}

func (r *RecordingSink) Warning(ev WarningEvent) {
	r.mu.Lock()
	r.warnings = append(r.warnings, ev)
	r.mu.Unlock()
}

func (r *RecordingSink) ProgressEvents() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressEvent(nil), r.progress...)
}

func (r *RecordingSink) BatchStatuses() []BatchStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BatchStatus(nil), r.statuses...)
}

func (r *RecordingSink) Warnings() []WarningEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]WarningEvent(nil), r.warnings...)
}

type EventType string

const (
	EventProgress    EventType = "progress"
	EventBatchStatus EventType = "batch_status"
	EventWarning     EventType = "warning"
	EventJob         EventType = "job"
)

// Event is one message delivered to broadcaster subscribers.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Broadcaster fans events out to subscribers. Slow subscribers miss events
// instead of blocking the publisher.
type Broadcaster struct {
	buffer int

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		buffer: buffer,
		subs:   make(map[chan Event]struct{}),
	}
}

// Subscribe returns an event channel and a function that closes it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) Progress(ev ProgressEvent) {
	b.Publish(Event{Type: EventProgress, Data: ev})
}

func (b *Broadcaster) BatchStatus(ev BatchStatus) {
	b.Publish(Event{Type: EventBatchStatus, Data: ev})
}

func (b *Broadcaster) Warning(ev WarningEvent) {
	b.Publish(Event{Type: EventWarning, Data: ev})
}
