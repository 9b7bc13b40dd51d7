package jobs

import "time"

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusCancelled is reserved; no control path produces it yet.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

type FileStatus string

const (
	FileReady      FileStatus = "ready"
	FileProcessing FileStatus = "processing"
	FileDone       FileStatus = "done"
	FileError      FileStatus = "error"
)

// FileItem is an imported subtitle file.
type FileItem struct {
	ID        string     `json:"id"`
	Path      string     `json:"path"`
	Name      string     `json:"name"`
	CueCount  int        `json:"cue_count"`
	Language  string     `json:"language,omitempty"`
	Status    FileStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Options are the per-job translation settings.
type Options struct {
	SourceLang         string `json:"source_lang"`
	TargetLang         string `json:"target_lang"`
	BatchSize          int    `json:"batch_size"`
	MaxCharsPerRequest int    `json:"max_chars_per_request"`
	ContextBefore      int    `json:"context_before"`
	ContextAfter       int    `json:"context_after"`
	Threads            int    `json:"threads"`
	MaxRetries         int    `json:"max_retries"`
	MinDelayMS         int    `json:"min_delay_ms"`
	OutputSuffix       string `json:"output_suffix"`
}

type CreateRequest struct {
	FileID    string
	FileName  string
	TotalCues int
	Options   Options
}

// TranslationJob is one translation run over an imported file.
type TranslationJob struct {
	ID           string    `json:"id"`
	FileID       string    `json:"file_id"`
	FileName     string    `json:"file_name"`
	Status       Status    `json:"status"`
	Options      Options   `json:"options"`
	DoneCues     int       `json:"done_cues"`
	TotalCues    int       `json:"total_cues"`
	Percent      float64   `json:"percent"`
	ETASeconds   int64     `json:"eta_seconds"`
	DoneBatches  int       `json:"done_batches"`
	TotalBatches int       `json:"total_batches"`
	OutputPath   string    `json:"output_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	Advice       string    `json:"advice,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
