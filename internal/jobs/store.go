package jobs

import (
	"context"
	"time"
)

// Store persists job states for queue restart recovery.
type Store interface {
	LoadJobs(ctx context.Context) ([]*TranslationJob, error)
	UpsertJob(ctx context.Context, job *TranslationJob) error
	DeleteJob(ctx context.Context, jobID string) error
}

// FileStore persists imported file records so documents can be reloaded
// from their paths after a restart.
type FileStore interface {
	LoadFiles(ctx context.Context) ([]FileItem, error)
	UpsertFile(ctx context.Context, item FileItem) error
	DeleteFile(ctx context.Context, fileID string) error
}

// BatchCheckpoint holds the translations of one finished batch so an
// interrupted job can skip it when it runs again.
type BatchCheckpoint struct {
	JobID        string
	BatchNo      int
	Translations map[int]string
	UpdatedAt    time.Time
}

type CheckpointStore interface {
	SaveBatchCheckpoint(ctx context.Context, jobID string, batchNo int, translations map[int]string) error
	LoadBatchCheckpoints(ctx context.Context, jobID string) ([]BatchCheckpoint, error)
	DeleteBatchCheckpoints(ctx context.Context, jobID string) error
}
