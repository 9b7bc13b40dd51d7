package service

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/MimeLyc/srt-translator/internal/batch"
	"github.com/MimeLyc/srt-translator/internal/jobs"
)

// BatchCheckpoints lets a run skip batches finished by an earlier run of the
// same job.
type BatchCheckpoints interface {
	Load(b batch.Batch) (map[int]string, bool)
	Save(ctx context.Context, b batch.Batch, translations map[int]string) error
}

type persistentBatchCheckpoints struct {
	store jobs.CheckpointStore
	jobID string

	mu     sync.RWMutex
	cached map[int]map[int]string
}

func newPersistentBatchCheckpoints(ctx context.Context, store jobs.CheckpointStore, jobID string) (*persistentBatchCheckpoints, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if jobID == "" {
		return nil, fmt.Errorf("job id is empty")
	}

	checkpoints, err := store.LoadBatchCheckpoints(ctx, jobID)
	if err != nil {
		return nil, err
	}

	cached := make(map[int]map[int]string, len(checkpoints))
	for _, cp := range checkpoints {
		cached[cp.BatchNo] = maps.Clone(cp.Translations)
	}

	return &persistentBatchCheckpoints{
		store:  store,
		jobID:  jobID,
		cached: cached,
	}, nil
}

// Load returns the stored translations when they cover exactly the batch's
// translate ids. A checkpoint from a different plan is ignored.
func (s *persistentBatchCheckpoints) Load(b batch.Batch) (map[int]string, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret, ok := s.cached[b.Number]
	if !ok || len(ret) != len(b.TranslateIDs) {
		return nil, false
	}
	for _, id := range b.TranslateIDs {
		if _, ok := ret[id]; !ok {
			return nil, false
		}
	}
	return maps.Clone(ret), true
}

func (s *persistentBatchCheckpoints) Save(ctx context.Context, b batch.Batch, translations map[int]string) error {
	if s == nil {
		return nil
	}
	data := maps.Clone(translations)
	if err := s.store.SaveBatchCheckpoint(ctx, s.jobID, b.Number, data); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached[b.Number] = data
	s.mu.Unlock()
	return nil
}

func (s *persistentBatchCheckpoints) clear(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.store.DeleteBatchCheckpoints(ctx, s.jobID)
}
