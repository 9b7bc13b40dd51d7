package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/srt-translator/internal/subtitle"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state")
	ErrAlreadyStarted = errors.New("job already started")
)

// Loader decodes the subtitle file at path.
type Loader func(path string) (*subtitle.Document, error)

type fileEntry struct {
	item FileItem
	doc  *subtitle.Document
}

// Registry holds imported files and their parsed documents.
type Registry struct {
	store FileStore

	mu    sync.RWMutex
	files map[string]*fileEntry
}

func NewRegistry(store FileStore) *Registry {
	return &Registry{
		store: store,
		files: make(map[string]*fileEntry),
	}
}

// AddFile registers a parsed document under a new id.
func (r *Registry) AddFile(path string, doc *subtitle.Document) FileItem {
	item := FileItem{
		ID:        uuid.NewString(),
		Path:      path,
		Name:      filepath.Base(path),
		CueCount:  len(doc.Cues),
		Language:  languageString(doc),
		Status:    FileReady,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.files[item.ID] = &fileEntry{item: item, doc: doc}
	r.mu.Unlock()

	r.persistFile(item)
	return item
}

// File returns the file record and its document.
func (r *Registry) File(id string) (FileItem, *subtitle.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.files[id]
	if !ok {
		return FileItem{}, nil, false
	}
	return entry.item, entry.doc, true
}

// ListFiles returns files in import order.
func (r *Registry) ListFiles() []FileItem {
	r.mu.RLock()
	ret := make([]FileItem, 0, len(r.files))
	for _, entry := range r.files {
		ret = append(ret, entry.item)
	}
	r.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].Name < ret[j].Name
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

// RemoveFile forgets a file. Processing files cannot be removed.
func (r *Registry) RemoveFile(id string) error {
	r.mu.Lock()
	entry, ok := r.files[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if entry.item.Status == FileProcessing {
		r.mu.Unlock()
		return fmt.Errorf("file %s is being translated: %w", id, ErrInvalidState)
	}
	delete(r.files, id)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.DeleteFile(context.Background(), id); err != nil {
			log.Error("Failed to delete file %s from store: %v", id, err)
		}
	}
	return nil
}

// SetFileStatus updates a file's status and error message.
func (r *Registry) SetFileStatus(id string, status FileStatus, errMsg string) {
	r.mu.Lock()
	entry, ok := r.files[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry.item.Status = status
	entry.item.Error = errMsg
	item := entry.item
	r.mu.Unlock()

	r.persistFile(item)
}

// Hydrate reloads persisted file records, decoding each from its path.
// Files that can no longer be decoded are kept with an error status.
func (r *Registry) Hydrate(ctx context.Context, load Loader) error {
	if r.store == nil {
		return nil
	}
	items, err := r.store.LoadFiles(ctx)
	if err != nil {
		return fmt.Errorf("load files: %w", err)
	}

	for _, item := range items {
		doc, err := load(item.Path)
		if err != nil {
			log.Warn("Failed to reload subtitle file %s: %v", item.Path, err)
			item.Status = FileError
			item.Error = err.Error()
		} else {
			item.CueCount = len(doc.Cues)
			if item.Status == FileProcessing {
				item.Status = FileReady
			}
		}

		r.mu.Lock()
		r.files[item.ID] = &fileEntry{item: item, doc: doc}
		r.mu.Unlock()
	}
	log.Info("Reloaded %d subtitle files", len(items))
	return nil
}

func (r *Registry) persistFile(item FileItem) {
	if r.store == nil {
		return
	}
	if err := r.store.UpsertFile(context.Background(), item); err != nil {
		log.Error("Failed to persist file %s: %v", item.ID, err)
	}
}

func languageString(doc *subtitle.Document) string {
	if doc == nil || doc.Language.IsRoot() {
		return ""
	}
	return doc.Language.String()
}
