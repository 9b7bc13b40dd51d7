package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/pkg/log"
)

const maxBodyBytes = 1 << 20

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

// translationService is the part of service.Service the API serves.
type translationService interface {
	ImportFiles(paths []string) ([]jobs.FileItem, error)
	File(id string) (jobs.FileItem, bool)
	ListFiles() []jobs.FileItem
	RemoveFile(id string) error
	DefaultOptions() jobs.Options
	CreateJob(fileID string, opts jobs.Options) (*jobs.TranslationJob, error)
	StartJob(ctx context.Context, jobID string) (*jobs.TranslationJob, error)
	GetJob(id string) (*jobs.TranslationJob, bool)
	ListJobs() []*jobs.TranslationJob
	Events() *service.Broadcaster
}

type Server struct {
	svc      translationService
	settings runtimeSettingsStore
	apply    runtimeSettingsApplier

	uiEnabled   bool
	uiStaticDir string

	router *chi.Mux

	mu     sync.Mutex
	server *http.Server
	closed bool
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func NewServer(svc translationService, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.server = srv
	s.mu.Unlock()

	log.Info("HTTP API listening on %s", addr)
	return srv.ListenAndServe()
}

// Shutdown stops the server. A later ListenAndServe returns
// http.ErrServerClosed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})

		// The event stream is long-lived and has no body.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(maxBodySize(maxBodyBytes))

			r.Get("/files", s.handleListFiles)
			r.Post("/files", s.handleImportFiles)
			r.Delete("/files/{id}", s.handleRemoveFile)

			r.Get("/jobs", s.handleListJobs)
			r.Post("/jobs", s.handleCreateJob)
			r.Get("/jobs/{id}", s.handleGetJob)
			r.Post("/jobs/{id}/start", s.handleStartJob)
			r.Get("/jobs/{id}/preview", s.handleJobPreview)
			r.Put("/jobs/{id}/lines", s.handleUpdateJobLines)

			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleUpdateSettings)
		})
	})

	r.NotFound(s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" || strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}

// silentPaths are only logged on errors.
var silentPaths = map[string]bool{
	"/api/health": true,
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if silentPaths[r.URL.Path] && status < 400 {
			return
		}
		if status >= 500 {
			log.Error("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
			return
		}
		log.Debug("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
	})
}

func maxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
