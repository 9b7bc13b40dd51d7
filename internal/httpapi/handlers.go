package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/service"
)

type importFilesRequest struct {
	Paths []string `json:"paths"`
}

type importFilesResponse struct {
	Files  []jobs.FileItem `json:"files"`
	Errors []string        `json:"errors,omitempty"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListFiles())
}

func (s *Server) handleImportFiles(w http.ResponseWriter, r *http.Request) {
	var req importFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths is required")
		return
	}

	items, err := s.svc.ImportFiles(req.Paths)
	ret := importFilesResponse{Files: items}
	if err != nil {
		ret.Errors = splitJoined(err)
	}
	if len(items) == 0 {
		writeJSON(w, statusFor(err), ret)
		return
	}
	writeJSON(w, http.StatusCreated, ret)
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveFile(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createJobRequest embeds the job options; omitted fields keep the
// configured defaults.
type createJobRequest struct {
	FileID string `json:"file_id"`
	Start  bool   `json:"start"`
	jobs.Options
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListJobs())
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	req := createJobRequest{Options: s.svc.DefaultOptions()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.FileID) == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	job, err := s.svc.CreateJob(req.FileID, req.Options)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Start {
		if job, err = s.svc.StartJob(r.Context(), job.ID); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.svc.GetJob(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.StartJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

const maskedKey = "********"

// maskSettings hides all but the last four characters of the API key.
func maskSettings(settings config.RuntimeSettings) config.RuntimeSettings {
	key := settings.LLMAPIKey
	switch {
	case key == "":
	case len(key) <= 8:
		settings.LLMAPIKey = maskedKey
	default:
		settings.LLMAPIKey = maskedKey + key[len(key)-4:]
	}
	return settings
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, maskSettings(settings))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	current, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req config.RuntimeSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	// A masked or empty key means "unchanged".
	if req.LLMAPIKey == "" || strings.HasPrefix(req.LLMAPIKey, maskedKey) {
		req.LLMAPIKey = current.LLMAPIKey
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.settings.UpdateRuntimeSettings(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.apply != nil {
		if err := s.apply(saved); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, maskSettings(saved))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{
		"error":  err.Error(),
		"advice": service.Advice(err),
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, jobs.ErrInvalidState) || errors.Is(err, jobs.ErrAlreadyStarted) {
		return http.StatusConflict
	}
	switch service.Classify(err) {
	case service.ErrNotFound, service.ErrFileNotFound:
		return http.StatusNotFound
	case service.ErrValidation, service.ErrEncoding, service.ErrFormat:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// splitJoined lists the messages of an errors.Join result.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}
	ret := make([]string, 0, len(joined.Unwrap()))
	for _, e := range joined.Unwrap() {
		ret = append(ret, e.Error())
	}
	return ret
}
