package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/subtitle"
)

const (
	defaultJobPreviewLimit = 80
	maxJobPreviewLimit     = 500
)

var (
	errJobNotFound     = errors.New("job not found")
	errJobInProgress   = errors.New("job is running")
	errJobNotCompleted = errors.New("job is not completed")
	errInvalidLine     = errors.New("cue index out of range")
	errInvalidText     = errors.New("invalid translated text")
)

type jobDetailResponse struct {
	Job           *jobs.TranslationJob `json:"job"`
	SourcePath    string               `json:"source_path"`
	Preview       []jobPreviewLine     `json:"preview"`
	PreviewOffset int                  `json:"preview_offset"`
	PreviewLimit  int                  `json:"preview_limit"`
	Editable      bool                 `json:"editable"`
}

type jobPreviewLine struct {
	Index          int    `json:"index"`
	Timing         string `json:"timing"`
	OriginalText   string `json:"original_text"`
	TranslatedText string `json:"translated_text"`
}

type updateJobLinesRequest struct {
	Lines []updateJobLineRequest `json:"lines"`
}

// Index is the 1-based cue position.
type updateJobLineRequest struct {
	Index          int    `json:"index"`
	TranslatedText string `json:"translated_text"`
}

// jobSnapshot pairs the source document of a job with its written output.
type jobSnapshot struct {
	Job          *jobs.TranslationJob
	SourcePath   string
	Source       *subtitle.Document
	Translations subtitle.Translations
}

func (s *Server) handleJobPreview(w http.ResponseWriter, r *http.Request) {
	offset := parsePositiveIntWithDefault(r.URL.Query().Get("offset"), 0)
	limit := parsePositiveIntWithDefault(r.URL.Query().Get("limit"), defaultJobPreviewLimit)
	if limit <= 0 {
		limit = defaultJobPreviewLimit
	}
	if limit > maxJobPreviewLimit {
		limit = maxJobPreviewLimit
	}

	detail, err := s.buildJobDetail(chi.URLParam(r, "id"), offset, limit)
	if err != nil {
		writeJobDetailError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateJobLines(w http.ResponseWriter, r *http.Request) {
	var req updateJobLinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "lines is required")
		return
	}

	detail, err := s.updateJobLines(chi.URLParam(r, "id"), req.Lines)
	if err != nil {
		writeJobDetailError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func writeJobDetailError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errJobInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errJobNotCompleted), errors.Is(err, errInvalidLine), errors.Is(err, errInvalidText):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeServiceError(w, err)
	}
}

func parsePositiveIntWithDefault(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func (s *Server) buildJobDetail(jobID string, offset int, limit int) (jobDetailResponse, error) {
	snapshot, err := s.buildSnapshot(jobID)
	if err != nil {
		return jobDetailResponse{}, err
	}

	return jobDetailResponse{
		Job:           snapshot.Job,
		SourcePath:    snapshot.SourcePath,
		Preview:       buildPreviewLines(snapshot.Source, snapshot.Translations, offset, limit),
		PreviewOffset: offset,
		PreviewLimit:  limit,
		Editable:      snapshot.Job.Status == jobs.StatusDone && snapshot.Job.OutputPath != "",
	}, nil
}

// updateJobLines rewrites cues of a finished job's output file.
func (s *Server) updateJobLines(jobID string, patches []updateJobLineRequest) (jobDetailResponse, error) {
	snapshot, err := s.buildSnapshot(jobID)
	if err != nil {
		return jobDetailResponse{}, err
	}
	job := snapshot.Job
	if job.Status == jobs.StatusQueued || job.Status == jobs.StatusRunning {
		return jobDetailResponse{}, errJobInProgress
	}
	if job.Status != jobs.StatusDone || job.OutputPath == "" {
		return jobDetailResponse{}, errJobNotCompleted
	}
	if snapshot.Source == nil || len(snapshot.Translations) != len(snapshot.Source.Cues) {
		return jobDetailResponse{}, fmt.Errorf("output of job %s does not match its source", jobID)
	}

	for _, patch := range patches {
		if patch.Index <= 0 || patch.Index > len(snapshot.Source.Cues) {
			return jobDetailResponse{}, errInvalidLine
		}
		text := strings.ReplaceAll(patch.TranslatedText, "\r\n", "\n")
		if err := subtitle.ValidateText(text); err != nil {
			return jobDetailResponse{}, fmt.Errorf("%w: line %d: %v", errInvalidText, patch.Index, err)
		}
		snapshot.Translations[patch.Index-1] = text
	}

	if err := subtitle.WriteFile(job.OutputPath, snapshot.Source, snapshot.Translations); err != nil {
		return jobDetailResponse{}, err
	}
	return s.buildJobDetail(jobID, 0, defaultJobPreviewLimit)
}

func (s *Server) buildSnapshot(jobID string) (jobSnapshot, error) {
	job, ok := s.svc.GetJob(jobID)
	if !ok {
		return jobSnapshot{}, errJobNotFound
	}
	snapshot := jobSnapshot{Job: job}

	item, ok := s.svc.File(job.FileID)
	if !ok {
		return snapshot, nil
	}
	snapshot.SourcePath = item.Path

	source, err := subtitle.ReadFile(item.Path)
	if err != nil {
		return jobSnapshot{}, err
	}
	snapshot.Source = source

	translations, err := readOutputTranslations(job.OutputPath)
	if err != nil {
		return jobSnapshot{}, err
	}
	snapshot.Translations = translations
	return snapshot, nil
}

// readOutputTranslations reads the cue texts of a written output keyed by
// cue position. A missing output yields no translations.
func readOutputTranslations(path string) (subtitle.Translations, error) {
	ret := make(subtitle.Translations)
	if path == "" {
		return ret, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ret, nil
		}
		return nil, err
	}

	output, err := subtitle.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, cue := range output.Cues {
		ret[cue.ID] = cue.Text()
	}
	return ret, nil
}

func buildPreviewLines(source *subtitle.Document, translated subtitle.Translations, offset int, limit int) []jobPreviewLine {
	if source == nil || offset >= len(source.Cues) {
		return []jobPreviewLine{}
	}
	if limit <= 0 {
		limit = defaultJobPreviewLimit
	}

	end := min(len(source.Cues), offset+limit)
	ret := make([]jobPreviewLine, 0, end-offset)
	for _, cue := range source.Cues[offset:end] {
		ret = append(ret, jobPreviewLine{
			Index:          cue.ID + 1,
			Timing:         cue.TimingLine,
			OriginalText:   cue.Text(),
			TranslatedText: translated[cue.ID],
		})
	}
	return ret
}
