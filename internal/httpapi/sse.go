package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/service"
)

const heartbeatInterval = 15 * time.Second

// handleEvents streams job telemetry as server-sent events. The stream opens
// with a "snapshot" event listing every job; ?job_id= narrows it to one job.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	jobID := r.URL.Query().Get("job_id")

	events, unsubscribe := s.svc.Events().Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(name string, data any) bool {
		payload, err := json.Marshal(data)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	snapshot := make([]*jobs.TranslationJob, 0)
	for _, job := range s.svc.ListJobs() {
		if jobID == "" || job.ID == jobID {
			snapshot = append(snapshot, job)
		}
	}
	if !send("snapshot", snapshot) {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if jobID != "" && eventJobID(ev) != jobID {
				continue
			}
			if !send(string(ev.Type), ev.Data) {
				return
			}
		}
	}
}

func eventJobID(ev service.Event) string {
	switch data := ev.Data.(type) {
	case service.ProgressEvent:
		return data.JobID
	case service.BatchStatus:
		return data.JobID
	case service.WarningEvent:
		return data.JobID
	case jobs.TranslationJob:
		return data.ID
	default:
		return ""
	}
}
