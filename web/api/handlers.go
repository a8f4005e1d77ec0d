package api

import (
	"net/http"
	"strings"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/poller"
)

// JobResponse is the API response for a job listing entry
type JobResponse struct {
	JobID     string           `json:"job_id"`
	DisplayID int              `json:"display_id"`
	Status    string           `json:"status"`
	Tasks     []string         `json:"tasks"`
	CreatedAt string           `json:"created_at,omitempty"`
	Progress  *domain.Progress `json:"progress,omitempty"`
}

// JobDetailResponse is the API response for one job
type JobDetailResponse struct {
	JobResponse
	Config   map[string]interface{}    `json:"config,omitempty"`
	Snapshot *domain.JobStatusSnapshot `json:"snapshot,omitempty"`
	Logs     []domain.LogEntry         `json:"logs,omitempty"`
}

// StatusResponse is the API response for overall status
type StatusResponse struct {
	Total   int `json:"total"`
	Live    int `json:"live"`
	Settled int `json:"settled"`
}

func (s *Server) jobToResponse(record *domain.JobRecord) JobResponse {
	resp := JobResponse{
		JobID:     record.JobID,
		DisplayID: record.DisplayID,
		Status:    string(domain.JobQueued),
		Tasks:     record.Tasks.Names(),
		CreatedAt: record.CreatedAt,
	}
	if p := s.pollers.Get(record.JobID); p != nil {
		if snap := p.Snapshot(); snap != nil {
			resp.Status = string(snap.Status)
			resp.Progress = snap.Progress
		}
	}
	return resp
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var status StatusResponse
		for _, record := range s.registry.Jobs() {
			status.Total++
			p := s.pollers.Get(record.JobID)
			if p != nil && p.State() == poller.StateSettled {
				status.Settled++
			} else {
				status.Live++
			}
		}

		writeJSON(w, status)
	}
}

func (s *Server) listJobsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		records := s.registry.Jobs()
		jobs := make([]JobResponse, 0, len(records))
		for _, record := range records {
			jobs = append(jobs, s.jobToResponse(record))
		}

		writeJSON(w, jobs)
	}
}

func (s *Server) getJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" || strings.Contains(jobID, "/") {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		record := s.registry.Get(jobID)
		if record == nil {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		resp := JobDetailResponse{
			JobResponse: s.jobToResponse(record),
			Config:      record.Config,
		}
		if p := s.pollers.Get(jobID); p != nil {
			resp.Snapshot = p.Snapshot()
			resp.Logs = p.Logs()
		}

		writeJSON(w, resp)
	}
}
