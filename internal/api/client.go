// Package api provides the HTTP client for the cluster job runner
// backend. All request and response bodies use the backend's snake_case
// wire format; conversion to client-side domain types happens here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
)

// Endpoints locates the backend API. PathPrefix is prepended to every
// route so the console can follow the runner across deployments.
type Endpoints struct {
	BaseURL    string
	PathPrefix string
}

func (e Endpoints) route(format string, args ...interface{}) string {
	return e.BaseURL + e.PathPrefix + fmt.Sprintf(format, args...)
}

// Client talks to the job runner backend
type Client struct {
	endpoints Endpoints
	http      *http.Client
}

// NewClient creates a backend client with the given endpoints and
// request timeout
func NewClient(endpoints Endpoints, timeout time.Duration) *Client {
	return &Client{
		endpoints: endpoints,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx backend response. Detail carries the
// server-supplied message when the body was a parseable {detail} payload.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// errorDetail is the backend's structured error body
type errorDetail struct {
	Detail string `json:"detail"`
}

// JobSummary is one entry in the backend job listing. The listing is
// authoritative for DisplayID.
type JobSummary struct {
	JobID     string           `json:"job_id"`
	DisplayID int              `json:"display_id"`
	Status    domain.JobStatus `json:"status"`
	CreatedAt string           `json:"created_at"`
	Tasks     []string         `json:"tasks"`
	Progress  *domain.Progress `json:"progress,omitempty"`
}

// listResponse is the body of GET /jobs
type listResponse struct {
	Jobs  []JobSummary `json:"jobs"`
	Total int          `json:"total"`
}

// JobDetail is the full backend record for one job
type JobDetail struct {
	JobID       string                            `json:"job_id"`
	DisplayID   int                               `json:"display_id"`
	Status      domain.JobStatus                  `json:"status"`
	CreatedAt   string                            `json:"created_at"`
	StartedAt   string                            `json:"started_at,omitempty"`
	CompletedAt string                            `json:"completed_at,omitempty"`
	Config      map[string]interface{}            `json:"config"`
	CurrentTask string                            `json:"current_task,omitempty"`
	Tasks       map[string]domain.TaskState       `json:"tasks"`
	Results     map[string]map[string]interface{} `json:"results"`
	Progress    *domain.Progress                  `json:"progress,omitempty"`
	Error       string                            `json:"error,omitempty"`
}

// Snapshot converts the detail record into a status snapshot
func (d *JobDetail) Snapshot() *domain.JobStatusSnapshot {
	return &domain.JobStatusSnapshot{
		Status:      d.Status,
		Progress:    d.Progress,
		Tasks:       d.Tasks,
		Results:     d.Results,
		CurrentTask: d.CurrentTask,
		Error:       d.Error,
		CreatedAt:   d.CreatedAt,
		StartedAt:   d.StartedAt,
		CompletedAt: d.CompletedAt,
	}
}

// Record reconstructs a client-side job record from the detail record
func (d *JobDetail) Record() *domain.JobRecord {
	names := make([]string, 0, len(d.Tasks))
	for name := range d.Tasks {
		names = append(names, name)
	}
	return &domain.JobRecord{
		JobID:     d.JobID,
		DisplayID: d.DisplayID,
		Tasks:     domain.FromNames(names),
		Config:    d.Config,
		CreatedAt: d.CreatedAt,
	}
}

// LaunchResponse is the body returned by POST /workflow
type LaunchResponse struct {
	JobID     string `json:"job_id"`
	DisplayID int    `json:"display_id"`
	Message   string `json:"message,omitempty"`
}

// ListJobs fetches the job summary listing
func (c *Client) ListJobs(ctx context.Context, limit int) ([]JobSummary, error) {
	u := c.endpoints.route("/jobs")
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	var body listResponse
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return body.Jobs, nil
}

// GetJob fetches the full detail record for one job
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobDetail, error) {
	u := c.endpoints.route("/jobs/%s", url.PathEscape(jobID))

	var detail JobDetail
	if err := c.getJSON(ctx, u, &detail); err != nil {
		return nil, fmt.Errorf("fetching job %s: %w", jobID, err)
	}
	return &detail, nil
}

// LaunchWorkflow submits an assembled payload. The selected tasks are
// carried both in the payload shape and as query flags; the backend
// routes on the flags.
func (c *Client) LaunchWorkflow(ctx context.Context, selected domain.SelectedTasks, payload map[string]interface{}) (*LaunchResponse, error) {
	q := url.Values{}
	if selected.Build {
		q.Set("build", "true")
	}
	if selected.Deploy {
		q.Set("deploy", "true")
	}
	if selected.Benchmark {
		q.Set("benchmark", "true")
	}

	u := c.endpoints.route("/workflow")
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding workflow payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readAPIError(resp)
	}

	var launch LaunchResponse
	if err := json.NewDecoder(resp.Body).Decode(&launch); err != nil {
		return nil, fmt.Errorf("parsing launch response: %w", err)
	}
	return &launch, nil
}

// DeleteJob removes a job on the backend
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	u := c.endpoints.route("/jobs/%s/delete", url.PathEscape(jobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deleting job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// CancelJob asks the backend to cancel a running job
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	u := c.endpoints.route("/jobs/%s/cancel", url.PathEscape(jobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cancelling job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// readAPIError drains a non-2xx response into an APIError, preferring
// the server's {detail} message when present
func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil && len(body) > 0 {
		var detail errorDetail
		if json.Unmarshal(body, &detail) == nil {
			apiErr.Detail = detail.Detail
		}
	}
	return apiErr
}
