// Package registry maintains the client-side collection of submitted
// jobs. It reconciles backend listings with per-job detail records,
// performs launches through the workflow assembler, and handles
// deletion. The collection is only ever mutated atomically: readers
// never observe a partially-applied refresh, launch, or delete.
package registry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/api"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/workflow"
)

// launchCooldown absorbs double-clicks after a launch completes
const launchCooldown = 2 * time.Second

// Backend is the slice of the API client the registry needs
type Backend interface {
	ListJobs(ctx context.Context, limit int) ([]api.JobSummary, error)
	GetJob(ctx context.Context, jobID string) (*api.JobDetail, error)
	LaunchWorkflow(ctx context.Context, selected domain.SelectedTasks, payload map[string]interface{}) (*api.LaunchResponse, error)
	DeleteJob(ctx context.Context, jobID string) error
	CancelJob(ctx context.Context, jobID string) error
}

// History receives job records for the local cache. Failures are
// logged, never fatal: the cache is an optimization.
type History interface {
	SaveJob(record *domain.JobRecord, snapshot *domain.JobStatusSnapshot) error
	DeleteJob(jobID string) error
}

// ValidationError carries the assembler's error list when a launch is
// blocked before reaching the network
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("launch blocked by %d validation error(s)", len(e.Errors))
}

// ErrLaunchInFlight is returned while a previous launch has not
// finished (or its cool-down has not elapsed)
var ErrLaunchInFlight = fmt.Errorf("a launch is already in progress")

// ErrDeleteNotConfirmed is returned when the confirmation hook declines
var ErrDeleteNotConfirmed = fmt.Errorf("delete not confirmed")

// Options configures a Registry
type Options struct {
	ListLimit int
	// Confirm gates Delete. When set, Delete asks it before issuing
	// the network call; declining aborts with ErrDeleteNotConfirmed.
	// Hosts that run their own confirmation UI leave it nil.
	Confirm func(record *domain.JobRecord) bool
	// OnChange fires after every atomic mutation of the collection
	OnChange func()
	History  History
	Now      func() time.Time
}

// Registry is the client-side ordered collection of submitted jobs
type Registry struct {
	backend   Backend
	listLimit int
	confirm   func(record *domain.JobRecord) bool
	onChange  func()
	history   History
	now       func() time.Time

	mu   sync.Mutex
	jobs []*domain.JobRecord

	launchMu      sync.Mutex
	launchBusy    bool
	cooldownUntil time.Time
}

// New creates a Registry over the given backend
func New(backend Backend, opts Options) *Registry {
	if opts.ListLimit <= 0 {
		opts.ListLimit = 50
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		backend:   backend,
		listLimit: opts.ListLimit,
		confirm:   opts.Confirm,
		onChange:  opts.OnChange,
		history:   opts.History,
		now:       opts.Now,
	}
}

// Jobs returns a copy of the current collection in listing order
func (r *Registry) Jobs() []*domain.JobRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.JobRecord, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Get returns the record for a job, or nil
func (r *Registry) Get(jobID string) *domain.JobRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.JobID == jobID {
			return j
		}
	}
	return nil
}

// Len returns the number of tracked jobs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Refresh replaces the collection with the backend's view. Detail
// fetches run concurrently; a job whose detail fetch fails is dropped
// from this refresh with a warning instead of failing the whole batch.
// The summary listing is authoritative for display IDs, the detail
// record for everything else. Order follows the backend listing.
func (r *Registry) Refresh(ctx context.Context) error {
	summaries, err := r.backend.ListJobs(ctx, r.listLimit)
	if err != nil {
		return fmt.Errorf("refreshing jobs: %w", err)
	}

	details := make([]*api.JobDetail, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	for i, summary := range summaries {
		i, summary := i, summary
		g.Go(func() error {
			detail, err := r.backend.GetJob(gctx, summary.JobID)
			if err != nil {
				log.Printf("refresh: dropping job %s, detail fetch failed: %v", summary.JobID, err)
				return nil
			}
			details[i] = detail
			return nil
		})
	}
	// Join barrier: reconciliation only runs once every fetch settled.
	if err := g.Wait(); err != nil {
		return err
	}

	fresh := make([]*domain.JobRecord, 0, len(summaries))
	seen := make(map[string]bool, len(summaries))
	for i, detail := range details {
		if detail == nil {
			continue
		}
		record := detail.Record()
		if seen[record.JobID] {
			continue
		}
		seen[record.JobID] = true
		// Summary wins for the display ID.
		record.DisplayID = summaries[i].DisplayID
		fresh = append(fresh, record)

		if r.history != nil {
			if err := r.history.SaveJob(record, detail.Snapshot()); err != nil {
				log.Printf("refresh: caching job %s failed: %v", record.JobID, err)
			}
		}
	}

	r.mu.Lock()
	r.jobs = fresh
	r.mu.Unlock()

	r.notify()
	return nil
}

// Launch validates the selection, assembles the minimal payload, and
// submits it. On success the new record is prepended optimistically;
// the locally held selection and config are authoritative for display
// until the next refresh. Launches are single-shot: concurrent calls
// and calls within the post-launch cool-down fail with
// ErrLaunchInFlight.
func (r *Registry) Launch(ctx context.Context, selected domain.SelectedTasks, cfg workflow.Config) (*domain.JobRecord, error) {
	if errs := workflow.Validate(selected, cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	r.launchMu.Lock()
	if r.launchBusy || r.now().Before(r.cooldownUntil) {
		r.launchMu.Unlock()
		return nil, ErrLaunchInFlight
	}
	r.launchBusy = true
	r.launchMu.Unlock()

	defer func() {
		r.launchMu.Lock()
		r.launchBusy = false
		r.cooldownUntil = r.now().Add(launchCooldown)
		r.launchMu.Unlock()
	}()

	payload := workflow.BuildPayload(selected, cfg)

	resp, err := r.backend.LaunchWorkflow(ctx, selected, payload)
	if err != nil {
		return nil, fmt.Errorf("launching workflow: %w", err)
	}

	record := &domain.JobRecord{
		JobID:     resp.JobID,
		DisplayID: resp.DisplayID,
		Tasks:     selected,
		Config:    payload,
		CreatedAt: r.now().Format(time.RFC3339),
	}

	r.mu.Lock()
	r.jobs = append([]*domain.JobRecord{record}, r.jobs...)
	r.mu.Unlock()

	if r.history != nil {
		if err := r.history.SaveJob(record, nil); err != nil {
			log.Printf("launch: caching job %s failed: %v", record.JobID, err)
		}
	}

	r.notify()
	return record, nil
}

// Delete removes a job on the backend and then locally. The collection
// is unchanged when the backend call fails.
func (r *Registry) Delete(ctx context.Context, jobID string) error {
	record := r.Get(jobID)

	if r.confirm != nil && !r.confirm(record) {
		return ErrDeleteNotConfirmed
	}

	if err := r.backend.DeleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("deleting job %s: %w", jobID, err)
	}

	r.mu.Lock()
	kept := r.jobs[:0]
	for _, j := range r.jobs {
		if j.JobID != jobID {
			kept = append(kept, j)
		}
	}
	r.jobs = kept
	r.mu.Unlock()

	if r.history != nil {
		if err := r.history.DeleteJob(jobID); err != nil {
			log.Printf("delete: evicting job %s from cache failed: %v", jobID, err)
		}
	}

	r.notify()
	return nil
}

// Cancel asks the backend to cancel a running job. The record stays in
// the collection; the next poll or refresh observes the new status.
func (r *Registry) Cancel(ctx context.Context, jobID string) error {
	if err := r.backend.CancelJob(ctx, jobID); err != nil {
		return fmt.Errorf("cancelling job %s: %w", jobID, err)
	}
	return nil
}

func (r *Registry) notify() {
	if r.onChange != nil {
		r.onChange()
	}
}
