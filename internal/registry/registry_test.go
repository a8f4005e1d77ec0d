package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/api"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/workflow"
)

type fakeBackend struct {
	mu        sync.Mutex
	summaries []api.JobSummary
	details   map[string]*api.JobDetail
	failGet   map[string]bool
	launchErr error
	launched  []map[string]interface{}
	deleteErr error
	deleted   []string
	slowGet   map[string]time.Duration
}

func (f *fakeBackend) ListJobs(ctx context.Context, limit int) ([]api.JobSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries, nil
}

func (f *fakeBackend) GetJob(ctx context.Context, jobID string) (*api.JobDetail, error) {
	f.mu.Lock()
	fail := f.failGet[jobID]
	detail := f.details[jobID]
	delay := f.slowGet[jobID]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail || detail == nil {
		return nil, errors.New("detail fetch failed")
	}
	return detail, nil
}

func (f *fakeBackend) LaunchWorkflow(ctx context.Context, selected domain.SelectedTasks, payload map[string]interface{}) (*api.LaunchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.launched = append(f.launched, payload)
	return &api.LaunchResponse{JobID: "launched-job", DisplayID: 9}, nil
}

func (f *fakeBackend) DeleteJob(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, jobID)
	return nil
}

func (f *fakeBackend) CancelJob(ctx context.Context, jobID string) error {
	return nil
}

func summary(id string, displayID int) api.JobSummary {
	return api.JobSummary{JobID: id, DisplayID: displayID, Status: domain.JobRunning}
}

func detail(id string, displayID int) *api.JobDetail {
	return &api.JobDetail{
		JobID:     id,
		DisplayID: displayID,
		Status:    domain.JobRunning,
		Tasks:     map[string]domain.TaskState{"deploy": {Status: domain.TaskRunning}},
	}
}

func threeJobBackend() *fakeBackend {
	return &fakeBackend{
		summaries: []api.JobSummary{summary("a", 1), summary("b", 2), summary("c", 3)},
		details: map[string]*api.JobDetail{
			"a": detail("a", 1),
			"b": detail("b", 2),
			"c": detail("c", 3),
		},
	}
}

func validLaunchConfig() workflow.Config {
	cfg := workflow.NewConfig()
	cfg.ClusterEndpoint = "http://x"
	cfg.WorkloadType = "percolator"
	cfg.S3Bucket = "b"
	return cfg
}

func TestRefresh_ReplacesContents(t *testing.T) {
	backend := threeJobBackend()
	reg := New(backend, Options{})

	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	jobs := reg.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("Jobs() len = %d, want 3", len(jobs))
	}
	// Order follows the backend listing.
	for i, want := range []string{"a", "b", "c"} {
		if jobs[i].JobID != want {
			t.Errorf("jobs[%d].JobID = %s, want %s", i, jobs[i].JobID, want)
		}
	}
}

func TestRefresh_PartialBatchFailure(t *testing.T) {
	backend := threeJobBackend()
	backend.failGet = map[string]bool{"b": true}
	reg := New(backend, Options{})

	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v, want nil (partial failure tolerated)", err)
	}

	jobs := reg.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("Jobs() len = %d, want exactly 2 (failed detail dropped)", len(jobs))
	}
	if jobs[0].JobID != "a" || jobs[1].JobID != "c" {
		t.Errorf("Jobs() = [%s %s], want [a c]", jobs[0].JobID, jobs[1].JobID)
	}
}

func TestRefresh_SummaryAuthoritativeForDisplayID(t *testing.T) {
	backend := threeJobBackend()
	// Detail carries a stale display ID; the listing has since
	// renumbered it.
	backend.details["a"] = detail("a", 0)
	reg := New(backend, Options{})

	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := reg.Get("a").DisplayID; got != 1 {
		t.Errorf("DisplayID = %d, want 1 from summary", got)
	}
}

func TestRefresh_SlowDetailDoesNotBlockOthersBeyondJoin(t *testing.T) {
	backend := threeJobBackend()
	backend.slowGet = map[string]time.Duration{"a": 50 * time.Millisecond, "b": 50 * time.Millisecond, "c": 50 * time.Millisecond}
	reg := New(backend, Options{})

	start := time.Now()
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	elapsed := time.Since(start)

	// Three concurrent 50ms fetches join well under the 150ms a
	// serial refresh would need.
	if elapsed > 120*time.Millisecond {
		t.Errorf("Refresh() took %v, want concurrent detail fetches", elapsed)
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
}

func TestRefresh_NoDuplicateJobIDs(t *testing.T) {
	backend := threeJobBackend()
	backend.summaries = append(backend.summaries, summary("a", 4))
	reg := New(backend, Options{})

	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	seen := make(map[string]int)
	for _, j := range reg.Jobs() {
		seen[j.JobID]++
	}
	if seen["a"] != 1 {
		t.Errorf("job a appears %d times, want 1", seen["a"])
	}
}

func TestLaunch_ValidationBlocks(t *testing.T) {
	backend := &fakeBackend{}
	reg := New(backend, Options{})

	_, err := reg.Launch(context.Background(), domain.SelectedTasks{}, workflow.NewConfig())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(verr.Errors) != 1 || verr.Errors[0] != "Select at least one task" {
		t.Errorf("Errors = %v, want the selection error only", verr.Errors)
	}
	if len(backend.launched) != 0 {
		t.Error("launch reached the network despite validation errors")
	}
}

func TestLaunch_OptimisticPrepend(t *testing.T) {
	backend := threeJobBackend()
	reg := New(backend, Options{})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	sel := domain.SelectedTasks{Benchmark: true}
	record, err := reg.Launch(context.Background(), sel, validLaunchConfig())
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	if record.JobID != "launched-job" || record.DisplayID != 9 {
		t.Errorf("record = %+v, want launched-job/9", record)
	}
	if record.Config["workload_type"] != "percolator" {
		t.Errorf("record config workload_type = %v, want percolator (locally held config is authoritative)", record.Config["workload_type"])
	}

	jobs := reg.Jobs()
	if len(jobs) != 4 || jobs[0].JobID != "launched-job" {
		t.Errorf("Jobs()[0] = %s of %d, want launched-job prepended", jobs[0].JobID, len(jobs))
	}
}

func TestLaunch_FailureLeavesRegistryUnchanged(t *testing.T) {
	backend := threeJobBackend()
	backend.launchErr = &api.APIError{StatusCode: 400, Detail: "workload_type is required when benchmark=true"}
	reg := New(backend, Options{})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := reg.Launch(context.Background(), domain.SelectedTasks{Benchmark: true}, validLaunchConfig())
	if err == nil {
		t.Fatal("Launch() error = nil, want backend error surfaced")
	}
	if !errors.Is(err, backend.launchErr) {
		t.Errorf("error = %v, want wrapped backend detail", err)
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d after failed launch, want 3 unchanged", reg.Len())
	}
}

func TestLaunch_SingleFlightAndCooldown(t *testing.T) {
	backend := &fakeBackend{}
	current := time.Unix(1000, 0)
	reg := New(backend, Options{Now: func() time.Time { return current }})

	sel := domain.SelectedTasks{Benchmark: true}
	if _, err := reg.Launch(context.Background(), sel, validLaunchConfig()); err != nil {
		t.Fatalf("first Launch() error = %v", err)
	}

	// Immediately after completion the cool-down still holds.
	if _, err := reg.Launch(context.Background(), sel, validLaunchConfig()); !errors.Is(err, ErrLaunchInFlight) {
		t.Errorf("second Launch() error = %v, want ErrLaunchInFlight", err)
	}

	// After the cool-down a launch goes through again.
	current = current.Add(5 * time.Second)
	if _, err := reg.Launch(context.Background(), sel, validLaunchConfig()); err != nil {
		t.Errorf("Launch() after cool-down error = %v", err)
	}
	if len(backend.launched) != 2 {
		t.Errorf("launched = %d, want 2", len(backend.launched))
	}
}

func TestDelete_RemovesExactlyThatJob(t *testing.T) {
	backend := threeJobBackend()
	reg := New(backend, Options{})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := reg.Delete(context.Background(), "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	jobs := reg.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("Jobs() len = %d, want 2", len(jobs))
	}
	if jobs[0].JobID != "a" || jobs[1].JobID != "c" {
		t.Errorf("Jobs() = [%s %s], want [a c] in original order", jobs[0].JobID, jobs[1].JobID)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != "b" {
		t.Errorf("backend deletions = %v, want [b]", backend.deleted)
	}
}

func TestDelete_FailureLeavesRegistryUnchanged(t *testing.T) {
	backend := threeJobBackend()
	backend.deleteErr = &api.APIError{StatusCode: 404, Detail: "Job b not found"}
	reg := New(backend, Options{})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := reg.Delete(context.Background(), "b")
	if err == nil {
		t.Fatal("Delete() error = nil, want server reason surfaced")
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "Job b not found" {
		t.Errorf("error = %v, want server detail", err)
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d after failed delete, want 3 unchanged", reg.Len())
	}
}

func TestDelete_ConfirmationDeclined(t *testing.T) {
	backend := threeJobBackend()
	reg := New(backend, Options{
		Confirm: func(record *domain.JobRecord) bool { return false },
	})
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := reg.Delete(context.Background(), "a")
	if !errors.Is(err, ErrDeleteNotConfirmed) {
		t.Errorf("Delete() error = %v, want ErrDeleteNotConfirmed", err)
	}
	if len(backend.deleted) != 0 {
		t.Error("declined delete still reached the backend")
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3 unchanged", reg.Len())
	}
}

func TestOnChange_FiresOnMutations(t *testing.T) {
	backend := threeJobBackend()
	var changes int
	reg := New(backend, Options{OnChange: func() { changes++ }})

	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Launch(context.Background(), domain.SelectedTasks{Benchmark: true}, validLaunchConfig()); err != nil {
		t.Fatal(err)
	}
	if err := reg.Delete(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	if changes != 3 {
		t.Errorf("OnChange fired %d times, want 3", changes)
	}
}
