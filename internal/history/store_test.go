package history

import (
	"testing"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
)

func sampleRecord() *domain.JobRecord {
	return &domain.JobRecord{
		JobID:     "job-1",
		DisplayID: 7,
		Tasks:     domain.SelectedTasks{Deploy: true, Benchmark: true},
		Config: map[string]interface{}{
			"s3_bucket": "my-bucket",
			"suffix":    "dev",
		},
		CreatedAt: "2026-08-20T10:15:00",
	}
}

func TestStore_SaveAndGetJob(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	record := sampleRecord()
	snap := &domain.JobStatusSnapshot{
		Status: domain.JobRunning,
		Progress: &domain.Progress{
			TotalTasks:     2,
			CompletedTasks: 1,
			CurrentStep:    "benchmark",
		},
	}

	if err := store.SaveJob(record, snap); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetJob("job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("GetJob() = nil, want cached job")
	}

	if got.Record.DisplayID != 7 {
		t.Errorf("DisplayID = %d, want 7", got.Record.DisplayID)
	}
	if !got.Record.Tasks.Deploy || !got.Record.Tasks.Benchmark || got.Record.Tasks.Build {
		t.Errorf("Tasks = %+v, want deploy+benchmark", got.Record.Tasks)
	}
	if got.Record.Config["s3_bucket"] != "my-bucket" {
		t.Errorf("Config s3_bucket = %v, want my-bucket", got.Record.Config["s3_bucket"])
	}
	if got.Status != domain.JobRunning {
		t.Errorf("Status = %s, want running", got.Status)
	}
	if got.Snapshot == nil || got.Snapshot.Progress.CompletedTasks != 1 {
		t.Errorf("Snapshot = %+v, want progress 1/2", got.Snapshot)
	}
}

func TestStore_GetJobAbsent(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.GetJob("never-saved")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetJob() = %+v, want nil", got)
	}
}

func TestStore_NilSnapshotPreservesPrevious(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	record := sampleRecord()
	snap := &domain.JobStatusSnapshot{Status: domain.JobCompleted}
	if err := store.SaveJob(record, snap); err != nil {
		t.Fatal(err)
	}

	// A launch-time save carries no snapshot and must not erase the
	// polled one.
	if err := store.SaveJob(record, nil); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetJob("job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Snapshot == nil || got.Snapshot.Status != domain.JobCompleted {
		t.Errorf("Snapshot = %+v, want preserved completed snapshot", got.Snapshot)
	}
	if got.Status != domain.JobCompleted {
		t.Errorf("Status = %s, want completed preserved", got.Status)
	}
}

func TestStore_ListJobs(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for i := 1; i <= 3; i++ {
		record := &domain.JobRecord{
			JobID:     string(rune('a' + i - 1)),
			DisplayID: i,
			Tasks:     domain.SelectedTasks{Build: true},
		}
		if err := store.SaveJob(record, nil); err != nil {
			t.Fatal(err)
		}
	}

	jobs, err := store.ListJobs(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 3 {
		t.Fatalf("ListJobs() len = %d, want 3", len(jobs))
	}
	// Newest (highest display ID) first.
	if jobs[0].Record.DisplayID != 3 || jobs[2].Record.DisplayID != 1 {
		t.Errorf("order = [%d %d %d], want [3 2 1]",
			jobs[0].Record.DisplayID, jobs[1].Record.DisplayID, jobs[2].Record.DisplayID)
	}

	limited, err := store.ListJobs(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("ListJobs(2) len = %d, want 2", len(limited))
	}
}

func TestStore_DeleteJob(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.SaveJob(sampleRecord(), nil); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteJob("job-1"); err != nil {
		t.Fatalf("DeleteJob() error = %v", err)
	}
	got, err := store.GetJob("job-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("GetJob() after delete = %+v, want nil", got)
	}

	// Deleting again is a no-op.
	if err := store.DeleteJob("job-1"); err != nil {
		t.Errorf("DeleteJob() twice error = %v, want nil", err)
	}
}
