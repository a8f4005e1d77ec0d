package domain

import "testing"

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobQueued, false},
		{JobPending, false},
		{JobRunning, false},
		{JobCompleted, true},
		{JobFailed, true},
		{JobCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestSelectedTasks_Names(t *testing.T) {
	sel := SelectedTasks{Build: true, Benchmark: true}
	names := sel.Names()

	if len(names) != 2 {
		t.Fatalf("Names() len = %d, want 2", len(names))
	}
	if names[0] != TaskBuild || names[1] != TaskBenchmark {
		t.Errorf("Names() = %v, want [build benchmark]", names)
	}
}

func TestSelectedTasks_Any(t *testing.T) {
	if (SelectedTasks{}).Any() {
		t.Error("Any() = true for empty selection, want false")
	}
	if !(SelectedTasks{Deploy: true}).Any() {
		t.Error("Any() = false with deploy selected, want true")
	}
}

func TestFromNames_RoundTrip(t *testing.T) {
	sel := SelectedTasks{Build: true, Deploy: true, Benchmark: true}
	got := FromNames(sel.Names())
	if got != sel {
		t.Errorf("FromNames(Names()) = %+v, want %+v", got, sel)
	}
}

func TestFromNames_IgnoresUnknown(t *testing.T) {
	got := FromNames([]string{"deploy", "provision"})
	want := SelectedTasks{Deploy: true}
	if got != want {
		t.Errorf("FromNames = %+v, want %+v", got, want)
	}
}
