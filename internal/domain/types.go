package domain

// JobStatus represents the lifecycle state of a job as reported by the backend
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further status transitions can follow
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// TaskStatus represents the lifecycle state of a single task within a job
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Task names understood by the backend workflow endpoint
const (
	TaskBuild     = "build"
	TaskDeploy    = "deploy"
	TaskBenchmark = "benchmark"
)

// SelectedTasks records which workflow tasks the operator enabled
type SelectedTasks struct {
	Build     bool
	Deploy    bool
	Benchmark bool
}

// Any reports whether at least one task is selected
func (t SelectedTasks) Any() bool {
	return t.Build || t.Deploy || t.Benchmark
}

// Count returns the number of selected tasks
func (t SelectedTasks) Count() int {
	n := 0
	if t.Build {
		n++
	}
	if t.Deploy {
		n++
	}
	if t.Benchmark {
		n++
	}
	return n
}

// Names returns the selected task names in workflow execution order
func (t SelectedTasks) Names() []string {
	var names []string
	if t.Build {
		names = append(names, TaskBuild)
	}
	if t.Deploy {
		names = append(names, TaskDeploy)
	}
	if t.Benchmark {
		names = append(names, TaskBenchmark)
	}
	return names
}

// FromNames builds a SelectedTasks from backend task names
func FromNames(names []string) SelectedTasks {
	var t SelectedTasks
	for _, n := range names {
		switch n {
		case TaskBuild:
			t.Build = true
		case TaskDeploy:
			t.Deploy = true
		case TaskBenchmark:
			t.Benchmark = true
		}
	}
	return t
}
