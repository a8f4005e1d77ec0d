// Package history provides the local SQLite job cache. The cache
// mirrors what the backend reported most recently so listings work
// offline; it is an optimization layer and never the source of truth.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed job history persistence
type Store struct {
	db *sql.DB
}

// CachedJob is one job as last seen by the cache. Snapshot is nil for
// jobs saved at launch time that have not been polled yet.
type CachedJob struct {
	Record    *domain.JobRecord
	Status    domain.JobStatus
	Snapshot  *domain.JobStatusSnapshot
	UpdatedAt time.Time
}

// New opens (or creates) the store at the given database path
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob inserts or updates a job's cached record. A nil snapshot
// leaves any previously cached snapshot in place so a launch-time save
// never erases poll results.
func (s *Store) SaveJob(record *domain.JobRecord, snapshot *domain.JobStatusSnapshot) error {
	tasksJSON, err := json.Marshal(record.Tasks.Names())
	if err != nil {
		return err
	}
	configJSON, err := json.Marshal(record.Config)
	if err != nil {
		return err
	}

	status := domain.JobQueued
	var snapJSON sql.NullString
	if snapshot != nil {
		status = snapshot.Status
		b, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		snapJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO jobs (job_id, display_id, status, created_at, tasks, config, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			display_id = excluded.display_id,
			status = CASE WHEN excluded.snapshot IS NULL THEN jobs.status ELSE excluded.status END,
			created_at = excluded.created_at,
			tasks = excluded.tasks,
			config = excluded.config,
			snapshot = COALESCE(excluded.snapshot, jobs.snapshot),
			updated_at = excluded.updated_at
	`,
		record.JobID,
		record.DisplayID,
		string(status),
		record.CreatedAt,
		string(tasksJSON),
		string(configJSON),
		snapJSON,
		time.Now(),
	)
	return err
}

// GetJob retrieves one cached job, or nil when absent
func (s *Store) GetJob(jobID string) (*CachedJob, error) {
	row := s.db.QueryRow(`
		SELECT job_id, display_id, status, created_at, tasks, config, snapshot, updated_at
		FROM jobs WHERE job_id = ?
	`, jobID)

	job, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// ListJobs returns cached jobs ordered by display ID descending, so
// the most recently launched come first, matching the backend's
// listing order. A limit of zero or less means no limit.
func (s *Store) ListJobs(limit int) ([]*CachedJob, error) {
	query := `
		SELECT job_id, display_id, status, created_at, tasks, config, snapshot, updated_at
		FROM jobs ORDER BY display_id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*CachedJob
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob evicts a job from the cache. Deleting an absent job is a
// no-op.
func (s *Store) DeleteJob(jobID string) error {
	_, err := s.db.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID)
	return err
}

func scanJob(scan func(dest ...interface{}) error) (*CachedJob, error) {
	var (
		record     domain.JobRecord
		status     string
		createdAt  sql.NullString
		tasksJSON  sql.NullString
		configJSON sql.NullString
		snapJSON   sql.NullString
		updatedAt  time.Time
	)

	err := scan(&record.JobID, &record.DisplayID, &status, &createdAt, &tasksJSON, &configJSON, &snapJSON, &updatedAt)
	if err != nil {
		return nil, err
	}

	if createdAt.Valid {
		record.CreatedAt = createdAt.String
	}
	if tasksJSON.Valid && tasksJSON.String != "" {
		var names []string
		if err := json.Unmarshal([]byte(tasksJSON.String), &names); err != nil {
			return nil, err
		}
		record.Tasks = domain.FromNames(names)
	}
	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &record.Config); err != nil {
			return nil, err
		}
	}

	job := &CachedJob{
		Record:    &record,
		Status:    domain.JobStatus(status),
		UpdatedAt: updatedAt,
	}
	if snapJSON.Valid && snapJSON.String != "" {
		var snap domain.JobStatusSnapshot
		if err := json.Unmarshal([]byte(snapJSON.String), &snap); err != nil {
			return nil, err
		}
		job.Snapshot = &snap
	}
	return job, nil
}
