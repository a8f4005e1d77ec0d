// Package poller drives periodic status refresh for submitted jobs.
// Each poller owns one job: it fetches immediately on attach, refetches
// on a fixed interval while the job is live, and settles permanently
// once the backend reports a terminal status.
package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/api"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
)

// DefaultInterval is the time between status fetches for a live job
const DefaultInterval = 60 * time.Second

// State is the poller lifecycle state
type State int

const (
	// StateAttached means no snapshot has been fetched yet
	StateAttached State = iota
	// StatePolling means a snapshot is present and the job is live
	StatePolling
	// StateSettled means a terminal status was observed. One-way: a
	// settled poller never fetches again.
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateAttached:
		return "attached"
	case StatePolling:
		return "polling"
	case StateSettled:
		return "settled"
	}
	return "unknown"
}

// Fetcher fetches the current detail record for a job
type Fetcher interface {
	GetJob(ctx context.Context, jobID string) (*api.JobDetail, error)
}

// Update describes a poller change for the host UI layer
type Update struct {
	JobID      string
	DisplayID  int
	State      State
	Snapshot   *domain.JobStatusSnapshot
	NewEntries []domain.LogEntry
}

// Options configures a poller
type Options struct {
	Interval time.Duration
	OnUpdate func(Update)
	Now      func() time.Time
}

// Poller tracks one job's status. Create one when the job becomes
// visible, Stop it when the job leaves view.
type Poller struct {
	jobID    string
	fetch    Fetcher
	interval time.Duration
	onUpdate func(Update)
	now      func() time.Time

	mu        sync.Mutex
	displayID int
	state     State
	snapshot  *domain.JobStatusSnapshot
	logs      []domain.LogEntry
	announced bool
	inFlight  bool
	stopped   bool
	timer     *time.Timer
}

// New creates a poller for the given job. DisplayID may be zero when
// the backend has not assigned one yet; it is backfilled from fetches.
func New(jobID string, displayID int, fetch Fetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		jobID:     jobID,
		displayID: displayID,
		fetch:     fetch,
		interval:  opts.Interval,
		onUpdate:  opts.OnUpdate,
		now:       opts.Now,
	}
}

// Start begins polling. The first fetch happens immediately.
func (p *Poller) Start() {
	go p.poll()
}

// Stop tears the poller down: the pending timer is cancelled and any
// in-flight fetch result is discarded. Stopping twice is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.cancelTimerLocked()
}

// JobID returns the job this poller tracks
func (p *Poller) JobID() string {
	return p.jobID
}

// DisplayID returns the last known display ID for the job
func (p *Poller) DisplayID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.displayID
}

// State returns the current lifecycle state
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns the most recent status snapshot, or nil before the
// first successful fetch
func (p *Poller) Snapshot() *domain.JobStatusSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Logs returns a copy of the accumulated log entries
func (p *Poller) Logs() []domain.LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.LogEntry, len(p.logs))
	copy(out, p.logs)
	return out
}

// tick fires when the interval timer elapses
func (p *Poller) tick() {
	p.poll()
}

// poll performs one fetch and applies the result. At most one fetch is
// in flight per poller; a tick that lands during a fetch is dropped
// rather than queued.
func (p *Poller) poll() {
	p.mu.Lock()
	if p.stopped || p.state == StateSettled || p.inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	detail, err := p.fetch.GetJob(ctx, p.jobID)
	cancel()
	if err == nil && detail == nil {
		err = fmt.Errorf("backend returned no detail")
	}

	p.mu.Lock()
	p.inFlight = false

	// The poller may have been torn down while the fetch was in
	// flight; its result must not be acted on.
	if p.stopped {
		p.mu.Unlock()
		return
	}

	if err != nil {
		// Transient fetch failures are invisible to the state machine:
		// no log entry, no transition, keep polling.
		log.Printf("status fetch failed for job %s: %v", p.jobID, err)
		p.scheduleLocked()
		p.mu.Unlock()
		return
	}

	update := p.applyLocked(detail)
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(update)
	}
}

// applyLocked replaces the snapshot and runs transition side effects.
// Caller holds p.mu.
func (p *Poller) applyLocked(detail *api.JobDetail) Update {
	prev := p.snapshot
	snap := detail.Snapshot()
	p.snapshot = snap
	if detail.DisplayID != 0 {
		p.displayID = detail.DisplayID
	}

	logStart := len(p.logs)

	if !p.announced {
		p.announced = true
		p.appendLocked(fmt.Sprintf("Job #%d loaded with status: %s", p.displayID, snap.Status), domain.LogInfo)
		if snap.Status.Terminal() {
			p.appendTerminalLocked(snap)
		}
	} else if prev != nil && prev.Status != snap.Status {
		if snap.Status.Terminal() {
			p.appendTerminalLocked(snap)
		} else {
			p.appendLocked(fmt.Sprintf("Job #%d is now %s", p.displayID, snap.Status), domain.LogInfo)
		}
	}

	if snap.Status.Terminal() {
		p.state = StateSettled
		p.cancelTimerLocked()
	} else {
		p.state = StatePolling
		p.scheduleLocked()
	}

	return Update{
		JobID:      p.jobID,
		DisplayID:  p.displayID,
		State:      p.state,
		Snapshot:   snap,
		NewEntries: append([]domain.LogEntry(nil), p.logs[logStart:]...),
	}
}

func (p *Poller) appendTerminalLocked(snap *domain.JobStatusSnapshot) {
	switch snap.Status {
	case domain.JobCompleted:
		p.appendLocked(fmt.Sprintf("Job #%d completed successfully", p.displayID), domain.LogSuccess)
	case domain.JobFailed:
		msg := fmt.Sprintf("Job #%d failed", p.displayID)
		if snap.Error != "" {
			msg += ": " + snap.Error
		}
		p.appendLocked(msg, domain.LogError)
	case domain.JobCancelled:
		p.appendLocked(fmt.Sprintf("Job #%d was cancelled", p.displayID), domain.LogWarning)
	}
}

func (p *Poller) appendLocked(message string, typ domain.LogEntryType) {
	p.logs = append(p.logs, domain.LogEntry{
		Timestamp: p.now(),
		Message:   message,
		Type:      typ,
	})
}

// scheduleLocked arms the single owned timer for the next fetch.
// Caller holds p.mu.
func (p *Poller) scheduleLocked() {
	p.cancelTimerLocked()
	p.timer = time.AfterFunc(p.interval, p.tick)
}

func (p *Poller) cancelTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
