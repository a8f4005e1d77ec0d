// Package schedule drives periodic background refresh of the job
// registry on a cron expression. The pollers cover live jobs; the
// scheduled refresh keeps the listing itself current when jobs are
// launched from elsewhere (another console, the web UI).
package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is the slice of the registry the scheduler drives
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs registry refreshes on a cron schedule
type Scheduler struct {
	refresher Refresher
	schedule  cron.Schedule
	timeout   time.Duration

	mu       sync.Mutex
	running  bool
	lastRun  time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// ParseCron parses a standard five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// New creates a scheduler for the given cron expression
func New(refresher Refresher, expr string, timeout time.Duration) (*Scheduler, error) {
	schedule, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		stopChan:  make(chan struct{}),
	}, nil
}

// NextRun returns the next scheduled refresh time
func (s *Scheduler) NextRun() time.Time {
	return s.schedule.Next(time.Now())
}

// ShouldRun reports whether a refresh is due. A refresh already in
// flight suppresses the next one rather than stacking.
func (s *Scheduler) ShouldRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	lastRun := s.lastRun
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}
	return time.Now().After(s.schedule.Next(lastRun))
}

func (s *Scheduler) markRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *Scheduler) markComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.lastRun = time.Now()
}

// Start begins the scheduler loop. It blocks until Stop is called or
// the context is cancelled; callers run it in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if !s.ShouldRun() {
				continue
			}
			s.markRunning()
			go func() {
				rctx, cancel := context.WithTimeout(ctx, s.timeout)
				defer cancel()
				if err := s.refresher.Refresh(rctx); err != nil {
					log.Printf("scheduled refresh failed: %v", err)
				}
				s.markComplete()
			}()
		}
	}
}

// Stop stops the scheduler loop. Stopping twice is a no-op.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
