package poller

import (
	"sync"
	"time"
)

// Manager owns one poller per visible job. Attaching an already-tracked
// job is a no-op; detaching an unknown job is silent, so a poller whose
// job was deleted elsewhere stops quietly instead of erroring.
type Manager struct {
	fetch    Fetcher
	interval time.Duration
	onUpdate func(Update)

	mu      sync.Mutex
	pollers map[string]*Poller
}

// NewManager creates a poller manager
func NewManager(fetch Fetcher, interval time.Duration, onUpdate func(Update)) *Manager {
	return &Manager{
		fetch:    fetch,
		interval: interval,
		onUpdate: onUpdate,
		pollers:  make(map[string]*Poller),
	}
}

// Attach starts tracking a job if it is not already tracked and
// returns its poller
func (m *Manager) Attach(jobID string, displayID int) *Poller {
	m.mu.Lock()
	if p, ok := m.pollers[jobID]; ok {
		m.mu.Unlock()
		return p
	}

	p := New(jobID, displayID, m.fetch, Options{
		Interval: m.interval,
		OnUpdate: m.onUpdate,
	})
	m.pollers[jobID] = p
	m.mu.Unlock()

	p.Start()
	return p
}

// Detach stops and forgets the poller for a job
func (m *Manager) Detach(jobID string) {
	m.mu.Lock()
	p, ok := m.pollers[jobID]
	if ok {
		delete(m.pollers, jobID)
	}
	m.mu.Unlock()

	if ok {
		p.Stop()
	}
}

// Get returns the poller for a job, or nil
func (m *Manager) Get(jobID string) *Poller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pollers[jobID]
}

// Tracked returns the IDs of all tracked jobs
func (m *Manager) Tracked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.pollers))
	for id := range m.pollers {
		ids = append(ids, id)
	}
	return ids
}

// StopAll tears down every poller
func (m *Manager) StopAll() {
	m.mu.Lock()
	pollers := make([]*Poller, 0, len(m.pollers))
	for _, p := range m.pollers {
		pollers = append(pollers, p)
	}
	m.pollers = make(map[string]*Poller)
	m.mu.Unlock()

	for _, p := range pollers {
		p.Stop()
	}
}
