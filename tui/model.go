package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/poller"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/registry"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/workflow"
)

// Tab indices
const (
	tabJobs = iota
	tabDetail
	tabConsole
	tabLaunch
	tabCount
)

// Model is the TUI application model
type Model struct {
	registry *registry.Registry
	pollers  *poller.Manager
	updates  chan poller.Update

	// Data
	jobs      []*domain.JobRecord
	snapshots map[string]*domain.JobStatusSnapshot
	console   []domain.LogEntry

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int
	scroll      int

	// Launch tab state
	form launchForm

	// Delete confirmation overlay
	confirmDelete *domain.JobRecord

	statusMsg   string
	refreshing  bool
	lastRefresh time.Time
}

// ModelConfig holds initial data for the TUI model
type ModelConfig struct {
	Registry *registry.Registry
	Pollers  *poller.Manager
	// Updates carries poller activity into the event loop
	Updates chan poller.Update
}

// NewModel creates a new TUI model
func NewModel(cfg ModelConfig) Model {
	return Model{
		registry:  cfg.Registry,
		pollers:   cfg.Pollers,
		updates:   cfg.Updates,
		jobs:      cfg.Registry.Jobs(),
		snapshots: make(map[string]*domain.JobStatusSnapshot),
		form:      newLaunchForm(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshCmd(),
		waitForActivity(m.updates),
	)
}

// RefreshDoneMsg is sent when a registry refresh settles
type RefreshDoneMsg struct {
	Err error
}

// ActivityMsg carries one poller update into the event loop
type ActivityMsg poller.Update

// ActionDoneMsg is sent when a delete or cancel call settles
type ActionDoneMsg struct {
	Verb  string
	JobID string
	Err   error
}

// LaunchDoneMsg is sent when a launch submission settles
type LaunchDoneMsg struct {
	Record *domain.JobRecord
	Err    error
}

func (m Model) refreshCmd() tea.Cmd {
	reg := m.registry
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return RefreshDoneMsg{Err: reg.Refresh(ctx)}
	}
}

func (m Model) launchCmd(selected domain.SelectedTasks, cfg workflow.Config) tea.Cmd {
	reg := m.registry
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		rec, err := reg.Launch(ctx, selected, cfg)
		return LaunchDoneMsg{Record: rec, Err: err}
	}
}

func waitForActivity(updates chan poller.Update) tea.Cmd {
	return func() tea.Msg {
		return ActivityMsg(<-updates)
	}
}
