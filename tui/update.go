package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/registry"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The confirmation overlay swallows every key until answered.
		if m.confirmDelete != nil {
			return m.updateConfirm(msg)
		}

		if m.activeTab == tabLaunch {
			return m.updateForm(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.pollers.StopAll()
			return m, tea.Quit
		case "r":
			if !m.refreshing {
				m.refreshing = true
				m.statusMsg = "Refreshing..."
				return m, m.refreshCmd()
			}
		case "j", "down":
			if m.activeTab == tabJobs && m.selectedRow < len(m.jobs)-1 {
				m.selectedRow++
			}
			if m.activeTab == tabConsole {
				m.scroll++
			}
		case "k", "up":
			if m.activeTab == tabJobs && m.selectedRow > 0 {
				m.selectedRow--
			}
			if m.activeTab == tabConsole && m.scroll > 0 {
				m.scroll--
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.scroll = 0
		case "enter":
			if m.activeTab == tabJobs && m.selected() != nil {
				m.activeTab = tabDetail
			}
		case "l":
			m.activeTab = tabConsole
			m.scroll = 0
		case "d":
			if job := m.selected(); job != nil {
				m.confirmDelete = job
			}
		case "c":
			if job := m.selected(); job != nil {
				return m, m.cancelCmd(job.JobID)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case RefreshDoneMsg:
		m.refreshing = false
		m.lastRefresh = time.Now()
		if msg.Err != nil {
			m.statusMsg = "Refresh failed: " + msg.Err.Error()
			return m, nil
		}
		m.statusMsg = ""
		m.jobs = m.registry.Jobs()
		m.clampSelection()
		return m, m.attachVisible()

	case ActivityMsg:
		m.snapshots[msg.JobID] = msg.Snapshot
		m.console = append(m.console, msg.NewEntries...)
		return m, waitForActivity(m.updates)

	case LaunchDoneMsg:
		var verr *registry.ValidationError
		if errors.As(msg.Err, &verr) {
			m.form.errors = verr.Errors
			m.statusMsg = ""
			return m, nil
		}
		if msg.Err != nil {
			m.statusMsg = "Launch failed: " + msg.Err.Error()
			return m, nil
		}
		m.form.errors = nil
		m.statusMsg = fmt.Sprintf("Launched job #%d", msg.Record.DisplayID)
		m.jobs = m.registry.Jobs()
		m.activeTab = tabJobs
		m.pollers.Attach(msg.Record.JobID, msg.Record.DisplayID)
		return m, nil

	case ActionDoneMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("%s failed: %v", msg.Verb, msg.Err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("%s: job %s", msg.Verb, msg.JobID)
		if msg.Verb == "Deleted" {
			m.pollers.Detach(msg.JobID)
			delete(m.snapshots, msg.JobID)
			m.jobs = m.registry.Jobs()
			m.clampSelection()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row := &m.form.rows[m.form.cursor]

	if m.form.editing {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.form.editing = false
		case tea.KeyBackspace:
			if len(row.value) > 0 {
				row.value = row.value[:len(row.value)-1]
			}
		case tea.KeySpace:
			row.value += " "
		case tea.KeyRunes:
			row.value += string(msg.Runes)
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.pollers.StopAll()
		return m, tea.Quit
	case "tab":
		m.activeTab = (m.activeTab + 1) % tabCount
	case "j", "down":
		if m.form.cursor < len(m.form.rows)-1 {
			m.form.cursor++
		}
	case "k", "up":
		if m.form.cursor > 0 {
			m.form.cursor--
		}
	case " ":
		if row.kind == rowToggle {
			row.on = !row.on
		}
	case "enter":
		switch row.kind {
		case rowToggle:
			row.on = !row.on
		case rowText:
			m.form.editing = true
		case rowSubmit:
			sel, cfg, errs := m.form.assemble()
			if len(errs) > 0 {
				m.form.errors = errs
				return m, nil
			}
			m.form.errors = nil
			m.statusMsg = "Launching..."
			return m, m.launchCmd(sel, cfg)
		}
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		job := m.confirmDelete
		m.confirmDelete = nil
		return m, m.deleteCmd(job.JobID)
	case "n", "N", "esc":
		m.confirmDelete = nil
	}
	return m, nil
}

// selected returns the job under the cursor, or nil
func (m Model) selected() *domain.JobRecord {
	if m.selectedRow < 0 || m.selectedRow >= len(m.jobs) {
		return nil
	}
	return m.jobs[m.selectedRow]
}

func (m *Model) clampSelection() {
	if m.selectedRow >= len(m.jobs) {
		m.selectedRow = len(m.jobs) - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

// attachVisible starts a poller for every listed job that is not
// already settled locally. Pollers for jobs that fell out of the
// listing are torn down.
func (m Model) attachVisible() tea.Cmd {
	listed := make(map[string]bool, len(m.jobs))
	for _, job := range m.jobs {
		listed[job.JobID] = true
		m.pollers.Attach(job.JobID, job.DisplayID)
	}
	for _, id := range m.pollers.Tracked() {
		if !listed[id] {
			m.pollers.Detach(id)
		}
	}
	return nil
}

func (m Model) deleteCmd(jobID string) tea.Cmd {
	reg := m.registry
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return ActionDoneMsg{Verb: "Deleted", JobID: jobID, Err: reg.Delete(ctx, jobID)}
	}
}

func (m Model) cancelCmd(jobID string) tea.Cmd {
	reg := m.registry
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return ActionDoneMsg{Verb: "Cancelled", JobID: jobID, Err: reg.Cancel(ctx, jobID)}
	}
}
