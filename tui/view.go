package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/present"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("238")).
				Foreground(lipgloss.Color("255"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	queuedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2)
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	running := 0
	for id := range m.snapshots {
		if m.snapshots[id] != nil && !m.snapshots[id].Status.Terminal() {
			running++
		}
	}
	header := fmt.Sprintf(" Cluster Console │ Jobs: %d │ Live: %d ", len(m.jobs), running)
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.activeTab {
	case tabJobs:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderJobs()))
	case tabDetail:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderDetail()))
	case tabConsole:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderConsole()))
	case tabLaunch:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderLaunch()))
	}
	b.WriteString("\n")

	if m.confirmDelete != nil {
		prompt := fmt.Sprintf("Delete job #%d (%s)? This cannot be undone.\n\n[y]es  [n]o",
			m.confirmDelete.DisplayID, m.confirmDelete.JobID)
		b.WriteString(overlayStyle.Render(prompt))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString(queuedStyle.Width(m.width).Render(" " + m.statusMsg + " "))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderTabs() string {
	names := []string{"Jobs", "Detail", "Console", "Launch"}
	tabs := make([]string, len(names))
	for i, name := range names {
		if i == m.activeTab {
			tabs[i] = tabActiveStyle.Render(name)
		} else {
			tabs[i] = tabInactiveStyle.Render(name)
		}
	}
	return " " + strings.Join(tabs, "  ")
}

func (m Model) renderJobs() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Jobs"))
	b.WriteString("\n")

	if len(m.jobs) == 0 {
		b.WriteString(dimmedStyle.Render("  No jobs. Launch one with the launch command."))
		return b.String()
	}

	b.WriteString(dimmedStyle.Render(fmt.Sprintf("  %-5s %-11s %-24s %-10s %s", "ID", "STATUS", "TASKS", "PROGRESS", "CREATED")))
	b.WriteString("\n")

	for i, job := range m.jobs {
		status := domain.JobQueued
		progress := "-"
		if snap := m.snapshots[job.JobID]; snap != nil {
			status = snap.Status
			if snap.Progress != nil && snap.Progress.TotalTasks > 0 {
				progress = fmt.Sprintf("%d/%d", snap.Progress.CompletedTasks, snap.Progress.TotalTasks)
			}
		}

		line := fmt.Sprintf("  #%-4d %-11s %-24s %-10s %s",
			job.DisplayID, status, strings.Join(job.Tasks.Names(), "+"), progress, job.CreatedAt)

		if i == m.selectedRow {
			b.WriteString(selectedRowStyle.Render(line))
		} else {
			b.WriteString(statusStyle(status).Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDetail() string {
	job := m.selected()
	if job == nil {
		return dimmedStyle.Render("No job selected")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Job #%d", job.DisplayID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  ID:      %s\n", job.JobID))
	b.WriteString(fmt.Sprintf("  Tasks:   %s\n", strings.Join(job.Tasks.Names(), ", ")))
	b.WriteString(fmt.Sprintf("  Created: %s\n", job.CreatedAt))

	snap := m.snapshots[job.JobID]
	if snap == nil {
		b.WriteString(dimmedStyle.Render("\n  Status not fetched yet"))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  Status:  %s\n", statusStyle(snap.Status).Render(string(snap.Status))))
	if snap.Error != "" {
		b.WriteString("  Error:   " + errorStyle.Render(snap.Error) + "\n")
	}

	for _, section := range present.Sections(snap) {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render(section.Title))
		if section.Status != "" {
			b.WriteString(dimmedStyle.Render(" [" + string(section.Status) + "]"))
		}
		b.WriteString("\n")
		for _, field := range section.Fields {
			b.WriteString(fmt.Sprintf("    %s: %s\n", field.Label, field.Value))
		}
		if section.Table != nil {
			b.WriteString(renderMetricsTable(section.Table))
		}
	}
	return b.String()
}

func renderMetricsTable(table *present.MetricsTable) string {
	widths := make([]int, len(table.Columns))
	for i, col := range table.Columns {
		widths[i] = len(col)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString("    ")
	for i, col := range table.Columns {
		b.WriteString(fmt.Sprintf("%-*s  ", widths[i], col))
	}
	b.WriteString("\n")
	for _, row := range table.Rows {
		b.WriteString("    ")
		for i, cell := range row {
			b.WriteString(fmt.Sprintf("%-*s  ", widths[i], cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderLaunch() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Launch"))
	b.WriteString("\n")

	for i, row := range m.form.rows {
		var line string
		switch row.kind {
		case rowToggle:
			mark := " "
			if row.on {
				mark = "x"
			}
			line = fmt.Sprintf("  [%s] %s", mark, row.label)
		case rowText:
			value := row.value
			if m.form.editing && i == m.form.cursor {
				value += "_"
			}
			line = fmt.Sprintf("  %-18s %s", row.label+":", value)
		case rowSubmit:
			line = "  [ " + row.label + " ]"
		}

		if i == m.form.cursor {
			b.WriteString(selectedRowStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if len(m.form.errors) > 0 {
		b.WriteString("\n")
		for _, e := range m.form.errors {
			b.WriteString(errorStyle.Render("  ! " + e))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderConsole() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Console"))
	b.WriteString("\n")

	if len(m.console) == 0 {
		b.WriteString(dimmedStyle.Render("  No activity yet"))
		return b.String()
	}

	visible := m.height - 8
	if visible < 1 {
		visible = 10
	}
	start := m.scroll
	if start > len(m.console)-1 {
		start = len(m.console) - 1
	}
	end := start + visible
	if end > len(m.console) {
		end = len(m.console)
	}

	for _, entry := range m.console[start:end] {
		line := fmt.Sprintf("  %s  %s", entry.Timestamp.Format("15:04:05"), entry.Message)
		b.WriteString(entryStyle(entry.Type).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	switch m.activeTab {
	case tabDetail:
		return dimmedStyle.Render(" [tab]switch [c]ancel [d]elete [r]efresh [q]uit ")
	case tabConsole:
		return dimmedStyle.Render(" [tab]switch [j/k]scroll [r]efresh [q]uit ")
	case tabLaunch:
		return dimmedStyle.Render(" [tab]switch [j/k]move [space]toggle [enter]edit/submit [q]uit ")
	default:
		return dimmedStyle.Render(" [tab]switch [j/k]navigate [enter]detail [l]ogs [c]ancel [d]elete [r]efresh [q]uit ")
	}
}

func statusStyle(status domain.JobStatus) lipgloss.Style {
	switch status {
	case domain.JobRunning:
		return runningStyle
	case domain.JobCompleted:
		return runningStyle
	case domain.JobFailed:
		return errorStyle
	case domain.JobCancelled:
		return warningStyle
	default:
		return queuedStyle
	}
}

func entryStyle(typ domain.LogEntryType) lipgloss.Style {
	switch typ {
	case domain.LogSuccess:
		return runningStyle
	case domain.LogWarning:
		return warningStyle
	case domain.LogError:
		return errorStyle
	default:
		return queuedStyle
	}
}
