// ABOUTME: TUI view for sync status and controls
// ABOUTME: Shows ledger state, recent runs, and an activity log; 's' starts a pass
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/hailtrack/models"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(12)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

const maxSyncMessages = 5

func (m Model) renderSyncView() string {
	var s strings.Builder

	s.WriteString(m.renderHeader())
	s.WriteString("\n\n")

	s.WriteString(syncHeaderStyle.Render("Remote API"))
	s.WriteString("\n\n")

	s.WriteString(syncLabelStyle.Render("Status"))
	switch {
	case m.syncing:
		s.WriteString(syncSyncingStyle.Render(m.spinner.View() + " Syncing..."))
	case m.state == nil:
		s.WriteString(syncMessageStyle.Render("Not synced yet"))
	case m.state.Status == models.SyncStatusError:
		s.WriteString(syncErrorStyle.Render("✗ Error"))
		if m.state.ErrorMessage != "" {
			s.WriteString(syncErrorStyle.Render(": " + m.state.ErrorMessage))
		}
	default:
		s.WriteString(syncIdleStyle.Render("✓ " + m.state.Status))
	}
	s.WriteString("\n")

	if m.state != nil && m.state.LastSyncTime != nil {
		s.WriteString(syncLabelStyle.Render("Last sync"))
		s.WriteString(syncMessageStyle.Render(formatTimeSince(*m.state.LastSyncTime)))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if len(m.runs) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Runs"))
		s.WriteString("\n\n")
		for _, run := range m.runs {
			line := fmt.Sprintf("  %s  %d/%d synced", formatTimeSince(run.FinishedAt), run.Synced, run.Total)
			if run.Failed > 0 {
				line += fmt.Sprintf(", %d failed", run.Failed)
			}
			if run.DeadLettered > 0 {
				line += fmt.Sprintf(", %d dead-lettered", run.DeadLettered)
			}
			s.WriteString(line)
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	if len(m.syncMessages) > 0 {
		s.WriteString(syncHeaderStyle.Render("Recent Activity"))
		s.WriteString("\n\n")
		for _, msg := range m.syncMessages {
			s.WriteString(syncMessageStyle.Render("  " + msg))
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}

	help := []string{"Tab: Switch view", "s: Sync now", "r: Refresh", "q: Quit"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) startSync() (tea.Model, tea.Cmd) {
	if m.syncing {
		return m, nil
	}
	if !m.online || m.deps.Reconciler == nil {
		m.addSyncMessage("Remote API is offline; captures stay queued")
		return m, nil
	}

	m.syncing = true
	m.addSyncMessage(fmt.Sprintf("Starting sync of %d records...", len(m.pending)))
	return m, tea.Batch(m.spinner.Tick, m.syncCmd())
}

func (m Model) syncCmd() tea.Cmd {
	r := m.deps.Reconciler
	return func() tea.Msg {
		report, err := r.Sync(context.Background(), nil)
		return SyncCompleteMsg{Report: report, Error: err}
	}
}

func (m *Model) handleSyncComplete(msg SyncCompleteMsg) {
	m.syncing = false

	switch {
	case msg.Error != nil:
		m.addSyncMessage(fmt.Sprintf("✗ sync failed: %v", msg.Error))
	case msg.Report != nil && msg.Report.Failed > 0:
		m.addSyncMessage(fmt.Sprintf("✗ synced %d/%d, %d failed", msg.Report.Synced, msg.Report.Total, msg.Report.Failed))
	case msg.Report != nil:
		m.addSyncMessage(fmt.Sprintf("✓ synced %d/%d", msg.Report.Synced, msg.Report.Total))
	}

	m.refresh()
}

// addSyncMessage appends to the activity log, keeping the newest entries.
func (m *Model) addSyncMessage(msg string) {
	timestamp := time.Now().Format("15:04:05")
	m.syncMessages = append(m.syncMessages, fmt.Sprintf("[%s] %s", timestamp, msg))
	if len(m.syncMessages) > maxSyncMessages {
		m.syncMessages = m.syncMessages[len(m.syncMessages)-maxSyncMessages:]
	}
}

// formatTimeSince formats a time duration in a human-readable way.
func formatTimeSince(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
