package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/hailtrack/models"
)

func (m Model) renderQueueView() string {
	var s strings.Builder

	s.WriteString(m.renderHeader())
	s.WriteString("\n\n")

	records := m.pending
	empty := "Nothing waiting to sync."
	if m.viewMode == ViewDeadLetters {
		records = m.dead
		empty = "No dead-lettered records."
	}

	if len(records) == 0 {
		s.WriteString(syncMessageStyle.Render(empty))
	} else {
		s.WriteString(m.renderRecordTable(records))
	}
	s.WriteString("\n")

	help := []string{"Tab: Switch view", "↑/↓: Select", "s: Sync now", "r: Refresh", "q: Quit"}
	if m.viewMode == ViewDeadLetters {
		help = append([]string{"Enter: Requeue"}, help...)
	}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) renderRecordTable(records []models.QueuedRecord) string {
	columns := []table.Column{
		{Title: "ID", Width: 28},
		{Title: "Kind", Width: 9},
		{Title: "Captured", Width: 12},
		{Title: "Tries", Width: 5},
		{Title: "Last Error", Width: 30},
	}

	var rows []table.Row
	for _, rec := range records {
		rows = append(rows, table.Row{
			rec.ID,
			string(rec.Kind),
			rec.EnqueuedAt.Local().Format("Jan 02 15:04"),
			fmt.Sprintf("%d", rec.Attempts),
			rec.LastError,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-10, 3)),
	)
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}
	return t.View()
}

func (m Model) handleDeadLetterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "enter" || m.selectedRow >= len(m.dead) {
		return m, nil
	}

	id := m.dead[m.selectedRow].ID
	if err := m.deps.Queue.Requeue(id); err != nil {
		m.addSyncMessage(fmt.Sprintf("✗ requeue %s failed: %v", id, err))
	} else {
		m.addSyncMessage(fmt.Sprintf("Requeued %s", id))
	}
	m.refresh()
	return m, nil
}
