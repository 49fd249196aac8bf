package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) renderRoutesView() string {
	var s strings.Builder

	s.WriteString(m.renderHeader())
	s.WriteString("\n\n")

	if len(m.cached) == 0 {
		s.WriteString(syncMessageStyle.Render("No routes downloaded. Use 'hailtrack offline download' while online."))
		s.WriteString("\n")
	} else {
		columns := []table.Column{
			{Title: "Route", Width: 28},
			{Title: "Stops", Width: 6},
			{Title: "Distance", Width: 10},
			{Title: "Cached", Width: 16},
		}
		var rows []table.Row
		for _, r := range m.cached {
			rows = append(rows, table.Row{
				r.Name,
				fmt.Sprintf("%d", len(r.Stops)),
				fmt.Sprintf("%.1f km", r.TotalDistance),
				formatTimeSince(r.CachedAt),
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
		s.WriteString(t.View())
		s.WriteString("\n")

		if m.selectedRow < len(m.cached) {
			s.WriteString("\n")
			for i, stop := range m.cached[m.selectedRow].Stops {
				s.WriteString(fmt.Sprintf("  %d. %s  %s\n", i+1, stop.Name, stop.Address))
			}
		}
	}

	help := []string{"x: Remove route", "Tab: Switch view", "↑/↓: Select", "r: Refresh", "q: Quit"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) handleRoutesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "x" || m.deps.Cache == nil || m.selectedRow >= len(m.cached) {
		return m, nil
	}

	id := m.cached[m.selectedRow].ID
	if err := m.deps.Cache.RemoveOfflineRoute(context.Background(), id); err != nil {
		m.addSyncMessage(fmt.Sprintf("✗ remove %s failed: %v", id, err))
	} else {
		m.addSyncMessage(fmt.Sprintf("Removed offline route %s", id))
	}
	m.refresh()
	return m, nil
}
