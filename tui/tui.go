// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Live field view of the offline queue, sync state, and downloaded routes
package tui

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/hailtrack/connectivity"
	"github.com/harperreed/hailtrack/db"
	"github.com/harperreed/hailtrack/models"
	"github.com/harperreed/hailtrack/offlinecache"
	"github.com/harperreed/hailtrack/queue"
	"github.com/harperreed/hailtrack/sync"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewQueue ViewMode = iota
	ViewDeadLetters
	ViewSync
	ViewRoutes
)

var viewNames = []string{"Pending", "Dead Letters", "Sync", "Offline Routes"}

const refreshInterval = 2 * time.Second

// Deps are the client components the view reads and drives. Ledger and Cache may be nil.
type Deps struct {
	Queue      *queue.Queue
	Reconciler *sync.Reconciler
	Monitor    *connectivity.Monitor
	Ledger     *sql.DB
	Cache      *offlinecache.Manager
}

// Model is the main bubbletea model
type Model struct {
	deps     Deps
	viewMode ViewMode

	selectedRow int

	// Snapshot refreshed on every tick
	online  bool
	pending []models.QueuedRecord
	dead    []models.QueuedRecord
	cached  []models.CachedRoute
	state   *models.SyncState
	runs    []models.SyncRun

	syncing      bool
	spinner      spinner.Model
	syncMessages []string

	width  int
	height int
	err    error
}

type tickMsg time.Time

// SyncCompleteMsg is sent when a sync pass started from the view finishes.
type SyncCompleteMsg struct {
	Report *models.SyncReport
	Error  error
}

// NewModel creates a new TUI model
func NewModel(deps Deps) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = syncSyncingStyle

	m := Model{
		deps:     deps,
		viewMode: ViewQueue,
		spinner:  sp,
		width:    80,
		height:   24,
	}
	m.refresh()
	return m
}

// Run starts the full-screen view and blocks until the user quits.
func Run(deps Deps) error {
	_, err := tea.NewProgram(NewModel(deps), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case SyncCompleteMsg:
		m.handleSyncComplete(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewQueue, ViewDeadLetters:
		return m.renderQueueView()
	case ViewSync:
		return m.renderSyncView()
	case ViewRoutes:
		return m.renderRoutesView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "right", "l":
		m.viewMode = (m.viewMode + 1) % ViewMode(len(viewNames))
		m.selectedRow = 0
		return m, nil
	case "shift+tab", "left", "h":
		m.viewMode = (m.viewMode + ViewMode(len(viewNames)) - 1) % ViewMode(len(viewNames))
		m.selectedRow = 0
		return m, nil
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
		return m, nil
	case "down", "j":
		if m.selectedRow < m.rowCount()-1 {
			m.selectedRow++
		}
		return m, nil
	case "r":
		m.refresh()
		return m, nil
	case "s":
		return m.startSync()
	}

	switch m.viewMode {
	case ViewDeadLetters:
		return m.handleDeadLetterKeys(msg)
	case ViewRoutes:
		return m.handleRoutesKeys(msg)
	}
	return m, nil
}

func (m Model) rowCount() int {
	switch m.viewMode {
	case ViewQueue:
		return len(m.pending)
	case ViewDeadLetters:
		return len(m.dead)
	case ViewRoutes:
		return len(m.cached)
	}
	return 0
}

// refresh reloads the snapshot from the stores.
func (m *Model) refresh() {
	m.err = nil
	m.online = m.deps.Monitor != nil && m.deps.Monitor.IsOnline()

	var pending []models.QueuedRecord
	for _, kind := range models.SyncOrder {
		recs, err := m.deps.Queue.ListPending(kind)
		if err != nil {
			m.err = err
			return
		}
		pending = append(pending, recs...)
	}
	m.pending = pending

	dead, err := m.deps.Queue.ListDeadLetters()
	if err != nil {
		m.err = err
		return
	}
	m.dead = dead

	if m.deps.Ledger != nil {
		if m.state, err = db.GetSyncState(m.deps.Ledger, db.ServiceRemoteAPI); err != nil {
			m.err = err
			return
		}
		if m.runs, err = db.ListSyncRuns(m.deps.Ledger, 5); err != nil {
			m.err = err
			return
		}
	}

	if m.deps.Cache != nil {
		m.cached = m.deps.Cache.GetOfflineRoutes()
	}

	if n := m.rowCount(); m.selectedRow >= n {
		m.selectedRow = max(n-1, 0)
	}
}

func (m Model) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		label := name
		switch ViewMode(i) {
		case ViewQueue:
			label = fmt.Sprintf("%s (%d)", name, len(m.pending))
		case ViewDeadLetters:
			label = fmt.Sprintf("%s (%d)", name, len(m.dead))
		case ViewRoutes:
			label = fmt.Sprintf("%s (%d)", name, len(m.cached))
		}
		if ViewMode(i) == m.viewMode {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(label))
		}
	}

	status := offlineStyle.Render("● offline")
	if m.online {
		status = onlineStyle.Render("● online")
	}
	if m.syncing {
		status += " " + m.spinner.View() + syncSyncingStyle.Render(" syncing")
	}

	title := titleStyle.Render("HAILTRACK") + "  " + status
	header := title + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.err != nil {
		header += "\n" + syncErrorStyle.Render("Error: "+m.err.Error())
	}
	return header
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
