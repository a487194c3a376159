package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/tracker"
	"github.com/NamanBalaji/dltrack/internal/tui/components"
	"github.com/NamanBalaji/dltrack/internal/tui/styles"
)

type currentView int

const (
	viewList currentView = iota
	viewDetail
)

const (
	historyRows = 8
	pageStep    = 5
)

// Model is the dashboard model.
type Model struct {
	actions trackerActions
	view    currentView
	refresh time.Duration

	list        listModel
	stats       tracker.Statistics
	history     []*progress.Info
	hostRate    float64
	hasHostRate bool

	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width, height int
	errMsg        string
	successMsg    string
	loaded        bool
}

type listModel struct {
	downloads []*progress.Info
	selected  int
}

type (
	clearMsg    struct{}
	tickMsg     struct{}
	snapshotMsg struct {
		downloads []*progress.Info
		stats     tracker.Statistics
	}
	hostRateMsg struct {
		rate float64
		ok   bool
	}
	eventMsg      tracker.Event
	cleanedMsg    int
	historyMsg    []*progress.Info
	downloadError struct{ error }
	inputsDoneMsg struct{}
)

func clearNotifications() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return clearMsg{}
	})
}

// NewModel creates a dashboard model refreshing every refresh interval.
func NewModel(actions trackerActions, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.Pink)

	return &Model{
		actions: actions,
		view:    viewList,
		refresh: refresh,
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.refreshDownloads(),
		m.sampleHostRate(),
		m.spinner.Tick,
		m.tick(),
	)
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg{} })
}

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.tick(), m.refreshDownloads(), m.sampleHostRate())

	case snapshotMsg:
		m.list.downloads = msg.downloads
		m.stats = msg.stats
		m.loaded = true
		m.clampSelection()

		if m.view == viewDetail {
			return m, m.loadHistory()
		}

		return m, nil

	case eventMsg:
		cmds = append(cmds, m.refreshDownloads())
		if m.notifyEvent(tracker.Event(msg)) {
			cmds = append(cmds, clearNotifications())
		}

		return m, tea.Batch(cmds...)

	case cleanedMsg:
		m.successMsg = fmt.Sprintf("Removed %d finished downloads", int(msg))
		return m, tea.Batch(m.refreshDownloads(), clearNotifications())

	case hostRateMsg:
		m.hostRate, m.hasHostRate = msg.rate, msg.ok
		return m, nil

	case historyMsg:
		m.history = msg
		return m, nil

	case downloadError:
		m.errMsg = msg.Error()
		return m, clearNotifications()

	case inputsDoneMsg:
		m.successMsg = "All inputs replayed"
		return m, clearNotifications()

	case clearMsg:
		m.errMsg = ""
		m.successMsg = ""

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	}

	switch m.view {
	case viewList:
		cmds = append(cmds, m.updateListView(msg))
	case viewDetail:
		cmds = append(cmds, m.updateDetailView(msg))
	}

	return m, tea.Batch(cmds...)
}

// notifyEvent surfaces terminal events; it reports whether a notification was set.
func (m *Model) notifyEvent(ev tracker.Event) bool {
	name := ev.RequestID
	if ev.Progress != nil && ev.Progress.Filename != "" {
		name = ev.Progress.Filename
	}

	switch ev.Type {
	case tracker.EventCompleted:
		m.successMsg = "Completed: " + name
	case tracker.EventFailed:
		m.errMsg = "Failed: " + name
		if ev.Progress != nil && ev.Progress.ErrorMessage != "" {
			m.errMsg += " (" + ev.Progress.ErrorMessage + ")"
		}
	case tracker.EventCancelled:
		m.errMsg = "Cancelled: " + name
	default:
		return false
	}

	return true
}

// View renders the dashboard.
func (m *Model) View() string {
	if !m.loaded {
		return fmt.Sprintf("\n  %s Waiting for progress... Please wait.\n\n", m.spinner.View())
	}

	header := renderHeader(m)
	footer := styles.FooterStyle.Width(m.width).Render(m.help.View(m.keys))
	notification := m.renderNotification()

	remainingHeight := m.height - lipgloss.Height(header) - lipgloss.Height(notification) - lipgloss.Height(footer)
	if remainingHeight < 0 {
		remainingHeight = 0
	}

	var mainContent string

	if remainingHeight > 0 {
		switch m.view {
		case viewList:
			mainContent = components.RenderDownloadList(m.list.downloads, m.list.selected, m.width, remainingHeight)
		case viewDetail:
			mainContent = m.renderDetailView(remainingHeight)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		notification,
		mainContent,
		footer,
	)
}

func (m *Model) renderNotification() string {
	if m.errMsg != "" {
		return styles.ErrorStyle.Width(m.width).Align(lipgloss.Center).Render(m.errMsg)
	}

	if m.successMsg != "" {
		return styles.SuccessStyle.Width(m.width).Align(lipgloss.Center).Render(m.successMsg)
	}

	return lipgloss.NewStyle().Height(1).Render("")
}

func renderHeader(m *Model) string {
	header := styles.TitleStyle.Width(m.width).Render("dltrack - download progress")

	s := m.stats
	counts := fmt.Sprintf(
		"Total: %d | Active: %d | Completed: %d | Failed: %d | Cancelled: %d",
		s.TotalDownloads, s.ActiveDownloads, s.CompletedDownloads, s.FailedDownloads, s.CancelledDownloads,
	)

	eta := "--"
	if s.EstimatedTimeRemaining > 0 {
		eta = progress.FormatDuration(s.EstimatedTimeRemaining)
	}

	rates := fmt.Sprintf(
		"Overall: %.1f%% | Avg: %s | Peak: %s | ETA: %s | Session: %s",
		s.OverallProgress,
		progress.FormatSpeed(&s.AverageSpeed),
		progress.FormatSpeed(&s.PeakSpeed),
		eta,
		progress.FormatDuration(s.SessionDuration),
	)

	if m.hasHostRate {
		rates += " | Host rx: " + progress.FormatSpeed(&m.hostRate)
	}

	return lipgloss.JoinVertical(lipgloss.Top,
		header,
		styles.StatsStyle.Width(m.width).Render(counts),
		styles.StatsStyle.Width(m.width).Render(rates),
	)
}

func (m *Model) renderDetailView(height int) string {
	info, ok := m.selectedDownload()
	if !ok {
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, "No download selected")
	}

	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(styles.Pink).Render(info.RequestID)
	b.WriteString(title + "  " + components.StatusLabel(info.Status) + "\n\n")

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-12s %s\n", label+":", value)
		}
	}

	total := "Unknown"
	if t, ok := info.ExpectedBytes(); ok {
		total = progress.FormatSize(t)
	}

	field("File", info.Filename)
	field("Operation", info.CurrentOperation)
	field("Downloaded", progress.FormatSize(info.DownloadedBytes)+" / "+total)
	field("Speed", progress.FormatSpeed(info.Speed))
	field("ETA", progress.FormatETA(info.ETA))
	field("Error", info.ErrorMessage)

	b.WriteString("\nHistory\n")

	history := m.history
	if len(history) > historyRows {
		history = history[len(history)-historyRows:]
	}

	for _, h := range history {
		fmt.Fprintf(&b, "  %-15s %-10s %-12s %s\n",
			h.Status, progress.FormatSize(h.DownloadedBytes), progress.FormatSpeed(h.Speed), h.UpdatedAt.Format(time.TimeOnly))
	}

	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, styles.DetailStyle.Render(b.String()))
}

func (m *Model) refreshDownloads() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{
			downloads: m.actions.GetAll(),
			stats:     m.actions.Stats(),
		}
	}
}

func (m *Model) sampleHostRate() tea.Cmd {
	return func() tea.Msg {
		rate, ok := m.actions.HostRate()
		return hostRateMsg{rate: rate, ok: ok}
	}
}

func (m *Model) loadHistory() tea.Cmd {
	info, ok := m.selectedDownload()
	if !ok {
		return nil
	}

	id := info.RequestID

	return func() tea.Msg {
		return historyMsg(m.actions.History(id))
	}
}

func (m *Model) selectedDownload() (*progress.Info, bool) {
	if len(m.list.downloads) > 0 && m.list.selected < len(m.list.downloads) {
		return m.list.downloads[m.list.selected], true
	}

	return nil, false
}

func (m *Model) clampSelection() {
	if m.list.selected >= len(m.list.downloads) {
		m.list.selected = len(m.list.downloads) - 1
	}

	if m.list.selected < 0 {
		m.list.selected = 0
	}
}

func (m *Model) updateListView(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.list.selected--
	case key.Matches(keyMsg, m.keys.Down):
		m.list.selected++
	case key.Matches(keyMsg, m.keys.PageUp):
		m.list.selected -= pageStep
	case key.Matches(keyMsg, m.keys.PageDown):
		m.list.selected += pageStep
	case key.Matches(keyMsg, m.keys.Details):
		if _, ok := m.selectedDownload(); ok {
			m.view = viewDetail
			m.history = nil

			return m.loadHistory()
		}
	case key.Matches(keyMsg, m.keys.Cleanup):
		return func() tea.Msg {
			return cleanedMsg(m.actions.Cleanup())
		}
	}

	m.clampSelection()

	return nil
}

func (m *Model) updateDetailView(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.Back) {
		m.view = viewList
		m.history = nil
	}

	return nil
}

