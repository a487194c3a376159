package tui

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/dltrack/internal/logger"
	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

type stubSampler struct {
	rate float64
	ok   bool
	err  error
}

func (s stubSampler) Sample(context.Context) (float64, bool, error) {
	return s.rate, s.ok, s.err
}

// collect runs cmd and flattens batches. Only use it on commands that do not
// wait on a timer.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}

	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}

		return out
	}

	return []tea.Msg{msg}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newTestManager(t *testing.T, ids ...string) *tracker.Manager {
	t.Helper()

	mgr := tracker.New(tracker.WithLogger(logger.Discard))
	for _, id := range ids {
		require.NoError(t, mgr.Register(id, &progress.Info{
			RequestID:       id,
			Status:          status.Downloading,
			Filename:        id + ".mp4",
			DownloadedBytes: 100,
			TotalBytes:      progress.Int64(1000),
		}))
	}

	return mgr
}

func newTestModel(t *testing.T, mgr *tracker.Manager, sampler RateSampler) *Model {
	t.Helper()

	m := NewModel(newTrackerActions(context.Background(), mgr, sampler, logger.Discard), 0)
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})

	for _, msg := range collect(m.refreshDownloads()) {
		m.Update(msg)
	}

	return m
}

func TestModelWaitsForFirstSnapshot(t *testing.T) {
	m := NewModel(newTrackerActions(context.Background(), newTestManager(t), nil, nil), 0)
	assert.Contains(t, m.View(), "Waiting for progress")
}

func TestModelRendersSnapshot(t *testing.T) {
	mgr := newTestManager(t, "b", "a")
	m := newTestModel(t, mgr, nil)

	require.True(t, m.loaded)
	require.Len(t, m.list.downloads, 2)
	assert.Equal(t, "a", m.list.downloads[0].RequestID)
	assert.Equal(t, "b", m.list.downloads[1].RequestID)

	view := m.View()
	assert.Contains(t, view, "Total: 2 | Active: 2")
	assert.Contains(t, view, "Overall: 10.0%")
	assert.Contains(t, view, "a.mp4")
	assert.Contains(t, view, "b.mp4")
	assert.NotContains(t, view, "Host rx")
}

func TestModelShowsHostRate(t *testing.T) {
	m := newTestModel(t, newTestManager(t, "a"), stubSampler{rate: 2000, ok: true})

	for _, msg := range collect(m.sampleHostRate()) {
		m.Update(msg)
	}

	assert.Contains(t, m.View(), "Host rx: 2.0 kB/s")

	failing := newTestModel(t, newTestManager(t, "a"), stubSampler{err: errors.New("no counters")})
	for _, msg := range collect(failing.sampleHostRate()) {
		failing.Update(msg)
	}

	assert.NotContains(t, failing.View(), "Host rx")
}

func TestModelNavigation(t *testing.T) {
	m := newTestModel(t, newTestManager(t, "a", "b", "c"), nil)

	steps := []struct {
		key  string
		want int
	}{
		{"down", 1},
		{"j", 2},
		{"down", 2},
		{"up", 1},
		{"k", 0},
		{"up", 0},
		{"pgdown", 2},
		{"pgup", 0},
	}

	for _, step := range steps {
		m.Update(keyPress(step.key))
		assert.Equal(t, step.want, m.list.selected, "after %q", step.key)
	}
}

func TestModelSelectionClampsWhenListShrinks(t *testing.T) {
	mgr := newTestManager(t, "a", "b")
	m := newTestModel(t, mgr, nil)

	m.Update(keyPress("down"))
	require.Equal(t, 1, m.list.selected)

	mgr.Update("b", &progress.Info{RequestID: "b", Status: status.Completed, DownloadedBytes: 1000})
	require.Equal(t, 1, mgr.CleanupCompleted())

	for _, msg := range collect(m.refreshDownloads()) {
		m.Update(msg)
	}

	assert.Equal(t, 0, m.list.selected)
}

func TestModelCleanupKey(t *testing.T) {
	mgr := newTestManager(t, "a", "b")
	mgr.Update("a", &progress.Info{RequestID: "a", Status: status.Completed, DownloadedBytes: 1000})

	m := newTestModel(t, mgr, nil)

	_, cmd := m.Update(keyPress("c"))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, cleanedMsg(1), msgs[0])

	m.Update(msgs[0])
	assert.Equal(t, "Removed 1 finished downloads", m.successMsg)
	assert.Len(t, mgr.AllProgress(), 1)
}

func TestModelQuitKey(t *testing.T) {
	m := newTestModel(t, newTestManager(t), nil)

	for _, k := range []tea.KeyMsg{keyPress("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := m.Update(k)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	}
}

func TestModelTerminalEventNotifications(t *testing.T) {
	testCases := []struct {
		name        string
		ev          tracker.Event
		wantError   string
		wantSuccess string
	}{
		{
			name:        "completed uses filename",
			ev:          tracker.Event{Type: tracker.EventCompleted, RequestID: "a", Progress: &progress.Info{Filename: "clip.mp4"}},
			wantSuccess: "Completed: clip.mp4",
		},
		{
			name:      "failed includes message",
			ev:        tracker.Event{Type: tracker.EventFailed, RequestID: "b", Progress: &progress.Info{ErrorMessage: "HTTP Error 403"}},
			wantError: "Failed: b (HTTP Error 403)",
		},
		{
			name:      "cancelled",
			ev:        tracker.Event{Type: tracker.EventCancelled, RequestID: "c"},
			wantError: "Cancelled: c",
		},
		{
			name: "updates are silent",
			ev:   tracker.Event{Type: tracker.EventUpdated, RequestID: "d", Progress: &progress.Info{}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestModel(t, newTestManager(t), nil)

			_, cmd := m.Update(eventMsg(tc.ev))
			require.NotNil(t, cmd)
			assert.Equal(t, tc.wantError, m.errMsg)
			assert.Equal(t, tc.wantSuccess, m.successMsg)

			m.Update(clearMsg{})
			assert.Empty(t, m.errMsg)
			assert.Empty(t, m.successMsg)
		})
	}
}

func TestModelDetailView(t *testing.T) {
	mgr := newTestManager(t, "a")
	mgr.Update("a", &progress.Info{RequestID: "a", Status: status.Downloading, Filename: "a.mp4", DownloadedBytes: 400, TotalBytes: progress.Int64(1000)})

	m := newTestModel(t, mgr, nil)

	_, cmd := m.Update(keyPress("enter"))
	require.Equal(t, viewDetail, m.view)

	for _, msg := range collect(cmd) {
		m.Update(msg)
	}

	require.Len(t, m.history, 2)

	view := m.View()
	assert.Contains(t, view, "History")
	assert.Contains(t, view, "400 B / 1.0 kB")

	m.Update(keyPress("esc"))
	assert.Equal(t, viewList, m.view)
	assert.Nil(t, m.history)
}

func TestModelInputsAndErrors(t *testing.T) {
	m := newTestModel(t, newTestManager(t), nil)

	m.Update(downloadError{errors.New("read /tmp/x.log: permission denied")})
	assert.Contains(t, m.View(), "permission denied")

	m.Update(clearMsg{})
	m.Update(inputsDoneMsg{})
	assert.Equal(t, "All inputs replayed", m.successMsg)
}

func TestRunStopsWithContext(t *testing.T) {
	mgr := newTestManager(t, "a")

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error)
	close(errs)

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, mgr,
			WithRefresh(10*time.Millisecond),
			WithErrors(errs),
			WithLogger(logger.Discard),
			WithProgramOptions(tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutRenderer(), tea.WithoutSignalHandler()),
		)
	}()

	mgr.Update("a", &progress.Info{RequestID: "a", Status: status.Downloading, DownloadedBytes: 500})

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dashboard did not stop")
	}

	assert.True(t, mgr.AddListener(listenerID, func(tracker.Event) error { return nil }),
		"dashboard listener should be removed on exit")
}
