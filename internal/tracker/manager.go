package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/NamanBalaji/dltrack/internal/errors"
	"github.com/NamanBalaji/dltrack/internal/progress"
	"github.com/NamanBalaji/dltrack/internal/status"
)

var (
	// ErrEmptyRequestID is returned by Register for an empty id.
	ErrEmptyRequestID = errors.New("request id cannot be empty")
	// ErrAlreadyRegistered is returned by Register when the id is tracked
	// and has not reached a terminal status yet.
	ErrAlreadyRegistered = errors.New("download already registered")
)

// Manager tracks the progress of many downloads, keeps aggregated
// statistics, and notifies listeners of every change.
//
// All state is guarded by one mutex. Listeners run synchronously while it is
// held, so a listener must not call back into the Manager; wrap it in a
// Dispatcher if it needs to.
type Manager struct {
	mu sync.Mutex

	opts  Options
	clock Clock
	log   Logger

	tracked map[string]*progress.Info
	history map[string][]*progress.Info
	speeds  map[string]*speedRing
	stats   Statistics

	listeners []listenerEntry
}

// New creates a Manager with a fresh session.
func New(opts ...Option) *Manager {
	m := &Manager{
		opts:    DefaultOptions(),
		clock:   SystemClock{},
		log:     defaultLogger(),
		tracked: make(map[string]*progress.Info),
		history: make(map[string][]*progress.Info),
		speeds:  make(map[string]*speedRing),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.stats = newStatistics(m.clock.Now())
	m.log.Infof("progress manager initialized")

	return m
}

// Register starts tracking id. A nil initial snapshot means Pending.
// An id still in progress is rejected; an id that already finished starts a
// new lifetime. An initial snapshot that fails Validate is rejected.
// A snapshot that is already terminal is counted as finished right away and
// never as active.
func (m *Manager) Register(id string, initial *progress.Info) error {
	if id == "" {
		return ErrEmptyRequestID
	}

	if initial != nil {
		if err := initial.Validate(); err != nil {
			m.log.Warnf("rejecting registration of %s: %v", id, err)
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.tracked[id]; ok && !cur.Status.IsTerminal() {
		m.log.Warnf("download %s is already registered with status %s", id, cur.Status)
		return ErrAlreadyRegistered
	}

	now := m.clock.Now()

	var info *progress.Info
	if initial == nil {
		info = &progress.Info{RequestID: id, Status: status.Pending, UpdatedAt: now}
	} else {
		info = initial.Clone()
		if info.RequestID == "" {
			info.RequestID = id
		}
	}

	m.tracked[id] = info
	m.history[id] = []*progress.Info{info}
	delete(m.speeds, id)

	m.stats.TotalDownloads++
	if !info.Status.IsTerminal() {
		m.stats.ActiveDownloads++
	}
	m.stats.aggregate(m.tracked, now)

	m.dispatchLocked(Event{
		Type:      EventStarted,
		RequestID: id,
		Progress:  info,
		Timestamp: now,
	})

	if info.Status.IsTerminal() {
		m.finishedOnRegisterLocked(id, info.Status)
	}

	m.log.Infof("registered progress tracking for: %s", id)

	return nil
}

// Update records a new snapshot for id. Updates for ids that are not tracked
// and snapshots that fail Validate are logged and ignored. The manager keeps
// its own copy of info.
func (m *Manager) Update(id string, info *progress.Info) {
	if info == nil {
		m.log.Warnf("ignoring nil progress for download: %s", id)
		return
	}

	if err := info.Validate(); err != nil {
		m.log.Warnf("ignoring invalid progress for download %s: %v", id, err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.tracked[id]
	if !ok {
		m.log.Warnf("received progress for unregistered download: %s", id)
		return
	}

	now := m.clock.Now()

	cur := info.Clone()
	if cur.RequestID == "" {
		cur.RequestID = id
	}

	m.tracked[id] = cur
	m.history[id] = append(m.history[id], cur)

	m.trackSpeedLocked(id, cur, now)
	m.stats.aggregate(m.tracked, now)

	eventType := m.opts.classify(prev, cur)

	m.dispatchLocked(Event{
		Type:      eventType,
		RequestID: id,
		Progress:  cur,
		Timestamp: now,
		Data:      diff(prev, cur),
	})

	if eventType.IsTerminal() {
		m.completeLocked(id, eventType)
	}
}

// trackSpeedLocked feeds the sample ring and writes the smoothed speed into cur.
func (m *Manager) trackSpeedLocked(id string, cur *progress.Info, now time.Time) {
	ring, ok := m.speeds[id]
	if !ok {
		ring = &speedRing{}
		m.speeds[id] = ring
	}

	ring.add(now, cur.DownloadedBytes, m.opts.SpeedWindow, m.opts.MaxSpeedSamples)

	if calc, ok := ring.rate(); ok && ring.smooth(calc, m.opts.SmoothingThreshold) {
		cur.Speed = progress.Float64(calc)
		return
	}

	if cur.Speed == nil && ring.smoothed != nil {
		cur.Speed = progress.Float64(*ring.smoothed)
	}
}

func (m *Manager) completeLocked(id string, eventType EventType) {
	switch eventType {
	case EventCompleted:
		m.stats.CompletedDownloads++
	case EventFailed:
		m.stats.FailedDownloads++
	case EventCancelled:
		m.stats.CancelledDownloads++
	}

	if m.stats.ActiveDownloads > 0 {
		m.stats.ActiveDownloads--
	}

	delete(m.speeds, id)

	m.log.Infof("download finished with status %s: %s", eventType, id)
}

// finishedOnRegisterLocked counts a download registered in a terminal status.
// It was never counted as active, so only the outcome counter moves.
func (m *Manager) finishedOnRegisterLocked(id string, st status.Status) {
	switch st {
	case status.Completed:
		m.stats.CompletedDownloads++
	case status.Failed:
		m.stats.FailedDownloads++
	case status.Cancelled:
		m.stats.CancelledDownloads++
	}

	m.log.Infof("download registered already finished with status %s: %s", st, id)
}

// Progress returns a copy of the current snapshot for id.
func (m *Manager) Progress(id string) (*progress.Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.tracked[id]
	if !ok {
		return nil, false
	}

	return info.Clone(), true
}

// AllProgress returns copies of every tracked snapshot, keyed by id.
func (m *Manager) AllProgress() map[string]*progress.Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*progress.Info, len(m.tracked))
	for id, info := range m.tracked {
		out[id] = info.Clone()
	}

	return out
}

// History returns copies of every snapshot recorded for id, oldest first.
func (m *Manager) History(id string) []*progress.Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.history[id]
	out := make([]*progress.Info, len(entries))
	for i, info := range entries {
		out[i] = info.Clone()
	}

	return out
}

// Statistics returns a snapshot of the aggregated statistics.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.stats
}

// ActiveDownloadIDs returns the sorted ids whose status is not terminal.
func (m *Manager) ActiveDownloadIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.tracked))
	for id, info := range m.tracked {
		if !info.Status.IsTerminal() {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}

// Unregister stops tracking a finished download. Downloads still in progress
// are never removed. It reports whether id was removed.
func (m *Manager) Unregister(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.unregisterLocked(id)
	if removed {
		m.stats.aggregate(m.tracked, m.clock.Now())
	}

	return removed
}

func (m *Manager) unregisterLocked(id string) bool {
	info, ok := m.tracked[id]
	if !ok {
		return false
	}

	if !info.Status.IsTerminal() {
		m.log.Warnf("cannot unregister active download: %s", id)
		return false
	}

	delete(m.tracked, id)
	delete(m.speeds, id)

	m.log.Infof("unregistered progress tracking for: %s", id)

	return true
}

// CleanupCompleted unregisters every finished download and returns how many
// were removed.
func (m *Manager) CleanupCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, info := range m.tracked {
		if info.Status.IsTerminal() && m.unregisterLocked(id) {
			removed++
		}
	}

	if removed > 0 {
		m.stats.aggregate(m.tracked, m.clock.Now())
	}

	m.log.Infof("cleaned up %d completed downloads", removed)

	return removed
}

// ResetStatistics drops all tracked downloads and history and starts a new
// session. Listeners stay registered.
func (m *Manager) ResetStatistics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tracked = make(map[string]*progress.Info)
	m.history = make(map[string][]*progress.Info)
	m.speeds = make(map[string]*speedRing)
	m.stats = newStatistics(m.clock.Now())

	m.log.Infof("reset all progress statistics and tracking data")
}

// Close releases the tracked state.
func (m *Manager) Close() {
	m.ResetStatistics()
	m.log.Infof("progress manager cleanup completed")
}
