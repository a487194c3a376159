package repository

import (
	"sync"
	"sync/atomic"

	"github.com/NamanBalaji/dltrack/internal/errors"
	"github.com/NamanBalaji/dltrack/internal/logger"
	"github.com/NamanBalaji/dltrack/internal/tracker"
)

// lifetime identifies the terminal event of one download lifetime.
type lifetime struct {
	requestID string
	at        int64
}

// Journal persists an Entry for every download that reaches a terminal
// status. It only looks at the events it receives, so it is safe to attach
// synchronously or behind a tracker.Dispatcher.
//
// A dispatcher may drop non-terminal events. To keep Entry.Events exact in
// that setup, attach Counter synchronously next to the dispatched Listener.
type Journal struct {
	repo Repository
	log  tracker.Logger

	mu       sync.Mutex
	external bool
	counts   map[string]int
	finals   map[lifetime]int

	saved atomic.Int64
}

// NewJournal creates a journal writing to repo.
func NewJournal(repo Repository, log tracker.Logger) *Journal {
	if log == nil {
		log = logger.Default()
	}

	return &Journal{
		repo:   repo,
		log:    log,
		counts: make(map[string]int),
		finals: make(map[lifetime]int),
	}
}

// Listener returns the function to register with the manager.
func (j *Journal) Listener() tracker.Listener {
	return j.handle
}

// Counter returns a listener that only counts events. Once it is in use,
// Listener stops counting and takes the totals from it.
func (j *Journal) Counter() tracker.Listener {
	j.mu.Lock()
	j.external = true
	j.mu.Unlock()

	return j.count
}

// Saved returns how many entries were written.
func (j *Journal) Saved() int64 {
	return j.saved.Load()
}

func (j *Journal) count(ev tracker.Event) error {
	j.mu.Lock()
	j.countLocked(ev)
	j.mu.Unlock()

	return nil
}

func (j *Journal) countLocked(ev tracker.Event) {
	if ev.Type == tracker.EventStarted {
		j.counts[ev.RequestID] = 0
	}
	j.counts[ev.RequestID]++

	if ev.Type.IsTerminal() {
		j.finals[lifetime{ev.RequestID, ev.Timestamp.UnixNano()}] = j.counts[ev.RequestID]
		delete(j.counts, ev.RequestID)
	}
}

func (j *Journal) handle(ev tracker.Event) error {
	terminal := ev.Type.IsTerminal()

	j.mu.Lock()
	if !j.external {
		j.countLocked(ev)
	}

	var events int
	if terminal {
		key := lifetime{ev.RequestID, ev.Timestamp.UnixNano()}
		events = j.finals[key]
		delete(j.finals, key)
	}
	j.mu.Unlock()

	if !terminal {
		return nil
	}

	entry, err := NewEntry(ev.Progress, events, ev.Timestamp)
	if err != nil {
		return errors.NewStorageError(err, ev.RequestID)
	}

	if err := j.repo.Save(entry); err != nil {
		return errors.NewStorageError(err, ev.RequestID)
	}

	j.saved.Add(1)
	j.log.Debugf("journaled %s download %s as %s", ev.Type, ev.RequestID, entry.ID)

	return nil
}
