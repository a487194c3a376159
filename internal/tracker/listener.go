package tracker

import (
	"fmt"

	"github.com/NamanBalaji/dltrack/internal/errors"
)

// Listener receives every event the manager emits. A returned error is
// logged and does not stop delivery to the remaining listeners.
type Listener func(Event) error

type listenerEntry struct {
	id string
	fn Listener
}

// AddListener registers fn under id. Listeners are called in the order they
// were added. Adding an id twice is a no-op; it reports whether fn was added.
func (m *Manager) AddListener(id string, fn Listener) bool {
	if fn == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.listeners {
		if l.id == id {
			m.log.Debugf("progress event listener %q already registered", id)
			return false
		}
	}

	m.listeners = append(m.listeners, listenerEntry{id: id, fn: fn})
	m.log.Infof("added progress event listener: %s", id)

	return true
}

// RemoveListener unregisters the listener with the given id.
func (m *Manager) RemoveListener(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, l := range m.listeners {
		if l.id == id {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			m.log.Infof("removed progress event listener: %s", id)

			return true
		}
	}

	m.log.Debugf("progress event listener %q not registered", id)

	return false
}

// dispatchLocked delivers ev to every listener. Each listener gets its own
// copy of the snapshot.
func (m *Manager) dispatchLocked(ev Event) {
	for _, l := range m.listeners {
		m.notify(l, ev)
	}
}

func (m *Manager) notify(l listenerEntry, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("error in progress event listener: %v",
				errors.NewListenerError(fmt.Errorf("panic: %v", r), l.id))
		}
	}()

	ev.Progress = ev.Progress.Clone()

	if err := l.fn(ev); err != nil {
		m.log.Errorf("error in progress event listener: %v", errors.NewListenerError(err, l.id))
	}
}
