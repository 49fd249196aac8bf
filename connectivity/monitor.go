// ABOUTME: Connectivity monitor that turns raw online/offline signals into transition events
// ABOUTME: Listeners subscribe in pairs and are removed together by a single disposer
package connectivity

import (
	"sort"
	"sync"
)

type listener struct {
	onOnline  func()
	onOffline func()
}

// Monitor tracks whether the remote API is reachable. Only actual
// transitions are delivered to listeners; repeated signals for the current
// state are dropped.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	nextID    uint64
	listeners map[uint64]listener

	// emitMu serializes delivery so listeners observe transitions in order.
	emitMu sync.Mutex
}

func NewMonitor(initialOnline bool) *Monitor {
	return &Monitor{
		online:    initialOnline,
		listeners: make(map[uint64]listener),
	}
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records the current state and notifies listeners on a transition.
// Listeners run on the caller's goroutine, outside the state lock, and must
// not call SetOnline themselves.
func (m *Monitor) SetOnline(online bool) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	for _, l := range snapshot {
		if online && l.onOnline != nil {
			l.onOnline()
		}
		if !online && l.onOffline != nil {
			l.onOffline()
		}
	}
}

// Subscribe registers callbacks for the online and offline transitions.
// Either may be nil. The returned function removes both; calling it more
// than once is harmless.
func (m *Monitor) Subscribe(onOnline, onOffline func()) (dispose func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener{onOnline: onOnline, onOffline: onOffline}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// ListenerCount reports how many subscriptions are active.
func (m *Monitor) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// snapshotLocked returns listeners in subscription order.
func (m *Monitor) snapshotLocked() []listener {
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.listeners[id])
	}
	return out
}
