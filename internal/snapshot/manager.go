package snapshot

import (
	"sync/atomic"
)

// Manager holds the active snapshot behind an atomic swap so concurrent
// compilations always observe a complete, immutable snapshot. Reload
// replaces the whole value; nothing mutates a published snapshot in place.
type Manager struct {
	active atomic.Pointer[Snapshot]
}

// NewManager creates a manager with an optional initial snapshot.
func NewManager(initial *Snapshot) *Manager {
	m := &Manager{}
	if initial != nil {
		m.active.Store(initial)
	}
	return m
}

// Current returns the active snapshot, or nil when none has been loaded.
func (m *Manager) Current() *Snapshot {
	return m.active.Load()
}

// Swap atomically replaces the active snapshot and returns the previous one.
func (m *Manager) Swap(next *Snapshot) *Snapshot {
	return m.active.Swap(next)
}
