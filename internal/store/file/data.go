package file

import (
	"sync"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// Data holds the seeded dataset plus everything written at runtime.
// Reloading the seed replaces the seeded sections and keeps runtime writes.
type Data struct {
	mu       sync.RWMutex
	seed     *Seed
	turns    []store.ConversationTurn
	logs     []store.NotificationLogEntry
	handoffs map[string]store.HandoffState
}

// NewData wraps seed for concurrent access.
func NewData(seed *Seed) *Data {
	if seed == nil {
		seed = &Seed{}
	}
	return &Data{seed: seed, handoffs: make(map[string]store.HandoffState)}
}

// Replace swaps the seeded dataset.
func (d *Data) Replace(seed *Seed) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seed = seed
}

// Logs returns a copy of the notification log entries written so far.
func (d *Data) Logs() []store.NotificationLogEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]store.NotificationLogEntry(nil), d.logs...)
}

// Handoff returns the handoff state for ownerKey, if any.
func (d *Data) Handoff(ownerKey string) (store.HandoffState, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st, ok := d.handoffs[ownerKey]
	return st, ok
}
