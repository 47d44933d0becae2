package transport

import (
	"context"
	"sync"
)

// Registry is the single source of truth mapping a caller-chosen request
// identifier to the cancel func of the in-flight request under that
// identifier. Identifiers are not globally unique: registering an identifier
// that is already in use cancels and replaces the previous request.
//
// Every mutation happens under one mutex and never spans an I/O call.
type Registry struct {
	mu      sync.Mutex
	nextGen uint64
	entries map[string]registryEntry
}

type registryEntry struct {
	cancel     context.CancelFunc
	generation uint64
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register stores cancel under id, cancelling any request already registered
// there. The returned generation identifies this registration; a later
// Release with a stale generation is ignored, which suppresses completions
// from a replaced request.
func (r *Registry) Register(id string, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	previous, exists := r.entries[id]
	r.nextGen++
	generation := r.nextGen
	r.entries[id] = registryEntry{cancel: cancel, generation: generation}
	r.mu.Unlock()

	if exists && previous.cancel != nil {
		previous.cancel()
	}
	return generation
}

// Release removes the entry for id if it still belongs to generation and
// reports whether it did. A false return means the request was cancelled or
// replaced while in flight and its completion must not be delivered.
func (r *Registry) Release(id string, generation uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists || entry.generation != generation {
		return false
	}
	delete(r.entries, id)
	return true
}

// Cancel cancels and removes the request registered under id. Cancelling an
// absent identifier is a no-op.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	entry, exists := r.entries[id]
	if exists {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if exists && entry.cancel != nil {
		entry.cancel()
	}
}

// CancelAll cancels and clears every registered request. Used on teardown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.entries))
	for _, entry := range r.entries {
		if entry.cancel != nil {
			cancels = append(cancels, entry.cancel)
		}
	}
	r.entries = make(map[string]registryEntry)
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Len reports the number of in-flight registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
