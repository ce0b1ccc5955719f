package runtime

import (
	"sync"

	"github.com/google/uuid"

	"chat-relay/contract"
)

// Registry is the set of currently open peer connections, shared between the
// per-connection lifecycle goroutines and the broadcast path. It is the only
// piece of mutable shared state in the relay; a single lock guards every
// operation and is never held across network I/O.
type Registry struct {
	mu    sync.RWMutex
	sinks map[contract.HandleID]contract.FrameSink
	ids   map[contract.FrameSink]contract.HandleID
}

func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[contract.HandleID]contract.FrameSink),
		ids:   make(map[contract.FrameSink]contract.HandleID),
	}
}

// Add registers a peer and mints a fresh HandleID for it. Adding a peer that
// is already registered is idempotent and returns the existing ID, so a
// double Add never produces a duplicate registry entry.
func (r *Registry) Add(sink contract.FrameSink) contract.HandleID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[sink]; ok {
		return id
	}
	id := contract.HandleID(uuid.NewString())
	r.sinks[id] = sink
	r.ids[sink] = id
	return id
}

// Remove deletes the handle if present, no-op otherwise.
func (r *Registry) Remove(id contract.HandleID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sink, ok := r.sinks[id]; ok {
		delete(r.ids, sink)
		delete(r.sinks, id)
	}
}

// Snapshot returns a point-in-time copy of the current membership, safe to
// iterate while Add and Remove proceed concurrently on the live set. Peers
// added after the snapshot was taken are simply not part of it.
func (r *Registry) Snapshot() []contract.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]contract.Handle, 0, len(r.sinks))
	for id, sink := range r.sinks {
		handles = append(handles, contract.Handle{ID: id, Sink: sink})
	}
	return handles
}

// Clear empties the registry and returns the peers that were registered,
// so the caller can close them outside the lock.
func (r *Registry) Clear() []contract.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]contract.Handle, 0, len(r.sinks))
	for id, sink := range r.sinks {
		handles = append(handles, contract.Handle{ID: id, Sink: sink})
	}
	r.sinks = make(map[contract.HandleID]contract.FrameSink)
	r.ids = make(map[contract.FrameSink]contract.HandleID)
	return handles
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
