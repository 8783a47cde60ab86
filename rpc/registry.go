package rpc

import "sync"

// StreamRegistry maps a peer's RID to its live Stream, letting any
// component (consensus engine, mining pool, scheduler) address a specific
// peer without owning the transport itself. Grounded on the same
// role-indexed-table idiom peer.Table uses for connections, scoped down to
// RID lookup since the transport layer does not need role partitioning.
type StreamRegistry struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewStreamRegistry returns an empty registry.
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{streams: make(map[string]*Stream)}
}

// Put registers (or replaces) the stream for a peer RID.
func (r *StreamRegistry) Put(rid string, s *Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[rid] = s
}

// Remove drops a peer's stream, if present.
func (r *StreamRegistry) Remove(rid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, rid)
}

// Get returns a peer's stream, if registered.
func (r *StreamRegistry) Get(rid string) (*Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[rid]
	return s, ok
}

// All returns a snapshot of every registered stream, used by the newblock
// broadcaster.
func (r *StreamRegistry) All() []*Stream {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Stream, 0, len(r.streams))
	for _, s := range r.streams {
		out = append(out, s)
	}
	return out
}

// Len reports how many streams are currently registered.
func (r *StreamRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.streams)
}
