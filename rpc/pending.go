package rpc

import "sync"

// pendingKey identifies one in-flight request awaiting a response on a
// single stream (spec.md §4.7: "Per-stream pending-request table: keyed
// (method, id) for requests that expect a response").
type pendingKey struct {
	method string
	id     string
}

// PendingTable tracks outstanding request/response pairs for one stream.
// Grounded on node/sc/bridgepeer.go's per-peer queue fields, generalized
// from fixed broadcast channels to a keyed wait table since spec.md's RPCs
// are request/response rather than fire-and-forget gossip.
type PendingTable struct {
	mu      sync.Mutex
	waiters map[pendingKey]chan Message
}

// NewPendingTable returns an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{waiters: make(map[pendingKey]chan Message)}
}

// Await registers a waiter for method/id's eventual response and returns the
// channel the caller should receive on. Only one waiter may be registered
// per (method, id) at a time.
func (t *PendingTable) Await(method, id string) <-chan Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Message, 1)
	t.waiters[pendingKey{method, id}] = ch
	return ch
}

// Resolve delivers a response to its waiter, if one is registered, and
// removes the entry. Returns false if nothing was waiting (late or
// unsolicited response).
func (t *PendingTable) Resolve(method, id string, resp Message) bool {
	t.mu.Lock()
	ch, ok := t.waiters[pendingKey{method, id}]
	if ok {
		delete(t.waiters, pendingKey{method, id})
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- resp
	close(ch)
	return true
}

// Cancel drops a waiter without delivering a response, used when its stream
// closes mid-request (spec.md §5: "Closing a stream cancels all in-flight
// RPCs for that stream and purges its entries from pending tables").
func (t *PendingTable) Cancel(method, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.waiters[pendingKey{method, id}]; ok {
		delete(t.waiters, pendingKey{method, id})
		close(ch)
	}
}

// CancelAll drops every waiter on this stream, used when the stream itself
// closes.
func (t *PendingTable) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, ch := range t.waiters {
		delete(t.waiters, k)
		close(ch)
	}
}

// Len reports the number of outstanding waiters, mainly for tests.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}
