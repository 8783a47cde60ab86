package rpc

import "sync"

// retryKey is spec.md §4.7's retry table key: "(peer_rid, method,
// discriminator)". discriminator disambiguates multiple in-flight sends of
// the same method to the same peer (e.g. a block hash for newblock).
type retryKey struct {
	peerRID       string
	method        string
	discriminator string
}

type retryEntry struct {
	payload Message
	sentAt  int64
	resends int
}

// RetryTable is the at-least-once redelivery bookkeeping for protocol
// versions beyond 1 (spec.md §4.7: "the sender records the payload in a
// retry table ... and deletes it on receipt of the corresponding
// *_confirmed"). Grounded on the teacher's retry-by-map-with-sweep pattern
// generalized from node/sc's block/tx broadcast queues.
type RetryTable struct {
	mu      sync.Mutex
	entries map[retryKey]*retryEntry
}

// NewRetryTable returns an empty retry table.
func NewRetryTable() *RetryTable {
	return &RetryTable{entries: make(map[retryKey]*retryEntry)}
}

// Record stores a sent payload awaiting confirmation.
func (t *RetryTable) Record(peerRID, method, discriminator string, payload Message, now int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[retryKey{peerRID, method, discriminator}] = &retryEntry{payload: payload, sentAt: now}
}

// Confirm removes the entry matching a received *_confirmed ack. method is
// the base method name (ConfirmedSuffix is stripped by the caller before
// calling Confirm, since the key stores the base method).
func (t *RetryTable) Confirm(peerRID, method, discriminator string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, retryKey{peerRID, method, discriminator})
}

// PurgePeer drops every retry entry for a disconnected peer (spec.md §5:
// "removal is idempotent across all four role-indexed tables" extends to
// retry bookkeeping).
func (t *RetryTable) PurgePeer(peerRID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.entries {
		if k.peerRID == peerRID {
			delete(t.entries, k)
		}
	}
}

// DueForResend returns every entry sent before the given cutoff that has not
// been confirmed, up to retryCap resends each, for a periodic resend sweep.
func (t *RetryTable) DueForResend(cutoff int64, retryCap int) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	var due []Message
	for _, e := range t.entries {
		if e.sentAt <= cutoff && e.resends < retryCap {
			e.resends++
			due = append(due, e.payload)
		}
	}
	return due
}

// Len reports the number of outstanding retry entries, mainly for tests.
func (t *RetryTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
