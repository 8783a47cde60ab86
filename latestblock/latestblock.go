// Package latestblock is the singleton current-tip cache with change
// notification (spec.md §2, §4.3: "updates the latest-block cache"). It
// replaces the teacher's event.TypeMux/chainHeadCh subscription pattern
// (work/worker.go) with a small broadcast registry, since event.TypeMux
// itself was not part of the retrieved teacher sources.
package latestblock

import (
	"sync"

	"github.com/solidusnet/solidus/coretypes"
)

// Cache holds the current tip and notifies subscribers on change. One
// instance lives per NodeContext (spec.md §9).
type Cache struct {
	mu   sync.RWMutex
	tip  *coretypes.Block
	subs []chan coretypes.Block
}

// New returns an empty cache (no tip yet, i.e. the node has no blocks).
func New() *Cache {
	return &Cache{}
}

// Get returns the current tip, if any.
func (c *Cache) Get() (coretypes.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tip == nil {
		return coretypes.Block{}, false
	}
	return *c.tip, true
}

// Set updates the tip and notifies every subscriber with a non-blocking
// send (slow subscribers drop the notification rather than stalling the
// consensus engine that called Set - consistent with spec.md §5's
// no-suspension-during-mutation rule for the caller).
func (c *Cache) Set(b coretypes.Block) {
	c.mu.Lock()
	cp := b
	c.tip = &cp
	subs := make([]chan coretypes.Block, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- b:
		default:
		}
	}
}

// Subscribe registers a channel that receives every future Set call. The
// mining pool uses this to trigger refresh() on tip change (spec.md §4.5).
func (c *Cache) Subscribe() <-chan coretypes.Block {
	ch := make(chan coretypes.Block, 1)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}
