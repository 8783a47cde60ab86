package scheduler

import (
	"time"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/peer"
)

// HealthChecker sweeps a peer.Table for connections that have gone idle
// beyond StreamIdleTimeout and unregisters them, grounded on
// original_source/yadacoin/core/health.py's HealthItem/TCPServerHealth/
// TCPClientHealth pattern (last_activity vs. a fixed timeout, removal from
// every tracked collection). The Python keeps one HealthItem per transport
// kind; this collapses them into one sweep over the role-indexed table since
// peer.Table already tracks last activity per connection regardless of role
// or direction.
type HealthChecker struct {
	table *peer.Table
}

// NewHealthChecker returns a checker bound to table.
func NewHealthChecker(table *peer.Table) *HealthChecker {
	return &HealthChecker{table: table}
}

// Sweep unregisters every connection idle beyond StreamIdleTimeout as of
// now from the peer table, returning how many were removed. It does not
// close the underlying streams.
func (h *HealthChecker) Sweep(now int64) int {
	limit := int64(StreamIdleTimeout / time.Second)
	removed := 0
	for r := 0; r < coretypes.RoleCount; r++ {
		role := coretypes.Role(r)
		for _, c := range h.table.InboundStreams(role) {
			if now-c.LastActivity > limit {
				h.table.Unregister(c.Peer.RID)
				removed++
			}
		}
		for _, c := range h.table.OutboundStreams(role) {
			if now-c.LastActivity > limit {
				h.table.Unregister(c.Peer.RID)
				removed++
			}
		}
	}
	if removed > 0 {
		slog.Debug("health sweep removed idle connections", "count", removed)
	}
	return removed
}
