package peer

import (
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/solidusnet/solidus/coretypes"
)

// OutboundIgnoreCooldown is how long a peer refused for capacity is held in
// the outbound-ignore set before becoming eligible again (spec.md §4.6:
// "Outbound-ignore holds peers refused for capacity for a cool-down window
// (30 s)").
const OutboundIgnoreCooldown = 30 * time.Second

// OutboundIgnore is the cooldown cache of recently capacity-refused peer
// identities, keyed by username_signature as core/peer.py's
// outbound_ignore[role_name] sets are. Grounded on common/cache.go's
// golang-lru wrapping.
type OutboundIgnore struct {
	cache *lru.Cache
}

// NewOutboundIgnore builds a bounded cooldown cache.
func NewOutboundIgnore(size int) *OutboundIgnore {
	c, err := lru.New(size)
	if err != nil {
		// size <= 0 is a programmer error; fall back to a minimal cache
		// rather than panicking a running node.
		c, _ = lru.New(1)
	}
	return &OutboundIgnore{cache: c}
}

// Hold marks usernameSignature as refused as of now.
func (o *OutboundIgnore) Hold(usernameSignature string, now time.Time) {
	o.cache.Add(usernameSignature, now.Add(OutboundIgnoreCooldown))
}

// Contains reports whether usernameSignature is still within its cooldown.
func (o *OutboundIgnore) Contains(usernameSignature string, now time.Time) bool {
	v, ok := o.cache.Get(usernameSignature)
	if !ok {
		return false
	}
	expiry := v.(time.Time)
	if now.After(expiry) {
		o.cache.Remove(usernameSignature)
		return false
	}
	return true
}

// AdmitConnect applies spec.md §4.6's capacity admission rule: if
// inbound_pending + inbound_streams for peerRole already meets or exceeds
// the caller's declared cap, the connection must be refused with a
// `capacity` reply and closed.
func (t *Table) AdmitConnect(selfRole, peerRole coretypes.Role, maxPeers int) bool {
	t.mu.RLock()
	inboundStreams := len(t.inbound[peerRole])
	pending := t.inboundPending[peerRole]
	t.mu.RUnlock()

	limit := TypeLimit(selfRole, peerRole, maxPeers)
	return inboundStreams+pending < limit
}
