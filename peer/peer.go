// Package peer is the overlay of spec.md §4.6: the four-tier role hierarchy
// (Seed, SeedGateway, ServiceProvider, User), its per-role connection caps,
// deterministic gateway selection, route-peer bridging, capacity-bounded
// admission, and the authentication handshake. Grounded on
// node/sc/bridgepeer.go's BridgePeer/known-tx/known-block set shape and
// networks/p2p/discover/table.go's bucket-index arithmetic.
package peer

import (
	"sync"

	set "gopkg.in/fatih/set.v0"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/log"
)

var plog = log.NewModuleLogger("peer")

const (
	maxKnownTxs    = 32768
	maxKnownBlocks = 1024
)

// typeLimit[self][other] is the maximum number of simultaneous connections
// self accepts/opens to a peer of role other (spec.md §4.6 "type_limit(other_class)"),
// grounded on core/peer.py's per-role type_limit classmethods.
var typeLimit = [coretypes.RoleCount][coretypes.RoleCount]int{
	coretypes.RoleSeed: {
		coretypes.RoleSeed:            100000,
		coretypes.RoleSeedGateway:     1,
		coretypes.RoleServiceProvider: 0,
		coretypes.RoleUser:            0,
	},
	coretypes.RoleSeedGateway: {
		coretypes.RoleSeed:            1,
		coretypes.RoleSeedGateway:     0,
		coretypes.RoleServiceProvider: 100000,
		coretypes.RoleUser:            0,
	},
	coretypes.RoleServiceProvider: {
		coretypes.RoleSeed:            0,
		coretypes.RoleSeedGateway:     1,
		coretypes.RoleServiceProvider: 0,
		coretypes.RoleUser:            100000,
	},
	coretypes.RoleUser: {
		coretypes.RoleSeed:            0,
		coretypes.RoleSeedGateway:     0,
		coretypes.RoleServiceProvider: 1,
		coretypes.RoleUser:            0,
	},
}

// TypeLimit returns the per-role connection cap self declares for peers of
// role other (spec.md §4.6). max overrides the Seed↔Seed cap when self is a
// Seed and max > 0, matching core/peer.py's "config.max_peers or 100000".
func TypeLimit(self, other coretypes.Role, maxPeers int) int {
	if self == coretypes.RoleSeed && other == coretypes.RoleSeed && maxPeers > 0 {
		return maxPeers
	}
	return typeLimit[self][other]
}

// Connection is one live overlay link: the remote peer's declared identity
// plus the known-tx/known-block dedup sets that keep gossip from looping
// back to its source (spec.md §3 Stream, grounded on bridgepeer.go's
// knownTxs/knownBlocks *set.Set fields).
type Connection struct {
	Peer         coretypes.Peer
	Inbound      bool
	KnownTxs     *set.Set
	KnownBlocks  *set.Set
	LastActivity int64
}

// NewConnection wraps a peer as a freshly registered connection.
func NewConnection(p coretypes.Peer, inbound bool, now int64) *Connection {
	return &Connection{
		Peer:         p,
		Inbound:      inbound,
		KnownTxs:     set.New(),
		KnownBlocks:  set.New(),
		LastActivity: now,
	}
}

// MarkKnownTx records that this peer has already seen tx, capping the set at
// maxKnownTxs per bridgepeer.go's DOS-prevention comment.
func (c *Connection) MarkKnownTx(id string) {
	if c.KnownTxs.Size() >= maxKnownTxs {
		c.KnownTxs.Clear()
	}
	c.KnownTxs.Add(id)
}

// MarkKnownBlock records that this peer has already seen a block hash.
func (c *Connection) MarkKnownBlock(hash string) {
	if c.KnownBlocks.Size() >= maxKnownBlocks {
		c.KnownBlocks.Clear()
	}
	c.KnownBlocks.Add(hash)
}

// Table is the role-indexed connection registry every running node keeps:
// one inbound and one outbound map per role, plus pending (handshake not yet
// complete) counters used by capacity admission (spec.md §9: "fixed-size
// array indexed by the role enum").
type Table struct {
	mu sync.RWMutex

	inbound  [coretypes.RoleCount]map[string]*Connection
	outbound [coretypes.RoleCount]map[string]*Connection

	inboundPending  [coretypes.RoleCount]int
	outboundPending [coretypes.RoleCount]int
}

// NewTable returns an empty connection table.
func NewTable() *Table {
	t := &Table{}
	for r := 0; r < coretypes.RoleCount; r++ {
		t.inbound[r] = make(map[string]*Connection)
		t.outbound[r] = make(map[string]*Connection)
	}
	return t
}

// BeginPending records a handshake in progress for capacity accounting.
func (t *Table) BeginPending(role coretypes.Role, inbound bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if inbound {
		t.inboundPending[role]++
	} else {
		t.outboundPending[role]++
	}
}

// EndPending releases a handshake's pending slot, whether it succeeded or
// not. Register does not release the slot; the caller that began the
// handshake calls EndPending once it ends.
func (t *Table) EndPending(role coretypes.Role, inbound bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if inbound {
		if t.inboundPending[role] > 0 {
			t.inboundPending[role]--
		}
	} else {
		if t.outboundPending[role] > 0 {
			t.outboundPending[role]--
		}
	}
}

// Register adds a fully authenticated connection to its role's table.
func (t *Table) Register(c *Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c.Inbound {
		t.inbound[c.Peer.Role][c.Peer.RID] = c
	} else {
		t.outbound[c.Peer.Role][c.Peer.RID] = c
	}
}

// Unregister removes a connection from every role table it could be in,
// idempotently (spec.md §5: "removal is idempotent across all four
// role-indexed tables").
func (t *Table) Unregister(rid string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for r := 0; r < coretypes.RoleCount; r++ {
		delete(t.inbound[r], rid)
		delete(t.outbound[r], rid)
	}
}

// InboundCount returns the number of fully registered inbound connections of
// the given role.
func (t *Table) InboundCount(role coretypes.Role) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.inbound[role])
}

// InboundStreams returns every registered inbound connection of a role, used
// by route-peer selection to find bridge candidates.
func (t *Table) InboundStreams(role coretypes.Role) []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Connection, 0, len(t.inbound[role]))
	for _, c := range t.inbound[role] {
		out = append(out, c)
	}
	return out
}

// OutboundStreams returns every registered outbound connection of a role.
func (t *Table) OutboundStreams(role coretypes.Role) []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Connection, 0, len(t.outbound[role]))
	for _, c := range t.outbound[role] {
		out = append(out, c)
	}
	return out
}

// ByRID looks up a registered connection (inbound or outbound) by peer RID.
func (t *Table) ByRID(role coretypes.Role, rid string) (*Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.inbound[role][rid]; ok {
		return c, true
	}
	if c, ok := t.outbound[role][rid]; ok {
		return c, true
	}
	return nil, false
}
