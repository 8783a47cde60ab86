package scheduler

import (
	"time"

	"github.com/solidusnet/solidus/chainparams"
)

// Default intervals for the node's periodic tasks (spec.md §5).
const (
	ConsensusSyncInterval   = 30 * time.Second
	PeerDiscoveryInterval   = 3 * time.Second
	StatusLogInterval       = 30 * time.Second
	BlockCheckerInterval    = 1 * time.Second
	CacheValidatorInterval  = 30 * time.Second
	PoolPayerInterval       = 120 * time.Second
	StreamIdleSweepInterval = 600 * time.Second
)

// StreamIdleTimeout is how long a connection may go without activity before
// the health checker unregisters it from the peer table; the stream itself
// is not closed by the sweep.
const StreamIdleTimeout = 600 * time.Second

// Hooks bundles the callbacks the default task set invokes; nodectx wires
// each to the concrete component responsible (consensus engine, peer table,
// mining pool, ...).
type Hooks struct {
	ConsensusSync  func()
	PeerDiscovery  func()
	StatusLog      func()
	BlockChecker   func()
	CacheValidator func()
	PoolPayer      func()
	StreamSweep    func()
}

// RegisterDefaultTasks wires the standard periodic task set onto s,
// skipping peer discovery on regnet (spec.md §5: "peer discovery: 3s (off
// in regnet)"). Any Hooks field left nil is simply not registered, letting
// callers (mainly tests) wire a subset.
func RegisterDefaultTasks(s *Scheduler, network chainparams.Network, hooks Hooks) {
	add := func(name string, interval time.Duration, fn func()) {
		if fn == nil {
			return
		}
		s.Register(&Task{Name: name, Interval: interval, Fn: fn})
	}

	add("consensus-sync", ConsensusSyncInterval, hooks.ConsensusSync)
	if network != chainparams.Regnet {
		add("peer-discovery", PeerDiscoveryInterval, hooks.PeerDiscovery)
	}
	add("status-log", StatusLogInterval, hooks.StatusLog)
	add("block-checker", BlockCheckerInterval, hooks.BlockChecker)
	add("cache-validator", CacheValidatorInterval, hooks.CacheValidator)
	add("pool-payer", PoolPayerInterval, hooks.PoolPayer)
	add("stream-idle-sweep", StreamIdleSweepInterval, hooks.StreamSweep)
}
