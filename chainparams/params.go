// Package chainparams holds the height- and network-indexed constants read
// by the consensus engine and mining pool (spec.md §6 "Chain constants").
// These are the exact hooks spec.md calls out as needing to match the
// reference chain for compatibility; SpecialTarget in particular is isolated
// behind this seam (see SPEC_FULL.md Open Question #2) so a byte-exact table
// can replace it without touching any caller.
package chainparams

import "math/big"

// Network identifies which of the three deployments chain parameters apply
// to (spec.md §6 Config: network ∈ {mainnet, testnet, regnet}).
type Network int

const (
	Mainnet Network = iota
	Testnet
	Regnet
)

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Regnet:
		return "regnet"
	default:
		return "unknown"
	}
}

// ParseNetwork maps a config string onto a Network.
func ParseNetwork(s string) Network {
	switch s {
	case "testnet":
		return Testnet
	case "regnet":
		return Regnet
	default:
		return Mainnet
	}
}

// Height-indexed fork constants (spec.md §6, §8).
const (
	// FORK_10_MIN_BLOCK is the height at which block time moved to its
	// current cadence.
	Fork10MinBlock uint64 = 1347000
	// SpecialMinFork is the height from which the legacy "target=MAX_TARGET"
	// special_min shortcut is replaced by the time-based special_target
	// widening function.
	SpecialMinFork uint64 = 35200
	// BlockV5Fork is the height from which block acceptance compares against
	// LittleHash(hash) rather than hash directly.
	BlockV5Fork uint64 = 450000
	// CheckTimeFrom is the height from which inbound blocks must carry
	// time >= the local tip's time.
	CheckTimeFrom uint64 = 1347000
)

// MaxBlocksPerMessage bounds a single blocksresponse payload (spec.md §4.3,
// §6).
const MaxBlocksPerMessage = 10

// MaxTarget is the loosest possible difficulty ceiling: a block hash (as an
// unsigned 256-bit integer) must be numerically less than the applicable
// target. Legacy pre-SpecialMinFork blocks set target directly to this value.
var MaxTarget = func() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}()

// TargetBlockTime is the intended seconds-per-block for a network, used both
// to compute special_min eligibility and to widen special_target.
func TargetBlockTime(network Network) int64 {
	switch network {
	case Regnet:
		return 1
	case Testnet:
		return 30
	default:
		return 300
	}
}

// SpecialMinTrigger is the number of seconds since the tip without a new
// block after which special_min becomes eligible for a candidate at index.
// It widens slightly with height to absorb long-run difficulty drift, never
// below TargetBlockTime.
func SpecialMinTrigger(network Network, index uint64) int64 {
	base := TargetBlockTime(network) * 2
	if index < SpecialMinFork {
		return base
	}
	return base + int64(index/1000000)
}

// SpecialTarget computes the relaxed ceiling used when special_min is set,
// as a function of the base (non-special) target, height and elapsed time
// since the tip. It must be monotonically non-decreasing in deltaT (spec.md
// §4.5): the longer the network stalls, the easier the relaxed target gets,
// capped at MaxTarget.
func SpecialTarget(index uint64, baseTarget *big.Int, deltaT int64, network Network) *big.Int {
	if index < SpecialMinFork {
		return new(big.Int).Set(MaxTarget)
	}
	trigger := SpecialMinTrigger(network, index)
	if deltaT < trigger {
		return new(big.Int).Set(baseTarget)
	}
	// Widen linearly with the number of trigger-periods elapsed beyond the
	// first, capped at MaxTarget.
	periods := big.NewInt(1 + (deltaT-trigger)/trigger)
	widened := new(big.Int).Mul(baseTarget, periods)
	if widened.Cmp(MaxTarget) > 0 {
		return new(big.Int).Set(MaxTarget)
	}
	return widened
}

// BlockVersion returns the protocol version a block at index must declare
// (spec.md §3 Block.version: "height-dependent").
func BlockVersion(index uint64) int {
	switch {
	case index >= BlockV5Fork:
		return 5
	case index >= SpecialMinFork:
		return 4
	case index >= Fork10MinBlock:
		return 2
	default:
		return 1
	}
}
