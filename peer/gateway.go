package peer

import (
	"crypto/sha256"
	"math/big"
	"time"

	"github.com/solidusnet/solidus/coretypes"
)

// GatewayEpoch and GatewayTTL parameterize the time-rotated bucket formula
// (spec.md §4.6: "t = floor((now - EPOCH)/TTL) + 1"). Values are taken
// directly from core/peer.py's Peer.epoch/Peer.ttl class attributes so
// gateway selection rotates on the same schedule as the reference chain.
const (
	GatewayEpoch int64 = 1602914018
	GatewayTTL   int64 = 259200 // seconds (3 days)
)

// SelectGateway computes the deterministic SeedGateway a ServiceProvider (or
// Group) with the given username_signature must use at time now, skipping
// any gateway still held in outboundIgnore, per spec.md §4.6's formula:
//
//	h = sha256(username_signature), t = floor((now-EPOCH)/TTL)+1,
//	i = (int(h,16)*t) mod N
//
// gateways must be in a stable order shared by every node computing this
// (e.g. sorted by username_signature) for the selection to agree
// network-wide. Returns false if no eligible gateway exists.
func SelectGateway(usernameSignature string, gateways []coretypes.Peer, ignore *OutboundIgnore, now time.Time) (coretypes.Peer, bool) {
	n := len(gateways)
	if n == 0 {
		return coretypes.Peer{}, false
	}

	sum := sha256.Sum256([]byte(usernameSignature))
	h := new(big.Int).SetBytes(sum[:])

	t := (now.Unix()-GatewayEpoch)/GatewayTTL + 1
	i := new(big.Int).Mod(new(big.Int).Mul(h, big.NewInt(t)), big.NewInt(int64(n)))
	start := int(i.Int64())

	for offset := 0; offset < n; offset++ {
		idx := (start + offset) % n
		candidate := gateways[idx]
		if ignore == nil || !ignore.Contains(candidate.Identity.UsernameSignature, now) {
			return candidate, true
		}
	}
	return coretypes.Peer{}, false
}
