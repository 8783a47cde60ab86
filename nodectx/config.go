// Package nodectx wires every component into one explicit value, replacing
// the global singletons spec.md §9 flags in the distilled design ("Global
// singletons in the source...re-architect as an explicit NodeContext value
// threaded through components"). Grounded on node/service.go's
// ServiceContext/Service construct-then-start shape, trimmed from a
// reflect-based service registry down to a flat struct since this node has
// a fixed, known component set rather than pluggable services.
package nodectx

import (
	"fmt"

	"github.com/solidusnet/solidus/chainparams"
	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/eventbus"
	"github.com/solidusnet/solidus/rpc"
)

// Config is the node's on-disk configuration (spec.md §6 Config), loadable
// from TOML via github.com/naoina/toml, matching the field-name-preserving
// decoder settings the teacher's cmd/ranger/config.go sets up.
type Config struct {
	Network    string
	DataDir    string
	PrivateKey string // hex-encoded; if empty a fresh key is generated at startup (not persisted)
	Host       string
	Port       int
	PeerType   string
	MaxPeers   int
	PoolDiff   int64

	TLS   *rpc.TLSConfig
	Kafka *eventbus.KafkaConfig

	SeedPeers []string
}

// DefaultConfig mirrors node/defaults.go's DefaultConfig package var, the
// teacher's pattern for a ready-to-run baseline overridden by flags/TOML.
var DefaultConfig = Config{
	Network:  "mainnet",
	Host:     "0.0.0.0",
	Port:     8080,
	PeerType: "user",
	MaxPeers: 64,
	PoolDiff: 1,
}

func (c Config) network() chainparams.Network { return chainparams.ParseNetwork(c.Network) }

func (c Config) role() coretypes.Role { return coretypes.ParseRole(c.PeerType) }

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("nodectx: invalid port %d", c.Port)
	}
	if c.MaxPeers < 0 {
		return fmt.Errorf("nodectx: max_peers must not be negative")
	}
	return nil
}
