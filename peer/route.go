package peer

import "github.com/solidusnet/solidus/coretypes"

// SourceMarkerKey is the payload field each role stamps with its own
// identity the first time a message crosses a seed boundary, so the
// destination seed can recognize an in-flight bridge and avoid re-bridging
// it back (spec.md §4.6: "Cross-seed bridging uses a source_* marker in the
// payload to prevent loops"). Grounded on core/peer.py's per-role
// `source_property` ("source_seed", "source_seed_gateway", ...).
func SourceMarkerKey(role coretypes.Role) string {
	switch role {
	case coretypes.RoleSeed:
		return "source_seed"
	case coretypes.RoleSeedGateway:
		return "source_seed_gateway"
	case coretypes.RoleServiceProvider:
		return "source_service_provider"
	default:
		return "source_user"
	}
}

// RoutePeers yields the connections selfRole should forward a message
// originating from originRole to (spec.md §4.6: "get_route_peers(origin,
// payload) yields the set of streams to forward to"). payload carries the
// cross-seed bridging marker; its presence means this hop is already a
// bridge response and must not be re-bridged.
//
// The route table mirrors core/peer.py's per-role get_route_peers: a Seed
// forwards a SeedGateway's traffic to every other registered Seed (and vice
// versa for the return leg), a SeedGateway forwards between its Seed and its
// ServiceProviders, and a ServiceProvider forwards between its SeedGateway
// and its Users.
func (t *Table) RoutePeers(selfRole, originRole coretypes.Role, payload map[string]interface{}) []*Connection {
	_, bridging := payload[SourceMarkerKey(selfRole)]

	switch selfRole {
	case coretypes.RoleSeed:
		if originRole == coretypes.RoleSeedGateway {
			// Relay to every peer Seed, so each can reach its own
			// SeedGateways/ServiceProviders.
			return t.peersOfRole(coretypes.RoleSeed)
		}
		if originRole == coretypes.RoleSeed && !bridging {
			return t.InboundStreams(coretypes.RoleSeedGateway)
		}
	case coretypes.RoleSeedGateway:
		if originRole == coretypes.RoleServiceProvider {
			return t.peersOfRole(coretypes.RoleSeed)
		}
		if originRole == coretypes.RoleSeed {
			return t.peersOfRole(coretypes.RoleServiceProvider)
		}
	case coretypes.RoleServiceProvider:
		if originRole == coretypes.RoleUser {
			return t.peersOfRole(coretypes.RoleSeedGateway)
		}
		if originRole == coretypes.RoleSeedGateway {
			return t.peersOfRole(coretypes.RoleUser)
		}
	}
	return nil
}

func (t *Table) peersOfRole(role coretypes.Role) []*Connection {
	out := t.InboundStreams(role)
	return append(out, t.OutboundStreams(role)...)
}
