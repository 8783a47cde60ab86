package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/coretypes"
)

func TestTypeLimitSeedToSeedGatewayIsOne(t *testing.T) {
	assert.Equal(t, 1, TypeLimit(coretypes.RoleSeed, coretypes.RoleSeedGateway, 0))
}

func TestTypeLimitSeedToSeedUsesMaxPeersOverride(t *testing.T) {
	assert.Equal(t, 100000, TypeLimit(coretypes.RoleSeed, coretypes.RoleSeed, 0))
	assert.Equal(t, 42, TypeLimit(coretypes.RoleSeed, coretypes.RoleSeed, 42))
}

func TestTypeLimitRejectsIncompatibleRole(t *testing.T) {
	assert.Equal(t, 0, TypeLimit(coretypes.RoleSeed, coretypes.RoleUser, 0))
}

func TestAdmitConnectRejectsAtCapacity(t *testing.T) {
	table := NewTable()
	// Seed's cap on SeedGateway inbound is 1.
	assert.True(t, table.AdmitConnect(coretypes.RoleSeed, coretypes.RoleSeedGateway, 0))

	table.Register(NewConnection(coretypes.Peer{Role: coretypes.RoleSeedGateway, RID: "gw-1"}, true, 0))
	assert.False(t, table.AdmitConnect(coretypes.RoleSeed, coretypes.RoleSeedGateway, 0))
}

func TestAdmitConnectCountsPendingToo(t *testing.T) {
	table := NewTable()
	table.BeginPending(coretypes.RoleSeedGateway, true)
	assert.False(t, table.AdmitConnect(coretypes.RoleSeed, coretypes.RoleSeedGateway, 0))
	table.EndPending(coretypes.RoleSeedGateway, true)
	assert.True(t, table.AdmitConnect(coretypes.RoleSeed, coretypes.RoleSeedGateway, 0))
}

func TestUnregisterIsIdempotentAcrossTables(t *testing.T) {
	table := NewTable()
	table.Register(NewConnection(coretypes.Peer{Role: coretypes.RoleUser, RID: "u-1"}, true, 0))
	table.Unregister("u-1")
	table.Unregister("u-1") // second call must not panic
	assert.Equal(t, 0, table.InboundCount(coretypes.RoleUser))
}

func TestOutboundIgnoreExpiresAfterCooldown(t *testing.T) {
	ignore := NewOutboundIgnore(8)
	now := time.Unix(1000, 0)
	ignore.Hold("sig-1", now)

	assert.True(t, ignore.Contains("sig-1", now.Add(10*time.Second)))
	assert.False(t, ignore.Contains("sig-1", now.Add(31*time.Second)))
}

func TestSelectGatewaySkipsIgnoredCandidates(t *testing.T) {
	gateways := []coretypes.Peer{
		{Identity: coretypes.Identity{UsernameSignature: "gw-a"}},
		{Identity: coretypes.Identity{UsernameSignature: "gw-b"}},
		{Identity: coretypes.Identity{UsernameSignature: "gw-c"}},
	}
	now := time.Unix(GatewayEpoch+GatewayTTL*5, 0)

	picked, ok := SelectGateway("my-signature", gateways, nil, now)
	require.True(t, ok)

	ignore := NewOutboundIgnore(8)
	ignore.Hold(picked.Identity.UsernameSignature, now)

	alt, ok := SelectGateway("my-signature", gateways, ignore, now)
	require.True(t, ok)
	assert.NotEqual(t, picked.Identity.UsernameSignature, alt.Identity.UsernameSignature)
}

func TestSelectGatewayIsDeterministic(t *testing.T) {
	gateways := []coretypes.Peer{
		{Identity: coretypes.Identity{UsernameSignature: "gw-a"}},
		{Identity: coretypes.Identity{UsernameSignature: "gw-b"}},
	}
	now := time.Unix(GatewayEpoch+GatewayTTL*3, 0)

	a, ok := SelectGateway("stable-signature", gateways, nil, now)
	require.True(t, ok)
	b, ok := SelectGateway("stable-signature", gateways, nil, now)
	require.True(t, ok)
	assert.Equal(t, a.Identity.UsernameSignature, b.Identity.UsernameSignature)
}

func TestSelectGatewayNoCandidatesReturnsFalse(t *testing.T) {
	_, ok := SelectGateway("sig", nil, nil, time.Now())
	assert.False(t, ok)
}

func TestRoutePeersSeedGatewayBridgesSeedAndServiceProviders(t *testing.T) {
	table := NewTable()
	table.Register(NewConnection(coretypes.Peer{Role: coretypes.RoleServiceProvider, RID: "sp-1"}, true, 0))

	routed := table.RoutePeers(coretypes.RoleSeedGateway, coretypes.RoleSeed, nil)
	require.Len(t, routed, 1)
	assert.Equal(t, "sp-1", routed[0].Peer.RID)
}
