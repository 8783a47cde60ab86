package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/crypto"
)

func TestHandshakeAcceptsCorrectlySignedChallenge(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	identity := coretypes.Identity{PublicKey: priv.Public().Hex()}
	challenge := NewChallenge()
	signed := Sign(priv, challenge)

	assert.NoError(t, Verify(identity, challenge, signed))
}

func TestHandshakeRejectsWrongKeySignature(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	identity := coretypes.Identity{PublicKey: priv.Public().Hex()}
	challenge := NewChallenge()
	signed := Sign(other, challenge)

	assert.ErrorIs(t, Verify(identity, challenge, signed), ErrChallengeMismatch)
}

func TestHandshakeRejectsStaleChallenge(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	identity := coretypes.Identity{PublicKey: priv.Public().Hex()}
	challenge := NewChallenge()
	signed := Sign(priv, challenge)

	staleChallenge := NewChallenge()
	assert.ErrorIs(t, Verify(identity, staleChallenge, signed), ErrChallengeMismatch)
}

func TestRequiresConfirmAcksOnlyAboveV1(t *testing.T) {
	assert.False(t, RequiresConfirmAcks(1))
	assert.True(t, RequiresConfirmAcks(2))
}
