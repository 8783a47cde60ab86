package peer

import (
	"errors"

	uuid "github.com/satori/go.uuid"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/crypto"
)

// Errors returned by the authentication handshake (spec.md §4.6 step 4:
// "on mismatch, close").
var (
	ErrChallengeMismatch = errors.New("peer: signed challenge does not match issued token")
	ErrUnknownPublicKey  = errors.New("peer: peer public key does not parse")
)

// Challenge is the server-issued nonce a connecting peer must sign to prove
// key ownership (spec.md §4.6 step 2: "challenge{token=uuid}").
type Challenge struct {
	Token string
}

// NewChallenge issues a fresh random challenge token.
func NewChallenge() Challenge {
	return Challenge{Token: uuid.NewV4().String()}
}

// Sign produces the signed_challenge a connecting peer returns in
// authenticate (spec.md §4.6 step 3).
func Sign(priv *crypto.PrivateKey, challenge Challenge) string {
	return crypto.Sign(priv, []byte(challenge.Token))
}

// Verify checks a peer's authenticate reply against the challenge this side
// issued and the peer's declared public key (spec.md §4.6 step 4: "Both
// verify against the peer's declared public key; on mismatch, close").
func Verify(identity coretypes.Identity, challenge Challenge, signedChallenge string) error {
	pub, err := crypto.PublicKeyFromHex(identity.PublicKey)
	if err != nil {
		return ErrUnknownPublicKey
	}
	if !crypto.Verify(pub, []byte(challenge.Token), signedChallenge) {
		return ErrChallengeMismatch
	}
	return nil
}

// RequiresConfirmAcks reports whether a negotiated protocol version requires
// explicit confirm acks (spec.md §4.6: "protocol-version negotiation: ...
// >1 uses params form of authenticate and additionally requires explicit
// confirm acks").
func RequiresConfirmAcks(protocolVersion int) bool {
	return protocolVersion > 1
}
