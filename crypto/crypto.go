// Package crypto is the node's adapter over the ECDSA/secp256k1 primitive
// that spec.md treats as an external collaborator: sign, verify, hash and
// address derivation only. It does not implement curve arithmetic itself.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160"
)

var (
	// ErrInvalidSignature is returned by Verify when the signature does not
	// validate against the given public key and message.
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	// ErrInvalidPublicKey is returned when a hex-encoded public key cannot
	// be parsed onto the curve.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
)

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps a secp256k1 public key, serialized in compressed form for
// wire/storage use (the public_key field throughout spec.md §3, §6).
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GenerateKey creates a new random keypair.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// Public returns the public half of a private key.
func (p *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: p.key.PubKey()}
}

// Hex returns the private key as a hex string. Never persisted by this
// package; callers decide how the private_key config field is stored.
func (p *PrivateKey) Hex() string {
	return hex.EncodeToString(p.key.Serialize())
}

// PrivateKeyFromHex parses a hex-encoded private key.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	key := secp256k1.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}, nil
}

// Hex returns the public key in compressed-point hex form, matching the
// public_key field used throughout the wire protocol.
func (p *PublicKey) Hex() string {
	return hex.EncodeToString(p.key.SerializeCompressed())
}

// PublicKeyFromHex parses a hex-encoded compressed public key as received
// over the wire (Peer.identity.public_key, Transaction.public_key, ...).
func PublicKeyFromHex(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	key, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return &PublicKey{key: key}, nil
}

// Sign produces a deterministic signature (RFC6979) over msg's sha256 digest.
// Used for block-hash signing (spec.md §3 Block.signature) and transaction
// body signing (spec.md §3 Transaction.transaction_signature).
func Sign(priv *PrivateKey, msg []byte) string {
	digest := Hash(msg)
	sig := ecdsa.Sign(priv.key, digest)
	return hex.EncodeToString(sig.Serialize())
}

// Verify checks a hex-encoded signature over msg's sha256 digest against pub.
func Verify(pub *PublicKey, msg []byte, sigHex string) bool {
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	return sig.Verify(Hash(msg), pub.key)
}

// Hash is sha256, the digest used for block headers (spec.md §3: hash ==
// H(header.substitute(nonce))) and for the transaction signing payload.
func Hash(msg []byte) []byte {
	sum := sha256.Sum256(msg)
	return sum[:]
}

// HashHex is Hash rendered as lowercase hex, the on-the-wire hash
// representation used for Block.hash / Transaction.id.
func HashHex(msg []byte) string {
	return hex.EncodeToString(Hash(msg))
}

// AddressFromPublicKey derives a short address from a public key:
// ripemd160(sha256(pubkey)), hex-encoded. Used wherever spec.md refers to a
// Transaction's "derived address" or a Share's payee address.
func AddressFromPublicKey(pub *PublicKey) string {
	sha := sha256.Sum256(pub.key.SerializeCompressed())
	r := ripemd160.New()
	r.Write(sha[:])
	return hex.EncodeToString(r.Sum(nil))
}

// LittleHash returns the byte-reversed hex form of a hash, used for block
// acceptance comparisons past chainparams.BlockV5Fork (spec.md §4.5, §GLOSSARY
// "Little-hash").
func LittleHash(hashHex string) (string, error) {
	b, err := hex.DecodeString(hashHex)
	if err != nil {
		return "", err
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return hex.EncodeToString(b), nil
}
