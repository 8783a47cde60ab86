package coretypes

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/solidusnet/solidus/crypto"
)

// Error kinds for block verification (spec.md §7 InvalidBlock).
var (
	ErrInvalidBlockHash      = errors.New("coretypes: block hash does not match header")
	ErrInvalidBlockSignature = errors.New("coretypes: block signature invalid")
	ErrInvalidBlockTarget    = errors.New("coretypes: block hash does not satisfy target")
	ErrDuplicateTxInput      = errors.New("coretypes: transaction input reused within block")
)

// noncePlaceholder is substituted into Header to produce the hashed string
// (spec.md §3 Block.header: "canonical string with {nonce} placeholder").
const noncePlaceholder = "{nonce}"

// Block is spec.md §3's signed, proof-of-work, hash-linked unit of the chain.
type Block struct {
	Index         uint64        `json:"index"`
	PrevHash      string        `json:"prev_hash"`
	Hash          string        `json:"hash"`
	Time          int64         `json:"time"`
	Nonce         string        `json:"nonce"`
	Target        string        `json:"target"`         // hex big.Int
	SpecialTarget string        `json:"special_target"` // hex big.Int
	SpecialMin    bool          `json:"special_min"`
	Version       int           `json:"version"`
	PublicKey     string        `json:"public_key"`
	Signature     string        `json:"signature"`
	Transactions  []Transaction `json:"transactions"`
	Header        string        `json:"header"`
}

// Substitute replaces the {nonce} placeholder in Header with nonce, the
// exact string hashed to produce Hash (spec.md §3, §8 round-trip law).
func (b *Block) Substitute(nonce string) string {
	return strings.Replace(b.Header, noncePlaceholder, nonce, 1)
}

// ComputeHash hashes Header with Nonce substituted in.
func (b *Block) ComputeHash() string {
	return crypto.HashHex([]byte(b.Substitute(b.Nonce)))
}

// TargetInt parses Target as a 256-bit unsigned integer.
func (b *Block) TargetInt() (*big.Int, bool) {
	return new(big.Int).SetString(b.Target, 16)
}

// SpecialTargetInt parses SpecialTarget as a 256-bit unsigned integer.
func (b *Block) SpecialTargetInt() (*big.Int, bool) {
	return new(big.Int).SetString(b.SpecialTarget, 16)
}

// HashInt parses Hash as a 256-bit unsigned integer, for target comparisons.
func (b *Block) HashInt() (*big.Int, bool) {
	return new(big.Int).SetString(b.Hash, 16)
}

// MeetsTarget reports whether the block's hash numerically satisfies its
// target (or special_target, when special_min is set) per spec.md §3.
func (b *Block) MeetsTarget() bool {
	h, ok := b.HashInt()
	if !ok {
		return false
	}
	target, ok := b.TargetInt()
	if ok && h.Cmp(target) < 0 {
		return true
	}
	if b.SpecialMin {
		special, ok := b.SpecialTargetInt()
		if ok && h.Cmp(special) < 0 {
			return true
		}
	}
	return false
}

// Verify recomputes the header hash, checks it matches Hash, verifies the
// miner signature over Hash, checks the target is met, and recursively
// verifies every transaction (no input reused twice within the block) -
// spec.md §4.1.
func (b *Block) Verify(lookup InputLookup) error {
	if b.ComputeHash() != b.Hash {
		return ErrInvalidBlockHash
	}
	pub, err := crypto.PublicKeyFromHex(b.PublicKey)
	if err != nil {
		return ErrInvalidBlockSignature
	}
	if !crypto.Verify(pub, []byte(b.Hash), b.Signature) {
		return ErrInvalidBlockSignature
	}
	if !b.MeetsTarget() {
		return ErrInvalidBlockTarget
	}

	seenInputs := make(map[string]struct{})
	for i := range b.Transactions {
		tx := &b.Transactions[i]
		for _, in := range tx.Inputs {
			if _, dup := seenInputs[in.ID]; dup {
				return ErrDuplicateTxInput
			}
			seenInputs[in.ID] = struct{}{}
		}
		if err := tx.Verify(lookup); err != nil {
			return fmt.Errorf("coretypes: transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

// Sign sets PublicKey and Signature from priv, signing the block's Hash.
// Callers must have already set Hash (typically via ComputeHash) before
// calling Sign.
func (b *Block) Sign(priv *crypto.PrivateKey) {
	b.PublicKey = priv.Public().Hex()
	b.Signature = crypto.Sign(priv, []byte(b.Hash))
}

// TransactionIDs returns the ids of every transaction in the block, used by
// the consensus engine to evict matching mempool entries on integration
// (spec.md §4.3).
func (b *Block) TransactionIDs() []string {
	ids := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		ids[i] = tx.ID
	}
	return ids
}

// TransactionsDigest hashes the block's transaction ids in order, so a
// header committing this digest binds the PoW to one specific transaction
// set: two candidates that differ only in their transactions hash
// differently (spec.md §3, §4.1 Verify).
func (b *Block) TransactionsDigest() string {
	var buf strings.Builder
	for _, id := range b.TransactionIDs() {
		buf.WriteString(id)
		buf.WriteByte('|')
	}
	return crypto.HashHex([]byte(buf.String()))
}
