// Package chainview implements spec.md §4.2: a lazy finite sequence of
// blocks (usually a suffix of the main chain or a candidate fork) with
// consecutivity checks and cumulative-difficulty comparison used to decide
// fork resolution.
package chainview

import (
	"math/big"

	"github.com/solidusnet/solidus/chainparams"
	"github.com/solidusnet/solidus/coretypes"
)

// Blockchain wraps an ordered slice of blocks (spec.md §4.2).
type Blockchain struct {
	blocks []coretypes.Block
}

// New wraps blocks as a Blockchain view. blocks must already be in ascending
// index order; callers (the consensus engine) are responsible for that.
func New(blocks []coretypes.Block) *Blockchain {
	return &Blockchain{blocks: blocks}
}

// Count returns the number of blocks in the view.
func (bc *Blockchain) Count() int { return len(bc.blocks) }

// FirstBlock returns the lowest-index block in the view.
func (bc *Blockchain) FirstBlock() (coretypes.Block, bool) {
	if len(bc.blocks) == 0 {
		return coretypes.Block{}, false
	}
	return bc.blocks[0], true
}

// FinalBlock returns the highest-index block in the view.
func (bc *Blockchain) FinalBlock() (coretypes.Block, bool) {
	if len(bc.blocks) == 0 {
		return coretypes.Block{}, false
	}
	return bc.blocks[len(bc.blocks)-1], true
}

// IsConsecutive reports whether every adjacent pair satisfies
// b[i+1].prev_hash == b[i].hash and b[i+1].index == b[i].index + 1
// (spec.md §4.2, §8 invariant 1).
func (bc *Blockchain) IsConsecutive() bool {
	for i := 0; i+1 < len(bc.blocks); i++ {
		a, b := bc.blocks[i], bc.blocks[i+1]
		if b.PrevHash != a.Hash || b.Index != a.Index+1 {
			return false
		}
	}
	return true
}

// GetDifficulty sums MAX_TARGET/target over every block in the view
// (spec.md §4.2). Division is integer (big.Int.Div), truncating - an
// explicit implementation choice documented in SPEC_FULL.md Open Question 1,
// not a guess at the reference's exact rounding.
func (bc *Blockchain) GetDifficulty() *big.Int {
	total := new(big.Int)
	for _, b := range bc.blocks {
		target, ok := new(big.Int).SetString(b.Target, 16)
		if !ok || target.Sign() <= 0 {
			continue
		}
		share := new(big.Int).Div(chainparams.MaxTarget, target)
		total.Add(total, share)
	}
	return total
}

// compareTiebreak orders two views by final_block.index then lexicographic
// final_block.hash (spec.md §4.2).
func compareTiebreak(a, b *Blockchain) int {
	af, aok := a.FinalBlock()
	bf, bok := b.FinalBlock()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	if af.Index != bf.Index {
		if af.Index < bf.Index {
			return -1
		}
		return 1
	}
	if af.Hash == bf.Hash {
		return 0
	}
	if af.Hash < bf.Hash {
		return -1
	}
	return 1
}

// CompareDifficulty compares bc against other using cumulative difficulty,
// falling back to compareTiebreak on an exact tie.
func (bc *Blockchain) CompareDifficulty(other *Blockchain) int {
	d1, d2 := bc.GetDifficulty(), other.GetDifficulty()
	switch d1.Cmp(d2) {
	case 0:
		return compareTiebreak(bc, other)
	case 1:
		return 1
	default:
		return -1
	}
}

// TestInboundBlockchain reports whether an inbound chain should replace bc
// as the main chain: it must start at the same height as bc, both views must
// be internally consecutive, and other's cumulative difficulty must be
// strictly greater than bc's (spec.md §4.2).
func (bc *Blockchain) TestInboundBlockchain(other *Blockchain) bool {
	selfFirst, ok1 := bc.FirstBlock()
	otherFirst, ok2 := other.FirstBlock()
	if !ok1 || !ok2 || selfFirst.Index != otherFirst.Index {
		return false
	}
	if !bc.IsConsecutive() || !other.IsConsecutive() {
		return false
	}
	return other.GetDifficulty().Cmp(bc.GetDifficulty()) > 0
}

// Blocks returns the underlying slice (read-only by convention; callers must
// not mutate it in place).
func (bc *Blockchain) Blocks() []coretypes.Block { return bc.blocks }
