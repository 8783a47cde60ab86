package pool

import (
	"math/big"
	"strings"

	"github.com/solidusnet/solidus/chainparams"
	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/crypto"
	"github.com/solidusnet/solidus/storage/database"
)

// ShareResult reports the outcome of OnMinerNonce: always a share receipt,
// and a promoted block when the share also met the network target.
type ShareResult struct {
	Accepted bool
	Promoted bool
	Hash     string
}

// OnMinerNonce implements spec.md §4.5's share-submission algorithm: compose
// the full nonce, recompute the header hash, compare it against the pool and
// network targets, record a share on acceptance, and promote to a real block
// when the network target is also met.
func (p *Pool) OnMinerNonce(jobID, nonce, address string) (ShareResult, error) {
	p.mu.Lock()
	job, ok := p.jobs[jobID]
	var candidate *coretypes.Block
	if ok && p.candidate != nil {
		c := *p.candidate
		candidate = &c
	}
	p.mu.Unlock()

	if !ok {
		sharesRejected.Inc(1)
		return ShareResult{}, ErrUnknownJob
	}
	candidateHeader := job.candidateHeader

	if candidate == nil {
		sharesRejected.Inc(1)
		return ShareResult{}, ErrNoCandidate
	}

	// 1. Compose full nonce = extra_nonce || nonce: the miner's nonce follows
	// the extra_nonce, as in the job blob BlockTemplate issues; the reverse
	// order is not accepted.
	fullNonce := job.extraNonce + nonce

	// 2. Recompute hash1 from the job's header template with the composed
	// nonce substituted for the placeholder.
	hash1 := crypto.HashHex([]byte(substituteNonce(candidateHeader, fullNonce)))

	// 3. Past BLOCK_V5_FORK compare against little_hash(hash1); otherwise
	// compare hash1 directly (spec.md §4.5, §GLOSSARY "Little-hash").
	cmpHex := hash1
	if candidate.Index >= chainparams.BlockV5Fork {
		lh, err := crypto.LittleHash(hash1)
		if err != nil {
			sharesRejected.Inc(1)
			return ShareResult{}, err
		}
		cmpHex = lh
	}
	cmp, ok := new(big.Int).SetString(cmpHex, 16)
	if !ok {
		sharesRejected.Inc(1)
		return ShareResult{}, ErrShareBelowTarget
	}

	meetsPool := job.poolTarget != nil && cmp.Cmp(job.poolTarget) < 0
	meetsNetwork := job.target != nil && cmp.Cmp(job.target) < 0
	meetsSpecial := job.special && job.specialTarget != nil && cmp.Cmp(job.specialTarget) < 0

	// 4. Neither pool nor network target met: reject outright.
	if !meetsPool && !meetsNetwork && !meetsSpecial {
		sharesRejected.Inc(1)
		return ShareResult{}, ErrShareBelowTarget
	}

	// 5. Pool target covers hash1: record a share regardless of whether the
	// network target was also met.
	share := &database.Share{
		Address:    address,
		BlockIndex: job.index,
		BlockHash:  hash1,
		Nonce:      fullNonce,
		Time:       candidate.Time,
	}
	if err := p.store.UpsertShare(share); err != nil {
		return ShareResult{}, err
	}
	sharesAccepted.Inc(1)
	result := ShareResult{Accepted: true, Hash: hash1}

	// 6. Network (or special_min) target also met: promote to a real block.
	if !meetsNetwork && !meetsSpecial {
		return result, nil
	}

	candidate.Hash = hash1
	candidate.Nonce = fullNonce
	candidate.Sign(p.priv)

	if err := candidate.Verify(p.chainLookup()); err != nil {
		plog.Warn("share met target but block failed verification", "hash", hash1, "err", err)
		return result, nil
	}

	if err := p.promoter.InsertConsensusBlock(*candidate, ""); err != nil {
		plog.Warn("failed to stage promoted block", "hash", hash1, "err", err)
		return result, nil
	}
	if err := p.promoter.IntegrateBlockWithExistingChain(*candidate); err != nil {
		plog.Warn("failed to integrate promoted block", "hash", hash1, "err", err)
		return result, nil
	}

	p.bcast.BroadcastNewBlock(*candidate)
	blocksPromoted.Inc(1)
	result.Promoted = true

	p.Refresh()

	return result, nil
}

func (p *Pool) chainLookup() coretypes.InputLookup {
	return func(id string) (float64, bool) {
		tx, _, ok := p.store.FindTransaction(id)
		if !ok {
			return 0, false
		}
		return tx.OutputTotal(), true
	}
}

func substituteNonce(header, nonce string) string {
	return strings.Replace(header, "{nonce}", nonce, 1)
}
