// Package pool is the mining pool of spec.md §4.5: candidate-block
// construction, per-worker job generation, share accounting, and the
// special-minimum difficulty relaxation. Grounded on work/worker.go's
// worker/Task/commitNewWork/push shape and work/agent.go's Agent interface,
// reused here for job issuance to registered mining agents.
package pool

import (
	"math/big"
	"sync"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/solidusnet/solidus/chainparams"
	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/crypto"
	"github.com/solidusnet/solidus/latestblock"
	"github.com/solidusnet/solidus/log"
	"github.com/solidusnet/solidus/storage/database"
)

var plog = log.NewModuleLogger("pool")

var (
	sharesAccepted = metrics.NewRegisteredCounter("pool/shares/accepted", nil)
	blocksPromoted = metrics.NewRegisteredCounter("pool/blocks/promoted", nil)
	sharesRejected = metrics.NewRegisteredCounter("pool/shares/rejected", nil)
)

// MempoolSource supplies fee-ordered transactions for candidate construction
// (spec.md §4.5: "current tip plus top-fee mempool transactions").
type MempoolSource interface {
	TopByFee() []coretypes.Transaction
}

// Promoter is the subset of the consensus engine the pool needs when a
// share also satisfies the network target (spec.md §4.5 step 6): stage it,
// then integrate it onto the main chain.
type Promoter interface {
	InsertConsensusBlock(block coretypes.Block, peerRID string) error
	IntegrateBlockWithExistingChain(block coretypes.Block) error
}

// Broadcaster gossips a newly promoted block to sync peers (spec.md §4.5
// step 6: "broadcast newblock").
type Broadcaster interface {
	BroadcastNewBlock(block coretypes.Block)
}

// Pool holds the single candidate block under construction and issues jobs
// derived from it.
type Pool struct {
	mu sync.Mutex

	store    database.Manager
	mempool  MempoolSource
	tip      *latestblock.Cache
	promoter Promoter
	bcast    Broadcaster
	network  chainparams.Network
	priv     *crypto.PrivateKey
	poolDiff int64

	candidate *coretypes.Block
	target    *big.Int
	special   bool
	jobs      map[string]issuedJob

	payoutMarker int64
}

type issuedJob struct {
	candidateHeader string
	extraNonce      string
	target          *big.Int
	poolTarget      *big.Int
	special         bool
	specialTarget   *big.Int
	index           uint64
}

// New builds a Pool. priv signs blocks promoted from accepted shares
// (spec.md §4.5 step 6: "sign the hash").
func New(store database.Manager, mempool MempoolSource, tip *latestblock.Cache, promoter Promoter, bcast Broadcaster, network chainparams.Network, priv *crypto.PrivateKey, poolDiff int64) *Pool {
	p := &Pool{
		store:    store,
		mempool:  mempool,
		tip:      tip,
		promoter: promoter,
		bcast:    bcast,
		network:  network,
		priv:     priv,
		poolDiff: poolDiff,
		jobs:     make(map[string]issuedJob),
	}
	return p
}

// Start subscribes to tip changes and refreshes the candidate on every new
// block (spec.md §4.5: "refresh() is invoked on tip change").
func (p *Pool) Start() {
	p.Refresh()
	ch := p.tip.Subscribe()
	go func() {
		for range ch {
			p.Refresh()
		}
	}()
}

// Refresh rebuilds the candidate block from the current tip and the
// top-fee mempool transactions, and recomputes target/special_min for the
// current wall time (spec.md §4.5).
func (p *Pool) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	tip, haveTip := p.tip.Get()
	var index uint64
	var prevHash string
	var tipTime int64
	if haveTip {
		index = tip.Index + 1
		prevHash = tip.Hash
		tipTime = tip.Time
	} else {
		index = 0
		prevHash = ""
		tipTime = time.Now().Unix() - chainparams.TargetBlockTime(p.network)
	}

	now := time.Now().Unix()
	deltaT := now - tipTime

	baseTarget := p.baseTarget(index)
	special := false
	var specialTarget *big.Int

	if index < chainparams.SpecialMinFork {
		baseTarget = new(big.Int).Set(chainparams.MaxTarget)
	} else if deltaT >= chainparams.SpecialMinTrigger(p.network, index) {
		special = true
		specialTarget = chainparams.SpecialTarget(index, baseTarget, deltaT, p.network)
	}

	txs := p.mempool.TopByFee()

	candidate := &coretypes.Block{
		Index:        index,
		PrevHash:     prevHash,
		Time:         now,
		Version:      chainparams.BlockVersion(index),
		Target:       baseTarget.Text(16),
		SpecialMin:   special,
		PublicKey:    p.priv.Public().Hex(),
		Transactions: txs,
	}
	if special {
		candidate.SpecialTarget = specialTarget.Text(16)
	}
	candidate.Header = headerString(candidate)

	p.candidate = candidate
	p.target = baseTarget
	p.special = special
	p.jobs = make(map[string]issuedJob) // stale jobs reference the old candidate
}

// headerString builds the canonical string PoW is computed over. It commits
// index, prev_hash, time, target, version, public_key and a digest of the
// transaction set so that Block.Verify's hash recomputation actually binds
// the hash to the block body it signs - two candidates differing only in
// their transactions must not hash identically.
func headerString(b *coretypes.Block) string {
	return "index=" + uintToStr(b.Index) +
		"|prev=" + b.PrevHash +
		"|time=" + int64ToStr(b.Time) +
		"|version=" + uintToStr(uint64(b.Version)) +
		"|target=" + b.Target +
		"|pubkey=" + b.PublicKey +
		"|txs=" + b.TransactionsDigest() +
		"|nonce={nonce}"
}

// baseTarget computes the normal (non-special) difficulty target from chain
// history. Pre-SpecialMinFork this is MAX_TARGET directly (spec.md §4.5
// "legacy path"); afterward it reuses the target of the block at index-1,
// falling back to MAX_TARGET when that block is missing or its target does
// not parse. No retarget window is applied.
func (p *Pool) baseTarget(index uint64) *big.Int {
	if index < chainparams.SpecialMinFork {
		return new(big.Int).Set(chainparams.MaxTarget)
	}
	recent, ok := p.store.ReadBlockByIndex(indexOrZero(index))
	if ok {
		if t, ok := recent.TargetInt(); ok {
			return t
		}
	}
	return new(big.Int).Set(chainparams.MaxTarget)
}

func indexOrZero(index uint64) uint64 {
	if index == 0 {
		return 0
	}
	return index - 1
}

// Candidate returns a copy of the current candidate block.
func (p *Pool) Candidate() coretypes.Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.candidate == nil {
		return coretypes.Block{}
	}
	return *p.candidate
}
