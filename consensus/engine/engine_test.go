package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/chainparams"
	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/crypto"
	"github.com/solidusnet/solidus/latestblock"
	"github.com/solidusnet/solidus/storage/database"
)

const maxTargetHex = "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff" // 64 hex f's

func mineTestBlock(t *testing.T, priv *crypto.PrivateKey, index uint64, prevHash string) coretypes.Block {
	return mineTestBlockWithTarget(t, priv, index, prevHash, maxTargetHex)
}

// mineTestBlockWithTarget mines a block against an explicit target, used to
// build deterministically heavier/lighter synthetic forks for difficulty
// comparisons.
func mineTestBlockWithTarget(t *testing.T, priv *crypto.PrivateKey, index uint64, prevHash, target string) coretypes.Block {
	t.Helper()
	b := coretypes.Block{
		Index:    index,
		PrevHash: prevHash,
		Time:     1700000000 + int64(index),
		Version:  1,
		Target:   target,
		Header:   "i=" + itoa(index) + "|p=" + prevHash + "|n={nonce}",
	}
	for i := 0; i < 1<<20; i++ {
		b.Nonce = itoa(uint64(i))
		b.Hash = b.ComputeHash()
		if b.MeetsTarget() {
			b.Sign(priv)
			return b
		}
	}
	t.Fatal("could not mine test block within iteration budget")
	return coretypes.Block{}
}

func repeatHex(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = 'f'
	}
	return string(out)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func newTestEngine(t *testing.T) (*Engine, database.Manager, *latestblock.Cache) {
	t.Helper()
	store, err := database.Open(t.TempDir())
	require.NoError(t, err)
	tip := latestblock.New()
	eng := New(store, tip, nil, nil, chainparams.Regnet)
	return eng, store, tip
}

func TestIntegrateBlockUpdatesTip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	eng, store, tip := newTestEngine(t)

	genesis := mineTestBlock(t, priv, 0, "")
	require.NoError(t, eng.IntegrateBlockWithExistingChain(genesis))

	got, ok := tip.Get()
	require.True(t, ok)
	assert.Equal(t, genesis.Hash, got.Hash)

	_, ok = store.ReadBlockByIndex(0)
	assert.True(t, ok)
}

func TestBuildBackwardFromBlockToForkReturnsTrueAtMainChain(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	eng, _, _ := newTestEngine(t)

	genesis := mineTestBlock(t, priv, 0, "")
	require.NoError(t, eng.IntegrateBlockWithExistingChain(genesis))

	next := mineTestBlock(t, priv, 1, genesis.Hash)
	chain, ok := eng.BuildBackwardFromBlockToFork(next, "peer-1")
	require.True(t, ok)
	require.Len(t, chain, 1)
	assert.Equal(t, next.Hash, chain[0].Hash)
}

// TestBuildBackwardFromBlockToForkFindsNonGenesisAncestor guards against a
// ReadBlockByHash regression where only the genesis block (the first entry
// under the by-index scan) could ever be recognized as already on the main
// chain.
func TestBuildBackwardFromBlockToForkFindsNonGenesisAncestor(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	eng, _, _ := newTestEngine(t)

	genesis := mineTestBlock(t, priv, 0, "")
	require.NoError(t, eng.IntegrateBlockWithExistingChain(genesis))
	mainTip := mineTestBlock(t, priv, 1, genesis.Hash)
	require.NoError(t, eng.IntegrateBlockWithExistingChain(mainTip))

	next := mineTestBlock(t, priv, 2, mainTip.Hash)
	chain, ok := eng.BuildBackwardFromBlockToFork(next, "peer-1")
	require.True(t, ok)
	require.Len(t, chain, 1)
	assert.Equal(t, next.Hash, chain[0].Hash)
}

type fakeRequester struct {
	requestedHash  string
	requestedIndex uint64
}

func (f *fakeRequester) RequestBlock(peerRID, hash string, index uint64) {
	f.requestedHash = hash
	f.requestedIndex = index
}

func TestBuildBackwardRequestsMissingAncestor(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	store, err := database.Open(t.TempDir())
	require.NoError(t, err)
	tip := latestblock.New()
	req := &fakeRequester{}
	eng := New(store, tip, req, nil, chainparams.Regnet)

	orphan := mineTestBlock(t, priv, 100, "unknown-parent-hash")
	chain, ok := eng.BuildBackwardFromBlockToFork(orphan, "peer-1")
	assert.False(t, ok)
	assert.Nil(t, chain)
	assert.Equal(t, "unknown-parent-hash", req.requestedHash)
	assert.Equal(t, uint64(99), req.requestedIndex)
}

func TestAttemptChainSwapReplacesLighterFork(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	eng, store, tip := newTestEngine(t)

	genesis := mineTestBlock(t, priv, 0, "")
	require.NoError(t, eng.IntegrateBlockWithExistingChain(genesis))
	// Local tip mined at the maximum (easiest) target: cumulative difficulty 1.
	localTip := mineTestBlock(t, priv, 1, genesis.Hash)
	require.NoError(t, eng.IntegrateBlockWithExistingChain(localTip))

	// Remote fork mined at a quarter of the max target: each block
	// contributes difficulty 4, so two blocks (difficulty 8) strictly
	// out-weigh the local tip's difficulty 1.
	quarterTarget := "3fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	remote1 := mineTestBlockWithTarget(t, priv, 1, genesis.Hash, quarterTarget)
	remote2 := mineTestBlockWithTarget(t, priv, 2, remote1.Hash, quarterTarget)

	require.NoError(t, eng.AttemptChainSwap([]coretypes.Block{remote1, remote2}))

	got, ok := tip.Get()
	require.True(t, ok)
	assert.Equal(t, remote2.Hash, got.Hash)

	_, ok = store.ReadBlockByIndex(2)
	assert.True(t, ok)
}

func TestAttemptChainSwapRejectsLighterFork(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	eng, store, tip := newTestEngine(t)

	genesis := mineTestBlock(t, priv, 0, "")
	require.NoError(t, eng.IntegrateBlockWithExistingChain(genesis))
	localTip := mineTestBlock(t, priv, 1, genesis.Hash)
	require.NoError(t, eng.IntegrateBlockWithExistingChain(localTip))

	// A single-block remote fork at the same (max/easiest) target cannot
	// strictly exceed the local tip's difficulty.
	remote1 := mineTestBlock(t, priv, 1, genesis.Hash)

	err = eng.AttemptChainSwap([]coretypes.Block{remote1})
	assert.ErrorIs(t, err, ErrForkRejected)

	got, ok := tip.Get()
	require.True(t, ok)
	assert.Equal(t, localTip.Hash, got.Hash)

	_, ok = store.ReadBlockByIndex(1)
	assert.True(t, ok)
}

// TestTestBlockInsertableRejectsRemoteSelfDeclaredEasyTarget guards against
// validating proof-of-work against the remote block's own declared target
// instead of the local tip's: a remote block can declare any target it
// likes, so a trivially easy self-declared target must not let its PoW pass.
func TestTestBlockInsertableRejectsRemoteSelfDeclaredEasyTarget(t *testing.T) {
	local := coretypes.Block{
		Index:  chainparams.SpecialMinFork,
		Hash:   "localtiphash",
		Time:   1000,
		Target: "0000000000000000000000000000000000000000000000000000000000000001",
	}
	remote := coretypes.Block{
		Index:    chainparams.SpecialMinFork + 1,
		PrevHash: "localtiphash",
		Time:     1001,
		Hash:     "00000000000000000000000000000000000000000000000000000000000000ff",
		Target:   maxTargetHex,
	}
	require.True(t, remote.MeetsTarget(), "remote's own self-declared target should be trivially met")

	err := TestBlockInsertable(local, remote, chainparams.Regnet)
	assert.ErrorIs(t, err, ErrBlockNotInsertable)
}

func TestTestBlockInsertableRejectsWrongParent(t *testing.T) {
	local := coretypes.Block{Index: 5, Hash: "localhash", Time: 1000}
	remote := coretypes.Block{Index: 7, PrevHash: "localhash", Time: 1001, Target: repeatHex(64)}
	err := TestBlockInsertable(local, remote, chainparams.Regnet)
	assert.ErrorIs(t, err, ErrBlockNotInsertable)
}
