package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/coretypes"
)

func openTestManager(t *testing.T) Manager {
	t.Helper()
	m, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestWriteBlockThenReadByIndexAndHash(t *testing.T) {
	m := openTestManager(t)

	b := &coretypes.Block{Index: 1, Hash: "h1", PrevHash: "", Transactions: []coretypes.Transaction{
		{ID: "tx1", Outputs: []coretypes.Output{{To: "alice", Value: 5}}},
	}}
	require.NoError(t, m.WriteBlock(b))

	got, ok := m.ReadBlockByIndex(1)
	require.True(t, ok)
	assert.Equal(t, "h1", got.Hash)

	got2, ok := m.ReadBlockByHash("h1")
	require.True(t, ok)
	assert.Equal(t, uint64(1), got2.Index)

	tx, idx, ok := m.FindTransaction("tx1")
	require.True(t, ok)
	assert.Equal(t, uint64(1), idx)
	assert.Equal(t, "tx1", tx.ID)

	outs := m.OutputsTo("alice")
	require.Len(t, outs, 1)
	assert.Equal(t, 5.0, outs[0].Value)

	head, ok := m.HeadIndex()
	require.True(t, ok)
	assert.Equal(t, uint64(1), head)
}

func TestReadBlockByHashFindsNonGenesisBlock(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.WriteBlock(&coretypes.Block{Index: 0, Hash: "genesis"}))
	require.NoError(t, m.WriteBlock(&coretypes.Block{Index: 1, Hash: "h1", PrevHash: "genesis"}))
	require.NoError(t, m.WriteBlock(&coretypes.Block{Index: 2, Hash: "h2", PrevHash: "h1"}))

	got, ok := m.ReadBlockByHash("h2")
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.Index)

	_, ok = m.ReadBlockByHash("unknown")
	assert.False(t, ok)
}

func TestIsInputSpentTracksOnChainInputsAndReorg(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.WriteBlock(&coretypes.Block{Index: 1, Hash: "h1", Transactions: []coretypes.Transaction{
		{ID: "tx1", Inputs: []coretypes.Input{{ID: "input-1"}}},
	}}))

	assert.True(t, m.IsInputSpent("input-1"))
	assert.False(t, m.IsInputSpent("input-2"))

	require.NoError(t, m.DeleteBlocksFromIndex(1))
	assert.False(t, m.IsInputSpent("input-1"))
}

func TestDeleteBlocksFromIndex(t *testing.T) {
	m := openTestManager(t)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, m.WriteBlock(&coretypes.Block{Index: i, Hash: "h" + string(rune('0'+i))}))
	}
	require.NoError(t, m.DeleteBlocksFromIndex(2))

	_, ok := m.ReadBlockByIndex(2)
	assert.False(t, ok)
	_, ok = m.ReadBlockByIndex(1)
	assert.True(t, ok)

	head, ok := m.HeadIndex()
	require.True(t, ok)
	assert.Equal(t, uint64(1), head)
}

func TestMempoolUpsertAndDelete(t *testing.T) {
	m := openTestManager(t)
	tx := &coretypes.Transaction{ID: "tx1", Fee: 2}
	require.NoError(t, m.UpsertMempoolTx(tx))

	got, ok := m.GetMempoolTx("tx1")
	require.True(t, ok)
	assert.Equal(t, 2.0, got.Fee)

	require.NoError(t, m.DeleteMempoolTx("tx1"))
	_, ok = m.GetMempoolTx("tx1")
	assert.False(t, ok)
}

func TestMempoolListByFeeDesc(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.UpsertMempoolTx(&coretypes.Transaction{ID: "low", Fee: 1}))
	require.NoError(t, m.UpsertMempoolTx(&coretypes.Transaction{ID: "high", Fee: 10}))

	txs := m.ListMempoolTxsByFeeDesc()
	require.Len(t, txs, 2)
	assert.Equal(t, "high", txs[0].ID)
}

func TestStagedBlockUpsertAndLookup(t *testing.T) {
	m := openTestManager(t)
	b := &coretypes.Block{Hash: "stagedhash", Signature: "sig1", PrevHash: "parenthash"}
	require.NoError(t, m.UpsertStagedBlock(b, "peer-rid-1"))

	got, ok := m.GetStagedBlockByHash("stagedhash")
	require.True(t, ok)
	assert.Equal(t, "sig1", got.Signature)

	got2, ok := m.GetStagedBlockByKey("sig1", "peer-rid-1")
	require.True(t, ok)
	assert.Equal(t, "stagedhash", got2.Hash)

	children := m.ListStagedBlocksByPrevHash("parenthash")
	require.Len(t, children, 1)
}

func TestShareUpsertAndPayout(t *testing.T) {
	m := openTestManager(t)
	require.NoError(t, m.UpsertShare(&Share{Address: "addr1", BlockHash: "sharehash", Time: 100}))

	got, ok := m.GetShareByHash("sharehash")
	require.True(t, ok)
	assert.False(t, got.Paid)

	unpaid := m.ListUnpaidSharesByAddress("addr1", 0)
	require.Len(t, unpaid, 1)

	require.NoError(t, m.MarkSharesPaid([]string{"sharehash"}, 200))
	unpaid = m.ListUnpaidSharesByAddress("addr1", 0)
	assert.Len(t, unpaid, 0)
}

func TestAppendFailedTransaction(t *testing.T) {
	m := openTestManager(t)
	tx := &coretypes.Transaction{ID: "bad-tx"}
	assert.NoError(t, m.AppendFailedTransaction(tx, "using an input used by another transaction in this block"))
}
