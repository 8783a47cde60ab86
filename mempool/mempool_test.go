package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/crypto"
	"github.com/solidusnet/solidus/storage/database"
)

type fakeChain struct {
	confirmed map[string]coretypes.Transaction
}

func (f *fakeChain) FindTransaction(id string) (*coretypes.Transaction, uint64, bool) {
	tx, ok := f.confirmed[id]
	if !ok {
		return nil, 0, false
	}
	return &tx, 1, true
}

func newTestMempool(t *testing.T) (*Mempool, *fakeChain) {
	t.Helper()
	store, err := database.Open(t.TempDir())
	require.NoError(t, err)
	chain := &fakeChain{confirmed: map[string]coretypes.Transaction{
		"input-1": {ID: "input-1", Outputs: []coretypes.Output{{To: "me", Value: 10}}},
	}}
	return New(store, chain), chain
}

func signedSpend(t *testing.T, priv *crypto.PrivateKey, inputID string, value float64) coretypes.Transaction {
	t.Helper()
	tx := coretypes.Transaction{
		Inputs:  []coretypes.Input{{ID: inputID}},
		Outputs: []coretypes.Output{{To: "recipient", Value: value}},
	}
	tx.Sign(priv)
	return tx
}

func TestAdmitAcceptsValidTransaction(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, _ := newTestMempool(t)

	tx := signedSpend(t, priv, "input-1", 10)
	require.NoError(t, m.Admit(tx))
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get(tx.ID)
	require.True(t, ok)
	assert.Equal(t, tx.ID, got.ID)
}

func TestAdmitIsIdempotent(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, _ := newTestMempool(t)

	tx := signedSpend(t, priv, "input-1", 10)
	require.NoError(t, m.Admit(tx))
	require.NoError(t, m.Admit(tx))
	assert.Equal(t, 1, m.Len())
}

func TestAdmitRejectsDoubleSpendOfSameInput(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, chain := newTestMempool(t)
	chain.confirmed["input-1"] = coretypes.Transaction{ID: "input-1", Outputs: []coretypes.Output{{To: "me", Value: 10}}}

	tx1 := signedSpend(t, priv, "input-1", 10)
	tx2 := coretypes.Transaction{
		Inputs:  []coretypes.Input{{ID: "input-1"}},
		Outputs: []coretypes.Output{{To: "someone-else", Value: 10}},
	}
	tx2.Sign(priv)

	require.NoError(t, m.Admit(tx1))
	err = m.Admit(tx2)
	assert.ErrorIs(t, err, ErrInputReused)
	assert.Equal(t, 1, m.Len())
}

func TestAdmitRejectsInputAlreadySpentOnChain(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, chain := newTestMempool(t)
	chain.confirmed["input-1"] = coretypes.Transaction{ID: "input-1", Outputs: []coretypes.Output{{To: "me", Value: 10}}}
	require.NoError(t, m.store.WriteBlock(&coretypes.Block{Index: 1, Hash: "h1", Transactions: []coretypes.Transaction{
		{ID: "already-confirmed", Inputs: []coretypes.Input{{ID: "input-1"}}},
	}}))

	tx := signedSpend(t, priv, "input-1", 10)
	err = m.Admit(tx)
	assert.ErrorIs(t, err, ErrInputSpent)
	assert.Equal(t, 0, m.Len())
}

func TestEvictIncludedRemovesEntry(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, _ := newTestMempool(t)

	tx := signedSpend(t, priv, "input-1", 10)
	require.NoError(t, m.Admit(tx))

	m.EvictIncluded([]string{tx.ID})
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get(tx.ID)
	assert.False(t, ok)
}

func TestTopByFeeOrdersDescending(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	m, chain := newTestMempool(t)
	chain.confirmed["input-a"] = coretypes.Transaction{ID: "input-a", Outputs: []coretypes.Output{{To: "me", Value: 5}}}
	chain.confirmed["input-b"] = coretypes.Transaction{ID: "input-b", Outputs: []coretypes.Output{{To: "me", Value: 5}}}

	low := coretypes.Transaction{Inputs: []coretypes.Input{{ID: "input-a"}}, Outputs: []coretypes.Output{{To: "x", Value: 4}}, Fee: 1}
	low.Sign(priv)
	high := coretypes.Transaction{Inputs: []coretypes.Input{{ID: "input-b"}}, Outputs: []coretypes.Output{{To: "x", Value: 2}}, Fee: 3}
	high.Sign(priv)

	require.NoError(t, m.Admit(low))
	require.NoError(t, m.Admit(high))

	ordered := m.TopByFee()
	require.Len(t, ordered, 2)
	assert.Equal(t, high.ID, ordered[0].ID)
}
