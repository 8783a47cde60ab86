package coretypes

import (
	"math/big"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/crypto"
)

// mineBlock repeatedly substitutes a nonce until the hash meets an easy
// target, producing a self-consistent test fixture without a real miner.
func mineBlock(t *testing.T, priv *crypto.PrivateKey, index uint64, prevHash string) *Block {
	t.Helper()
	easyTarget := new(big.Int).Rsh(chainparamsMaxTarget(), 1) // top bit must be 0

	b := &Block{
		Index:    index,
		PrevHash: prevHash,
		Time:     1700000000,
		Version:  1,
		Target:   easyTarget.Text(16),
		Header:   "index=" + strconv.FormatUint(index, 10) + "|prev=" + prevHash + "|nonce={nonce}",
	}

	for i := 0; i < 1<<20; i++ {
		b.Nonce = strconv.Itoa(i)
		b.Hash = b.ComputeHash()
		if b.MeetsTarget() {
			b.Sign(priv)
			return b
		}
	}
	t.Fatal("failed to mine test block within iteration budget")
	return nil
}

func chainparamsMaxTarget() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}

func TestBlockVerifyRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	b := mineBlock(t, priv, 1, "")
	lookup := func(string) (float64, bool) { return 0, true }
	assert.NoError(t, b.Verify(lookup))
}

func TestBlockVerifyRejectsBadNonce(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	b := mineBlock(t, priv, 1, "")
	b.Nonce = b.Nonce + "x"

	lookup := func(string) (float64, bool) { return 0, true }
	assert.ErrorIs(t, b.Verify(lookup), ErrInvalidBlockHash)
}

func TestTransactionsDigestDiffersByTransactionSet(t *testing.T) {
	a := &Block{Transactions: []Transaction{{ID: "tx-a"}}}
	b := &Block{Transactions: []Transaction{{ID: "tx-b"}}}
	empty := &Block{}

	assert.NotEqual(t, a.TransactionsDigest(), b.TransactionsDigest())
	assert.NotEqual(t, a.TransactionsDigest(), empty.TransactionsDigest())
}

func TestBlockVerifyRejectsDuplicateInputAcrossTransactions(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx1 := &Transaction{Inputs: []Input{{ID: "shared"}}, Outputs: []Output{{To: "a", Value: 1}}}
	tx1.Sign(priv)
	tx2 := &Transaction{Inputs: []Input{{ID: "shared"}}, Outputs: []Output{{To: "b", Value: 1}}}
	tx2.Sign(priv)

	b := mineBlock(t, priv, 1, "")
	b.Transactions = []Transaction{*tx1, *tx2}
	b.Hash = b.ComputeHash()
	b.Sign(priv)

	lookup := func(string) (float64, bool) { return 1, true }
	assert.ErrorIs(t, b.Verify(lookup), ErrDuplicateTxInput)
}
