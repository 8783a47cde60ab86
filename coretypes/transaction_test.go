package coretypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidusnet/solidus/crypto"
)

func TestTransactionSignVerifyRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{
		Inputs:  []Input{{ID: "prior-tx-1"}},
		Outputs: []Output{{To: "addr-a", Value: 9}, {To: "addr-b", Value: 0.5}},
		Fee:     0.5,
		Time:    1700000000,
	}
	tx.Sign(priv)

	lookup := func(id string) (float64, bool) {
		if id == "prior-tx-1" {
			return 10, true
		}
		return 0, false
	}

	assert.NoError(t, tx.Verify(lookup))
}

func TestTransactionVerifyRejectsTamperedSignature(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{
		Inputs:  []Input{{ID: "prior-tx-1"}},
		Outputs: []Output{{To: "addr-a", Value: 10}},
		Fee:     0,
		Time:    1700000000,
	}
	tx.Sign(priv)
	tx.Outputs[0].Value = 999 // tamper after signing

	lookup := func(id string) (float64, bool) { return 999, true }
	assert.ErrorIs(t, tx.Verify(lookup), ErrInvalidTransactionSignature)
}

func TestTransactionVerifyRejectsDuplicateInput(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{
		Inputs:  []Input{{ID: "a"}, {ID: "a"}},
		Outputs: []Output{{To: "x", Value: 1}},
	}
	tx.Sign(priv)

	lookup := func(id string) (float64, bool) { return 1, true }
	assert.ErrorIs(t, tx.Verify(lookup), ErrDuplicateInput)
}

func TestTransactionVerifyRejectsValueMismatch(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx := &Transaction{
		Inputs:  []Input{{ID: "a"}},
		Outputs: []Output{{To: "x", Value: 100}},
		Fee:     0,
	}
	tx.Sign(priv)

	lookup := func(id string) (float64, bool) { return 1, true } // only 1 available, not 100
	assert.ErrorIs(t, tx.Verify(lookup), ErrTransactionInputOutputMismatch)
}
