// Package coretypes holds the canonical Block and Transaction model of
// spec.md §3, including self-verification (spec.md §4.1).
package coretypes

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/solidusnet/solidus/crypto"
	"github.com/solidusnet/solidus/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var txLog = log.NewModuleLogger("coretypes")

// Error kinds propagated by Transaction.Verify (spec.md §7).
var (
	ErrInvalidTransactionSignature    = errors.New("coretypes: invalid transaction signature")
	ErrTransactionInputOutputMismatch = errors.New("coretypes: input/output value mismatch")
	ErrDuplicateInput                 = errors.New("coretypes: input referenced more than once")
)

// Input references a prior transaction whose output(s) fund this one
// (spec.md §3 Transaction.inputs[]).
type Input struct {
	ID string `json:"id"`
}

// Output pays a value to a recipient address (spec.md §3 Transaction.outputs[]).
type Output struct {
	To    string  `json:"to"`
	Value float64 `json:"value"`
}

// Transaction is spec.md §3's fixed-schema value transfer, plus optional
// relationship metadata (opaque to this package; carried but never
// interpreted, per spec.md §1 Non-goals: "arbitrary transaction scripts").
type Transaction struct {
	ID                   string   `json:"id"`
	TransactionSignature string   `json:"transaction_signature"`
	PublicKey            string   `json:"public_key"`
	Address              string   `json:"address"`
	Inputs               []Input  `json:"inputs"`
	Outputs              []Output `json:"outputs"`
	Fee                  float64  `json:"fee"`
	Time                 int64    `json:"time"`

	RID          string `json:"rid,omitempty"`
	RequesterRID string `json:"requester_rid,omitempty"`
	RequestedRID string `json:"requested_rid,omitempty"`
	DHPublicKey  string `json:"dh_public_key,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// SigningPayload reconstructs the deterministic canonical byte string a
// transaction's signature covers: a fixed ordering of inputs, outputs, fee
// and rid fields (spec.md §4.1). Inputs/outputs are sorted by id/address so
// that re-ordering the slices never changes the signed payload.
func (tx *Transaction) SigningPayload() []byte {
	inputs := make([]string, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = in.ID
	}
	sort.Strings(inputs)

	outputs := make([]string, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputs[i] = fmt.Sprintf("%s:%s", out.To, strconv.FormatFloat(out.Value, 'f', -1, 64))
	}
	sort.Strings(outputs)

	payload := fmt.Sprintf("%s|%s|%s|%s|%d|%s|%s|%s|%s",
		tx.PublicKey,
		joinSorted(inputs),
		joinSorted(outputs),
		strconv.FormatFloat(tx.Fee, 'f', -1, 64),
		tx.Time,
		tx.RID,
		tx.RequesterRID,
		tx.RequestedRID,
		tx.DHPublicKey,
	)
	return []byte(payload)
}

func joinSorted(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// Sign fills in PublicKey, Address, ID and TransactionSignature from priv.
func (tx *Transaction) Sign(priv *crypto.PrivateKey) {
	pub := priv.Public()
	tx.PublicKey = pub.Hex()
	tx.Address = crypto.AddressFromPublicKey(pub)
	tx.TransactionSignature = crypto.Sign(priv, tx.SigningPayload())
	tx.ID = crypto.HashHex(tx.SigningPayload())
}

// InputLookup resolves a prior transaction's total output value, used by
// Verify to check value conservation and by the mempool/consensus engine to
// check spentness (kept outside Verify per spec.md §4.1: "Input-spentness is
// checked against the chain by a separate query and not inside verify()").
type InputLookup func(txID string) (outputTotal float64, found bool)

// Verify reconstructs the canonical signing payload, checks the signature,
// rejects duplicate inputs, and checks sum(inputs) == sum(outputs) + fee.
// It does NOT check spentness; callers run that separately against the
// chain (spec.md §4.1).
func (tx *Transaction) Verify(lookup InputLookup) error {
	pub, err := crypto.PublicKeyFromHex(tx.PublicKey)
	if err != nil {
		return ErrInvalidTransactionSignature
	}
	if !crypto.Verify(pub, tx.SigningPayload(), tx.TransactionSignature) {
		return ErrInvalidTransactionSignature
	}

	seen := make(map[string]struct{}, len(tx.Inputs))
	var inputTotal float64
	for _, in := range tx.Inputs {
		if _, dup := seen[in.ID]; dup {
			return ErrDuplicateInput
		}
		seen[in.ID] = struct{}{}

		value, found := lookup(in.ID)
		if !found {
			return ErrMissingInputTransaction
		}
		inputTotal += value
	}

	var outputTotal float64
	for _, out := range tx.Outputs {
		outputTotal += out.Value
	}

	if !floatsEqual(inputTotal, outputTotal+tx.Fee) {
		txLog.Debug("transaction value mismatch", "id", tx.ID, "in", inputTotal, "out", outputTotal, "fee", tx.Fee)
		return ErrTransactionInputOutputMismatch
	}
	return nil
}

// ErrMissingInputTransaction is returned when Verify's lookup cannot find a
// referenced input (spec.md §7 MissingInputTransaction).
var ErrMissingInputTransaction = errors.New("coretypes: missing input transaction")

func floatsEqual(a, b float64) bool {
	const epsilon = 1e-8
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < epsilon
}

// OutputTotal sums a transaction's own outputs, used by storage when
// recording the value a later transaction's input may spend.
func (tx *Transaction) OutputTotal() float64 {
	var total float64
	for _, out := range tx.Outputs {
		total += out.Value
	}
	return total
}
