// Package database is the storage adapter of spec.md §2/§6: a persistent KV
// store over the node's five semantic collections (blocks, mempool,
// consensus staging, shares, failed transactions), each indexed the way
// spec.md §6 "Persisted collections" calls for. The document database
// itself is an external collaborator per spec.md §1 ("abstracted as a
// KV+query store"); this package is the concrete KV+index implementation
// behind that interface, grounded on the teacher's storage/database.DBManager
// method-family-per-collection shape.
package database

import "github.com/solidusnet/solidus/coretypes"

// Manager is the full storage surface every other component depends on.
// One method family per spec.md §3 collection.
type Manager interface {
	Close() error

	// Blocks: indexed by {index unique, hash, transactions.id,
	// transactions.outputs.to} (spec.md §6).
	WriteBlock(b *coretypes.Block) error
	ReadBlockByIndex(index uint64) (*coretypes.Block, bool)
	ReadBlockByHash(hash string) (*coretypes.Block, bool)
	DeleteBlocksFromIndex(fromIndex uint64) error
	HeadIndex() (uint64, bool)
	// FindTransaction returns the block-scoped transaction and the owning
	// block's index; callers use it to resolve an input's funding
	// transaction and its output value. Spentness is IsInputSpent's job.
	FindTransaction(txID string) (*coretypes.Transaction, uint64, bool)
	// OutputsTo returns every output paid to an address across the chain,
	// the index spec.md §6 calls out (transactions.outputs.to).
	OutputsTo(address string) []coretypes.Output
	// IsInputSpent reports whether a transaction input id has already been
	// consumed by a transaction on the main chain (spec.md §4.4 admission
	// criterion "no input previously spent in the main chain").
	IsInputSpent(inputID string) bool

	// Mempool ("miner_transactions"): indexed by {id unique} (spec.md §6).
	UpsertMempoolTx(tx *coretypes.Transaction) error
	DeleteMempoolTx(id string) error
	GetMempoolTx(id string) (*coretypes.Transaction, bool)
	ListMempoolTxsByFeeDesc() []coretypes.Transaction

	// Consensus staging: indexed by {(signature, peer.rid) unique,
	// block.hash, index} (spec.md §3, §6).
	UpsertStagedBlock(block *coretypes.Block, peerRID string) error
	GetStagedBlockByHash(hash string) (*coretypes.Block, bool)
	GetStagedBlockByKey(signature, peerRID string) (*coretypes.Block, bool)
	ListStagedBlocksByPrevHash(prevHash string) []coretypes.Block

	// Shares: indexed by {hash unique, address, index} (spec.md §3, §6).
	UpsertShare(s *Share) error
	GetShareByHash(hash string) (*Share, bool)
	ListUnpaidSharesByAddress(address string, sincePayoutMarker int64) []Share
	MarkSharesPaid(hashes []string, payoutTime int64) error

	// FailedTransactions: append-only diagnostic (spec.md §6).
	AppendFailedTransaction(tx *coretypes.Transaction, reason string) error
}

// Share is spec.md §3's accounting unit for miner payout, unique by
// block_hash.
type Share struct {
	Address    string `json:"address"`
	BlockIndex uint64 `json:"block_index"`
	BlockHash  string `json:"block_hash"`
	Nonce      string `json:"nonce"`
	Time       int64  `json:"time"`
	Paid       bool   `json:"paid"`
	PaidAt     int64  `json:"paid_at,omitempty"`
}
