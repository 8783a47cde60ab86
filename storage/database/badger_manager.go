package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/log"
)

var dbLog = log.NewModuleLogger("storage")

// Key prefixes, mirroring the teacher's ReadX/WriteX paired-key convention
// (storage/database/db_manager.go) but collapsed onto badger's flat
// keyspace instead of per-collection tables.
const (
	prefixBlockByIndex = "b/i/"
	prefixBlockByHash  = "b/h/"
	prefixMempoolTx    = "m/"
	prefixStagedBlock  = "c/"
	prefixShare        = "s/"
)

// badgerManager is the Manager implementation backing blocks, mempool,
// consensus staging and shares in a single embedded badger.DB, with
// in-memory secondary indexes rebuilt at Open and kept in sync on write.
// Grounded on storage/database/badger_database.go.
type badgerManager struct {
	mu sync.RWMutex

	db     *badger.DB
	failed *leveldb.DB // append-only failed_transactions sink

	// secondary indexes
	headIndex    uint64
	haveHead     bool
	txIndex      map[string]txLocation         // tx id -> owning block
	outputsTo    map[string][]coretypes.Output // address -> outputs received
	stagedByHash map[string]stagedKey          // block hash -> staging key
	hashIndex    map[string]uint64             // block hash -> index
	spentInputs  map[string]uint64             // input id -> owning block index
}

type txLocation struct {
	blockIndex uint64
	tx         coretypes.Transaction
}

type stagedKey struct {
	signature string
	peerRID   string
}

// Open creates or reopens a storage manager rooted at dir, with the
// failed-transactions log kept as a separate goleveldb instance under
// dir/failed (spec.md §6: "append-only diagnostic").
func Open(dir string) (Manager, error) {
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}

	failed, err := leveldb.OpenFile(dir+"/failed", nil)
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("storage: open failed-tx log: %w", err)
	}

	m := &badgerManager{
		db:           bdb,
		failed:       failed,
		txIndex:      make(map[string]txLocation),
		outputsTo:    make(map[string][]coretypes.Output),
		stagedByHash: make(map[string]stagedKey),
		hashIndex:    make(map[string]uint64),
		spentInputs:  make(map[string]uint64),
	}
	if err := m.rebuildIndexes(); err != nil {
		bdb.Close()
		failed.Close()
		return nil, err
	}
	return m, nil
}

func (m *badgerManager) rebuildIndexes() error {
	return m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefixBlockByIndex)); it.ValidForPrefix([]byte(prefixBlockByIndex)); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var b coretypes.Block
				if err := json.Unmarshal(val, &b); err != nil {
					return err
				}
				m.indexBlockLocked(&b)
				return nil
			})
			if err != nil {
				return err
			}
		}
		it2 := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it2.Close()
		for it2.Seek([]byte(prefixStagedBlock)); it2.ValidForPrefix([]byte(prefixStagedBlock)); it2.Next() {
			item := it2.Item()
			err := item.Value(func(val []byte) error {
				var entry stagedEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				m.stagedByHash[entry.Block.Hash] = stagedKey{signature: entry.Block.Signature, peerRID: entry.PeerRID}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *badgerManager) indexBlockLocked(b *coretypes.Block) {
	if !m.haveHead || b.Index > m.headIndex {
		m.headIndex = b.Index
		m.haveHead = true
	}
	m.hashIndex[b.Hash] = b.Index
	for _, tx := range b.Transactions {
		m.txIndex[tx.ID] = txLocation{blockIndex: b.Index, tx: tx}
		for _, out := range tx.Outputs {
			m.outputsTo[out.To] = append(m.outputsTo[out.To], out)
		}
		for _, in := range tx.Inputs {
			m.spentInputs[in.ID] = b.Index
		}
	}
}

func (m *badgerManager) Close() error {
	err1 := m.db.Close()
	err2 := m.failed.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// --- blocks ---

func (m *badgerManager) WriteBlock(b *coretypes.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, err := json.Marshal(b)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(fmt.Sprintf("%s%020d", prefixBlockByIndex, b.Index)), blob)
	})
	if err != nil {
		return err
	}
	m.indexBlockLocked(b)
	return nil
}

// IsInputSpent reports whether inputID has already been consumed by a
// transaction input in some block on the main chain, the spec.md §4.4
// admission check "no input previously spent in the main chain".
func (m *badgerManager) IsInputSpent(inputID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, spent := m.spentInputs[inputID]
	return spent
}

func (m *badgerManager) ReadBlockByIndex(index uint64) (*coretypes.Block, bool) {
	var b coretypes.Block
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fmt.Sprintf("%s%020d", prefixBlockByIndex, index)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &b) })
	})
	if err != nil {
		return nil, false
	}
	return &b, true
}

// ReadBlockByHash resolves hash through the in-memory hashIndex (kept live
// by indexBlockLocked on every WriteBlock and rebuilt from the by-index scan
// in rebuildIndexes at Open) before falling through to the canonical
// by-index read, so a lookup costs one map access plus one badger Get
// regardless of chain length.
func (m *badgerManager) ReadBlockByHash(hash string) (*coretypes.Block, bool) {
	m.mu.RLock()
	index, ok := m.hashIndex[hash]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.ReadBlockByIndex(index)
}

func (m *badgerManager) DeleteBlocksFromIndex(fromIndex uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	head, ok := m.headIndexLocked()
	if !ok || fromIndex > head {
		return nil
	}
	for i := fromIndex; i <= head; i++ {
		key := []byte(fmt.Sprintf("%s%020d", prefixBlockByIndex, i))
		if err := m.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return txn.Delete(key)
		}); err != nil {
			return err
		}
	}
	for hash, idx := range m.hashIndex {
		if idx >= fromIndex {
			delete(m.hashIndex, hash)
		}
	}
	for id, idx := range m.spentInputs {
		if idx >= fromIndex {
			delete(m.spentInputs, id)
		}
	}
	if fromIndex == 0 {
		m.haveHead = false
		m.headIndex = 0
	} else {
		m.headIndex = fromIndex - 1
	}
	return nil
}

func (m *badgerManager) headIndexLocked() (uint64, bool) {
	return m.headIndex, m.haveHead
}

func (m *badgerManager) HeadIndex() (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.headIndexLocked()
}

func (m *badgerManager) FindTransaction(txID string) (*coretypes.Transaction, uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.txIndex[txID]
	if !ok {
		return nil, 0, false
	}
	tx := loc.tx
	return &tx, loc.blockIndex, true
}

func (m *badgerManager) OutputsTo(address string) []coretypes.Output {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]coretypes.Output, len(m.outputsTo[address]))
	copy(out, m.outputsTo[address])
	return out
}

// --- mempool ---

func (m *badgerManager) UpsertMempoolTx(tx *coretypes.Transaction) error {
	blob, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixMempoolTx+tx.ID), blob)
	})
}

func (m *badgerManager) DeleteMempoolTx(id string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(prefixMempoolTx + id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (m *badgerManager) GetMempoolTx(id string) (*coretypes.Transaction, bool) {
	var tx coretypes.Transaction
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixMempoolTx + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &tx) })
	})
	if err != nil {
		return nil, false
	}
	return &tx, true
}

func (m *badgerManager) ListMempoolTxsByFeeDesc() []coretypes.Transaction {
	var txs []coretypes.Transaction
	_ = m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixMempoolTx)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var tx coretypes.Transaction
				if err := json.Unmarshal(val, &tx); err != nil {
					return err
				}
				txs = append(txs, tx)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Fee > txs[j].Fee })
	return txs
}

// --- consensus staging ---

type stagedEntry struct {
	Block   coretypes.Block `json:"block"`
	PeerRID string          `json:"peer_rid"`
}

func stagingKey(signature, peerRID string) string {
	return prefixStagedBlock + signature + "/" + peerRID
}

func (m *badgerManager) UpsertStagedBlock(block *coretypes.Block, peerRID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := stagedEntry{Block: *block, PeerRID: peerRID}
	blob, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(stagingKey(block.Signature, peerRID)), blob)
	}); err != nil {
		return err
	}
	m.stagedByHash[block.Hash] = stagedKey{signature: block.Signature, peerRID: peerRID}
	return nil
}

func (m *badgerManager) GetStagedBlockByKey(signature, peerRID string) (*coretypes.Block, bool) {
	var entry stagedEntry
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stagingKey(signature, peerRID)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &entry) })
	})
	if err != nil {
		return nil, false
	}
	return &entry.Block, true
}

func (m *badgerManager) GetStagedBlockByHash(hash string) (*coretypes.Block, bool) {
	m.mu.RLock()
	key, ok := m.stagedByHash[hash]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return m.GetStagedBlockByKey(key.signature, key.peerRID)
}

func (m *badgerManager) ListStagedBlocksByPrevHash(prevHash string) []coretypes.Block {
	var blocks []coretypes.Block
	_ = m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixStagedBlock)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entry stagedEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				if entry.Block.PrevHash == prevHash {
					blocks = append(blocks, entry.Block)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return blocks
}

// --- shares ---

func shareKey(hash string) string { return prefixShare + hash }

func (m *badgerManager) UpsertShare(s *Share) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(shareKey(s.BlockHash)), blob)
	})
}

func (m *badgerManager) GetShareByHash(hash string) (*Share, bool) {
	var s Share
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(shareKey(hash)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &s) })
	})
	if err != nil {
		return nil, false
	}
	return &s, true
}

func (m *badgerManager) ListUnpaidSharesByAddress(address string, sincePayoutMarker int64) []Share {
	var shares []Share
	_ = m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixShare)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var s Share
				if err := json.Unmarshal(val, &s); err != nil {
					return err
				}
				if s.Address == address && !s.Paid && s.Time >= sincePayoutMarker {
					shares = append(shares, s)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return shares
}

func (m *badgerManager) MarkSharesPaid(hashes []string, payoutTime int64) error {
	for _, h := range hashes {
		s, ok := m.GetShareByHash(h)
		if !ok {
			continue
		}
		s.Paid = true
		s.PaidAt = payoutTime
		if err := m.UpsertShare(s); err != nil {
			return err
		}
	}
	return nil
}

// --- failed transactions ---

func (m *badgerManager) AppendFailedTransaction(tx *coretypes.Transaction, reason string) error {
	record := struct {
		Tx     coretypes.Transaction `json:"transaction"`
		Reason string                `json:"reason"`
	}{Tx: *tx, Reason: reason}

	blob, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := []byte(tx.ID + "/" + reason)
	if err := m.failed.Put(key, blob, nil); err != nil {
		dbLog.Error("failed to append failed-transaction record", "tx", tx.ID, "err", err)
		return err
	}
	return nil
}
