// Package mempool is spec.md §4.4: transaction admission against unspent
// outputs, deduplication, and eviction. Grounded on node/sc/bridge_tx_pool.go
// (admission/eviction pool shape) and work/worker.go's ancestors/family/
// uncles set pattern, reused here for each entry's sent_to peer set.
package mempool

import (
	"errors"
	"sort"
	"sync"

	set "gopkg.in/fatih/set.v0"

	"github.com/solidusnet/solidus/coretypes"
	"github.com/solidusnet/solidus/log"
	"github.com/solidusnet/solidus/storage/database"
)

var mlog = log.NewModuleLogger("mempool")

// Error kinds (spec.md §7).
var (
	ErrDuplicateTransaction = errors.New("mempool: transaction already admitted")
	ErrInputSpent           = errors.New("mempool: input already spent on the main chain")
	ErrInputReused          = errors.New("mempool: using an input used by another transaction in this block")
)

// ChainLookup resolves a transaction id to its confirmed main-chain
// transaction, whose total output value feeds the value-conservation check
// at admission time. Spentness is checked separately via the store's
// IsInputSpent.
type ChainLookup interface {
	FindTransaction(id string) (*coretypes.Transaction, uint64, bool)
}

// entry is spec.md §3's Mempool entry: a Transaction plus the set of peers
// already informed of it.
type entry struct {
	tx     coretypes.Transaction
	sentTo *set.Set
}

// Mempool holds admitted, unconfirmed transactions.
type Mempool struct {
	mu      sync.RWMutex
	store   database.Manager
	chain   ChainLookup
	entries map[string]*entry
	// spentInPool tracks inputs claimed by entries still in the pool, to
	// reject a second transaction spending the same input (spec.md §4.4,
	// §8 scenario 5).
	spentInPool map[string]string // input id -> owning tx id
}

// New builds a Mempool backed by store for persistence and chain for
// spentness checks against the main chain.
func New(store database.Manager, chain ChainLookup) *Mempool {
	return &Mempool{
		store:       store,
		chain:       chain,
		entries:     make(map[string]*entry),
		spentInPool: make(map[string]string),
	}
}

// Admit verifies tx, rejects duplicates and conflicting spends, and if
// accepted adds it to the pool and persists it (spec.md §4.4). On rejection
// the reason is recorded in the failed-transactions sink (spec.md §7).
func (m *Mempool) Admit(tx coretypes.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[tx.ID]; exists {
		return nil // idempotent re-delivery (spec.md §8 Idempotence)
	}

	lookup := func(id string) (float64, bool) {
		if confirmedTx, _, ok := m.chain.FindTransaction(id); ok {
			return confirmedTx.OutputTotal(), true
		}
		if pending, ok := m.entries[id]; ok {
			return pending.tx.OutputTotal(), true
		}
		return 0, false
	}

	if err := tx.Verify(lookup); err != nil {
		m.reject(tx, err.Error())
		return err
	}

	for _, in := range tx.Inputs {
		if m.store.IsInputSpent(in.ID) {
			m.reject(tx, ErrInputSpent.Error())
			return ErrInputSpent
		}
		if owner, claimed := m.spentInPool[in.ID]; claimed && owner != tx.ID {
			m.reject(tx, ErrInputReused.Error())
			return ErrInputReused
		}
	}

	for _, in := range tx.Inputs {
		m.spentInPool[in.ID] = tx.ID
	}
	m.entries[tx.ID] = &entry{tx: tx, sentTo: set.New()}
	if err := m.store.UpsertMempoolTx(&tx); err != nil {
		mlog.Error("failed to persist mempool transaction", "id", tx.ID, "err", err)
		return err
	}
	return nil
}

func (m *Mempool) reject(tx coretypes.Transaction, reason string) {
	if err := m.store.AppendFailedTransaction(&tx, reason); err != nil {
		mlog.Error("failed to record rejected transaction", "id", tx.ID, "err", err)
	}
}

// EvictIncluded removes entries whose ids match a just-integrated block's
// transactions (spec.md §4.3, §4.4, engine.MempoolEvictor).
func (m *Mempool) EvictIncluded(txIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range txIDs {
		m.evictLocked(id)
	}
}

func (m *Mempool) evictLocked(id string) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	for _, in := range e.tx.Inputs {
		if owner := m.spentInPool[in.ID]; owner == id {
			delete(m.spentInPool, in.ID)
		}
	}
	delete(m.entries, id)
	if err := m.store.DeleteMempoolTx(id); err != nil {
		mlog.Error("failed to delete mempool transaction", "id", id, "err", err)
	}
}

// Get returns an admitted transaction by id.
func (m *Mempool) Get(id string) (coretypes.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return coretypes.Transaction{}, false
	}
	return e.tx, true
}

// TopByFee returns admitted transactions ordered by descending fee, the
// ordering spec.md §4.4 requires for block construction.
func (m *Mempool) TopByFee() []coretypes.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txs := make([]coretypes.Transaction, 0, len(m.entries))
	for _, e := range m.entries {
		txs = append(txs, e.tx)
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Fee > txs[j].Fee })
	return txs
}

// MarkSentTo records that peerRID has already been informed of tx, so the
// gossip layer does not re-send it (spec.md §3 Mempool entry.sent_to).
func (m *Mempool) MarkSentTo(txID, peerRID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[txID]; ok {
		e.sentTo.Add(peerRID)
	}
}

// HasSentTo reports whether peerRID has already received tx.
func (m *Mempool) HasSentTo(txID, peerRID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[txID]
	if !ok {
		return false
	}
	return e.sentTo.Has(peerRID)
}

// Len returns the number of admitted transactions.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
