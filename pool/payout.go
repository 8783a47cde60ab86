package pool

// PayoutEntry is one address's aggregated unpaid share total as of a payout
// run, the unit the mempool/transaction layer turns into an actual payment
// (pool payout accounting is supplemented from the original miningpool payer
// task; constructing the payment transaction itself is out of this
// package's scope).
type PayoutEntry struct {
	Address string
	Shares  int
	Hashes  []string
}

// Pay aggregates every unpaid share per address since the last payout
// marker, returning one PayoutEntry per payee and marking those shares paid.
// now is the wall-clock time of this run, becoming the new marker. addresses
// is the set of payees to check; the caller (the scheduler's pool-payer
// task) supplies it from its known miner registrations, since shares carry
// no separate address index (spec.md §5: "pool payer" runs every 120s).
func (p *Pool) Pay(addresses []string, now int64) ([]PayoutEntry, error) {
	p.mu.Lock()
	since := p.payoutMarker
	p.mu.Unlock()

	entries := make([]PayoutEntry, 0, len(addresses))
	var paidHashes []string

	for _, addr := range addresses {
		shares := p.store.ListUnpaidSharesByAddress(addr, since)
		if len(shares) == 0 {
			continue
		}
		hashes := make([]string, len(shares))
		for i, s := range shares {
			hashes[i] = s.BlockHash
		}
		entries = append(entries, PayoutEntry{
			Address: addr,
			Shares:  len(shares),
			Hashes:  hashes,
		})
		paidHashes = append(paidHashes, hashes...)
	}

	if len(paidHashes) > 0 {
		if err := p.store.MarkSharesPaid(paidHashes, now); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	p.payoutMarker = now
	p.mu.Unlock()

	return entries, nil
}
