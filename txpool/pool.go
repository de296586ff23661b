// Copyright 2024 The protecc-labs Authors
// This file is part of the protecc-labs library.
//
// The protecc-labs library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The protecc-labs library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the protecc-labs library. If not, see <http://www.gnu.org/licenses/>.

package txpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
)

// Pool is the public facade: a single engine protected by a read-write
// lock, with listener dispatch always deferred until after the lock is
// released. Embedders talk to the pool exclusively through this type.
type Pool struct {
	mu sync.RWMutex

	ids       *Identifiers
	engine    *engine
	validator TransactionValidator
	listeners *listeners
	metrics   *poolMetrics

	now func() time.Time
}

// New constructs an empty Pool. config is sanitized (zero fields replaced
// with defaults) before use.
func New(config PoolConfig, ordering TransactionOrdering, validator TransactionValidator) *Pool {
	if ordering == nil {
		ordering = GasCostOrdering{}
	}
	ids := NewIdentifiers()
	return &Pool{
		ids:       ids,
		engine:    newEngine(ids, config.Sanitize(), ordering),
		validator: validator,
		listeners: newListeners(),
		metrics:   newPoolMetrics(),
		now:       time.Now,
	}
}

// Close tears down the pool's broadcast subscriptions.
func (p *Pool) Close() {
	p.listeners.Close()
}

// AddTransaction validates and admits a single transaction, returning its
// hash on success.
func (p *Pool) AddTransaction(ctx context.Context, origin TransactionOrigin, tx PoolTransaction) (common.Hash, error) {
	hash := tx.Hash()
	outcome := p.validator.Validate(ctx, origin, tx)
	switch outcome.Kind {
	case ValidationInvalid:
		return hash, &InvalidTransactionError{Hash: hash, Reason: outcome.Reason}
	case ValidationError:
		return hash, &OtherError{Hash: hash, Cause: errors.New(outcome.Reason)}
	}

	senderId := p.ids.SenderIdOrCreate(outcome.Sender)
	propagate := outcome.Propagate && origin != Private
	valid := NewValidPoolTransaction(outcome.Transaction, senderId, origin, propagate, estimateEncodedLength(outcome.Transaction), p.now())

	p.mu.Lock()
	p.engine.senders[senderId] = SenderInfo{StateNonce: outcome.StateNonce, Balance: outcome.Balance}
	batch, err := p.engine.addTransaction(valid)
	p.refreshSizeMetricsLocked()
	p.mu.Unlock()

	if err != nil {
		return hash, err
	}
	p.dispatch(batch)
	p.metrics.observeBatch(batch)
	return hash, nil
}

// refreshSizeMetricsLocked updates the occupancy gauges from the engine's
// current state. Callers must hold p.mu.
func (p *Pool) refreshSizeMetricsLocked() {
	p.metrics.setSizes(p.engine.pending.len(), p.engine.baseFee.len(), p.engine.queued.len())
}

// AddTransactions is the batched form of AddTransaction, admitting each
// transaction independently and returning one error per input (nil on
// success), in input order.
func (p *Pool) AddTransactions(ctx context.Context, origin TransactionOrigin, txs []PoolTransaction) []error {
	errs := make([]error, len(txs))
	for i, tx := range txs {
		_, err := p.AddTransaction(ctx, origin, tx)
		errs[i] = err
	}
	return errs
}

// AddTransactionAndSubscribe admits tx and atomically registers a per-hash
// listener for it, so the caller cannot miss the transition immediately
// following admission.
func (p *Pool) AddTransactionAndSubscribe(ctx context.Context, origin TransactionOrigin, tx PoolTransaction) (common.Hash, <-chan TransactionEvent, func(), error) {
	ch, cancel := p.listeners.SubscribeByHash(tx.Hash())
	hash, err := p.AddTransaction(ctx, origin, tx)
	if err != nil {
		cancel()
		return hash, nil, nil, err
	}
	return hash, ch, cancel, nil
}

// Get returns the resident transaction with the given hash, if any.
func (p *Pool) Get(hash common.Hash) (*ValidPoolTransaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tx := p.engine.all.byHash(func(v *ValidPoolTransaction) bool { return v.Hash() == hash })
	return tx, tx != nil
}

// GetAll returns every resident transaction across all three sub-pools, in
// no particular order.
func (p *Pool) GetAll() []*ValidPoolTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*ValidPoolTransaction, 0, p.engine.all.len())
	for _, tx := range p.engine.all.byId {
		out = append(out, tx)
	}
	return out
}

// GetTransactionsBySender returns every resident transaction for addr,
// ordered by ascending nonce.
func (p *Pool) GetTransactionsBySender(addr common.Address) []*ValidPoolTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.ids.SenderId(addr)
	if !ok {
		return nil
	}
	chain := p.engine.all.chainOf(id)
	out := make([]*ValidPoolTransaction, 0, len(chain.nonces))
	for _, n := range chain.nonces {
		if tx, ok := p.engine.all.get(TransactionId{Sender: id, Nonce: n}); ok {
			out = append(out, tx)
		}
	}
	return out
}

// PooledTransactionHashes returns every Pending transaction hash, used to
// answer wire protocol hash-announcement requests.
func (p *Pool) PooledTransactionHashes() []common.Hash {
	return p.PooledTransactionHashesMax(0)
}

// PooledTransactionHashesMax returns at most max Pending transaction
// hashes (all of them if max <= 0).
func (p *Pool) PooledTransactionHashesMax(max int) []common.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	items := p.engine.pending.snapshot()
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	out := make([]common.Hash, len(items))
	for i, tx := range items {
		out[i] = tx.Hash()
	}
	return out
}

// PendingTransactions returns every resident Pending transaction in
// descending priority order.
func (p *Pool) PendingTransactions() []*ValidPoolTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine.pending.snapshot()
}

// QueuedTransactions returns every resident Queued transaction.
func (p *Pool) QueuedTransactions() []*ValidPoolTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine.queued.snapshot()
}

// BaseFeeTransactions returns every resident BaseFee transaction.
func (p *Pool) BaseFeeTransactions() []*ValidPoolTransaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine.baseFee.snapshot()
}

// AllTransactions returns a snapshot of every resident transaction grouped
// by the sub-pool it currently occupies.
func (p *Pool) AllTransactions() (pending, baseFee, queued []*ValidPoolTransaction) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine.pending.snapshot(), p.engine.baseFee.snapshot(), p.engine.queued.snapshot()
}

// BestTransactions returns an iterator over a point-in-time snapshot of
// Pending in descending priority order.
func (p *Pool) BestTransactions() *BestTransactions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return newBestTransactions(p.engine.pending, nil)
}

// BestTransactionsWithBaseFee is BestTransactions additionally filtered to
// transactions whose fee cap clears minFeeCap. Each sender's chain is cut at
// its first transaction below minFeeCap; later nonces of that sender are
// not yielded even if their fee cap clears it.
func (p *Pool) BestTransactionsWithBaseFee(minFeeCap *uint256.Int) *BestTransactions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return newBestTransactions(p.engine.pending, minFeeCap)
}

// RemoveTransactions evicts every resident transaction named by hash,
// emitting a Discarded event for each that was actually resident.
func (p *Pool) RemoveTransactions(hashes []common.Hash) {
	p.mu.Lock()
	batch := p.engine.removeTransactions(hashes)
	p.refreshSizeMetricsLocked()
	p.mu.Unlock()
	p.dispatch(batch)
}

// RetainUnknown filters hashes down to those the pool does not currently
// hold, the shape needed to answer "which of these announced hashes do I
// still need to fetch" queries without leaking internal state.
func (p *Pool) RetainUnknown(hashes []common.Hash) []common.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := hashes[:0:0]
	for _, h := range hashes {
		if tx := p.engine.all.byHash(func(v *ValidPoolTransaction) bool { return v.Hash() == h }); tx == nil {
			out = append(out, h)
		}
	}
	return out
}

// PoolSize reports the resident count and byte size of each sub-pool.
type PoolSize struct {
	PendingCount int
	PendingBytes uint64
	BaseFeeCount int
	BaseFeeBytes uint64
	QueuedCount  int
	QueuedBytes  uint64
}

// PoolSize returns the current occupancy of every sub-pool.
func (p *Pool) PoolSize() PoolSize {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PoolSize{
		PendingCount: p.engine.pending.len(),
		PendingBytes: p.engine.pending.sizeBytes(),
		BaseFeeCount: p.engine.baseFee.len(),
		BaseFeeBytes: p.engine.baseFee.sizeBytes(),
		QueuedCount:  p.engine.queued.len(),
		QueuedBytes:  p.engine.queued.sizeBytes(),
	}
}

// BlockInfo returns the chain tip the pool currently classifies
// transactions against.
func (p *Pool) BlockInfo() BlockInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine.blockInfo()
}

// SetBlockInfo updates the tracked chain tip without processing a full
// canonical-state update, used during startup to seed the pool before the
// first block arrives.
func (p *Pool) SetBlockInfo(info BlockInfo) {
	p.mu.Lock()
	p.engine.setBlockInfo(info)
	p.mu.Unlock()
}

// UpdateAccounts refreshes sender state (nonce, balance) outside of a full
// canonical-state update, e.g. after speculatively simulating a block.
func (p *Pool) UpdateAccounts(accounts []ChangedAccount) {
	p.mu.Lock()
	for _, ca := range accounts {
		id := p.ids.SenderIdOrCreate(ca.Address)
		p.engine.senders[id] = SenderInfo{StateNonce: ca.Nonce, Balance: ca.Balance}
	}
	var result StateChangeResult
	batch := &eventBatch{}
	p.engine.reclassifyAll(batch, &result)
	p.refreshSizeMetricsLocked()
	p.mu.Unlock()
	p.dispatch(batch)
}

// OnCanonicalStateChange reconciles the pool with a newly canonical block:
// removing mined transactions, updating sender state, and reclassifying
// every remaining resident transaction against the new base fee.
func (p *Pool) OnCanonicalStateChange(update CanonicalStateUpdate) StateChangeResult {
	p.mu.Lock()
	batch, result := p.engine.onCanonicalStateChange(update)
	p.refreshSizeMetricsLocked()
	p.mu.Unlock()
	p.dispatch(batch)
	p.metrics.observeBatch(batch)
	p.metrics.observeReorg(len(update.MinedTransactions))
	return result
}

// UniqueSenders returns the number of distinct senders interned so far.
func (p *Pool) UniqueSenders() int {
	return p.ids.Len()
}

// OnPropagated records that hash was announced to peers, emitting a
// Propagated event to per-hash and all-events listeners.
func (p *Pool) OnPropagated(hash common.Hash, peers []common.Address) {
	p.listeners.notify(hash, TransactionEvent{Kind: EventPropagated, Peers: peers})
}

// SubscribePendingHashes registers a bounded listener for every hash
// entering Pending.
func (p *Pool) SubscribePendingHashes(kind PendingListenerKind) (<-chan common.Hash, func()) {
	return p.listeners.SubscribePendingHashes(kind)
}

// SubscribeNewTransactions registers a broadcast listener for every
// admitted transaction's sub-pool assignment.
func (p *Pool) SubscribeNewTransactions(ch chan<- NewTransactionEvent) event.Subscription {
	return p.listeners.SubscribeNewTransactions(ch)
}

// SubscribeAllEvents registers a broadcast listener for every per-hash
// transition of every resident transaction.
func (p *Pool) SubscribeAllEvents(ch chan<- FullTransactionEvent) event.Subscription {
	return p.listeners.SubscribeAllEvents(ch)
}

// SubscribeByHash registers a listener for one specific transaction's
// transitions, closed automatically on the first terminal event.
func (p *Pool) SubscribeByHash(hash common.Hash) (<-chan TransactionEvent, func()) {
	return p.listeners.SubscribeByHash(hash)
}

// dispatch fans batch out to every relevant listener. Must never be called
// while p.mu is held.
func (p *Pool) dispatch(batch *eventBatch) {
	if batch == nil {
		return
	}
	for _, he := range batch.hashEvents {
		p.listeners.notify(he.hash, he.evt)
	}
	for _, nt := range batch.newTxEvents {
		p.listeners.notifyNewTransaction(nt)
	}
	for _, pn := range batch.pendingHashes {
		p.listeners.notifyPending(pn.hash, pn.propagate)
	}
}

// estimateEncodedLength approximates a transaction's wire size for slot
// accounting. Embedders whose PoolTransaction also implements
// EncodedLength() uint64 override this via a type assertion; otherwise the
// calldata length plus a fixed envelope overhead is used.
func estimateEncodedLength(tx PoolTransaction) uint64 {
	if sized, ok := tx.(interface{ EncodedLength() uint64 }); ok {
		return sized.EncodedLength()
	}
	const envelopeOverhead = 128
	return uint64(len(tx.Data())) + envelopeOverhead
}
