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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// subPoolStore is the common shape of the three sub-pool containers, letting
// the engine manipulate whichever one a transaction currently occupies
// without a type switch at every call site.
type subPoolStore interface {
	insert(tx *ValidPoolTransaction)
	remove(id TransactionId) (*ValidPoolTransaction, bool)
	worst() (*ValidPoolTransaction, bool)
	worstEvictable(isExempt func(*ValidPoolTransaction) bool) (*ValidPoolTransaction, bool)
	len() int
	sizeBytes() uint64
}

// hashEvent pairs a per-hash TransactionEvent with the hash it concerns, the
// shape the engine batches up for the facade to fan out once its lock is
// released.
type hashEvent struct {
	hash common.Hash
	evt  TransactionEvent
}

type pendingNotice struct {
	hash      common.Hash
	propagate bool
}

// eventBatch accumulates everything one engine call produced, so the facade
// can notify listeners after dropping its write lock: dispatch never
// happens while the internal engine is locked.
type eventBatch struct {
	hashEvents    []hashEvent
	newTxEvents   []NewTransactionEvent
	pendingHashes []pendingNotice
}

func (b *eventBatch) addHashEvent(hash common.Hash, evt TransactionEvent) {
	b.hashEvents = append(b.hashEvents, hashEvent{hash: hash, evt: evt})
}

func (b *eventBatch) addNewTx(sp SubPool, tx *ValidPoolTransaction) {
	b.newTxEvents = append(b.newTxEvents, NewTransactionEvent{SubPool: sp, Transaction: tx})
	if sp == Pending {
		b.pendingHashes = append(b.pendingHashes, pendingNotice{hash: tx.Hash(), propagate: tx.Propagate()})
	}
}

// engine is the pool's internal, non-thread-safe core: the master index plus
// the three sub-pool containers and the bookkeeping needed to classify and
// reclassify transactions between them. Every exported Pool method takes the
// facade's lock, calls into engine, then fans out the returned eventBatch
// unlocked, keeping listener dispatch off the critical section.
type engine struct {
	ids     *Identifiers
	all     *allTransactions
	pending *pendingPool
	baseFee *parkedPool
	queued  *parkedPool

	senders  map[SenderId]SenderInfo
	location map[TransactionId]SubPool

	// locals is the set of senders who have ever submitted a Local or
	// Private transaction. Once a sender lands here it stays exempt from
	// spammer-style eviction for the lifetime of the pool, rather than
	// gating the exemption on a single transaction's own Origin field.
	locals mapset.Set[SenderId]

	config   PoolConfig
	ordering TransactionOrdering
	block    BlockInfo
}

func newEngine(ids *Identifiers, config PoolConfig, ordering TransactionOrdering) *engine {
	return &engine{
		ids:      ids,
		all:      newAllTransactions(),
		pending:  newPendingPool(ordering),
		baseFee:  newParkedPool(parkedBaseFee),
		queued:   newParkedPool(parkedQueued),
		senders:  make(map[SenderId]SenderInfo),
		location: make(map[TransactionId]SubPool),
		locals:   mapset.NewThreadUnsafeSet[SenderId](),
		config:   config,
		ordering: ordering,
	}
}

// isExempt reports whether tx must never be chosen by discardWorst: either
// this submission itself was Local/Private, or its sender has ever
// submitted a Local/Private transaction before.
func (e *engine) isExempt(tx *ValidPoolTransaction) bool {
	return tx.Origin().IsLocal() || e.locals.Contains(tx.Sender())
}

func (e *engine) storeFor(sp SubPool) subPoolStore {
	switch sp {
	case Pending:
		return e.pending
	case BaseFee:
		return e.baseFee
	default:
		return e.queued
	}
}

func (e *engine) limitFor(sp SubPool) SubPoolLimit {
	switch sp {
	case Pending:
		return e.config.PendingLimit
	case BaseFee:
		return e.config.BaseFeeLimit
	default:
		return e.config.QueuedLimit
	}
}

func (e *engine) senderInfo(id SenderId) SenderInfo {
	info, ok := e.senders[id]
	if !ok {
		return SenderInfo{Balance: uint256.NewInt(0)}
	}
	return info
}

func (e *engine) setBlockInfo(info BlockInfo) {
	info.PendingBaseFee = e.flooredBaseFee(info.PendingBaseFee)
	e.block = info
	e.pending.setBaseFee(info.PendingBaseFee)
}

// flooredBaseFee clamps baseFee to the configured protocol minimum, so a
// chain briefly reporting a base fee below the protocol's own floor never
// lets fee-cap classification or effective-tip priority drop under it.
func (e *engine) flooredBaseFee(baseFee *uint256.Int) *uint256.Int {
	floor := e.config.MinimalProtocolBaseFee
	if baseFee == nil {
		return floor
	}
	if floor != nil && baseFee.Cmp(floor) < 0 {
		return floor
	}
	return baseFee
}

func (e *engine) blockInfo() BlockInfo { return e.block }

// addTransaction admits tx, handling replacement of an existing transaction
// at the same TransactionId, the per-sender slot cap, sub-pool
// classification and worst-first eviction of whichever sub-pool the
// insertion (or a replacement's vacancy) left over its limit.
func (e *engine) addTransaction(tx *ValidPoolTransaction) (*eventBatch, error) {
	batch := &eventBatch{}
	id := tx.Id()

	info := e.senderInfo(tx.Sender())
	if tx.Nonce() < info.StateNonce {
		return nil, NewPoolError(tx.Hash(), ErrNonceTooLow)
	}

	if existing, ok := e.all.get(id); ok {
		if existing.Hash() == tx.Hash() {
			return nil, NewPoolError(tx.Hash(), ErrAlreadyImported)
		}
		if !priceBumpSatisfied(existing, tx, e.config.PriceBump) {
			return nil, NewPoolError(tx.Hash(), ErrReplacementUnderpriced)
		}
		e.removeOne(id, batch, TransactionEvent{Kind: EventReplaced, ReplacedBy: tx.Hash()})
	} else if chain := e.all.chainOf(tx.Sender()); chain.len() >= e.config.MaxAccountSlots {
		// Over the per-sender slot cap: make room by evicting this sender's
		// own worst (highest-nonce) resident transaction, unless the
		// incoming one would itself be that worst, or the resident is
		// exempt from eviction — then there is nothing to gain by evicting.
		worstNonce := chain.nonces[len(chain.nonces)-1]
		worstId := TransactionId{Sender: tx.Sender(), Nonce: worstNonce}
		worstTx, ok := e.all.get(worstId)
		if tx.Nonce() >= worstNonce || !ok || e.isExempt(worstTx) {
			return nil, NewPoolError(tx.Hash(), ErrSpammerExceededCap)
		}
		e.removeOne(worstId, batch, TransactionEvent{Kind: EventDiscarded})
	}

	if tx.Origin().IsLocal() {
		e.locals.Add(tx.Sender())
	}

	e.all.insert(tx)
	sp := e.all.classify(tx, info, e.block.PendingBaseFee)

	e.storeFor(sp).insert(tx)
	e.location[id] = sp

	batch.addNewTx(sp, tx)
	if sp == Pending {
		batch.addHashEvent(tx.Hash(), TransactionEvent{Kind: EventPending})
	} else {
		batch.addHashEvent(tx.Hash(), TransactionEvent{Kind: EventQueued})
	}

	e.discardWorst(sp, batch)
	return batch, nil
}

// removeOne deletes one resident transaction from every index and emits evt
// for it. It does not run eviction; callers that free up sub-pool space
// intentionally (replacement, mined removal) decide separately whether to
// follow up with discardWorst.
func (e *engine) removeOne(id TransactionId, batch *eventBatch, evt TransactionEvent) {
	tx, ok := e.all.remove(id)
	if !ok {
		return
	}
	if sp, ok := e.location[id]; ok {
		e.storeFor(sp).remove(id)
		delete(e.location, id)
	}
	batch.addHashEvent(tx.Hash(), evt)
}

// removeTransactions removes every resident transaction whose hash is in
// hashes, emitting EventDiscarded for each. Used by the facade's
// RemoveTransactions/RetainUnknown surface.
func (e *engine) removeTransactions(hashes []common.Hash) *eventBatch {
	batch := &eventBatch{}
	for _, hash := range hashes {
		if tx := e.all.byHash(func(v *ValidPoolTransaction) bool { return v.Hash() == hash }); tx != nil {
			e.removeOne(tx.Id(), batch, TransactionEvent{Kind: EventDiscarded})
		}
	}
	return batch
}

// discardWorst evicts resident, non-exempt transactions from sp's store
// until it is back within its configured limit. The Open Question of
// whether eviction compares across sub-pools is resolved in favor of
// per-sub-pool eviction only (DESIGN.md): each tier polices its own budget.
func (e *engine) discardWorst(sp SubPool, batch *eventBatch) {
	store := e.storeFor(sp)
	limit := e.limitFor(sp)
	for store.len() > limit.Count || store.sizeBytes() > limit.Bytes {
		worst, ok := store.worstEvictable(e.isExempt)
		if !ok {
			// Every resident transaction is Local/Private and exempt; the
			// pool is allowed to run over budget rather than evict a local
			// submission.
			return
		}
		e.all.remove(worst.Id())
		store.remove(worst.Id())
		delete(e.location, worst.Id())
		batch.addHashEvent(worst.Hash(), TransactionEvent{Kind: EventDiscarded})
	}
}

// onCanonicalStateChange reconciles the engine with a newly canonical block:
// mined transactions are removed, sender state is updated, stale nonces left
// behind by mining are pruned, and every remaining transaction is
// reclassified against the new base fee and sender states.
func (e *engine) onCanonicalStateChange(update CanonicalStateUpdate) (*eventBatch, StateChangeResult) {
	batch := &eventBatch{}
	result := StateChangeResult{BlockHash: update.BlockHash}

	for _, hash := range update.MinedTransactions {
		tx := e.all.byHash(func(v *ValidPoolTransaction) bool { return v.Hash() == hash })
		if tx == nil {
			continue
		}
		e.removeOne(tx.Id(), batch, TransactionEvent{Kind: EventMined, BlockHash: update.BlockHash})
		result.Mined = append(result.Mined, hash)
	}

	dirty := mapset.NewThreadUnsafeSet[SenderId]()
	for _, ca := range update.ChangedAccounts {
		id := e.ids.SenderIdOrCreate(ca.Address)
		if !dirty.Add(id) {
			// Duplicate entry for the same account within one update; the
			// first occurrence already applied, skip the rest.
			continue
		}
		e.senders[id] = SenderInfo{StateNonce: ca.Nonce, Balance: ca.Balance}
		e.pruneStaleNonces(id, ca.Nonce, batch)
	}

	e.setBlockInfo(BlockInfo{
		LastSeenBlockHash:   update.BlockHash,
		LastSeenBlockNumber: update.BlockNumber,
		PendingBaseFee:      update.PendingBaseFee,
	})

	e.reclassifyAll(batch, &result)
	return batch, result
}

// pruneStaleNonces drops any resident transaction for sender whose nonce is
// now below the chain's committed state nonce but that was not named in
// MinedTransactions (e.g. it was dropped by a conflicting transaction
// landing on-chain instead). These can never become valid again.
func (e *engine) pruneStaleNonces(sender SenderId, stateNonce uint64, batch *eventBatch) {
	chain := e.all.chainOf(sender)
	var stale []uint64
	for _, n := range chain.nonces {
		if n < stateNonce {
			stale = append(stale, n)
		}
	}
	for _, n := range stale {
		id := TransactionId{Sender: sender, Nonce: n}
		e.removeOne(id, batch, TransactionEvent{Kind: EventDiscarded})
	}
}

// reclassifyAll re-runs sub-pool classification for every resident
// transaction, moving it between containers and emitting a promotion
// (EventPending) or demotion (EventQueued) event whenever its tier changes,
// then re-applies each sub-pool's eviction budget.
func (e *engine) reclassifyAll(batch *eventBatch, result *StateChangeResult) {
	for id, tx := range e.all.byId {
		info := e.senderInfo(tx.Sender())
		newSp := e.all.classify(tx, info, e.block.PendingBaseFee)
		oldSp, tracked := e.location[id]
		if tracked && oldSp == newSp {
			continue
		}
		if tracked {
			e.storeFor(oldSp).remove(id)
		}
		e.storeFor(newSp).insert(tx)
		e.location[id] = newSp

		switch {
		case newSp == Pending && oldSp != Pending:
			batch.addHashEvent(tx.Hash(), TransactionEvent{Kind: EventPending})
			batch.pendingHashes = append(batch.pendingHashes, pendingNotice{hash: tx.Hash(), propagate: tx.Propagate()})
			result.Promoted = append(result.Promoted, tx.Hash())
		case newSp != Pending:
			batch.addHashEvent(tx.Hash(), TransactionEvent{Kind: EventQueued})
		}
	}

	for _, sp := range [...]SubPool{Pending, BaseFee, Queued} {
		before := len(batch.hashEvents)
		e.discardWorst(sp, batch)
		for _, he := range batch.hashEvents[before:] {
			if he.evt.Kind == EventDiscarded {
				result.Discarded = append(result.Discarded, he.hash)
			}
		}
	}
}

func (c *senderChain) len() int { return len(c.nonces) }

// priceBumpSatisfied reports whether replacement's fee cap and tip cap each
// exceed existing's by at least bumpPct percent.
func priceBumpSatisfied(existing, replacement *ValidPoolTransaction, bumpPct uint64) bool {
	if !meetsBump(existing.GasFeeCap(), replacement.GasFeeCap(), bumpPct) {
		return false
	}
	return meetsBump(existing.GasTipCap(), replacement.GasTipCap(), bumpPct)
}

func meetsBump(old, candidate *uint256.Int, bumpPct uint64) bool {
	min := new(uint256.Int).Mul(old, uint256.NewInt(100+bumpPct))
	min.Div(min, uint256.NewInt(100))
	return candidate.Cmp(min) >= 0
}
