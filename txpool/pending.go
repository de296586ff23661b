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
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common/prque"
	"github.com/holiman/uint256"
)

// pendingItem is the value stored in the Pending priority queue; it keeps
// the Priority alongside the transaction so Worst() can be recomputed
// without touching the ordering strategy again.
type pendingItem struct {
	tx       *ValidPoolTransaction
	priority Priority
}

// pendingPool is the Pending sub-pool store: a priority queue ordered by the
// pool's TransactionOrdering, plus an index for O(1) membership and removal
// by TransactionId. The common/prque queue is keyed by effective tip and
// serves best(); worst() and worstEvictable() scan the id map instead.
type pendingPool struct {
	queue   *prque.Prque[int64, *pendingItem]
	byId    map[TransactionId]*pendingItem
	count   int
	bytes   uint64
	ordering TransactionOrdering
	baseFee  *uint256.Int
}

func newPendingPool(ordering TransactionOrdering) *pendingPool {
	return &pendingPool{
		queue:    prque.New[int64, *pendingItem](nil),
		byId:     make(map[TransactionId]*pendingItem),
		ordering: ordering,
	}
}

// setBaseFee updates the base fee used to compute effective tips for newly
// inserted transactions. Existing queue entries keep the priority they were
// inserted with. engine.reclassifyAll removes and reinserts only the
// transactions whose sub-pool changes, so a transaction that stays in
// Pending across a base-fee change keeps its earlier priority.
func (p *pendingPool) setBaseFee(baseFee *uint256.Int) { p.baseFee = baseFee }

func (p *pendingPool) insert(tx *ValidPoolTransaction) {
	prio := p.ordering.Priority(tx, p.baseFee)
	item := &pendingItem{tx: tx, priority: prio}
	p.byId[tx.Id()] = item
	p.queue.Push(item, saturateInt64(prio.tip))
	p.count++
	p.bytes += tx.EncodedLength()
}

func (p *pendingPool) remove(id TransactionId) (*ValidPoolTransaction, bool) {
	item, ok := p.byId[id]
	if !ok {
		return nil, false
	}
	delete(p.byId, id)
	p.count--
	p.bytes -= item.tx.EncodedLength()
	// The prque entry is left in place; best()/iteration skip stale entries
	// by checking byId membership, avoiding an O(n) heap removal.
	return item.tx, true
}

func (p *pendingPool) contains(id TransactionId) bool {
	_, ok := p.byId[id]
	return ok
}

func (p *pendingPool) get(id TransactionId) (*ValidPoolTransaction, bool) {
	item, ok := p.byId[id]
	if !ok {
		return nil, false
	}
	return item.tx, true
}

func (p *pendingPool) len() int        { return p.count }
func (p *pendingPool) sizeBytes() uint64 { return p.bytes }

// best returns the highest-priority resident transaction without removing
// it, skipping any stale heap entries left behind by remove().
func (p *pendingPool) best() (*ValidPoolTransaction, bool) {
	for !p.queue.Empty() {
		item, _ := p.queue.Peek()
		if cur, live := p.byId[item.tx.Id()]; !live || cur != item {
			p.queue.PopItem()
			continue
		}
		return item.tx, true
	}
	return nil, false
}

// worst returns the lowest-priority resident transaction, used by
// discard_worst. Pending has no reverse-ordered index, so this walks the
// id map; Pending is the smallest sub-pool in practice (bounded by
// PendingLimit) so this is acceptable and keeps the store simple.
func (p *pendingPool) worst() (*ValidPoolTransaction, bool) {
	var worstItem *pendingItem
	for _, item := range p.byId {
		if worstItem == nil || worstItem.priority.Less(item.priority) {
			worstItem = item
		}
	}
	if worstItem == nil {
		return nil, false
	}
	return worstItem.tx, true
}

// worstEvictable returns the lowest-priority resident transaction not
// excluded by isExempt (callers exclude Local/Private senders from
// spammer-style eviction). Returns false if every resident transaction is
// exempt, in which case the caller cannot make further progress shrinking
// this pool.
func (p *pendingPool) worstEvictable(isExempt func(*ValidPoolTransaction) bool) (*ValidPoolTransaction, bool) {
	var worstItem *pendingItem
	for _, item := range p.byId {
		if isExempt(item.tx) {
			continue
		}
		if worstItem == nil || worstItem.priority.Less(item.priority) {
			worstItem = item
		}
	}
	if worstItem == nil {
		return nil, false
	}
	return worstItem.tx, true
}

// snapshot returns every resident transaction in descending priority order.
// Used for inspection surfaces (PendingTransactions, hash announcements)
// that have no nonce-ordering requirement of their own.
func (p *pendingPool) snapshot() []*ValidPoolTransaction {
	items := make([]*pendingItem, 0, len(p.byId))
	for _, item := range p.byId {
		items = append(items, item)
	}
	sortPendingItems(items)
	out := make([]*ValidPoolTransaction, len(items))
	for i, item := range items {
		out[i] = item.tx
	}
	return out
}

func sortPendingItems(items []*pendingItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].priority.Less(items[j].priority)
	})
}

// bySenderAscending groups every resident transaction by sender, each
// sender's items ordered ascending by nonce and keeping the priority they
// were inserted with. Used to build a BestTransactions iterator that only
// ever offers a sender's lowest unconsumed nonce as a candidate, so that
// iteration honors gapless per-sender execution order.
func (p *pendingPool) bySenderAscending() map[SenderId][]*pendingItem {
	bySender := make(map[SenderId][]*pendingItem)
	for _, item := range p.byId {
		s := item.tx.Sender()
		bySender[s] = append(bySender[s], item)
	}
	for _, items := range bySender {
		sort.Slice(items, func(i, j int) bool { return items[i].tx.Nonce() < items[j].tx.Nonce() })
	}
	return bySender
}

func saturateInt64(v *uint256.Int) int64 {
	if v == nil {
		return 0
	}
	if v.BitLen() > 63 {
		return math.MaxInt64
	}
	return int64(v.Uint64())
}
