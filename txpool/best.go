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
	"container/heap"

	"github.com/holiman/uint256"
)

// BestTransactions iterates a point-in-time snapshot of the Pending
// sub-pool in descending priority order, honoring strict per-sender nonce
// ordering: a sender's nonce N+1 is never yielded before nonce N. It does
// not observe transactions added to the pool after it was constructed.
//
// Only each sender's lowest unconsumed nonce is ever a candidate: the rest
// of a sender's chain is held back in queues and only admitted to the
// ready heap once its predecessor has been yielded.
type BestTransactions struct {
	queues  map[SenderId][]*pendingItem // remaining, ascending nonce; head mirrors the ready heap
	ready   bestHeap
	blocked map[SenderId]bool
}

// newBestTransactions snapshots pending, grouped by sender, and seeds the
// ready heap with each sender's lowest nonce. baseFee, if non-nil,
// truncates each sender's chain at the first transaction whose fee cap
// would not clear it, and every nonce after it — none of them could
// execute before an unexecutable predecessor — the "WithBaseFee" variant
// of the iterator.
func newBestTransactions(pending *pendingPool, baseFee *uint256.Int) *BestTransactions {
	b := &BestTransactions{
		queues:  make(map[SenderId][]*pendingItem),
		blocked: make(map[SenderId]bool),
	}
	for sender, items := range pending.bySenderAscending() {
		if baseFee != nil {
			for i, item := range items {
				if item.tx.GasFeeCap().Cmp(baseFee) < 0 {
					items = items[:i]
					break
				}
			}
		}
		if len(items) == 0 {
			continue
		}
		b.queues[sender] = items
		b.pushHead(sender)
	}
	return b
}

// pushHead admits sender's current queue head to the ready heap.
func (b *BestTransactions) pushHead(sender SenderId) {
	items := b.queues[sender]
	if len(items) == 0 {
		delete(b.queues, sender)
		return
	}
	heap.Push(&b.ready, items[0])
}

// advance drops sender's consumed head and admits its successor, if any.
func (b *BestTransactions) advance(sender SenderId) {
	items := b.queues[sender]
	if len(items) == 0 {
		return
	}
	b.queues[sender] = items[1:]
	b.pushHead(sender)
}

// Next returns the next transaction in priority order, or nil when the
// snapshot is exhausted. Once a sender's transaction is marked invalid via
// MarkInvalid, every later transaction from that sender is skipped for the
// remainder of this iterator's life (gapless execution: a later nonce can
// never be included once an earlier one is dropped).
func (b *BestTransactions) Next() *ValidPoolTransaction {
	for b.ready.Len() > 0 {
		top := heap.Pop(&b.ready).(*pendingItem)
		sender := top.tx.Sender()
		b.advance(sender)
		if b.blocked[sender] {
			continue
		}
		return top.tx
	}
	return nil
}

// MarkInvalid excludes tx and every later-nonce transaction from the same
// sender from the remainder of this iteration. Callers use this when a
// candidate transaction turns out to not fit the block being built (e.g.
// insufficient remaining gas), so that subsequent nonces from the same
// sender — which can no longer execute gaplessly — are not offered either.
func (b *BestTransactions) MarkInvalid(tx *ValidPoolTransaction) {
	b.blocked[tx.Sender()] = true
}

// Peek returns the next transaction without consuming it, or nil if the
// iterator is exhausted. Entries from an already-blocked sender are
// discarded as encountered, same as Next would, since they can never be
// returned.
func (b *BestTransactions) Peek() *ValidPoolTransaction {
	for b.ready.Len() > 0 {
		top := b.ready[0]
		sender := top.tx.Sender()
		if !b.blocked[sender] {
			return top.tx
		}
		heap.Pop(&b.ready)
		b.advance(sender)
	}
	return nil
}

// bestHeap orders pendingItems by Priority, highest priority at the top.
type bestHeap []*pendingItem

func (h bestHeap) Len() int            { return len(h) }
func (h bestHeap) Less(i, j int) bool  { return h[i].priority.Less(h[j].priority) }
func (h bestHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *bestHeap) Push(x interface{}) { *h = append(*h, x.(*pendingItem)) }
func (h *bestHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
