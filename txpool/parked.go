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

import "sort"

// parkedKind distinguishes the two ordering rules a parkedPool can use:
// BaseFee orders by ascending fee cap (so worst() surfaces the next
// promotion candidate when base fee drops); Queued orders by TransactionId
// per sender.
type parkedKind uint8

const (
	parkedBaseFee parkedKind = iota
	parkedQueued
)

// parkedPool is the shared container backing both the BaseFee and Queued
// sub-pools. Both are simple ordered sets keyed by TransactionId; they
// differ only in their comparator, so one generalized store covers both.
type parkedPool struct {
	kind  parkedKind
	byId  map[TransactionId]*ValidPoolTransaction
	count int
	bytes uint64
}

func newParkedPool(kind parkedKind) *parkedPool {
	return &parkedPool{
		kind: kind,
		byId: make(map[TransactionId]*ValidPoolTransaction),
	}
}

func (p *parkedPool) insert(tx *ValidPoolTransaction) {
	if _, exists := p.byId[tx.Id()]; exists {
		return
	}
	p.byId[tx.Id()] = tx
	p.count++
	p.bytes += tx.EncodedLength()
}

func (p *parkedPool) remove(id TransactionId) (*ValidPoolTransaction, bool) {
	tx, ok := p.byId[id]
	if !ok {
		return nil, false
	}
	delete(p.byId, id)
	p.count--
	p.bytes -= tx.EncodedLength()
	return tx, true
}

func (p *parkedPool) contains(id TransactionId) bool {
	_, ok := p.byId[id]
	return ok
}

func (p *parkedPool) get(id TransactionId) (*ValidPoolTransaction, bool) {
	tx, ok := p.byId[id]
	return tx, ok
}

func (p *parkedPool) len() int         { return p.count }
func (p *parkedPool) sizeBytes() uint64 { return p.bytes }

// less implements this pool's comparator between two resident
// transactions.
func (p *parkedPool) less(a, b *ValidPoolTransaction) bool {
	switch p.kind {
	case parkedBaseFee:
		if c := a.GasFeeCap().Cmp(b.GasFeeCap()); c != 0 {
			return c < 0
		}
		return a.Id().Less(b.Id())
	default: // parkedQueued
		return a.Id().Less(b.Id())
	}
}

// worst returns the minimum resident transaction under this pool's
// comparator: for BaseFee, the lowest fee cap (the next promotion
// candidate once base fee drops); for Queued, the earliest TransactionId.
func (p *parkedPool) worst() (*ValidPoolTransaction, bool) {
	var worst *ValidPoolTransaction
	for _, tx := range p.byId {
		if worst == nil || p.less(tx, worst) {
			worst = tx
		}
	}
	if worst == nil {
		return nil, false
	}
	return worst, true
}

// worstEvictable is worst restricted to transactions isExempt rejects; see
// pendingPool.worstEvictable.
func (p *parkedPool) worstEvictable(isExempt func(*ValidPoolTransaction) bool) (*ValidPoolTransaction, bool) {
	var worst *ValidPoolTransaction
	for _, tx := range p.byId {
		if isExempt(tx) {
			continue
		}
		if worst == nil || p.less(tx, worst) {
			worst = tx
		}
	}
	if worst == nil {
		return nil, false
	}
	return worst, true
}

// snapshot returns every resident transaction ordered by this pool's
// comparator.
func (p *parkedPool) snapshot() []*ValidPoolTransaction {
	out := make([]*ValidPoolTransaction, 0, len(p.byId))
	for _, tx := range p.byId {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return p.less(out[i], out[j]) })
	return out
}
