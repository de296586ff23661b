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
	"sort"

	"github.com/holiman/uint256"
)

// senderChain tracks one sender's resident nonces in ascending order. The
// pool never holds more than MaxAccountSlots resident transactions per
// sender (invariant 8), so linear scans over a chain are cheap.
type senderChain struct {
	nonces []uint64 // sorted ascending, no duplicates
}

func (c *senderChain) insert(nonce uint64) {
	i := sort.Search(len(c.nonces), func(i int) bool { return c.nonces[i] >= nonce })
	if i < len(c.nonces) && c.nonces[i] == nonce {
		return
	}
	c.nonces = append(c.nonces, 0)
	copy(c.nonces[i+1:], c.nonces[i:])
	c.nonces[i] = nonce
}

func (c *senderChain) remove(nonce uint64) {
	i := sort.Search(len(c.nonces), func(i int) bool { return c.nonces[i] >= nonce })
	if i < len(c.nonces) && c.nonces[i] == nonce {
		c.nonces = append(c.nonces[:i], c.nonces[i+1:]...)
	}
}

func (c *senderChain) has(nonce uint64) bool {
	i := sort.Search(len(c.nonces), func(i int) bool { return c.nonces[i] >= nonce })
	return i < len(c.nonces) && c.nonces[i] == nonce
}

func (c *senderChain) empty() bool { return len(c.nonces) == 0 }

// gaplessFrom reports whether every nonce in [from, to) is resident, i.e.
// whether a transaction at nonce `to` is gapless from state `from`.
func (c *senderChain) gaplessFrom(from, to uint64) bool {
	for n := from; n < to; n++ {
		if !c.has(n) {
			return false
		}
	}
	return true
}

// allTransactions is the master index: TransactionId -> transaction, plus
// the per-sender nonce chains used to classify each transaction into a
// sub-pool.
type allTransactions struct {
	byId   map[TransactionId]*ValidPoolTransaction
	chains map[SenderId]*senderChain
}

func newAllTransactions() *allTransactions {
	return &allTransactions{
		byId:   make(map[TransactionId]*ValidPoolTransaction),
		chains: make(map[SenderId]*senderChain),
	}
}

func (a *allTransactions) chainOf(sender SenderId) *senderChain {
	c, ok := a.chains[sender]
	if !ok {
		c = &senderChain{}
		a.chains[sender] = c
	}
	return c
}

func (a *allTransactions) insert(tx *ValidPoolTransaction) {
	a.byId[tx.Id()] = tx
	a.chainOf(tx.Sender()).insert(tx.Nonce())
}

func (a *allTransactions) remove(id TransactionId) (*ValidPoolTransaction, bool) {
	tx, ok := a.byId[id]
	if !ok {
		return nil, false
	}
	delete(a.byId, id)
	if c, ok := a.chains[id.Sender]; ok {
		c.remove(id.Nonce)
		if c.empty() {
			delete(a.chains, id.Sender)
		}
	}
	return tx, true
}

func (a *allTransactions) get(id TransactionId) (*ValidPoolTransaction, bool) {
	tx, ok := a.byId[id]
	return tx, ok
}

func (a *allTransactions) contains(id TransactionId) bool {
	_, ok := a.byId[id]
	return ok
}

func (a *allTransactions) byHash(hash func(*ValidPoolTransaction) bool) *ValidPoolTransaction {
	for _, tx := range a.byId {
		if hash(tx) {
			return tx
		}
	}
	return nil
}

func (a *allTransactions) len() int { return len(a.byId) }

// cumulativeCost sums gasLimit*feeCap+value over every resident transaction
// of sender with nonce in [state_nonce, uptoNonce], the running total the
// funds-gap check compares against the sender's balance.
func (a *allTransactions) cumulativeCost(sender SenderId, stateNonce, uptoNonce uint64) *uint256.Int {
	total := uint256.NewInt(0)
	chain := a.chainOf(sender)
	for _, n := range chain.nonces {
		if n < stateNonce || n > uptoNonce {
			continue
		}
		if tx, ok := a.byId[TransactionId{Sender: sender, Nonce: n}]; ok {
			total.Add(total, tx.Cost())
		}
	}
	return total
}

// classify implements the four-step sub-pool assignment rule for one
// transaction, given the sender's committed state and the pool's current
// pending base fee.
func (a *allTransactions) classify(tx *ValidPoolTransaction, info SenderInfo, baseFee *uint256.Int) SubPool {
	sender := tx.Sender()
	nonce := tx.Nonce()

	// 1. Gap check: every nonce in [state_nonce, nonce) must be resident.
	if !a.chainOf(sender).gaplessFrom(info.StateNonce, nonce) {
		return Queued
	}
	// 2. Funds check: cumulative cost through this nonce must not exceed
	// the sender's committed balance.
	cum := a.cumulativeCost(sender, info.StateNonce, nonce)
	balance := info.Balance
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	if cum.Cmp(balance) > 0 {
		return Queued
	}
	// 3. Fee-cap check: must clear the pool's tracked pending base fee to
	// be immediately executable.
	if baseFee != nil && tx.GasFeeCap().Cmp(baseFee) < 0 {
		return BaseFee
	}
	// 4. Otherwise it is immediately executable.
	return Pending
}
