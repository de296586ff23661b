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
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// SenderId is a dense, process-local integer standing in for a sender
// Address. Ids are assigned on first sight and never recycled or reused for
// a different address, so a SenderId can be used as a map key in place of
// the full 20-byte Address wherever that is cheaper.
type SenderId uint64

// TransactionId is the master key of the all-transactions index: a sender
// and a nonce. It is totally ordered, first by sender then by nonce.
type TransactionId struct {
	Sender SenderId
	Nonce  uint64
}

// Less reports whether id sorts before other under the lexicographic
// (Sender, Nonce) order used throughout the pool.
func (id TransactionId) Less(other TransactionId) bool {
	if id.Sender != other.Sender {
		return id.Sender < other.Sender
	}
	return id.Nonce < other.Nonce
}

// Identifiers interns Addresses into SenderIds. The mapping is monotone and
// append-only: once assigned, an id is never reassigned to a different
// address and an address never receives a second id.
type Identifiers struct {
	mu       sync.RWMutex
	byAddr   map[common.Address]SenderId
	byId     []common.Address
}

// NewIdentifiers returns an empty, ready-to-use identifier table.
func NewIdentifiers() *Identifiers {
	return &Identifiers{
		byAddr: make(map[common.Address]SenderId),
	}
}

// SenderIdOrCreate returns the existing id for addr, assigning the next
// available id if addr has not been seen before.
func (ids *Identifiers) SenderIdOrCreate(addr common.Address) SenderId {
	ids.mu.RLock()
	if id, ok := ids.byAddr[addr]; ok {
		ids.mu.RUnlock()
		return id
	}
	ids.mu.RUnlock()

	ids.mu.Lock()
	defer ids.mu.Unlock()
	if id, ok := ids.byAddr[addr]; ok {
		return id
	}
	id := SenderId(len(ids.byId))
	ids.byAddr[addr] = id
	ids.byId = append(ids.byId, addr)
	return id
}

// SenderId returns the id previously assigned to addr, if any.
func (ids *Identifiers) SenderId(addr common.Address) (SenderId, bool) {
	ids.mu.RLock()
	defer ids.mu.RUnlock()
	id, ok := ids.byAddr[addr]
	return id, ok
}

// Address returns the address that id was assigned to.
func (ids *Identifiers) Address(id SenderId) (common.Address, bool) {
	ids.mu.RLock()
	defer ids.mu.RUnlock()
	if int(id) >= len(ids.byId) {
		return common.Address{}, false
	}
	return ids.byId[id], true
}

// Len returns the number of distinct senders interned so far.
func (ids *Identifiers) Len() int {
	ids.mu.RLock()
	defer ids.mu.RUnlock()
	return len(ids.byId)
}
