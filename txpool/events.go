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

import "github.com/ethereum/go-ethereum/common"

// TransactionEventKind is one transition a transaction can undergo.
type TransactionEventKind uint8

const (
	EventPending TransactionEventKind = iota
	EventQueued
	EventMined
	EventReplaced
	EventDiscarded
	EventPropagated
)

func (k TransactionEventKind) String() string {
	switch k {
	case EventPending:
		return "pending"
	case EventQueued:
		return "queued"
	case EventMined:
		return "mined"
	case EventReplaced:
		return "replaced"
	case EventDiscarded:
		return "discarded"
	case EventPropagated:
		return "propagated"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether this event kind ends a per-hash subscription:
// the stream terminates on the first terminal event (Mined, Discarded, or
// Replaced).
func (k TransactionEventKind) IsTerminal() bool {
	switch k {
	case EventMined, EventDiscarded, EventReplaced:
		return true
	default:
		return false
	}
}

// TransactionEvent is one transition of one transaction, delivered to
// per-hash and all-events listeners.
type TransactionEvent struct {
	Kind TransactionEventKind

	// BlockHash is set only for EventMined.
	BlockHash common.Hash
	// ReplacedBy is set only for EventReplaced: the hash of the
	// transaction that replaced this one.
	ReplacedBy common.Hash
	// Peers is set only for EventPropagated.
	Peers []common.Address
}

// FullTransactionEvent is a TransactionEvent tagged with the hash it
// concerns, the shape delivered to the all-events listener.
type FullTransactionEvent struct {
	Hash  common.Hash
	Event TransactionEvent
}

// NewTransactionEvent is delivered to new-transaction listeners on every
// admission, regardless of which sub-pool the transaction landed in.
type NewTransactionEvent struct {
	SubPool     SubPool
	Transaction *ValidPoolTransaction
}
