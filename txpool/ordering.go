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

import "github.com/holiman/uint256"

// Priority is a totally ordered score used to rank Pending transactions for
// block production. Higher sorts first.
type Priority struct {
	tip       *uint256.Int
	timestamp int64 // UnixNano; earlier is better
	id        TransactionId
}

// Less reports whether p should be yielded before other by
// best-transactions iteration.
func (p Priority) Less(other Priority) bool {
	if c := p.tip.Cmp(other.tip); c != 0 {
		return c > 0 // higher tip first
	}
	if p.timestamp != other.timestamp {
		return p.timestamp < other.timestamp // earlier submission first
	}
	// Equal tip and timestamp: the lower TransactionId goes first. Resident
	// transactions never share a TransactionId, so this makes the ordering
	// total and deterministic.
	return p.id.Less(other.id)
}

// TransactionOrdering is the pluggable strategy used to rank Pending
// transactions. Implementations must be pure functions of their inputs.
type TransactionOrdering interface {
	// Priority computes tx's score given the pool's current pending base
	// fee. baseFee may be nil before the pool has observed a block.
	Priority(tx *ValidPoolTransaction, baseFee *uint256.Int) Priority
}

// GasCostOrdering is the default TransactionOrdering: higher effective tip
// (given the current pending base fee) sorts higher, ties broken by earlier
// submission timestamp then lower TransactionId.
type GasCostOrdering struct{}

func (GasCostOrdering) Priority(tx *ValidPoolTransaction, baseFee *uint256.Int) Priority {
	return Priority{
		tip:       tx.EffectiveTip(baseFee),
		timestamp: tx.Timestamp().UnixNano(),
		id:        tx.Id(),
	}
}

var _ TransactionOrdering = GasCostOrdering{}
