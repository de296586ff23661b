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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TransactionOrigin classifies where a transaction entered the pool from.
type TransactionOrigin uint8

const (
	// Local transactions were submitted by this node's own user (e.g. RPC).
	// They are exempt from spammer-style eviction and are always eligible
	// for propagation.
	Local TransactionOrigin = iota
	// External transactions arrived from the P2P network.
	External
	// Private transactions were submitted locally but must never be
	// announced to peers.
	Private
)

func (o TransactionOrigin) String() string {
	switch o {
	case Local:
		return "local"
	case External:
		return "external"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// IsLocal reports whether the origin exempts a transaction from spammer
// eviction paths, per spec invariant: Local and Private transactions both
// originate from this node's own user.
func (o TransactionOrigin) IsLocal() bool {
	return o == Local || o == Private
}

// SubPool identifies which of the three tiers a transaction currently
// resides in.
type SubPool uint8

const (
	// Pending transactions are executable on head state right now.
	Pending SubPool = iota
	// BaseFee transactions would be Pending but for a fee cap below the
	// pool's tracked pending base fee.
	BaseFee
	// Queued transactions have a nonce gap or are blocked by insufficient
	// sender balance.
	Queued
)

func (s SubPool) String() string {
	switch s {
	case Pending:
		return "pending"
	case BaseFee:
		return "basefee"
	case Queued:
		return "queued"
	default:
		return "unknown"
	}
}

// SenderInfo is the on-chain committed state for one sender, as last
// observed. It is set from the validator's outcome by Pool.AddTransaction,
// and by Pool.UpdateAccounts and Pool.OnCanonicalStateChange.
type SenderInfo struct {
	StateNonce uint64
	Balance    *uint256.Int
}

// BlockInfo describes the chain tip the pool currently classifies
// transactions against.
type BlockInfo struct {
	LastSeenBlockHash   common.Hash
	LastSeenBlockNumber uint64
	PendingBaseFee      *uint256.Int
}

// ChangedAccount is one account's new committed state, as delivered by a
// CanonicalStateUpdate.
type ChangedAccount struct {
	Address common.Address
	Nonce   uint64
	Balance *uint256.Int
}

// CanonicalStateUpdate is the input to Pool.OnCanonicalStateChange: the
// full set of changes required to reflect a newly canonical block.
type CanonicalStateUpdate struct {
	BlockHash         common.Hash
	BlockNumber       uint64
	PendingBaseFee    *uint256.Int
	Timestamp         uint64
	ChangedAccounts   []ChangedAccount
	MinedTransactions []common.Hash
}

// StateChangeResult summarizes the effect of one OnCanonicalStateChange
// call, for callers that want a synchronous summary in addition to the
// asynchronous listener events.
type StateChangeResult struct {
	BlockHash common.Hash
	Mined     []common.Hash
	Promoted  []common.Hash
	Discarded []common.Hash
}
