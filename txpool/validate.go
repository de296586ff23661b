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

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ValidationKind distinguishes the three shapes a TransactionValidator may
// return.
type ValidationKind uint8

const (
	// ValidationValid means the transaction is currently valid on the
	// state the validator consulted.
	ValidationValid ValidationKind = iota
	// ValidationInvalid means the transaction can never become valid.
	ValidationInvalid
	// ValidationError means validation itself failed for an opaque reason
	// (state I/O error, etc.), distinct from the transaction being invalid.
	ValidationError
)

// ValidationOutcome is the result of TransactionValidator.Validate. Exactly
// one of the Valid/Invalid/Error branches is meaningful, selected by Kind.
type ValidationOutcome struct {
	Kind ValidationKind

	// Valid branch.
	Transaction PoolTransaction
	Sender      common.Address
	Balance     *uint256.Int
	StateNonce  uint64
	Propagate   bool

	// Invalid / Error branches.
	Hash   common.Hash
	Reason string
}

// TransactionValidator recovers a transaction's sender and checks it against
// live account state. It is the pool's sole source of truth for whether a
// transaction may be admitted; the pool core never inspects signatures or
// chain state itself. Validate may suspend on state I/O — it is the only
// suspension point in the whole admission path.
type TransactionValidator interface {
	Validate(ctx context.Context, origin TransactionOrigin, tx PoolTransaction) ValidationOutcome
}

// StateProviderFactory yields read-only account-state snapshots by block
// id. It is consumed by validators, not by the pool core or by the
// maintain package.
type StateProviderFactory interface {
	StateAt(blockHash common.Hash) (StateProvider, error)
}

// StateProvider is a read-only view of account state as of one block.
type StateProvider interface {
	AccountNonce(addr common.Address) (uint64, error)
	AccountBalance(addr common.Address) (*uint256.Int, error)
}
