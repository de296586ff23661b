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
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// fakeTx is a minimal PoolTransaction used across the package's tests, so
// they do not need a real signed core/types.Transaction to exercise pool
// mechanics.
type fakeTx struct {
	hash     common.Hash
	nonce    uint64
	gas      uint64
	feeCap   int64
	tipCap   int64
	value    int64
	to       *common.Address
	data     []byte
}

func (f *fakeTx) Hash() common.Hash          { return f.hash }
func (f *fakeTx) Nonce() uint64              { return f.nonce }
func (f *fakeTx) Gas() uint64                { return f.gas }
func (f *fakeTx) GasFeeCap() *big.Int        { return big.NewInt(f.feeCap) }
func (f *fakeTx) GasTipCap() *big.Int        { return big.NewInt(f.tipCap) }
func (f *fakeTx) BlobGasFeeCap() *big.Int    { return big.NewInt(0) }
func (f *fakeTx) BlobHashes() []common.Hash  { return nil }
func (f *fakeTx) Type() uint8                { return 2 }
func (f *fakeTx) Value() *big.Int            { return big.NewInt(f.value) }
func (f *fakeTx) Data() []byte               { return f.data }
func (f *fakeTx) To() *common.Address        { return f.to }

var _ PoolTransaction = (*fakeTx)(nil)

// newFakeTx builds a fakeTx with a hash derived from sender+nonce so tests
// don't need to hand-pick distinct hashes.
func newFakeTx(sender byte, nonce uint64, feeCap, tipCap int64) *fakeTx {
	var h common.Hash
	h[0] = sender
	h[31] = byte(nonce)
	return &fakeTx{hash: h, nonce: nonce, gas: 21000, feeCap: feeCap, tipCap: tipCap}
}

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

// wrapValid builds a ValidPoolTransaction directly, bypassing validation,
// for tests that only exercise the sub-pool containers.
func wrapValid(tx *fakeTx, sender SenderId, origin TransactionOrigin) *ValidPoolTransaction {
	return NewValidPoolTransaction(tx, sender, origin, true, uint64(len(tx.data))+128, time.Now())
}

// stubValidator always reports the given outcome regardless of input,
// letting engine-level tests drive Pool.AddTransaction without a real
// state backend.
type stubValidator struct {
	outcome func(tx PoolTransaction) ValidationOutcome
}

func (s *stubValidator) Validate(_ context.Context, _ TransactionOrigin, tx PoolTransaction) ValidationOutcome {
	return s.outcome(tx)
}

// acceptingValidator returns a validator that accepts every transaction as
// valid, attributing it to sender with the given committed nonce/balance.
func acceptingValidator(sender common.Address, stateNonce uint64, balance *uint256.Int) *stubValidator {
	return &stubValidator{
		outcome: func(tx PoolTransaction) ValidationOutcome {
			return ValidationOutcome{
				Kind:       ValidationValid,
				Transaction: tx,
				Sender:      sender,
				Balance:     balance,
				StateNonce:  stateNonce,
				Propagate:   true,
			}
		},
	}
}
