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
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// PoolTransaction is the minimal surface the pool core needs from a
// validated transaction. github.com/ethereum/go-ethereum/core/types.Transaction
// already satisfies it; a consumer with its own wire type can adapt to it
// instead of being forced to depend on go-ethereum's RLP encoding.
type PoolTransaction interface {
	Hash() common.Hash
	Nonce() uint64
	Gas() uint64
	GasFeeCap() *big.Int
	GasTipCap() *big.Int
	BlobGasFeeCap() *big.Int
	BlobHashes() []common.Hash
	Type() uint8
	Value() *big.Int
	Data() []byte
	To() *common.Address
}

// ValidPoolTransaction wraps one validated transaction together with the
// pool-owned metadata admission and classification need. It is immutable
// after construction and is shared by reference across the master index,
// sub-pool containers and listener queues.
type ValidPoolTransaction struct {
	tx PoolTransaction

	id        TransactionId
	timestamp time.Time
	origin    TransactionOrigin
	propagate bool
	encLen    uint64

	feeCap     *uint256.Int
	tipCap     *uint256.Int
	blobFeeCap *uint256.Int
	value      *uint256.Int
}

// NewValidPoolTransaction constructs a ValidPoolTransaction from the tuple a
// TransactionValidator is expected to produce: the wrapped transaction, the
// sender's interned id, submission metadata, and encoded length.
func NewValidPoolTransaction(tx PoolTransaction, sender SenderId, origin TransactionOrigin, propagate bool, encodedLength uint64, now time.Time) *ValidPoolTransaction {
	return &ValidPoolTransaction{
		tx:         tx,
		id:         TransactionId{Sender: sender, Nonce: tx.Nonce()},
		timestamp:  now,
		origin:     origin,
		propagate:  propagate,
		encLen:     encodedLength,
		feeCap:     mustUint256(tx.GasFeeCap()),
		tipCap:     mustUint256(tx.GasTipCap()),
		blobFeeCap: mustUint256(tx.BlobGasFeeCap()),
		value:      mustUint256(tx.Value()),
	}
}

func (v *ValidPoolTransaction) Hash() common.Hash                  { return v.tx.Hash() }
func (v *ValidPoolTransaction) Id() TransactionId                  { return v.id }
func (v *ValidPoolTransaction) Sender() SenderId                   { return v.id.Sender }
func (v *ValidPoolTransaction) Nonce() uint64                      { return v.id.Nonce }
func (v *ValidPoolTransaction) Timestamp() time.Time               { return v.timestamp }
func (v *ValidPoolTransaction) Origin() TransactionOrigin          { return v.origin }
func (v *ValidPoolTransaction) Propagate() bool                    { return v.propagate }
func (v *ValidPoolTransaction) EncodedLength() uint64              { return v.encLen }
func (v *ValidPoolTransaction) Gas() uint64                        { return v.tx.Gas() }
func (v *ValidPoolTransaction) GasFeeCap() *uint256.Int            { return v.feeCap }
func (v *ValidPoolTransaction) GasTipCap() *uint256.Int            { return v.tipCap }
func (v *ValidPoolTransaction) MaxFeePerGas() *uint256.Int         { return v.feeCap }
func (v *ValidPoolTransaction) MaxPriorityFeePerGas() *uint256.Int { return v.tipCap }
func (v *ValidPoolTransaction) MaxFeePerBlobGas() *uint256.Int     { return v.blobFeeCap }
func (v *ValidPoolTransaction) Value() *uint256.Int                { return v.value }
func (v *ValidPoolTransaction) Input() []byte                      { return v.tx.Data() }
func (v *ValidPoolTransaction) Kind() uint8                        { return v.tx.Type() }
func (v *ValidPoolTransaction) To() *common.Address                { return v.tx.To() }
func (v *ValidPoolTransaction) BlobHashes() []common.Hash          { return v.tx.BlobHashes() }
func (v *ValidPoolTransaction) Transaction() PoolTransaction       { return v.tx }

// EffectiveTip returns the tip the block producer would actually receive
// given baseFee: min(tipCap, feeCap-baseFee), floored at zero.
func (v *ValidPoolTransaction) EffectiveTip(baseFee *uint256.Int) *uint256.Int {
	if baseFee == nil || baseFee.IsZero() {
		return new(uint256.Int).Set(v.tipCap)
	}
	if v.feeCap.Cmp(baseFee) <= 0 {
		return uint256.NewInt(0)
	}
	headroom := new(uint256.Int).Sub(v.feeCap, baseFee)
	if headroom.Cmp(v.tipCap) > 0 {
		return new(uint256.Int).Set(v.tipCap)
	}
	return headroom
}

// Cost returns gasLimit*feeCap + value, the amount the sender's balance must
// cover for this transaction alone, used to build the per-sender
// cumulative_cost running sum.
func (v *ValidPoolTransaction) Cost() *uint256.Int {
	gas := new(uint256.Int).SetUint64(v.Gas())
	cost := new(uint256.Int).Mul(gas, v.feeCap)
	return cost.Add(cost, v.value)
}

// mustUint256 converts a go-ethereum *big.Int accessor result into
// *uint256.Int. Transaction accessors never return values exceeding 256
// bits, by construction of the wire format they were decoded from.
func mustUint256(b *big.Int) *uint256.Int {
	if b == nil {
		return uint256.NewInt(0)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return v
}

// Ensure go-ethereum's concrete Transaction satisfies PoolTransaction.
var _ PoolTransaction = (*types.Transaction)(nil)
