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
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestEffectiveTipCappedByHeadroom(t *testing.T) {
	tx := wrapValid(newFakeTx(1, 0, 100, 30), 1, External)
	// feeCap=100, tipCap=30, baseFee=90 -> headroom=10 < tipCap -> tip=10
	got := tx.EffectiveTip(uint256.NewInt(90))
	assert.Equal(t, uint256.NewInt(10), got)
}

func TestEffectiveTipCappedByTip(t *testing.T) {
	tx := wrapValid(newFakeTx(1, 0, 100, 5), 1, External)
	// feeCap=100, tipCap=5, baseFee=50 -> headroom=50 > tipCap -> tip=5
	got := tx.EffectiveTip(uint256.NewInt(50))
	assert.Equal(t, uint256.NewInt(5), got)
}

func TestEffectiveTipZeroWhenFeeCapBelowBaseFee(t *testing.T) {
	tx := wrapValid(newFakeTx(1, 0, 40, 30), 1, External)
	got := tx.EffectiveTip(uint256.NewInt(50))
	assert.True(t, got.IsZero())
}

func TestEffectiveTipNoBaseFeeReturnsTipCap(t *testing.T) {
	tx := wrapValid(newFakeTx(1, 0, 40, 30), 1, External)
	got := tx.EffectiveTip(nil)
	assert.Equal(t, uint256.NewInt(30), got)
}

func TestCostIsGasTimesFeeCapPlusValue(t *testing.T) {
	raw := newFakeTx(1, 0, 10, 1)
	raw.gas = 21000
	raw.value = 5
	tx := wrapValid(raw, 1, External)
	want := new(uint256.Int).Add(new(uint256.Int).Mul(uint256.NewInt(21000), uint256.NewInt(10)), uint256.NewInt(5))
	assert.Equal(t, want, tx.Cost())
}

func TestGasCostOrderingHigherTipFirst(t *testing.T) {
	ord := GasCostOrdering{}
	low := wrapValid(newFakeTx(1, 0, 100, 5), 1, External)
	high := wrapValid(newFakeTx(1, 1, 100, 50), 1, External)

	pLow := ord.Priority(low, uint256.NewInt(0))
	pHigh := ord.Priority(high, uint256.NewInt(0))

	assert.True(t, pHigh.Less(pLow), "higher tip should sort before lower tip")
	assert.False(t, pLow.Less(pHigh))
}
