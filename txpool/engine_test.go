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
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(cfg PoolConfig) *engine {
	return newEngine(NewIdentifiers(), cfg.Sanitize(), GasCostOrdering{})
}

func mustAdd(t *testing.T, e *engine, tx *ValidPoolTransaction) *eventBatch {
	t.Helper()
	batch, err := e.addTransaction(tx)
	require.NoError(t, err)
	return batch
}

func TestEngineAddTransactionHappyPath(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	e.senders[1] = SenderInfo{StateNonce: 0, Balance: uint256.NewInt(1_000_000_000)}

	tx := wrapValid(newFakeTx(1, 0, 100, 10), 1, External)
	batch := mustAdd(t, e, tx)

	require.Len(t, batch.newTxEvents, 1)
	assert.Equal(t, Pending, batch.newTxEvents[0].SubPool)
	assert.Equal(t, 1, e.pending.len())
	assert.True(t, e.all.contains(tx.Id()))
}

func TestEngineAddTransactionAlreadyImported(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	tx := wrapValid(newFakeTx(1, 0, 100, 10), 1, External)
	mustAdd(t, e, tx)

	_, err := e.addTransaction(tx)
	require.Error(t, err)
	var perr *PoolError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, perr.Err, ErrAlreadyImported)
}

func TestEngineAddTransactionReplacementUnderpriced(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	original := wrapValid(newFakeTx(1, 0, 100, 10), 1, External)
	mustAdd(t, e, original)

	raw := newFakeTx(1, 0, 101, 11)
	raw.hash[1] = 0x01 // a different transaction at the same (sender, nonce)
	replacement := wrapValid(raw, 1, External)
	_, err := e.addTransaction(replacement)
	require.Error(t, err)
	var perr *PoolError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, perr.Err, ErrReplacementUnderpriced)
}

func TestEngineAddTransactionReplacementSucceedsWithSufficientBump(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	original := wrapValid(newFakeTx(1, 0, 100, 10), 1, External)
	mustAdd(t, e, original)

	raw := newFakeTx(1, 0, 200, 20)
	raw.hash[1] = 0x01 // a different transaction at the same (sender, nonce)
	replacement := wrapValid(raw, 1, External)
	batch := mustAdd(t, e, replacement)

	require.True(t, e.all.contains(replacement.Id()))
	got, ok := e.all.get(replacement.Id())
	require.True(t, ok)
	assert.Equal(t, replacement.Hash(), got.Hash())

	var sawReplaced bool
	for _, he := range batch.hashEvents {
		if he.evt.Kind == EventReplaced {
			sawReplaced = true
			assert.Equal(t, replacement.Hash(), he.evt.ReplacedBy)
		}
	}
	assert.True(t, sawReplaced)
}

func TestEngineAddTransactionSpammerCapRejected(t *testing.T) {
	cfg := PoolConfig{MaxAccountSlots: 2}
	e := newTestEngine(cfg)
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	mustAdd(t, e, wrapValid(newFakeTx(1, 0, 100, 10), 1, External))
	mustAdd(t, e, wrapValid(newFakeTx(1, 1, 100, 10), 1, External))

	_, err := e.addTransaction(wrapValid(newFakeTx(1, 2, 100, 10), 1, External))
	require.Error(t, err)
	var perr *PoolError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, perr.Err, ErrSpammerExceededCap)
}

func TestEngineAddTransactionNonceTooLowRejected(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	e.senders[1] = SenderInfo{StateNonce: 5, Balance: uint256.NewInt(1_000_000_000)}

	_, err := e.addTransaction(wrapValid(newFakeTx(1, 4, 100, 10), 1, External))
	require.Error(t, err)
	var perr *PoolError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, perr.Err, ErrNonceTooLow)
	assert.Equal(t, 0, e.all.len(), "a stale nonce must never be admitted")
}

func TestEngineAddTransactionSlotCapEvictsSendersOwnWorst(t *testing.T) {
	cfg := PoolConfig{MaxAccountSlots: 2}
	e := newTestEngine(cfg)
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	mustAdd(t, e, wrapValid(newFakeTx(1, 0, 100, 10), 1, External))
	worst := wrapValid(newFakeTx(1, 2, 100, 10), 1, External)
	mustAdd(t, e, worst)

	better := wrapValid(newFakeTx(1, 1, 100, 99), 1, External)
	batch := mustAdd(t, e, better)

	assert.True(t, e.all.contains(better.Id()))
	_, stillThere := e.all.get(worst.Id())
	assert.False(t, stillThere, "incoming nonce is lower than the sender's worst resident nonce, so the worst must be evicted to make room")

	var sawDiscard bool
	for _, he := range batch.hashEvents {
		if he.evt.Kind == EventDiscarded && he.hash == worst.Hash() {
			sawDiscard = true
		}
	}
	assert.True(t, sawDiscard)
}

func TestEngineAddTransactionSlotCapRejectsIncomingWorstRatherThanEvicting(t *testing.T) {
	cfg := PoolConfig{MaxAccountSlots: 2}
	e := newTestEngine(cfg)
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	mustAdd(t, e, wrapValid(newFakeTx(1, 0, 100, 10), 1, External))
	mustAdd(t, e, wrapValid(newFakeTx(1, 1, 100, 10), 1, External))

	// Incoming nonce 2 would itself be the new worst (highest-nonce)
	// resident, so evicting an existing one would not help; reject instead.
	_, err := e.addTransaction(wrapValid(newFakeTx(1, 2, 100, 500), 1, External))
	require.Error(t, err)
	var perr *PoolError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, perr.Err, ErrSpammerExceededCap)
}

func TestEngineAddTransactionSlotCapExemptWorstRejectsRatherThanEvicting(t *testing.T) {
	cfg := PoolConfig{MaxAccountSlots: 2}
	e := newTestEngine(cfg)
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	mustAdd(t, e, wrapValid(newFakeTx(1, 0, 100, 10), 1, External))
	exemptWorst := wrapValid(newFakeTx(1, 2, 100, 10), 1, Local)
	mustAdd(t, e, exemptWorst)

	_, err := e.addTransaction(wrapValid(newFakeTx(1, 1, 100, 500), 1, External))
	require.Error(t, err)
	var perr *PoolError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, perr.Err, ErrSpammerExceededCap)
	_, stillThere := e.all.get(exemptWorst.Id())
	assert.True(t, stillThere, "a Local resident must never be evicted to make room")
}

func TestEngineSetBlockInfoFloorsPendingBaseFeeAtProtocolMinimum(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	floor := DefaultPoolConfig().MinimalProtocolBaseFee

	e.setBlockInfo(BlockInfo{PendingBaseFee: uint256.NewInt(1)})
	assert.Equal(t, 0, e.blockInfo().PendingBaseFee.Cmp(floor))

	above := uint256.NewInt(1000)
	e.setBlockInfo(BlockInfo{PendingBaseFee: above})
	assert.Equal(t, 0, e.blockInfo().PendingBaseFee.Cmp(above))
}

func TestEngineClassificationAcrossSubPools(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}
	e.setBlockInfo(BlockInfo{PendingBaseFee: uint256.NewInt(10)})

	pending := wrapValid(newFakeTx(1, 0, 100, 10), 1, External)
	batch := mustAdd(t, e, pending)
	assert.Equal(t, Pending, batch.newTxEvents[0].SubPool)

	belowBaseFee := wrapValid(newFakeTx(1, 1, 5, 1), 1, External)
	batch = mustAdd(t, e, belowBaseFee)
	assert.Equal(t, BaseFee, batch.newTxEvents[0].SubPool)

	gapped := wrapValid(newFakeTx(1, 5, 100, 10), 1, External)
	batch = mustAdd(t, e, gapped)
	assert.Equal(t, Queued, batch.newTxEvents[0].SubPool)
}

func TestEngineDiscardWorstEvictsLowestPriorityAcrossPending(t *testing.T) {
	cfg := PoolConfig{PendingLimit: SubPoolLimit{Count: 1, Bytes: 1 << 30}}
	e := newTestEngine(cfg)
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}
	e.senders[2] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	low := wrapValid(newFakeTx(1, 0, 100, 5), 1, External)
	mustAdd(t, e, low)

	high := wrapValid(newFakeTx(2, 0, 100, 50), 2, External)
	batch := mustAdd(t, e, high)

	assert.Equal(t, 1, e.pending.len())
	_, stillThere := e.all.get(low.Id())
	assert.False(t, stillThere)

	var sawDiscard bool
	for _, he := range batch.hashEvents {
		if he.evt.Kind == EventDiscarded && he.hash == low.Hash() {
			sawDiscard = true
		}
	}
	assert.True(t, sawDiscard)
}

func TestEngineDiscardWorstExemptsLocalSubmissions(t *testing.T) {
	cfg := PoolConfig{PendingLimit: SubPoolLimit{Count: 1, Bytes: 1 << 30}}
	e := newTestEngine(cfg)
	e.senders[1] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}
	e.senders[2] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	// Both residents are exempt (Local/Private origin); once the pool is
	// over its count limit there is no evictable candidate left, so it
	// must run over budget rather than evict either one.
	first := wrapValid(newFakeTx(1, 0, 100, 1), 1, Local)
	mustAdd(t, e, first)

	second := wrapValid(newFakeTx(2, 0, 100, 99), 2, Private)
	mustAdd(t, e, second)

	assert.Equal(t, 2, e.pending.len())
	_, ok := e.all.get(first.Id())
	assert.True(t, ok)
	_, ok = e.all.get(second.Id())
	assert.True(t, ok)
}

func TestEngineOnCanonicalStateChangeMinesAndPrunesStaleNonces(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	senderAddr := addr(1)
	sender := e.ids.SenderIdOrCreate(senderAddr)
	e.senders[sender] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}

	mined := wrapValid(newFakeTx(1, 0, 100, 10), sender, External)
	stale := wrapValid(newFakeTx(1, 1, 100, 10), sender, External)
	survivor := wrapValid(newFakeTx(1, 2, 100, 10), sender, External)
	mustAdd(t, e, mined)
	mustAdd(t, e, stale)
	mustAdd(t, e, survivor)

	_, result := e.onCanonicalStateChange(CanonicalStateUpdate{
		BlockHash:         common.Hash{0xaa},
		BlockNumber:       1,
		PendingBaseFee:    uint256.NewInt(10),
		MinedTransactions: []common.Hash{mined.Hash()},
		ChangedAccounts: []ChangedAccount{
			{Address: senderAddr, Nonce: 2, Balance: uint256.NewInt(1_000_000_000)},
		},
	})

	assert.Contains(t, result.Mined, mined.Hash())
	_, minedStillThere := e.all.get(mined.Id())
	assert.False(t, minedStillThere)
	_, staleStillThere := e.all.get(stale.Id())
	assert.False(t, staleStillThere, "nonce below new state nonce and not mined must be pruned as stale")
	_, survivorStillThere := e.all.get(survivor.Id())
	assert.True(t, survivorStillThere)
}

func TestEngineOnCanonicalStateChangePromotesOnBaseFeeDrop(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	sender := e.ids.SenderIdOrCreate(addr(1))
	e.senders[sender] = SenderInfo{Balance: uint256.NewInt(1_000_000_000)}
	e.setBlockInfo(BlockInfo{PendingBaseFee: uint256.NewInt(50)})

	tx := wrapValid(newFakeTx(1, 0, 40, 10), sender, External)
	batch := mustAdd(t, e, tx)
	require.Equal(t, BaseFee, batch.newTxEvents[0].SubPool)

	_, result := e.onCanonicalStateChange(CanonicalStateUpdate{
		BlockHash:      common.Hash{0xbb},
		PendingBaseFee: uint256.NewInt(10),
		ChangedAccounts: []ChangedAccount{
			{Address: addr(1), Nonce: 0, Balance: uint256.NewInt(1_000_000_000)},
		},
	})

	assert.Contains(t, result.Promoted, tx.Hash())
	assert.Equal(t, Pending, e.location[tx.Id()])
}

func TestEngineOnCanonicalStateChangeDuplicateChangedAccountAppliesFirstOnly(t *testing.T) {
	e := newTestEngine(PoolConfig{})
	sender := addr(1)

	_, result := e.onCanonicalStateChange(CanonicalStateUpdate{
		BlockHash: common.Hash{0xcc},
		ChangedAccounts: []ChangedAccount{
			{Address: sender, Nonce: 1, Balance: uint256.NewInt(5)},
			{Address: sender, Nonce: 9, Balance: uint256.NewInt(9)},
		},
	})

	id, ok := e.ids.SenderId(sender)
	require.True(t, ok)
	assert.Equal(t, uint64(1), e.senders[id].StateNonce, "first occurrence in the batch wins")
	assert.Empty(t, result.Discarded)
}
