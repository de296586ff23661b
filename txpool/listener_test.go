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
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvWithTimeout[T any](t *testing.T, ch <-chan T) (T, bool) {
	t.Helper()
	select {
	case v, ok := <-ch:
		return v, ok
	case <-time.After(time.Second):
		var zero T
		t.Fatal("timed out waiting for listener delivery")
		return zero, false
	}
}

func TestListenersPendingHashAllDeliversEveryEntry(t *testing.T) {
	l := newListeners()
	ch, cancel := l.SubscribePendingHashes(PendingAll)
	defer cancel()

	h := common.Hash{0x01}
	l.notifyPending(h, false)

	got, ok := recvWithTimeout(t, ch)
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestListenersPendingHashPropagateOnlyFiltersNonPropagating(t *testing.T) {
	l := newListeners()
	ch, cancel := l.SubscribePendingHashes(PendingPropagateOnly)
	defer cancel()

	l.notifyPending(common.Hash{0x01}, false)
	l.notifyPending(common.Hash{0x02}, true)

	got, ok := recvWithTimeout(t, ch)
	require.True(t, ok)
	assert.Equal(t, common.Hash{0x02}, got)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra delivery: %v", extra)
	default:
	}
}

func TestListenersNewTransactionBroadcast(t *testing.T) {
	l := newListeners()
	ch := make(chan NewTransactionEvent, newTxChanSize)
	sub := l.SubscribeNewTransactions(ch)
	defer sub.Unsubscribe()

	tx := wrapValid(newFakeTx(1, 0, 100, 1), 1, External)
	l.notifyNewTransaction(NewTransactionEvent{SubPool: Pending, Transaction: tx})

	got, ok := recvWithTimeout(t, ch)
	require.True(t, ok)
	assert.Equal(t, Pending, got.SubPool)
	assert.Equal(t, tx.Hash(), got.Transaction.Hash())
}

func TestListenersAllEventsBroadcast(t *testing.T) {
	l := newListeners()
	ch := make(chan FullTransactionEvent, perHashChanSize)
	sub := l.SubscribeAllEvents(ch)
	defer sub.Unsubscribe()

	h := common.Hash{0x03}
	l.notify(h, TransactionEvent{Kind: EventPending})

	got, ok := recvWithTimeout(t, ch)
	require.True(t, ok)
	assert.Equal(t, h, got.Hash)
	assert.Equal(t, EventPending, got.Event.Kind)
}

func TestListenersNewTransactionDropsOnFullChannelWithoutBlocking(t *testing.T) {
	l := newListeners()
	ch := make(chan NewTransactionEvent, 1)
	sub := l.SubscribeNewTransactions(ch)
	defer sub.Unsubscribe()

	tx := wrapValid(newFakeTx(1, 0, 100, 1), 1, External)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4; i++ {
			l.notifyNewTransaction(NewTransactionEvent{SubPool: Pending, Transaction: tx})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifyNewTransaction blocked on a full, undrained subscriber channel")
	}
	assert.Len(t, ch, 1)
}

func TestListenersAllEventsDropsOnFullChannelWithoutBlocking(t *testing.T) {
	l := newListeners()
	ch := make(chan FullTransactionEvent, 1)
	sub := l.SubscribeAllEvents(ch)
	defer sub.Unsubscribe()

	h := common.Hash{0x06}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4; i++ {
			l.notify(h, TransactionEvent{Kind: EventPending})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notify blocked on a full, undrained all-events subscriber channel")
	}
	assert.Len(t, ch, 1)
}

func TestListenersByHashUnregistersOnTerminalEvent(t *testing.T) {
	l := newListeners()
	h := common.Hash{0x04}
	ch, cancel := l.SubscribeByHash(h)
	defer cancel()

	l.notify(h, TransactionEvent{Kind: EventPending})
	got, ok := recvWithTimeout(t, ch)
	require.True(t, ok)
	assert.Equal(t, EventPending, got.Kind)

	l.notify(h, TransactionEvent{Kind: EventMined, BlockHash: common.Hash{0xff}})
	got, ok = recvWithTimeout(t, ch)
	require.True(t, ok)
	assert.Equal(t, EventMined, got.Kind)

	// Terminal event closes the channel; a further read must report closed.
	_, ok = <-ch
	assert.False(t, ok)
}

func TestListenersByHashDropsEventsOnFullChannelWithoutBlocking(t *testing.T) {
	l := newListeners()
	h := common.Hash{0x05}
	ch, cancel := l.SubscribeByHash(h)
	defer cancel()

	// Fill the channel beyond capacity without ever reading; notify must not
	// block even though nothing drains it.
	for i := 0; i < perHashChanSize+4; i++ {
		l.notify(h, TransactionEvent{Kind: EventPending})
	}
	assert.Len(t, ch, perHashChanSize)
}

func TestListenersPendingHashCancelClosesChannel(t *testing.T) {
	l := newListeners()
	ch, cancel := l.SubscribePendingHashes(PendingAll)
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
}
