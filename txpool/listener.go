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
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
)

const (
	pendingHashChanSize = 2048
	newTxChanSize       = 1024
	perHashChanSize     = 16
)

// PendingListenerKind distinguishes the two flavors of pending-hash
// listener the pool supports.
type PendingListenerKind uint8

const (
	// PendingAll delivers every hash entering Pending.
	PendingAll PendingListenerKind = iota
	// PendingPropagateOnly additionally filters out transactions whose
	// Propagate flag is false.
	PendingPropagateOnly
)

// listeners is the listener fabric: four channel-based subscription
// registries (pending-hash, per-hash, new-transaction, all-events)
// multiplexing pool state transitions to external subscribers, with a
// bounded, try-send, drop-on-full back-pressure policy applied uniformly
// across all four; propagation reports enter through notify. Firing never happens while the pool's main
// lock is held; registries are guarded by their own lock, keeping
// notification off the hot admission path.
type listeners struct {
	mu sync.Mutex

	pendingHash []pendingHashSub
	perHash     map[common.Hash][]perHashSub
	newTx       []newTxSub
	allEvents   []allEventSub
}

type pendingHashSub struct {
	ch   chan<- common.Hash
	kind PendingListenerKind
}

type perHashSub struct {
	hash common.Hash
	ch   chan TransactionEvent
}

type newTxSub struct {
	ch chan<- NewTransactionEvent
}

type allEventSub struct {
	ch chan<- FullTransactionEvent
}

func newListeners() *listeners {
	return &listeners{
		perHash: make(map[common.Hash][]perHashSub),
	}
}

// dropSubscription adapts the try-send registries backing
// SubscribeNewTransactions and SubscribeAllEvents to the event.Subscription
// interface, so callers written against go-ethereum's feed-based pattern
// still compile. Unsubscribe only removes the channel from the registry; it
// does not close it, since the channel is caller-owned.
type dropSubscription struct {
	unsub func()
	err   chan error
	once  sync.Once
}

func (s *dropSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.unsub()
		close(s.err)
	})
}

func (s *dropSubscription) Err() <-chan error { return s.err }

// SubscribePendingHashes returns a new channel that receives the hash of
// every transaction entering Pending, and a cancel func that unregisters and
// closes it. The channel is buffered with capacity pendingHashChanSize; when
// it is full, notifyPending drops the hash.
func (l *listeners) SubscribePendingHashes(kind PendingListenerKind) (<-chan common.Hash, func()) {
	ch := make(chan common.Hash, pendingHashChanSize)
	l.mu.Lock()
	l.pendingHash = append(l.pendingHash, pendingHashSub{ch: ch, kind: kind})
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, sub := range l.pendingHash {
			if sub.ch == (chan<- common.Hash)(ch) {
				l.pendingHash = append(l.pendingHash[:i], l.pendingHash[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// SubscribeNewTransactions registers ch to receive every admitted
// transaction's sub-pool assignment. Callers should size ch with capacity
// newTxChanSize or more; a full channel has its event dropped rather than
// blocking the dispatching goroutine.
func (l *listeners) SubscribeNewTransactions(ch chan<- NewTransactionEvent) event.Subscription {
	l.mu.Lock()
	l.newTx = append(l.newTx, newTxSub{ch: ch})
	l.mu.Unlock()

	return &dropSubscription{
		err: make(chan error),
		unsub: func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, sub := range l.newTx {
				if sub.ch == ch {
					l.newTx = append(l.newTx[:i], l.newTx[i+1:]...)
					return
				}
			}
		},
	}
}

// SubscribeAllEvents registers ch to receive every per-hash transition for
// every transaction in the pool. Same bounded, try-send, drop-on-full
// policy as every other listener mechanism.
func (l *listeners) SubscribeAllEvents(ch chan<- FullTransactionEvent) event.Subscription {
	l.mu.Lock()
	l.allEvents = append(l.allEvents, allEventSub{ch: ch})
	l.mu.Unlock()

	return &dropSubscription{
		err: make(chan error),
		unsub: func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, sub := range l.allEvents {
				if sub.ch == ch {
					l.allEvents = append(l.allEvents[:i], l.allEvents[i+1:]...)
					return
				}
			}
		},
	}
}

// SubscribeByHash registers ch to receive transitions of one specific
// transaction. The channel is closed automatically on the first terminal
// event (Mined, Discarded, Replaced).
func (l *listeners) SubscribeByHash(hash common.Hash) (<-chan TransactionEvent, func()) {
	ch := make(chan TransactionEvent, perHashChanSize)
	l.mu.Lock()
	l.perHash[hash] = append(l.perHash[hash], perHashSub{hash: hash, ch: ch})
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.removePerHashLocked(hash, ch)
	}
	return ch, cancel
}

func (l *listeners) removePerHashLocked(hash common.Hash, ch chan TransactionEvent) {
	subs := l.perHash[hash]
	for i, sub := range subs {
		if sub.ch == ch {
			subs = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(subs) == 0 {
		delete(l.perHash, hash)
	} else {
		l.perHash[hash] = subs
	}
}

// notifyPending delivers hash to every registered pending-hash listener,
// respecting PendingPropagateOnly's filter.
func (l *listeners) notifyPending(hash common.Hash, propagate bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < len(l.pendingHash); i++ {
		sub := l.pendingHash[i]
		if sub.kind == PendingPropagateOnly && !propagate {
			continue
		}
		select {
		case sub.ch <- hash:
		default:
			// Full: drop the event but leave the listener registered.
		}
	}
}

// notifyNewTransaction delivers a sub-pool assignment to every
// new-transaction listener, dropping it for any listener whose channel is
// currently full rather than blocking the caller.
func (l *listeners) notifyNewTransaction(evt NewTransactionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sub := range l.newTx {
		select {
		case sub.ch <- evt:
		default:
			log.Debug("dropping new-transaction pool event, listener full", "subpool", evt.SubPool)
		}
	}
}

// notify delivers a TransactionEvent to this hash's per-hash subscribers
// and to every all-events subscriber, unregistering per-hash subscribers on
// a terminal event. Every delivery is try-send: a full channel has its
// event dropped without blocking the caller.
func (l *listeners) notify(hash common.Hash, evt TransactionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	subs := l.perHash[hash]
	terminal := evt.Kind.IsTerminal()
	var closed []chan TransactionEvent
	for _, sub := range subs {
		select {
		case sub.ch <- evt:
		default:
			log.Debug("dropping per-hash pool event, listener full", "hash", hash, "event", evt.Kind)
		}
		if terminal {
			closed = append(closed, sub.ch)
		}
	}
	if terminal {
		for _, ch := range closed {
			l.removePerHashLocked(hash, ch)
		}
	}

	full := FullTransactionEvent{Hash: hash, Event: evt}
	for _, sub := range l.allEvents {
		select {
		case sub.ch <- full:
		default:
			log.Debug("dropping all-events pool event, listener full", "hash", hash, "event", evt.Kind)
		}
	}
}

// Close tears down every broadcast subscription. Per-hash and pending-hash
// channels are left for callers to cancel individually.
func (l *listeners) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.newTx = nil
	l.allEvents = nil
}
