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

// Package maintain drives a txpool.Pool's canonical-state reconciliation
// from a stream of chain-head updates, the single background goroutine
// sitting between chain events and the pool.
package maintain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/protecc-labs/reth/txpool"
)

// ChainEventSource feeds canonical-state updates as new blocks become
// canonical, including reorgs: a reorg is represented as one
// CanonicalStateUpdate per newly canonical block, in ascending order.
// Transactions the pool removed as mined on the abandoned chain are not
// reinserted, by the pool or by Maintainer.
type ChainEventSource interface {
	// Updates returns the channel of canonical-state updates. The channel
	// is closed when the source is done producing updates.
	Updates() <-chan txpool.CanonicalStateUpdate
}

// Maintainer consumes a ChainEventSource and applies each update to a Pool,
// logging the outcome of each reconciliation at debug level.
type Maintainer struct {
	pool   *txpool.Pool
	source ChainEventSource
	log    log.Logger
}

// New constructs a Maintainer for pool, fed by source.
func New(pool *txpool.Pool, source ChainEventSource) *Maintainer {
	return &Maintainer{
		pool:   pool,
		source: source,
		log:    log.New("component", "txpool-maintain"),
	}
}

// Loop runs until ctx is canceled or source's update channel closes. It is
// meant to be run in its own goroutine; Loop itself performs no background
// work beyond draining the channel and applying each update in order.
func (m *Maintainer) Loop(ctx context.Context) {
	updates := m.source.Updates()
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("maintenance loop stopping", "reason", ctx.Err())
			return
		case update, ok := <-updates:
			if !ok {
				m.log.Debug("maintenance loop stopping, update channel closed")
				return
			}
			m.apply(update)
		}
	}
}

func (m *Maintainer) apply(update txpool.CanonicalStateUpdate) {
	start := time.Now()
	result := m.pool.OnCanonicalStateChange(update)
	elapsed := time.Since(start)

	m.log.Debug("applied canonical state update",
		"block", update.BlockNumber,
		"hash", update.BlockHash,
		"mined", len(result.Mined),
		"promoted", len(result.Promoted),
		"discarded", len(result.Discarded),
		"elapsed", elapsed,
	)
}
