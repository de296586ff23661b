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
	"github.com/ethereum/go-ethereum/metrics"
)

// poolMetrics mirrors go-ethereum's legacypool metering: package-level
// registered meters counting the lifetime total of each outcome, consulted
// by whatever metrics.Registry the embedder exports (e.g. via the
// Prometheus gatherer in metrics/prometheus/prometheus.go).
type poolMetrics struct {
	pendingGauge metrics.Gauge
	baseFeeGauge metrics.Gauge
	queuedGauge  metrics.Gauge

	pendingMeter  metrics.Meter
	queuedMeter   metrics.Meter
	minedMeter    metrics.Meter
	replacedMeter metrics.Meter
	discardedMeter metrics.Meter

	reorgDurationTimer metrics.Timer
	reorgMinedMeter    metrics.Meter
}

func newPoolMetrics() *poolMetrics {
	return &poolMetrics{
		pendingGauge:       metrics.NewRegisteredGauge("txpool/pending", nil),
		baseFeeGauge:       metrics.NewRegisteredGauge("txpool/basefee", nil),
		queuedGauge:        metrics.NewRegisteredGauge("txpool/queued", nil),
		pendingMeter:       metrics.NewRegisteredMeter("txpool/events/pending", nil),
		queuedMeter:        metrics.NewRegisteredMeter("txpool/events/queued", nil),
		minedMeter:         metrics.NewRegisteredMeter("txpool/events/mined", nil),
		replacedMeter:      metrics.NewRegisteredMeter("txpool/events/replaced", nil),
		discardedMeter:     metrics.NewRegisteredMeter("txpool/events/discarded", nil),
		reorgDurationTimer: metrics.NewRegisteredTimer("txpool/reorg/duration", nil),
		reorgMinedMeter:    metrics.NewRegisteredMeter("txpool/reorg/mined", nil),
	}
}

// observeBatch updates the per-event-kind meters from one engine call's
// output. Gauges are refreshed separately by the caller via setSizes, since
// an eventBatch alone does not carry the resulting occupancy.
func (m *poolMetrics) observeBatch(batch *eventBatch) {
	if m == nil || batch == nil {
		return
	}
	for _, he := range batch.hashEvents {
		switch he.evt.Kind {
		case EventPending:
			m.pendingMeter.Mark(1)
		case EventQueued:
			m.queuedMeter.Mark(1)
		case EventMined:
			m.minedMeter.Mark(1)
		case EventReplaced:
			m.replacedMeter.Mark(1)
		case EventDiscarded:
			m.discardedMeter.Mark(1)
		}
	}
}

func (m *poolMetrics) observeReorg(minedCount int) {
	if m == nil {
		return
	}
	m.reorgMinedMeter.Mark(int64(minedCount))
}

// setSizes refreshes the occupancy gauges. Called by Pool after every
// mutating operation while still holding the lock, so the gauges never
// observe a torn intermediate state.
func (m *poolMetrics) setSizes(pending, baseFee, queued int) {
	if m == nil {
		return
	}
	m.pendingGauge.Update(int64(pending))
	m.baseFeeGauge.Update(int64(baseFee))
	m.queuedGauge.Update(int64(queued))
}
