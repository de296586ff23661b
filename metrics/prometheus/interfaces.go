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

package prometheus

import "github.com/ethereum/go-ethereum/metrics"

var _ Registry = (*metrics.StandardRegistry)(nil)

// Registry is the subset of metrics.Registry the Gatherer needs, so callers
// can supply a sub-registry or a filtering wrapper instead of the global
// default.
type Registry interface {
	// Each calls the given function for every registered metric.
	Each(func(string, any))
	// Get returns the metric registered under name, or nil.
	Get(string) any
}
