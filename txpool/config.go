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

import "github.com/holiman/uint256"

const (
	// TxSlotSize is used to calculate how many data slots a single
	// transaction takes up based on its size. The slots are used as DoS
	// protection, ensuring that validating a new transaction remains a
	// constant operation.
	TxSlotSize = 32 * 1024

	// TxMaxSize is the maximum size a single transaction can have.
	TxMaxSize = 4 * TxSlotSize // 128 KiB

	// MaxCodeSize is the maximum bytecode a deployed contract may have.
	MaxCodeSize = 24576

	// MaxInitCodeSize is the maximum init code a creation transaction may
	// carry.
	MaxInitCodeSize = 2 * MaxCodeSize

	// DefaultPriceBump is the default minimum percentage a replacement
	// transaction's fee cap and tip must both exceed the existing
	// transaction's by.
	DefaultPriceBump = 10

	// DefaultMaxAccountSlots is the default number of resident
	// transactions a single sender may occupy across all sub-pools.
	DefaultMaxAccountSlots = 16
)

// SubPoolLimit bounds one sub-pool's resource usage.
type SubPoolLimit struct {
	// Count is the maximum number of resident transactions.
	Count int
	// Bytes is the maximum total encoded size, in bytes, of resident
	// transactions.
	Bytes uint64
}

// PoolConfig collects every tunable the pool core consumes. It is always
// constructed and passed in by the embedder — this module does not parse
// CLI flags or configuration files itself.
type PoolConfig struct {
	// PendingLimit bounds the Pending sub-pool.
	PendingLimit SubPoolLimit
	// BaseFeeLimit bounds the BaseFee sub-pool.
	BaseFeeLimit SubPoolLimit
	// QueuedLimit bounds the Queued sub-pool.
	QueuedLimit SubPoolLimit

	// MaxAccountSlots caps the number of resident transactions a single
	// sender may hold, across all sub-pools.
	MaxAccountSlots int

	// PriceBump is the minimum percentage increase in both fee cap and tip
	// a replacement transaction must clear.
	PriceBump uint64

	// MinimalProtocolBaseFee floors the tracked pending base fee.
	MinimalProtocolBaseFee *uint256.Int
}

// DefaultPoolConfig returns sane defaults, matching go-ethereum-family
// mempool defaults for a mainnet-shaped chain.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		PendingLimit:           SubPoolLimit{Count: 4096, Bytes: 4096 * TxSlotSize},
		BaseFeeLimit:           SubPoolLimit{Count: 4096, Bytes: 4096 * TxSlotSize},
		QueuedLimit:            SubPoolLimit{Count: 1024, Bytes: 1024 * TxSlotSize},
		MaxAccountSlots:        DefaultMaxAccountSlots,
		PriceBump:              DefaultPriceBump,
		MinimalProtocolBaseFee: uint256.NewInt(7), // wei, matches EIP-1559 protocol floor
	}
}

// Sanitize fills in any zero-valued field with its default, mirroring
// go-ethereum's TxPoolConfig.sanitize pattern.
func (c PoolConfig) Sanitize() PoolConfig {
	def := DefaultPoolConfig()
	if c.PendingLimit.Count == 0 {
		c.PendingLimit.Count = def.PendingLimit.Count
	}
	if c.PendingLimit.Bytes == 0 {
		c.PendingLimit.Bytes = def.PendingLimit.Bytes
	}
	if c.BaseFeeLimit.Count == 0 {
		c.BaseFeeLimit.Count = def.BaseFeeLimit.Count
	}
	if c.BaseFeeLimit.Bytes == 0 {
		c.BaseFeeLimit.Bytes = def.BaseFeeLimit.Bytes
	}
	if c.QueuedLimit.Count == 0 {
		c.QueuedLimit.Count = def.QueuedLimit.Count
	}
	if c.QueuedLimit.Bytes == 0 {
		c.QueuedLimit.Bytes = def.QueuedLimit.Bytes
	}
	if c.MaxAccountSlots == 0 {
		c.MaxAccountSlots = def.MaxAccountSlots
	}
	if c.PriceBump == 0 {
		c.PriceBump = def.PriceBump
	}
	if c.MinimalProtocolBaseFee == nil {
		c.MinimalProtocolBaseFee = def.MinimalProtocolBaseFee
	}
	return c
}
