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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel reasons. Wrap these in a *PoolError to attach the offending hash.
var (
	ErrNonceTooLow             = errors.New("nonce too low")
	ErrReplacementUnderpriced  = errors.New("replacement transaction underpriced")
	ErrAlreadyImported         = errors.New("already imported")
	ErrTxFeeExceedsCap         = errors.New("transaction fee cap exceeded")
	ErrExceedsSlotLimit        = errors.New("transaction exceeds slot limit")
	ErrExceedsMaxInitCodeSize  = errors.New("max init code size exceeded")
	ErrUnderpriced             = errors.New("transaction underpriced")
	ErrSpammerExceededCap      = errors.New("spammer exceeded per-account slot cap")
	ErrDiscardedOnInsert       = errors.New("discarded by eviction immediately after insertion")
	ErrAlreadyReserved         = errors.New("address already reserved by another subpool")
)

// PoolError pairs an error reason with the transaction hash it concerns.
// Validator rejections are reported as InvalidTransactionError instead.
type PoolError struct {
	Hash common.Hash
	Err  error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("tx %s: %v", e.Hash, e.Err)
}

func (e *PoolError) Unwrap() error { return e.Err }

// NewPoolError wraps err with the offending hash.
func NewPoolError(hash common.Hash, err error) *PoolError {
	return &PoolError{Hash: hash, Err: err}
}

// InvalidTransactionError is returned when the external TransactionValidator
// rejects a transaction as permanently invalid.
type InvalidTransactionError struct {
	Hash   common.Hash
	Reason string
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("tx %s invalid: %s", e.Hash, e.Reason)
}

// OtherError wraps an opaque validator or internal error that is neither a
// structural pool rejection nor a reported InvalidTransaction.
type OtherError struct {
	Hash  common.Hash
	Cause error
}

func (e *OtherError) Error() string {
	return fmt.Sprintf("tx %s: %v", e.Hash, e.Cause)
}

func (e *OtherError) Unwrap() error { return e.Cause }
