package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance is returned when a non-issuer sender holds less
	// than the requested amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAmountOverflow is returned when a credit would push the recipient's
	// balance or the total supply past math.MaxInt64.
	ErrAmountOverflow = errors.New("amount overflows balance")

	// ErrInvalidParticipant is returned when sender or recipient is empty, or
	// when any name is not valid UTF-8.
	ErrInvalidParticipant = errors.New("sender and recipient must be non-empty UTF-8")

	// ErrBlockNotFound is returned by Block for an index outside the chain.
	ErrBlockNotFound = errors.New("block not found")

	// ErrChainBroken means a block's previous hash does not match its
	// predecessor's hash.
	ErrChainBroken = errors.New("hash chain broken")

	// ErrHashMismatch means a block's stored hash does not match its contents.
	ErrHashMismatch = errors.New("block hash mismatch")
)

// ChainError reports the first integrity failure found by Verify.
type ChainError struct {
	Index int
	Err   error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("block %d: %v", e.Index, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }
