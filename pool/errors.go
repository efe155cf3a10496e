package pool

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrAllocationFailure indicates the block source could not supply memory.
	// The underlying OS error is preserved in the chain.
	ErrAllocationFailure = errors.New("pool: block acquisition failed")

	// ErrTooLarge indicates a request that no block can hold.
	ErrTooLarge = errors.New("pool: request too large")

	// ErrInvalidSize indicates a negative or overflowing request size.
	ErrInvalidSize = errors.New("pool: invalid size")

	// ErrContractViolation indicates a payload or reference the pool did not
	// hand out, or (with Config.Hardened) a double free.
	ErrContractViolation = errors.New("pool: contract violation")

	// ErrClosed indicates use of a pool after Close.
	ErrClosed = errors.New("pool: closed")

	// ErrBadConfig indicates an invalid Config.
	ErrBadConfig = errors.New("pool: invalid config")
)

// sourceError reports a block source failure. errors.Is matches it against
// ErrAllocationFailure and, through Unwrap, against the source's own error.
type sourceError struct {
	size  int
	cause error
}

func (e *sourceError) Error() string {
	return fmt.Sprintf("%v: acquire %d bytes: %v", ErrAllocationFailure, e.size, e.cause)
}

func (e *sourceError) Is(target error) bool { return target == ErrAllocationFailure }

func (e *sourceError) Unwrap() error { return e.cause }
