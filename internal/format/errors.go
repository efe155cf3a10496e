package format

import "github.com/cockroachdb/errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadFlags indicates a header flags byte that is neither free nor used.
	ErrBadFlags = errors.New("format: invalid chunk flags")
	// ErrMisaligned indicates a header offset that is not 8-byte aligned.
	ErrMisaligned = errors.New("format: misaligned chunk header")
)
