// Package buf contains overflow-safe size arithmetic and bounds checks shared
// by the pool engine and the typed allocator.
package buf

import (
	"math"

	"github.com/cockroachdb/errors"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when
// either operand is negative or the product would overflow int. This guards
// count * elementSize calculations in the typed allocator.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CheckRange validates that n bytes starting at off fit in a buffer of
// bufLen bytes and returns the end offset.
//
//	end, err := buf.CheckRange(len(block), off, format.ChunkHeaderSize)
//	if err != nil {
//	    return errors.Wrap(err, "chunk header")
//	}
func CheckRange(bufLen, off, n int) (int, error) {
	if off < 0 {
		return 0, errors.Newf("negative offset: %d", off)
	}
	if n < 0 {
		return 0, errors.Newf("negative length: %d", n)
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return 0, errors.Newf("overflow: offset=%d + len=%d", off, n)
	}
	if end > bufLen {
		return 0, errors.Newf("bounds: end=%d > len=%d", end, bufLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	end, err := CheckRange(len(b), off, n)
	if err != nil {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, err := CheckRange(len(b), off, n)
	return err == nil
}
