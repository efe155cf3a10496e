// Package allocator exposes the process-wide pool as a typed, element-count
// allocator and provides a growable Vector built on it.
//
// Pool memory is invisible to the garbage collector, so element types are
// limited to pointer-free scalars.
package allocator

import (
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/internal/buf"
	"github.com/joshuapare/mempool/pool"
)

// Scalar lists the element types that may live in pool memory.
type Scalar interface {
	~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64 | ~complex64 | ~complex128
}

// Allocator hands out []T backed by pool.Default. It carries no state, so
// every Allocator compares equal to every other one regardless of T.
type Allocator[T Scalar] struct{}

// Rebind converts an allocator for one element type into one for another.
func Rebind[U, T Scalar](Allocator[T]) Allocator[U] { return Allocator[U]{} }

// Equal reports whether memory from a can be released through other. It is
// always true: all allocators share the default pool.
func (a Allocator[T]) Equal(other Allocator[T]) bool { return true }

// Equal reports whether two allocators of possibly different element types
// share a pool. It is always true.
func Equal[T, U Scalar](Allocator[T], Allocator[U]) bool { return true }

// Allocate returns room for n elements. The contents are unspecified.
// Allocate(0) returns nil without touching the pool.
func (a Allocator[T]) Allocate(n int) ([]T, error) {
	if n < 0 {
		return nil, errors.Wrapf(pool.ErrInvalidSize, "allocator: %d elements", n)
	}
	if n == 0 {
		return nil, nil
	}
	var zero T
	size, ok := buf.MulOverflowSafe(n, int(unsafe.Sizeof(zero)))
	if !ok {
		return nil, errors.Wrapf(pool.ErrInvalidSize, "allocator: %d elements of %d bytes", n, unsafe.Sizeof(zero))
	}
	sp, err := pool.Default()
	if err != nil {
		return nil, err
	}
	raw, err := sp.Allocate(size)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(raw))), n), nil
}

// Deallocate returns s to the pool. s must start at the first element of a
// slice returned by Allocate. n is accepted for symmetry with Allocate and
// is not needed: the chunk header records the size. Empty slices are ignored.
func (a Allocator[T]) Deallocate(s []T, n int) error {
	if cap(s) == 0 {
		return nil
	}
	sp, err := pool.Default()
	if err != nil {
		return err
	}
	return sp.Deallocate(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), 1))
}
