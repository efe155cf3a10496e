package allocator

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/pool"
)

// Vector is a growable array whose storage comes from an Allocator.
// Call Release when done; the garbage collector does not reclaim it.
type Vector[T Scalar] struct {
	alloc Allocator[T]
	data  []T // len is the vector length, cap its capacity
}

// NewVector returns a vector of n zero elements.
func NewVector[T Scalar](n int) (*Vector[T], error) {
	v := &Vector[T]{}
	if err := v.Resize(n); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vector[T]) Len() int { return len(v.data) }

func (v *Vector[T]) Cap() int { return cap(v.data) }

func (v *Vector[T]) At(i int) T { return v.data[i] }

func (v *Vector[T]) Set(i int, x T) { v.data[i] = x }

// Slice exposes the elements. The slice is invalidated by Resize, Append and
// Release.
func (v *Vector[T]) Slice() []T { return v.data }

// Resize changes the length to n. New elements are zero. Growing past the
// capacity moves the elements to storage of max(n, 2*Len()) elements.
func (v *Vector[T]) Resize(n int) error {
	if n < 0 {
		return errors.Wrapf(pool.ErrInvalidSize, "vector: resize to %d", n)
	}
	if n > cap(v.data) {
		if err := v.grow(max(n, 2*len(v.data))); err != nil {
			return err
		}
	}
	old := len(v.data)
	v.data = v.data[:n]
	if n > old {
		clear(v.data[old:n])
	}
	return nil
}

// Append adds x at the end.
func (v *Vector[T]) Append(x T) error {
	n := len(v.data)
	if n == cap(v.data) {
		if err := v.grow(max(1, 2*n)); err != nil {
			return err
		}
	}
	v.data = append(v.data, x)
	return nil
}

func (v *Vector[T]) grow(capacity int) error {
	fresh, err := v.alloc.Allocate(capacity)
	if err != nil {
		return err
	}
	n := copy(fresh, v.data)
	if err := v.alloc.Deallocate(v.data, cap(v.data)); err != nil {
		_ = v.alloc.Deallocate(fresh, capacity)
		return err
	}
	v.data = fresh[:n]
	return nil
}

// Release returns the storage to the pool and leaves an empty vector.
func (v *Vector[T]) Release() error {
	err := v.alloc.Deallocate(v.data, cap(v.data))
	v.data = nil
	return err
}
