// Package osmem obtains raw, zero-filled memory regions for pool blocks.
//
// Map returns anonymous private mappings where the platform supports them so
// block memory lives outside the Go heap and can be handed back to the OS at
// teardown. Heap is the portable fallback and the backing used by tests that
// want deterministic behaviour.
package osmem

import "github.com/cockroachdb/errors"

// ErrInvalidSize is returned for non-positive region sizes.
var ErrInvalidSize = errors.New("osmem: invalid region size")

// Release returns a region obtained from Map or Heap.
type Release func() error

func noRelease() error { return nil }

// Heap allocates a region on the Go heap. The release function is a no-op;
// the garbage collector reclaims the memory once it is unreferenced.
func Heap(size int) ([]byte, Release, error) {
	if size <= 0 {
		return nil, nil, errors.Wrapf(ErrInvalidSize, "size %d", size)
	}
	return make([]byte, size), noRelease, nil
}
