//go:build unix

package osmem

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Map creates an anonymous read/write mapping of size bytes.
func Map(size int) ([]byte, Release, error) {
	if size <= 0 {
		return nil, nil, errors.Wrapf(ErrInvalidSize, "size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "osmem: mmap %d bytes", size)
	}
	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, release, nil
}

// Mapped reports whether Map returns memory outside the Go heap.
const Mapped = true
