//go:build !unix

package osmem

// Map falls back to Heap when anonymous mappings are not available.
func Map(size int) ([]byte, Release, error) {
	return Heap(size)
}

// Mapped reports whether Map returns memory outside the Go heap.
const Mapped = false
