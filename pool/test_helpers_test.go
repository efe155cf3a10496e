package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mempool/internal/osmem"
)

// ============================================================================
// Pool Creation Utilities
// ============================================================================

// countingSource is a heap-backed BlockSource that records every acquire and
// release so tests can reason about block traffic.
type countingSource struct {
	acquired []int
	released []int
	fail     error
}

func (s *countingSource) Acquire(size int) ([]byte, func() error, error) {
	if s.fail != nil {
		return nil, nil, s.fail
	}
	data, _, err := osmem.Heap(size)
	if err != nil {
		return nil, nil, err
	}
	s.acquired = append(s.acquired, size)
	return data, func() error {
		s.released = append(s.released, size)
		return nil
	}, nil
}

// newTestPool creates a heap-backed pool with a counting source. The pool is
// closed with ReleaseAll semantics at cleanup unless the test closed it.
func newTestPool(t testing.TB, mutate ...func(*Config)) (*Pool, *countingSource) {
	t.Helper()

	src := &countingSource{}
	cfg := DefaultConfig()
	cfg.Source = src
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		if !p.closed {
			p.cfg.Release = ReleaseAll
			_, _ = p.Close()
		}
	})
	return p, src
}

func hardened(c *Config) { c.Hardened = true }

// ============================================================================
// Invariant Helpers
// ============================================================================

// assertInvariants runs the structural validator plus the byte accounting check.
func assertInvariants(t testing.TB, p *Pool) {
	t.Helper()

	require.NoError(t, p.Validate())

	u, err := p.Usage()
	require.NoError(t, err)
	require.Equal(t, u.BlockBytes,
		u.Live.Bytes+u.Free.Bytes+u.HeaderBytes+u.SentinelBytes,
		"payloads + free ranges + headers + sentinels must equal acquired bytes")
	require.Equal(t, p.FreeListLen(), u.Free.Count, "free list length must match free chunk count")
}

// freeChunkSizes returns the payload sizes of all free chunks in physical order.
func freeChunkSizes(t testing.TB, p *Pool) []int {
	t.Helper()

	var sizes []int
	require.NoError(t, p.Walk(func(c ChunkInfo) error {
		if c.Free {
			sizes = append(sizes, c.Size)
		}
		return nil
	}))
	return sizes
}

// fill writes a per-allocation pattern so overlapping payloads are detectable.
func fill(b []byte, tag byte) {
	for i := range b {
		b[i] = tag
	}
}

// checkFill verifies the pattern written by fill.
func checkFill(t testing.TB, b []byte, tag byte) {
	t.Helper()
	for i, v := range b {
		if v != tag {
			t.Fatalf("payload byte %d = 0x%02x, want 0x%02x (overlapping allocation?)", i, v, tag)
		}
	}
}
