package pool

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveAlloc struct {
	ref     Ref
	payload []byte
	tag     byte
}

// Test_Property_RandomAllocFree performs random alloc/free with a fixed seed
// and checks every structural invariant after every step.
func Test_Property_RandomAllocFree(t *testing.T) {
	for _, cfg := range []struct {
		name     string
		hardened bool
		unit     int
	}{
		{"default", false, DefaultBlockUnit},
		{"hardened", true, DefaultBlockUnit},
		{"small-unit", false, 512},
	} {
		t.Run(cfg.name, func(t *testing.T) {
			p, _ := newTestPool(t, func(c *Config) {
				c.Hardened = cfg.hardened
				c.BlockUnit = cfg.unit
			})
			rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
			var live []liveAlloc

			steps := 3000
			if testing.Short() {
				steps = 500
			}
			for i := range steps {
				if len(live) == 0 || rng.Intn(100) < 55 {
					size := 1 + rng.Intn(2000)
					if rng.Intn(50) == 0 {
						size = 9000 + rng.Intn(20000)
					}
					ref, payload, err := p.Alloc(size)
					require.NoError(t, err, "step %d: alloc %d", i, size)
					require.GreaterOrEqual(t, len(payload), size)
					tag := byte(i)
					fill(payload, tag)
					live = append(live, liveAlloc{ref: ref, payload: payload, tag: tag})
				} else {
					j := rng.Intn(len(live))
					la := live[j]
					checkFill(t, la.payload, la.tag)
					require.NoError(t, p.Free(la.ref), "step %d", i)
					live[j] = live[len(live)-1]
					live = live[:len(live)-1]
				}
				assertInvariants(t, p)
			}

			for _, la := range live {
				checkFill(t, la.payload, la.tag)
			}
		})
	}
}

// Test_Property_FullCoalescence frees everything in random order and expects
// every block to collapse back to a single free chunk.
func Test_Property_FullCoalescence(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		p, src := newTestPool(t)
		rng := rand.New(rand.NewSource(seed))

		var bufs [][]byte
		for range 400 {
			b, err := p.Allocate(1 + rng.Intn(1500))
			require.NoError(t, err)
			bufs = append(bufs, b)
		}
		rng.Shuffle(len(bufs), func(i, j int) { bufs[i], bufs[j] = bufs[j], bufs[i] })
		for _, b := range bufs {
			require.NoError(t, p.Deallocate(b))
		}
		assertInvariants(t, p)

		var chunks, blocks int
		require.NoError(t, p.Walk(func(c ChunkInfo) error {
			chunks++
			if c.Offset == 0 {
				blocks++
				assert.True(t, c.Free)
				assert.Equal(t, c.BlockSize-HeaderSize-SentinelSize, c.Size)
			}
			return nil
		}))
		assert.Equal(t, len(src.acquired), blocks)
		assert.Equal(t, blocks, chunks, "seed %d: every block must be a single chunk", seed)
		assert.Equal(t, blocks, p.FreeListLen())
	}
}

// Test_Property_NoOverlap keeps many allocations alive and checks pairwise
// disjointness of their payload ranges.
func Test_Property_NoOverlap(t *testing.T) {
	p, _ := newTestPool(t)
	rng := rand.New(rand.NewSource(7))

	type span struct{ start, end uintptr }
	var spans []span
	var bufs [][]byte
	for i := range 600 {
		b, err := p.Allocate(1 + rng.Intn(700))
		require.NoError(t, err)
		bufs = append(bufs, b)
		if i%3 == 0 {
			k := rng.Intn(len(bufs))
			require.NoError(t, p.Deallocate(bufs[k]))
			bufs = append(bufs[:k], bufs[k+1:]...)
		}
	}
	for _, b := range bufs {
		spans = append(spans, span{addr(b), addr(b) + uintptr(len(b))})
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			if a.start < b.end && b.start < a.end {
				t.Fatalf("allocations %d and %d overlap: [0x%x,0x%x) [0x%x,0x%x)", i, j, a.start, a.end, b.start, b.end)
			}
		}
	}
	assertInvariants(t, p)
}
