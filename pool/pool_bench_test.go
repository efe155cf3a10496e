package pool

import (
	"math/rand"
	"testing"
)

func BenchmarkAllocFree_Fixed(b *testing.B) {
	p, _ := newTestPool(b)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		r, _, err := p.Alloc(64)
		if err != nil {
			b.Fatal(err)
		}
		if err := p.Free(r); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAllocFree_Mixed(b *testing.B) {
	p, _ := newTestPool(b)
	rng := rand.New(rand.NewSource(1))
	sizes := make([]int, 1024)
	for i := range sizes {
		sizes[i] = 4 * (1 + rng.Intn(1000))
	}
	ring := make([]Ref, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := range b.N {
		slot := i % len(ring)
		if ring[slot] != NoRef {
			if err := p.Free(ring[slot]); err != nil {
				b.Fatal(err)
			}
		}
		r, _, err := p.Alloc(sizes[i%len(sizes)])
		if err != nil {
			b.Fatal(err)
		}
		ring[slot] = r
	}
}

func BenchmarkAllocateDeallocate_Slices(b *testing.B) {
	p, _ := newTestPool(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := range b.N {
		buf, err := p.Allocate(16 + i%512)
		if err != nil {
			b.Fatal(err)
		}
		if err := p.Deallocate(buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSyncPool(b *testing.B) {
	sp, err := NewSync(Config{Backing: BackingHeap, Release: ReleaseAll})
	if err != nil {
		b.Fatal(err)
	}
	defer sp.Close()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf, err := sp.Allocate(128)
			if err != nil {
				b.Error(err)
				return
			}
			if err := sp.Deallocate(buf); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
