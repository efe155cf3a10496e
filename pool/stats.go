package pool

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// Stats holds engine counters. Counters accumulate for the life of the pool;
// the gauges (LiveAllocations, LiveBytes, FreeChunks, Blocks) describe the
// current state.
type Stats struct {
	AllocCalls       int   // Alloc/Allocate calls that passed validation
	AllocSlowPath    int   // Allocations that required a new block
	FreeCalls        int   // Free/Deallocate calls that passed validation
	Splits           int   // Chunks split to satisfy a request
	CoalesceForward  int   // Merges with a free physical successor
	CoalesceBackward int   // Merges into a free physical predecessor
	HeadAdvances     int   // Maintenance steps that moved head forward
	Reorders         int   // Maintenance steps that moved a small chunk behind head
	BlocksAcquired   int   // Blocks obtained from the source
	BlocksReleased   int   // Blocks handed back to the source
	BytesAcquired    int64 // Total bytes obtained from the source
	LiveAllocations  int   // Chunks currently handed out
	LiveBytes        int64 // Payload bytes currently handed out
	FreeChunks       int   // Free list length
	Blocks           int   // Blocks currently held
	BlockBytes       int64 // Bytes in blocks currently held
}

// Stats returns a snapshot of the engine counters.
func (p *Pool) Stats() Stats {
	s := p.stats
	s.FreeChunks = p.freeCount
	for _, b := range p.blocks {
		if b != nil {
			s.Blocks++
			s.BlockBytes += int64(len(b.data))
		}
	}
	return s
}

// FreeListLen returns the number of chunks in the free list.
func (p *Pool) FreeListLen() int { return p.freeCount }

// PrintStats writes a human-readable summary of the counters to w.
func (p *Pool) PrintStats(w io.Writer) {
	s := p.Stats()
	fmt.Fprintf(w, "\n=== POOL STATISTICS ===\n")
	fmt.Fprintf(w, "Blocks held:        %d (%d KB)\n", s.Blocks, s.BlockBytes/1024)
	fmt.Fprintf(w, "Blocks acquired:    %d (%d KB total)\n", s.BlocksAcquired, s.BytesAcquired/1024)
	fmt.Fprintf(w, "Blocks released:    %d\n", s.BlocksReleased)
	fmt.Fprintf(
		w,
		"Alloc calls:        %d (fast: %d, slow: %d)\n",
		s.AllocCalls,
		s.AllocCalls-s.AllocSlowPath,
		s.AllocSlowPath,
	)
	fmt.Fprintf(w, "Free calls:         %d\n", s.FreeCalls)
	fmt.Fprintf(w, "Live allocations:   %d (%d bytes)\n", s.LiveAllocations, s.LiveBytes)
	fmt.Fprintf(w, "Free chunks:        %d\n", s.FreeChunks)
	fmt.Fprintf(w, "Chunk splits:       %d\n", s.Splits)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)
	fmt.Fprintf(w, "Head advances:      %d\n", s.HeadAdvances)
	fmt.Fprintf(w, "Reorders:           %d\n", s.Reorders)
	fmt.Fprintf(w, "=======================\n")
}

// SizeSummary aggregates a set of chunk sizes. Min and Max are zero while
// Count is zero.
type SizeSummary struct {
	Count int
	Bytes int
	Min   int
	Max   int
}

func (s *SizeSummary) add(size int) {
	if s.Count == 0 || size < s.Min {
		s.Min = size
	}
	s.Max = max(s.Max, size)
	s.Count++
	s.Bytes += size
}

// Usage splits the bytes of every held block between live chunks, free
// chunks, headers and sentinels. The four always add up to BlockBytes.
type Usage struct {
	Blocks        int
	BlockBytes    int
	HeaderBytes   int
	SentinelBytes int
	Live          SizeSummary
	Free          SizeSummary
}

// Usage walks every chunk of every block. A broken physical chain stops the
// walk and is returned with the totals gathered so far.
func (p *Pool) Usage() (Usage, error) {
	var u Usage
	err := p.Walk(func(c ChunkInfo) error {
		if c.Offset == 0 {
			u.Blocks++
			u.BlockBytes += c.BlockSize
			u.SentinelBytes += SentinelSize
		}
		u.HeaderBytes += HeaderSize
		if c.Free {
			u.Free.add(c.Size)
		} else {
			u.Live.add(c.Size)
		}
		return nil
	})
	if err != nil {
		return u, errors.Wrap(err, "pool: usage")
	}
	return u, nil
}
