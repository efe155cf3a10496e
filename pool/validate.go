package pool

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/internal/format"
)

// Validate checks the structural invariants of the pool:
//
//   - every block ends with the sentinel and its chunks tile the rest of it
//   - the first chunk of a block has no physical predecessor, every other
//     chunk names the chunk right before it
//   - no two physically adjacent chunks are both free
//   - the free list holds exactly the free chunks, once each, with
//     symmetric links and the recorded length
//   - payloads, headers and sentinels add up to the bytes acquired
//
// Hardened pools also cross-check the live allocation set. Validate is
// O(chunks) and meant for tests and debugging.
func (p *Pool) Validate() error {
	if p.closed {
		return ErrClosed
	}

	free := make(map[Ref]struct{})
	var liveChunks int
	var liveBytes int64
	var accounted, acquired int64

	for _, b := range p.blocks {
		if b == nil {
			continue
		}
		acquired += int64(len(b.data))
		if got := b.data[len(b.data)-format.SentinelSize]; got != p.cfg.Sentinel {
			return errors.Errorf("block %d: sentinel is 0x%02x, want 0x%02x", b.id, got, p.cfg.Sentinel)
		}
		accounted += format.SentinelSize

		prev := NoRef
		prevFree := false
		end := len(b.data) - format.SentinelSize
		for off := 0; off < end; {
			h, err := format.DecodeHeader(b.data, off)
			if err != nil {
				return errors.Wrapf(err, "block %d", b.id)
			}
			r := makeRef(b.id, off)
			if Ref(h.PhysPrev) != prev {
				return errors.Errorf("%s: physPrev is %s, want %s", r, Ref(h.PhysPrev), prev)
			}
			if h.Free && prevFree {
				return errors.Errorf("%s: free chunk follows free chunk %s", r, prev)
			}
			next := off + format.ChunkHeaderSize + h.Size
			if h.Size < 0 || next > end {
				return errors.Errorf("%s: size %d runs past usable end 0x%x", r, h.Size, end)
			}
			if h.Free {
				free[r] = struct{}{}
			} else {
				liveChunks++
				liveBytes += int64(h.Size)
				if p.live != nil {
					size, ok := p.live.Get(r)
					if !ok {
						return errors.Errorf("%s: used chunk missing from live set", r)
					}
					if size != h.Size {
						return errors.Errorf("%s: live set records %d bytes, header says %d", r, size, h.Size)
					}
				}
			}
			accounted += int64(format.ChunkHeaderSize + h.Size)
			prev, prevFree = r, h.Free
			off = next
		}
		if prev == NoRef {
			return errors.Errorf("block %d: no chunks", b.id)
		}
	}

	if accounted != acquired {
		return errors.Errorf("accounting: chunks and sentinels cover %d bytes, blocks hold %d", accounted, acquired)
	}
	if liveChunks != p.stats.LiveAllocations || liveBytes != p.stats.LiveBytes {
		return errors.Errorf("accounting: %d live chunks (%d bytes), counters say %d (%d bytes)",
			liveChunks, liveBytes, p.stats.LiveAllocations, p.stats.LiveBytes)
	}
	if p.live != nil && p.live.Count() != liveChunks {
		return errors.Errorf("live set holds %d refs, found %d used chunks", p.live.Count(), liveChunks)
	}

	return p.validateFreeList(free)
}

func (p *Pool) validateFreeList(free map[Ref]struct{}) error {
	if p.head == NoRef {
		if p.freeCount != 0 || len(free) != 0 {
			return errors.Errorf("free list empty but count=%d and %d free chunks exist", p.freeCount, len(free))
		}
		return nil
	}

	seen := make(map[Ref]struct{}, len(free))
	c := p.head
	for {
		if _, ok := free[c]; !ok {
			return errors.Errorf("free list: %s is not a free chunk", c)
		}
		if _, dup := seen[c]; dup {
			return errors.Errorf("free list: %s visited twice", c)
		}
		seen[c] = struct{}{}
		nxt := p.next(c)
		if _, ok := free[nxt]; !ok {
			return errors.Errorf("free list: %s links to non-free %s", c, nxt)
		}
		if p.prev(nxt) != c {
			return errors.Errorf("free list: %s.next=%s but %s.prev=%s", c, nxt, nxt, p.prev(nxt))
		}
		c = nxt
		if c == p.head {
			break
		}
	}

	if len(seen) != p.freeCount {
		return errors.Errorf("free list: walked %d chunks, count says %d", len(seen), p.freeCount)
	}
	if len(seen) != len(free) {
		return errors.Errorf("free list: holds %d chunks, %d chunks are free", len(seen), len(free))
	}
	return nil
}
