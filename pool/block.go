package pool

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/internal/buf"
	"github.com/joshuapare/mempool/internal/format"
)

// block is one region obtained from the block source.
type block struct {
	id      uint32
	data    []byte
	base    uintptr // address of data[0], used to map payload slices back to chunks
	release func() error
}

// blockRange is an entry of the address index, kept sorted by start.
type blockRange struct {
	start uintptr
	end   uintptr // exclusive
	id    uint32
}

// blockSizeFor returns the block size needed for a payload of need bytes.
func (p *Pool) blockSizeFor(need int) (int, error) {
	if _, ok := buf.AddOverflowSafe(need, format.BlockOverhead+p.cfg.BlockUnit-1); !ok {
		return 0, errors.Wrapf(ErrTooLarge, "payload %d", need)
	}
	size := format.BlockSizeFor(need, p.cfg.BlockUnit)
	if size > format.MaxBlockSize {
		return 0, errors.Wrapf(ErrTooLarge, "payload %d needs a %d byte block", need, size)
	}
	return size, nil
}

// acquire obtains a block able to hold need payload bytes, stamps the
// sentinel, writes a single free chunk covering it and links that chunk into
// the free list right after head. The new chunk becomes head.
func (p *Pool) acquire(need int) error {
	size, err := p.blockSizeFor(need)
	if err != nil {
		return err
	}
	if len(p.blocks) >= math.MaxUint32 {
		return errors.Wrapf(ErrTooLarge, "block table full (%d blocks)", len(p.blocks))
	}

	data, release, err := p.source.Acquire(size)
	if err != nil {
		return errors.WithStack(&sourceError{size: size, cause: err})
	}
	if len(data) != size {
		if release != nil {
			_ = release()
		}
		return errors.Wrapf(ErrAllocationFailure, "block source returned %d bytes, want %d", len(data), size)
	}
	if release == nil {
		release = func() error { return nil }
	}

	b := &block{
		id:      uint32(len(p.blocks) + 1),
		data:    data,
		base:    uintptr(unsafe.Pointer(unsafe.SliceData(data))),
		release: release,
	}
	p.blocks = append(p.blocks, b)
	p.indexBlock(b)

	data[size-format.SentinelSize] = p.cfg.Sentinel
	format.EncodeHeader(data, 0, format.Header{Free: true, Size: size - format.BlockOverhead})

	r := makeRef(b.id, 0)
	p.insertChunk(r, p.head)
	p.head = r

	p.stats.BlocksAcquired++
	p.stats.BytesAcquired += int64(size)
	if p.obs != nil {
		p.obs.BlockAcquired(size)
	}
	p.log.Debug("block acquired", "block", b.id, "size", size, "need", need)
	return nil
}

// indexBlock inserts b into the sorted address index.
func (p *Pool) indexBlock(b *block) {
	br := blockRange{start: b.base, end: b.base + uintptr(len(b.data)), id: b.id}
	i := len(p.ranges)
	p.ranges = append(p.ranges, br)
	for i > 0 && p.ranges[i-1].start > br.start {
		p.ranges[i] = p.ranges[i-1]
		i--
	}
	p.ranges[i] = br
}

// findBlock returns the block containing addr.
// O(log B) via binary search on the address index.
func (p *Pool) findBlock(addr uintptr) (*block, bool) {
	lo, hi := 0, len(p.ranges)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		r := p.ranges[mid]
		if addr < r.start {
			hi = mid - 1
		} else if addr >= r.end {
			lo = mid + 1
		} else {
			b := p.blocks[r.id-1]
			return b, b != nil
		}
	}
	return nil, false
}

// releaseBlock returns b to its source and drops it from the table.
func (p *Pool) releaseBlock(b *block) error {
	size := len(b.data)
	err := b.release()
	p.blocks[b.id-1] = nil
	for i, r := range p.ranges {
		if r.id == b.id {
			p.ranges = append(p.ranges[:i], p.ranges[i+1:]...)
			break
		}
	}
	b.data = nil
	p.stats.BlocksReleased++
	if p.obs != nil {
		p.obs.BlockReleased(size)
	}
	if err != nil {
		return errors.Wrapf(err, "pool: release block %d", b.id)
	}
	return nil
}
