package pool

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/internal/format"
)

// ChunkInfo describes one chunk seen by Walk.
type ChunkInfo struct {
	Ref       Ref
	Block     uint32
	BlockSize int
	Offset    int // header offset within the block
	Size      int // payload bytes
	Free      bool
	PhysPrev  Ref
}

// Walk visits every chunk of every held block in physical order. It decodes
// headers defensively and returns an error instead of panicking on a corrupt
// chain. A non-nil error from fn ends the walk and is returned.
func (p *Pool) Walk(fn func(ChunkInfo) error) error {
	if p.closed {
		return ErrClosed
	}
	for _, b := range p.blocks {
		if b == nil {
			continue
		}
		end := len(b.data) - format.SentinelSize
		off := 0
		for off < end {
			h, err := format.DecodeHeader(b.data, off)
			if err != nil {
				return errors.Wrapf(err, "block %d", b.id)
			}
			info := ChunkInfo{
				Ref:       makeRef(b.id, off),
				Block:     b.id,
				BlockSize: len(b.data),
				Offset:    off,
				Size:      h.Size,
				Free:      h.Free,
				PhysPrev:  Ref(h.PhysPrev),
			}
			if err := fn(info); err != nil {
				return err
			}
			next := off + format.ChunkHeaderSize + h.Size
			if next <= off || next > end {
				return errors.Errorf("block %d: chunk at 0x%x (size %d) runs past usable end 0x%x",
					b.id, off, h.Size, end)
			}
			off = next
		}
	}
	return nil
}
