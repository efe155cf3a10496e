package format

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/internal/buf"
)

// Header is the decoded form of a chunk header.
type Header struct {
	Free     bool
	PhysPrev uint64 // 0 => first chunk of its block
	Size     int    // payload bytes
	ListPrev uint64
	ListNext uint64
}

// DecodeHeader reads the chunk header at off. It checks bounds, alignment and
// the flags byte but nothing that requires knowledge of the rest of the block.
func DecodeHeader(b []byte, off int) (Header, error) {
	if !buf.Has(b, off, ChunkHeaderSize) {
		return Header{}, errors.Wrapf(ErrTruncated, "header at %d (block len %d)", off, len(b))
	}
	if off&AlignmentMask != 0 {
		return Header{}, errors.Wrapf(ErrMisaligned, "header at %d", off)
	}
	flags := b[off+FlagsOffset]
	if flags != FlagFree && flags != FlagUsed {
		return Header{}, errors.Wrapf(ErrBadFlags, "header at %d has flags 0x%02x", off, flags)
	}
	return Header{
		Free:     flags == FlagFree,
		PhysPrev: ReadU64(b, off+PhysPrevOffset),
		Size:     int(ReadU64(b, off+SizeOffset)),
		ListPrev: ReadU64(b, off+ListPrevOffset),
		ListNext: ReadU64(b, off+ListNextOffset),
	}, nil
}

// EncodeHeader writes h at off, zeroing the reserved bytes.
func EncodeHeader(b []byte, off int, h Header) {
	flags := FlagUsed
	if h.Free {
		flags = FlagFree
	}
	clear(b[off : off+PhysPrevOffset])
	b[off+FlagsOffset] = flags
	PutU64(b, off+PhysPrevOffset, h.PhysPrev)
	PutU64(b, off+SizeOffset, uint64(h.Size))
	PutU64(b, off+ListPrevOffset, h.ListPrev)
	PutU64(b, off+ListNextOffset, h.ListNext)
}

// Field accessors used on the allocation hot path. Callers guarantee that off
// addresses a complete header.

func IsFree(b []byte, off int) bool { return b[off+FlagsOffset] == FlagFree }

func SetFree(b []byte, off int, free bool) {
	if free {
		b[off+FlagsOffset] = FlagFree
		return
	}
	b[off+FlagsOffset] = FlagUsed
}

func Size(b []byte, off int) int { return int(ReadU64(b, off+SizeOffset)) }

func SetSize(b []byte, off int, n int) { PutU64(b, off+SizeOffset, uint64(n)) }

func PhysPrev(b []byte, off int) uint64 { return ReadU64(b, off+PhysPrevOffset) }

func SetPhysPrev(b []byte, off int, r uint64) { PutU64(b, off+PhysPrevOffset, r) }

func ListPrev(b []byte, off int) uint64 { return ReadU64(b, off+ListPrevOffset) }

func SetListPrev(b []byte, off int, r uint64) { PutU64(b, off+ListPrevOffset, r) }

func ListNext(b []byte, off int) uint64 { return ReadU64(b, off+ListNextOffset) }

func SetListNext(b []byte, off int, r uint64) { PutU64(b, off+ListNextOffset, r) }

// NextOffset returns the offset just past the chunk at off: either the next
// header or the sentinel position.
func NextOffset(b []byte, off int) int {
	return off + ChunkHeaderSize + Size(b, off)
}

// IsBlockEnd reports whether no chunk starts at off: off has reached the
// sentinel position of block b, or the byte there is the sentinel.
func IsBlockEnd(b []byte, off int, sentinel byte) bool {
	if off >= len(b)-SentinelSize {
		return true
	}
	return b[off] == sentinel
}
