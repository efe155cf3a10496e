package pool

import "fmt"

// Ref identifies a chunk by the block that holds it and the offset of its
// header inside that block:
//
//	bits 63..32  block id (1-based)
//	bits 31..0   header offset within the block
//
// The zero Ref is never a valid chunk and doubles as the "none" marker in
// chunk headers.
type Ref uint64

// NoRef is the null reference.
const NoRef Ref = 0

func makeRef(block uint32, off int) Ref {
	return Ref(uint64(block)<<32 | uint64(uint32(off)))
}

// Block returns the id of the block holding the chunk.
func (r Ref) Block() uint32 { return uint32(r >> 32) }

// Offset returns the header offset of the chunk within its block.
func (r Ref) Offset() int { return int(uint32(r)) }

func (r Ref) String() string {
	if r == NoRef {
		return "ref(none)"
	}
	return fmt.Sprintf("ref(%d:0x%x)", r.Block(), r.Offset())
}
