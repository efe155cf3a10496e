// Package format describes the in-block layout used by the pool: the chunk
// header that precedes every payload and the sentinel byte that terminates
// every block. The helpers here operate on raw block bytes and never allocate,
// so the engine can treat a block as a plain []byte.
package format

const (
	// ChunkHeaderSize is the size of the header preceding every chunk payload.
	//
	// Layout (little-endian):
	//
	//	Offset  Size  Description
	//	0x00    1     Flags. Bit 0 set => chunk is free.
	//	0x01    7     Reserved, zero.
	//	0x08    8     Physical predecessor reference (0 = first in block).
	//	0x10    8     Payload size in bytes (header excluded).
	//	0x18    8     Free-list predecessor reference (valid while free).
	//	0x20    8     Free-list successor reference (valid while free).
	ChunkHeaderSize = 0x28

	FlagsOffset    = 0x00
	PhysPrevOffset = 0x08
	SizeOffset     = 0x10
	ListPrevOffset = 0x18
	ListNextOffset = 0x20

	// FlagFree marks a chunk as a member of the free list.
	FlagFree byte = 0x01
	// FlagUsed is the flags value of a chunk handed out to a caller.
	FlagUsed byte = 0x00

	// SentinelSize is the number of bytes reserved at the end of every block.
	SentinelSize = 1

	// DefaultSentinel is the byte written at the last position of each block.
	// It must never be a valid flags value so a forward walk can tell the
	// end of a block from the start of another chunk.
	DefaultSentinel byte = 0xFF

	// DefaultBlockUnit is the granularity of OS block requests.
	DefaultBlockUnit = 8192

	// Alignment is the payload alignment guaranteed by the pool.
	Alignment     = 8
	AlignmentMask = Alignment - 1

	// MinPayload is the smallest payload ever handed out.
	MinPayload = Alignment

	// MaxBlockSize bounds a single block so chunk offsets fit in 32 bits.
	MaxBlockSize = 1<<32 - Alignment
)

// BlockOverhead is the space a block spends on its first header and sentinel.
const BlockOverhead = ChunkHeaderSize + SentinelSize
