// Package pool implements a user-space memory pool that serves many small,
// short-lived allocations from a few large blocks.
//
// # Overview
//
// Blocks are requested from a BlockSource (anonymous mmap by default) in
// multiples of Config.BlockUnit and end with a one-byte sentinel. Each block
// is carved into chunks; every chunk starts with a 40-byte header holding its
// free flag, its physical predecessor, its payload size and, while free, its
// links in the free list.
//
//	block (8192 bytes)
//	+--------+---------+--------+-----------------+---+
//	| header | payload | header | payload (free)  |FF |
//	+--------+---------+--------+-----------------+---+
//
// # Allocation
//
// All free chunks of all blocks form one circular doubly-linked list. Only
// its head is ever considered for a request:
//
//   - head missing or too small: acquire a new block, link its single chunk
//     after head and make it head
//   - head larger than the request plus a header: split it, the remainder
//     takes head's place in the list
//   - otherwise hand out head whole
//
// After every allocation and deallocation one maintenance step runs: head
// advances to its successor when the successor is larger, or a smaller
// successor is moved behind head. This keeps large chunks near the front
// without sorting.
//
// # Deallocation
//
// A freed chunk absorbs a free physical successor and is then absorbed by a
// free physical predecessor, so two free chunks are never adjacent. When
// every allocation from a block is freed the block is one free chunk again.
//
// # Usage Example
//
//	p, err := pool.New(pool.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	buf, err := p.Allocate(100)
//	if err != nil {
//	    return err
//	}
//	copy(buf, data)
//	err = p.Deallocate(buf)
//
// # References
//
// Alloc and Free work with Ref handles (block id and header offset) instead
// of slices. Allocate and Deallocate map slices back to chunks through a
// sorted index of block addresses.
//
// # Thread Safety
//
// Pool instances are not thread-safe. SyncPool wraps a Pool with a mutex and
// Default returns a lazily created, process-wide SyncPool.
//
// # Hardening
//
// Without Config.Hardened, freeing a chunk twice or freeing a stale Ref is
// undefined, as is touching a payload after freeing it. Hardened pools keep
// a set of live chunks and report such calls as ErrContractViolation. Builds
// with the mempool_debug tag run Validate after every operation.
//
// # Teardown
//
// Close applies Config.Release. ReleaseFreeListed returns only blocks that
// are entirely free; blocks still holding allocations are left to the
// runtime and reported in Teardown. ReleaseAll returns every block.
package pool
