package pool

import (
	"log/slog"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"

	"github.com/joshuapare/mempool/internal/buf"
	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/osmem"
)

// Runtime debug flag for per-allocation logging - controlled by MEMPOOL_LOG_ALLOC env var.
var logAlloc = os.Getenv("MEMPOOL_LOG_ALLOC") != ""

// Pool carves variable-sized chunks out of large blocks and recycles them
// through a single free list. A Pool is not safe for concurrent use; wrap it
// in a SyncPool when several goroutines share it.
type Pool struct {
	cfg    Config
	source BlockSource
	log    *slog.Logger
	obs    Observer

	// Block table indexed by id-1. Released blocks leave a nil slot so ids
	// stay stable.
	blocks []*block
	// Address index for mapping payload slices back to their block.
	ranges []blockRange

	head      Ref // free list entry point, NoRef when empty
	freeCount int // free list length

	// Live chunks and their payload sizes (Config.Hardened only).
	live *swiss.Map[Ref, int]

	stats  Stats
	closed bool
}

// New returns an empty pool. No memory is acquired until the first allocation.
func New(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:    cfg,
		source: cfg.source(),
		log:    cfg.Logger,
		obs:    cfg.Observer,
	}
	if cfg.Hardened {
		p.live = swiss.NewMap[Ref, int](64)
	}
	if cfg.Source == nil && cfg.Backing == BackingMmap && !osmem.Mapped {
		p.log.Debug("anonymous mappings unavailable, blocks come from the Go heap")
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *Pool) Config() Config { return p.cfg }

// payloadSize validates a caller request and applies the minimum payload.
func payloadSize(size int) (int, error) {
	if size < 0 {
		return 0, errors.Wrapf(ErrInvalidSize, "size %d", size)
	}
	if size > format.MaxBlockSize {
		return 0, errors.Wrapf(ErrTooLarge, "size %d", size)
	}
	return max(size, format.MinPayload), nil
}

// Alloc carves a chunk of at least size bytes and returns its reference and
// payload. The payload spans the whole chunk (len == cap >= size) and its
// contents are unspecified.
//
// Only head is considered: if it is missing or too small a new block is
// acquired and becomes head. A head larger than the request plus one header
// is split at the next 8-byte boundary and the remainder takes its place in
// the free list.
func (p *Pool) Alloc(size int) (Ref, []byte, error) {
	if p.closed {
		return NoRef, nil, ErrClosed
	}
	need, err := payloadSize(size)
	if err != nil {
		return NoRef, nil, err
	}
	p.stats.AllocCalls++

	if p.head == NoRef || p.size(p.head) < need {
		if err := p.acquire(need); err != nil {
			return NoRef, nil, err
		}
		p.stats.AllocSlowPath++
	}

	c := p.head
	b, off := p.hdr(c)
	carve := format.Align8(need)
	if have := format.Size(b, off); have > carve+format.ChunkHeaderSize {
		rest := off + format.ChunkHeaderSize + carve
		format.EncodeHeader(b, rest, format.Header{
			Free:     true,
			PhysPrev: uint64(c),
			Size:     have - carve - format.ChunkHeaderSize,
		})
		restRef := makeRef(c.Block(), rest)
		if after := p.physNext(restRef); after != NoRef {
			format.SetPhysPrev(b, after.Offset(), uint64(restRef))
		}
		format.SetSize(b, off, carve)
		p.insertChunk(restRef, c)
		p.removeChunk(c)
		p.stats.Splits++
	} else {
		p.removeChunk(c)
	}
	format.SetFree(b, off, false)
	p.updatePool()

	got := format.Size(b, off)
	if p.live != nil {
		p.live.Put(c, got)
	}
	p.stats.LiveAllocations++
	p.stats.LiveBytes += int64(got)
	if p.obs != nil {
		p.obs.Allocated(got)
	}
	if logAlloc {
		p.log.Debug("alloc", "ref", c, "size", size, "carved", got)
	}
	debugValidate(p)

	payload, ok := buf.Slice(b, off+format.ChunkHeaderSize, got)
	if !ok {
		return NoRef, nil, errors.AssertionFailedf("%s: payload of %d bytes runs past block end", c, got)
	}
	return c, payload, nil
}

// Allocate is Alloc for callers that only keep the payload. The returned
// slice has len == cap == size and is released with Deallocate. A zero-size
// request gets cap 1 so the slice still addresses its chunk.
func (p *Pool) Allocate(size int) ([]byte, error) {
	_, payload, err := p.Alloc(size)
	if err != nil {
		return nil, err
	}
	return payload[:size:max(size, 1)], nil
}

// Free returns the chunk named by ref to the pool, merging it with free
// physical neighbours. Without Config.Hardened, freeing a chunk twice or
// freeing a stale reference is undefined.
func (p *Pool) Free(ref Ref) error {
	if p.closed {
		return ErrClosed
	}
	if err := p.checkRef(ref); err != nil {
		return err
	}
	p.stats.FreeCalls++

	b, off := p.hdr(ref)
	freed := format.Size(b, off)
	format.SetFree(b, off, true)

	if nxt := p.physNext(ref); nxt != NoRef && p.isFree(nxt) {
		p.mergeNextChunk(ref)
		p.removeChunk(nxt)
		p.stats.CoalesceForward++
	}
	if pre := p.physPrev(ref); pre != NoRef && p.isFree(pre) {
		p.mergeNextChunk(pre)
		p.stats.CoalesceBackward++
	} else {
		p.insertChunk(ref, p.head)
	}
	p.updatePool()

	if p.live != nil {
		p.live.Delete(ref)
	}
	p.stats.LiveAllocations--
	p.stats.LiveBytes -= int64(freed)
	if p.obs != nil {
		p.obs.Freed(freed)
	}
	if logAlloc {
		p.log.Debug("free", "ref", ref, "size", freed)
	}
	debugValidate(p)
	return nil
}

// Deallocate releases a payload obtained from Allocate or Alloc. Any slice
// whose first element is the first payload byte is accepted, so reslicing
// p[:0] is fine but p[1:] is not.
func (p *Pool) Deallocate(payload []byte) error {
	ref, err := p.RefOf(payload)
	if err != nil {
		return err
	}
	return p.Free(ref)
}

// RefOf maps a payload slice back to its chunk reference.
func (p *Pool) RefOf(payload []byte) (Ref, error) {
	if p.closed {
		return NoRef, ErrClosed
	}
	ptr := unsafe.SliceData(payload)
	if ptr == nil {
		return NoRef, errors.Wrap(ErrContractViolation, "nil payload")
	}
	addr := uintptr(unsafe.Pointer(ptr))
	blk, ok := p.findBlock(addr)
	if !ok {
		return NoRef, errors.Wrapf(ErrContractViolation, "payload 0x%x not owned by this pool", addr)
	}
	off := int(addr-blk.base) - format.ChunkHeaderSize
	if off < 0 || off&format.AlignmentMask != 0 {
		return NoRef, errors.Wrapf(ErrContractViolation, "payload 0x%x is not a chunk start", addr)
	}
	return makeRef(blk.id, off), nil
}

// UsableSize returns the payload size of the chunk named by ref.
func (p *Pool) UsableSize(ref Ref) (int, error) {
	if p.closed {
		return 0, ErrClosed
	}
	if err := p.checkRef(ref); err != nil {
		return 0, err
	}
	return p.size(ref), nil
}

// checkRef makes sure ref can be dereferenced. Hardened pools additionally
// require ref to name a live allocation.
func (p *Pool) checkRef(ref Ref) error {
	id := ref.Block()
	if id == 0 || int(id) > len(p.blocks) || p.blocks[id-1] == nil {
		return errors.Wrapf(ErrContractViolation, "%s: unknown block", ref)
	}
	b := p.blocks[id-1].data
	off := ref.Offset()
	if off&format.AlignmentMask != 0 {
		return errors.Wrapf(ErrContractViolation, "%s: misaligned offset", ref)
	}
	if _, err := buf.CheckRange(len(b)-format.SentinelSize, off, format.ChunkHeaderSize); err != nil {
		return errors.Wrapf(ErrContractViolation, "%s: header outside block: %v", ref, err)
	}
	if p.live == nil {
		return nil
	}
	if _, ok := p.live.Get(ref); !ok {
		if format.IsFree(b, off) {
			return errors.Wrapf(ErrContractViolation, "%s: double free", ref)
		}
		return errors.Wrapf(ErrContractViolation, "%s: not a live allocation", ref)
	}
	if format.IsFree(b, off) {
		return errors.Wrapf(ErrContractViolation, "%s: header marked free while live", ref)
	}
	return nil
}

// Teardown summarises what Close gave back.
type Teardown struct {
	ReleasedBlocks int
	ReleasedBytes  int64
	LeakedBlocks   int   // blocks left to the runtime because they held live chunks
	LeakedBytes    int64 // bytes in leaked blocks
}

// Close releases blocks according to Config.Release and disables the pool.
func (p *Pool) Close() (Teardown, error) {
	var td Teardown
	if p.closed {
		return td, ErrClosed
	}

	var release []*block
	switch p.cfg.Release {
	case ReleaseAll:
		for _, b := range p.blocks {
			if b != nil {
				release = append(release, b)
			}
		}
	default:
		// One pass over the free list from head. Collect first: releasing a
		// block unmaps the headers the walk is reading.
		if c := p.head; c != NoRef {
			for {
				if p.physPrev(c) == NoRef && p.physNext(c) == NoRef {
					release = append(release, p.blocks[c.Block()-1])
				}
				c = p.next(c)
				if c == p.head {
					break
				}
			}
		}
	}

	var errs error
	for _, b := range release {
		size := len(b.data)
		if err := p.releaseBlock(b); err != nil {
			errs = errors.CombineErrors(errs, err)
			continue
		}
		td.ReleasedBlocks++
		td.ReleasedBytes += int64(size)
		p.log.Debug("block released", "block", b.id, "size", size)
	}
	for _, b := range p.blocks {
		if b == nil {
			continue
		}
		td.LeakedBlocks++
		td.LeakedBytes += int64(len(b.data))
		p.log.Warn("block not released at teardown", "block", b.id, "size", len(b.data),
			"policy", p.cfg.Release.String())
	}

	p.closed = true
	p.head = NoRef
	p.freeCount = 0
	p.blocks = nil
	p.ranges = nil
	p.live = nil
	return td, errs
}
