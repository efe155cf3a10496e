package pool

import "github.com/joshuapare/mempool/internal/format"

// The free list is a circular doubly-linked list threaded through the
// listPrev/listNext fields of free chunk headers. head is the only entry the
// allocator ever inspects; every other member is reached by walking from it.

// Header accessors. r must name a live block.

func (p *Pool) hdr(r Ref) ([]byte, int) {
	return p.blocks[r.Block()-1].data, r.Offset()
}

func (p *Pool) size(r Ref) int {
	b, off := p.hdr(r)
	return format.Size(b, off)
}

func (p *Pool) isFree(r Ref) bool {
	b, off := p.hdr(r)
	return format.IsFree(b, off)
}

func (p *Pool) next(r Ref) Ref {
	b, off := p.hdr(r)
	return Ref(format.ListNext(b, off))
}

func (p *Pool) prev(r Ref) Ref {
	b, off := p.hdr(r)
	return Ref(format.ListPrev(b, off))
}

func (p *Pool) setNext(r, to Ref) {
	b, off := p.hdr(r)
	format.SetListNext(b, off, uint64(to))
}

func (p *Pool) setPrev(r, to Ref) {
	b, off := p.hdr(r)
	format.SetListPrev(b, off, uint64(to))
}

func (p *Pool) physPrev(r Ref) Ref {
	b, off := p.hdr(r)
	return Ref(format.PhysPrev(b, off))
}

// physNext returns the chunk physically after r, or NoRef when r is the
// last chunk of its block (the byte after it is the sentinel).
func (p *Pool) physNext(r Ref) Ref {
	b, off := p.hdr(r)
	nxt := format.NextOffset(b, off)
	if format.IsBlockEnd(b, nxt, p.cfg.Sentinel) {
		return NoRef
	}
	return makeRef(r.Block(), nxt)
}

// insertChunk links c into the free list right after pre. A nil pre means the
// list is empty: c becomes a one-element ring and the new head.
func (p *Pool) insertChunk(c, pre Ref) {
	if pre == NoRef {
		p.setNext(c, c)
		p.setPrev(c, c)
		p.head = c
	} else {
		nxt := p.next(pre)
		p.setPrev(c, pre)
		p.setNext(c, nxt)
		p.setNext(pre, c)
		p.setPrev(nxt, c)
	}
	p.freeCount++
}

// removeChunk unlinks c from the free list, advancing head past it when
// needed. Removing the last element leaves the list empty.
func (p *Pool) removeChunk(c Ref) {
	nxt := p.next(c)
	if nxt == c {
		p.head = NoRef
	} else {
		if p.head == c {
			p.head = nxt
		}
		prv := p.prev(c)
		p.setNext(prv, nxt)
		p.setPrev(nxt, prv)
	}
	p.setNext(c, NoRef)
	p.setPrev(c, NoRef)
	p.freeCount--
}

// updatePool runs one maintenance step after every allocate and deallocate.
// If the successor of head is larger, head advances to it. If it is smaller
// and the list holds more than two chunks, the successor is moved to just
// before head, so smaller chunks drift away from the front of the list.
// The step never sorts and never looks further than head's successor.
func (p *Pool) updatePool() {
	if p.head == NoRef {
		return
	}
	nxt := p.next(p.head)
	hs, ns := p.size(p.head), p.size(nxt)
	if hs < ns {
		p.head = nxt
		p.stats.HeadAdvances++
	} else if hs > ns && p.next(nxt) != p.head {
		p.removeChunk(nxt)
		p.insertChunk(nxt, p.prev(p.head))
		p.stats.Reorders++
	}
}

// mergeNextChunk grows c over its physical successor. The successor must be
// free; unlinking it from the free list is the caller's job.
func (p *Pool) mergeNextChunk(c Ref) {
	b, off := p.hdr(c)
	nxt := p.physNext(c)
	format.SetSize(b, off, format.Size(b, off)+format.ChunkHeaderSize+p.size(nxt))
	if after := p.physNext(c); after != NoRef {
		ab, aoff := p.hdr(after)
		format.SetPhysPrev(ab, aoff, uint64(c))
	}
}
