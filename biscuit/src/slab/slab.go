// Package slab answers sub-page allocation requests on top of the
// buddy allocator (package mem): segregated bins by size, an unsorted
// bin for larger fragments, and a
// "top chunk" frontier that shrinks as new chunks are carved from the
// current page frame. Grounded on
// original_source/mm/SlobAllocator.cc, since biscuit has no
// sub-page allocator of its own (biscuit relies on the host Go
// runtime's allocator for anything smaller than a page).
package slab

import (
	"sync"
	"unsafe"

	"mem"
	"util"
)

const (
	chunkHeaderSize   = 16 // size + prevSize, both uint64
	smallestChunkSize = 0x10
	chunkSizeGap      = 0x10
	largestChunkSize = 0x400
	nrBins           = (largestChunkSize-smallestChunkSize)/chunkSizeGap + 1
)

// chunk is an in-memory (not on-disk) chunk header. Unlike the C++
// source's pointer-laced intrusive list navigated via raw address
// arithmetic, chunks here are identified by (page, offset) pairs and
// held in ordinary Go slices/maps — the allocation algorithm is kept
// byte-for-byte the same, only the pointer plumbing is idiomatic Go.
type chunk struct {
	page      *page
	offset    int // byte offset of this chunk's header within page.buf
	size      int // size including header, a multiple of chunkSizeGap
	prevSize  int // size of the immediately preceding chunk in the page
	allocated bool
}

func (c *chunk) dataOffset() int { return c.offset + chunkHeaderSize }

// page is one 4 KiB frame carved into chunks.
type page struct {
	pa      mem.Pa_t
	buf     []uint8
	chunks  []*chunk // in address order
	topIdx  int       // index into chunks of the current top-chunk frontier
}

// Arena carves sub-page allocations out of page frames obtained from a
// mem.Zone_t. The zero value is not ready; use New.
type Arena struct {
	mu     sync.Mutex
	zone   *mem.Zone_t
	bins   [nrBins][]*chunk
	unsorted []*chunk
	pages  []*page
}

// New creates an Arena backed by zone.
func New(zone *mem.Zone_t) *Arena {
	return &Arena{zone: zone}
}

func normalizeSize(n int) int {
	n = util.Roundup(n, chunkSizeGap)
	if n < smallestChunkSize {
		n = smallestChunkSize
	}
	return n
}

func binIndex(size int) int {
	idx := (size - smallestChunkSize) / chunkSizeGap
	if idx < 0 {
		idx = 0
	}
	return idx
}

func (a *Arena) binDel(bin *[]*chunk, c *chunk) {
	s := *bin
	for i, v := range s {
		if v == c {
			*bin = append(s[:i], s[i+1:]...)
			return
		}
	}
}

func (a *Arena) binAdd(bin *[]*chunk, c *chunk) {
	*bin = append(*bin, c)
}

// requestPage pulls a fresh page frame from the buddy allocator and
// seeds it with one giant top chunk spanning the whole page.
func (a *Arena) requestPage() *page {
	pa, ok := a.zone.Allocate(mem.PGSIZE)
	if !ok {
		return nil
	}
	buf := a.zone.Dmaplen(pa, mem.PGSIZE)
	p := &page{pa: pa, buf: buf}
	top := &chunk{page: p, offset: 0, size: mem.PGSIZE, prevSize: 0}
	p.chunks = []*chunk{top}
	p.topIdx = 0
	a.pages = append(a.pages, p)
	return p
}

func (a *Arena) topChunk(p *page) *chunk {
	return p.chunks[p.topIdx]
}

// splitFromTop carves `size` bytes off the front of p's top chunk,
// shrinking the top-chunk frontier.
func (a *Arena) splitFromTop(p *page, size int) *chunk {
	top := a.topChunk(p)
	c := &chunk{page: p, offset: top.offset, size: size, prevSize: top.prevSize, allocated: true}
	top.offset += size
	top.size -= size
	top.prevSize = size
	idx := p.topIdx
	p.chunks[idx] = top
	p.chunks = append(p.chunks[:idx], append([]*chunk{c}, p.chunks[idx:]...)...)
	p.topIdx = idx + 1
	return c
}

// splitFromChunk carves `size` bytes off the front of a free chunk c
// that may live in any bin, returning the carved, now-allocated piece.
// If the remainder is non-trivial it's reinserted into the appropriate
// bin; otherwise it's consumed whole.
func (a *Arena) splitFromChunk(c *chunk, size int) *chunk {
	a.removeFromWhicheverBin(c)
	if c.size-size < chunkHeaderSize+smallestChunkSize {
		c.allocated = true
		return c
	}
	p := c.page
	idx := a.chunkIndex(p, c)
	rem := &chunk{page: p, offset: c.offset + size, size: c.size - size, prevSize: size}
	victim := &chunk{page: p, offset: c.offset, size: size, prevSize: c.prevSize, allocated: true}
	p.chunks[idx] = victim
	p.chunks = append(p.chunks[:idx+1], append([]*chunk{rem}, p.chunks[idx+1:]...)...)
	if p.topIdx > idx {
		p.topIdx++
	}
	if a.isUsable(rem.size) {
		a.binAdd(&a.bins[binIndex(rem.size)], rem)
	} else {
		a.unsorted = append(a.unsorted, rem)
	}
	return victim
}

func (a *Arena) chunkIndex(p *page, c *chunk) int {
	for i, v := range p.chunks {
		if v == c {
			return i
		}
	}
	panic("slab: chunk not found in its own page")
}

func (a *Arena) removeFromWhicheverBin(c *chunk) {
	idx := binIndex(c.size)
	if idx < nrBins {
		a.binDel(&a.bins[idx], c)
	}
	a.binDel(&a.unsorted, c)
}

func (a *Arena) isUsable(size int) bool {
	return size >= smallestChunkSize+chunkHeaderSize && binIndex(size) < nrBins
}

// Allocate returns a slice of at least n usable bytes, or nil if n plus
// the chunk header does not fit in one page frame or the underlying
// zone is exhausted.
func (a *Arena) Allocate(n int) []uint8 {
	if n <= 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	size := normalizeSize(chunkHeaderSize + n)
	if size > mem.PGSIZE {
		return nil
	}
	idx := binIndex(size)

	var victim *chunk
	if idx < nrBins && len(a.bins[idx]) > 0 {
		victim = a.bins[idx][len(a.bins[idx])-1]
		a.binDel(&a.bins[idx], victim)
		victim.allocated = true
	}

	if victim == nil {
		for _, c := range a.unsorted {
			if c.size >= size {
				victim = a.splitFromChunk(c, size)
				break
			}
		}
	}

	if victim == nil {
		for i := idx; i < nrBins && victim == nil; i++ {
			if len(a.bins[i]) > 0 {
				victim = a.splitFromChunk(a.bins[i][len(a.bins[i])-1], size)
			}
		}
	}

	if victim == nil {
		p := a.currentPage()
		if p == nil || a.topChunk(p).size < size {
			if p != nil {
				rem := a.topChunk(p)
				if a.isUsable(rem.size) {
					a.binAdd(&a.bins[binIndex(rem.size)], rem)
				}
			}
			p = a.requestPage()
			if p == nil {
				return nil
			}
		}
		victim = a.splitFromTop(p, size)
	}

	return victim.page.buf[victim.dataOffset() : victim.offset+victim.size]
}

func (a *Arena) currentPage() *page {
	if len(a.pages) == 0 {
		return nil
	}
	return a.pages[len(a.pages)-1]
}

// Deallocate marks the chunk backing buf as free and coalesces with its
// immediate neighbors within the same page.
func (a *Arena) Deallocate(buf []uint8) {
	if buf == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	p, c := a.findOwning(buf)
	if c == nil {
		panic("slab: deallocate of unknown pointer")
	}
	c.allocated = false
	idx := a.chunkIndex(p, c)

	// coalesce with previous, if free and within the same page.
	if idx > 0 {
		prev := p.chunks[idx-1]
		if !prev.allocated {
			a.removeFromWhicheverBin(prev)
			prev.size += c.size
			p.chunks = append(p.chunks[:idx], p.chunks[idx+1:]...)
			if p.topIdx > idx {
				p.topIdx--
			}
			idx--
			c = prev
		}
	}

	// coalesce with next, unless it's the top chunk (merge into it
	// instead) or allocated.
	if idx+1 < len(p.chunks) {
		next := p.chunks[idx+1]
		if idx+1 == p.topIdx {
			next.offset = c.offset
			next.size += c.size
			next.prevSize = c.prevSize
			p.chunks = append(p.chunks[:idx], p.chunks[idx+1:]...)
			p.topIdx--
			return
		} else if !next.allocated {
			a.removeFromWhicheverBin(next)
			c.size += next.size
			p.chunks = append(p.chunks[:idx+1], p.chunks[idx+2:]...)
			if p.topIdx > idx+1 {
				p.topIdx--
			}
		}
	}

	if idx != p.topIdx {
		if a.isUsable(c.size) {
			a.binAdd(&a.bins[binIndex(c.size)], c)
		} else {
			a.unsorted = append(a.unsorted, c)
		}
	}
}

func (a *Arena) findOwning(buf []uint8) (*page, *chunk) {
	if len(buf) == 0 {
		return nil, nil
	}
	want := uintptr(unsafe.Pointer(&buf[0]))
	for _, p := range a.pages {
		if len(p.buf) == 0 {
			continue
		}
		base := uintptr(unsafe.Pointer(&p.buf[0]))
		if want < base || want >= base+uintptr(len(p.buf)) {
			continue
		}
		off := int(want - base)
		for _, c := range p.chunks {
			if c.dataOffset() == off {
				return p, c
			}
		}
	}
	return nil, nil
}
