// Package pageref tracks shared-ownership reference counts per physical
// frame, the bookkeeping that makes copy-on-write possible. It is grounded on the mutex-guarded counter idiom
// accnt.Accnt_t uses, applied here to a frame-address-keyed table
// instead of a single struct's fields, and on
// original_source/mm/VMMap.cc's refcount semantics around
// copy_page_frame.
package pageref

import (
	"sync"

	"mem"
)

// Table is a process-wide mapping from physical frame address to a
// small integer ref count. The zero value is ready to use.
type Table struct {
	mu     sync.Mutex
	counts map[mem.Pa_t]int
}

// Global is the kernel-wide page-reference table, a singleton in the
// same spirit as mem.Physmem.
var Global = &Table{}

func (t *Table) ensure() {
	if t.counts == nil {
		t.counts = make(map[mem.Pa_t]int)
	}
}

// Inc increments the reference count of the frame at p, to be called by
// vm whenever a new PTE is made to point at p.
func (t *Table) Inc(p mem.Pa_t) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensure()
	t.counts[p]++
	return t.counts[p]
}

// Dec decrements the reference count of the frame at p and returns the
// new count. Decrementing a frame with count 0 is a kernel invariant
// violation (double free) and panics.
func (t *Table) Dec(p mem.Pa_t) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensure()
	c, ok := t.counts[p]
	if !ok || c <= 0 {
		panic("pageref: double decrement")
	}
	c--
	if c == 0 {
		delete(t.counts, p)
	} else {
		t.counts[p] = c
	}
	return c
}

// Get returns the current reference count of p (0 if untracked, i.e.
// free).
func (t *Table) Get(p mem.Pa_t) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensure()
	return t.counts[p]
}

// CanFree reports whether the frame at p may be released to the buddy
// allocator: only ever true at a ref count of exactly zero.
func (t *Table) CanFree(p mem.Pa_t) bool {
	return t.Get(p) == 0
}
