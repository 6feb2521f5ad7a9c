package fd

import (
	"sync"

	"defs"
)

// NR_PROCESS_FD_LIMITS is the fixed size of a task's descriptor table.
const NR_PROCESS_FD_LIMITS = 16

// FdTable_t is a task's fixed-size descriptor table. Slots 0, 1, 2 are
// reserved for stdin/stdout/stderr at task creation.
type FdTable_t struct {
	sync.Mutex
	slots [NR_PROCESS_FD_LIMITS]*Fd_t
}

// NewFdTable returns an FdTable_t with slots 0-2 marked reserved by fd
// (a caller-supplied console Fd_t, typically the same object for all
// three standard streams).
func NewFdTable(stdio *Fd_t) *FdTable_t {
	t := &FdTable_t{}
	t.slots[0] = stdio
	t.slots[1] = stdio
	t.slots[2] = stdio
	return t
}

// Allocate installs f in the lowest-numbered free slot and returns its
// descriptor number, or -1 if the table is full.
func (t *FdTable_t) Allocate(f *Fd_t) int {
	t.Lock()
	defer t.Unlock()
	for i := range t.slots {
		if t.slots[i] == nil {
			t.slots[i] = f
			return i
		}
	}
	return -1
}

// Get returns the Fd_t installed at fdnum, or nil if fdnum is out of
// range or unused.
func (t *FdTable_t) Get(fdnum int) *Fd_t {
	t.Lock()
	defer t.Unlock()
	if fdnum < 0 || fdnum >= NR_PROCESS_FD_LIMITS {
		return nil
	}
	return t.slots[fdnum]
}

// Close clears slot fdnum, returning the Fd_t that was there (the
// caller is responsible for calling its Fops.Close()).
func (t *FdTable_t) Close(fdnum int) (*Fd_t, defs.Err_t) {
	t.Lock()
	defer t.Unlock()
	if fdnum < 0 || fdnum >= NR_PROCESS_FD_LIMITS || t.slots[fdnum] == nil {
		return nil, defs.EBADF
	}
	f := t.slots[fdnum]
	t.slots[fdnum] = nil
	return f, 0
}

// ForkCopy returns a new FdTable_t for a forked child: every populated
// slot is copied by reference, not deep-copied, so per-slot file
// references are shared between parent and child. The underlying
// Fd_t's Reopen is invoked so refcounted backing objects (vnodes) see
// the extra reference.
func (t *FdTable_t) ForkCopy() *FdTable_t {
	t.Lock()
	defer t.Unlock()
	nt := &FdTable_t{}
	for i, f := range t.slots {
		if f == nil {
			continue
		}
		nf, err := Copyfd(f)
		if err != 0 {
			nf = f
		}
		nt.slots[i] = nf
	}
	return nt
}
