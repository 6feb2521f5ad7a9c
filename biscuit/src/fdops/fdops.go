// Package fdops declares the narrow capability interfaces a file
// descriptor's underlying object must satisfy. A Fd_t (see package fd)
// holds an Fdops_i; every open vnode, pipe end, or device wraps itself
// in one so the FD table and syscall layer never need to know which
// concrete kind of file they are holding.
package fdops

import "defs"

// Userio_i abstracts a user-memory source or destination so the VFS and
// device layers can copy bytes without depending on the task/VMMap
// package directly (avoiding an import cycle: vm -> fdops -> proc -> vm).
type Userio_i interface {
	// Uiowrite copies from src into the destination this Userio_i
	// represents, returning the count written.
	Uiowrite(src []uint8) (int, defs.Err_t)
	// Uioread copies from the source this Userio_i represents into
	// dst, returning the count read.
	Uioread(dst []uint8) (int, defs.Err_t)
	// Remain returns the number of bytes left to transfer.
	Remain() int
	// Totalsz returns the total size of the transfer.
	Totalsz() int
}

// Fdops_i is the operation set every open file descriptor's backing
// object must implement.
type Fdops_i interface {
	Close() defs.Err_t
	Fstat(statbuf []uint8) defs.Err_t
	Lseek(off, whence int) (int, defs.Err_t)
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)
	// Reopen is called when a descriptor is duplicated (dup, fork) so
	// implementations with non-shared internal state (e.g. an offset
	// guarded by a private lock) can bump a reference count; most
	// vnode-backed files simply increment the vnode's refcount.
	Reopen() defs.Err_t
	Pathi() uint
}
