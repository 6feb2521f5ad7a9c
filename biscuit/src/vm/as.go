// Package vm implements the per-task virtual memory map: a 4-level AArch64 page-table walker supporting map/unmap, fork's
// copy-on-write setup, and the COW fault handler. Grounded on the
// biscuit's vm/as.go (Vm_t, Page_insert/Page_remove, Sys_pgfault,
// defs.Err_t-returning method idiom), generalized from biscuit's amd64
// 4-level layout to AArch64's PGD/PUD/PMD/PTE with a software COW bit
// at PTE[55]; the fault-handling algorithm itself (reclaim in place at
// refcount 1, else copy) follows
// original_source/mm/VMMap.cc's copy_page_frame exactly.
package vm

import (
	"sync"
	"unsafe"

	"defs"
	"mem"
	"pageref"
)

// KERNELVABASE is the lowest kernel virtual address: the
// kernel half is mapped once at boot and never touched by a per-task
// VMMap.
const KERNELVABASE uintptr = 0xFFFF_0000_0000_0000

const (
	idxBits  = 9
	idxMask  = (1 << idxBits) - 1
	pteCount = 1 << idxBits
)

func idxPGD(va uintptr) int         { return int((va >> (12 + 9*3)) & idxMask) }
func idxPUD(va uintptr) int         { return int((va >> (12 + 9*2)) & idxMask) }
func idxPMD(va uintptr) int         { return int((va >> (12 + 9*1)) & idxMask) }
func idxPTE(va uintptr) int         { return int((va >> 12) & idxMask) }
func pageOffset(va uintptr) uintptr { return va & uintptr(mem.PGOFFSET) }

// table_t is one level of the page-table tree: 512 64-bit descriptors.
type table_t [pteCount]mem.Pa_t

func loadTable(zone *mem.Zone_t, pa mem.Pa_t) *table_t {
	buf := zone.Dmaplen(pa, mem.PGSIZE)
	return (*table_t)(unsafe.Pointer(&buf[0]))
}

// Vm_t is a task's virtual memory map: it owns a PGD page-frame and,
// through it, a tree of page tables describing the lower (user) half of
// the address space.
// Named Vm_t to match biscuit's own naming for the equivalent type.
type Vm_t struct {
	mu    sync.Mutex
	zone  *mem.Zone_t
	pgref *pageref.Table
	pgd   mem.Pa_t

	nextMmapVA uintptr
	regions    []region
}

// NewVm allocates a fresh, empty Vm_t: a zeroed PGD page and nothing
// else mapped. Created on task creation, destroyed on task reap.
func NewVm(zone *mem.Zone_t, pgref *pageref.Table) *Vm_t {
	pgd, ok := zone.Allocate(mem.PGSIZE)
	if !ok {
		panic("vm: out of memory allocating PGD")
	}
	return &Vm_t{zone: zone, pgref: pgref, pgd: pgd}
}

func (as *Vm_t) Lock_pmap()   { as.mu.Lock() }
func (as *Vm_t) Unlock_pmap() { as.mu.Unlock() }

// walk descends the 4-level tree for va, creating intermediate tables
// as needed iff create is true, and returns a pointer to the leaf PTE
// slot.
func (as *Vm_t) walk(va uintptr, create bool) *mem.Pa_t {
	cur := as.pgd
	idxs := []int{idxPGD(va), idxPUD(va), idxPMD(va)}
	for _, idx := range idxs {
		tbl := loadTable(as.zone, cur)
		ent := &tbl[idx]
		if *ent&mem.PTE_P == 0 {
			if !create {
				return nil
			}
			np, ok := as.zone.Allocate(mem.PGSIZE)
			if !ok {
				return nil
			}
			*ent = np | mem.PTE_P
		}
		cur = *ent & mem.PTE_ADDR
	}
	leaf := loadTable(as.zone, cur)
	return &leaf[idxPTE(va)]
}

// Walk is the exported form of walk, for callers outside the package
// that need read-only access to a PTE.
func (as *Vm_t) Walk(va uintptr, create bool) *mem.Pa_t {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.walk(va, create)
}

// Map installs a leaf mapping va -> pa with the given attribute bits,
// incrementing the frame's reference count. If attr grants write
// permission the COW bit is also set to begin with, since every fresh
// writable mapping starts the COW dance deferred until fork actually
// shares it; it is cleared again the first time copy_page_frame runs
// on a solely-owned page. Panics if the mapping already exists.
func (as *Vm_t) Map(va uintptr, pa mem.Pa_t, attr mem.Pa_t) {
	as.mu.Lock()
	defer as.mu.Unlock()
	pte := as.walk(va, true)
	if pte == nil {
		panic("vm: map: out of memory walking page tables")
	}
	if *pte&mem.PTE_P != 0 {
		panic("vm: map: mapping already exists")
	}
	flags := attr | mem.PTE_P
	if attr&mem.PTE_W != 0 {
		flags |= mem.PTE_COW
	}
	*pte = (pa & mem.PTE_ADDR) | flags
	as.pgref.Inc(pa)
}

// Unmap zeroes the leaf PTE for va, if valid, and decrements the
// frame's reference count.
func (as *Vm_t) Unmap(va uintptr) {
	as.mu.Lock()
	defer as.mu.Unlock()
	pte := as.walk(va, false)
	if pte == nil || *pte&mem.PTE_P == 0 {
		return
	}
	pa := *pte & mem.PTE_ADDR
	*pte = 0
	if as.pgref.Dec(pa) == 0 {
		as.zone.Deallocate(pa, mem.PGSIZE)
	}
}

// IsCowPage reports whether va's PTE is valid and has the COW bit set.
func (as *Vm_t) IsCowPage(va uintptr) bool {
	as.mu.Lock()
	defer as.mu.Unlock()
	pte := as.walk(va, false)
	return pte != nil && *pte&mem.PTE_P != 0 && *pte&mem.PTE_COW != 0
}

// GetPhysicalAddress walks va and returns its backing physical address
// plus the page offset, or ok=false on a miss.
func (as *Vm_t) GetPhysicalAddress(va uintptr) (mem.Pa_t, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	pte := as.walk(va, false)
	if pte == nil || *pte&mem.PTE_P == 0 {
		return 0, false
	}
	return (*pte & mem.PTE_ADDR) + mem.Pa_t(pageOffset(va)), true
}

// CopyPageFrame is the heart of the COW fault handler: if the
// frame's reference count is 1 this task is the sole owner, so the
// fault is resolved by simply clearing COW and marking the PTE
// writable in place. Otherwise a fresh frame is allocated, the old
// contents copied, the PTE repointed at the new frame with COW
// cleared, and reference counts adjusted. After this call the PTE is
// writable and not shared with any other task.
func (as *Vm_t) CopyPageFrame(va uintptr) defs.Err_t {
	as.mu.Lock()
	defer as.mu.Unlock()

	pte := as.walk(va, false)
	if pte == nil || *pte&mem.PTE_P == 0 {
		return defs.EFAULT
	}
	oldpa := *pte & mem.PTE_ADDR

	if as.pgref.Get(oldpa) == 1 {
		*pte = (*pte &^ mem.PTE_COW) | mem.PTE_W
		return 0
	}

	newpa, ok := as.zone.Allocate(mem.PGSIZE)
	if !ok {
		return defs.ENOMEM
	}
	copy(as.zone.Dmaplen(newpa, mem.PGSIZE), as.zone.Dmaplen(oldpa, mem.PGSIZE))

	*pte = (*pte &^ mem.PTE_ADDR &^ mem.PTE_COW) | newpa | mem.PTE_W
	as.pgref.Inc(newpa)
	if as.pgref.Dec(oldpa) == 0 {
		as.zone.Deallocate(oldpa, mem.PGSIZE)
	}
	return 0
}

// CopyFrom deep-copies all intermediate page-table frames of other
// into as, and for every leaf PTE clears the write bit, sets COW, and
// leaves both the parent's and child's leaf pointing at the same
// underlying frame, incrementing its reference count once per shared
// mapping.
func (as *Vm_t) CopyFrom(other *Vm_t) {
	other.mu.Lock()
	defer other.mu.Unlock()
	as.mu.Lock()
	defer as.mu.Unlock()

	as._copyTable(other.pgd, as.pgd, 3)
}

// _copyTable recursively mirrors one level of other's tree (rooted at
// srcTbl) into as's tree (rooted at dstTbl); lev counts down from 3
// (PGD) to 0 (the level whose entries are leaf PTEs).
func (as *Vm_t) _copyTable(srcTbl, dstTbl mem.Pa_t, lev int) {
	src := loadTable(as.zone, srcTbl)
	dst := loadTable(as.zone, dstTbl)

	for i := range src {
		if src[i]&mem.PTE_P == 0 {
			continue
		}
		if lev == 0 {
			// leaf PTE: share the frame, mark both copies read-only + COW.
			pa := src[i] & mem.PTE_ADDR
			flags := (src[i] &^ mem.PTE_ADDR &^ mem.PTE_W) | mem.PTE_COW
			src[i] = flags | pa
			dst[i] = flags | pa
			as.pgref.Inc(pa)
			continue
		}
		childPa, ok := as.zone.Allocate(mem.PGSIZE)
		if !ok {
			panic("vm: copyfrom: out of memory")
		}
		dst[i] = childPa | (src[i] &^ mem.PTE_ADDR)
		as._copyTable(src[i]&mem.PTE_ADDR, childPa, lev-1)
	}
}

// Uvmfree unmaps and releases every user-half mapping, walking the
// whole tree and freeing intermediate tables along the way. Grounded on the
// biscuit's Uvmfree naming.
func (as *Vm_t) Uvmfree() {
	as.mu.Lock()
	defer as.mu.Unlock()
	as._freeTable(as.pgd, 3)
	// leave the PGD itself in place for reuse by the next exec.
	tbl := loadTable(as.zone, as.pgd)
	for i := range tbl {
		tbl[i] = 0
	}
}

func (as *Vm_t) _freeTable(tblpa mem.Pa_t, lev int) {
	tbl := loadTable(as.zone, tblpa)
	for i := range tbl {
		if tbl[i]&mem.PTE_P == 0 {
			continue
		}
		pa := tbl[i] & mem.PTE_ADDR
		if lev == 0 {
			if as.pgref.Dec(pa) == 0 {
				as.zone.Deallocate(pa, mem.PGSIZE)
			}
		} else {
			as._freeTable(pa, lev-1)
			as.zone.Deallocate(pa, mem.PGSIZE)
		}
		tbl[i] = 0
	}
}

// PGD returns the physical address of the VMMap's top-level table, for
// TTBR0_EL1 installation at context switch.
func (as *Vm_t) PGD() mem.Pa_t { return as.pgd }

// Userdmap8 returns a direct-mapped byte slice for the page backing
// va, honoring k2u (kernel-to-user, i.e. the caller intends to write
// through it) by triggering COW resolution first when necessary —
// matching biscuit's Userdmap8_inner contract.
func (as *Vm_t) Userdmap8(va uintptr, k2u bool) ([]uint8, defs.Err_t) {
	if k2u && as.IsCowPage(va) {
		if err := as.CopyPageFrame(va); err != 0 {
			return nil, err
		}
	}
	pa, ok := as.GetPhysicalAddress(va)
	if !ok {
		return nil, defs.EFAULT
	}
	off := pageOffset(va)
	full := as.zone.Dmaplen(pa-mem.Pa_t(off), mem.PGSIZE)
	return full[off:], 0
}
