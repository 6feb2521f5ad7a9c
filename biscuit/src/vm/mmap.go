// Part of package vm: anonymous memory mappings. Grounded on
// original_source/mm/VMMap.cc's map/unmap primitives, extended with a
// simple bump-allocated region above mmapBase since the reference
// kernel has no mmap syscall of its own to model the placement policy
// on.
package vm

import (
	"defs"
	"mem"
)

// Protection bits for Mmap/Mprotect, matching the PROT_* bit values of
// the Linux AArch64 ABI so a decoded syscall argument needs no
// translation.
const (
	ProtRead  = 0x1
	ProtWrite = 0x2
	ProtExec  = 0x4
)

// mmapBase is the lowest virtual address handed out by the anonymous
// mapping bump allocator: well above any ELF PT_LOAD segment or user
// stack, well below KERNELVABASE.
const mmapBase uintptr = 0x0000_1000_0000_0000

// region records one active anonymous mapping, used by Munmap to erase
// the right range and by Mprotect's range check.
type region struct {
	va  uintptr
	len uintptr
}

// Mmap carves out a fresh anonymous mapping of length bytes (rounded
// up to a whole number of pages) with the given protection, backing
// every page with a freshly zeroed frame. There is no file-backed
// mapping and no caller address hint: every mapping is placed by a
// bump allocator walking upward from mmapBase.
func (as *Vm_t) Mmap(length uintptr, prot int) (uintptr, defs.Err_t) {
	if length == 0 {
		return 0, defs.EINVAL
	}
	npages := (length + uintptr(mem.PGSIZE) - 1) / uintptr(mem.PGSIZE)

	as.mu.Lock()
	if as.nextMmapVA == 0 {
		as.nextMmapVA = mmapBase
	}
	va := as.nextMmapVA
	as.nextMmapVA += npages * uintptr(mem.PGSIZE)
	as.regions = append(as.regions, region{va: va, len: npages * uintptr(mem.PGSIZE)})
	as.mu.Unlock()

	attr := mem.PTE_U
	if prot&ProtWrite != 0 {
		attr |= mem.PTE_W
	}
	if prot&ProtExec == 0 {
		attr |= mem.PTE_XN
	}

	for i := uintptr(0); i < npages; i++ {
		pa, ok := as.zone.Allocate(mem.PGSIZE)
		if !ok {
			return 0, defs.ENOMEM
		}
		page := as.zone.Dmaplen(pa, mem.PGSIZE)
		for j := range page {
			page[j] = 0
		}
		as.Map(va+i*uintptr(mem.PGSIZE), pa, attr)
	}
	return va, 0
}

// Munmap tears down every page in [va, va+length), silently ignoring
// pages that were never mapped, and forgets the region record if va
// matches one exactly.
func (as *Vm_t) Munmap(va, length uintptr) defs.Err_t {
	if length == 0 {
		return defs.EINVAL
	}
	npages := (length + uintptr(mem.PGSIZE) - 1) / uintptr(mem.PGSIZE)
	for i := uintptr(0); i < npages; i++ {
		as.Unmap(va + i*uintptr(mem.PGSIZE))
	}

	as.mu.Lock()
	for i, r := range as.regions {
		if r.va == va {
			as.regions = append(as.regions[:i], as.regions[i+1:]...)
			break
		}
	}
	as.mu.Unlock()
	return 0
}

// Mprotect changes the access permission of every page in
// [va, va+length) to match prot.
func (as *Vm_t) Mprotect(va, length uintptr, prot int) defs.Err_t {
	if length == 0 {
		return defs.EINVAL
	}
	npages := (length + uintptr(mem.PGSIZE) - 1) / uintptr(mem.PGSIZE)
	for i := uintptr(0); i < npages; i++ {
		if err := as.protectPage(va+i*uintptr(mem.PGSIZE), prot); err != 0 {
			return err
		}
	}
	return 0
}

func (as *Vm_t) protectPage(va uintptr, prot int) defs.Err_t {
	as.mu.Lock()
	defer as.mu.Unlock()
	pte := as.walk(va, false)
	if pte == nil || *pte&mem.PTE_P == 0 {
		return defs.EFAULT
	}
	flags := *pte &^ mem.PTE_W &^ mem.PTE_XN
	if prot&ProtWrite != 0 {
		flags |= mem.PTE_W
	}
	if prot&ProtExec == 0 {
		flags |= mem.PTE_XN
	}
	*pte = flags
	return 0
}
