package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"defs"
	"mem"
	"pageref"
)

func TestMmapZeroesFreshPagesAndUnmapsCleanly(t *testing.T) {
	zone := mem.PhysInit(1 << 10)
	as := NewVm(zone, &pageref.Table{})

	va, err := as.Mmap(mem.PGSIZE, ProtRead|ProtWrite)
	assert.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, uintptr(mmapBase), va)

	buf, uerr := as.Userdmap8(va, false)
	assert.Equal(t, defs.Err_t(0), uerr)
	assert.Equal(t, byte(0), buf[0])

	buf[0] = 7
	assert.Equal(t, defs.Err_t(0), as.Munmap(va, mem.PGSIZE))

	_, gone := as.GetPhysicalAddress(va)
	assert.False(t, gone)
}

func TestMmapConsecutiveCallsDoNotOverlap(t *testing.T) {
	zone := mem.PhysInit(1 << 10)
	as := NewVm(zone, &pageref.Table{})

	va1, err := as.Mmap(mem.PGSIZE, ProtRead)
	assert.Equal(t, defs.Err_t(0), err)
	va2, err := as.Mmap(mem.PGSIZE, ProtRead)
	assert.Equal(t, defs.Err_t(0), err)

	assert.Equal(t, va1+uintptr(mem.PGSIZE), va2)
}

// A PROT_READ-only anonymous mapping is created without PTE_W, so Map
// never arms its COW bit. The trap dispatcher's write-fault handler
// only calls CopyPageFrame when IsCowPage is true; a write fault on
// this page sees IsCowPage false and is treated as unrecoverable,
// which is how scenario-6 style read-only mappings turn a write into
// a kill instead of silently becoming writable.
func TestMmapReadOnlyPageIsNotCOWArmed(t *testing.T) {
	zone := mem.PhysInit(1 << 10)
	as := NewVm(zone, &pageref.Table{})

	va, err := as.Mmap(mem.PGSIZE, ProtRead)
	assert.Equal(t, defs.Err_t(0), err)
	assert.False(t, as.IsCowPage(va))
}

func TestMprotectTogglesWriteBit(t *testing.T) {
	zone := mem.PhysInit(1 << 10)
	as := NewVm(zone, &pageref.Table{})

	va, err := as.Mmap(mem.PGSIZE, ProtRead)
	assert.Equal(t, defs.Err_t(0), err)

	assert.Equal(t, defs.Err_t(0), as.Mprotect(va, mem.PGSIZE, ProtRead|ProtWrite))
	pte := as.Walk(va, false)
	assert.NotNil(t, pte)
	assert.NotEqual(t, mem.Pa_t(0), *pte&mem.PTE_W)
}
