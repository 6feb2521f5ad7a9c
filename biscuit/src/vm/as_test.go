package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mem"
	"pageref"
)

func freshVM(t *testing.T) (*mem.Zone_t, *pageref.Table, *Vm_t) {
	zone := mem.PhysInit(1 << 10)
	pgref := &pageref.Table{}
	as := NewVm(zone, pgref)
	return zone, pgref, as
}

func TestMapUnmapIsNoOpOnRefcount(t *testing.T) {
	zone, pgref, as := freshVM(t)
	pa, ok := zone.Allocate(mem.PGSIZE)
	assert.True(t, ok)

	as.Map(0x400000, pa, mem.PTE_U|mem.PTE_W)
	assert.Equal(t, 1, pgref.Get(pa))
	as.Unmap(0x400000)
	assert.Equal(t, 0, pgref.Get(pa))
}

func TestForkCOWThenWriteDivergesAndConservesFrameCount(t *testing.T) {
	zone, pgref, parent := freshVM(t)
	child := NewVm(zone, pgref)

	pa, ok := zone.Allocate(mem.PGSIZE)
	assert.True(t, ok)
	parent.Map(0x400000, pa, mem.PTE_U|mem.PTE_W)
	buf, _ := parent.Userdmap8(0x400000, true)
	buf[0] = 0x41

	child.CopyFrom(parent)
	assert.True(t, parent.IsCowPage(0x400000))
	assert.True(t, child.IsCowPage(0x400000))
	assert.Equal(t, 2, pgref.Get(pa))

	childBuf, err := child.Userdmap8(0x400000, false)
	assert.Equal(t, byte(0x41), childBuf[0])
	_ = err

	parentBuf, cerr := parent.Userdmap8(0x400000, true)
	assert.Equal(t, byte(0), byte(cerr))
	parentBuf[0] = 0x42

	assert.False(t, parent.IsCowPage(0x400000))
	assert.True(t, child.IsCowPage(0x400000))

	newParentBuf, _ := parent.Userdmap8(0x400000, false)
	assert.Equal(t, byte(0x42), newParentBuf[0])
	childBuf2, _ := child.Userdmap8(0x400000, false)
	assert.Equal(t, byte(0x41), childBuf2[0])

	assert.Equal(t, 1, pgref.Get(pa), "child kept the original frame")
}

func TestSoleOwnerWriteFaultReclaimsInPlace(t *testing.T) {
	zone, pgref, as := freshVM(t)
	pa, ok := zone.Allocate(mem.PGSIZE)
	assert.True(t, ok)
	as.Map(0x400000, pa, mem.PTE_U|mem.PTE_W)
	assert.Equal(t, 1, pgref.Get(pa))

	err := as.CopyPageFrame(0x400000)
	assert.Equal(t, byte(0), byte(err))
	assert.False(t, as.IsCowPage(0x400000))
	gotPa, _ := as.GetPhysicalAddress(0x400000)
	assert.Equal(t, pa, gotPa, "reclaim in place keeps the same frame")
}
