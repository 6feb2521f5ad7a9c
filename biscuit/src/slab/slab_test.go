package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mem"
)

func TestAllocateReturnsUsableBuffer(t *testing.T) {
	zone := mem.PhysInit(64)
	a := New(zone)

	buf := a.Allocate(48)
	assert.NotNil(t, buf)
	assert.GreaterOrEqual(t, len(buf), 48)

	for i := range buf {
		buf[i] = 0xAA
	}
}

func TestDeallocateThenReallocateSameSizeReusesSpace(t *testing.T) {
	zone := mem.PhysInit(64)
	a := New(zone)

	b1 := a.Allocate(32)
	assert.NotNil(t, b1)
	a.Deallocate(b1)

	b2 := a.Allocate(32)
	assert.NotNil(t, b2)
}

func TestManySmallAllocationsShareOnePage(t *testing.T) {
	zone := mem.PhysInit(64)
	a := New(zone)

	for i := 0; i < 10; i++ {
		buf := a.Allocate(16)
		assert.NotNil(t, buf)
	}
	assert.Equal(t, 1, len(a.pages), "ten 16-byte allocations must not require a second page frame")
}
