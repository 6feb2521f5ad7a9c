package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuddyCoalescesToSingleBlock(t *testing.T) {
	z := PhysInit(16)

	var frames []Pa_t
	for i := 0; i < 4; i++ {
		p, ok := z.Allocate(PGSIZE)
		assert.True(t, ok)
		frames = append(frames, p)
	}

	for i := len(frames) - 1; i >= 0; i-- {
		z.Deallocate(frames[i], PGSIZE)
	}

	assert.Equal(t, 1, len(z.freelists[4]))
}

func TestAllocateDeallocateRoundtrip(t *testing.T) {
	z := PhysInit(1 << 12)
	before := z.Pgcount()

	p, ok := z.Allocate(3 * PGSIZE)
	assert.True(t, ok)
	assert.Equal(t, Pa_t(0), p%Pa_t(PGSIZE))
	z.Deallocate(p, 3*PGSIZE)

	assert.Equal(t, before, z.Pgcount())
}

func TestBuddyNeverDoubleFreesSameOrder(t *testing.T) {
	z := PhysInit(1 << 11)
	k := order(PGSIZE)
	_, aok := z.Allocate(PGSIZE) // split a top-order block so bucket k+1 is populated
	assert.True(t, aok)
	idx, ok := z.popFreelist(k + 1)
	assert.True(t, ok)
	assert.False(t, z.removeFreelist(k, idx), "block of a different order must not appear in bucket k")
}

func TestAllocationFailureReturnsFalseNotPanic(t *testing.T) {
	z := PhysInit(1 << (MAXORDER - 1))
	_, ok := z.Allocate(orderBytes(MAXORDER - 1))
	assert.True(t, ok)
	_, ok = z.Allocate(PGSIZE)
	assert.False(t, ok, "zone is exhausted; Allocate must return ok=false, not panic")
}
