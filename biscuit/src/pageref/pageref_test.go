package pageref

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mem"
)

func TestIncDecBalances(t *testing.T) {
	tbl := &Table{}
	p := mem.Pa_t(0x1000)
	tbl.Inc(p)
	tbl.Inc(p)
	assert.Equal(t, 2, tbl.Get(p))
	assert.Equal(t, 1, tbl.Dec(p))
	assert.False(t, tbl.CanFree(p))
	assert.Equal(t, 0, tbl.Dec(p))
	assert.True(t, tbl.CanFree(p))
}

func TestDoubleDecrementPanics(t *testing.T) {
	tbl := &Table{}
	p := mem.Pa_t(0x2000)
	assert.Panics(t, func() { tbl.Dec(p) })
}
