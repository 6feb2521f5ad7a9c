package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickFiresAndRemovesExpiredEventExactlyOnce(t *testing.T) {
	m := New()
	fired := 0
	m.AddTimer("wake", 2, func() { fired++ })

	m.Tick()
	assert.Equal(t, 0, fired)
	m.Tick()
	assert.Equal(t, 1, fired)
	m.Tick()
	assert.Equal(t, 1, fired, "an expired event must not fire again on later ticks")
	assert.Len(t, m.events, 0)
}

func TestTickPreservesInsertionOrderAcrossEvents(t *testing.T) {
	m := New()
	var order []string
	m.AddTimer("first", 1, func() { order = append(order, "first") })
	m.AddTimer("second", 1, func() { order = append(order, "second") })

	m.Tick()
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestTickInvokesSchedulerHookEveryTick(t *testing.T) {
	m := New()
	calls := 0
	m.SetTickHook(func() { calls++ })

	m.Tick()
	m.Tick()
	assert.Equal(t, 2, calls)
}

func TestJiffiesIncrementsMonotonically(t *testing.T) {
	m := New()
	m.Tick()
	m.Tick()
	m.Tick()
	assert.Equal(t, uint32(3), m.Jiffies())
}
