package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fd"
	"fdops"
	"defs"
	"mem"
	"pageref"
	"proc"
	"vm"
)

type nullFops struct{}

func (nullFops) Close() defs.Err_t                       { return 0 }
func (nullFops) Fstat(b []uint8) defs.Err_t              { return 0 }
func (nullFops) Lseek(off, whence int) (int, defs.Err_t) { return 0, 0 }
func (nullFops) Read(dst fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (nullFops) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, 0 }
func (nullFops) Reopen() defs.Err_t { return 0 }
func (nullFops) Pathi() uint        { return 0 }

func mkTask(t *testing.T) *proc.Task_t {
	zone := mem.PhysInit(1 << 10)
	pgref := &pageref.Table{}
	as := vm.NewVm(zone, pgref)
	console := &fd.Fd_t{Fops: nullFops{}}
	root := fd.MkRootCwd(console)
	return proc.New(0, as, console, root)
}

func TestScheduleRotatesRunQueue(t *testing.T) {
	s := New()
	a, b, c := mkTask(t), mkTask(t), mkTask(t)
	s.Enqueue(a)
	s.Enqueue(b)
	s.Enqueue(c)

	assert.Equal(t, a, s.Current())
	prev, next := s.Schedule()
	assert.Equal(t, a, prev)
	assert.Equal(t, b, next)
	assert.Equal(t, b, s.Current())
}

func TestTickExhaustsQuantumAndSignalsReschedule(t *testing.T) {
	s := New()
	s.Enqueue(mkTask(t))
	for i := 0; i < Quantum-1; i++ {
		assert.False(t, s.Tick())
	}
	assert.True(t, s.Tick())
}

func TestReapZombiesDropsTerminatedTasks(t *testing.T) {
	s := New()
	a := mkTask(t)
	b := mkTask(t)
	s.Enqueue(a)
	s.Enqueue(b)
	b.Exit(0)

	reaped := s.ReapZombies()
	assert.Len(t, reaped, 1)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, a, s.Current())
}
