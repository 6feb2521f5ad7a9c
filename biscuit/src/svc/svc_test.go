package svc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"defs"
	"fd"
	"fdops"
	"mem"
	"pageref"
	"proc"
	"vm"
)

type nullFops struct{}

func (nullFops) Close() defs.Err_t                         { return 0 }
func (nullFops) Fstat(b []uint8) defs.Err_t                { return 0 }
func (nullFops) Lseek(off, whence int) (int, defs.Err_t)   { return 0, 0 }
func (nullFops) Read(dst fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (nullFops) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, 0 }
func (nullFops) Reopen() defs.Err_t                        { return 0 }
func (nullFops) Pathi() uint                               { return 0 }

func mkTask(t *testing.T) *proc.Task_t {
	zone := mem.PhysInit(1 << 10)
	pgref := &pageref.Table{}
	as := vm.NewVm(zone, pgref)
	console := &fd.Fd_t{Fops: nullFops{}}
	root := fd.MkRootCwd(console)
	task := proc.New(0, as, console, root)
	task.Trap = &proc.TrapFrame_t{}
	return task
}

func TestDispatchUnknownIdReturnsNegativeOne(t *testing.T) {
	table := NewTable()
	task := mkTask(t)
	result := table.Dispatch(task, 999, 0, 0, 0, 0, 0, 0)
	assert.Equal(t, badSyscallResult, result)
}

func TestGetpidReturnsTaskPid(t *testing.T) {
	table := NewTable()
	RegisterCore(table, CoreDeps{})
	task := mkTask(t)
	result := table.Dispatch(task, SYS_GETPID, 0, 0, 0, 0, 0, 0)
	assert.Equal(t, uint64(task.Pid), result)
}

func TestForkReturnsChildPidToParent(t *testing.T) {
	table := NewTable()
	var forked *proc.Task_t
	RegisterCore(table, CoreDeps{
		Fork: func(task *proc.Task_t) (*proc.Task_t, defs.Err_t) {
			forked = task.Fork(task.Vm)
			return forked, 0
		},
	})
	task := mkTask(t)
	result := table.Dispatch(task, SYS_FORK, 0, 0, 0, 0, 0, 0)
	assert.Equal(t, uint64(forked.Pid), result)
}

func TestExitMarksTaskTerminatedWithGivenStatus(t *testing.T) {
	table := NewTable()
	RegisterCore(table, CoreDeps{})
	task := mkTask(t)
	table.Dispatch(task, SYS_EXIT, 7, 0, 0, 0, 0, 0)
	assert.Equal(t, proc.TERMINATED, task.State)
	assert.Equal(t, 7, task.ExitStatus)
}
