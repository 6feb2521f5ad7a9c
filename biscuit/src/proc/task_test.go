package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"defs"
	"fd"
	"fdops"
	"mem"
	"pageref"
	"vm"
)

// nullFops is a minimal Fdops_i stand-in so FdTable_t.ForkCopy's Reopen
// call has somewhere safe to land in tests.
type nullFops struct{}

func (nullFops) Close() defs.Err_t                      { return 0 }
func (nullFops) Fstat(b []uint8) defs.Err_t             { return 0 }
func (nullFops) Lseek(off, whence int) (int, defs.Err_t) { return 0, 0 }
func (nullFops) Read(dst fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (nullFops) Write(src fdops.Userio_i) (int, defs.Err_t) { return 0, 0 }
func (nullFops) Reopen() defs.Err_t { return 0 }
func (nullFops) Pathi() uint        { return 0 }

func freshTask(t *testing.T) *Task_t {
	zone := mem.PhysInit(1 << 10)
	pgref := &pageref.Table{}
	as := vm.NewVm(zone, pgref)
	console := &fd.Fd_t{Fops: nullFops{}, Perms: fd.FD_READ | fd.FD_WRITE}
	root := fd.MkRootCwd(console)
	return New(0, as, console, root)
}

func TestNewTaskGetsMonotonicPid(t *testing.T) {
	t1 := freshTask(t)
	t2 := freshTask(t)
	assert.Less(t, int(t1.Pid), int(t2.Pid))
	assert.Equal(t, CREATED, t1.State)
}

func TestForkDuplicatesTrapFrameWithZeroChildReturn(t *testing.T) {
	parent := freshTask(t)
	parent.Trap = &TrapFrame_t{}
	parent.Trap.X[0] = 99 // parent's pre-fork x0, must not leak into child

	child := parent.Fork(parent.Vm)
	assert.Equal(t, uint64(0), child.Trap.X[0])
	assert.Equal(t, parent.Pid, child.Ppid)
}

func TestWaitReapsTerminatedChild(t *testing.T) {
	parent := freshTask(t)
	child := parent.Fork(parent.Vm)
	child.Exit(7)

	pid, status, err := parent.Wait()
	assert.Equal(t, byte(0), byte(err))
	assert.Equal(t, child.Pid, pid)
	assert.Equal(t, 7, status)
}

func TestWaitWithNoChildrenReturnsECHILD(t *testing.T) {
	parent := freshTask(t)
	_, _, err := parent.Wait()
	assert.NotEqual(t, byte(0), byte(err))
}

func TestSigkillAlwaysTerminatesRegardlessOfHandler(t *testing.T) {
	task := freshTask(t)
	task.Trap = &TrapFrame_t{}
	task.SetHandler(SIGINT, 0x500000)
	task.QueueSignal(SIGKILL)

	terminated := task.DeliverPending()
	assert.True(t, terminated)
	assert.Equal(t, TERMINATED, task.State)
}

// mapStack gives task a one-page writable mapping to use as a user
// stack, returning its top-of-page address, and sets Trap.SpEl0 there.
func mapStack(t *testing.T, task *Task_t) uintptr {
	va, err := task.Vm.Mmap(mem.PGSIZE, vm.ProtRead|vm.ProtWrite)
	assert.Equal(t, defs.Err_t(0), err)
	top := va + uintptr(mem.PGSIZE)
	task.Trap.SpEl0 = uint64(top)
	return top
}

func TestSigintWithHandlerRedirectsElrInstead(t *testing.T) {
	task := freshTask(t)
	task.Trap = &TrapFrame_t{}
	mapStack(t, task)
	task.SetHandler(SIGINT, 0x500000)
	task.QueueSignal(SIGINT)

	terminated := task.DeliverPending()
	assert.False(t, terminated)
	assert.Equal(t, uint64(0x500000), task.Trap.ElrEl1)
	assert.True(t, task.inSignal)
}

func TestSigintWithUnwritableStackFallsBackToDefaultAction(t *testing.T) {
	task := freshTask(t)
	task.Trap = &TrapFrame_t{} // SpEl0 left at zero: no mapping backs it
	task.SetHandler(SIGINT, 0x500000)
	task.QueueSignal(SIGINT)

	terminated := task.DeliverPending()
	assert.True(t, terminated)
	assert.Equal(t, 4, task.ExitStatus)
}

func TestSigreturnRestoresPreSignalTrapFrame(t *testing.T) {
	task := freshTask(t)
	task.Trap = &TrapFrame_t{ElrEl1: 0x400000, X: [19]uint64{0: 42}}
	mapStack(t, task)
	task.SetHandler(SIGINT, 0x500000)
	task.QueueSignal(SIGINT)

	preSignal := *task.Trap
	terminated := task.DeliverPending()
	assert.False(t, terminated)
	assert.True(t, task.inSignal)
	assert.NotEqual(t, preSignal.ElrEl1, task.Trap.ElrEl1)

	err := task.Sigreturn()
	assert.Equal(t, defs.Err_t(0), err)
	assert.False(t, task.inSignal)
	assert.Equal(t, preSignal.ElrEl1, task.Trap.ElrEl1)
	assert.Equal(t, preSignal.X[0], task.Trap.X[0])
}

func TestSigreturnWithoutPendingSignalIsRejected(t *testing.T) {
	task := freshTask(t)
	task.Trap = &TrapFrame_t{}
	mapStack(t, task)

	err := task.Sigreturn()
	assert.Equal(t, defs.EINVAL, err)
}
