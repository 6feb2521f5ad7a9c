package trap

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

func (nullFops) Close() defs.Err_t                          { return 0 }
func (nullFops) Fstat(b []uint8) defs.Err_t                  { return 0 }
func (nullFops) Lseek(off, whence int) (int, defs.Err_t)     { return 0, 0 }
func (nullFops) Read(dst fdops.Userio_i) (int, defs.Err_t)   { return 0, 0 }
func (nullFops) Write(src fdops.Userio_i) (int, defs.Err_t)  { return 0, 0 }
func (nullFops) Reopen() defs.Err_t                          { return 0 }
func (nullFops) Pathi() uint                                 { return 0 }

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

func TestDecodeSplitsEcAndIss(t *testing.T) {
	esr := uint32(0b010101) << 26
	ex := Decode(esr, 0x400100)
	assert.Equal(t, uint32(ecSVC64), ex.EC)
	assert.Equal(t, uint32(0), ex.ISS)
	assert.Equal(t, uint64(0x400100), ex.RetAddr)
}

func TestHandleDispatchesSvcToSyscallHandler(t *testing.T) {
	task := mkTask(t)
	task.Trap.X[8] = 7 // syscall number
	var gotNum uint64
	rescheduled := false

	d := &Dispatcher{
		Syscall: func(tsk *proc.Task_t, num uint64, a0, a1, a2, a3, a4, a5 uint64) uint64 {
			gotNum = num
			return 42
		},
		Reschedule: func() { rescheduled = true },
	}

	d.Handle(task, Exception{EC: ecSVC64, ISS: 0})
	assert.Equal(t, uint64(7), gotNum)
	assert.Equal(t, uint64(42), task.Trap.X[0])
	assert.True(t, rescheduled)
}

func TestHandlePageFaultKillsTaskWhenUnresolved(t *testing.T) {
	task := mkTask(t)
	d := &Dispatcher{
		PageFault: func(tsk *proc.Task_t, faultAddr uint64) bool { return false },
	}
	d.Handle(task, Exception{EC: ecDataAbortLEL})
	assert.Equal(t, proc.TERMINATED, task.State)
	assert.Equal(t, 4, task.ExitStatus)
}

func TestHandleUnknownExceptionPanics(t *testing.T) {
	task := mkTask(t)
	d := &Dispatcher{}
	assert.Panics(t, func() {
		d.Handle(task, Exception{EC: 0b111111})
	})
}
