// Package proc implements the task object: the unit
// of scheduling and the owner of an address space, a file-descriptor
// table, and pending signal state. Grounded on
// original_source/proc/Task.cc (monotonic PID assignment from 1,
// current-task tracking) and on biscuit's method-naming idiom in
// fd.Fd_t/accnt.Accnt_t, which this package wires together into one
// Task_t.
package proc

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"accnt"
	"defs"
	"fd"
	"ustr"
	"vm"
)

// State_t is a task's scheduling state.
type State_t int

const (
	CREATED State_t = iota
	RUNNABLE
	WAITING
	TERMINATED
)

func (s State_t) String() string {
	switch s {
	case CREATED:
		return "CREATED"
	case RUNNABLE:
		return "RUNNABLE"
	case WAITING:
		return "WAITING"
	case TERMINATED:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Context_t holds exactly the registers a voluntary context switch must
// preserve: callee-saved GPRs x19-x28, the frame pointer, link register,
// and stack pointer.
// Caller-saved registers are already safely on the kernel stack at the
// point a switch happens.
type Context_t struct {
	X19, X20, X21, X22, X23, X24, X25, X26, X27, X28 uint64
	Fp, Lr, Sp                                        uint64
}

// TrapFrame_t is the complete register snapshot saved on kernel entry
// from user mode: the callee-saved context plus every caller-saved GPR,
// x29/x30, and the three special registers that drive return-to-user.
// Valid only while a trap is in progress for this task.
type TrapFrame_t struct {
	X [19]uint64 // x0..x18
	X29, X30     uint64
	SpsrEl1      uint64
	ElrEl1       uint64
	SpEl0        uint64
}

// SigFrame_t is the synthetic frame written to the top of the user
// stack when a signal handler is about to run: it snapshots the pre-signal trap
// frame so `sigreturn` can restore it exactly, and records the signal
// number and the trampoline address (sigTrampolineVA) that is placed
// in LR so the handler's ret returns there.
type SigFrame_t struct {
	Saved   TrapFrame_t
	SigNum  int
	RetAddr uint64 // sigTrampolineVA, the handler's return address
}

// SIGINT and SIGKILL are the only two signals this kernel recognizes;
// general signal delivery is out of scope.
const (
	SIGINT  = 2
	SIGKILL = 9
)

// SYS_SIGRETURN is the syscall number a handler's trampoline invokes to
// restore the pre-signal trap frame.
const SYS_SIGRETURN = 64

// sigTrampolineVA is the fixed address placed in LR (x30) when a
// handler is entered. The hosted build never actually executes user
// instructions (boot's runOne stands in for real ERET/trap round
// trips), so nothing ever fetches code at this address; it exists to
// be a recognizable, stable value a trap-frame dump can show and to
// anchor the pushed SigFrame_t's RetAddr field.
const sigTrampolineVA uint64 = 0x0000_2000_0000_0000

// Pid_t is a process-unique, monotonically assigned identifier.
type Pid_t int

var nextPid int64 = 1

func allocPid() Pid_t {
	return Pid_t(atomic.AddInt64(&nextPid, 1) - 1)
}

// Task_t is one thread of control. One thread per task.
type Task_t struct {
	mu sync.Mutex

	Pid    Pid_t
	Ppid   Pid_t
	State  State_t
	Ctx    Context_t
	Trap   *TrapFrame_t
	Vm     *vm.Vm_t
	Fds    *fd.FdTable_t
	Cwd    *fd.Cwd_t
	Accnt  *accnt.Accnt_t

	KernelStack []uint8

	pendingSigs  uint64
	sigHandlers  [64]uint64 // user-space handler addresses, indexed by signal number
	inSignal     bool

	ExitStatus int
	children   []*Task_t
	waitCh     chan *Task_t
}

// New creates a task in state CREATED with a fresh PID, empty VMMap,
// and a reserved-slots FD table rooted at root.
func New(ppid Pid_t, as *vm.Vm_t, stdio *fd.Fd_t, root *fd.Cwd_t) *Task_t {
	t := &Task_t{
		Pid:         allocPid(),
		Ppid:        ppid,
		State:       CREATED,
		Vm:          as,
		Fds:         fd.NewFdTable(stdio),
		Cwd:         root,
		Accnt:       &accnt.Accnt_t{},
		KernelStack: make([]uint8, 1<<mem_PGSHIFT_local()),
		waitCh:      make(chan *Task_t, 1),
	}
	return t
}

// mem_PGSHIFT_local avoids an import cycle with mem for a single
// constant; kernel stacks are one page.
func mem_PGSHIFT_local() uint { return 12 }

// Fork creates a child task sharing this task's COW-marked VMMap, a
// shallow-copied FD table, and a duplicated trap frame so the child
// returns from the same syscall with x0=0 while the parent's own x0 is
// later set to the child's PID. The actual VMMap sharing
// (walking parent's page tables, incrementing refcounts, marking both
// copies COW) is vm.Vm_t.CopyFrom, invoked by the caller (boot's fork,
// which svc's SYS_FORK handler calls) since it needs a freshly allocated child Vm_t from the
// memory subsystem, which proc does not own.
func (t *Task_t) Fork(childVm *vm.Vm_t) *Task_t {
	t.mu.Lock()
	defer t.mu.Unlock()

	child := New(t.Pid, childVm, t.Fds.Get(0), t.Cwd)
	child.Fds = t.Fds.ForkCopy()
	if t.Trap != nil {
		tf := *t.Trap
		child.Trap = &tf
		child.Trap.X[0] = 0 // child sees syscall return value 0
	}
	t.children = append(t.children, child)
	return child
}

// Exit marks the task TERMINATED and records its exit status; reaping
// happens later via the parent's Wait.
func (t *Task_t) Exit(status int) {
	t.mu.Lock()
	t.State = TERMINATED
	t.ExitStatus = status
	t.mu.Unlock()
	select {
	case t.waitCh <- t:
	default:
	}
}

// Wait blocks (by returning WAITING-eligible semantics to the caller —
// the scheduler is responsible for actually descheduling the calling
// task when Wait reports nothing ready) until some child has
// terminated, then reaps it and returns its PID and status.
func (t *Task_t) Wait() (Pid_t, int, defs.Err_t) {
	t.mu.Lock()
	if len(t.children) == 0 {
		t.mu.Unlock()
		return 0, 0, defs.ECHILD
	}
	for _, c := range t.children {
		c.mu.Lock()
		term := c.State == TERMINATED
		c.mu.Unlock()
		if term {
			t.removeChild(c)
			t.mu.Unlock()
			return c.Pid, c.ExitStatus, 0
		}
	}
	t.mu.Unlock()

	child := <-t.waitCh
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeChild(child)
	return child.Pid, child.ExitStatus, 0
}

func (t *Task_t) removeChild(target *Task_t) {
	for i, c := range t.children {
		if c == target {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return
		}
	}
}

// QueueSignal sets signum pending if it is one of the two recognized
// signals (SIGINT or SIGKILL); whether a handler is installed is not
// checked here.
func (t *Task_t) QueueSignal(signum int) {
	if signum != SIGINT && signum != SIGKILL {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pendingSigs |= 1 << uint(signum)
}

// SetHandler installs a user-space handler address for signum.
func (t *Task_t) SetHandler(signum int, handler uint64) defs.Err_t {
	if signum != SIGINT && signum != SIGKILL {
		return defs.EINVAL
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sigHandlers[signum] = handler
	return 0
}

// DeliverPending runs at the kernel-to-user return edge:
// if a signal is pending and unmasked, it rewrites the trap frame to run
// the installed handler (building a SigFrame_t on the user stack first)
// or, absent a handler, applies the default action (SIGKILL and
// unhandled SIGINT both terminate the task with status 4, mirroring
// the segfault exit code convention). Returns true if the task was
// terminated by a default action.
func (t *Task_t) DeliverPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pendingSigs == 0 || t.inSignal || t.Trap == nil {
		return false
	}
	for _, sig := range []int{SIGKILL, SIGINT} {
		bit := uint64(1) << uint(sig)
		if t.pendingSigs&bit == 0 {
			continue
		}
		t.pendingSigs &^= bit
		handler := t.sigHandlers[sig]
		if handler == 0 || sig == SIGKILL {
			t.State = TERMINATED
			t.ExitStatus = 4
			return true
		}
		if !t.pushSigFrame(sig, handler) {
			// user stack unwritable: fall back to the default action.
			t.State = TERMINATED
			t.ExitStatus = 4
			return true
		}
		return false
	}
	return false
}

// pushSigFrame writes a SigFrame_t onto the top of the user stack,
// snapshotting the current trap frame into it, and rewrites the trap
// frame so execution resumes at handler with the trampoline address in
// LR. Returns false, leaving t untouched, if the stack page backing
// the new top-of-stack can't be resolved for writing. Caller must hold
// t.mu.
func (t *Task_t) pushSigFrame(sig int, handler uint64) bool {
	size := unsafe.Sizeof(SigFrame_t{})
	aligned := (size + 15) &^ 15
	newSp := (uintptr(t.Trap.SpEl0) - aligned) &^ 15

	buf, err := t.Vm.Userdmap8(newSp, true)
	if err != 0 || uintptr(len(buf)) < aligned {
		return false
	}
	frame := (*SigFrame_t)(unsafe.Pointer(&buf[0]))
	frame.Saved = *t.Trap
	frame.SigNum = sig
	frame.RetAddr = sigTrampolineVA

	t.Trap.SpEl0 = uint64(newSp)
	t.Trap.ElrEl1 = handler
	t.Trap.X30 = sigTrampolineVA
	t.Trap.X[0] = uint64(sig)
	t.inSignal = true
	return true
}

// Sigreturn restores the trap frame pushSigFrame saved, reading it back
// from the frame sitting at the current SpEl0 (untouched by the
// handler's own execution, which never moves the stack pointer down
// past it). Registered as the SYS_SIGRETURN handler.
func (t *Task_t) Sigreturn() defs.Err_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inSignal || t.Trap == nil {
		return defs.EINVAL
	}
	size := unsafe.Sizeof(SigFrame_t{})
	buf, err := t.Vm.Userdmap8(uintptr(t.Trap.SpEl0), false)
	if err != 0 || uintptr(len(buf)) < size {
		return defs.EFAULT
	}
	frame := (*SigFrame_t)(unsafe.Pointer(&buf[0]))
	saved := frame.Saved
	t.Trap = &saved
	t.inSignal = false
	return 0
}

// Name returns a short identifier for log lines and procfs.
func (t *Task_t) Name() ustr.Ustr {
	return ustr.Ustr("task")
}
