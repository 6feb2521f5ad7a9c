// Package trap implements the exception and IRQ dispatcher: decodes ESR_EL1's EC/ISS fields and routes to the
// syscall path, the page-fault/COW path, or an unhandled-exception
// panic. Grounded on
// original_source/kernel/ExceptionManager.cc's handle_exception/
// handle_irq/get_current_exception.
package trap

import (
	"fmt"

	"golang.org/x/arch/arm64/arm64asm"

	"caller"
	"proc"
)

// Exception classes decoded from ESR_EL1[31:26] (ARMv8 manual,
// referenced directly in ExceptionManager.cc's switch on ex.ec).
const (
	ecSVC64         = 0b010101 // SVC instruction execution in AArch64 state
	ecMsrMrsTrapped = 0b011000
	ecSveTrapped    = 0b011001
	ecInstrAbortLEL = 0b100000 // instruction abort from a lower EL
	ecInstrAbortSEL = 0b100001
	ecDataAbortLEL  = 0b100100 // data abort from a lower EL: page fault / COW
	ecDataAbortSEL  = 0b100101
)

// Exception is the decoded ESR_EL1/ELR_EL1 pair for the trap currently
// being handled.
type Exception struct {
	EC      uint32
	ISS     uint32
	RetAddr uint64
}

// Decode splits a raw ESR_EL1 value into EC and ISS per the bit layout
// ESR_EL1[31:26]=EC, ESR_EL1[25]=IL, ESR_EL1[24:0]=ISS.
func Decode(esrEl1 uint32, elrEl1 uint64) Exception {
	return Exception{
		EC:      esrEl1 >> 26,
		ISS:     esrEl1 & 0x1ffffff,
		RetAddr: elrEl1,
	}
}

// SyscallFunc dispatches a decoded syscall to the syscall table;
// installed by the kernel bootstrap to avoid an import cycle between
// trap and svc.
type SyscallFunc func(task *proc.Task_t, num uint64, a0, a1, a2, a3, a4, a5 uint64) uint64

// PageFaultFunc handles a data-abort-from-EL0, typically a COW fault;
// returns false if the fault is not a recoverable COW fault and the
// task must be killed.
type PageFaultFunc func(task *proc.Task_t, faultAddr uint64) bool

// Dispatcher wires the decode step to the three handler paths.
type Dispatcher struct {
	Syscall   SyscallFunc
	PageFault PageFaultFunc

	// Reschedule is invoked after a syscall or page fault returns, on
	// the way back to user mode, mirroring
	// TaskScheduler::maybe_reschedule's position in handle_exception.
	Reschedule func()
}

// Handle processes one synchronous exception for task:
//   - EC == 0b010101 (SVC #0, ISS == 0): syscall path.
//   - EC == 0b100100 (data abort from EL0): page-fault/COW path; the
//     task is terminated with status 4 if the fault cannot be resolved,
//     matching do_exit(4) in the original's segfault handler.
//   - anything else: unhandled, dumps registers and panics.
func (d *Dispatcher) Handle(task *proc.Task_t, ex Exception) {
	switch ex.EC {
	case ecSVC64:
		if ex.ISS != 0 {
			d.panicUnhandled(task, ex, "SVC with nonzero ISS")
			return
		}
		tf := task.Trap
		num := tf.X[8]
		result := d.Syscall(task, num, tf.X[0], tf.X[1], tf.X[2], tf.X[3], tf.X[4], tf.X[5])
		if num != proc.SYS_SIGRETURN {
			// Sigreturn replaces task.Trap wholesale with the restored
			// pre-signal frame; clobbering its x0 here would overwrite
			// what that frame's own original syscall returned.
			task.Trap.X[0] = result
		}
		task.DeliverPending()
		if d.Reschedule != nil {
			d.Reschedule()
		}

	case ecDataAbortLEL:
		faultAddr := ex.RetAddr // FAR_EL1 would be read separately on real hardware
		if d.PageFault == nil || !d.PageFault(task, faultAddr) {
			task.Exit(4)
		}
		if d.Reschedule != nil {
			d.Reschedule()
		}

	case ecMsrMrsTrapped:
		d.panicUnhandled(task, ex, "trapped MSR/MRS/system instruction")
	case ecSveTrapped:
		d.panicUnhandled(task, ex, "trapped SVE access")
	case ecInstrAbortLEL, ecInstrAbortSEL:
		d.panicUnhandled(task, ex, "instruction abort")
	case ecDataAbortSEL:
		d.panicUnhandled(task, ex, "data abort without EL change")
	default:
		d.panicUnhandled(task, ex, "unknown exception")
	}
}

// HandleIRQ processes an asynchronous interrupt: for this kernel the
// single interrupt source is the timer, so the handler simply runs
// onTick and lets the scheduler decide whether to reschedule.
func (d *Dispatcher) HandleIRQ(onTick func()) {
	if onTick != nil {
		onTick()
	}
	if d.Reschedule != nil {
		d.Reschedule()
	}
}

// panicUnhandled dumps the trap frame, disassembles the faulting
// instruction if it's resident in a readable buffer, and panics. This
// is a fatal kernel error, not a recoverable task fault.
func (d *Dispatcher) panicUnhandled(task *proc.Task_t, ex Exception, reason string) {
	msg := fmt.Sprintf(
		"unhandled exception: %s (ec=0b%b iss=0x%x elr_el1=0x%x pid=%d)%s",
		reason, ex.EC, ex.ISS, ex.RetAddr, task.Pid, disasmAt(task, ex.RetAddr),
	)
	caller.Callerdump(2)
	panic(msg)
}

// disasmAt fetches the faulting instruction's raw bytes out of the
// task's address space and disassembles it, returning an empty string
// if the page backing pc isn't mapped or readable (true for most
// kernel-internal exceptions, where pc isn't a user address at all).
func disasmAt(task *proc.Task_t, pc uint64) string {
	if task == nil || task.Vm == nil {
		return ""
	}
	code, err := task.Vm.Userdmap8(uintptr(pc), false)
	if err != 0 || len(code) < 4 {
		return ""
	}
	return fmt.Sprintf(" instr=%s", DisassembleAt(code[:4], pc))
}

// DisassembleAt decodes the AArch64 instruction at pc from code,
// used only for panic diagnostics to show what the faulting
// instruction actually was.
func DisassembleAt(code []byte, pc uint64) string {
	inst, err := arm64asm.Decode(code)
	if err != nil {
		return fmt.Sprintf("<undecodable at 0x%x: %v>", pc, err)
	}
	return arm64asm.GoSyntax(inst, pc, nil, nil)
}
