// Package svc implements the syscall surface: a
// numbered table mapping x8 to handler functions, operating on the
// trap frame stored on the current task. Grounded on
// original_source/kernel/Syscall.cc's __syscall_table/sys_* functions,
// extended from its 9-entry subset to the full stable ID range this
// kernel exposes (fork/exec/exit/wait/signal/kill/mmap family/VFS ops).
package svc

import (
	"defs"
	"proc"
)

// Syscall numbers, the kernel's stable ABI subset.
const (
	SYS_UART_READ    = 0
	SYS_UART_WRITE   = 1
	SYS_UART_PUTCHAR = 2
	SYS_FORK         = 3
	SYS_EXEC         = 4
	SYS_EXIT         = 5
	SYS_GETPID       = 6
	SYS_WAIT         = 7
	SYS_SIGNAL       = 8
	SYS_KILL         = 9
	SYS_MMAP         = 10
	SYS_MPROTECT     = 11
	SYS_MUNMAP       = 12
	SYS_OPEN         = 13
	SYS_CLOSE        = 14
	SYS_READ         = 15
	SYS_WRITE        = 16
	SYS_MKDIR        = 17
	SYS_CHDIR        = 18
	SYS_ACCESS       = 19
	SYS_UNLINK       = 20
	SYS_GETDENTS     = 21
	SYS_MOUNT        = 22
	SYS_UMOUNT       = 23
)

// badSyscallResult is returned to the trap frame's x0 for an
// unrecognized syscall ID.
const badSyscallResult = ^uint64(0) // -1 as a two's-complement uint64

// Handler services one syscall for task, given the raw argument
// registers x0..x5, and returns the value to store in x0.
type Handler func(task *proc.Task_t, a0, a1, a2, a3, a4, a5 uint64) uint64

// Table is the syscall dispatch table: ID -> Handler. The kernel
// bootstrap populates this at init time once the memory, VFS, and
// scheduler subsystems it depends on exist (grounded on
// __syscall_table's static array of function pointers, expressed here
// as a map since the Go table is built incrementally during
// bootstrap rather than compiled as one literal).
type Table struct {
	handlers map[uint64]Handler
}

// NewTable returns an empty dispatch table.
func NewTable() *Table {
	return &Table{handlers: make(map[uint64]Handler)}
}

// Register installs handler for syscall number id, overwriting any
// previous registration.
func (t *Table) Register(id uint64, h Handler) {
	t.handlers[id] = h
}

// Dispatch looks up and invokes the handler for num, returning
// badSyscallResult for an unrecognized ID.
func (t *Table) Dispatch(task *proc.Task_t, num, a0, a1, a2, a3, a4, a5 uint64) uint64 {
	h, ok := t.handlers[num]
	if !ok {
		return badSyscallResult
	}
	return h(task, a0, a1, a2, a3, a4, a5)
}

// errResult converts a kernel error code to the syscall return
// convention: 0 on success, a negative value otherwise.
func errResult(err defs.Err_t) uint64 {
	return uint64(int64(err.Rc()))
}

// RegisterCore installs the process-lifecycle handlers (fork/exec/
// exit/getpid/wait/signal/kill/sigreturn) shared by every boot
// configuration. VFS-backed and mmap-family handlers are installed
// separately by RegisterVFS and RegisterMemory, which the bootstrap
// calls once those subsystems exist.
func RegisterCore(t *Table, deps CoreDeps) {
	t.Register(SYS_UART_READ, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		buf, err := task.Vm.Userdmap8(uintptr(a0), true)
		if err != 0 {
			return errResult(err)
		}
		n := int(a1)
		if n > len(buf) {
			n = len(buf)
		}
		got := deps.UartRead(buf[:n])
		return uint64(got)
	})

	t.Register(SYS_UART_WRITE, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		buf, err := task.Vm.Userdmap8(uintptr(a0), false)
		if err != 0 {
			return errResult(err)
		}
		n := int(a1)
		if n > len(buf) {
			n = len(buf)
		}
		deps.UartWrite(buf[:n])
		return uint64(n)
	})

	t.Register(SYS_UART_PUTCHAR, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		deps.UartWrite([]byte{byte(a0)})
		return 0
	})

	t.Register(SYS_FORK, func(task *proc.Task_t, _, _, _, _, _, _ uint64) uint64 {
		child, err := deps.Fork(task)
		if err != 0 {
			return errResult(err)
		}
		return uint64(child.Pid)
	})

	t.Register(SYS_EXEC, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		path, argv, err := deps.DecodeExecArgs(task, a0, a1)
		if err != 0 {
			return errResult(err)
		}
		err = deps.Exec(task, path, argv)
		return errResult(err) // only returns on failure; success never comes back here
	})

	t.Register(SYS_EXIT, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		task.Exit(int(int64(int32(a0))))
		return 0
	})

	t.Register(SYS_GETPID, func(task *proc.Task_t, _, _, _, _, _, _ uint64) uint64 {
		return uint64(task.Pid)
	})

	t.Register(SYS_WAIT, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		pid, status, err := task.Wait()
		if err != 0 {
			return errResult(err)
		}
		if a0 != 0 {
			deps.WriteExitStatus(task, uintptr(a0), status)
		}
		return uint64(pid)
	})

	t.Register(SYS_SIGNAL, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		return errResult(task.SetHandler(int(a0), a1))
	})

	t.Register(SYS_KILL, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		return errResult(deps.Kill(proc.Pid_t(a0), int(a1)))
	})

	t.Register(proc.SYS_SIGRETURN, func(task *proc.Task_t, _, _, _, _, _, _ uint64) uint64 {
		return errResult(task.Sigreturn())
	})
}

// CoreDeps are the kernel-bootstrap-supplied operations the
// process-lifecycle syscalls need but svc does not itself own: UART
// I/O, process table lookup for fork/kill, and ELF loading for exec.
type CoreDeps struct {
	UartRead  func(dst []byte) int
	UartWrite func(src []byte)

	Fork           func(task *proc.Task_t) (*proc.Task_t, defs.Err_t)
	Exec           func(task *proc.Task_t, path string, argv []string) defs.Err_t
	DecodeExecArgs func(task *proc.Task_t, pathPtr, argvPtr uint64) (string, []string, defs.Err_t)
	Kill           func(pid proc.Pid_t, signum int) defs.Err_t
	WriteExitStatus func(task *proc.Task_t, uptr uintptr, status int)
}

// RegisterMemory installs the mmap family. Every handler operates
// purely on task.Vm, which owns the whole anonymous-mapping region
// manager, so no deps struct is needed here.
func RegisterMemory(t *Table) {
	t.Register(SYS_MMAP, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		va, err := task.Vm.Mmap(uintptr(a0), int(a1))
		if err != 0 {
			return errResult(err)
		}
		return uint64(va)
	})

	t.Register(SYS_MPROTECT, func(task *proc.Task_t, a0, a1, a2, _, _, _ uint64) uint64 {
		return errResult(task.Vm.Mprotect(uintptr(a0), uintptr(a1), int(a2)))
	})

	t.Register(SYS_MUNMAP, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		return errResult(task.Vm.Munmap(uintptr(a0), uintptr(a1)))
	})
}

// VFSDeps are the kernel-bootstrap-supplied operations the VFS
// syscalls need: decoding a path/buffer pointer out of the calling
// task's address space and routing it to the mounted filesystem tree,
// both of which live in the boot package, not here.
type VFSDeps struct {
	Open     func(task *proc.Task_t, pathVA uint64, flags int) (int, defs.Err_t)
	Close    func(task *proc.Task_t, fdnum int) defs.Err_t
	Read     func(task *proc.Task_t, fdnum int, bufVA uint64, n int) (int, defs.Err_t)
	Write    func(task *proc.Task_t, fdnum int, bufVA uint64, n int) (int, defs.Err_t)
	Mkdir    func(task *proc.Task_t, pathVA uint64) defs.Err_t
	Chdir    func(task *proc.Task_t, pathVA uint64) defs.Err_t
	Access   func(task *proc.Task_t, pathVA uint64) defs.Err_t
	Unlink   func(task *proc.Task_t, pathVA uint64) defs.Err_t
	Getdents func(task *proc.Task_t, fdnum int, bufVA uint64, n int) (int, defs.Err_t)
	Mount    func(task *proc.Task_t, pathVA uint64, fsKind int) defs.Err_t
	Umount   func(task *proc.Task_t, pathVA uint64) defs.Err_t
}

// RegisterVFS installs the filesystem syscall group: open through
// umount (IDs 13-23, i.e. the SYS_OPEN..SYS_UMOUNT range declared
// above).
func RegisterVFS(t *Table, deps VFSDeps) {
	t.Register(SYS_OPEN, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		fdnum, err := deps.Open(task, a0, int(a1))
		if err != 0 {
			return errResult(err)
		}
		return uint64(fdnum)
	})

	t.Register(SYS_CLOSE, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		return errResult(deps.Close(task, int(a0)))
	})

	t.Register(SYS_READ, func(task *proc.Task_t, a0, a1, a2, _, _, _ uint64) uint64 {
		n, err := deps.Read(task, int(a0), a1, int(a2))
		if err != 0 {
			return errResult(err)
		}
		return uint64(n)
	})

	t.Register(SYS_WRITE, func(task *proc.Task_t, a0, a1, a2, _, _, _ uint64) uint64 {
		n, err := deps.Write(task, int(a0), a1, int(a2))
		if err != 0 {
			return errResult(err)
		}
		return uint64(n)
	})

	t.Register(SYS_MKDIR, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		return errResult(deps.Mkdir(task, a0))
	})

	t.Register(SYS_CHDIR, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		return errResult(deps.Chdir(task, a0))
	})

	t.Register(SYS_ACCESS, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		return errResult(deps.Access(task, a0))
	})

	t.Register(SYS_UNLINK, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		return errResult(deps.Unlink(task, a0))
	})

	t.Register(SYS_GETDENTS, func(task *proc.Task_t, a0, a1, a2, _, _, _ uint64) uint64 {
		n, err := deps.Getdents(task, int(a0), a1, int(a2))
		if err != 0 {
			return errResult(err)
		}
		return uint64(n)
	})

	t.Register(SYS_MOUNT, func(task *proc.Task_t, a0, a1, _, _, _, _ uint64) uint64 {
		return errResult(deps.Mount(task, a0, int(a1)))
	})

	t.Register(SYS_UMOUNT, func(task *proc.Task_t, a0, _, _, _, _, _ uint64) uint64 {
		return errResult(deps.Umount(task, a0))
	})
}
