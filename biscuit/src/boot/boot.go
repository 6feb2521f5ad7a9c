// Package boot sequences kernel bring-up: physical memory, the VFS
// mount tree, the initial task, the syscall table, the exception
// dispatcher, and the timer multiplexer, then hands control to the
// scheduler. Grounded on original_source/kernel/Kernel.cc's init()
// function, which performs the same ordered bring-up (memory, then
// filesystems, then the first process, then interrupts enabled last)
// before calling the scheduler's run loop.
package boot

import (
	"fmt"

	"config"
	"cpio"
	"defs"
	"devtmpfs"
	"driver"
	"elf64"
	"fat32"
	"fd"
	"fdops"
	"klog"
	"limits"
	"mbr"
	"mem"
	"metrics"
	"pageref"
	"proc"
	"procfs"
	"sched"
	"slab"
	"svc"
	"timer"
	"tmpfs"
	"trap"
	"ustr"
	"vfs"
	"vm"
)

// physPages is the number of 4 KiB frames handed to the buddy
// allocator at boot, 64 MiB worth on the simulated arena.
const physPages = (64 << 20) / mem.PGSIZE

// Kernel holds every subsystem instance wired together by New, kept as
// a single struct so Run has one receiver to call into rather than a
// pile of package-level globals.
type Kernel struct {
	Zone     *mem.Zone_t
	PageRefs *pageref.Table
	VFS      *vfs.VFS
	TmpFS    *tmpfs.TmpFS
	DevFS    *devtmpfs.DevTmpFS
	ProcFS   *procfs.ProcFS
	Sched    *sched.Sched_t
	Syscalls *svc.Table
	Trap     *trap.Dispatcher
	Timer    *timer.Multiplexer
	Metrics  *metrics.Set
	Config   *config.BootConfig
	Heap     *slab.Arena

	console driver.CharDevice
	init    *proc.Task_t
}

// consoleFdops adapts a driver.CharDevice to fdops.Fdops_i so the
// console can be installed as a task's stdio descriptor; grounded on
// fd.Fd_t's contract that Fops is any object implementing Fdops_i.
type consoleFdops struct {
	dev driver.CharDevice
}

func (c *consoleFdops) Close() defs.Err_t { return 0 }
func (c *consoleFdops) Fstat(statbuf []uint8) defs.Err_t { return 0 }
func (c *consoleFdops) Lseek(off, whence int) (int, defs.Err_t) { return 0, defs.ESPIPE }
func (c *consoleFdops) Reopen() defs.Err_t { return 0 }
func (c *consoleFdops) Pathi() uint { return 0 }

func (c *consoleFdops) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]uint8, dst.Remain())
	n, err := c.dev.Read(buf)
	if err != 0 {
		return 0, err
	}
	wrote, uerr := dst.Uiowrite(buf[:n])
	if uerr != 0 {
		return 0, uerr
	}
	return wrote, 0
}

func (c *consoleFdops) Write(src fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]uint8, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	wrote, werr := c.dev.Write(buf[:n])
	if werr != 0 {
		return 0, werr
	}
	return wrote, 0
}

// New brings up every subsystem in dependency order but does not yet
// start any task; call LoadInit then Run.
func New(cfg *config.BootConfig, console driver.CharDevice, rootDisk driver.BlockDevice) *Kernel {
	klog.SetLevel(cfg.Logging.Level)
	klog.Infof("booting: rootfs=%s init=%s", cfg.Rootfs.Filesystem, cfg.Init.Path)

	zone := mem.PhysInit(physPages)
	pgrefs := &pageref.Table{}

	k := &Kernel{
		Zone:     zone,
		PageRefs: pgrefs,
		VFS:      vfs.New(),
		TmpFS:    tmpfs.New(),
		DevFS:    devtmpfs.New(),
		Sched:    sched.New(),
		Syscalls: svc.NewTable(),
		Timer:    timer.New(),
		Metrics:  metrics.New(),
		Config:   cfg,
		console:  console,
	}
	k.Heap = slab.New(zone)

	if err := k.VFS.Mount(ustr.MkUstrRoot(), k.TmpFS); err != 0 {
		klog.Panicf("mounting tmpfs at /: %v", err)
	}
	for _, dir := range []string{"/dev", "/proc"} {
		if err := k.VFS.Mkdir(ustr.Ustr(dir)); err != 0 {
			klog.Panicf("creating mountpoint %s: %v", dir, err)
		}
	}
	if err := k.VFS.Mount(ustr.Ustr("/dev"), k.DevFS); err != 0 {
		klog.Panicf("mounting devtmpfs at /dev: %v", err)
	}
	k.DevFS.RegisterChar(ustr.Ustr("console"), int(defs.D_CONSOLE))
	k.DevFS.RegisterChar(ustr.Ustr("null"), int(defs.D_DEVNULL))
	if rootDisk != nil {
		k.DevFS.RegisterBlock(ustr.Ustr(cfg.Rootfs.Device), defs.D_RAWDISK)
		if cfg.Rootfs.Filesystem == "fat32" {
			k.probeRootDisk(rootDisk)
		}
	}

	k.ProcFS = procfs.New(k.listTasks, k.Metrics)
	if err := k.VFS.Mount(ustr.Ustr("/proc"), k.ProcFS); err != 0 {
		klog.Panicf("mounting procfs at /proc: %v", err)
	}

	svc.RegisterCore(k.Syscalls, svc.CoreDeps{
		UartRead: func(dst []byte) int {
			n, _ := console.Read(dst)
			return n
		},
		UartWrite: func(src []byte) {
			console.Write(src)
		},
		Fork:            k.fork,
		Exec:            k.exec,
		DecodeExecArgs:  k.decodeExecArgs,
		Kill:            k.kill,
		WriteExitStatus: k.writeExitStatus,
	})

	svc.RegisterMemory(k.Syscalls)
	svc.RegisterVFS(k.Syscalls, svc.VFSDeps{
		Open:     k.openFile,
		Close:    k.closeFile,
		Read:     k.readFd,
		Write:    k.writeFd,
		Mkdir:    k.mkdirPath,
		Chdir:    k.chdirPath,
		Access:   k.accessPath,
		Unlink:   k.unlinkPath,
		Getdents: k.getdentsFd,
		Mount:    k.mountPath,
		Umount:   k.umountPath,
	})

	k.Trap = &trap.Dispatcher{
		Syscall: func(task *proc.Task_t, num uint64, a0, a1, a2, a3, a4, a5 uint64) uint64 {
			k.Metrics.SyscallsTotal.Inc()
			return k.Syscalls.Dispatch(task, num, a0, a1, a2, a3, a4, a5)
		},
		PageFault: func(task *proc.Task_t, faultAddr uint64) bool {
			if !task.Vm.IsCowPage(uintptr(faultAddr)) {
				return false
			}
			k.Metrics.CowFaults.Inc()
			return task.Vm.CopyPageFrame(uintptr(faultAddr)) == 0
		},
		Reschedule: func() { k.Sched.Tick() },
	}

	k.Timer.SetTickHook(func() {
		k.Metrics.TimerTicks.Inc()
		if k.Sched.Tick() {
			k.Metrics.CtxSwitches.Inc()
		}
	})

	return k
}

// probeRootDisk reads the MBR and, for the partition config.Rootfs
// names, the FAT32 BPB, purely as a diagnostic boot-time check; the
// kernel's actual root is always the cpio-populated tmpfs, since no
// writable FAT32 vnode tree is implemented here.
func (k *Kernel) probeRootDisk(dev driver.BlockDevice) {
	if dev == nil {
		return
	}
	sector := make([]byte, dev.SectorSize())
	if err := dev.ReadSector(0, sector); err != 0 {
		klog.Warnf("probing root disk MBR: %v", err)
		return
	}
	table, err := mbr.Parse(sector)
	if err != nil {
		klog.Warnf("parsing MBR: %v", err)
		return
	}
	idx := k.Config.Rootfs.Partition - 1
	if idx < 0 || idx >= len(table.Entries) {
		klog.Warnf("rootfs partition %d out of range", k.Config.Rootfs.Partition)
		return
	}
	entry := table.Entries[idx]
	if !entry.IsFAT32() {
		klog.Warnf("rootfs partition %d is not FAT32", k.Config.Rootfs.Partition)
		return
	}
	bpbSector := make([]byte, dev.SectorSize())
	if err := dev.ReadSector(uint64(entry.StartLBA), bpbSector); err != 0 {
		klog.Warnf("reading BPB: %v", err)
		return
	}
	bpb, err := fat32.ParseBPB(bpbSector)
	if err != nil {
		klog.Warnf("parsing BPB: %v", err)
		return
	}
	klog.Infof("rootfs partition %d: FAT32, first data sector %d", k.Config.Rootfs.Partition, bpb.FirstDataSector())
}

// LoadRamdisk unpacks a cpio archive into tmpfs, the way the initial
// ramdisk's files become the booted root filesystem's contents.
func (k *Kernel) LoadRamdisk(archive []byte) error {
	entries, err := cpio.Parse(archive)
	if err != nil {
		return fmt.Errorf("boot: parsing ramdisk: %w", err)
	}
	for _, e := range entries {
		if err := k.writeFile(e.Pathname, e.Content, e.Mode); err != 0 {
			return fmt.Errorf("boot: writing %s: %v", e.Pathname, err)
		}
	}
	return nil
}

// writeFile creates path (and any missing parent directories) under
// the mounted tmpfs root with content, used both for ramdisk unpacking
// and for nothing else; the VFS has no general-purpose mkdir -p of its
// own since ordinary mkdir/open syscalls expect each component to
// already exist.
func (k *Kernel) writeFile(path string, content []byte, mode uint32) defs.Err_t {
	dir, base := splitPath(path)
	for i := 1; i <= len(dir); i++ {
		if i < len(dir) && dir[i] != '/' {
			continue
		}
		sub := ustr.Ustr("/" + dir[:i])
		if _, err := k.VFS.Resolve(sub); err == defs.ENOENT {
			if err := k.VFS.Mkdir(sub); err != 0 {
				return err
			}
		}
	}
	parent, err := k.VFS.Resolve(ustr.Ustr("/" + dir))
	if err != 0 {
		return err
	}
	_, err = parent.CreateChild(ustr.Ustr(base), content, vfs.ModeReg|vfs.Mode(mode&0o777), 0, 0)
	return err
}

func splitPath(path string) (dir, base string) {
	last := -1
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			last = i
		}
	}
	if last < 0 {
		return "", path
	}
	return path[:last], path[last+1:]
}

// LoadInit creates the first task from the ELF image at path (already
// unpacked into tmpfs by LoadRamdisk) and enqueues it, ready for Run.
func (k *Kernel) LoadInit() error {
	vn, err := k.VFS.Resolve(ustr.Ustr(k.Config.Init.Path))
	if err != 0 {
		return fmt.Errorf("boot: resolving init path %s: %v", k.Config.Init.Path, err)
	}
	raw := vn.GetContent()

	as := vm.NewVm(k.Zone, k.PageRefs)
	stdio := &fd.Fd_t{Fops: &consoleFdops{dev: k.console}, Perms: fd.FD_READ | fd.FD_WRITE}
	root := fd.MkRootCwd(stdio)
	task := proc.New(0, as, stdio, root)

	if err := k.mapImage(task, raw); err != nil {
		return err
	}

	task.State = proc.RUNNABLE
	k.Sched.Enqueue(task)
	k.init = task
	return nil
}

// mapImage loads raw's PT_LOAD segments into task's address space,
// backing each page with a frame from the buddy allocator.
func (k *Kernel) mapImage(task *proc.Task_t, raw []byte) error {
	img, eerr := elf64.Load(raw)
	if eerr != 0 {
		return fmt.Errorf("boot: loading ELF image: %v", eerr)
	}
	for _, seg := range img.Segments {
		attr := mem.PTE_P | mem.PTE_U
		if seg.Flags&elf64.PF_W != 0 {
			attr |= mem.PTE_W
		}
		if seg.Flags&elf64.PF_X == 0 {
			attr |= mem.PTE_XN
		}
		first := alignDown(seg.VirtAddr)
		last := alignDown(seg.VirtAddr+uintptr(seg.MemSize)-1) + uintptr(mem.PGSIZE)
		for va := first; va < last; va += uintptr(mem.PGSIZE) {
			pa, ok := k.Zone.Allocate(mem.PGSIZE)
			if !ok {
				return fmt.Errorf("boot: out of memory loading image")
			}
			page := k.Zone.Dmaplen(pa, mem.PGSIZE)
			for i := range page {
				page[i] = 0
			}
			copySegmentInto(page, seg, va)
			task.Vm.Map(va, pa, attr)
		}
	}
	return nil
}

func copySegmentInto(page []byte, seg elf64.Segment, pageVA uintptr) {
	dataEnd := seg.VirtAddr + uintptr(seg.FileSize)
	pageEnd := pageVA + uintptr(mem.PGSIZE)
	for va := pageVA; va < pageEnd; va++ {
		if va < seg.VirtAddr || va >= dataEnd {
			continue
		}
		page[va-pageVA] = seg.Data[va-seg.VirtAddr]
	}
}

func alignDown(va uintptr) uintptr {
	return va &^ uintptr(mem.PGSIZE-1)
}

// Run enables the timer and enters the scheduling loop, never
// returning; it is the terminal call in cmd/kernel's main.
func (k *Kernel) Run() {
	k.Timer.Enable()
	for {
		prev, next := k.Sched.Schedule()
		if next == nil {
			continue
		}
		_ = prev
		k.runOne(next)
	}
}

// runOne represents one quantum of execution for task: on real
// hardware this is an ERET into user mode followed eventually by a
// trap back into the kernel; the hosted build has no user-mode
// execution, so it stands in for "the task ran until its next trap".
func (k *Kernel) runOne(task *proc.Task_t) {
	if task.State == proc.TERMINATED {
		return
	}
	task.State = proc.RUNNABLE
}

func (k *Kernel) listTasks() []procfs.TaskInfo {
	tasks := k.Sched.Snapshot()
	infos := make([]procfs.TaskInfo, len(tasks))
	for i, t := range tasks {
		infos[i] = procfs.TaskInfo{
			Pid:   t.Pid,
			Ppid:  t.Ppid,
			State: t.State,
			Cmd:   t.Name().String(),
		}
	}
	return infos
}

func (k *Kernel) fork(task *proc.Task_t) (*proc.Task_t, defs.Err_t) {
	if k.Sched.Len() >= limits.Syslimit.Sysprocs {
		return nil, defs.EAGAIN
	}
	childVm := vm.NewVm(k.Zone, k.PageRefs)
	childVm.CopyFrom(task.Vm)
	child := task.Fork(childVm)
	k.Sched.Enqueue(child)
	return child, 0
}

func (k *Kernel) exec(task *proc.Task_t, path string, argv []string) defs.Err_t {
	vn, err := k.VFS.Resolve(ustr.Ustr(path))
	if err != 0 {
		return err
	}
	raw := vn.GetContent()
	task.Vm.Uvmfree()
	if merr := k.mapImage(task, raw); merr != nil {
		return defs.ENOEXEC
	}
	return 0
}

// decodeExecArgs reads the NUL-terminated path string and the
// NULL-terminated array of argv string pointers out of task's address
// space. Each string is copied through a slab-allocated scratch
// buffer (freed immediately after conversion to a Go string) rather
// than read directly out of the zone's direct-map slice, since that
// slice is shared, mutable backing storage the task can still write to.
func (k *Kernel) decodeExecArgs(task *proc.Task_t, pathPtr, argvPtr uint64) (string, []string, defs.Err_t) {
	path, err := k.readUserCString(task, uintptr(pathPtr))
	if err != 0 {
		return "", nil, err
	}

	var argv []string
	for i := 0; ; i++ {
		ptrBytes, err := task.Vm.Userdmap8(uintptr(argvPtr)+uintptr(i*8), true)
		if err != 0 || len(ptrBytes) < 8 {
			return "", nil, defs.EFAULT
		}
		var argp uint64
		for b := 7; b >= 0; b-- {
			argp = argp<<8 | uint64(ptrBytes[b])
		}
		if argp == 0 {
			break
		}
		arg, err := k.readUserCString(task, uintptr(argp))
		if err != 0 {
			return "", nil, err
		}
		argv = append(argv, arg)
	}
	return path, argv, 0
}

// readUserCString copies a NUL-terminated string out of task's address
// space starting at va, through a bounded slab scratch buffer.
func (k *Kernel) readUserCString(task *proc.Task_t, va uintptr) (string, defs.Err_t) {
	const maxLen = mem.PGSIZE - 16 // one slab chunk: a page frame less its 16-byte header
	scratch := k.Heap.Allocate(maxLen)
	defer k.Heap.Deallocate(scratch)

	page, err := task.Vm.Userdmap8(va, true)
	if err != 0 {
		return "", err
	}
	n := copy(scratch, page)
	return string(ustr.MkUstrSlice(scratch[:n])), 0
}

// kill looks pid up in the live run queue and queues signum on it;
// there is no separate blocked-task list to miss, since every
// non-reaped task always sits in the scheduler's run queue.
func (k *Kernel) kill(pid proc.Pid_t, signum int) defs.Err_t {
	for _, t := range k.Sched.Snapshot() {
		if t.Pid == pid {
			t.QueueSignal(signum)
			return 0
		}
	}
	return defs.ESRCH
}

func (k *Kernel) writeExitStatus(task *proc.Task_t, uptr uintptr, status int) {
	buf, err := task.Vm.Userdmap8(uptr, false)
	if err != 0 || len(buf) < 4 {
		return
	}
	buf[0] = byte(status)
	buf[1] = byte(status >> 8)
	buf[2] = byte(status >> 16)
	buf[3] = byte(status >> 24)
}

// bufUserio adapts a direct-mapped user buffer, already resolved
// through Vm_t.Userdmap8, into the single-shot fdops.Userio_i the VFS
// layer's Read/Write methods copy through.
type bufUserio struct {
	buf []byte
	pos int
}

func (b *bufUserio) Uiowrite(src []uint8) (int, defs.Err_t) {
	n := copy(b.buf[b.pos:], src)
	b.pos += n
	return n, 0
}

func (b *bufUserio) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, b.buf[b.pos:])
	b.pos += n
	return n, 0
}

func (b *bufUserio) Remain() int  { return len(b.buf) - b.pos }
func (b *bufUserio) Totalsz() int { return len(b.buf) }

// openPerms maps the low two bits of an open(2) flags argument to
// FD_READ/FD_WRITE, matching the O_RDONLY/O_WRONLY/O_RDWR encoding
// vfs.Open already assumes.
func openPerms(flags int) int {
	switch flags & 0x3 {
	case vfs.O_WRONLY:
		return fd.FD_WRITE
	case vfs.O_RDWR:
		return fd.FD_READ | fd.FD_WRITE
	default:
		return fd.FD_READ
	}
}

func (k *Kernel) openFile(task *proc.Task_t, pathVA uint64, flags int) (int, defs.Err_t) {
	path, err := k.readUserCString(task, uintptr(pathVA))
	if err != 0 {
		return 0, err
	}
	full := task.Cwd.Canonicalpath(ustr.Ustr(path))
	file, err := k.VFS.Open(full, flags)
	if err != 0 {
		return 0, err
	}
	fdnum := task.Fds.Allocate(&fd.Fd_t{Fops: file, Perms: openPerms(flags)})
	if fdnum < 0 {
		file.Close()
		return 0, defs.ENFILE
	}
	return fdnum, 0
}

func (k *Kernel) closeFile(task *proc.Task_t, fdnum int) defs.Err_t {
	f, err := task.Fds.Close(fdnum)
	if err != 0 {
		return err
	}
	return f.Fops.Close()
}

func (k *Kernel) readFd(task *proc.Task_t, fdnum int, bufVA uint64, n int) (int, defs.Err_t) {
	f := task.Fds.Get(fdnum)
	if f == nil {
		return 0, defs.EBADF
	}
	if f.Perms&fd.FD_READ == 0 {
		return 0, defs.EPERM
	}
	buf, err := task.Vm.Userdmap8(uintptr(bufVA), true)
	if err != 0 {
		return 0, err
	}
	if n < len(buf) {
		buf = buf[:n]
	}
	return f.Fops.Read(&bufUserio{buf: buf})
}

func (k *Kernel) writeFd(task *proc.Task_t, fdnum int, bufVA uint64, n int) (int, defs.Err_t) {
	f := task.Fds.Get(fdnum)
	if f == nil {
		return 0, defs.EBADF
	}
	if f.Perms&fd.FD_WRITE == 0 {
		return 0, defs.EPERM
	}
	buf, err := task.Vm.Userdmap8(uintptr(bufVA), false)
	if err != 0 {
		return 0, err
	}
	if n < len(buf) {
		buf = buf[:n]
	}
	return f.Fops.Write(&bufUserio{buf: buf})
}

func (k *Kernel) mkdirPath(task *proc.Task_t, pathVA uint64) defs.Err_t {
	path, err := k.readUserCString(task, uintptr(pathVA))
	if err != 0 {
		return err
	}
	return k.VFS.Mkdir(task.Cwd.Canonicalpath(ustr.Ustr(path)))
}

func (k *Kernel) chdirPath(task *proc.Task_t, pathVA uint64) defs.Err_t {
	path, err := k.readUserCString(task, uintptr(pathVA))
	if err != 0 {
		return err
	}
	full := task.Cwd.Canonicalpath(ustr.Ustr(path))
	if _, err := k.VFS.Chdir(full); err != 0 {
		return err
	}
	task.Cwd.Lock()
	task.Cwd.Path = full
	task.Cwd.Unlock()
	return 0
}

func (k *Kernel) accessPath(task *proc.Task_t, pathVA uint64) defs.Err_t {
	path, err := k.readUserCString(task, uintptr(pathVA))
	if err != 0 {
		return err
	}
	return k.VFS.Access(task.Cwd.Canonicalpath(ustr.Ustr(path)))
}

func (k *Kernel) unlinkPath(task *proc.Task_t, pathVA uint64) defs.Err_t {
	path, err := k.readUserCString(task, uintptr(pathVA))
	if err != 0 {
		return err
	}
	return k.VFS.Unlink(task.Cwd.Canonicalpath(ustr.Ustr(path)))
}

// direntSize is the fixed size of one getdents(2) wire entry: a
// NUL-padded name field followed by a little-endian mode word.
const direntSize = 64
const direntNameMax = direntSize - 4

func encodeDirents(buf []byte, dirents []vfs.Dirent) int {
	off := 0
	for _, d := range dirents {
		if off+direntSize > len(buf) {
			break
		}
		name := d.Name.String()
		if len(name) > direntNameMax-1 {
			name = name[:direntNameMax-1]
		}
		n := copy(buf[off:off+direntNameMax], name)
		for i := off + n; i < off+direntNameMax; i++ {
			buf[i] = 0
		}
		mode := uint32(d.Mode)
		base := off + direntNameMax
		for i := 0; i < 4; i++ {
			buf[base+i] = byte(mode >> (8 * i))
		}
		off += direntSize
	}
	return off
}

func (k *Kernel) getdentsFd(task *proc.Task_t, fdnum int, bufVA uint64, n int) (int, defs.Err_t) {
	f := task.Fds.Get(fdnum)
	if f == nil {
		return 0, defs.EBADF
	}
	vf, ok := f.Fops.(*vfs.File_t)
	if !ok {
		return 0, defs.ENOTDIR
	}
	buf, err := task.Vm.Userdmap8(uintptr(bufVA), true)
	if err != 0 {
		return 0, err
	}
	if n < len(buf) {
		buf = buf[:n]
	}
	dirents, derr := vf.Getdents(len(buf) / direntSize)
	if derr != 0 {
		return 0, derr
	}
	return encodeDirents(buf, dirents), 0
}

// Filesystem kinds mountPath accepts: the tmpfs kind mounts a fresh,
// empty tmpfs instance, while the devtmpfs and procfs kinds mount the
// instances already constructed at boot. There is no
// block-device-backed filesystem driver to mount anything else.
const (
	mountKindTmpfs = iota
	mountKindDevtmpfs
	mountKindProcfs
)

func (k *Kernel) mountPath(task *proc.Task_t, pathVA uint64, fsKind int) defs.Err_t {
	path, err := k.readUserCString(task, uintptr(pathVA))
	if err != 0 {
		return err
	}
	var fs vfs.FileSystem_i
	switch fsKind {
	case mountKindTmpfs:
		fs = tmpfs.New()
	case mountKindDevtmpfs:
		fs = k.DevFS
	case mountKindProcfs:
		fs = k.ProcFS
	default:
		return defs.EINVAL
	}
	return k.VFS.Mount(task.Cwd.Canonicalpath(ustr.Ustr(path)), fs)
}

func (k *Kernel) umountPath(task *proc.Task_t, pathVA uint64) defs.Err_t {
	path, err := k.readUserCString(task, uintptr(pathVA))
	if err != 0 {
		return err
	}
	return k.VFS.Umount(task.Cwd.Canonicalpath(ustr.Ustr(path)))
}
