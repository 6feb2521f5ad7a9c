// Package procfs implements the process-information filesystem: vnode content is
// generated on read from live kernel state rather than stored.
// Grounded on original_source/fs/ProcFS.cc's ProcFSInode tree
// (synthetic root directory, children created by the filesystem
// itself rather than by user syscalls) with its fixed "switch"/"hello"
// demo files replaced by per-task status files and a metrics export
// wired to github.com/prometheus/client_golang.
package procfs

import (
	"fmt"
	"strconv"
	"sync"

	"defs"
	"metrics"
	"proc"
	"ustr"
	"vfs"
)

// TaskInfo is the subset of a task's state procfs renders for status
// and cmdline.
type TaskInfo struct {
	Pid    proc.Pid_t
	Ppid   proc.Pid_t
	State  proc.State_t
	Cmd    string
	Argv   []string
}

// TaskLister is supplied by the kernel bootstrap: procfs has no
// reference to the scheduler's run queue, so it asks for a live
// snapshot whenever /proc is read.
type TaskLister func() []TaskInfo

// Vnode is procfs's node type: either a plain directory, or a
// generator-backed leaf whose GetContent() calls back into kernel
// state at read time.
type Vnode struct {
	mu       sync.Mutex
	name     ustr.Ustr
	mode     vfs.Mode
	generate func() []byte
	parent   *Vnode
	children []*Vnode
}

// ProcFS is the synthetic filesystem mounted at /proc during bootstrap.
// Its per-task directories are rebuilt from TaskLister only when
// Refresh runs; lookups do not rebuild them. File contents are still
// generated at read time.
type ProcFS struct {
	mu     sync.Mutex
	root   *Vnode
	lister TaskLister
	stats  *metrics.Set
}

// New returns a ProcFS whose root holds only the "metrics" node wired
// to stats; per-task directories appear once Refresh runs.
func New(lister TaskLister, stats *metrics.Set) *ProcFS {
	fs := &ProcFS{lister: lister, stats: stats}

	fs.root = &Vnode{mode: vfs.ModeDir, name: ustr.MkUstrRoot()}
	fs.root.children = append(fs.root.children, &Vnode{
		name: ustr.Ustr("metrics"), mode: vfs.ModeReg, parent: fs.root,
		generate: fs.renderMetrics,
	})
	return fs
}

// Metrics returns the collector set the kernel bootstrap's syscall,
// page-fault and timer-tick hooks update directly.
func (fs *ProcFS) Metrics() *metrics.Set {
	return fs.stats
}

func (fs *ProcFS) renderMetrics() []byte {
	mfs, err := fs.stats.Registry.Gather()
	if err != nil {
		return []byte(fmt.Sprintf("# error gathering metrics: %v\n", err))
	}
	var out []byte
	for _, mf := range mfs {
		out = append(out, []byte(fmt.Sprintf("# HELP %s %s\n", mf.GetName(), mf.GetHelp()))...)
		for _, m := range mf.GetMetric() {
			var val float64
			if m.GetGauge() != nil {
				val = m.GetGauge().GetValue()
			} else if m.GetCounter() != nil {
				val = m.GetCounter().GetValue()
			}
			out = append(out, []byte(fmt.Sprintf("%s %v\n", mf.GetName(), val))...)
		}
	}
	return out
}

func (fs *ProcFS) Root() vfs.Vnode_i { return fs.root }
func (fs *ProcFS) Name() string      { return "procfs" }

// taskDir builds (without caching) the directory for one task, holding
// its status and cmdline generator leaves.
func (fs *ProcFS) taskDir(info TaskInfo) *Vnode {
	dir := &Vnode{mode: vfs.ModeDir, name: ustr.Ustr(strconv.Itoa(int(info.Pid))), parent: fs.root}
	info := info
	dir.children = []*Vnode{
		{
			name: ustr.Ustr("status"), mode: vfs.ModeReg, parent: dir,
			generate: func() []byte {
				return []byte(fmt.Sprintf("Pid:\t%d\nPPid:\t%d\nState:\t%s\n", info.Pid, info.Ppid, info.State))
			},
		},
		{
			name: ustr.Ustr("cmdline"), mode: vfs.ModeReg, parent: dir,
			generate: func() []byte {
				out := info.Cmd
				for _, a := range info.Argv {
					out += "\x00" + a
				}
				return []byte(out)
			},
		},
	}
	return dir
}

func (v *Vnode) CreateChild(name ustr.Ustr, content []byte, mode vfs.Mode, uid, gid uint32) (vfs.Vnode_i, defs.Err_t) {
	return nil, defs.EACCES
}

func (v *Vnode) AddChild(c vfs.Vnode_i) {
	tv := c.(*Vnode)
	v.mu.Lock()
	tv.parent = v
	v.children = append(v.children, tv)
	v.mu.Unlock()
}

func (v *Vnode) RemoveChild(name ustr.Ustr) (vfs.Vnode_i, defs.Err_t) {
	return nil, defs.EACCES
}

func (v *Vnode) GetChild(name ustr.Ustr) (vfs.Vnode_i, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.children {
		if c.name.Eq(name) {
			return c, 0
		}
	}
	return nil, defs.ENOENT
}

func (v *Vnode) GetIthChild(i int) (vfs.Vnode_i, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.children) {
		return nil, defs.ENOENT
	}
	return v.children[i], 0
}

func (v *Vnode) GetChildrenCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.children)
}

func (v *Vnode) Chmod(mode vfs.Mode) defs.Err_t   { return defs.EACCES }
func (v *Vnode) Chown(uid, gid uint32) defs.Err_t { return defs.EACCES }

func (v *Vnode) GetContent() []byte {
	v.mu.Lock()
	gen := v.generate
	v.mu.Unlock()
	if gen == nil {
		return nil
	}
	return gen()
}

func (v *Vnode) SetContent(content []byte) {}

func (v *Vnode) GetParent() vfs.Vnode_i {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.parent == nil {
		return nil
	}
	return v.parent
}

func (v *Vnode) SetParent(parent vfs.Vnode_i) {
	v.mu.Lock()
	v.parent = parent.(*Vnode)
	v.mu.Unlock()
}

func (v *Vnode) Name() ustr.Ustr { return v.name }
func (v *Vnode) Mode() vfs.Mode  { return v.mode & 0o170000 }
func (v *Vnode) Size() int       { return len(v.GetContent()) }

func (v *Vnode) IsCharacterDevice() bool { return false }
func (v *Vnode) IsDirectory() bool       { return v.mode&0o170000 == vfs.ModeDir }
func (v *Vnode) IsRegularFile() bool     { return v.mode&0o170000 == vfs.ModeReg }

// Refresh rebuilds the per-task directories under root from a fresh
// TaskLister snapshot.
func (fs *ProcFS) Refresh() {
	if fs.lister == nil {
		return
	}
	infos := fs.lister()
	fs.root.mu.Lock()
	defer fs.root.mu.Unlock()

	kept := fs.root.children[:0:0]
	for _, c := range fs.root.children {
		if c.name.Eq(ustr.Ustr("metrics")) {
			kept = append(kept, c)
		}
	}
	for _, info := range infos {
		kept = append(kept, fs.taskDir(info))
	}
	fs.root.children = kept
}
