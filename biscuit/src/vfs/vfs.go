// Package vfs implements the virtual filesystem layer:
// a mount-point tree over an abstract vnode interface, with path
// resolution that crosses mountpoint boundaries transparently.
// Grounded on original_source/fs/VirtualFileSystem.cc (whose rootfs-
// only Mount type this supplements with full mount/umount semantics)
// and Vnode.h's virtual interface, which becomes the Vnode_i interface
// below.
package vfs

import (
	"sync"

	"bpath"
	"defs"
	"fdops"
	"ustr"
)

// Open flag bits, matching the Linux AArch64 open(2) ABI so a decoded
// syscall argument needs no translation.
const (
	O_RDONLY = 0x0
	O_WRONLY = 0x1
	O_RDWR   = 0x2
	O_CREAT  = 0x40
)

// Mode bits mirror the S_IFMT family Vnode.h tests against
// (is_directory/is_regular_file/is_character_device/...).
type Mode uint32

const (
	ModeDir     Mode = 0o040000
	ModeReg     Mode = 0o100000
	ModeChar    Mode = 0o020000
	ModeBlock   Mode = 0o060000
	ModeFifo    Mode = 0o010000
	ModeSymlink Mode = 0o120000
)

// Vnode_i is the operation set every filesystem's node type
// implements, grounded 1:1 on Vnode.h's pure-virtual methods.
type Vnode_i interface {
	CreateChild(name ustr.Ustr, content []byte, mode Mode, uid, gid uint32) (Vnode_i, defs.Err_t)
	AddChild(child Vnode_i)
	RemoveChild(name ustr.Ustr) (Vnode_i, defs.Err_t)
	GetChild(name ustr.Ustr) (Vnode_i, defs.Err_t)
	GetIthChild(i int) (Vnode_i, defs.Err_t)
	GetChildrenCount() int

	Chmod(mode Mode) defs.Err_t
	Chown(uid, gid uint32) defs.Err_t

	GetContent() []byte
	SetContent(content []byte)

	GetParent() Vnode_i
	SetParent(parent Vnode_i)

	Name() ustr.Ustr
	Mode() Mode
	Size() int

	// IsCharacterDevice returns true for any node created with
	// ModeChar.
	IsCharacterDevice() bool
	IsDirectory() bool
	IsRegularFile() bool
}

// FileSystem_i is one mountable filesystem: it hands back its root
// vnode and is consulted by name in diagnostics.
type FileSystem_i interface {
	Root() Vnode_i
	Name() string
}

// mountPoint pairs an absolute path with the filesystem mounted there.
type mountPoint struct {
	path ustr.Ustr
	fs   FileSystem_i
}

// VFS is the mount-point tree. Path resolution starts at the root
// mount and descends one component at a time, re-checking the mount
// table after every step, so a filesystem mounted at any intermediate
// path is switched into transparently rather than only at the final
// component.
type VFS struct {
	mu     sync.RWMutex
	mounts []mountPoint
}

// New returns an empty VFS with no mounted filesystems.
func New() *VFS {
	return &VFS{}
}

// Mount attaches fs at path. path must already resolve to an existing
// directory vnode unless it is "/", the very first mount.
func (v *VFS) Mount(path ustr.Ustr, fs FileSystem_i) defs.Err_t {
	canon := bpath.Canonicalize(path)
	var target Vnode_i
	var terr defs.Err_t
	if !canon.Eq(ustr.MkUstrRoot()) {
		target, terr = v.Resolve(canon)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.mounts) == 0 && !canon.Eq(ustr.MkUstrRoot()) {
		return defs.EINVAL
	}
	if terr != 0 {
		return terr
	}
	if target != nil && !target.IsDirectory() {
		return defs.ENOTDIR
	}
	for _, m := range v.mounts {
		if m.path.Eq(canon) {
			return defs.EEXIST
		}
	}
	v.mounts = append(v.mounts, mountPoint{path: canon, fs: fs})
	return 0
}

// Umount detaches whatever filesystem is mounted exactly at path.
func (v *VFS) Umount(path ustr.Ustr) defs.Err_t {
	canon := bpath.Canonicalize(path)
	v.mu.Lock()
	defer v.mu.Unlock()

	if canon.Eq(ustr.MkUstrRoot()) {
		return defs.EINVAL // rootfs can never be unmounted
	}
	for i, m := range v.mounts {
		if m.path.Eq(canon) {
			v.mounts = append(v.mounts[:i], v.mounts[i+1:]...)
			return 0
		}
	}
	return defs.ENOENT
}

// mountedAt returns the filesystem mounted exactly at canon, if any.
// Callers must hold v.mu.
func (v *VFS) mountedAt(canon ustr.Ustr) (FileSystem_i, bool) {
	for _, m := range v.mounts {
		if m.path.Eq(canon) {
			return m.fs, true
		}
	}
	return nil, false
}

func splitComponents(p ustr.Ustr) []ustr.Ustr {
	var out []ustr.Ustr
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				out = append(out, p[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// Resolve walks path component by component from the root mount's
// root vnode, re-consulting the mount table after every descent so a
// filesystem mounted anywhere along the way — not just at the final
// path — is switched into transparently, masking whatever the
// underlying vnode tree held at that name.
func (v *VFS) Resolve(path ustr.Ustr) (Vnode_i, defs.Err_t) {
	canon := bpath.Canonicalize(path)
	v.mu.RLock()
	defer v.mu.RUnlock()

	root, ok := v.mountedAt(ustr.MkUstrRoot())
	if !ok {
		return nil, defs.ENOENT
	}
	node := root.Root()
	accum := ustr.MkUstrRoot()
	for _, c := range splitComponents(canon) {
		if c.Isdot() {
			continue
		}
		if c.Isdotdot() {
			if p := node.GetParent(); p != nil {
				node = p
			}
			continue
		}
		child, err := node.GetChild(c)
		if err != 0 {
			return nil, err
		}
		node = child
		accum = bpath.Join(accum, c)
		if fs, ok := v.mountedAt(accum); ok {
			node = fs.Root()
		}
	}
	return node, 0
}

// File_t is a cursor on a vnode: a shared vnode reference, a byte (or,
// for directories, child-index) offset, and the flags it was opened
// with. Fork shares one File_t across both the parent's and child's FD
// table slots by copying the *File_t reference, matching the
// file-descriptor table's own shallow-copy semantics; refs counts how
// many slots still point at it, and Close only decrements that count
// (the vnode reference itself is kept).
type File_t struct {
	mu    sync.Mutex
	vn    Vnode_i
	offset int
	flags int
	refs  int
}

func newFile(vn Vnode_i, flags int) *File_t {
	return &File_t{vn: vn, flags: flags, refs: 1}
}

// Vnode returns the vnode this cursor is positioned on.
func (f *File_t) Vnode() Vnode_i { return f.vn }

func (f *File_t) Reopen() defs.Err_t {
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
	return 0
}

func (f *File_t) Close() defs.Err_t {
	f.mu.Lock()
	f.refs--
	f.mu.Unlock()
	return 0
}

func (f *File_t) Pathi() uint { return 0 }

// Fstat writes an 8-byte little-endian size followed by a 4-byte
// little-endian mode into statbuf.
func (f *File_t) Fstat(statbuf []uint8) defs.Err_t {
	if len(statbuf) < 12 {
		return defs.EINVAL
	}
	f.mu.Lock()
	size := uint64(f.vn.Size())
	mode := uint32(f.vn.Mode())
	f.mu.Unlock()
	for i := 0; i < 8; i++ {
		statbuf[i] = byte(size >> (8 * i))
	}
	for i := 0; i < 4; i++ {
		statbuf[8+i] = byte(mode >> (8 * i))
	}
	return 0
}

// Lseek repositions the cursor: whence 0/1/2 are SEEK_SET/CUR/END.
func (f *File_t) Lseek(off, whence int) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch whence {
	case 0:
		f.offset = off
	case 1:
		f.offset += off
	case 2:
		f.offset = f.vn.Size() + off
	default:
		return 0, defs.EINVAL
	}
	if f.offset < 0 {
		f.offset = 0
	}
	return f.offset, 0
}

// Read copies from the vnode's content at the current offset into dst,
// advancing the offset by the number of bytes transferred.
func (f *File_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vn.IsDirectory() {
		return 0, defs.EISDIR
	}
	content := f.vn.GetContent()
	if f.offset >= len(content) {
		return 0, 0
	}
	n, err := dst.Uiowrite(content[f.offset:])
	if err != 0 {
		return 0, err
	}
	f.offset += n
	return n, 0
}

// Write copies from src into the vnode's content at the current
// offset, growing the content if the write extends past its end.
func (f *File_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vn.IsDirectory() {
		return 0, defs.EISDIR
	}
	buf := make([]byte, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	content := f.vn.GetContent()
	end := f.offset + n
	if end > len(content) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	copy(content[f.offset:end], buf[:n])
	f.vn.SetContent(content)
	f.offset = end
	return n, 0
}

// Dirent is one directory entry as returned by Getdents.
type Dirent struct {
	Name ustr.Ustr
	Mode Mode
}

// Getdents lists up to max children of the directory vnode backing f,
// starting at f's current offset (reused here as a child index rather
// than a byte offset, since the two meanings never coexist for one
// File_t), and advances the offset past whatever it returns.
func (f *File_t) Getdents(max int) ([]Dirent, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.vn.IsDirectory() {
		return nil, defs.ENOTDIR
	}
	count := f.vn.GetChildrenCount()
	var out []Dirent
	for ; f.offset < count && len(out) < max; f.offset++ {
		child, err := f.vn.GetIthChild(f.offset)
		if err != 0 {
			break
		}
		out = append(out, Dirent{Name: child.Name(), Mode: child.Mode()})
	}
	return out, 0
}

// Open resolves path to a vnode and returns a cursor over it. If flags
// carries O_CREAT and no such file exists, a new empty regular file is
// created in the parent directory first (the parent must already
// exist).
func (v *VFS) Open(path ustr.Ustr, flags int) (*File_t, defs.Err_t) {
	vn, err := v.Resolve(path)
	if err == 0 {
		return newFile(vn, flags), 0
	}
	if err != defs.ENOENT || flags&O_CREAT == 0 {
		return nil, err
	}
	dir, base := bpath.Split(bpath.Canonicalize(path))
	parent, perr := v.Resolve(dir)
	if perr != 0 {
		return nil, perr
	}
	child, cerr := parent.CreateChild(base, nil, ModeReg|0o644, 0, 0)
	if cerr != 0 {
		return nil, cerr
	}
	return newFile(child, flags), 0
}

// Mkdir creates an empty directory at path; its parent must already
// exist.
func (v *VFS) Mkdir(path ustr.Ustr) defs.Err_t {
	dir, base := bpath.Split(bpath.Canonicalize(path))
	parent, err := v.Resolve(dir)
	if err != 0 {
		return err
	}
	_, err = parent.CreateChild(base, nil, ModeDir|0o755, 0, 0)
	return err
}

// Access reports whether path resolves to an existing vnode.
func (v *VFS) Access(path ustr.Ustr) defs.Err_t {
	_, err := v.Resolve(path)
	return err
}

// Unlink removes the regular file at path from its parent directory.
func (v *VFS) Unlink(path ustr.Ustr) defs.Err_t {
	dir, base := bpath.Split(bpath.Canonicalize(path))
	parent, err := v.Resolve(dir)
	if err != 0 {
		return err
	}
	child, err := parent.GetChild(base)
	if err != 0 {
		return err
	}
	if child.IsDirectory() {
		return defs.EISDIR
	}
	_, err = parent.RemoveChild(base)
	return err
}

// Chdir resolves path to a directory vnode, or returns ENOTDIR if it
// names something else.
func (v *VFS) Chdir(path ustr.Ustr) (Vnode_i, defs.Err_t) {
	vn, err := v.Resolve(path)
	if err != 0 {
		return nil, err
	}
	if !vn.IsDirectory() {
		return nil, defs.ENOTDIR
	}
	return vn, 0
}
