// Package devtmpfs implements the device-node filesystem mounted at
// /dev: a tmpfs-shaped tree whose leaf vnodes are
// character or block device nodes rather than regular files. Grounded
// on tmpfs's vnode tree (same parent/child/path-walk shape) and on
// defs.device.go's device-number encoding; devtmpfs itself has no
// counterpart in original_source (the reference kernel hardcodes a
// single MiniUART singleton) so node registration is this package's
// own addition, in biscuit's naming idiom.
package devtmpfs

import (
	"sync"

	"defs"
	"ustr"
	"vfs"
)

// Vnode is a devtmpfs node: either a directory (for /dev itself) or a
// device node carrying a device number.
type Vnode struct {
	mu       sync.Mutex
	name     ustr.Ustr
	mode     vfs.Mode
	devno    int
	parent   *Vnode
	children []*Vnode
}

// DevTmpFS is the device filesystem singleton mounted at /dev during
// bootstrap.
type DevTmpFS struct {
	root *Vnode
}

// New returns a DevTmpFS with an empty root directory.
func New() *DevTmpFS {
	return &DevTmpFS{root: &Vnode{mode: vfs.ModeDir, name: ustr.MkUstrRoot()}}
}

func (fs *DevTmpFS) Root() vfs.Vnode_i { return fs.root }
func (fs *DevTmpFS) Name() string      { return "devtmpfs" }

// RegisterChar creates a character-device node named name at the
// filesystem's root with device number devno.
func (fs *DevTmpFS) RegisterChar(name ustr.Ustr, devno int) *Vnode {
	fs.root.mu.Lock()
	defer fs.root.mu.Unlock()
	n := &Vnode{name: append(ustr.MkUstr(), name...), mode: vfs.ModeChar, devno: devno, parent: fs.root}
	fs.root.children = append(fs.root.children, n)
	return n
}

// RegisterBlock is RegisterChar's block-device counterpart, used for
// the raw SD-card interface (defs.D_RAWDISK).
func (fs *DevTmpFS) RegisterBlock(name ustr.Ustr, devno int) *Vnode {
	fs.root.mu.Lock()
	defer fs.root.mu.Unlock()
	n := &Vnode{name: append(ustr.MkUstr(), name...), mode: vfs.ModeBlock, devno: devno, parent: fs.root}
	fs.root.children = append(fs.root.children, n)
	return n
}

// Devno returns the device number a device-node vnode was registered
// with, or -1 for non-device vnodes.
func (v *Vnode) Devno() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t := v.mode & 0o170000; t != vfs.ModeChar && t != vfs.ModeBlock {
		return -1
	}
	return v.devno
}

func (v *Vnode) CreateChild(name ustr.Ustr, content []byte, mode vfs.Mode, uid, gid uint32) (vfs.Vnode_i, defs.Err_t) {
	return nil, defs.EINVAL // devtmpfs nodes are created only via RegisterChar/RegisterBlock
}

func (v *Vnode) AddChild(c vfs.Vnode_i) {
	tv := c.(*Vnode)
	v.mu.Lock()
	tv.parent = v
	v.children = append(v.children, tv)
	v.mu.Unlock()
}

func (v *Vnode) RemoveChild(name ustr.Ustr) (vfs.Vnode_i, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, c := range v.children {
		if c.name.Eq(name) {
			v.children = append(v.children[:i], v.children[i+1:]...)
			return c, 0
		}
	}
	return nil, defs.ENOENT
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

func (v *Vnode) Chmod(mode vfs.Mode) defs.Err_t { return 0 }
func (v *Vnode) Chown(uid, gid uint32) defs.Err_t { return 0 }
func (v *Vnode) GetContent() []byte              { return nil }
func (v *Vnode) SetContent(content []byte)       {}

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
func (v *Vnode) Size() int       { return 0 }

// IsCharacterDevice fixes the bug in original_source/include/fs/Vnode.h
// where is_character_device() masked against S_IFMT correctly but no
// caller ever constructed a vnode with S_IFCHR set, so the check was
// dead code; devtmpfs nodes are the first vnodes in this kernel that
// actually carry ModeChar, so the check now does something.
func (v *Vnode) IsCharacterDevice() bool { return v.mode&0o170000 == vfs.ModeChar }
func (v *Vnode) IsDirectory() bool       { return v.mode&0o170000 == vfs.ModeDir }
func (v *Vnode) IsRegularFile() bool     { return v.mode&0o170000 == vfs.ModeReg }
