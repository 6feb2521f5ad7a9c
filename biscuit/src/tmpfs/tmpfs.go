// Package tmpfs implements an in-memory filesystem:
// every vnode's content lives only in process memory and vanishes on
// unmount. Grounded on original_source/fs/TmpFS.cc's TmpFSVnode
// (parent/children tree, monotonic vnode index) and TmpFS's
// create/get_vnode path-walk, reworked to satisfy vfs.Vnode_i.
package tmpfs

import (
	"sync"

	"defs"
	"ustr"
	"vfs"
)

// Vnode is tmpfs's node type.
type Vnode struct {
	mu       sync.Mutex
	index    uint32
	name     ustr.Ustr
	mode     vfs.Mode
	uid, gid uint32
	content  []byte
	parent   *Vnode
	children []*Vnode
}

// TmpFS owns the vnode index counter and the root vnode.
type TmpFS struct {
	mu       sync.Mutex
	nextIdx  uint32
	root     *Vnode
}

// New returns a TmpFS with a fresh, empty root directory.
func New() *TmpFS {
	fs := &TmpFS{nextIdx: 1}
	fs.root = &Vnode{index: 0, mode: vfs.ModeDir, name: ustr.MkUstrRoot()}
	return fs
}

func (fs *TmpFS) Root() vfs.Vnode_i { return fs.root }
func (fs *TmpFS) Name() string      { return "tmpfs" }

func (fs *TmpFS) allocIndex() uint32 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	idx := fs.nextIdx
	fs.nextIdx++
	return idx
}

func (v *Vnode) CreateChild(name ustr.Ustr, content []byte, mode vfs.Mode, uid, gid uint32) (vfs.Vnode_i, defs.Err_t) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.children {
		if c.name.Eq(name) {
			return nil, defs.EEXIST
		}
	}
	child := &Vnode{
		name: append(ustr.MkUstr(), name...), mode: mode, uid: uid, gid: gid,
		content: append([]byte(nil), content...), parent: v,
	}
	v.children = append(v.children, child)
	return child, 0
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

func (v *Vnode) Chmod(mode vfs.Mode) defs.Err_t {
	v.mu.Lock()
	v.mode = (v.mode &^ 0o7777) | (mode & 0o7777)
	v.mu.Unlock()
	return 0
}

func (v *Vnode) Chown(uid, gid uint32) defs.Err_t {
	v.mu.Lock()
	v.uid, v.gid = uid, gid
	v.mu.Unlock()
	return 0
}

func (v *Vnode) GetContent() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.content
}

func (v *Vnode) SetContent(content []byte) {
	v.mu.Lock()
	v.content = content
	v.mu.Unlock()
}

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
func (v *Vnode) Size() int       { return len(v.content) }

func (v *Vnode) IsCharacterDevice() bool { return v.mode&0o170000 == vfs.ModeChar }
func (v *Vnode) IsDirectory() bool       { return v.mode&0o170000 == vfs.ModeDir }
func (v *Vnode) IsRegularFile() bool     { return v.mode&0o170000 == vfs.ModeReg }
