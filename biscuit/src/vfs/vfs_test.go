package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"defs"
	"tmpfs"
	"ustr"
)

func mkMountedVFS(t *testing.T) *VFS {
	v := New()
	assert.Equal(t, defs.Err_t(0), v.Mount(ustr.MkUstrRoot(), tmpfs.New()))
	return v
}

func TestResolveCrossesMidPathMount(t *testing.T) {
	v := mkMountedVFS(t)
	assert.Equal(t, defs.Err_t(0), v.Mkdir(ustr.Ustr("/sub")))

	inner := tmpfs.New()
	_, err := inner.Root().CreateChild(ustr.Ustr("hello"), []byte("hi"), ModeReg|0o644, 0, 0)
	assert.Equal(t, defs.Err_t(0), err)

	assert.Equal(t, defs.Err_t(0), v.Mount(ustr.Ustr("/sub"), inner))

	vn, err := v.Resolve(ustr.Ustr("/sub/hello"))
	assert.Equal(t, defs.Err_t(0), err)
	assert.Equal(t, "hi", string(vn.GetContent()))
}

func TestOpenCreateReadWrite(t *testing.T) {
	v := mkMountedVFS(t)

	f, err := v.Open(ustr.Ustr("/foo"), O_RDWR|O_CREAT)
	assert.Equal(t, defs.Err_t(0), err)

	n, werr := f.Write(&memUserio{buf: []byte("hello")})
	assert.Equal(t, defs.Err_t(0), werr)
	assert.Equal(t, 5, n)

	_, serr := f.Lseek(0, 0)
	assert.Equal(t, defs.Err_t(0), serr)

	dst := make([]byte, 5)
	io := &memUserio{buf: dst}
	rn, rerr := f.Read(io)
	assert.Equal(t, defs.Err_t(0), rerr)
	assert.Equal(t, 5, rn)
	assert.Equal(t, "hello", string(dst))
}

func TestUnlinkRemovesRegularFileNotDirectory(t *testing.T) {
	v := mkMountedVFS(t)
	assert.Equal(t, defs.Err_t(0), v.Mkdir(ustr.Ustr("/d")))
	_, err := v.Open(ustr.Ustr("/d/f"), O_CREAT)
	assert.Equal(t, defs.Err_t(0), err)

	assert.Equal(t, defs.EISDIR, v.Unlink(ustr.Ustr("/d")))
	assert.Equal(t, defs.Err_t(0), v.Unlink(ustr.Ustr("/d/f")))
	assert.Equal(t, defs.ENOENT, v.Access(ustr.Ustr("/d/f")))
}

func TestGetdentsListsDirectoryChildren(t *testing.T) {
	v := mkMountedVFS(t)
	assert.Equal(t, defs.Err_t(0), v.Mkdir(ustr.Ustr("/d")))
	_, err := v.Open(ustr.Ustr("/d/a"), O_CREAT)
	assert.Equal(t, defs.Err_t(0), err)
	_, err = v.Open(ustr.Ustr("/d/b"), O_CREAT)
	assert.Equal(t, defs.Err_t(0), err)

	f, err := v.Open(ustr.Ustr("/d"), O_RDONLY)
	assert.Equal(t, defs.Err_t(0), err)

	dirents, derr := f.Getdents(10)
	assert.Equal(t, defs.Err_t(0), derr)
	assert.Len(t, dirents, 2)
}

func TestChdirRejectsNonDirectory(t *testing.T) {
	v := mkMountedVFS(t)
	_, err := v.Open(ustr.Ustr("/f"), O_CREAT)
	assert.Equal(t, defs.Err_t(0), err)

	_, err = v.Chdir(ustr.Ustr("/f"))
	assert.Equal(t, defs.ENOTDIR, err)

	_, err = v.Chdir(ustr.Ustr("/"))
	assert.Equal(t, defs.Err_t(0), err)
}

// memUserio is a minimal fdops.Userio_i over a plain byte slice, used
// to drive File_t's Read/Write without a real task address space.
type memUserio struct {
	buf []byte
	pos int
}

func (m *memUserio) Uiowrite(src []uint8) (int, defs.Err_t) {
	n := copy(m.buf[m.pos:], src)
	m.pos += n
	return n, 0
}

func (m *memUserio) Uioread(dst []uint8) (int, defs.Err_t) {
	n := copy(dst, m.buf[m.pos:])
	m.pos += n
	return n, 0
}

func (m *memUserio) Remain() int  { return len(m.buf) - m.pos }
func (m *memUserio) Totalsz() int { return len(m.buf) }
