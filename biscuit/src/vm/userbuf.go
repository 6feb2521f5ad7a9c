package vm

import "defs"

// Userbuf_t assists reading and writing a span of user memory as a
// fdops.Userio_i, resolving COW faults page-by-page as it crosses page
// boundaries. Grounded on biscuit's Userbuf_t, simplified: the
// biscuit's version additionally charged each transfer against a
// kernel-wide resource-admission budget (package `res`/`bounds`, two
// stub packages with no surviving implementation in this pack and
// nothing in this kernel that needs resource admission control) —
// dropped here rather than reconstructed from nothing; see DESIGN.md.
type Userbuf_t struct {
	as     *Vm_t
	uva    uintptr
	length int
	off    int
}

// UbInit initializes the buffer for address space as, starting at uva
// and spanning length bytes.
func (ub *Userbuf_t) UbInit(as *Vm_t, uva uintptr, length int) {
	if length < 0 {
		panic("vm: negative user buffer length")
	}
	ub.as = as
	ub.uva = uva
	ub.length = length
	ub.off = 0
}

// Remain reports the number of bytes not yet transferred.
func (ub *Userbuf_t) Remain() int { return ub.length - ub.off }

// Totalsz reports the buffer's total size.
func (ub *Userbuf_t) Totalsz() int { return ub.length }

// Uioread copies from user memory into dst.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return ub.tx(dst, false)
}

// Uiowrite copies from src into user memory.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return ub.tx(src, true)
}

func (ub *Userbuf_t) tx(buf []uint8, write bool) (int, defs.Err_t) {
	done := 0
	for len(buf) != 0 && ub.off != ub.length {
		va := ub.uva + uintptr(ub.off)
		page, err := ub.as.Userdmap8(va, write)
		if err != 0 {
			return done, err
		}
		pgoff := int(pageOffset(va))
		avail := len(page)
		if avail > ub.length-ub.off {
			avail = ub.length - ub.off
		}
		n := avail
		if n > len(buf) {
			n = len(buf)
		}
		if write {
			copy(page[:n], buf[:n])
		} else {
			copy(buf[:n], page[:n])
		}
		_ = pgoff
		buf = buf[n:]
		ub.off += n
		done += n
	}
	return done, 0
}
