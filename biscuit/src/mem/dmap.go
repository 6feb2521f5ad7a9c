package mem

// Dmap8 returns a byte slice of the zone's simulated RAM arena starting
// at physical address p and running to the end of the arena, mirroring
// biscuit's "direct map" helper (`Physmem_t.Dmap8`) that lets kernel
// code address a physical page without a separate virtual mapping. On
// real hardware this would be backed by the kernel's fixed identity/
// direct-map region established at boot; in this hosted build the
// arena itself stands in for that mapping.
func (z *Zone_t) Dmap8(p Pa_t) []uint8 {
	off := int(p)
	if off < 0 || off > len(z.arena) {
		panic("dmap: address out of zone")
	}
	return z.arena[off:]
}

// Dmaplen returns an l-byte slice of the arena starting at p, bounds
// checked.
func (z *Zone_t) Dmaplen(p Pa_t, l int) []uint8 {
	off := int(p)
	if off < 0 || off+l > len(z.arena) {
		panic("dmaplen: range out of zone")
	}
	return z.arena[off : off+l]
}
