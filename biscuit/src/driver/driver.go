// Package driver collects the device contracts devtmpfs, fat32, and
// mbr are written against. The original kernel
// split these across parallel dev/ and include/dev/ trees per
// concrete device (MiniUART, SDHostController, Mailbox); this package
// collapses that into one flat contract surface, per the layout
// decision recorded for this module (flat package-per-concern rather
// than mirroring per-device directories).
package driver

import "defs"

// CharDevice is a byte-stream device: the console UART, /dev/null,
// and similar.
type CharDevice interface {
	Read(buf []byte) (int, defs.Err_t)
	Write(buf []byte) (int, defs.Err_t)
}

// BlockDevice is a fixed-sector-size random-access device: the raw SD
// card interface fat32 and mbr read partitions and filesystem data
// from.
type BlockDevice interface {
	ReadSector(lba uint64, buf []byte) defs.Err_t
	WriteSector(lba uint64, buf []byte) defs.Err_t
	SectorSize() int
}

// NullDevice implements CharDevice as /dev/null (defs.D_DEVNULL):
// writes are discarded, reads always return EOF (n=0, no error).
type NullDevice struct{}

func (NullDevice) Read(buf []byte) (int, defs.Err_t)  { return 0, 0 }
func (NullDevice) Write(buf []byte) (int, defs.Err_t) { return len(buf), 0 }

// MemBlockDevice is a BlockDevice backed by an in-memory byte slice,
// used both for hosted tests and for the SD-card-as-a-flat-image
// abstraction fat32/mbr parse.
type MemBlockDevice struct {
	Sectors  []byte
	SecSize  int
}

// NewMemBlockDevice returns a MemBlockDevice wrapping image, with the
// given sector size.
func NewMemBlockDevice(image []byte, secSize int) *MemBlockDevice {
	return &MemBlockDevice{Sectors: image, SecSize: secSize}
}

func (d *MemBlockDevice) SectorSize() int { return d.SecSize }

func (d *MemBlockDevice) ReadSector(lba uint64, buf []byte) defs.Err_t {
	off := int(lba) * d.SecSize
	if off < 0 || off+d.SecSize > len(d.Sectors) {
		return defs.EINVAL
	}
	copy(buf, d.Sectors[off:off+d.SecSize])
	return 0
}

func (d *MemBlockDevice) WriteSector(lba uint64, buf []byte) defs.Err_t {
	off := int(lba) * d.SecSize
	if off < 0 || off+d.SecSize > len(d.Sectors) {
		return defs.EINVAL
	}
	copy(d.Sectors[off:off+d.SecSize], buf)
	return 0
}
