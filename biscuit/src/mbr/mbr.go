// Package mbr parses the Master Boot Record partition table: four 16-byte entries starting at offset 446, a 0x55AA signature
// at offset 510, and per-entry fields including the partition-type
// byte at offset 4 of each entry. Grounded on
// original_source/dev/DiskPartition.cc, whose detect_partition_type()
// is a stub that always returns FAT32 regardless of what is actually
// on disk; this implementation reads the real type byte.
package mbr

import (
	"encoding/binary"
	"fmt"
)

const (
	tableOffset  = 446
	entrySize    = 16
	numEntries   = 4
	sigOffset    = 510
	bootSigLo    = 0x55
	bootSigHi    = 0xAA
)

// Partition type byte values relevant to this kernel; anything else is reported as unknown
// rather than guessed.
const (
	TypeEmpty = 0x00
	TypeFAT32 = 0x0B
	TypeFAT32LBA = 0x0C
)

// Entry is one decoded partition table entry.
type Entry struct {
	Status       byte
	Type         byte
	StartLBA     uint32
	SectorCount  uint32
}

// IsFAT32 reports whether this entry's type byte identifies a FAT32
// partition (either CHS or LBA addressing variant).
func (e Entry) IsFAT32() bool {
	return e.Type == TypeFAT32 || e.Type == TypeFAT32LBA
}

// Table is the four-entry primary partition table plus validity of
// the 0x55AA boot signature.
type Table struct {
	Valid   bool
	Entries [numEntries]Entry
}

// Parse reads the MBR partition table out of sector, a raw 512-byte
// (or larger, extra bytes ignored) disk sector.
func Parse(sector []byte) (*Table, error) {
	if len(sector) < sigOffset+2 {
		return nil, fmt.Errorf("mbr: sector too short (%d bytes)", len(sector))
	}
	t := &Table{Valid: sector[sigOffset] == bootSigLo && sector[sigOffset+1] == bootSigHi}

	for i := 0; i < numEntries; i++ {
		base := tableOffset + i*entrySize
		e := sector[base : base+entrySize]
		t.Entries[i] = Entry{
			Status:      e[0],
			Type:        e[4], // the byte detect_partition_type() never actually read
			StartLBA:    binary.LittleEndian.Uint32(e[8:12]),
			SectorCount: binary.LittleEndian.Uint32(e[12:16]),
		}
	}
	return t, nil
}
