// Package fat32 parses the FAT32 BIOS Parameter Block and short
// directory entries and reads file data following a
// cluster's FAT chain. Grounded on
// original_source/fs/FAT32.cc/FAT32.h's packed BootSector layout;
// unlike the original (which only logs bpb fields without ever
// actually implementing directory traversal or file reads), this
// implementation completes the chain-following and directory-parsing
// the original left as dead code.
package fat32

import (
	"encoding/binary"
	"fmt"

	"driver"
)

// BPB is the decoded BIOS Parameter Block fields this kernel needs.
type BPB struct {
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	TableCount          uint8
	TableSize32         uint32
	RootCluster         uint32
	TotalSectors32      uint32
}

// ParseBPB decodes a BPB from the first sector of a FAT32 partition.
func ParseBPB(sector []byte) (*BPB, error) {
	if len(sector) < 90 {
		return nil, fmt.Errorf("fat32: boot sector too short")
	}
	return &BPB{
		BytesPerSector:      binary.LittleEndian.Uint16(sector[11:13]),
		SectorsPerCluster:   sector[13],
		ReservedSectorCount: binary.LittleEndian.Uint16(sector[14:16]),
		TableCount:          sector[16],
		TotalSectors32:      binary.LittleEndian.Uint32(sector[32:36]),
		TableSize32:         binary.LittleEndian.Uint32(sector[36:40]),
		RootCluster:         binary.LittleEndian.Uint32(sector[44:48]),
	}, nil
}

// FirstDataSector is the LBA (relative to the partition start) of
// cluster 2, the first cluster FAT32 ever allocates to data.
func (b *BPB) FirstDataSector() uint32 {
	return uint32(b.ReservedSectorCount) + uint32(b.TableCount)*b.TableSize32
}

// ClusterToSector converts a cluster number to its first sector,
// relative to the partition start.
func (b *BPB) ClusterToSector(cluster uint32) uint32 {
	return b.FirstDataSector() + (cluster-2)*uint32(b.SectorsPerCluster)
}

const (
	clusterFree    = 0x00000000
	clusterEOCMin  = 0x0FFFFFF8
	clusterBadMask = 0x0FFFFFFF
)

// FAT is the File Allocation Table itself: cluster N's 4-byte entry
// gives the next cluster in the chain, or a value >= clusterEOCMin at
// end of chain.
type FAT struct {
	entries []uint32
}

// ReadFAT loads the first FAT (of TableCount copies) starting at
// sector bpb.ReservedSectorCount.
func ReadFAT(dev driver.BlockDevice, partitionStartLBA uint32, bpb *BPB) (*FAT, error) {
	numEntries := bpb.TableSize32 * uint32(bpb.BytesPerSector) / 4
	entries := make([]uint32, numEntries)
	buf := make([]byte, dev.SectorSize())

	start := partitionStartLBA + uint32(bpb.ReservedSectorCount)
	entriesPerSector := uint32(dev.SectorSize()) / 4
	for s := uint32(0); s < bpb.TableSize32; s++ {
		if err := dev.ReadSector(uint64(start+s), buf); err != 0 {
			return nil, fmt.Errorf("fat32: reading FAT sector %d: code %d", s, err)
		}
		for i := uint32(0); i < entriesPerSector; i++ {
			idx := s*entriesPerSector + i
			if idx >= numEntries {
				break
			}
			entries[idx] = binary.LittleEndian.Uint32(buf[i*4:i*4+4]) & clusterBadMask
		}
	}
	return &FAT{entries: entries}, nil
}

// Chain follows the FAT starting at cluster, returning the full list
// of clusters belonging to one file or directory.
func (f *FAT) Chain(start uint32) []uint32 {
	var chain []uint32
	cur := start
	seen := make(map[uint32]bool)
	for cur != clusterFree && cur < clusterEOCMin && !seen[cur] {
		chain = append(chain, cur)
		seen[cur] = true
		if int(cur) >= len(f.entries) {
			break
		}
		cur = f.entries[cur]
	}
	return chain
}

// ShortDirEntry is one 32-byte FAT short (8.3) directory entry.
type ShortDirEntry struct {
	Name       string
	Attr       uint8
	FirstCluster uint32
	FileSize   uint32
}

const (
	AttrReadOnly = 0x01
	AttrHidden   = 0x02
	AttrDirectory = 0x10
	AttrLongName  = AttrReadOnly | AttrHidden | 0x04 | 0x08
)

// ParseDirSector decodes every valid 32-byte short entry in one
// directory sector, skipping deleted (0xE5), free (0x00), and VFAT
// long-name entries (ATTR_LONG_NAME).
func ParseDirSector(sector []byte) []ShortDirEntry {
	var out []ShortDirEntry
	for off := 0; off+32 <= len(sector); off += 32 {
		e := sector[off : off+32]
		if e[0] == 0x00 {
			break // no more entries in this directory
		}
		if e[0] == 0xE5 {
			continue // deleted
		}
		attr := e[11]
		if attr&AttrLongName == AttrLongName {
			continue // VFAT long-name entry, not a short entry
		}
		name := decodeShortName(e[0:11])
		hi := uint32(binary.LittleEndian.Uint16(e[20:22]))
		lo := uint32(binary.LittleEndian.Uint16(e[26:28]))
		out = append(out, ShortDirEntry{
			Name:         name,
			Attr:         attr,
			FirstCluster: hi<<16 | lo,
			FileSize:     binary.LittleEndian.Uint32(e[28:32]),
		})
	}
	return out
}

func decodeShortName(raw []byte) string {
	base := trimSpaces(raw[0:8])
	ext := trimSpaces(raw[8:11])
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func trimSpaces(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}
