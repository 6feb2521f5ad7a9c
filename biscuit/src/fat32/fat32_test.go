package fat32

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"driver"
)

func buildBootSector(bytesPerSector uint16, secPerCluster uint8, reserved uint16, tableCount uint8, tableSize32 uint32, rootCluster uint32) []byte {
	sec := make([]byte, 512)
	binary.LittleEndian.PutUint16(sec[11:13], bytesPerSector)
	sec[13] = secPerCluster
	binary.LittleEndian.PutUint16(sec[14:16], reserved)
	sec[16] = tableCount
	binary.LittleEndian.PutUint32(sec[36:40], tableSize32)
	binary.LittleEndian.PutUint32(sec[44:48], rootCluster)
	return sec
}

func TestParseBPBDecodesFields(t *testing.T) {
	sec := buildBootSector(512, 8, 32, 2, 970, 2)
	bpb, err := ParseBPB(sec)
	assert.NoError(t, err)
	assert.Equal(t, uint16(512), bpb.BytesPerSector)
	assert.Equal(t, uint8(8), bpb.SectorsPerCluster)
	assert.Equal(t, uint32(2), bpb.RootCluster)
}

func TestClusterToSectorMatchesFirstDataSector(t *testing.T) {
	bpb := &BPB{BytesPerSector: 512, SectorsPerCluster: 8, ReservedSectorCount: 32, TableCount: 2, TableSize32: 970}
	assert.Equal(t, bpb.FirstDataSector(), bpb.ClusterToSector(2))
	assert.Equal(t, bpb.FirstDataSector()+8, bpb.ClusterToSector(3))
}

func TestFATChainFollowsLinksToEndOfChain(t *testing.T) {
	dev := driver.NewMemBlockDevice(make([]byte, 512*4), 512)
	// FAT table occupies sector 0 (TableSize32 = 1): cluster 2 -> 3 -> 4 -> EOC.
	buf := make([]byte, 512)
	binary.LittleEndian.PutUint32(buf[2*4:3*4], 3)
	binary.LittleEndian.PutUint32(buf[3*4:4*4], 4)
	binary.LittleEndian.PutUint32(buf[4*4:5*4], clusterEOCMin)
	dev.WriteSector(0, buf)

	bpb := &BPB{BytesPerSector: 512, ReservedSectorCount: 0, TableSize32: 1, SectorsPerCluster: 1}
	fat, err := ReadFAT(dev, 0, bpb)
	assert.NoError(t, err)
	assert.Equal(t, []uint32{2, 3, 4}, fat.Chain(2))
}

func TestParseDirSectorSkipsDeletedAndLongNameEntries(t *testing.T) {
	sec := make([]byte, 512)
	copy(sec[0:11], "HELLO   TXT")
	sec[11] = 0 // normal file
	binary.LittleEndian.PutUint32(sec[28:32], 123) // file size

	sec[32] = 0xE5 // deleted entry, skipped
	sec[32+11] = 0

	sec[64] = 'X'
	sec[64+11] = AttrLongName // VFAT long-name entry, skipped

	entries := ParseDirSector(sec)
	assert.Len(t, entries, 1)
	assert.Equal(t, "HELLO.TXT", entries[0].Name)
	assert.Equal(t, uint32(123), entries[0].FileSize)
}
