package mbr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildSector(entries []Entry, signature bool) []byte {
	sec := make([]byte, 512)
	for i, e := range entries {
		base := tableOffset + i*entrySize
		sec[base] = e.Status
		sec[base+4] = e.Type
		binary.LittleEndian.PutUint32(sec[base+8:base+12], e.StartLBA)
		binary.LittleEndian.PutUint32(sec[base+12:base+16], e.SectorCount)
	}
	if signature {
		sec[sigOffset] = bootSigLo
		sec[sigOffset+1] = bootSigHi
	}
	return sec
}

func TestParseReadsRealPartitionTypeByte(t *testing.T) {
	sec := buildSector([]Entry{
		{Status: 0x80, Type: TypeFAT32LBA, StartLBA: 2048, SectorCount: 204800},
	}, true)
	tbl, err := Parse(sec)
	assert.NoError(t, err)
	assert.True(t, tbl.Valid)
	assert.True(t, tbl.Entries[0].IsFAT32())
	assert.Equal(t, uint32(2048), tbl.Entries[0].StartLBA)
}

func TestParseRejectsMissingBootSignature(t *testing.T) {
	sec := buildSector(nil, false)
	tbl, err := Parse(sec)
	assert.NoError(t, err)
	assert.False(t, tbl.Valid)
}

func TestNonFat32TypeByteIsNotMisreportedAsFat32(t *testing.T) {
	sec := buildSector([]Entry{{Type: 0x83}}, true) // Linux native partition
	tbl, _ := Parse(sec)
	assert.False(t, tbl.Entries[0].IsFAT32())
}
