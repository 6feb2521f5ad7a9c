package cpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeThenParseRoundTrips(t *testing.T) {
	entries := []Entry{
		{Pathname: "bin/init", Content: []byte("#!/bin/sh\necho hi\n"), Mode: 0o755},
		{Pathname: "etc/empty", Content: nil},
	}
	buf := Serialize(entries)
	got, err := Parse(buf)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "bin/init", got[0].Pathname)
	assert.Equal(t, []byte("#!/bin/sh\necho hi\n"), got[0].Content)
	assert.Equal(t, "etc/empty", got[1].Pathname)
	assert.Len(t, got[1].Content, 0)
}

func TestParseStopsAtTrailer(t *testing.T) {
	buf := Serialize([]Entry{{Pathname: "a", Content: []byte("x")}})
	got, err := Parse(buf)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerLen)
	copy(buf, "BADMAG")
	_, err := Parse(buf)
	assert.Error(t, err)
}
