// Package elf64 loads PT_LOAD segments from an ELF64 executable into a
// task's address space for exec. Grounded on
// original_source/include/fs/ELF.h's Header/Segment layout and
// ELF_DEFAULT_BASE convention, parsed here with the standard library's
// debug/elf rather than a hand-rolled struct overlay, the same choice
// biscuit's own kernel/chentry.go tool already made for ELF header
// manipulation, reused here for full program-header parsing.
package elf64

import (
	"bytes"
	"debug/elf"
	"fmt"

	"defs"
)

// DefaultBase is the base virtual address executables are loaded at.
const DefaultBase = 0x400000

// Segment flags, matching elf.ProgFlag's bit positions.
const (
	PF_X = 1 << 0
	PF_W = 1 << 1
	PF_R = 1 << 2
)

// Segment is one PT_LOAD segment ready to be mapped: its virtual
// address already has DefaultBase applied.
type Segment struct {
	VirtAddr uintptr
	MemSize  uint64
	FileSize uint64
	Flags    uint32
	Data     []byte // the segment's file-backed bytes; shorter than MemSize for .bss
}

// Image is a parsed ELF64 executable: its entry point and the list of
// segments to map into freshly allocated pages honoring each segment's
// permissions.
type Image struct {
	Entry    uintptr
	Segments []Segment
}

// Load parses raw as an ELF64 executable and extracts its PT_LOAD
// segments. Both ET_EXEC and ET_DYN (PIE) binaries are accepted and
// treated identically by adding DefaultBase; this kernel uses a single
// fixed entry convention rather than dynamic relocation.
func Load(raw []byte) (*Image, defs.Err_t) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, defs.ENOEXEC
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		return nil, defs.ENOEXEC
	}
	if f.Machine != elf.EM_AARCH64 {
		return nil, defs.ENOEXEC
	}
	if f.Type != elf.ET_EXEC && f.Type != elf.ET_DYN {
		return nil, defs.ENOEXEC
	}

	img := &Image{Entry: uintptr(DefaultBase) + uintptr(f.Entry)}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if prog.Filesz > 0 {
			if _, err := prog.ReadAt(data, 0); err != nil {
				return nil, defs.ENOEXEC
			}
		}
		img.Segments = append(img.Segments, Segment{
			VirtAddr: uintptr(DefaultBase) + uintptr(prog.Vaddr),
			MemSize:  prog.Memsz,
			FileSize: prog.Filesz,
			Flags:    uint32(prog.Flags),
			Data:     data,
		})
	}
	if len(img.Segments) == 0 {
		return nil, defs.ENOEXEC
	}
	return img, 0
}

// Validate confirms the ELF magic number without fully parsing the
// file, for a fast reject path before attempting Load (grounded on
// ELF::is_valid's magic-number memcmp).
func Validate(raw []byte) error {
	if len(raw) < 4 || !bytes.Equal(raw[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		return fmt.Errorf("elf64: not an ELF file")
	}
	return nil
}
