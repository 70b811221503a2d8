// Package yaff describes the YAFF relocatable module container consumed by
// the yasld dynamic loader.
package yaff

import (
	"encoding/binary"
	"fmt"
)

const Magic = "YAFF"

const (
	ArchARMv6M uint16 = 1
	Version    uint8  = 1

	// TableAlignment applies to strings and symbol entries.
	TableAlignment = 4
	// PayloadAlignment applies to the start of the section payload.
	PayloadAlignment = 16

	// EntryDefault in the entry field tells the loader to start at main.
	EntryDefault uint32 = 0xFFFFFFFF
)

// HeaderSize is the packed on-disk size of Header.
var HeaderSize = binary.Size(Header{})

type ModuleType uint8

const (
	ModuleTypeExecutable    ModuleType = 1
	ModuleTypeSharedLibrary ModuleType = 2
)

func (t ModuleType) String() string {
	switch t {
	case ModuleTypeExecutable:
		return "exec"
	case ModuleTypeSharedLibrary:
		return "shared library"
	}
	return "unknown"
}

// ParseModuleType accepts the names used on the command line.
func ParseModuleType(s string) (ModuleType, error) {
	switch s {
	case "executable", "exec":
		return ModuleTypeExecutable, nil
	case "shared_library", "library":
		return ModuleTypeSharedLibrary, nil
	}
	return 0, fmt.Errorf("unknown module type: %q", s)
}

// SectionCode tags the region a pointer or symbol lives in. It occupies the
// low two bits of every section-tagged value.
type SectionCode uint8

const (
	Code    SectionCode = 0
	Data    SectionCode = 1
	Init    SectionCode = 2
	Unknown SectionCode = 3
)

func (c SectionCode) String() string {
	switch c {
	case Code:
		return ".text"
	case Data:
		return ".data"
	case Init:
		return ".init_arrays"
	}
	return "unknown"
}

// MaxTagOffset is the largest offset Tag can hold.
const MaxTagOffset = 1<<30 - 1

// Tag packs a region-relative offset with its section code. Offsets above
// MaxTagOffset lose their top bits.
func Tag(offset uint32, code SectionCode) uint32 {
	return offset<<2 | uint32(code&0x3)
}

// Untag is the inverse of Tag.
func Untag(v uint32) (uint32, SectionCode) {
	return v >> 2, SectionCode(v & 0x3)
}

// Header is the fixed-size, packed, little-endian start of every image.
type Header struct {
	Magic                        [4]uint8
	ModuleType                   ModuleType
	Arch                         uint16
	YaffVersion                  uint8
	CodeLength                   uint32
	InitLength                   uint32
	DataLength                   uint32
	BssLength                    uint32
	Entry                        uint32
	ExternalLibrariesAmount      uint16
	Alignment                    uint8
	TextAndDataSeparation        uint8
	VersionMajor                 uint16
	VersionMinor                 uint16
	SymbolTableRelocationsAmount uint16
	LocalRelocationsAmount       uint16
	DataRelocationsAmount        uint16
	Reserved2                    uint16
	ExportedSymbolsAmount        uint16
	ImportedSymbolsAmount        uint16
	GotLength                    uint32
	GotPltLength                 uint32
	PltLength                    uint32
	ArchSectionOffset            uint16
	ImportedLibrariesOffset      uint16
	RelocationsOffset            uint16
	ImportedSymbolsOffset        uint16
	ExportedSymbolsOffset        uint16
	TextOffset                   uint16
}

func (h *Header) RelocationsAmount() int {
	return int(h.SymbolTableRelocationsAmount) + int(h.LocalRelocationsAmount) + int(h.DataRelocationsAmount)
}
