package yaff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrBadMagic = errors.New("not a YAFF image")

// Relocation is one raw (index, offset) pair of the relocation table.
type Relocation struct {
	Index  uint32
	Offset uint32
}

// Symbol is one decoded symbol table entry.
type Symbol struct {
	Name    string
	Offset  uint32
	Section SectionCode
}

// File is a decoded image.
type File struct {
	Header    Header
	Name      string
	Libraries []string

	SymbolTableRelocations []Relocation
	LocalRelocations       []Relocation
	DataRelocations        []Relocation

	ImportedSymbols []Symbol
	ExportedSymbols []Symbol

	Payload []byte
}

func ReadHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("image too small: %d bytes", len(data))
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, h); err != nil {
		return nil, err
	}
	if string(h.Magic[:]) != Magic {
		return nil, ErrBadMagic
	}
	return h, nil
}

// readString returns the NUL-terminated string at off and the offset of the
// next aligned item.
func readString(data []byte, off int) (string, int, error) {
	if off >= len(data) {
		return "", 0, fmt.Errorf("string at %#x is out of range", off)
	}
	end := bytes.IndexByte(data[off:], 0)
	if end < 0 {
		return "", 0, fmt.Errorf("string at %#x is not terminated", off)
	}
	next := off + end + 1
	if rem := next % TableAlignment; rem != 0 {
		next += TableAlignment - rem
	}
	return string(data[off : off+end]), next, nil
}

func readSymbols(data []byte, off int, n int) ([]Symbol, error) {
	syms := make([]Symbol, 0, n)
	for i := 0; i < n; i++ {
		if off+4 > len(data) {
			return nil, fmt.Errorf("symbol %d at %#x is out of range", i, off)
		}
		offset, section := Untag(binary.LittleEndian.Uint32(data[off:]))
		name, next, err := readString(data, off+4)
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		syms = append(syms, Symbol{Name: name, Offset: offset, Section: section})
		off = next
	}
	return syms, nil
}

// Decode splits an image back into its tables.
func Decode(data []byte) (*File, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	f := &File{Header: *h}

	if f.Name, _, err = readString(data, HeaderSize); err != nil {
		return nil, fmt.Errorf("module name: %w", err)
	}

	off := int(h.ImportedLibrariesOffset)
	for i := 0; i < int(h.ExternalLibrariesAmount); i++ {
		var lib string
		if lib, off, err = readString(data, off); err != nil {
			return nil, fmt.Errorf("library %d: %w", i, err)
		}
		f.Libraries = append(f.Libraries, lib)
	}

	off = int(h.RelocationsOffset)
	if off+h.RelocationsAmount()*8 > len(data) {
		return nil, fmt.Errorf("relocation table at %#x is out of range", off)
	}
	read := func(n uint16) []Relocation {
		rels := make([]Relocation, 0, n)
		for i := 0; i < int(n); i++ {
			rels = append(rels, Relocation{
				Index:  binary.LittleEndian.Uint32(data[off:]),
				Offset: binary.LittleEndian.Uint32(data[off+4:]),
			})
			off += 8
		}
		return rels
	}
	f.SymbolTableRelocations = read(h.SymbolTableRelocationsAmount)
	f.LocalRelocations = read(h.LocalRelocationsAmount)
	f.DataRelocations = read(h.DataRelocationsAmount)

	if f.ImportedSymbols, err = readSymbols(data, int(h.ImportedSymbolsOffset), int(h.ImportedSymbolsAmount)); err != nil {
		return nil, fmt.Errorf("imported symbols: %w", err)
	}
	if f.ExportedSymbols, err = readSymbols(data, int(h.ExportedSymbolsOffset), int(h.ExportedSymbolsAmount)); err != nil {
		return nil, fmt.Errorf("exported symbols: %w", err)
	}

	if int(h.TextOffset) > len(data) {
		return nil, fmt.Errorf("payload offset %#x is out of range", h.TextOffset)
	}
	f.Payload = data[h.TextOffset:]
	return f, nil
}
