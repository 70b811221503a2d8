package elfmodel

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

type testSection struct {
	name    string
	typ     elf.SectionType
	flags   elf.SectionFlag
	addr    uint32
	data    []byte
	size    uint32
	link    uint32
	info    uint32
	entSize uint32
}

// elfWriter assembles a minimal little-endian ELF32 ARM image.
type elfWriter struct {
	typ      elf.Type
	machine  elf.Machine
	entry    uint32
	sections []testSection
}

func newElfWriter(typ elf.Type) *elfWriter {
	return &elfWriter{typ: typ, machine: elf.EM_ARM}
}

// add returns the section index.
func (w *elfWriter) add(s testSection) uint32 {
	w.sections = append(w.sections, s)
	return uint32(len(w.sections))
}

func symInfo(bind elf.SymBind, typ elf.SymType) uint8 {
	return uint8(bind)<<4 | uint8(typ)
}

type symtabWriter struct {
	syms   []Sym
	strtab []byte
}

func newSymtabWriter() *symtabWriter {
	return &symtabWriter{syms: []Sym{{}}, strtab: []byte{0}}
}

func (s *symtabWriter) str(name string) uint32 {
	if name == "" {
		return 0
	}
	off := uint32(len(s.strtab))
	s.strtab = append(s.strtab, append([]byte(name), 0)...)
	return off
}

func (s *symtabWriter) add(name string, value uint32, bind elf.SymBind, typ elf.SymType, vis elf.SymVis, shndx uint16) uint32 {
	s.syms = append(s.syms, Sym{
		Name:  s.str(name),
		Val:   value,
		Info:  symInfo(bind, typ),
		Other: uint8(vis),
		Shndx: shndx,
	})
	return uint32(len(s.syms) - 1)
}

func (s *symtabWriter) bytes() []byte {
	buf := &bytes.Buffer{}
	for _, sym := range s.syms {
		binary.Write(buf, binary.LittleEndian, sym)
	}
	return buf.Bytes()
}

func relBytes(rels ...Rel) []byte {
	buf := &bytes.Buffer{}
	for _, r := range rels {
		binary.Write(buf, binary.LittleEndian, r)
	}
	return buf.Bytes()
}

func rel(offset uint32, sym uint32, typ uint32) Rel {
	return Rel{Offset: offset, Info: sym<<8 | typ}
}

func (w *elfWriter) bytes() []byte {
	shstrtab := []byte{0}
	names := make([]uint32, len(w.sections)+1)
	for i, s := range w.sections {
		names[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, append([]byte(s.name), 0)...)
	}
	names[len(w.sections)] = uint32(len(shstrtab))
	shstrtab = append(shstrtab, []byte(".shstrtab\x00")...)

	sections := append(append([]testSection{}, w.sections...),
		testSection{name: ".shstrtab", typ: elf.SHT_STRTAB, data: shstrtab})

	body := &bytes.Buffer{}
	shdrs := []Shdr{{}}
	offset := uint32(EhdrSize)
	for i, s := range sections {
		shdr := Shdr{
			Name:      names[i],
			Type:      uint32(s.typ),
			Flags:     uint32(s.flags),
			Addr:      s.addr,
			Offset:    offset,
			Size:      uint32(len(s.data)),
			Link:      s.link,
			Info:      s.info,
			AddrAlign: 4,
			EntSize:   s.entSize,
		}
		if s.typ == elf.SHT_NOBITS {
			shdr.Size = s.size
		} else {
			body.Write(s.data)
			offset += uint32(len(s.data))
		}
		shdrs = append(shdrs, shdr)
	}

	ehdr := Ehdr{
		Type:      uint16(w.typ),
		Machine:   uint16(w.machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     w.entry,
		ShOff:     offset,
		EhSize:    uint16(EhdrSize),
		ShEntSize: uint16(ShdrSize),
		ShNum:     uint16(len(shdrs)),
		ShStrndx:  uint16(len(shdrs) - 1),
	}
	copy(ehdr.Ident[:], elf.ELFMAG)
	ehdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	ehdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	out := &bytes.Buffer{}
	binary.Write(out, binary.LittleEndian, ehdr)
	out.Write(body.Bytes())
	for _, shdr := range shdrs {
		binary.Write(out, binary.LittleEndian, shdr)
	}
	return out.Bytes()
}
