package elfmodel

import (
	"bytes"
	"debug/elf"
	"unsafe"
)

const (
	EhdrSize = int(unsafe.Sizeof(Ehdr{}))
	ShdrSize = int(unsafe.Sizeof(Shdr{}))
	SymSize  = int(unsafe.Sizeof(Sym{}))
	RelSize  = int(unsafe.Sizeof(Rel{}))
	DynSize  = int(unsafe.Sizeof(Dyn{}))
)

type Ehdr struct {
	Ident     [16]uint8
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	PhOff     uint32
	ShOff     uint32
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrndx  uint16
}

type Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	AddrAlign uint32
	EntSize   uint32
}

type Sym struct {
	Name  uint32
	Val   uint32
	Size  uint32
	Info  uint8
	Other uint8
	Shndx uint16
}

func (s *Sym) Type() uint8 {
	return s.Info & 0xf
}

func (s *Sym) Bind() uint8 {
	return s.Info >> 4
}

func (s *Sym) StVisibility() uint8 {
	return s.Other & 0b11
}

type Rel struct {
	Offset uint32
	Info   uint32
}

func (r *Rel) Type() uint32 {
	return r.Info & 0xff
}

func (r *Rel) Sym() uint32 {
	return r.Info >> 8
}

type Dyn struct {
	Tag int32
	Val uint32
}

func CheckMagic(contents []byte) bool {
	return bytes.HasPrefix(contents, []byte(elf.ELFMAG))
}

func getName(strTab []byte, offset uint32) string {
	if int(offset) >= len(strTab) {
		return ""
	}
	length := bytes.IndexByte(strTab[offset:], 0)
	if length < 0 {
		return string(strTab[offset:])
	}
	return string(strTab[offset : offset+uint32(length)])
}
