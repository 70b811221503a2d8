package elfmodel

import (
	"debug/elf"
	"errors"
	"fmt"

	"github.com/yasos/elftoyaff/pkg/utils"
)

var ErrNotElf = errors.New("not an ELF file")

// ErrRela rejects SHT_RELA against loaded sections: addends are only read
// from the relocation site.
var ErrRela = errors.New("SHT_RELA relocations are not supported")

// InputFile holds the raw tables of an ELF32 image while it is turned into
// a Model.
type InputFile struct {
	Contents    []byte
	Ehdr        Ehdr
	ElfSections []Shdr
	ShStrtab    []byte

	symtabs map[uint32][]Sym
}

func NewInputFile(contents []byte) (*InputFile, error) {
	if len(contents) < EhdrSize {
		return nil, errors.New("file too small")
	}
	if !CheckMagic(contents) {
		return nil, ErrNotElf
	}
	if GetMachineTypeFromContents(contents) != MachineTypeARM32 {
		return nil, errors.New("not a 32-bit little-endian ARM ELF")
	}

	f := &InputFile{Contents: contents, symtabs: make(map[uint32][]Sym)}
	f.Ehdr = utils.Read[Ehdr](contents)

	if f.Ehdr.ShOff == 0 {
		return nil, errors.New("no section header table")
	}
	if uint64(f.Ehdr.ShOff)+uint64(ShdrSize) > uint64(len(contents)) {
		return nil, fmt.Errorf("section header table is out of range: %#x", f.Ehdr.ShOff)
	}

	contents = contents[f.Ehdr.ShOff:]
	shdr := utils.Read[Shdr](contents)

	numSections := int64(f.Ehdr.ShNum)
	if numSections == 0 {
		numSections = int64(shdr.Size)
	}
	if int64(len(contents)) < numSections*int64(ShdrSize) {
		return nil, fmt.Errorf("section header table truncated: %d entries", numSections)
	}

	f.ElfSections = []Shdr{shdr}
	for numSections > 1 {
		contents = contents[ShdrSize:]
		f.ElfSections = append(f.ElfSections, utils.Read[Shdr](contents))
		numSections--
	}

	shstrtabIdx := int64(f.Ehdr.ShStrndx)
	if f.Ehdr.ShStrndx == uint16(elf.SHN_XINDEX) {
		shstrtabIdx = int64(shdr.Link)
	}

	var err error
	if f.ShStrtab, err = f.GetBytesFromIdx(shstrtabIdx); err != nil {
		return nil, fmt.Errorf("section name table: %w", err)
	}
	return f, nil
}

func (f *InputFile) GetBytesFromShdr(s *Shdr) ([]byte, error) {
	if elf.SectionType(s.Type) == elf.SHT_NOBITS {
		return make([]byte, s.Size), nil
	}

	end := uint64(s.Offset) + uint64(s.Size)
	if uint64(len(f.Contents)) < end {
		return nil, fmt.Errorf("section header is out of range: %#x", s.Offset)
	}

	return f.Contents[s.Offset:end], nil
}

func (f *InputFile) GetBytesFromIdx(idx int64) ([]byte, error) {
	if idx < 0 || idx >= int64(len(f.ElfSections)) {
		return nil, fmt.Errorf("section index out of range: %d", idx)
	}
	return f.GetBytesFromShdr(&f.ElfSections[idx])
}

func (f *InputFile) SectionName(idx int) string {
	return getName(f.ShStrtab, f.ElfSections[idx].Name)
}

func (f *InputFile) FindSection(ty elf.SectionType) int {
	for i := 0; i < len(f.ElfSections); i++ {
		if elf.SectionType(f.ElfSections[i].Type) == ty {
			return i
		}
	}
	return -1
}

// ElfSyms decodes the symbol table at idx. Tables are decoded once.
func (f *InputFile) ElfSyms(idx uint32) ([]Sym, error) {
	if syms, ok := f.symtabs[idx]; ok {
		return syms, nil
	}

	bs, err := f.GetBytesFromIdx(int64(idx))
	if err != nil {
		return nil, err
	}
	nums := len(bs) / SymSize
	syms := make([]Sym, 0, nums)
	for nums > 0 {
		syms = append(syms, utils.Read[Sym](bs))
		bs = bs[SymSize:]
		nums--
	}

	f.symtabs[idx] = syms
	return syms, nil
}

func (f *InputFile) symtabShndx(symtab int) []uint32 {
	for i := range f.ElfSections {
		shdr := &f.ElfSections[i]
		if elf.SectionType(shdr.Type) != elf.SHT_SYMTAB_SHNDX || int(shdr.Link) != symtab {
			continue
		}
		bs, err := f.GetBytesFromShdr(shdr)
		if err != nil {
			return nil
		}
		out := make([]uint32, 0, len(bs)/4)
		for len(bs) >= 4 {
			out = append(out, utils.Read[uint32](bs))
			bs = bs[4:]
		}
		return out
	}
	return nil
}

// Parse builds a Model from the contents of an ELF32 ARM image.
func Parse(contents []byte) (*Model, error) {
	f, err := NewInputFile(contents)
	if err != nil {
		return nil, err
	}

	m := NewModel(elf.Type(f.Ehdr.Type))
	if m.Type() == elf.ET_EXEC || f.Ehdr.Entry != 0 {
		m.SetEntry(f.Ehdr.Entry)
	}

	if err := f.initializeSections(m); err != nil {
		return nil, err
	}
	if err := f.initializeSymbols(m); err != nil {
		return nil, err
	}
	if err := f.initializeRelocations(m); err != nil {
		return nil, err
	}
	if err := f.initializeLibraries(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *InputFile) initializeSections(m *Model) error {
	for i := 1; i < len(f.ElfSections); i++ {
		shdr := &f.ElfSections[i]
		switch elf.SectionType(shdr.Type) {
		case elf.SHT_NULL, elf.SHT_SYMTAB, elf.SHT_STRTAB, elf.SHT_REL, elf.SHT_RELA,
			elf.SHT_SYMTAB_SHNDX, elf.SHT_GROUP:
			continue
		}

		name := f.SectionName(i)
		if name == "" {
			continue
		}

		data, err := f.GetBytesFromShdr(shdr)
		if err != nil {
			return fmt.Errorf("section %s: %w", name, err)
		}

		m.AddSection(&Section{
			Name:    name,
			Address: shdr.Addr,
			Size:    shdr.Size,
			Data:    data,
			Index:   uint16(i),
			Type:    elf.SectionType(shdr.Type),
			Flags:   elf.SectionFlag(shdr.Flags),
		})
	}
	return nil
}

func (f *InputFile) initializeSymbols(m *Model) error {
	idx := f.FindSection(elf.SHT_SYMTAB)
	if idx < 0 {
		idx = f.FindSection(elf.SHT_DYNSYM)
	}
	if idx < 0 {
		return nil
	}

	syms, err := f.ElfSyms(uint32(idx))
	if err != nil {
		return fmt.Errorf("symbol table: %w", err)
	}
	strtab, err := f.GetBytesFromIdx(int64(f.ElfSections[idx].Link))
	if err != nil {
		return fmt.Errorf("symbol string table: %w", err)
	}
	shndx := f.symtabShndx(idx)

	for i := 1; i < len(syms); i++ {
		esym := &syms[i]
		name := getName(strtab, esym.Name)
		if name == "" {
			continue
		}

		section := esym.Shndx
		if section == uint16(elf.SHN_XINDEX) && i < len(shndx) {
			section = uint16(shndx[i])
		}

		m.AddSymbol(Symbol{
			Name:         name,
			Value:        esym.Val,
			Binding:      elf.SymBind(esym.Bind()),
			Visibility:   elf.SymVis(esym.StVisibility()),
			SectionIndex: section,
			Type:         elf.SymType(esym.Type()),
		})
	}
	return nil
}

func (f *InputFile) initializeRelocations(m *Model) error {
	for i := 1; i < len(f.ElfSections); i++ {
		shdr := &f.ElfSections[i]
		typ := elf.SectionType(shdr.Type)
		if typ != elf.SHT_REL && typ != elf.SHT_RELA {
			continue
		}

		// Relocations of debug info and other non-loaded sections are
		// irrelevant to the loader.
		if shdr.Info != 0 {
			if shdr.Info >= uint32(len(f.ElfSections)) {
				return fmt.Errorf("%s: invalid relocated section index %d", f.SectionName(i), shdr.Info)
			}
			if elf.SectionFlag(f.ElfSections[shdr.Info].Flags)&elf.SHF_ALLOC == 0 {
				continue
			}
		}
		if typ == elf.SHT_RELA {
			return fmt.Errorf("%s: %w", f.SectionName(i), ErrRela)
		}

		bs, err := f.GetBytesFromShdr(shdr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.SectionName(i), err)
		}

		var syms []Sym
		var strtab []byte
		if shdr.Link != 0 {
			if syms, err = f.ElfSyms(shdr.Link); err != nil {
				return fmt.Errorf("%s: %w", f.SectionName(i), err)
			}
			if int(shdr.Link) < len(f.ElfSections) {
				strtab, _ = f.GetBytesFromIdx(int64(f.ElfSections[shdr.Link].Link))
			}
		}

		for ; len(bs) >= RelSize; bs = bs[RelSize:] {
			rel := utils.Read[Rel](bs)
			reloc := Relocation{
				Offset: rel.Offset,
				Type:   elf.R_ARM(rel.Type()),
			}

			if symIdx := rel.Sym(); symIdx != 0 {
				if int(symIdx) >= len(syms) {
					return fmt.Errorf("%s: relocation at %#x references symbol %d out of range",
						f.SectionName(i), rel.Offset, symIdx)
				}
				esym := &syms[symIdx]
				reloc.SymbolName = getName(strtab, esym.Name)
				reloc.SymbolValue = esym.Val
				reloc.SectionIndex = esym.Shndx
			}

			m.AddRelocation(reloc)
		}
	}
	return nil
}

func (f *InputFile) initializeLibraries(m *Model) error {
	idx := f.FindSection(elf.SHT_DYNAMIC)
	if idx < 0 {
		return nil
	}

	bs, err := f.GetBytesFromIdx(int64(idx))
	if err != nil {
		return fmt.Errorf("dynamic section: %w", err)
	}
	strtab, err := f.GetBytesFromIdx(int64(f.ElfSections[idx].Link))
	if err != nil {
		return fmt.Errorf("dynamic string table: %w", err)
	}

	for ; len(bs) >= DynSize; bs = bs[DynSize:] {
		dyn := utils.Read[Dyn](bs)
		if elf.DynTag(dyn.Tag) == elf.DT_NULL {
			break
		}
		if elf.DynTag(dyn.Tag) == elf.DT_NEEDED {
			m.AddLibrary(getName(strtab, dyn.Val))
		}
	}
	return nil
}
