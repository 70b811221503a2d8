package elfmodel

import (
	"debug/elf"
	"sort"
)

// Section is an allocated section as the converter sees it. Data of a
// SHT_NOBITS section is zero filled.
type Section struct {
	Name    string
	Address uint32
	Size    uint32
	Data    []byte
	Index   uint16
	Type    elf.SectionType
	Flags   elf.SectionFlag
}

type Symbol struct {
	Name         string
	Value        uint32
	Binding      elf.SymBind
	Visibility   elf.SymVis
	SectionIndex uint16
	Type         elf.SymType
}

func (s *Symbol) IsUndef() bool {
	return s.SectionIndex == uint16(elf.SHN_UNDEF)
}

// Relocation is one REL/RELA entry together with the symbol it references.
// SectionIndex is the section the referenced symbol is defined in.
type Relocation struct {
	Offset       uint32
	Type         elf.R_ARM
	SymbolName   string
	SymbolValue  uint32
	SectionIndex uint16
}

// Model is the parsed view of one ELF input.
type Model struct {
	fileType    elf.Type
	entry       uint32
	hasEntry    bool
	sections    map[uint16]*Section
	byName      map[string]*Section
	symbols     []*Symbol
	symbolIdx   map[string]int
	relocations []Relocation
	libraries   []string
}

func NewModel(fileType elf.Type) *Model {
	return &Model{
		fileType:  fileType,
		sections:  make(map[uint16]*Section),
		byName:    make(map[string]*Section),
		symbolIdx: make(map[string]int),
	}
}

func (m *Model) SetEntry(addr uint32) {
	m.entry = addr
	m.hasEntry = true
}

func (m *Model) AddSection(s *Section) {
	m.sections[s.Index] = s
	if _, ok := m.byName[s.Name]; !ok {
		m.byName[s.Name] = s
	}
}

// AddSymbol keys symbols by name: a later symbol replaces an earlier one
// with the same name but keeps the earlier position.
func (m *Model) AddSymbol(s Symbol) {
	if idx, ok := m.symbolIdx[s.Name]; ok {
		m.symbols[idx] = &s
		return
	}
	m.symbolIdx[s.Name] = len(m.symbols)
	m.symbols = append(m.symbols, &s)
}

func (m *Model) AddRelocation(r Relocation) {
	m.relocations = append(m.relocations, r)
}

func (m *Model) AddLibrary(name string) {
	m.libraries = append(m.libraries, name)
}

func (m *Model) Type() elf.Type {
	return m.fileType
}

func (m *Model) Entry() (uint32, bool) {
	return m.entry, m.hasEntry
}

func (m *Model) Section(name string) *Section {
	return m.byName[name]
}

func (m *Model) SectionName(idx uint16) (string, bool) {
	if s, ok := m.sections[idx]; ok {
		return s.Name, true
	}
	return "", false
}

func (m *Model) SectionNames() []string {
	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Model) Symbols() []*Symbol {
	return m.symbols
}

func (m *Model) Relocations() []Relocation {
	return m.relocations
}

func (m *Model) Libraries() []string {
	return m.libraries
}
