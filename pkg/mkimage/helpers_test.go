package mkimage

import (
	"debug/elf"
	"encoding/binary"
	"io"

	"github.com/yasos/elftoyaff/pkg/elfmodel"
	"github.com/yasos/elftoyaff/pkg/utils"
)

// testModel builds an elfmodel.Model section by section.
type testModel struct {
	*elfmodel.Model
	next uint16
}

func newTestModel(typ elf.Type) *testModel {
	return &testModel{Model: elfmodel.NewModel(typ), next: 1}
}

func (m *testModel) section(name string, addr uint32, data []byte) uint16 {
	idx := m.next
	m.next++
	m.AddSection(&elfmodel.Section{
		Name:    name,
		Address: addr,
		Size:    uint32(len(data)),
		Data:    data,
		Index:   idx,
		Type:    elf.SHT_PROGBITS,
		Flags:   elf.SHF_ALLOC,
	})
	return idx
}

func (m *testModel) bss(addr, size uint32) uint16 {
	idx := m.next
	m.next++
	m.AddSection(&elfmodel.Section{
		Name:    ".bss",
		Address: addr,
		Size:    size,
		Data:    make([]byte, size),
		Index:   idx,
		Type:    elf.SHT_NOBITS,
		Flags:   elf.SHF_ALLOC | elf.SHF_WRITE,
	})
	return idx
}

func (m *testModel) global(name string, value uint32, shndx uint16) {
	m.AddSymbol(elfmodel.Symbol{
		Name:         name,
		Value:        value,
		Binding:      elf.STB_GLOBAL,
		SectionIndex: shndx,
		Type:         elf.STT_FUNC,
	})
}

func (m *testModel) local(name string, value uint32, shndx uint16) {
	m.AddSymbol(elfmodel.Symbol{
		Name:         name,
		Value:        value,
		Binding:      elf.STB_LOCAL,
		SectionIndex: shndx,
		Type:         elf.STT_OBJECT,
	})
}

func (m *testModel) rel(offset uint32, kind elf.R_ARM, name string, value uint32, shndx uint16) {
	m.AddRelocation(elfmodel.Relocation{
		Offset:       offset,
		Type:         kind,
		SymbolName:   name,
		SymbolValue:  value,
		SectionIndex: shndx,
	})
}

// duplicateInput reports extra symbols on top of the model, which a
// parsed model never does for repeated names.
type duplicateInput struct {
	*elfmodel.Model
	extra []*elfmodel.Symbol
}

func (d *duplicateInput) Symbols() []*elfmodel.Symbol {
	return append(append([]*elfmodel.Symbol{}, d.Model.Symbols()...), d.extra...)
}

func words(vals ...uint32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func testLogger() *utils.Logger {
	return utils.NewLogger(utils.LogSink{W: io.Discard, MaxLevel: utils.LevelVerbose})
}

// minimalExecutable is 16 bytes of code at 0, a .data word at 0x10 holding
// the code address 0x8 and an empty .bss at 0x14. main sits at 0.
func minimalExecutable() (*testModel, uint16, uint16) {
	m := newTestModel(elf.ET_EXEC)
	text := m.section(".text", 0, make([]byte, 16))
	data := m.section(".data", 0x10, words(0x8))
	m.bss(0x14, 0)
	m.global("main", 0, text)
	m.rel(0x10, R_ARM_ABS32, "main", 0, text)
	return m, text, data
}
