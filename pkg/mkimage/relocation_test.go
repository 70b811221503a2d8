package mkimage

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

func resolve(t *testing.T, m *testModel, moduleType yaff.ModuleType) (*RelocationSet, error) {
	t.Helper()
	l, err := PlanLayout(m, testLogger())
	require.NoError(t, err)
	set, err := ClassifySymbols(m, moduleType, testLogger())
	require.NoError(t, err)
	return ResolveRelocations(m, l, set, testLogger())
}

func TestResolveAbsoluteInData(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	text := m.section(".text", 0, make([]byte, 16))
	data := m.section(".data", 0x10, words(0x8, 0x14))
	m.bss(0x18, 0)
	m.rel(0x10, R_ARM_ABS32, "func", 0x8, text)
	m.rel(0x14, R_ARM_ABS32, "var", 0x14, data)

	set, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	require.NoError(t, err)
	assert.Equal(t, []DataRelocation{
		{Name: "func", FromAddress: 0, EncodedOffset: yaff.Tag(0x8, yaff.Code)},
		{Name: "var", FromAddress: 4, EncodedOffset: yaff.Tag(0x4, yaff.Data)},
	}, set.Data)
	assert.Empty(t, set.Local)
	assert.Empty(t, set.SymbolTable)
}

func TestResolveAbsoluteInInitArrays(t *testing.T) {
	m := newTestModel(elf.ET_EXEC)
	text := m.section(".text", 0, make([]byte, 16))
	m.section(".init_arrays", 0x10, words(0x9))
	m.section(".data", 0x14, words(0))
	m.bss(0x18, 0)
	m.rel(0x10, R_ARM_ABS32, "ctor", 0x9, text)

	set, err := resolve(t, m, yaff.ModuleTypeExecutable)
	require.NoError(t, err)
	require.Len(t, set.Data, 1)
	assert.Equal(t, uint32(0), set.Data[0].FromAddress)
	assert.Equal(t, yaff.Tag(0x9, yaff.Code), set.Data[0].EncodedOffset)
}

func TestResolveAbsoluteAgainstAbsoluteSymbol(t *testing.T) {
	m, _, _ := minimalExecutable()
	m.rel(0x10, R_ARM_ABS32, "CONST", 0x8, uint16(elf.SHN_ABS))

	set, err := resolve(t, m, yaff.ModuleTypeExecutable)
	require.NoError(t, err)
	assert.Len(t, set.Data, 2)
}

func TestResolveAbsoluteInText(t *testing.T) {
	m, text, _ := minimalExecutable()
	m.rel(0x4, R_ARM_ABS32, "main", 0, text)

	_, err := resolve(t, m, yaff.ModuleTypeExecutable)
	var targetErr *RelocationTargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Equal(t, uint32(0x4), targetErr.Offset)
	assert.Equal(t, R_ARM_ABS32, targetErr.Kind)
	assert.Contains(t, err.Error(), "R_ARM_ABS32")
}

func TestResolveAbsoluteUnknownSection(t *testing.T) {
	m, _, _ := minimalExecutable()
	m.rel(0x10, R_ARM_ABS32, "odd", 0, 42)

	_, err := resolve(t, m, yaff.ModuleTypeExecutable)
	var targetErr *RelocationTargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Equal(t, "odd", targetErr.Symbol)
}

func TestResolveRelative(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	m.section(".text", 0, make([]byte, 16))
	m.section(".data", 0x10, words(0x4))
	m.bss(0x14, 4)
	m.section(".got", 0x18, words(0x14, 0x12))
	m.rel(0x10, R_ARM_RELATIVE, "", 0, 0)
	m.rel(0x1c, R_ARM_RELATIVE, "", 0, 0)

	set, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	require.NoError(t, err)
	assert.Equal(t, []DataRelocation{
		{FromAddress: 0, EncodedOffset: yaff.Tag(0x4, yaff.Code)},
		{FromAddress: 0xc, EncodedOffset: yaff.Tag(0x2, yaff.Data)},
	}, set.Data)
}

func TestResolveRelativeInBss(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	m.section(".text", 0, make([]byte, 16))
	m.section(".data", 0x10, words(0x4))
	m.bss(0x14, 8)
	m.rel(0x18, R_ARM_RELATIVE, "", 0, 0)

	_, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	var targetErr *RelocationTargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Contains(t, targetErr.Reason, ".bss")
}

func TestResolveRelativeOutside(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	m.section(".text", 0, make([]byte, 16))
	m.section(".data", 0x10, words(0x4))
	m.bss(0x14, 0)
	m.rel(0x4, R_ARM_RELATIVE, "", 0, 0)

	_, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	var targetErr *RelocationTargetError
	assert.ErrorAs(t, err, &targetErr)
}

func TestResolveGotOffset(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	text := m.section(".text", 0, words(0, 4, 8, 0))
	data := m.section(".data", 0x10, words(0))
	m.bss(0x14, 0)
	m.section(".got", 0x14, words(0, 0, 0))
	m.local("counter", 0x10, data)
	m.global("puts", 0, uint16(elf.SHN_UNDEF))
	m.global("api", 0x2, text)
	m.rel(0x4, R_ARM_GOT_BREL, "counter", 0x10, data)
	m.rel(0x8, R_ARM_GOT_BREL, "puts", 0, uint16(elf.SHN_UNDEF))
	m.rel(0xc, R_ARM_GOT_BREL, "api", 0x2, text)

	set, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	require.NoError(t, err)

	assert.Equal(t, []LocalRelocation{
		{Name: "counter", SectionIndex: data, Offset: 0x4, SymbolValue: 0x10, Slot: 1},
	}, set.Local)
	assert.Equal(t, []SymbolTableRelocation{
		{Name: "puts", Offset: 0x8, Slot: 2},
		{Name: "api", Offset: 0xc, Slot: 0, SymbolValue: 0x2, IsExportedSymbol: true},
	}, set.SymbolTable)
}

func TestResolveGotOffsetMisaligned(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	m.section(".text", 0, words(0, 6))
	m.section(".data", 0x8, words(0))
	m.bss(0xc, 0)
	m.rel(0x4, R_ARM_GOT_BREL, "x", 0, 0)

	_, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	var targetErr *RelocationTargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Contains(t, targetErr.Reason, "aligned")
}

func TestResolveSymbolSlots(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	m.section(".text", 0, make([]byte, 16))
	m.section(".data", 0x10, words(0))
	m.bss(0x14, 0)
	m.section(".got", 0x14, words(0, 0))
	m.section(".got.plt", 0x1c, words(0, 0))
	m.global("malloc", 0, uint16(elf.SHN_UNDEF))
	m.global("errno", 0, uint16(elf.SHN_UNDEF))
	m.rel(0x20, R_ARM_JUMP_SLOT, "malloc", 0, uint16(elf.SHN_UNDEF))
	m.rel(0x18, R_ARM_GLOB_DAT, "errno", 0, uint16(elf.SHN_UNDEF))

	set, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	require.NoError(t, err)
	assert.Equal(t, []SymbolTableRelocation{
		{Name: "malloc", Offset: 0x20, Slot: 3},
		{Name: "errno", Offset: 0x18, Slot: 1},
	}, set.SymbolTable)

	m.rel(0x24, R_ARM_JUMP_SLOT, "malloc", 0, uint16(elf.SHN_UNDEF))
	_, err = resolve(t, m, yaff.ModuleTypeSharedLibrary)
	var targetErr *RelocationTargetError
	assert.ErrorAs(t, err, &targetErr)
}

func TestResolveSkipsStaticallyResolvedKinds(t *testing.T) {
	m, text, _ := minimalExecutable()
	for _, kind := range []elf.R_ARM{R_ARM_CALL, R_ARM_JUMP24, R_ARM_THM_JUMP24, R_ARM_THM_CALL,
		R_ARM_PREL31, R_ARM_TARGET1, R_ARM_REL32, R_ARM_NONE, R_ARM_THM_JUMP8, R_ARM_THM_JUMP11} {
		m.rel(0x4, kind, "main", 0, text)
	}

	set, err := resolve(t, m, yaff.ModuleTypeExecutable)
	require.NoError(t, err)
	assert.Len(t, set.Data, 1)
	assert.Empty(t, set.Local)
	assert.Empty(t, set.SymbolTable)
}

func TestResolveUnknownKind(t *testing.T) {
	m, text, _ := minimalExecutable()
	m.rel(0x4, elf.R_ARM_ABS16, "main", 0, text)

	_, err := resolve(t, m, yaff.ModuleTypeExecutable)
	var kindErr *RelocationKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, "main", kindErr.Symbol)
	assert.Equal(t, elf.R_ARM_ABS16, kindErr.Kind)
	assert.Contains(t, err.Error(), "R_ARM_ABS16")
}

func TestEncodePointer(t *testing.T) {
	cases := []struct {
		stored uint32
		code   yaff.SectionCode
		want   uint32
	}{
		{0x8, yaff.Data, yaff.Tag(0x8, yaff.Code)},
		{0x10, yaff.Data, yaff.Tag(0x0, yaff.Data)},
		{0x14, yaff.Init, yaff.Tag(0x4, yaff.Init)},
	}
	for _, c := range cases {
		got, ok := encodePointer(c.stored, 0x10, c.code)
		assert.True(t, ok)
		assert.Equal(t, c.want, got)
	}

	_, ok := encodePointer(0x10+yaff.MaxTagOffset+1, 0x10, yaff.Data)
	assert.False(t, ok)
}

func TestResolvePointerOutOfRange(t *testing.T) {
	m := newTestModel(elf.ET_DYN)
	text := m.section(".text", 0, make([]byte, 16))
	m.section(".data", 0x10, words(0xf0000000))
	m.bss(0x14, 0)
	m.rel(0x10, R_ARM_ABS32, "far", 0, text)

	_, err := resolve(t, m, yaff.ModuleTypeSharedLibrary)
	var targetErr *RelocationTargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Contains(t, targetErr.Reason, "out of range")
}
