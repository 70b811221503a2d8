package mkimage

import (
	"debug/elf"
	"fmt"

	"github.com/yasos/elftoyaff/pkg/elfmodel"
	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

// LocalRelocation is a GOT slot whose content is known at build time and
// only has to be moved to the load address.
type LocalRelocation struct {
	Name         string
	SectionIndex uint16
	Offset       uint32
	SymbolValue  uint32
	Slot         uint32
}

// SymbolTableRelocation is a GOT slot the loader fills by looking the symbol
// up, either in this module's export table or in an imported library.
type SymbolTableRelocation struct {
	Name             string
	Offset           uint32
	Slot             uint32
	SymbolValue      uint32
	IsExportedSymbol bool
}

// DataRelocation is an absolute pointer inside .data or .init_arrays.
// FromAddress is relative to the start of the region holding the pointer,
// EncodedOffset is the section-tagged target.
type DataRelocation struct {
	Name          string
	FromAddress   uint32
	EncodedOffset uint32
}

type RelocationSet struct {
	Local       []LocalRelocation
	SymbolTable []SymbolTableRelocation
	Data        []DataRelocation
}

type relocationResolver struct {
	in      Input
	layout  *Layout
	symbols *SymbolSet
	set     *RelocationSet
	log     *utils.Logger
}

// ResolveRelocations sorts every ELF relocation into local, symbol table or
// data relocations. The first pass handles GOT and PLT slots and rejects
// unsupported kinds; the second one handles pointers stored in data.
func ResolveRelocations(in Input, layout *Layout, symbols *SymbolSet, log *utils.Logger) (*RelocationSet, error) {
	r := &relocationResolver{
		in:      in,
		layout:  layout,
		symbols: symbols,
		set:     &RelocationSet{},
		log:     log,
	}

	log.Step("Processing relocation table")
	for _, rel := range in.Relocations() {
		if err := r.processGotRelocation(rel); err != nil {
			return nil, err
		}
	}

	log.Step("Processing data relocations with init offset: %#x, data offset: %#x",
		layout.InitArrays.Address, layout.Data.Address)
	for _, rel := range in.Relocations() {
		if err := r.processDataRelocation(rel); err != nil {
			return nil, err
		}
	}
	return r.set, nil
}

func (r *relocationResolver) processGotRelocation(rel elfmodel.Relocation) error {
	action, ok := actionFor(rel.Type)
	if !ok {
		return &RelocationKindError{Symbol: rel.SymbolName, Kind: rel.Type}
	}

	switch action {
	case actionGotOffset:
		slot, err := r.gotOffsetSlot(rel)
		if err != nil {
			return err
		}
		l := r.symbols.Localization(rel.SymbolName)
		if l == Internal {
			r.set.Local = append(r.set.Local, LocalRelocation{
				Name:         rel.SymbolName,
				SectionIndex: rel.SectionIndex,
				Offset:       rel.Offset,
				SymbolValue:  rel.SymbolValue,
				Slot:         slot,
			})
			return nil
		}
		r.addSymbolTableRelocation(rel, slot, l)
	case actionSymbolSlot:
		slot, err := r.gotSlot(rel)
		if err != nil {
			return err
		}
		r.addSymbolTableRelocation(rel, slot, r.symbols.Localization(rel.SymbolName))
	}
	return nil
}

func (r *relocationResolver) addSymbolTableRelocation(rel elfmodel.Relocation, slot uint32, l Localization) {
	r.set.SymbolTable = append(r.set.SymbolTable, SymbolTableRelocation{
		Name:             rel.SymbolName,
		Offset:           rel.Offset,
		Slot:             slot,
		SymbolValue:      rel.SymbolValue,
		IsExportedSymbol: l == Exported,
	})
}

// gotOffsetSlot handles R_ARM_GOT_BREL: the word at the relocation site
// already holds GOT(S) + A - GOT_ORG, the byte offset of the slot.
func (r *relocationResolver) gotOffsetSlot(rel elfmodel.Relocation) (uint32, error) {
	word, err := r.layout.WordAt(rel.Offset)
	if err != nil {
		return 0, &RelocationTargetError{Symbol: rel.SymbolName, Kind: rel.Type, Offset: rel.Offset, Reason: err.Error()}
	}
	if word%4 != 0 {
		return 0, &RelocationTargetError{Symbol: rel.SymbolName, Kind: rel.Type, Offset: rel.Offset,
			Reason: fmt.Sprintf("GOT offset %#x is not word aligned", word)}
	}
	return word / 4, nil
}

// gotSlot handles relocations placed on the slot itself.
func (r *relocationResolver) gotSlot(rel elfmodel.Relocation) (uint32, error) {
	got := r.layout.Got.Address
	end := r.layout.GotPlt.End()
	if rel.Offset < got || rel.Offset >= end || (rel.Offset-got)%4 != 0 {
		return 0, &RelocationTargetError{Symbol: rel.SymbolName, Kind: rel.Type, Offset: rel.Offset,
			Reason: fmt.Sprintf("slot is not inside .got/.got.plt [%#x, %#x)", got, end)}
	}
	return (rel.Offset - got) / 4, nil
}

func (r *relocationResolver) processDataRelocation(rel elfmodel.Relocation) error {
	action, _ := actionFor(rel.Type)
	switch action {
	case actionAbsolute:
		return r.processAbsolute(rel)
	case actionRelative:
		return r.processRelative(rel)
	}
	return nil
}

func (r *relocationResolver) targetError(rel elfmodel.Relocation, format string, args ...any) error {
	return &RelocationTargetError{
		Symbol: rel.SymbolName,
		Kind:   rel.Type,
		Offset: rel.Offset,
		Reason: fmt.Sprintf(format, args...),
	}
}

// encodePointer tags an absolute address for the loader: addresses below
// base are code, anything else is relative to base. It fails when the
// offset does not fit the tag.
func encodePointer(stored, base uint32, code yaff.SectionCode) (uint32, bool) {
	offset := stored
	if stored < base {
		code = yaff.Code
	} else {
		offset = stored - base
	}
	if offset > yaff.MaxTagOffset {
		return 0, false
	}
	return yaff.Tag(offset, code), true
}

func (r *relocationResolver) processAbsolute(rel elfmodel.Relocation) error {
	if rel.SectionIndex != uint16(elf.SHN_ABS) {
		if _, ok := r.in.SectionName(rel.SectionIndex); !ok {
			return r.targetError(rel, "relocation towards unsupported section %d", rel.SectionIndex)
		}
	}

	region := &r.layout.Data
	code := yaff.Data
	if rel.Offset < region.Address {
		region = &r.layout.InitArrays
		code = yaff.Init
		if !region.Present() || rel.Offset < region.Address {
			return r.targetError(rel, "only .data and .init_arrays relocations are allowed, relocation inside .text")
		}
	}

	stored, ok := region.Word(rel.Offset)
	if !ok {
		return r.targetError(rel, "address outside of %s", region.Name)
	}
	encoded, ok := encodePointer(stored, region.Address, code)
	if !ok {
		return r.targetError(rel, "pointer %#x is out of range", stored)
	}

	r.set.Data = append(r.set.Data, DataRelocation{
		Name:          rel.SymbolName,
		FromAddress:   rel.Offset - region.Address,
		EncodedOffset: encoded,
	})
	return nil
}

// processRelative handles R_ARM_RELATIVE. The offset is relative to the
// data base and may point past .data into .bss or .got.
func (r *relocationResolver) processRelative(rel elfmodel.Relocation) error {
	data := &r.layout.Data
	if rel.Offset < data.Address {
		return r.targetError(rel, "relative relocation below the data base %#x", data.Address)
	}
	from := rel.Offset - data.Address

	var stored uint32
	var ok bool
	switch {
	case data.Contains(rel.Offset):
		stored, ok = data.Word(rel.Offset)
	case r.layout.Bss.Contains(rel.Offset):
		// TODO: the loader has no fix-up for .bss yet, decide on an encoding with it.
		return r.targetError(rel, "relocation towards .bss is not supported")
	case r.layout.Got.Contains(rel.Offset):
		stored, ok = r.layout.Got.Word(rel.Offset)
	default:
		return r.targetError(rel, "address outside of data section: %#x", from)
	}
	if !ok {
		return r.targetError(rel, "word crosses the end of its section")
	}
	r.log.Verbose("Data relocation: %#x -> %#x original: %#x", from, stored, rel.Offset)
	encoded, ok := encodePointer(stored, data.Address, yaff.Data)
	if !ok {
		return r.targetError(rel, "pointer %#x is out of range", stored)
	}

	r.set.Data = append(r.set.Data, DataRelocation{
		Name:          rel.SymbolName,
		FromAddress:   from,
		EncodedOffset: encoded,
	})
	return nil
}
