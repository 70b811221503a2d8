package mkimage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

// OutputHeader is the fixed header. Its offset fields point at the other
// chunks and are filled in last.
type OutputHeader struct {
	Chunk
	Header yaff.Header
}

func NewOutputHeader() *OutputHeader {
	return &OutputHeader{Chunk: Chunk{Name: "header", Align: yaff.TableAlignment}}
}

func (o *OutputHeader) Kind() int {
	return ChunkKindHeader
}

func (o *OutputHeader) GetSize() int {
	return yaff.HeaderSize
}

func (o *OutputHeader) CopyBuf(img *Image) {
	h := o.Header
	h.ImportedLibrariesOffset = uint16(img.Libraries.Offset)
	h.RelocationsOffset = uint16(img.Relocations.Offset)
	h.ImportedSymbolsOffset = uint16(img.Imported.Offset)
	h.ExportedSymbolsOffset = uint16(img.Exported.Offset)
	h.TextOffset = uint16(img.Payload.Offset)
	utils.Write[yaff.Header](img.Buf[o.Offset:], h)
}

// PayloadChunk carries the section contents the loader copies to memory.
type PayloadChunk struct {
	Chunk
}

func NewPayloadChunk(l *Layout) *PayloadChunk {
	p := &PayloadChunk{Chunk: NewChunk("payload", yaff.PayloadAlignment, nil)}
	for _, r := range l.Payload() {
		p.Content = append(p.Content, r.Data...)
	}
	return p
}

func (p *PayloadChunk) Kind() int {
	return ChunkKindPayload
}

// regionRelative rebases a symbol value onto the start of its region.
func (l *Layout) regionRelative(value uint32, code yaff.SectionCode) uint32 {
	switch code {
	case yaff.Data:
		return value - (l.Text.Size() + l.InitArrays.Size() + l.Plt.Size())
	case yaff.Init:
		return value - l.Text.Size()
	}
	return value
}

func encodeStrings(names []string) []byte {
	buf := make([]byte, 0)
	for _, name := range names {
		buf = append(buf, utils.CString(name, yaff.TableAlignment)...)
	}
	return buf
}

// tag is yaff.Tag with a range check.
func tag(name string, offset uint32, code yaff.SectionCode) (uint32, error) {
	if offset > yaff.MaxTagOffset {
		return 0, &EncodingError{Symbol: name, Reason: fmt.Sprintf("offset %#x does not fit in 30 bits", offset)}
	}
	return yaff.Tag(offset, code), nil
}

func encodeSymbolTable(t *SymbolTable, l *Layout) ([]byte, error) {
	buf := make([]byte, 0)
	for _, sym := range t.Symbols {
		if sym.Absolute {
			return nil, &EncodingError{Symbol: sym.Name, Reason: "absolute (SHN_ABS) symbols cannot be exported or imported"}
		}
		if sym.Section == yaff.Unknown {
			return nil, &EncodingError{Symbol: sym.Name, Reason: "defined in a section the loader does not map"}
		}
		value, err := tag(sym.Name, l.regionRelative(sym.Value, sym.Section), sym.Section)
		if err != nil {
			return nil, err
		}
		buf = binary.LittleEndian.AppendUint32(buf, value)
		buf = append(buf, utils.CString(sym.Name, yaff.TableAlignment)...)
	}
	return buf, nil
}

// DedupSymbolTableRelocations keeps the first relocation per symbol name.
// The loader patches every slot of a symbol from a single lookup.
func DedupSymbolTableRelocations(rels []SymbolTableRelocation) []SymbolTableRelocation {
	seen := utils.NewMapSet[string]()
	out := make([]SymbolTableRelocation, 0, len(rels))
	for _, rel := range rels {
		if seen.Insert(rel.Name) {
			out = append(out, rel)
		}
	}
	return out
}

func encodeRelocationTable(m *Module, symbolTable []SymbolTableRelocation) ([]byte, error) {
	buf := make([]byte, 0)
	put := func(index, offset uint32) {
		buf = binary.LittleEndian.AppendUint32(buf, index)
		buf = binary.LittleEndian.AppendUint32(buf, offset)
	}

	for _, rel := range symbolTable {
		table := &m.Symbols.Imported
		exported := uint32(0)
		if rel.IsExportedSymbol {
			table = &m.Symbols.Exported
			exported = 1
		}
		idx, ok := table.Index(rel.Name)
		if !ok {
			return nil, &EncodingError{Symbol: rel.Name, Reason: "not found in symbol table"}
		}
		if rel.Slot > math.MaxUint32>>1 {
			return nil, &EncodingError{Symbol: rel.Name, Reason: fmt.Sprintf("GOT slot %d does not fit in 31 bits", rel.Slot)}
		}
		put(rel.Slot<<1|exported, uint32(idx))
	}

	for _, rel := range m.Relocations.Local {
		code := m.Layout.SectionCodeOf(rel.SectionIndex)
		if code == yaff.Unknown {
			return nil, &EncodingError{Symbol: rel.Name, Reason: "unknown section for local relocation"}
		}
		index, err := tag(rel.Name, rel.Slot, code)
		if err != nil {
			return nil, err
		}
		put(index, m.Layout.regionRelative(rel.SymbolValue, code))
	}

	for _, rel := range m.Relocations.Data {
		put(rel.FromAddress, rel.EncodedOffset)
	}
	return buf, nil
}

func count16(what string, n int) (uint16, error) {
	if n > math.MaxUint16 {
		return 0, &EncodingError{Reason: fmt.Sprintf("too many %s: %d", what, n)}
	}
	return uint16(n), nil
}
