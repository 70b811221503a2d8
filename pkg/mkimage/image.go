package mkimage

import (
	"fmt"
	"math"

	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

// Module is the validated result of all analysis passes; Encode turns it
// into bytes without looking at the ELF again.
type Module struct {
	Name      string
	Type      yaff.ModuleType
	Entry     uint32
	Libraries []string

	Layout      *Layout
	Symbols     *SymbolTables
	Relocations *RelocationSet
}

type Image struct {
	Module *Module
	Buf    []byte

	Header      *OutputHeader
	Name        *Chunk
	Libraries   *Chunk
	Relocations *Chunk
	Imported    *Chunk
	Exported    *Chunk
	Payload     *PayloadChunk

	Chunks []Chunker
}

func (img *Image) createChunks() error {
	m := img.Module
	push := func(chunk Chunker) Chunker {
		img.Chunks = append(img.Chunks, chunk)
		return chunk
	}

	symbolTable := DedupSymbolTableRelocations(m.Relocations.SymbolTable)
	relocations, err := encodeRelocationTable(m, symbolTable)
	if err != nil {
		return err
	}
	imported, err := encodeSymbolTable(&m.Symbols.Imported, m.Layout)
	if err != nil {
		return err
	}
	exported, err := encodeSymbolTable(&m.Symbols.Exported, m.Layout)
	if err != nil {
		return err
	}

	img.Header = push(NewOutputHeader()).(*OutputHeader)
	img.Name = push(&Chunk{Name: "name", Align: yaff.TableAlignment,
		Content: utils.CString(m.Name, yaff.TableAlignment)}).(*Chunk)
	img.Libraries = push(&Chunk{Name: "libraries", Align: yaff.TableAlignment,
		Content: encodeStrings(m.Libraries)}).(*Chunk)
	img.Relocations = push(&Chunk{Name: "relocations", Align: yaff.TableAlignment,
		Content: relocations}).(*Chunk)
	img.Imported = push(&Chunk{Name: "imported symbols", Align: yaff.TableAlignment,
		Content: imported}).(*Chunk)
	img.Exported = push(&Chunk{Name: "exported symbols", Align: yaff.TableAlignment,
		Content: exported}).(*Chunk)
	img.Payload = push(NewPayloadChunk(m.Layout)).(*PayloadChunk)

	return img.fillHeader(len(symbolTable))
}

func (img *Image) fillHeader(symbolTableRelocations int) error {
	m := img.Module
	h := &img.Header.Header
	copy(h.Magic[:], yaff.Magic)
	h.ModuleType = m.Type
	h.Arch = yaff.ArchARMv6M
	h.YaffVersion = yaff.Version
	h.CodeLength = m.Layout.Text.Size()
	h.InitLength = m.Layout.InitArrays.Size()
	h.DataLength = m.Layout.Data.Size()
	h.BssLength = m.Layout.Bss.Size()
	h.Entry = m.Entry
	h.Alignment = yaff.TableAlignment
	h.GotLength = m.Layout.Got.Size()
	h.GotPltLength = m.Layout.GotPlt.Size()
	h.PltLength = m.Layout.Plt.Size()

	var err error
	counts := []struct {
		what  string
		n     int
		field *uint16
	}{
		{"libraries", len(m.Libraries), &h.ExternalLibrariesAmount},
		{"symbol table relocations", symbolTableRelocations, &h.SymbolTableRelocationsAmount},
		{"local relocations", len(m.Relocations.Local), &h.LocalRelocationsAmount},
		{"data relocations", len(m.Relocations.Data), &h.DataRelocationsAmount},
		{"exported symbols", m.Symbols.Exported.Len(), &h.ExportedSymbolsAmount},
		{"imported symbols", m.Symbols.Imported.Len(), &h.ImportedSymbolsAmount},
	}
	for _, c := range counts {
		if *c.field, err = count16(c.what, c.n); err != nil {
			return err
		}
	}
	return nil
}

// SetOffsets places the chunks one after another and returns the image size.
func (img *Image) SetOffsets() (int, error) {
	off := 0
	for _, chunk := range img.Chunks {
		off = utils.AlignTo(off, chunk.GetAlign())
		chunk.SetOffset(off)
		off += chunk.GetSize()
	}

	// Header offsets are 16 bits wide.
	for _, chunk := range img.Chunks {
		if chunk.Kind() != ChunkKindHeader && chunk.GetOffset() > math.MaxUint16 {
			return 0, &EncodingError{Reason: fmt.Sprintf("%s starts at %#x, beyond the 16-bit offset range",
				chunk.GetName(), chunk.GetOffset())}
		}
	}
	return off, nil
}

// Encode serializes m. The same module always yields the same bytes.
func Encode(m *Module) ([]byte, error) {
	img := &Image{Module: m}
	if err := img.createChunks(); err != nil {
		return nil, err
	}

	size, err := img.SetOffsets()
	if err != nil {
		return nil, err
	}

	img.Buf = make([]byte, size)
	for _, chunk := range img.Chunks {
		chunk.CopyBuf(img)
	}
	return img.Buf, nil
}
