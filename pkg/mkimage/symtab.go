package mkimage

import (
	"debug/elf"

	"github.com/yasos/elftoyaff/pkg/yaff"
)

type TableSymbol struct {
	Name  string
	Value uint32
	// Section is Unknown when the defining section is not one the loader
	// maps. Undefined symbols carry Code by convention.
	Section  yaff.SectionCode
	Defined  bool
	Absolute bool
}

type SymbolTable struct {
	Symbols []TableSymbol
	index   map[string]int
}

func newSymbolTable() SymbolTable {
	return SymbolTable{index: make(map[string]int)}
}

func (t *SymbolTable) add(s TableSymbol) {
	if _, ok := t.index[s.Name]; !ok {
		t.index[s.Name] = len(t.Symbols)
	}
	t.Symbols = append(t.Symbols, s)
}

// Index returns the position of name in the table.
func (t *SymbolTable) Index(name string) (int, bool) {
	idx, ok := t.index[name]
	return idx, ok
}

func (t *SymbolTable) Len() int {
	return len(t.Symbols)
}

type SymbolTables struct {
	Exported SymbolTable
	Imported SymbolTable
}

// SectionCodeOf maps a section index to the region it belongs to.
func (l *Layout) SectionCodeOf(idx uint16) yaff.SectionCode {
	switch {
	case l.Text.HasSection(idx):
		return yaff.Code
	case l.InitArrays.HasSection(idx):
		return yaff.Init
	case l.Data.HasSection(idx), l.Bss.HasSection(idx):
		return yaff.Data
	}
	return yaff.Unknown
}

// BuildSymbolTables splits the classified symbols into the export and import
// tables, keeping input order.
func BuildSymbolTables(symbols *SymbolSet, layout *Layout) *SymbolTables {
	t := &SymbolTables{
		Exported: newSymbolTable(),
		Imported: newSymbolTable(),
	}

	for _, sym := range symbols.Symbols {
		var table *SymbolTable
		switch sym.Localization {
		case Exported:
			table = &t.Exported
		case Imported:
			table = &t.Imported
		default:
			continue
		}

		entry := TableSymbol{
			Name:     sym.Name,
			Value:    sym.Value,
			Defined:  !sym.IsUndef(),
			Absolute: sym.SectionIndex == uint16(elf.SHN_ABS),
		}
		if entry.Defined {
			entry.Section = layout.SectionCodeOf(sym.SectionIndex)
		} else {
			entry.Section = yaff.Code
		}
		table.add(entry)
	}
	return t
}
