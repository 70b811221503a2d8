package mkimage

import (
	"debug/elf"

	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

type Localization uint8

const (
	Internal Localization = iota
	Exported
	Imported
)

func (l Localization) String() string {
	switch l {
	case Exported:
		return "exported"
	case Imported:
		return "imported"
	}
	return "internal"
}

type Symbol struct {
	Name         string
	Value        uint32
	Binding      elf.SymBind
	Visibility   elf.SymVis
	SectionIndex uint16
	Type         elf.SymType
	Localization Localization
}

func (s *Symbol) IsUndef() bool {
	return s.SectionIndex == uint16(elf.SHN_UNDEF)
}

// IsVisible reports a global or weak symbol that is not hidden.
func (s *Symbol) IsVisible() bool {
	return (s.Binding == elf.STB_GLOBAL || s.Binding == elf.STB_WEAK) &&
		s.Visibility != elf.STV_HIDDEN
}

// SymbolSet holds the classified symbols in input order.
type SymbolSet struct {
	Symbols     []*Symbol
	MainIsEntry bool

	byName map[string]*Symbol
}

func (s *SymbolSet) Lookup(name string) (*Symbol, bool) {
	sym, ok := s.byName[name]
	return sym, ok
}

// Localization of name. Names missing from the set are local labels or
// section symbols, so they are internal.
func (s *SymbolSet) Localization(name string) Localization {
	if sym, ok := s.Lookup(name); ok {
		return sym.Localization
	}
	return Internal
}

func (s *SymbolSet) Filter(l Localization) []*Symbol {
	out := make([]*Symbol, 0)
	for _, sym := range s.Symbols {
		if sym.Localization == l {
			out = append(out, sym)
		}
	}
	return out
}

func isMappingSymbol(name string) bool {
	switch name {
	case "$t", "$d", "$a":
		return true
	}
	return len(name) > 2 && name[0] == '$' && name[2] == '.' &&
		(name[1] == 't' || name[1] == 'd' || name[1] == 'a')
}

// ClassifySymbols decides for every named symbol whether the loader sees
// it as exported, imported or not at all. Executables export only their
// entry point.
func ClassifySymbols(in Input, moduleType yaff.ModuleType, log *utils.Logger) (*SymbolSet, error) {
	log.Step("Processing symbol table")
	set := &SymbolSet{byName: make(map[string]*Symbol)}

	var mainValue uint32
	hasMain := false
	for _, esym := range in.Symbols() {
		if esym.Name == EntrySymbol {
			mainValue, hasMain = esym.Value, true
		}
	}
	if entry, ok := in.Entry(); ok && hasMain {
		set.MainIsEntry = entry&^1 == mainValue&^1
	}

	for _, esym := range in.Symbols() {
		if esym.Name == "" || isMappingSymbol(esym.Name) {
			continue
		}
		if esym.Type == elf.STT_FILE || esym.Type == elf.STT_SECTION {
			continue
		}
		if _, ok := set.Lookup(esym.Name); ok {
			return nil, &SymbolError{Name: esym.Name}
		}

		sym := &Symbol{
			Name:         esym.Name,
			Value:        esym.Value,
			Binding:      esym.Binding,
			Visibility:   esym.Visibility,
			SectionIndex: esym.SectionIndex,
			Type:         esym.Type,
		}
		sym.Localization = classify(sym, moduleType, set.MainIsEntry)

		set.byName[sym.Name] = sym
		set.Symbols = append(set.Symbols, sym)
	}
	return set, nil
}

func classify(sym *Symbol, moduleType yaff.ModuleType, mainIsEntry bool) Localization {
	isMain := sym.Name == EntrySymbol
	if !sym.IsVisible() && !isMain {
		return Internal
	}

	if sym.IsUndef() {
		return Imported
	}

	if moduleType == yaff.ModuleTypeExecutable {
		if isMain && mainIsEntry {
			return Exported
		}
		return Internal
	}
	return Exported
}
