package mkimage

import (
	"debug/elf"

	"github.com/yasos/elftoyaff/pkg/elfmodel"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

// EntrySymbol is the symbol the loader starts a module at by default.
const EntrySymbol = "main"

// Input is the parsed ELF the converter works on. *elfmodel.Model
// implements it.
type Input interface {
	Type() elf.Type
	Entry() (uint32, bool)
	Section(name string) *elfmodel.Section
	SectionName(idx uint16) (string, bool)
	SectionNames() []string
	Symbols() []*elfmodel.Symbol
	Relocations() []elfmodel.Relocation
	Libraries() []string
}

type Options struct {
	Input  string
	Output string

	// ModuleType zero means: take it from the ELF type.
	ModuleType yaff.ModuleType
	ModuleName string
	Libraries  []string

	DryRun  bool
	Verbose bool
	Quiet   bool
	LogFile string
}

func (o *Options) moduleType(in Input) yaff.ModuleType {
	if o.ModuleType != 0 {
		return o.ModuleType
	}
	if in.Type() == elf.ET_DYN {
		return yaff.ModuleTypeSharedLibrary
	}
	return yaff.ModuleTypeExecutable
}
