package mkimage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

// ModuleName derives the module name from the input path.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ResolveEntry returns EntryDefault when main is the ELF entry point (or
// there is no entry point), the literal entry address otherwise.
func ResolveEntry(in Input, symbols *SymbolSet) uint32 {
	entry, ok := in.Entry()
	if symbols.MainIsEntry || !ok {
		return yaff.EntryDefault
	}
	return entry
}

// Libraries lists DT_NEEDED names followed by the ones given explicitly.
func Libraries(in Input, extra []string) []string {
	libs := append([]string{}, in.Libraries()...)
	return append(libs, utils.SplitList(extra...)...)
}

// BuildModule runs every analysis pass over in. Each pass finishes before
// the next one starts.
func BuildModule(in Input, opts Options, log *utils.Logger) (*Module, error) {
	moduleType := opts.moduleType(in)

	layout, err := PlanLayout(in, log)
	if err != nil {
		return nil, fmt.Errorf("section validation failed: %w", err)
	}

	symbols, err := ClassifySymbols(in, moduleType, log)
	if err != nil {
		return nil, fmt.Errorf("symbols processing failed: %w", err)
	}
	DumpSymbols(log, symbols)

	relocations, err := ResolveRelocations(in, layout, symbols, log)
	if err != nil {
		return nil, fmt.Errorf("relocation processing failed: %w", err)
	}
	DumpRelocations(log, in, relocations)

	name := opts.ModuleName
	if name == "" {
		name = ModuleName(opts.Input)
	}

	m := &Module{
		Name:        name,
		Type:        moduleType,
		Entry:       ResolveEntry(in, symbols),
		Libraries:   Libraries(in, opts.Libraries),
		Layout:      layout,
		Symbols:     BuildSymbolTables(symbols, layout),
		Relocations: relocations,
	}

	log.Info("Module depends on:")
	for _, lib := range m.Libraries {
		log.Info("  - %s", lib)
	}
	return m, nil
}

// Run converts in and, unless DryRun is set, writes the image to
// opts.Output.
func Run(in Input, opts Options, log *utils.Logger) ([]byte, error) {
	m, err := BuildModule(in, opts, log)
	if err != nil {
		return nil, err
	}

	log.Step("Building Yasiff image")
	image, err := Encode(m)
	if err != nil {
		return nil, fmt.Errorf("image encoding failed: %w", err)
	}

	if opts.DryRun {
		return image, nil
	}

	log.Info("Writing to: %s", opts.Output)
	if err := WriteImage(opts.Output, image); err != nil {
		return nil, err
	}
	return image, nil
}

// WriteImage writes data next to path and renames it into place, so a
// failed write never leaves a partial image behind.
func WriteImage(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
