package main

import (
	"fmt"
	"io"
	"os"

	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: readyaff <file>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		utils.Fatal(fmt.Sprintf("cannot open file: %s", os.Args[1]))
	}

	f, err := yaff.Decode(data)
	utils.MustNo(err)
	printHeader(os.Stdout, f)
}

func archName(arch uint16) string {
	if arch == yaff.ArchARMv6M {
		return "armv6m"
	}
	return "unknown"
}

func printHeader(w io.Writer, f *yaff.File) {
	h := &f.Header
	fmt.Fprintf(w, "YAFF Header:\n")
	fmt.Fprintf(w, "  Magic:         %s\n", string(h.Magic[:]))
	fmt.Fprintf(w, "  Type:          %s\n", h.ModuleType)
	fmt.Fprintf(w, "  Arch:          %s\n", archName(h.Arch))
	fmt.Fprintf(w, "  Alignment:     %d\n", h.Alignment)
	fmt.Fprintf(w, "  Name:          %s\n", f.Name)
	fmt.Fprintf(w, "  Version:       %d.%d\n", h.VersionMajor, h.VersionMinor)
	fmt.Fprintf(w, "  Sections:\n")
	fmt.Fprintf(w, "   .text len:    %x\n", h.CodeLength)
	fmt.Fprintf(w, "   .init len:    %x\n", h.InitLength)
	fmt.Fprintf(w, "   .plt len:     %x\n", h.PltLength)
	fmt.Fprintf(w, "   .data len:    %x\n", h.DataLength)
	fmt.Fprintf(w, "   .bss len:     %x\n", h.BssLength)
	fmt.Fprintf(w, "   .got len:     %x\n", h.GotLength)
	fmt.Fprintf(w, "   .got.plt len: %x\n", h.GotPltLength)
	fmt.Fprintf(w, "  Entry:         %x\n", h.Entry)
	fmt.Fprintf(w, "  Number of imported libraries:    %d\n", h.ExternalLibrariesAmount)
	for _, lib := range f.Libraries {
		fmt.Fprintf(w, "    - %s\n", lib)
	}
	fmt.Fprintf(w, "  Text and data separation:        %d\n", h.TextAndDataSeparation)
	fmt.Fprintf(w, "  Symbol table relocations amount: %d\n", h.SymbolTableRelocationsAmount)
	fmt.Fprintf(w, "  Local relocations amount:        %d\n", h.LocalRelocationsAmount)
	fmt.Fprintf(w, "  Data relocations amount:         %d\n", h.DataRelocationsAmount)
	fmt.Fprintf(w, "  Exported symbols amount:         %d\n", h.ExportedSymbolsAmount)
	fmt.Fprintf(w, "  Imported symbols amount:         %d\n", h.ImportedSymbolsAmount)
	fmt.Fprintf(w, "  Offsets:\n")
	fmt.Fprintf(w, "    .text:               %x\n", h.TextOffset)
	fmt.Fprintf(w, "    .arch_section:       %x\n", h.ArchSectionOffset)
	fmt.Fprintf(w, "    .imported_libraries: %x\n", h.ImportedLibrariesOffset)
	fmt.Fprintf(w, "    .relocations:        %x\n", h.RelocationsOffset)
	fmt.Fprintf(w, "    .imported_symbols:   %x\n", h.ImportedSymbolsOffset)
	fmt.Fprintf(w, "    .exported_symbols:   %x\n", h.ExportedSymbolsOffset)
}
