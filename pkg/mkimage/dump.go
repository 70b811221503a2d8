package mkimage

import (
	"fmt"

	"github.com/ianlancetaylor/demangle"
	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

func prettyName(name string) string {
	if name == "" {
		return "-local-"
	}
	if pretty, err := demangle.ToString(name); err == nil {
		name = pretty
	}
	if len(name) > 40 {
		name = name[:37] + "..."
	}
	return name
}

func DumpSymbols(log *utils.Logger, set *SymbolSet) {
	if !log.Enabled(utils.LevelVerbose) {
		return
	}

	log.Verbose("Symbol table")
	for _, l := range []Localization{Exported, Imported, Internal} {
		symbols := set.Filter(l)
		if len(symbols) == 0 {
			continue
		}
		log.Verbose("+----------------------------- %-8s ------------------------------+", l)
		log.Verbose("|                   name                   |    address   |    index     |")
		log.Verbose("+------------------------------------------+--------------+--------------|")
		for i, sym := range symbols {
			log.Verbose("| %-40s |  %-10s  |  %-12d|", prettyName(sym.Name), fmt.Sprintf("%#x", sym.Value), i)
		}
		log.Verbose("+------------------------------------------+--------------+--------------|")
	}
}

func DumpRelocations(log *utils.Logger, in Input, set *RelocationSet) {
	if !log.Enabled(utils.LevelVerbose) {
		return
	}

	if len(set.Local) > 0 {
		log.Verbose("+------------------------------------------+-------| local |--------------+-----------------+---------+")
		log.Verbose("|                   name                   |   lot   |       offset       |      value      | section |")
		log.Verbose("+------------------------------------------+---------+--------------------+-----------------+---------+")
		for _, rel := range set.Local {
			section, ok := in.SectionName(rel.SectionIndex)
			if !ok {
				section = "none"
			}
			log.Verbose("| %-40s | %-7d | %-18s | %-15s | %-7s |", prettyName(rel.Name), rel.Slot,
				fmt.Sprintf("%#x", rel.Offset), fmt.Sprintf("%#x", rel.SymbolValue), section)
		}
		log.Verbose("+------------------------------------------+---------+--------------------+-----------------+---------+")
	}

	if len(set.SymbolTable) > 0 {
		log.Verbose("+----------------------------------------| symbol table |-----------------+-----------------+")
		log.Verbose("|                   name                   |   lot   |       offset       |      value      |")
		log.Verbose("+------------------------------------------+---------+--------------------+-----------------+")
		for _, rel := range set.SymbolTable {
			log.Verbose("| %-40s | %-7d | %-18s | %-15s |", prettyName(rel.Name), rel.Slot,
				fmt.Sprintf("%#x", rel.Offset), fmt.Sprintf("%#x", rel.SymbolValue))
		}
		log.Verbose("+------------------------------------------+---------+--------------------+-----------------+")
	}

	if len(set.Data) > 0 {
		log.Verbose("+------------------------------------------|  data   |--------+------------------+--------------+")
		log.Verbose("|                   name                   |    from offset   |     to offset    |   section    |")
		log.Verbose("+------------------------------------------+------------------+------------------+--------------+")
		for _, rel := range set.Data {
			to, code := yaff.Untag(rel.EncodedOffset)
			log.Verbose("| %-40s | %-16s | %-16s | %-12s |", prettyName(rel.Name),
				fmt.Sprintf("%#x", rel.FromAddress), fmt.Sprintf("%#x", to), code)
		}
		log.Verbose("+------------------------------------------+------------------+------------------+--------------+")
	}
}
