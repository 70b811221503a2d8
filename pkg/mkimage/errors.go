package mkimage

import (
	"debug/elf"
	"fmt"
	"strings"
)

// LayoutError reports a missing mandatory section or a section placed
// somewhere else than the cumulative layout predicts.
type LayoutError struct {
	Section  string
	Missing  bool
	Expected uint32
	Actual   uint32
	Existing []string
}

func (e *LayoutError) Error() string {
	if e.Missing {
		return fmt.Sprintf("section '%s' not found, existing sections: %s",
			e.Section, strings.Join(e.Existing, ", "))
	}
	return fmt.Sprintf("section '%s' is not placed at %#x, current address is %#x",
		e.Section, e.Expected, e.Actual)
}

type SymbolError struct {
	Name string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("found duplicated symbol: %s", e.Name)
}

type RelocationKindError struct {
	Symbol string
	Kind   elf.R_ARM
}

func (e *RelocationKindError) Error() string {
	return fmt.Sprintf("unknown relocation for '%s': %s", e.Symbol, kindName(e.Kind))
}

type RelocationTargetError struct {
	Symbol string
	Kind   elf.R_ARM
	Offset uint32
	Reason string
}

func (e *RelocationTargetError) Error() string {
	return fmt.Sprintf("%s relocation for '%s' at %#x: %s",
		kindName(e.Kind), e.Symbol, e.Offset, e.Reason)
}

type EncodingError struct {
	Symbol string
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Symbol == "" {
		return e.Reason
	}
	return fmt.Sprintf("symbol '%s': %s", e.Symbol, e.Reason)
}
