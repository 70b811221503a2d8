package mkimage

import "debug/elf"

// ARM relocation kinds the converter understands, numbered as in the ARM
// ELF ABI.
const (
	R_ARM_NONE       elf.R_ARM = 0
	R_ARM_ABS32      elf.R_ARM = 2
	R_ARM_REL32      elf.R_ARM = 3
	R_ARM_THM_CALL   elf.R_ARM = 10
	R_ARM_GLOB_DAT   elf.R_ARM = 21
	R_ARM_JUMP_SLOT  elf.R_ARM = 22
	R_ARM_RELATIVE   elf.R_ARM = 23
	R_ARM_GOT_BREL   elf.R_ARM = 26
	R_ARM_CALL       elf.R_ARM = 28
	R_ARM_JUMP24     elf.R_ARM = 29
	R_ARM_THM_JUMP24 elf.R_ARM = 30
	R_ARM_TARGET1    elf.R_ARM = 38
	R_ARM_PREL31     elf.R_ARM = 42
	R_ARM_THM_JUMP11 elf.R_ARM = 102
	R_ARM_THM_JUMP8  elf.R_ARM = 103
)

var kindNames = map[elf.R_ARM]string{
	R_ARM_NONE:       "R_ARM_NONE",
	R_ARM_ABS32:      "R_ARM_ABS32",
	R_ARM_REL32:      "R_ARM_REL32",
	R_ARM_THM_CALL:   "R_ARM_THM_CALL",
	R_ARM_GLOB_DAT:   "R_ARM_GLOB_DAT",
	R_ARM_JUMP_SLOT:  "R_ARM_JUMP_SLOT",
	R_ARM_RELATIVE:   "R_ARM_RELATIVE",
	R_ARM_GOT_BREL:   "R_ARM_GOT_BREL",
	R_ARM_CALL:       "R_ARM_CALL",
	R_ARM_JUMP24:     "R_ARM_JUMP24",
	R_ARM_THM_JUMP24: "R_ARM_THM_JUMP24",
	R_ARM_TARGET1:    "R_ARM_TARGET1",
	R_ARM_PREL31:     "R_ARM_PREL31",
	R_ARM_THM_JUMP11: "R_ARM_THM_JUMP11",
	R_ARM_THM_JUMP8:  "R_ARM_THM_JUMP8",
}

func kindName(k elf.R_ARM) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return k.String()
}

type relocationAction uint8

const (
	// resolved by the static link; nothing left for the loader
	actionSkip relocationAction = iota
	// GOT slot addressed relative to the GOT base
	actionGotOffset
	// PLT slot or GOT slot of a global
	actionSymbolSlot
	// absolute pointer stored in .data or .init_arrays
	actionAbsolute
	// base-relative word, possibly copied through .got
	actionRelative
)

// actionFor is the single place relocation kinds are mapped to work. The
// set is closed: anything else means the toolchain produced something the
// loader cannot cope with.
func actionFor(k elf.R_ARM) (relocationAction, bool) {
	switch k {
	case R_ARM_CALL, R_ARM_JUMP24, R_ARM_THM_JUMP24, R_ARM_THM_CALL,
		R_ARM_PREL31, R_ARM_TARGET1, R_ARM_REL32, R_ARM_NONE,
		R_ARM_THM_JUMP8, R_ARM_THM_JUMP11:
		return actionSkip, true
	case R_ARM_ABS32:
		return actionAbsolute, true
	case R_ARM_RELATIVE:
		return actionRelative, true
	case R_ARM_GOT_BREL:
		return actionGotOffset, true
	case R_ARM_JUMP_SLOT, R_ARM_GLOB_DAT:
		return actionSymbolSlot, true
	}
	return actionSkip, false
}
