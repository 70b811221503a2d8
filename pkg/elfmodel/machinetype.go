package elfmodel

import (
	"debug/elf"
	"encoding/binary"
)

type MachineType = int8

const (
	MachineTypeNone  MachineType = iota
	MachineTypeARM32 MachineType = iota
)

func GetMachineTypeFromContents(contents []byte) MachineType {
	ft := GetFileType(contents)

	switch ft {
	case FileTypeObject, FileTypeExecutable, FileTypeDso:
		if len(contents) < 20 || contents[elf.EI_DATA] != byte(elf.ELFDATA2LSB) {
			return MachineTypeNone
		}
		machine := binary.LittleEndian.Uint16(contents[18:])
		if machine == uint16(elf.EM_ARM) && contents[elf.EI_CLASS] == byte(elf.ELFCLASS32) {
			return MachineTypeARM32
		}
	}

	return MachineTypeNone
}
