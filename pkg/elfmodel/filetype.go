package elfmodel

import (
	"debug/elf"
	"encoding/binary"
)

type FileType = int8

const (
	FileTypeUnknown    FileType = iota
	FileTypeEmpty      FileType = iota
	FileTypeObject     FileType = iota
	FileTypeExecutable FileType = iota
	FileTypeDso        FileType = iota
)

func GetFileType(contents []byte) FileType {
	if len(contents) == 0 {
		return FileTypeEmpty
	}

	if CheckMagic(contents) && len(contents) >= 18 {
		et := elf.Type(binary.LittleEndian.Uint16(contents[16:]))
		switch et {
		case elf.ET_REL:
			return FileTypeObject
		case elf.ET_EXEC:
			return FileTypeExecutable
		case elf.ET_DYN:
			return FileTypeDso
		}
	}

	return FileTypeUnknown
}
