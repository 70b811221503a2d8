package elfmodel

import (
	"fmt"
	"os"
)

type File struct {
	Name     string
	Contents []byte
}

func NewFile(filename string) (*File, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:     filename,
		Contents: contents,
	}, nil
}

// Open reads and parses an ARM ELF executable or shared object.
func Open(filename string) (*Model, error) {
	file, err := NewFile(filename)
	if err != nil {
		return nil, err
	}

	m, err := Parse(file.Contents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Name, err)
	}
	return m, nil
}
