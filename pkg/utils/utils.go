package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
)

type Uint interface {
	uint8 | uint16 | uint32 | uint64
}

type Integer interface {
	Uint | int
}

func MustNo(err error) {
	if err != nil {
		Fatal(err)
	}
}

func Fatal(v any) {
	fmt.Fprintln(os.Stderr, "elftoyaff: "+"\033[0;1;31mfatal:\033[0m", fmt.Sprintf("%s", v))
	if os.Getenv("ELFTOYAFF_TRACE") != "" {
		debug.PrintStack()
	}
	os.Exit(1)
}

func AlignTo[T Integer](val, align T) T {
	if align == 0 {
		return val
	}
	return (val + align - 1) & ^(align - 1)
}

// AlignBytes pads data with zeros up to a multiple of align.
func AlignBytes(data []byte, align int) []byte {
	if rem := len(data) % align; rem != 0 {
		return append(data, make([]byte, align-rem)...)
	}
	return data
}

// CString returns s NUL-terminated and zero padded to align.
func CString(s string, align int) []byte {
	return AlignBytes(append([]byte(s), 0), align)
}

func Read[T any](data []byte) (val T) {
	reader := bytes.NewReader(data)
	err := binary.Read(reader, binary.LittleEndian, &val)
	MustNo(err)
	return
}

func Write[T any](data []byte, e T) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, binary.LittleEndian, e)
	MustNo(err)
	copy(data, buf.Bytes())
}

func RemovePrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		s = strings.TrimPrefix(s, prefix)
		return s, true
	}
	return s, false
}

// SplitList splits every value on ',' and ';' and drops blank entries.
func SplitList(values ...string) []string {
	out := make([]string, 0)
	for _, v := range values {
		for _, item := range strings.Split(strings.ReplaceAll(v, ",", ";"), ";") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
