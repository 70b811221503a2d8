//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package utils

func IsTerminal(fd uintptr) bool {
	return false
}
