//go:build unix

package platform

import "syscall"

// MprotectSupported reports whether table images can actually be sealed on
// this platform.
const MprotectSupported = true

// MprotectRX seals a finished table image: read and execute only, writes
// fault from here on.
func MprotectRX(b []byte) error {
	return syscall.Mprotect(b, syscall.PROT_READ|syscall.PROT_EXEC)
}
