package pty

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// OpenPTYPair allocates a fresh pseudo-terminal: opens /dev/ptmx,
// unlocks it (TIOCSPTLCK), and resolves the slave's path via TIOCGPTN.
// Adapted from an OpenPTY that opened a single master/slave pair for
// one serial device; here every call allocates an independent pair,
// since the process transport needs two: stdin and stdout get
// distinct ptys.
func OpenPTYPair() (master *os.File, slavePath string, err error) {
	f, err := os.OpenFile("/dev/ptmx", os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, "", wrapErr("open /dev/ptmx", err)
	}
	fd := int(f.Fd())

	var lock int32
	if err := ioctl.Ioctl(uintptr(fd), tiocsptlck, uintptr(unsafe.Pointer(&lock))); err != nil {
		f.Close()
		return nil, "", wrapErr("unlock pty", err)
	}

	var n uint32
	if err := ioctl.Ioctl(uintptr(fd), tiocgptn, uintptr(unsafe.Pointer(&n))); err != nil {
		f.Close()
		return nil, "", wrapErr("TIOCGPTN", err)
	}

	return f, fmt.Sprintf("/dev/pts/%d", n), nil
}

// OpenSlave opens the pty slave by path with O_NOCTTY, so acquiring the
// controlling terminal later is an explicit, verifiable step
// rather than an accidental side effect of open(2).
func OpenSlave(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		return nil, wrapErr("open pty slave", err)
	}
	return f, nil
}
