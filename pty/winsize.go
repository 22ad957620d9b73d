package pty

import (
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// Winsize mirrors struct winsize (TIOCGWINSZ/TIOCSWINSZ).
type Winsize struct {
	Rows uint16
	Cols uint16
	X    uint16
	Y    uint16
}

func GetWinsize(fd int) (*Winsize, error) {
	w := &Winsize{}
	if err := ioctl.Ioctl(uintptr(fd), tiocgwinsz, uintptr(unsafe.Pointer(w))); err != nil {
		return nil, wrapErr("TIOCGWINSZ", err)
	}
	return w, nil
}

func SetWinsize(fd int, w *Winsize) error {
	if err := ioctl.Ioctl(uintptr(fd), tiocswinsz, uintptr(unsafe.Pointer(w))); err != nil {
		return wrapErr("TIOCSWINSZ", err)
	}
	return nil
}

// CopyWinsize copies the window size from srcFd to dstFd, best-effort:
// a failure to read srcFd's size (e.g. it is not actually a terminal)
// is deliberately suppressed, not reported as an error.
func CopyWinsize(srcFd, dstFd int) error {
	w, err := GetWinsize(srcFd)
	if err != nil {
		return nil
	}
	return SetWinsize(dstFd, w)
}

// IsTTY reports whether fd refers to a terminal.
func IsTTY(fd int) bool {
	_, err := GetAttrIoctlOnly(fd)
	return err == nil
}

// GetAttrIoctlOnly is GetAttr without the Error wrapper, used purely as
// an isatty probe so callers don't have to unwrap pty.Error just to
// check a boolean.
func GetAttrIoctlOnly(fd int) (*Termios, error) {
	t := &Termios{}
	if err := ioctl.Ioctl(uintptr(fd), tcgets, uintptr(unsafe.Pointer(t))); err != nil {
		return nil, err
	}
	return t, nil
}
