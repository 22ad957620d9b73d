package pty

import (
	ioctl "github.com/daedaluz/goioctl"
	"unsafe"
)

// ioctl request numbers, trimmed from a full serial-port set down to
// what a pty master/slave pair and its termios state actually need.
// tiocsserial/tiocgserial, the RS485 pair, the break/modem-line
// controls, and the flow/queue controls were all serial-line-only and
// have no home in a pty-based transport; see DESIGN.md.
var (
	tcgets  = uintptr(0x5401)
	tcsets  = uintptr(0x5402)
	tcsetsw = uintptr(0x5403)
	tcsetsf = uintptr(0x5404)

	tiocswinsz = uintptr(0x5414)
	tiocgwinsz = uintptr(0x5413)

	tiocgptn    = ioctl.IOR('T', 0x30, unsafe.Sizeof(uint32(0)))
	tiocsptlck  = ioctl.IOW('T', 0x31, unsafe.Sizeof(int32(0)))
	tiocgptpeer = ioctl.IO('T', 0x41)

	tiocsctty = uintptr(0x540E)
)
