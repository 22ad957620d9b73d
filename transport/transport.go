package transport

import (
	"errors"
	"io"
)

// ErrClosed is returned by any operation attempted on a transport after
// Close.
var ErrClosed = errors.New("transport: already closed")

// IOMode applies per stdin and per stdout of a process transport.
type IOMode int

const (
	ModePipe IOMode = iota
	ModeTty
	ModeTtyRaw
)

func ParseIOMode(s string) (IOMode, error) {
	switch s {
	case "pipe":
		return ModePipe, nil
	case "tty":
		return ModeTty, nil
	case "ttyraw":
		return ModeTtyRaw, nil
	}
	return 0, ErrUnknownMode{s}
}

type ErrUnknownMode struct{ Mode string }

func (e ErrUnknownMode) Error() string { return "transport: unknown io mode " + e.Mode }

// ErrUnexpectedEOF carries the partial bytes already accumulated when a
// read-family operation hits EOF before it was satisfied.
type ErrUnexpectedEOF struct {
	Partial []byte
}

func (e ErrUnexpectedEOF) Error() string {
	return "transport: unexpected EOF after " + itoa(len(e.Partial)) + " bytes"
}

func (e ErrUnexpectedEOF) Unwrap() error { return io.EOF }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Transport is the narrow capability set both backends implement:
// recv, send, send_eof, close, the two raw descriptors, and the
// monotonic EOF flags. The process transport additionally satisfies
// Relayable below; callers type-assert for that when they need it.
type Transport interface {
	// Recv reads up to n bytes. It returns io.EOF (with zero bytes) once
	// the peer has shut down its write side; after that, every
	// subsequent call also returns io.EOF (EOFSeen latches).
	Recv(n int) ([]byte, error)
	// Send writes all of b before returning.
	Send(b []byte) error
	// SendEOF half-closes (socket) or applies the platform-appropriate
	// EOF-to-child policy (process transport) and latches EOFSent.
	SendEOF() error
	Close() error
	RFd() int
	WFd() int
	EOFSeen() bool
	EOFSent() bool
	IsClosed() bool
}

// Relayable is implemented by transports the interactive relay
// knows how to multiplex beyond the plain rfd/stdin pair: a process
// transport whose wfd is itself a readable tty (to pick up echo) needs
// a third fd in the select set.
type Relayable interface {
	Transport
	// WfdIsTTY reports whether wfd should be added to the relay's
	// select set to observe echo.
	WfdIsTTY() bool
	// IsAlive is the child liveness probe; Facade.IsAlive uses it. The
	// relay does not call it.
	IsAlive() bool
}
