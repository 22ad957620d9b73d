// Package zio provides a unified, buffered, byte-oriented client facade
// over a pty/pipe-attached child process or a TCP socket: construct
// from a Target, then read/write/interact without caring which backend
// is underneath.
package zio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cr4sh/zio/pattern"
	"github.com/cr4sh/zio/transform"
	"github.com/cr4sh/zio/transport"
)

const (
	defaultTimeout = 16 * time.Second
	recvChunkSize  = 1536
)

// ErrUnexpectedEOF is returned by read-family operations that hit EOF
// before their condition was satisfied. Partial carries whatever bytes
// had already been accumulated.
type ErrUnexpectedEOF struct {
	Partial []byte
}

func (e *ErrUnexpectedEOF) Error() string {
	return fmt.Sprintf("zio: unexpected EOF after %d bytes", len(e.Partial))
}

func (e *ErrUnexpectedEOF) Unwrap() error { return io.EOF }

// Facade is the client-facing handle: a buffered reader plus the
// transform/log pipeline, driving either transport backend.
type Facade struct {
	tr     transport.Transport
	buffer []byte

	timeout time.Duration

	readTransform  transform.Func
	writeTransform transform.Func
	printRead      bool
	printWrite     bool
	logSink        io.Writer
	inputDecode    transform.Func

	closeDelay time.Duration
}

// Option configures a Facade at construction time.
type Option func(*Facade)

func WithTimeout(d time.Duration) Option {
	return func(f *Facade) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithReadTransform(t transform.Func) Option {
	return func(f *Facade) { f.readTransform = t }
}

func WithWriteTransform(t transform.Func) Option {
	return func(f *Facade) { f.writeTransform = t }
}

// WithPrintRead toggles whether received bytes are logged. This is
// deliberately a separate knob from the read transform, not a boolean
// derived from it: setting it to false logs nothing, the same effect
// as WithReadTransform(transform.None), while the configured transform
// is kept for when printing is enabled again.
func WithPrintRead(enabled bool) Option {
	return func(f *Facade) { f.printRead = enabled }
}

func WithPrintWrite(enabled bool) Option {
	return func(f *Facade) { f.printWrite = enabled }
}

func WithLogSink(w io.Writer) Option {
	return func(f *Facade) { f.logSink = w }
}

// WithInputDecode sets a transform applied to local input during
// Interact before it is sent (the CLI's -d/--decode).
func WithInputDecode(t transform.Func) Option {
	return func(f *Facade) { f.inputDecode = t }
}

// Open dispatches on target: a HostPort or ExistingSocket
// selects the socket transport; anything else selects the process
// transport, with spawnOpts providing the stdin/stdout wiring (its
// Argv is overwritten with the argv resolved from target). Invalid
// targets fail here, before any transport is constructed.
func Open(target transport.Target, spawnOpts transport.SpawnOptions, dialTimeout time.Duration, opts ...Option) (*Facade, error) {
	f := &Facade{
		timeout:        defaultTimeout,
		readTransform:  transform.Raw,
		writeTransform: transform.Raw,
		printRead:      true,
		printWrite:     true,
		logSink:        os.Stderr,
		closeDelay:     spawnOpts.CloseDelay,
	}
	for _, o := range opts {
		o(f)
	}

	switch t := target.(type) {
	case transport.HostPort:
		if err := transport.ValidateHostPort(t); err != nil {
			return nil, err
		}
		tr, err := transport.OpenSocket(t, dialTimeout)
		if err != nil {
			return nil, err
		}
		f.tr = tr
	case transport.ExistingSocket:
		f.tr = transport.WrapSocket(t.Conn)
	default:
		argv, ok, err := transport.ResolveArgv(target)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("zio: unrecognized target %T", target)
		}
		spawnOpts.Argv = argv
		tr, err := transport.Spawn(spawnOpts)
		if err != nil {
			return nil, err
		}
		f.tr = tr
	}
	return f, nil
}

func (f *Facade) logChunk(transform_ transform.Func, printEnabled bool, b []byte) {
	if !printEnabled || transform_ == nil {
		return
	}
	out := transform_(b)
	if len(out) == 0 {
		return
	}
	f.logSink.Write(out)
}

// recvMore pulls one bounded chunk from the transport and appends it to
// buffer, returning io.EOF (with eof_seen already latched on the
// transport) once the peer has shut down its write side.
func (f *Facade) recvMore() error {
	b, err := f.tr.Recv(recvChunkSize)
	if len(b) > 0 {
		f.buffer = append(f.buffer, b...)
		f.logChunk(f.readTransform, f.printRead, b)
	}
	return err
}

// Read implements read(size): size < 0 drains until EOF;
// size >= 0 accumulates until the buffer holds at least size bytes,
// returning exactly that many and retaining the remainder. EOF before
// satisfied fails with ErrUnexpectedEOF carrying the partial buffer.
func (f *Facade) Read(size int) ([]byte, error) {
	if size < 0 {
		for {
			err := f.recvMore()
			if err != nil {
				if err == io.EOF {
					out := f.buffer
					f.buffer = nil
					return out, nil
				}
				return nil, err
			}
		}
	}
	for len(f.buffer) < size {
		err := f.recvMore()
		if err != nil {
			if err == io.EOF {
				partial := f.buffer
				f.buffer = nil
				return nil, &ErrUnexpectedEOF{Partial: partial}
			}
			return nil, err
		}
	}
	out := f.buffer[:size]
	f.buffer = f.buffer[size:]
	return out, nil
}

// ReadUntil implements read_until: scans the buffer after
// every recv for the first of patterns (declaration order tie-break,
// to match; returns buffer[:end] when keep, else buffer[:start],
// always trimming buffer to [end:].
func (f *Facade) ReadUntil(patterns []pattern.Pattern, keep bool) ([]byte, error) {
	for {
		_, start, end := pattern.MatchAny(patterns, f.buffer)
		if end >= 0 {
			var out []byte
			if keep {
				out = f.buffer[:end]
			} else {
				out = f.buffer[:start]
			}
			f.buffer = f.buffer[end:]
			return out, nil
		}
		if err := f.recvMore(); err != nil {
			if err == io.EOF {
				partial := f.buffer
				f.buffer = nil
				return nil, &ErrUnexpectedEOF{Partial: partial}
			}
			return nil, err
		}
	}
}

// ReadLine is read_until(b"\n", keep=true), optionally stripping a
// trailing "\r\n" or "\n".
func (f *Facade) ReadLine(stripNewline bool) ([]byte, error) {
	out, err := f.ReadUntil([]pattern.Pattern{pattern.Literal("\n")}, true)
	if err != nil {
		return nil, err
	}
	if !stripNewline {
		return out, nil
	}
	n := len(out)
	if n > 0 && out[n-1] == '\n' {
		n--
	}
	if n > 0 && out[n-1] == '\r' {
		n--
	}
	return out[:n], nil
}

// ReadSome is a pass-through to transport.Recv: returns whatever the
// transport hands back (at least 1 byte), or io.EOF. It never touches
// buffer.
func (f *Facade) ReadSome(size int) ([]byte, error) {
	b, err := f.tr.Recv(size)
	if len(b) > 0 {
		f.logChunk(f.readTransform, f.printRead, b)
	}
	return b, err
}

// ReadUntilTimeout polls rfd for up to timeout; on readiness it recvs
// once and returns the drained buffer plus the newly read data; on
// timeout it returns whatever the buffer already holds (possibly
// empty), without error.
func (f *Facade) ReadUntilTimeout(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			out := f.buffer
			f.buffer = nil
			return out, nil
		}
		ready, err := waitReadable(f.tr.RFd(), remaining)
		if err != nil {
			return nil, err
		}
		if !ready {
			out := f.buffer
			f.buffer = nil
			return out, nil
		}
		err = f.recvMore()
		out := f.buffer
		f.buffer = nil
		if err != nil && err != io.EOF {
			return out, err
		}
		return out, nil
	}
}

// Write logs then sends all of b, returning len(b).
func (f *Facade) Write(b []byte) (int, error) {
	f.logChunk(f.writeTransform, f.printWrite, b)
	if err := f.tr.Send(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// WriteLine writes b followed by the host's native line separator.
func (f *Facade) WriteLine(b []byte) (int, error) {
	return f.Write(append(append([]byte{}, b...), '\n'))
}

// SendEOF half-closes (socket) or applies the process transport's
// EOF-to-child policy.
func (f *Facade) SendEOF() error { return f.tr.SendEOF() }

// Close releases the underlying transport. Idempotent.
func (f *Facade) Close() error { return f.tr.Close() }

// IsAlive reports liveness for process transports; sockets are always
// considered alive until closed.
func (f *Facade) IsAlive() bool {
	if ra, ok := f.tr.(transport.Relayable); ok {
		return ra.IsAlive()
	}
	return !f.tr.IsClosed()
}

// Interact hands control to the interactive relay, using
// os.Stdin/os.Stdout as the local terminal and the facade's transforms
// for logging what crosses the boundary.
func (f *Facade) Interact() error {
	opts := transport.RelayOptions{
		Local:  os.Stdin,
		Out:    os.Stdout,
		OnRecv: func(b []byte) { f.logChunk(f.readTransform, f.printRead, b) },
		OnSend: func(b []byte) { f.logChunk(f.writeTransform, f.printWrite, b) },
	}
	if f.inputDecode != nil {
		opts.InputDecode = f.inputDecode
	}
	return transport.Relay(f.tr, opts)
}

// Debugf emits a structured debug line to the facade's logging
// backend, independent of the print_read/print_write data pipeline.
func (f *Facade) Debugf(format string, args ...any) {
	logrus.Debugf(format, args...)
}
