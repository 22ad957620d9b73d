package transport

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// RelayOptions configures Relay. OnRecv/OnSend are called
// with the raw bytes moved in each direction before they are written to
// Out/tr, so the caller (the facade) can apply its read/write
// transforms and logging without the relay needing to know about them.
type RelayOptions struct {
	Local  *os.File // local controlling terminal, normally os.Stdin
	Out    io.Writer
	OnRecv func([]byte)
	OnSend func([]byte)
	// InputDecode, if set, transforms bytes read from Local before they
	// are sent (the CLI's -d/--decode applying eval/unhex to stdin
	// during interact).
	InputDecode func([]byte) []byte
}

type relayEvent struct {
	source string
	data   []byte
	err    error
}

// Relay multiplexes the local terminal against tr until the remote side
// reaches EOF or fails, or SIGINT/SIGTERM arrives. EOF on the local
// side is passed on with tr.SendEOF and the relay keeps running. If tr also
// implements Relayable and WfdIsTTY reports true, wfd is watched too:
// a process transport whose stdin pty is in cooked mode echoes typed
// input back out through that same master descriptor, and without
// forwarding it the user would not see their own keystrokes.
func Relay(tr Transport, opts RelayOptions) error {
	log := logrus.WithField("component", "relay")

	restoreLocal := func() {}
	if opts.Local != nil {
		if oldState, err := term.MakeRaw(int(opts.Local.Fd())); err == nil {
			restoreLocal = func() { term.Restore(int(opts.Local.Fd()), oldState) }
		}
	}
	defer restoreLocal()
	defer func() {
		if rt, ok := tr.(*ProcessTransport); ok {
			rt.RestoreWfdModeIfUntouched()
		}
	}()

	// A KeyboardInterrupt (SIGINT to the controller) must exit this
	// loop cleanly with the terminal restored, whatever the transport
	// is — registerShutdownHook only arms for process transports, which
	// leaves a socket-only Relay with no handler at all and Go's
	// default disposition (terminate immediately, skipping every defer
	// above) on Ctrl-C. Install our own notification for the lifetime
	// of this call instead of relying on that global hook.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)

	events := make(chan relayEvent, 8)
	stop := make(chan struct{})

	go func() {
		select {
		case <-sigc:
			select {
			case events <- relayEvent{"signal", nil, nil}:
			case <-stop:
			}
		case <-stop:
		}
	}()

	startReader := func(source string, f *os.File) {
		go func() {
			buf := make([]byte, 4096)
			for {
				select {
				case <-stop:
					return
				default:
				}
				n, err := f.Read(buf)
				if n > 0 {
					cp := make([]byte, n)
					copy(cp, buf[:n])
					select {
					case events <- relayEvent{source, cp, nil}:
					case <-stop:
						return
					}
				}
				if err != nil {
					select {
					case events <- relayEvent{source, nil, err}:
					case <-stop:
					}
					return
				}
			}
		}()
	}

	if opts.Local != nil {
		startReader("local", opts.Local)
	}

	go func() {
		for {
			b, err := tr.Recv(4096)
			if len(b) > 0 {
				select {
				case events <- relayEvent{"remote", b, nil}:
				case <-stop:
					return
				}
			}
			if err != nil {
				select {
				case events <- relayEvent{"remote", nil, err}:
				case <-stop:
				}
				return
			}
		}
	}()

	relayable, _ := tr.(Relayable)
	watchWfd := relayable != nil && relayable.WfdIsTTY() && tr.WFd() != tr.RFd()
	if watchWfd {
		wfdFile := os.NewFile(uintptr(tr.WFd()), "wfd-echo")
		startReader("echo", wfdFile)
	}

	remoteDone := false
	interrupted := false

	for !remoteDone && !interrupted {
		ev := <-events
		switch ev.source {
		case "signal":
			interrupted = true
		case "local":
			if ev.err != nil {
				if errors.Is(ev.err, io.EOF) {
					tr.SendEOF()
				}
				continue
			}
			data := ev.data
			if opts.InputDecode != nil {
				data = opts.InputDecode(data)
			}
			if relayable == nil || !relayable.WfdIsTTY() {
				data = translateCR(data)
				if opts.Out != nil {
					opts.Out.Write(data)
				}
			}
			if opts.OnSend != nil {
				opts.OnSend(data)
			}
			if err := tr.Send(data); err != nil {
				log.WithError(err).Warn("send failed")
			}
		case "remote":
			if ev.err != nil {
				remoteDone = true
				continue
			}
			if opts.OnRecv != nil {
				opts.OnRecv(ev.data)
			}
			if opts.Out != nil {
				opts.Out.Write(ev.data)
			}
		case "echo":
			if ev.err != nil {
				continue
			}
			if opts.Out != nil {
				opts.Out.Write(ev.data)
			}
		}
	}

	close(stop)
	if interrupted {
		return nil
	}
	return drainRemaining(tr, opts)
}

// translateCR rewrites CR to LF, matching the line discipline a cooked
// tty would apply; used to keep local echo correct when wfd is not a
// tty (a pipe or a socket) and the kernel isn't doing this translation
// for us.
func translateCR(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c == '\r' {
			c = '\n'
		}
		out[i] = c
	}
	return out
}

// drainRemaining performs the final drain pass: once the main loop
// exits (remote EOF or dead child), pull any bytes still buffered on
// the remote side before returning, so a burst written just before
// exit is not silently dropped.
func drainRemaining(tr Transport, opts RelayOptions) error {
	for {
		b, err := tr.Recv(4096)
		if len(b) > 0 {
			if opts.OnRecv != nil {
				opts.OnRecv(b)
			}
			if opts.Out != nil {
				opts.Out.Write(b)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if len(b) == 0 {
			return nil
		}
	}
}
