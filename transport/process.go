package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cr4sh/zio/pty"
	"github.com/sirupsen/logrus"
)

// ProcessTransport implements Transport by forking a child attached via
// pipes and/or pseudo-terminals. This is the core of the
// system: getting the child a correct controlling terminal, avoiding
// input-echo contamination between its two streams, and surviving mode
// changes made by programs like editors and ssh.
//
// Go's runtime forbids running arbitrary code between fork and exec in
// a multithreaded process (the reference implementation's manual
// child-side setsid()/open("/dev/tty")/ioctl(TIOCSCTTY) dance is not
// reproducible that way here), so spawning goes through os/exec.Cmd
// with SysProcAttr{Setsid, Setctty, Ctty}: the kernel establishes the
// controlling terminal atomically as part of exec, which is the
// standard idiomatic-Go substitute and the one every pty-spawning
// example in the corpus uses. See DESIGN.md.
type ProcessTransport struct {
	cmd *exec.Cmd
	pid int

	rFile *os.File // stdout master: reads come from here
	wFile *os.File // stdin master: writes go here

	stdinMode  IOMode
	stdoutMode IOMode

	wfdInitMode *pty.Termios
	wfdRawMode  *pty.Termios
	rfdInitMode *pty.Termios
	rfdRawMode  *pty.Termios

	eofSeen atomic.Bool
	eofSent atomic.Bool
	closed  atomic.Bool

	exitMu   sync.Mutex
	exitCode *int

	args []string

	writeDelay     time.Duration
	closeDelay     time.Duration
	terminateDelay time.Duration

	log *logrus.Entry
}

// SpawnOptions configures Spawn. Zero-value durations fall back to the
// spec defaults (write 50ms, close 100ms, terminate 0 — caller should
// usually set TerminateDelay explicitly for interactive use).
type SpawnOptions struct {
	Argv       []string
	Env        []string // nil inherits the current process's environment
	Cwd        string
	StdinMode  IOMode
	StdoutMode IOMode

	// SIGHUPDisposition, if non-nil, must be 0 (SIG_DFL) or 1
	// (SIG_IGN); any other value is ignored.
	SIGHUPDisposition *int

	WriteDelay     time.Duration
	CloseDelay     time.Duration
	TerminateDelay time.Duration
}

func (o *SpawnOptions) withDefaults() {
	if o.WriteDelay == 0 {
		o.WriteDelay = 50 * time.Millisecond
	}
	if o.CloseDelay == 0 {
		o.CloseDelay = 100 * time.Millisecond
	}
}

// Spawn forks argv[0] (resolved against PATH) with the given stdin/stdout
// wiring and returns the parent-side ProcessTransport.
func Spawn(opts SpawnOptions) (*ProcessTransport, error) {
	if len(opts.Argv) == 0 {
		return nil, fmt.Errorf("transport: empty argv")
	}
	opts.withDefaults()

	resolved, err := exec.LookPath(opts.Argv[0])
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", opts.Argv[0], err)
	}
	argv := append([]string{resolved}, opts.Argv[1:]...)

	p := &ProcessTransport{
		stdinMode:      opts.StdinMode,
		stdoutMode:     opts.StdoutMode,
		args:           argv,
		writeDelay:     opts.WriteDelay,
		closeDelay:     opts.CloseDelay,
		terminateDelay: opts.TerminateDelay,
		log:            logrus.WithField("component", "process-transport"),
	}

	stdinMaster, stdinSlave, err := openStdinEndpoint(opts.StdinMode)
	if err != nil {
		return nil, err
	}
	stdoutMaster, stdoutSlave, err := openStdoutEndpoint(opts.StdoutMode)
	if err != nil {
		closeAll(stdinMaster, stdinSlave)
		return nil, err
	}

	// If both the stdout slave and the inherited parent
	// stdin are ttys, copy the parent terminal's window size onto the
	// child's stdout slave. Best-effort: a failure (parent stdin is not
	// actually a terminal, e.g. redirected) is suppressed silently, per
	// the parent terminal's own window, not a protocol error.
	if stdoutSlave != nil && pty.IsTTY(int(os.Stdin.Fd())) {
		if err := pty.CopyWinsize(int(os.Stdin.Fd()), int(stdoutSlave.Fd())); err != nil {
			p.log.WithError(err).Warn("window size copy failed, continuing")
		}
	}

	cmd := exec.Command(resolved, argv[1:]...)
	cmd.Dir = opts.Cwd
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	cmd.Stdin = stdinSlave
	cmd.Stdout = stdoutSlave
	cmd.Stderr = stdoutSlave

	stdinIsTTY := opts.StdinMode != ModePipe
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  stdinIsTTY,
		Setctty: stdinIsTTY,
		Ctty:    0, // fd 0 in the child, i.e. cmd.Stdin
	}

	restoreSIGHUP := applySIGHUPDisposition(opts.SIGHUPDisposition)

	if err := cmd.Start(); err != nil {
		restoreSIGHUP()
		closeAll(stdinMaster, stdinSlave, stdoutMaster, stdoutSlave)
		return nil, fmt.Errorf("transport: spawn %q: %w", resolved, err)
	}
	restoreSIGHUP()

	// Parent closes both slave ends; the child holds its own dup'd
	// copies from fork.
	if stdinSlave != nil {
		stdinSlave.Close()
	}
	if stdoutSlave != nil {
		stdoutSlave.Close()
	}

	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.wFile = stdinMaster
	p.rFile = stdoutMaster

	if opts.StdinMode != ModePipe {
		p.wfdInitMode, p.wfdRawMode, err = snapshotAndMaybeRaw(int(stdinMaster.Fd()), opts.StdinMode)
		if err != nil {
			p.log.WithError(err).Warn("stdin termios snapshot failed")
		}
	}
	if opts.StdoutMode != ModePipe {
		p.rfdInitMode, p.rfdRawMode, err = snapshotAndMaybeRaw(int(stdoutMaster.Fd()), opts.StdoutMode)
		if err != nil {
			p.log.WithError(err).Warn("stdout termios snapshot failed")
		}
	}

	registerShutdownHook(p)

	p.log.WithField("pid", p.pid).Debug("spawned")
	return p, nil
}

// openStdinEndpoint returns (master, slave): the parent writes to
// master, the child reads from slave. For Pipe, master is the pipe's
// write end and slave its read end; for Tty/TtyRaw both are the two
// ends of a fresh pty pair.
func openStdinEndpoint(mode IOMode) (master, slave *os.File, err error) {
	if mode == ModePipe {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, fmt.Errorf("transport: pipe: %w", err)
		}
		return w, r, nil
	}
	return openPTYEndpoint()
}

// openStdoutEndpoint returns (master, slave): the child writes to
// slave, the parent reads from master. For Pipe, master is the pipe's
// read end and slave its write end; for Tty/TtyRaw both are the two
// ends of a fresh pty pair.
func openStdoutEndpoint(mode IOMode) (master, slave *os.File, err error) {
	if mode == ModePipe {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, fmt.Errorf("transport: pipe: %w", err)
		}
		return r, w, nil
	}
	return openPTYEndpoint()
}

func openPTYEndpoint() (master, slave *os.File, err error) {
	master, slavePath, err := pty.OpenPTYPair()
	if err != nil {
		return nil, nil, err
	}
	slave, err = pty.OpenSlave(slavePath)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	return master, slave, nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

func snapshotAndMaybeRaw(masterFd int, mode IOMode) (init, raw *pty.Termios, err error) {
	init, err = pty.GetAttr(masterFd)
	if err != nil {
		return nil, nil, err
	}
	raw = init.Clone()
	raw.MakeRaw()
	if mode == ModeTtyRaw {
		if err := pty.SetAttr(masterFd, pty.TCSANOW, raw); err != nil {
			return init, raw, err
		}
	}
	return init, raw, nil
}

// applySIGHUPDisposition arranges for the about-to-be-forked child to
// inherit the requested SIGHUP disposition. SIG_IGN survives exec(2)
// per POSIX, so setting it in the parent immediately before fork and
// restoring it immediately after is sufficient — no child-side pre-exec
// hook is needed, matching Go's fork/exec model. SIG_DFL is the
// no-op default unless the parent itself had SIGHUP ignored.
func applySIGHUPDisposition(disposition *int) (restore func()) {
	// Numeric SIG_DFL/SIG_IGN dispositions; package syscall does not
	// export them on Linux.
	const (
		sigDFL = 0
		sigIGN = 1
	)
	if disposition == nil {
		return func() {}
	}
	switch *disposition {
	case sigIGN:
		signalIgnore(syscall.SIGHUP)
		return func() { signalReset(syscall.SIGHUP) }
	case sigDFL:
		signalReset(syscall.SIGHUP)
		return func() {}
	default:
		return func() {}
	}
}

func (p *ProcessTransport) RFd() int {
	if p.rFile == nil {
		return -1
	}
	return int(p.rFile.Fd())
}

func (p *ProcessTransport) WFd() int {
	if p.wFile == nil {
		return -1
	}
	return int(p.wFile.Fd())
}

func (p *ProcessTransport) EOFSeen() bool  { return p.eofSeen.Load() }
func (p *ProcessTransport) EOFSent() bool  { return p.eofSent.Load() }
func (p *ProcessTransport) IsClosed() bool { return p.closed.Load() }

// WfdIsTTY reports whether the stdin master is a pty, i.e. whether the
// relay should watch it for echo.
func (p *ProcessTransport) WfdIsTTY() bool { return p.stdinMode != ModePipe }

func (p *ProcessTransport) PID() int { return p.pid }

// ExitCode returns the child's exit status and whether it has been
// reaped yet: defined only after a successful
// wait).
func (p *ProcessTransport) ExitCode() (code int, known bool) {
	p.exitMu.Lock()
	defer p.exitMu.Unlock()
	if p.exitCode == nil {
		return 0, false
	}
	return *p.exitCode, true
}

func (p *ProcessTransport) Recv(n int) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if p.eofSeen.Load() {
		return nil, io.EOF
	}
	buf := make([]byte, n)
	read, err := p.rFile.Read(buf)
	if read == 0 || errors.Is(err, io.EOF) {
		p.eofSeen.Store(true)
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return buf[:read], nil
}

func (p *ProcessTransport) Send(b []byte) error    { return p.send(b, true) }
func (p *ProcessTransport) SendNow(b []byte) error { return p.send(b, false) }

func (p *ProcessTransport) send(b []byte, delay bool) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if delay && p.writeDelay > 0 {
		time.Sleep(p.writeDelay)
	}
	for len(b) > 0 {
		n, err := p.wFile.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
