package transport

import (
	"time"

	"github.com/cr4sh/zio/pty"
	"golang.org/x/sys/unix"
)

// IsAlive is a liveness probe. It reaps the child with WNOHANG in the
// common case, but once stdout EOF has been observed (eofSeen) it
// blocks on the wait instead: on a pty backend, the kernel can only be
// relied on to have fully reported the child's exit in a blocking
// waitpid once its output side is known to be drained, so a WNOHANG
// poll at that point can leave the child an unreaped zombie
// indefinitely. Callers that need to block regardless of eofSeen
// should use Wait.
func (p *ProcessTransport) IsAlive() bool {
	if _, known := p.ExitCode(); known {
		return false
	}
	if p.eofSeen.Load() {
		return !p.reap(0)
	}
	return !p.reap(unix.WNOHANG)
}

// Wait blocks until the child exits and returns its exit code.
func (p *ProcessTransport) Wait() int {
	if code, known := p.ExitCode(); known {
		return code
	}
	p.reap(0)
	code, _ := p.ExitCode()
	return code
}

// reap polls the child's status with the given wait4 flags and reports
// whether it has exited. A lone zero-PID return (no state change yet
// under WNOHANG) is retried once, since some kernels briefly lag
// between a pty EOF becoming visible and the exit being reapable.
func (p *ProcessTransport) reap(flag int) (exited bool) {
	for attempt := 0; attempt < 2; attempt++ {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(p.pid, &ws, flag, nil)
		if err == unix.ECHILD {
			p.setExitCode(-1)
			return true
		}
		if err != nil || wpid == 0 {
			if flag&unix.WNOHANG != 0 && attempt == 0 {
				continue
			}
			return false
		}
		switch {
		case ws.Exited():
			p.setExitCode(ws.ExitStatus())
			return true
		case ws.Signaled():
			p.setExitCode(128 + int(ws.Signal()))
			return true
		case ws.Stopped():
			// A stopped (not exited) child is outside this transport's
			// model; treat it as still alive rather than panicking the
			// caller's process.
			p.log.WithField("signal", ws.StopSignal()).Warn("child stopped, not exited")
			return false
		}
		return false
	}
	return false
}

func (p *ProcessTransport) setExitCode(code int) {
	p.exitMu.Lock()
	defer p.exitMu.Unlock()
	if p.exitCode == nil {
		p.exitCode = &code
	}
}

// Terminate implements the escalation: SIGHUP, SIGCONT, SIGINT in
// sequence (waiting terminateDelay after each), then — if force is set
// and the child is still alive — SIGKILL. Returns whether the child is
// dead by the time it returns.
func (p *ProcessTransport) Terminate(force bool) bool {
	if !p.IsAlive() {
		return true
	}
	for _, sig := range []unix.Signal{unix.SIGHUP, unix.SIGCONT, unix.SIGINT} {
		unix.Kill(p.pid, sig)
		if p.terminateDelay > 0 {
			time.Sleep(p.terminateDelay)
		}
		if !p.IsAlive() {
			return true
		}
	}
	if force {
		unix.Kill(p.pid, unix.SIGKILL)
		if p.terminateDelay > 0 {
			time.Sleep(p.terminateDelay)
		}
	}
	return !p.IsAlive()
}

// SendEOF: a pipe stdin is simply closed; a pty stdin
// cannot be half-closed, so the master's VMIN/VTIME are set to 0/1 so
// the child's next read returns 0 bytes (an EOF-shaped short read)
// instead of blocking forever.
func (p *ProcessTransport) SendEOF() error {
	p.eofSent.Store(true)
	if p.stdinMode == ModePipe {
		return p.wFile.Close()
	}
	t, err := pty.GetAttr(p.WFd())
	if err != nil {
		return err
	}
	t.Cc[pty.VMIN] = 0
	t.Cc[pty.VTIME] = 1
	return pty.SetAttr(p.WFd(), pty.TCSANOW, t)
}

// Close: close both master descriptors, wait
// closeDelay, and terminate the child if it is still alive. Idempotent.
func (p *ProcessTransport) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	unregisterShutdownHook(p)
	if p.wFile != nil {
		p.wFile.Close()
	}
	if p.rFile != nil {
		p.rFile.Close()
	}
	if p.closeDelay > 0 {
		time.Sleep(p.closeDelay)
	}
	if p.IsAlive() {
		p.Terminate(true)
	}
	p.eofSeen.Store(true)
	p.eofSent.Store(true)
	return nil
}

// RestoreWfdModeIfUntouched implements the relay-exit rule: if wfd's
// current termios still equals the raw snapshot taken at spawn time
// (the child never changed it), restore the initial (pre-raw) mode so
// the controlling shell gets line editing back. A child that changed
// the mode itself (e.g. a full-screen editor that restored cooked mode
// on exit, or left it in some third state) is left alone.
func (p *ProcessTransport) RestoreWfdModeIfUntouched() {
	if p.wfdInitMode == nil || p.wfdRawMode == nil {
		return
	}
	current, err := pty.GetAttr(p.WFd())
	if err != nil {
		return
	}
	if *current == *p.wfdRawMode {
		pty.SetAttr(p.WFd(), pty.TCSANOW, p.wfdInitMode)
	}
}
