package transport

import (
	"bytes"
	"testing"
	"time"
)

func TestProcessPipeEchoRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	p, err := Spawn(SpawnOptions{
		Argv:       []string{"/bin/cat"},
		StdinMode:  ModePipe,
		StdoutMode: ModePipe,
		CloseDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()

	if err := p.Send([]byte("hello\n")); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := p.Recv(6)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(got, []byte("hello\n")) {
		t.Fatalf("got %q", got)
	}
}

func TestProcessSendEOFOnPipeClosesWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	p, err := Spawn(SpawnOptions{
		Argv:       []string{"/bin/cat"},
		StdinMode:  ModePipe,
		StdoutMode: ModePipe,
		CloseDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()

	if err := p.Send([]byte("abc")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := p.SendEOF(); err != nil {
		t.Fatalf("SendEOF: %v", err)
	}
	if !p.EOFSent() {
		t.Fatalf("expected EOFSent to latch")
	}

	got, err := p.Recv(3)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("got %q", got)
	}

	// cat exits once its stdin is closed and it has drained stdout.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !p.IsAlive() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("child did not exit after stdin EOF")
}

func TestProcessExitCodeFalse(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	p, err := Spawn(SpawnOptions{
		Argv:       []string{"/bin/false"},
		StdinMode:  ModePipe,
		StdoutMode: ModePipe,
		CloseDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()

	code := p.Wait()
	if code != 1 {
		t.Fatalf("got exit code %d, want 1", code)
	}
	if p.IsAlive() {
		t.Fatalf("expected child to be reaped")
	}
}

func TestProcessTerminateKillsShell(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	p, err := Spawn(SpawnOptions{
		Argv:           []string{"/bin/sh", "-c", "trap '' HUP INT TERM; sleep 30"},
		StdinMode:      ModePipe,
		StdoutMode:     ModePipe,
		CloseDelay:     10 * time.Millisecond,
		TerminateDelay: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()

	if !p.IsAlive() {
		t.Fatalf("expected child to be running")
	}
	if !p.Terminate(true) {
		t.Fatalf("expected Terminate(force=true) to kill an unresponsive child")
	}
}

func TestProcessTtyRawEchoRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("requires /dev/ptmx and spawns a real child process")
	}
	p, err := Spawn(SpawnOptions{
		Argv:       []string{"/bin/cat"},
		StdinMode:  ModeTtyRaw,
		StdoutMode: ModeTtyRaw,
		CloseDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer p.Close()

	if !p.WfdIsTTY() {
		t.Fatalf("expected WfdIsTTY for ModeTtyRaw stdin")
	}
	if p.RFd() == p.WFd() {
		t.Fatalf("stdin and stdout must be distinct ptys")
	}

	if err := p.Send([]byte("hi\n")); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := p.Recv(3)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(got, []byte("hi\n")) {
		t.Fatalf("got %q", got)
	}
}

func TestProcessCloseIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	p, err := Spawn(SpawnOptions{
		Argv:       []string{"/bin/cat"},
		StdinMode:  ModePipe,
		StdoutMode: ModePipe,
	})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !p.IsClosed() {
		t.Fatalf("expected IsClosed")
	}
	if err := p.Send([]byte("x")); err != ErrClosed {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}
