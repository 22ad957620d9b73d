package zio

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/cr4sh/zio/pattern"
	"github.com/cr4sh/zio/transport"
)

func TestReadExactOverSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		n, _ := conn.Read(buf)
		conn.Write(buf[:n])
	}()

	addr := ln.Addr().(*net.TCPAddr)
	f, err := Open(transport.HostPort{Host: "127.0.0.1", Port: addr.Port}, transport.SpawnOptions{}, time.Second,
		WithLogSink(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("ping")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := f.Read(4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte("ping")) {
		t.Fatalf("got %q", got)
	}
}

func TestReadUnexpectedEOFCarriesPartial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("abc"))
		conn.Close()
	}()

	addr := ln.Addr().(*net.TCPAddr)
	f, err := Open(transport.HostPort{Host: "127.0.0.1", Port: addr.Port}, transport.SpawnOptions{}, time.Second,
		WithLogSink(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	_, err = f.Read(5)
	var eofErr *ErrUnexpectedEOF
	if err == nil {
		t.Fatalf("expected ErrUnexpectedEOF")
	}
	if e, ok := err.(*ErrUnexpectedEOF); ok {
		eofErr = e
	} else {
		t.Fatalf("expected *ErrUnexpectedEOF, got %T: %v", err, err)
	}
	if !bytes.Equal(eofErr.Partial, []byte("abc")) {
		t.Fatalf("partial = %q, want %q", eofErr.Partial, "abc")
	}
}

func TestReadUntilDeclarationOrderTieBreak(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("xxFOO00BAR"))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	f, err := Open(transport.HostPort{Host: "127.0.0.1", Port: addr.Port}, transport.SpawnOptions{}, time.Second,
		WithLogSink(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	// FOO matches earlier in the buffer (offset 2) than BAR (offset 7),
	// but BAR is listed first and must win, so the returned prefix runs
	// through BAR's match rather than stopping after FOO.
	patterns := []pattern.Pattern{pattern.Literal("BAR"), pattern.Literal("FOO")}
	got, err := f.ReadUntil(patterns, true)
	if err != nil {
		t.Fatalf("ReadUntil: %v", err)
	}
	if !bytes.Equal(got, []byte("xxFOO00BAR")) {
		t.Fatalf("got %q, want %q", got, "xxFOO00BAR")
	}
}

func TestReadLineStripsNewline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello\r\nrest"))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	f, err := Open(transport.HostPort{Host: "127.0.0.1", Port: addr.Port}, transport.SpawnOptions{}, time.Second,
		WithLogSink(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	got, err := f.ReadLine(true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestOpenProcessPipeTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a real child process")
	}
	f, err := Open(transport.CommandArgv{"/bin/cat"}, transport.SpawnOptions{
		StdinMode:  transport.ModePipe,
		StdoutMode: transport.ModePipe,
		CloseDelay: 10 * time.Millisecond,
	}, time.Second, WithLogSink(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("hi\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := f.Read(3)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte("hi\n")) {
		t.Fatalf("got %q", got)
	}
}

func TestOpenInvalidTargetFails(t *testing.T) {
	_, err := Open(transport.HostPort{Host: "", Port: 80}, transport.SpawnOptions{}, time.Second)
	if err == nil {
		t.Fatalf("expected error for empty host")
	}
	_, err = Open(transport.CommandString(""), transport.SpawnOptions{}, time.Second)
	if err == nil {
		t.Fatalf("expected error for empty command string")
	}
}
