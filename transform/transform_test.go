package transform

import (
	"bytes"
	"strings"
	"testing"
)

func TestRawIdentity(t *testing.T) {
	b := []byte("hello")
	if !bytes.Equal(Raw(b), b) {
		t.Fatalf("Raw must be identity")
	}
}

func TestNoneEmpty(t *testing.T) {
	if len(None([]byte("hello"))) != 0 {
		t.Fatalf("None must return empty bytes")
	}
}

func TestHexUnhexRoundTrip(t *testing.T) {
	b := []byte("hello world")
	h := Hex(b)
	if !strings.HasSuffix(string(h), "\r\n") {
		t.Fatalf("Hex must terminate with CRLF")
	}
	back := Unhex(h)
	if !bytes.Equal(back, b) {
		t.Fatalf("got %x want %x", back, b)
	}
}

func TestBinUnbinRoundTrip(t *testing.T) {
	b := []byte("zio")
	back := Unbin(Bin(b))
	if !bytes.Equal(back, b) {
		t.Fatalf("got %x want %x", back, b)
	}
}

func TestReprEvalRoundTrip(t *testing.T) {
	b := []byte("tab\ttab\r\n")
	back := Eval(Repr(b))
	if !bytes.Equal(back, b) {
		t.Fatalf("got %x want %x", back, b)
	}
}

func TestColoredWrapsWithReset(t *testing.T) {
	c := Colored(Hex, Yellow, 0)
	out := c([]byte("ab"))
	s := string(out)
	if !strings.HasPrefix(s, "\x1b[33m") {
		t.Fatalf("expected yellow SGR prefix, got %q", s)
	}
	if !strings.HasSuffix(s, "\x1b[0m") {
		t.Fatalf("expected SGR reset suffix, got %q", s)
	}
}

func TestColoredEmptyPassthrough(t *testing.T) {
	c := Colored(None, Cyan, 0)
	if len(c([]byte("anything"))) != 0 {
		t.Fatalf("Colored(None) must still emit nothing")
	}
}
