// Package transform implements the pure bytes-to-bytes transforms the
// facade applies to every chunk crossing the transport boundary, both
// for logging and (in interactive mode) optionally for the traffic
// itself: RAW, NONE, HEX, UNHEX, REPR, EVAL, BIN, UNBIN, and COLORED.
package transform

import (
	"fmt"

	"github.com/cr4sh/zio/codec"
)

// Func is bytes -> bytes, the contract every transform satisfies.
type Func func([]byte) []byte

// Raw is the identity transform.
func Raw(b []byte) []byte { return b }

// None always returns empty bytes. Used as a sentinel: a read/write
// direction whose transform is None emits nothing to the log sink,
// the same effect as turning that direction's printing off (see
// Facade, which implements the print switch separately).
func None([]byte) []byte { return nil }

// Hex renders b as hex text terminated by CR LF, matching codec.ToHex
// plus the client-surface's line terminator convention.
func Hex(b []byte) []byte { return []byte(codec.ToHex(b) + "\r\n") }

// Unhex decodes hex text after trimming surrounding whitespace;
// malformed input (odd length with no autopad, or non-hex characters,
// including whitespace inside the text) yields the original
// bytes unchanged rather than panicking, since transforms must never
// fail the call that applies them.
func Unhex(b []byte) []byte {
	out, err := codec.FromHex(string(b), false, false)
	if err != nil {
		return b
	}
	return out
}

// Repr renders b as codec.Repr.
func Repr(b []byte) []byte { return []byte(codec.Repr(b)) }

// Eval decodes codec.Repr/Eval text; malformed escapes pass the input
// through unchanged (see Unhex).
func Eval(b []byte) []byte {
	out, err := codec.Eval(string(b))
	if err != nil {
		return b
	}
	return out
}

// Bin renders b as codec.ToBin.
func Bin(b []byte) []byte { return []byte(codec.ToBin(b)) }

// Unbin decodes codec.FromBin text; malformed input passes through
// unchanged.
func Unbin(b []byte) []byte {
	out, err := codec.FromBin(string(b), false, false)
	if err != nil {
		return b
	}
	return out
}

// Color is an SGR foreground color code, 30-37.
type Color int

const (
	Black Color = 30 + iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

// Attr is an SGR text attribute.
type Attr int

const (
	Bold      Attr = 1
	Dark      Attr = 2
	Underline Attr = 4
	Blink     Attr = 5
	Reverse   Attr = 7
	Concealed Attr = 8
)

// Colored wraps f and surrounds its output with SGR escapes: foreground
// color (30-37), optional background (40-47, pass 0 to omit), and any
// number of attributes, always terminated by ESC [ 0 m.
func Colored(f Func, fg Color, bg Color, attrs ...Attr) Func {
	prefix := sgrPrefix(fg, bg, attrs)
	return func(b []byte) []byte {
		out := f(b)
		if len(out) == 0 {
			return out
		}
		wrapped := make([]byte, 0, len(prefix)+len(out)+4)
		wrapped = append(wrapped, prefix...)
		wrapped = append(wrapped, out...)
		wrapped = append(wrapped, "\x1b[0m"...)
		return wrapped
	}
}

func sgrPrefix(fg Color, bg Color, attrs []Attr) string {
	s := fmt.Sprintf("\x1b[%d", fg)
	if bg != 0 {
		s += fmt.Sprintf(";%d", bg+10)
	}
	for _, a := range attrs {
		s += fmt.Sprintf(";%d", a)
	}
	return s + "m"
}
