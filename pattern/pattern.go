// Package pattern implements the uniform "find a span in a buffer" used
// by the buffered reader's read_until family: literal bytes, a compiled
// byte-regex, or a predicate, all behind one interface.
package pattern

import "regexp"

// Pattern locates the earliest span it matches within buf, or returns
// (-1, -1) if it does not match at all.
type Pattern interface {
	Find(buf []byte) (start, end int)
}

// Literal matches a fixed byte string.
type Literal []byte

func (l Literal) Find(buf []byte) (int, int) {
	idx := indexBytes(buf, []byte(l))
	if idx < 0 {
		return -1, -1
	}
	return idx, idx + len(l)
}

func indexBytes(haystack, needle []byte) int {
	if len(needle) == 0 {
		return -1
	}
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if string(haystack[i:i+m]) == string(needle) {
			return i
		}
	}
	return -1
}

// Regexp matches a compiled byte-regex, taking the first match.
type Regexp struct{ Re *regexp.Regexp }

func (r Regexp) Find(buf []byte) (int, int) {
	loc := r.Re.FindIndex(buf)
	if loc == nil {
		return -1, -1
	}
	return loc[0], loc[1]
}

// Func adapts a predicate function to the Pattern interface.
type Func func(buf []byte) (start, end int)

func (f Func) Find(buf []byte) (int, int) { return f(buf) }

// MatchPattern returns the earliest-found span of p in buf. For a
// Literal, start is the first occurrence and end = start + len(p).
func MatchPattern(p Pattern, buf []byte) (start, end int) {
	return p.Find(buf)
}

// MatchAny tries each pattern in list, in declaration order, against buf
// and returns the span of the *first pattern that matches* — not the
// pattern with the earliest byte offset across the list. This
// declaration-order tie-break is part of the observable contract: given
// two patterns that both match the same buffer, the one listed first
// wins even if the second pattern's match starts earlier in the buffer.
func MatchAny(list []Pattern, buf []byte) (matched Pattern, start, end int) {
	for _, p := range list {
		s, e := p.Find(buf)
		if s >= 0 {
			return p, s, e
		}
	}
	return nil, -1, -1
}
