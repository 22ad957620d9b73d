package pattern

import (
	"regexp"
	"testing"
)

func TestLiteralFind(t *testing.T) {
	p := Literal("world")
	s, e := p.Find([]byte("hello world, world again"))
	if s != 6 || e != 11 {
		t.Fatalf("got (%d,%d), want (6,11)", s, e)
	}
}

func TestLiteralNoMatch(t *testing.T) {
	p := Literal("zzz")
	s, e := p.Find([]byte("hello"))
	if s != -1 || e != -1 {
		t.Fatalf("got (%d,%d), want (-1,-1)", s, e)
	}
}

func TestRegexpFind(t *testing.T) {
	p := Regexp{Re: regexp.MustCompile(`[0-9]+`)}
	s, e := p.Find([]byte("abc123def456"))
	if s != 3 || e != 6 {
		t.Fatalf("got (%d,%d), want (3,6)", s, e)
	}
}

// TestMatchAnyDeclarationOrder verifies the tie-break rule: when multiple
// patterns match the same buffer extension, the first one declared wins,
// even if a later pattern in the list matches an earlier byte offset.
func TestMatchAnyDeclarationOrder(t *testing.T) {
	buf := []byte("xxABCyy")
	p1 := Literal("ABC") // matches at offset 2
	p2 := Literal("xx")  // matches at offset 0, earlier, but listed second
	matched, s, e := MatchAny([]Pattern{p1, p2}, buf)
	if lit, ok := matched.(Literal); !ok || string(lit) != string(p1) {
		t.Fatalf("expected p1 to win declaration-order tie-break")
	}
	if s != 2 || e != 5 {
		t.Fatalf("got (%d,%d), want (2,5)", s, e)
	}
}

func TestMatchAnyNoneMatch(t *testing.T) {
	_, s, e := MatchAny([]Pattern{Literal("zzz")}, []byte("abc"))
	if s != -1 || e != -1 {
		t.Fatalf("expected no match")
	}
}
