package grammar

import "testing"

func advanceString(t *testing.T, p Parser, s string) (Parser, bool) {
	t.Helper()
	for _, r := range s {
		next, ok := p.Advance(r)
		if !ok {
			return nil, false
		}
		p = next
	}
	return p, true
}

func TestStringsAcceptsEachOption(t *testing.T) {
	t.Parallel()

	p := Strings("ab", "ac", "b")
	for _, option := range []string{"ab", "ac", "b"} {
		end, ok := advanceString(t, p, option)
		if !ok {
			t.Fatalf("option %q rejected", option)
		}
		if !end.CanEnd() {
			t.Fatalf("option %q consumed but CanEnd is false", option)
		}
	}
}

func TestStringsRejectsDivergence(t *testing.T) {
	t.Parallel()

	p := Strings("ab")
	if _, ok := advanceString(t, p, "ax"); ok {
		t.Fatal("divergent continuation accepted")
	}
	if _, ok := p.Advance('z'); ok {
		t.Fatal("unrelated first rune accepted")
	}
}

func TestStringsCannotEndMidOption(t *testing.T) {
	t.Parallel()

	p := Strings("ab")
	mid, ok := p.Advance('a')
	if !ok {
		t.Fatal("prefix rejected")
	}
	if mid.CanEnd() {
		t.Fatal("CanEnd true in the middle of the only option")
	}
}

func TestStringsSharedPrefixKeepsBothAlive(t *testing.T) {
	t.Parallel()

	p := Strings("a", "ab")
	mid, ok := p.Advance('a')
	if !ok {
		t.Fatal("prefix rejected")
	}
	if !mid.CanEnd() {
		t.Fatal("shorter option not accepted at shared prefix")
	}
	if _, ok := mid.Advance('b'); !ok {
		t.Fatal("longer option died at shared prefix")
	}
}
