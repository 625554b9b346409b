package enforce

import (
	"errors"
	"testing"
)

func TestBuildRegularTokensExcludesSpecials(t *testing.T) {
	t.Parallel()

	tok := &fakeTokenizer{
		tokens:   []string{"<s>", "0", "a", "b", "</s>"},
		specials: []int{0, 4},
		eos:      4,
	}
	table, err := BuildRegularTokens(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantIDs := []int{1, 2, 3}
	if len(table) != len(wantIDs) {
		t.Fatalf("expected %d tokens, got %d", len(wantIDs), len(table))
	}
	for i, want := range wantIDs {
		if table[i].ID != want {
			t.Fatalf("position %d: expected id %d, got %d", i, want, table[i].ID)
		}
	}
}

func TestBuildRegularTokensAscendingAndComplete(t *testing.T) {
	t.Parallel()

	tok := newABCTokenizer()
	table, err := BuildRegularTokens(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[int]bool)
	prev := -1
	for _, rt := range table {
		if rt.ID <= prev {
			t.Fatalf("ids not strictly ascending: %d after %d", rt.ID, prev)
		}
		prev = rt.ID
		seen[rt.ID] = true
	}
	for id := 0; id < tok.VocabSize(); id++ {
		special := id == tok.eos
		if seen[id] == special {
			t.Fatalf("id %d: special=%v but included=%v", id, special, seen[id])
		}
	}
}

func TestBuildRegularTokensTrimsSentinelRendering(t *testing.T) {
	t.Parallel()

	// The sentinel renders as three characters here; exactly that length
	// must be trimmed, not a fixed single character.
	tok := &fakeTokenizer{
		tokens:         []string{"0", " a", "b"},
		sentinelPrefix: "<0>",
	}
	table, err := BuildRegularTokens(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byID := make(map[int]string)
	for _, rt := range table {
		byID[rt.ID] = rt.Text
	}
	if byID[1] != " a" {
		t.Fatalf("expected leading space preserved, got %q", byID[1])
	}
	if byID[2] != "b" {
		t.Fatalf("expected %q, got %q", "b", byID[2])
	}
}

func TestBuildRegularTokensSentinelUnresolvable(t *testing.T) {
	t.Parallel()

	tok := &fakeTokenizer{tokens: []string{"a", "b"}}
	_, err := BuildRegularTokens(tok)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestBuildRegularTokensEmptyVocabulary(t *testing.T) {
	t.Parallel()

	_, err := BuildRegularTokens(&fakeTokenizer{})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
