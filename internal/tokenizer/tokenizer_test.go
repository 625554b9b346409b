package tokenizer

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestVocab(t *testing.T) *Vocab {
	t.Helper()
	eos, unk := 0, 1
	v, err := New(Config{
		Tokens:     []string{"</s>", "<unk>", "a", "b", "ab", "abc"},
		SpecialIDs: []int{0, 1},
		EOSTokenID: &eos,
		UNKTokenID: &unk,
	})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	return v
}

func TestEncodeGreedyLongestMatch(t *testing.T) {
	t.Parallel()

	v := newTestVocab(t)
	ids, err := v.Encode("abcab")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// "abc" wins over "ab"+"c"; then "ab" wins over "a"+"b".
	want := []int{5, 4}
	if len(ids) != len(want) || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("encoded %v, want %v", ids, want)
	}
}

func TestEncodeFallsBackToUnknown(t *testing.T) {
	t.Parallel()

	v := newTestVocab(t)
	ids, err := v.Encode("axb")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []int{2, 1, 3}
	if len(ids) != len(want) {
		t.Fatalf("encoded %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("encoded %v, want %v", ids, want)
		}
	}
}

func TestEncodeErrorsWithoutUnknown(t *testing.T) {
	t.Parallel()

	v, err := New(Config{Tokens: []string{"a"}})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	if _, err := v.Encode("b"); err == nil {
		t.Fatal("unencodable input accepted")
	}
}

func TestDecodeSkipsSpecials(t *testing.T) {
	t.Parallel()

	v := newTestVocab(t)
	text, err := v.Decode([]int{2, 3, 0})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if text != "ab" {
		t.Fatalf("decoded %q, want %q", text, "ab")
	}
	if _, err := v.Decode([]int{99}); err == nil {
		t.Fatal("out-of-range id accepted")
	}
}

func TestSpecialTokenIDsSorted(t *testing.T) {
	t.Parallel()

	v := newTestVocab(t)
	ids := v.SpecialTokenIDs()
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Fatalf("special ids %v, want [0 1]", ids)
	}
}

func TestByteLevelRoundTrip(t *testing.T) {
	t.Parallel()

	v := ByteLevel()
	if v.VocabSize() != 259 {
		t.Fatalf("vocab size %d, want 259", v.VocabSize())
	}
	if v.EOSTokenID() != 1 {
		t.Fatalf("eos id %d, want 1", v.EOSTokenID())
	}
	ids, err := v.Encode("hi \x00")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	text, err := v.Decode(ids)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if text != "hi \x00" {
		t.Fatalf("round trip produced %q", text)
	}
}

func TestDuplicateTokensKeepLowestID(t *testing.T) {
	t.Parallel()

	v, err := New(Config{Tokens: []string{"a", "a"}})
	if err != nil {
		t.Fatalf("vocab: %v", err)
	}
	ids, err := v.Encode("a")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(ids) != 1 || ids[0] != 0 {
		t.Fatalf("encoded %v, want [0]", ids)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab.json")
	data := `{"tokens":["</s>","a","b"],"special_ids":[0],"eos_token_id":0}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Tokens) != 3 {
		t.Fatalf("tokens %v", cfg.Tokens)
	}
	if cfg.EOSTokenID == nil || *cfg.EOSTokenID != 0 {
		t.Fatalf("eos pointer %v", cfg.EOSTokenID)
	}
	if cfg.BOSTokenID != nil {
		t.Fatal("absent bos id decoded as present")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestLoadConfigRejectsEmptyTokens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab.json")
	if err := os.WriteFile(path, []byte(`{"tokens":[]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("empty token list accepted")
	}
}
