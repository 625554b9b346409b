// Package tokenizer implements the tokenizer capability consumed by the
// enforcement layer: a literal token table with greedy longest-match
// encoding. It is deliberately simple; real deployments adapt their own
// tokenizer behind the same interface.
package tokenizer

import (
	"fmt"
	"sort"
)

// Vocab maps token ids to literal strings. Special ids render as empty text
// when decoding and are excluded from the regular-token projection.
type Vocab struct {
	tokens  []string
	index   map[string]int
	special map[int]bool
	maxLen  int

	bos int
	eos int
	unk int
}

// New builds a vocabulary from a config. Duplicate token strings keep the
// lowest id.
func New(cfg Config) (*Vocab, error) {
	if len(cfg.Tokens) == 0 {
		return nil, fmt.Errorf("tokenizer: empty token list")
	}
	v := &Vocab{
		tokens:  cfg.Tokens,
		index:   make(map[string]int, len(cfg.Tokens)),
		special: make(map[int]bool, len(cfg.SpecialIDs)),
		bos:     -1,
		eos:     -1,
		unk:     -1,
	}
	for _, id := range cfg.SpecialIDs {
		if id < 0 || id >= len(cfg.Tokens) {
			return nil, fmt.Errorf("tokenizer: special id %d out of range", id)
		}
		v.special[id] = true
	}
	if cfg.BOSTokenID != nil {
		v.bos = *cfg.BOSTokenID
	}
	if cfg.EOSTokenID != nil {
		v.eos = *cfg.EOSTokenID
	}
	if cfg.UNKTokenID != nil {
		v.unk = *cfg.UNKTokenID
	}
	for id, text := range cfg.Tokens {
		if v.special[id] || text == "" {
			continue
		}
		if _, ok := v.index[text]; !ok {
			v.index[text] = id
		}
		if len(text) > v.maxLen {
			v.maxLen = len(text)
		}
	}
	return v, nil
}

// ByteLevel returns the built-in byte vocabulary: BOS, EOS and UNK markers
// followed by one token per byte value.
func ByteLevel() *Vocab {
	tokens := make([]string, 0, 3+256)
	tokens = append(tokens, "<s>", "</s>", "<unk>")
	for b := 0; b < 256; b++ {
		tokens = append(tokens, string([]byte{byte(b)}))
	}
	bos, eos, unk := 0, 1, 2
	v, err := New(Config{
		Tokens:     tokens,
		SpecialIDs: []int{bos, eos, unk},
		BOSTokenID: &bos,
		EOSTokenID: &eos,
		UNKTokenID: &unk,
	})
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Vocab) VocabSize() int { return len(v.tokens) }

func (v *Vocab) EOSTokenID() int { return v.eos }

// SpecialTokenIDs returns the reserved ids in ascending order.
func (v *Vocab) SpecialTokenIDs() []int {
	ids := make([]int, 0, len(v.special))
	for id := range v.special {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Encode maps text to ids by greedy longest match against the token table.
// Unmatched input falls back to the UNK id when one is configured.
func (v *Vocab) Encode(text string) ([]int, error) {
	var ids []int
	for i := 0; i < len(text); {
		matched := false
		limit := min(v.maxLen, len(text)-i)
		for l := limit; l > 0; l-- {
			if id, ok := v.index[text[i:i+l]]; ok {
				ids = append(ids, id)
				i += l
				matched = true
				break
			}
		}
		if !matched {
			if v.unk < 0 {
				return nil, fmt.Errorf("tokenizer: cannot encode %q at offset %d", text, i)
			}
			ids = append(ids, v.unk)
			i++
		}
	}
	return ids, nil
}

// Decode concatenates token texts. Special ids render as nothing, so a
// trailing stop token does not leak markup into output text.
func (v *Vocab) Decode(ids []int) (string, error) {
	var out []byte
	for _, id := range ids {
		if id < 0 || id >= len(v.tokens) {
			return "", fmt.Errorf("tokenizer: id %d out of range", id)
		}
		if v.special[id] {
			continue
		}
		out = append(out, v.tokens[id]...)
	}
	return string(out), nil
}

// TokenString returns the raw table entry for an id, specials included.
func (v *Vocab) TokenString(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return ""
	}
	return v.tokens[id]
}
