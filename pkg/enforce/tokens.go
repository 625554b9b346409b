package enforce

import "fmt"

// RegularToken pairs a token id with its decoded continuation text. The
// table is built once per vocabulary and shared read-only afterwards.
type RegularToken struct {
	ID   int
	Text string
}

// BuildRegularTokens projects the vocabulary into (id, text) pairs for every
// non-special id, in ascending id order.
//
// Subword tokenizers render a token differently depending on whether it
// starts a word, so decoding an id in isolation loses leading-space
// information. Each id is therefore decoded in a two-token window behind a
// fixed sentinel, and the sentinel's own rendering is trimmed off the front.
func BuildRegularTokens(tok Tokenizer) ([]RegularToken, error) {
	sentinel, err := resolveSentinel(tok)
	if err != nil {
		return nil, err
	}
	prefix, err := tok.Decode([]int{sentinel})
	if err != nil {
		return nil, fmt.Errorf("%w: decode sentinel %d: %v", ErrConfiguration, sentinel, err)
	}

	special := make(map[int]bool, len(tok.SpecialTokenIDs()))
	for _, id := range tok.SpecialTokenIDs() {
		special[id] = true
	}

	size := tok.VocabSize()
	tokens := make([]RegularToken, 0, size)
	for id := 0; id < size; id++ {
		if special[id] {
			continue
		}
		decoded, err := tok.Decode([]int{sentinel, id})
		if err != nil {
			return nil, fmt.Errorf("%w: decode token %d: %v", ErrConfiguration, id, err)
		}
		if len(decoded) < len(prefix) {
			// The tokenizer swallowed the sentinel; the id renders as
			// nothing we can anchor. Treat its text as empty.
			tokens = append(tokens, RegularToken{ID: id})
			continue
		}
		tokens = append(tokens, RegularToken{ID: id, Text: decoded[len(prefix):]})
	}
	return tokens, nil
}

// resolveSentinel picks the token the projector decodes ahead of every
// target id. The digit "0" is encodable by every practical vocabulary; its
// last encoded id is used so added BOS markers do not interfere.
func resolveSentinel(tok Tokenizer) (int, error) {
	if tok.VocabSize() <= 0 {
		return 0, fmt.Errorf("%w: vocabulary is empty", ErrConfiguration)
	}
	ids, err := tok.Encode("0")
	if err != nil {
		return 0, fmt.Errorf("%w: sentinel %q not encodable: %v", ErrConfiguration, "0", err)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: sentinel %q encoded to no tokens", ErrConfiguration, "0")
	}
	return ids[len(ids)-1], nil
}
