package enforce

import "fmt"

// Filter adapts an Oracle into the per-step callback shape the host loop
// expects. It holds no per-step state of its own; calls are safe in any
// order across sequences of a batch as long as each sequence's prefixes
// arrive in increasing length, which the host loop guarantees.
type Filter struct {
	oracle Oracle
}

// NewAllowedTokensFilter validates the tokenizer capability and wraps the
// oracle. The tokenizer is required up front so a broken vocabulary fails
// before the first decoding step rather than during it.
func NewAllowedTokensFilter(tok Tokenizer, oracle Oracle) (*Filter, error) {
	if tok == nil || tok.VocabSize() <= 0 {
		return nil, fmt.Errorf("%w: tokenizer with empty vocabulary", ErrConfiguration)
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrConfiguration)
	}
	return &Filter{oracle: oracle}, nil
}

// Allowed returns the token ids permitted after ids. The prefix is copied
// before the oracle call so oracle-side caching never aliases the host's
// live sequence buffer. An empty result is the generation-stuck condition;
// the host loop decides how to terminate.
func (f *Filter) Allowed(seq int, ids []int) []int {
	prefix := make([]int, len(ids))
	copy(prefix, ids)
	return f.oracle.AllowedTokens(prefix)
}
