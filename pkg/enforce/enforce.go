// Package enforce constrains token-by-token generation to a caller-supplied
// constraint oracle, and can capture per-step scoring diagnostics without
// changing what the host generation loop produces.
//
// The package does not parse grammars, sample tokens or run models. Those are
// capabilities supplied by the caller: an Oracle decides which token ids may
// follow a given prefix, a Tokenizer renders ids as text, and a Host runs the
// actual decoding loop. The enforce layer sits between them.
package enforce

import "context"

// Tokenizer is the tokenizer capability consumed by this package.
type Tokenizer interface {
	// VocabSize returns the number of token ids, special ids included.
	VocabSize() int
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// SpecialTokenIDs returns ids that never appear in generated text
	// (BOS, EOS, padding and similar).
	SpecialTokenIDs() []int
	EOSTokenID() int
}

// Oracle decides, for a token-id prefix, which token ids may follow it.
// An empty result means no continuation is valid at that point.
type Oracle interface {
	AllowedTokens(prefix []int) []int
}

// AllowedFn is the per-step callback shape the host loop consumes. seq is the
// position of the sequence within the batch; ids is that sequence's ids so
// far. The returned slice lists the permitted next-token ids.
type AllowedFn func(seq int, ids []int) []int

// Processor is one stage of the host's per-step scoring pipeline. It receives
// a sequence's ids so far and its raw scores (one per vocabulary id) and
// returns the transformed scores. Stages may mutate the slice in place.
type Processor interface {
	Process(seq int, ids []int, scores []float32) []float32
}

// ProcessorFactory builds the stage list for one generation call.
type ProcessorFactory func() []Processor

// Host is the generation-loop capability. A Host is already bound to its own
// request (prompts, sampling parameters, step limit); Generate runs it with
// an optional next-token filter. A nil filter runs unconstrained.
type Host interface {
	Generate(ctx context.Context, filter AllowedFn) (*Output, error)
	// BatchSize reports the number of input sequences of the bound request.
	BatchSize() int
	// BeamCount reports the search width of the bound request; 1 means
	// ordinary single-candidate decoding.
	BeamCount() int
}

// ScoringHost is a Host whose scoring pipeline construction can be swapped
// out. Only hosts implementing it support the diagnostics path.
type ScoringHost interface {
	Host
	ProcessorFactory() ProcessorFactory
	SetProcessorFactory(ProcessorFactory)
}

// Output is the host's generation result. Sequences hold the full token ids
// per batch entry, prompt included. EnforcedScores is attached by the
// diagnostics path only; callers must check for presence.
type Output struct {
	Sequences     [][]int  `json:"sequences"`
	Text          []string `json:"text"`
	FinishReasons []string `json:"finish_reasons,omitempty"`

	EnforcedScores *Report `json:"enforced_scores,omitempty"`
}
