package enforce

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// fakeTokenizer maps ids to literal strings with optional specials. Encode
// matches single characters only, which is all the sentinel resolution
// needs.
type fakeTokenizer struct {
	tokens   []string
	specials []int
	eos      int

	// sentinelPrefix, when set, is prepended to every decode so the
	// projector's trimming can be exercised.
	sentinelPrefix string

	encodeErr error
}

func (f *fakeTokenizer) VocabSize() int { return len(f.tokens) }

func (f *fakeTokenizer) Encode(text string) ([]int, error) {
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	var ids []int
	for _, r := range text {
		found := -1
		for id, tok := range f.tokens {
			if tok == string(r) {
				found = id
				break
			}
		}
		if found < 0 {
			return nil, errors.New("unencodable")
		}
		ids = append(ids, found)
	}
	return ids, nil
}

func (f *fakeTokenizer) Decode(ids []int) (string, error) {
	var b strings.Builder
	for i, id := range ids {
		if id < 0 || id >= len(f.tokens) {
			return "", fmt.Errorf("id %d out of range", id)
		}
		if i == 0 && f.sentinelPrefix != "" {
			b.WriteString(f.sentinelPrefix)
			continue
		}
		b.WriteString(f.tokens[id])
	}
	return b.String(), nil
}

func (f *fakeTokenizer) SpecialTokenIDs() []int { return f.specials }

func (f *fakeTokenizer) EOSTokenID() int { return f.eos }

// newABCTokenizer builds the canonical test vocabulary: "0" for the
// sentinel, then a, b, c, then an EOS special.
func newABCTokenizer() *fakeTokenizer {
	return &fakeTokenizer{
		tokens:   []string{"0", "a", "b", "c", "</s>"},
		specials: []int{4},
		eos:      4,
	}
}

// fixedOracle returns a scripted allowed set per prefix length.
type fixedOracle struct {
	byLen map[int][]int
}

func (o fixedOracle) AllowedTokens(prefix []int) []int {
	return o.byLen[len(prefix)]
}

// recordingOracle remembers the prefixes it was asked about.
type recordingOracle struct {
	prefixes [][]int
	allow    []int
}

func (o *recordingOracle) AllowedTokens(prefix []int) []int {
	o.prefixes = append(o.prefixes, prefix)
	return o.allow
}

// fakeHost emulates a host loop: per scripted step it builds the stage
// list's scores, runs the pipeline, then emits the scripted token. It
// implements ScoringHost so the advanced path can intercept it.
type fakeHost struct {
	batch int
	beams int

	prompt []int
	steps  [][]float32 // raw scores per step
	emit   []int       // token chosen per step

	factory     ProcessorFactory
	generateErr error

	generated  int
	lastFilter AllowedFn
}

func (h *fakeHost) BatchSize() int {
	if h.batch <= 0 {
		return 1
	}
	return h.batch
}

func (h *fakeHost) BeamCount() int {
	if h.beams <= 0 {
		return 1
	}
	return h.beams
}

func (h *fakeHost) ProcessorFactory() ProcessorFactory { return h.factory }

func (h *fakeHost) SetProcessorFactory(f ProcessorFactory) { h.factory = f }

func (h *fakeHost) Generate(ctx context.Context, filter AllowedFn) (*Output, error) {
	h.lastFilter = filter

	var stages []Processor
	if h.factory != nil {
		stages = h.factory()
	}

	ids := append([]int(nil), h.prompt...)
	for i, raw := range h.steps {
		scores := append([]float32(nil), raw...)
		for _, stage := range stages {
			scores = stage.Process(0, ids, scores)
		}
		if filter != nil {
			if len(filter(0, ids)) == 0 {
				break
			}
		}
		if i < len(h.emit) {
			ids = append(ids, h.emit[i])
			h.generated++
		}
	}
	if h.generateErr != nil {
		return nil, h.generateErr
	}

	out := &Output{Sequences: [][]int{ids}}
	for i := 1; i < h.BatchSize(); i++ {
		out.Sequences = append(out.Sequences, append([]int(nil), ids...))
	}
	return out, nil
}
