package inference

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/samcharles93/tokenfence/internal/logits"
	"github.com/samcharles93/tokenfence/pkg/enforce"
)

// Engine runs the decoding loop for one bound request. It satisfies the
// host capability of pkg/enforce, including the swappable scoring-pipeline
// factory the diagnostics path intercepts.
//
// Batched prompts are decoded sequence-at-a-time: per-sequence callbacks
// still fire once per step in step order, which is all the enforcement
// layer relies on.
type Engine struct {
	model   Model
	tok     enforce.Tokenizer
	req     *Request
	stop    []int
	factory enforce.ProcessorFactory
	stats   Stats
}

// NewEngine binds a model, tokenizer and request into a host. The default
// pipeline holds a repeat-penalty stage when the request asks for one.
func NewEngine(model Model, tok enforce.Tokenizer, req *Request) (*Engine, error) {
	if model == nil || tok == nil {
		return nil, fmt.Errorf("inference: model and tokenizer are required")
	}
	if req == nil || len(req.Prompts) == 0 {
		return nil, fmt.Errorf("inference: request with at least one prompt is required")
	}

	var stop []int
	if eos := tok.EOSTokenID(); eos >= 0 {
		stop = append(stop, eos)
	}
	e := &Engine{
		model: model,
		tok:   tok,
		req:   req,
		stop:  stop,
	}
	e.factory = defaultFactory(req, stop)
	return e, nil
}

func (e *Engine) BatchSize() int { return len(e.req.Prompts) }

func (e *Engine) BeamCount() int { return max(e.req.NumBeams, 1) }

func (e *Engine) ProcessorFactory() enforce.ProcessorFactory { return e.factory }

func (e *Engine) SetProcessorFactory(f enforce.ProcessorFactory) { e.factory = f }

// Stats reports counters from the most recent Generate call.
func (e *Engine) Stats() Stats { return e.stats }

// Generate decodes every prompt of the bound request. filter, when non-nil,
// is consulted once per step per sequence; an empty allowed set terminates
// that sequence with FinishStuck. The scoring stage list is built once per
// call from the current factory.
func (e *Engine) Generate(ctx context.Context, filter enforce.AllowedFn) (*enforce.Output, error) {
	if e.BeamCount() > 1 {
		return nil, fmt.Errorf("inference: beam search is not supported by this engine")
	}

	var stages []enforce.Processor
	if e.factory != nil {
		stages = e.factory()
	}
	sampler := logits.NewSampler(logits.SamplerConfig{
		Seed:        e.req.Seed,
		Temperature: float32(e.req.Temperature),
		TopK:        e.req.TopK,
		TopP:        float32(e.req.TopP),
		MinP:        float32(e.req.MinP),
	})

	e.stats = Stats{}
	start := time.Now()
	out := &enforce.Output{}
	for seq, prompt := range e.req.Prompts {
		ids, reason, err := e.decodeSequence(ctx, seq, prompt, stages, sampler, filter)
		if err != nil {
			return nil, err
		}
		text, err := e.tok.Decode(ids[len(prompt):])
		if err != nil {
			return nil, fmt.Errorf("decode output: %w", err)
		}
		out.Sequences = append(out.Sequences, ids)
		out.Text = append(out.Text, text)
		out.FinishReasons = append(out.FinishReasons, reason)
	}
	e.stats.Duration = time.Since(start)
	if e.stats.Duration.Seconds() > 0 {
		e.stats.TPS = float64(e.stats.TokensGenerated) / e.stats.Duration.Seconds()
	}
	return out, nil
}

func (e *Engine) decodeSequence(ctx context.Context, seq int, prompt []int, stages []enforce.Processor, sampler *logits.Sampler, filter enforce.AllowedFn) ([]int, string, error) {
	if len(prompt) == 0 {
		return nil, "", fmt.Errorf("inference: empty prompt at batch position %d", seq)
	}
	if err := safeReset(e.model); err != nil {
		return nil, "", err
	}

	var scoresVec []float32
	var err error
	for _, id := range prompt {
		scoresVec, err = safeForward(e.model, id)
		if err != nil {
			return nil, "", fmt.Errorf("forward error during prefill: %w", err)
		}
	}

	ids := append([]int(nil), prompt...)
	limit := e.req.Steps
	if limit < 0 {
		limit = 1 << 20
	}

	reason := FinishLength
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		scores := append([]float32(nil), scoresVec...)
		for _, stage := range stages {
			scores = stage.Process(seq, ids, scores)
		}

		if filter != nil {
			allowed := filter(seq, ids)
			if len(allowed) == 0 {
				reason = FinishStuck
				break
			}
			maskScores(scores, allowed)
		}
		if fullyPruned(scores) {
			reason = FinishStuck
			break
		}

		next := sampler.Sample(scores)
		ids = append(ids, next)
		e.stats.TokensGenerated++

		if slices.Contains(e.stop, next) {
			reason = FinishStop
			break
		}
		if e.req.Stream != nil {
			if s, err := e.tok.Decode([]int{next}); err == nil {
				e.req.Stream(seq, s)
			}
		}

		scoresVec, err = safeForward(e.model, next)
		if err != nil {
			return nil, "", fmt.Errorf("forward error during generation step %d: %w", i, err)
		}
	}
	return ids, reason, nil
}

func maskScores(scores []float32, allowed []int) {
	keep := make(map[int]bool, len(allowed))
	for _, id := range allowed {
		keep[id] = true
	}
	negInf := float32(math.Inf(-1))
	for i := range scores {
		if !keep[i] {
			scores[i] = negInf
		}
	}
}

func fullyPruned(scores []float32) bool {
	for _, v := range scores {
		if !math.IsInf(float64(v), -1) {
			return false
		}
	}
	return true
}

func safeReset(m Model) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Reset: %v", rec)
		}
	}()
	m.Reset()
	return nil
}

func safeForward(m Model, id int) (scores []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in ForwardToken: %v", rec)
		}
	}()
	return m.ForwardToken(id)
}
