package enforce

import (
	"context"
	"fmt"
	"log/slog"
)

// Options configures one GenerateEnforced call. Everything the host needs
// (prompts, sampling parameters, step limits) is already bound to the Host;
// these options only steer the enforcement layer itself.
type Options struct {
	// WantDiagnostics requests a per-step DiagnosticReport. Honored only
	// when the host runs a single sequence with a single search candidate
	// and exposes its scoring pipeline; otherwise generation silently
	// falls back to the filter-only path and no report is attached.
	WantDiagnostics bool

	// TopAlternatives bounds the alternative list per report step.
	TopAlternatives int

	// Logger, when set, receives a warning if diagnostics were requested
	// but infeasible. Nil keeps the fallback silent.
	Logger *slog.Logger
}

// path is the generation strategy, fixed before the host loop starts.
type path int

const (
	pathFilterOnly path = iota
	pathAdvanced
)

// selectPath decides the strategy from the feasibility booleans alone.
// Diagnostics for multi-sequence or multi-candidate decoding are
// unsupported: per-step score snapshots cannot be correlated with a single
// emitted sequence there.
func selectPath(wantDiagnostics, singleSequence, singleCandidate, scoringHost bool) path {
	if wantDiagnostics && singleSequence && singleCandidate && scoringHost {
		return pathAdvanced
	}
	return pathFilterOnly
}

// BuildAllowedTokensFilter wraps an oracle into the host loop's native
// next-token filter callback. Use this directly when no diagnostics are
// needed and the caller drives the host loop itself.
func BuildAllowedTokensFilter(tok Tokenizer, oracle Oracle) (AllowedFn, error) {
	filter, err := NewAllowedTokensFilter(tok, oracle)
	if err != nil {
		return nil, err
	}
	return filter.Allowed, nil
}

// GenerateEnforced runs the host's generation loop with the oracle's
// constraint applied at every step. With diagnostics requested and
// feasible, the host's scoring pipeline is intercepted for the duration of
// the call and the result carries an EnforcedScores report; the
// interception is released on every exit path, so a failing host never
// stays patched. Host failures propagate unchanged.
//
// Only one diagnostics-path call may be active per host at a time; the
// pipeline swap is host-wide state. Callers running hosts concurrently must
// use distinct host instances.
func GenerateEnforced(ctx context.Context, host Host, tok Tokenizer, oracle Oracle, opts Options) (*Output, error) {
	filter, err := NewAllowedTokensFilter(tok, oracle)
	if err != nil {
		return nil, err
	}

	scoring, isScoring := host.(ScoringHost)
	chosen := selectPath(opts.WantDiagnostics, host.BatchSize() == 1, host.BeamCount() <= 1, isScoring)
	if opts.WantDiagnostics && chosen != pathAdvanced && opts.Logger != nil {
		opts.Logger.Warn("diagnostics infeasible, falling back to filter-only generation",
			"batch_size", host.BatchSize(),
			"beam_count", host.BeamCount(),
			"scoring_host", isScoring)
	}

	switch chosen {
	case pathAdvanced:
		return generateAdvanced(ctx, scoring, tok, filter, opts)
	default:
		return host.Generate(ctx, filter.Allowed)
	}
}

func generateAdvanced(ctx context.Context, host ScoringHost, tok Tokenizer, filter *Filter, opts Options) (*Output, error) {
	collector := NewCollector(tok, filter, opts.TopAlternatives)

	// The constraint rides inside the pipeline here, so the host runs with
	// a nil filter; masking ahead of the remaining stages restricts the
	// search itself, not just the final sample.
	ic := NewInterceptor(host, collector, filter.Allowed)
	if err := ic.Install(); err != nil {
		return nil, err
	}
	defer ic.Release()

	out, err := host.Generate(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(out.Sequences) != 1 {
		return nil, fmt.Errorf("enforce: host returned %d sequences on the diagnostics path", len(out.Sequences))
	}

	report, err := collector.GenerateReport(out.Sequences[0])
	if err != nil {
		return nil, err
	}
	out.EnforcedScores = report
	return out, nil
}
