package inference

import "time"

// Model is the minimal autoregressive model surface the engine drives. A
// model carries its own decoding state; Reset clears it before a sequence
// starts.
type Model interface {
	ForwardToken(id int) ([]float32, error)
	Reset()
}

// StreamFunc receives decoded tokens as they are generated. seq is the
// batch position the token belongs to.
type StreamFunc func(seq int, token string)

// Request describes one generation call. Prompts holds the already-encoded
// input ids, one slice per batch entry. Steps < 0 means run until a stop
// token or the constraint leaves no candidates.
type Request struct {
	Prompts [][]int
	Steps   int

	// NumBeams is recognized for compatibility with search-capable hosts;
	// this engine only supports single-candidate decoding and rejects
	// values above 1.
	NumBeams int

	Seed          int64
	Temperature   float64
	TopK          int
	TopP          float64
	MinP          float64
	RepeatPenalty float64
	RepeatLastN   int

	Stream StreamFunc
}

type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Finish reasons reported per sequence.
const (
	FinishStop   = "stop"   // a stop token was generated
	FinishLength = "length" // the step limit was reached
	FinishStuck  = "stuck"  // the constraint left no valid candidate
)
