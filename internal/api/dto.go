package api

// GenerateRequest is the body of POST /v1/generate. Optional knobs are
// pointers so an absent field is distinguishable from its zero value.
type GenerateRequest struct {
	Prompt  string   `json:"prompt,omitempty"`
	Prompts []string `json:"prompts,omitempty"`

	// Match lists the literal strings generation is constrained to.
	Match []string `json:"match"`

	Steps         *int     `json:"steps,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	MinP          *float64 `json:"min_p,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	NumBeams      *int     `json:"num_beams,omitempty"`

	WantDiagnostics *bool `json:"want_diagnostics,omitempty"`
	Stream          *bool `json:"stream,omitempty"`
}

// GenerateResponse mirrors the engine output. EnforcedScores is present
// only when the diagnostics path ran; clients must check, not assume.
type GenerateResponse struct {
	ID            string   `json:"id"`
	Object        string   `json:"object"`
	CreatedAt     int64    `json:"created_at"`
	Text          []string `json:"text"`
	FinishReasons []string `json:"finish_reasons"`

	EnforcedScores any `json:"enforced_scores,omitempty"`
}

// StreamEvent is one SSE payload while streaming.
type StreamEvent struct {
	Type  string `json:"type"`
	Seq   int    `json:"seq,omitempty"`
	Token string `json:"token,omitempty"`

	Response *GenerateResponse `json:"response,omitempty"`
	Error    string            `json:"error,omitempty"`
}
