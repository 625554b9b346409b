package enforce

import (
	"fmt"
	"sort"
)

// DefaultTopAlternatives bounds the per-step alternative list in reports.
const DefaultTopAlternatives = 5

type snapshot struct {
	seq    int
	step   int
	prefix []int
	scores []float32
}

// Collector accumulates one raw-score snapshot per decoding step and turns
// them into a DiagnosticReport once generation finishes. It lives for one
// generation call; a fresh collector is built per call so step counters are
// never shared across invocations.
type Collector struct {
	tok    Tokenizer
	filter *Filter
	topK   int

	snaps    []snapshot
	nextStep map[int]int
	consumed bool
}

// NewCollector builds a collector. topAlternatives <= 0 selects
// DefaultTopAlternatives.
func NewCollector(tok Tokenizer, filter *Filter, topAlternatives int) *Collector {
	if topAlternatives <= 0 {
		topAlternatives = DefaultTopAlternatives
	}
	return &Collector{
		tok:      tok,
		filter:   filter,
		topK:     topAlternatives,
		nextStep: make(map[int]int),
	}
}

// ReportRawLogits appends one snapshot for a sequence. Within a host step
// the batch may report its sequences in any order; per sequence, calls must
// arrive in step order. Both slices are copied, so the host may reuse its
// buffers freely.
func (c *Collector) ReportRawLogits(seq int, ids []int, scores []float32) {
	prefix := make([]int, len(ids))
	copy(prefix, ids)
	raw := make([]float32, len(scores))
	copy(raw, scores)

	step := c.nextStep[seq]
	c.nextStep[seq] = step + 1
	c.snaps = append(c.snaps, snapshot{seq: seq, step: step, prefix: prefix, scores: raw})
}

// Steps reports how many snapshots have been recorded for a sequence.
func (c *Collector) Steps(seq int) int {
	return c.nextStep[seq]
}

// Report correlates each generated token with the raw scores and allowed
// set considered at its step. Immutable once returned.
type Report struct {
	Steps []StepReport `json:"steps"`
}

// StepReport describes one decoding step. Stuck marks a step whose allowed
// set was empty; such a step selected no token and ChosenID is -1.
type StepReport struct {
	Step         int           `json:"step"`
	ChosenID     int           `json:"chosen_token_id"`
	ChosenText   string        `json:"chosen_token_text,omitempty"`
	ChosenScore  float32       `json:"raw_score_of_chosen"`
	ChosenRank   int           `json:"rank_of_chosen_among_allowed"`
	AllowedIDs   []int         `json:"allowed_token_ids"`
	Alternatives []Alternative `json:"top_alternatives,omitempty"`
	Stuck        bool          `json:"stuck,omitempty"`
}

// Alternative is one allowed candidate the model could have taken instead.
type Alternative struct {
	ID    int     `json:"token_id"`
	Text  string  `json:"token_text,omitempty"`
	Score float32 `json:"raw_score"`
}

// GenerateReport consumes the recorded snapshots against the final emitted
// sequence. It must be called exactly once; the snapshots are released
// afterwards and a second call fails with ErrReportConsumed.
func (c *Collector) GenerateReport(finalIDs []int) (*Report, error) {
	if c.consumed {
		return nil, ErrReportConsumed
	}
	c.consumed = true
	snaps := c.snaps
	c.snaps = nil

	report := &Report{Steps: make([]StepReport, 0, len(snaps))}
	for _, snap := range snaps {
		step := StepReport{Step: snap.step, ChosenID: -1}

		allowed := c.filter.Allowed(snap.seq, snap.prefix)
		step.AllowedIDs = append([]int(nil), allowed...)
		step.Stuck = len(allowed) == 0

		ranked := rankByScore(allowed, snap.scores)
		limit := min(c.topK, len(ranked))
		for _, id := range ranked[:limit] {
			step.Alternatives = append(step.Alternatives, Alternative{
				ID:    id,
				Text:  c.decodeOne(id),
				Score: scoreOf(snap.scores, id),
			})
		}

		pos := len(snap.prefix)
		if pos < len(finalIDs) {
			chosen := finalIDs[pos]
			step.ChosenID = chosen
			step.ChosenText = c.decodeOne(chosen)
			step.ChosenScore = scoreOf(snap.scores, chosen)
			for i, id := range ranked {
				if id == chosen {
					step.ChosenRank = i + 1
					break
				}
			}
		}
		report.Steps = append(report.Steps, step)
	}
	return report, nil
}

func (c *Collector) decodeOne(id int) string {
	text, err := c.tok.Decode([]int{id})
	if err != nil {
		return fmt.Sprintf("<token %d>", id)
	}
	return text
}

// rankByScore orders allowed ids by descending raw score. Ties keep id order
// so ranks are deterministic.
func rankByScore(allowed []int, scores []float32) []int {
	ranked := append([]int(nil), allowed...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scoreOf(scores, ranked[i]) > scoreOf(scores, ranked[j])
	})
	return ranked
}

func scoreOf(scores []float32, id int) float32 {
	if id < 0 || id >= len(scores) {
		return negInf
	}
	return scores[id]
}
