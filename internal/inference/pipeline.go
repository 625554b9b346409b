package inference

import "github.com/samcharles93/tokenfence/pkg/enforce"

// repeatPenaltyStage dampens scores of recently generated ids. It is the
// engine's one default scoring stage; the enforcement layer prepends its
// own stages ahead of it when diagnostics are active.
type repeatPenaltyStage struct {
	penalty float32
	lastN   int
	exclude []int
}

func (p repeatPenaltyStage) Process(seq int, ids []int, scores []float32) []float32 {
	if p.penalty <= 1 || len(ids) == 0 {
		return scores
	}
	start := max(len(ids)-p.lastN, 0)

	excluded := make(map[int]bool, len(p.exclude))
	for _, id := range p.exclude {
		excluded[id] = true
	}

	seen := make(map[int]bool, len(ids)-start)
	for _, id := range ids[start:] {
		if id < 0 || id >= len(scores) || seen[id] || excluded[id] {
			continue
		}
		seen[id] = true
		if scores[id] > 0 {
			scores[id] /= p.penalty
		} else {
			scores[id] *= p.penalty
		}
	}
	return scores
}

// defaultFactory builds the engine's normal stage list for one call.
func defaultFactory(req *Request, stop []int) enforce.ProcessorFactory {
	return func() []enforce.Processor {
		if req.RepeatPenalty <= 1 {
			return nil
		}
		lastN := req.RepeatLastN
		if lastN <= 0 {
			lastN = 64
		}
		return []enforce.Processor{repeatPenaltyStage{
			penalty: float32(req.RepeatPenalty),
			lastN:   lastN,
			exclude: stop,
		}}
	}
}
