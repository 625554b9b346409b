package enforce

import "math"

// Interceptor temporarily replaces a ScoringHost's processor factory with a
// wrapper that records raw scores and, optionally, masks scores outside the
// allowed set. Nothing else about the pipeline changes: the wrapper calls
// the original factory and prepends its own stages to the result.
//
// One interceptor serves one generation call. Install then Release, with
// Release deferred so it runs on every exit path. Overlapping installs on
// the same host are not supported.
type Interceptor struct {
	host      ScoringHost
	collector *Collector
	filter    AllowedFn

	prev      ProcessorFactory
	installed bool
}

// NewInterceptor prepares an interceptor. filter may be nil to record
// without constraining the search.
func NewInterceptor(host ScoringHost, collector *Collector, filter AllowedFn) *Interceptor {
	return &Interceptor{host: host, collector: collector, filter: filter}
}

// Install captures the host's current factory and swaps in the wrapper.
// A second Install without an intervening Release returns
// ErrAlreadyInstalled: the captured state would otherwise be overwritten
// and the host left permanently patched.
func (ic *Interceptor) Install() error {
	if ic.installed {
		return ErrAlreadyInstalled
	}
	ic.prev = ic.host.ProcessorFactory()
	prev := ic.prev
	ic.host.SetProcessorFactory(func() []Processor {
		var stages []Processor
		if prev != nil {
			stages = prev()
		}
		wrapped := make([]Processor, 0, len(stages)+2)
		wrapped = append(wrapped, recordingStage{collector: ic.collector})
		if ic.filter != nil {
			wrapped = append(wrapped, MaskStage{Filter: ic.filter})
		}
		return append(wrapped, stages...)
	})
	ic.installed = true
	return nil
}

// Release restores the factory captured by Install. Safe to call more than
// once; only the first call restores.
func (ic *Interceptor) Release() {
	if !ic.installed {
		return
	}
	ic.host.SetProcessorFactory(ic.prev)
	ic.prev = nil
	ic.installed = false
}

// recordingStage forwards every (ids, scores) pair it sees to the collector
// and returns the scores untouched. It runs ahead of every other stage so
// the snapshot holds the model's raw output.
type recordingStage struct {
	collector *Collector
}

func (s recordingStage) Process(seq int, ids []int, scores []float32) []float32 {
	s.collector.ReportRawLogits(seq, ids, scores)
	return scores
}

// MaskStage restricts the search itself: scores of tokens outside the
// allowed set drop to -Inf before any downstream stage or the sampler sees
// them. When the allowed set is empty every score is pruned, which the host
// loop surfaces as its stuck condition.
type MaskStage struct {
	Filter AllowedFn
}

var negInf = float32(math.Inf(-1))

func (s MaskStage) Process(seq int, ids []int, scores []float32) []float32 {
	allowed := s.Filter(seq, ids)
	keep := make(map[int]bool, len(allowed))
	for _, id := range allowed {
		keep[id] = true
	}
	for i := range scores {
		if !keep[i] {
			scores[i] = negInf
		}
	}
	return scores
}
