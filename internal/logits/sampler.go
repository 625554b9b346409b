package logits

import (
	"math"
	"math/rand"
)

// SamplerConfig configures the behaviour of a Sampler. Repetition handling
// lives in the scoring pipeline, not here; the sampler only turns a final
// score vector into a token id.
type SamplerConfig struct {
	Seed        int64
	Temperature float32
	TopK        int
	TopP        float32
	MinP        float32
}

type Sampler struct {
	rng    *rand.Rand
	cfg    SamplerConfig
	greedy bool
	topIdx []int
	topVal []float32
	prob   []float64
}

// NewSampler returns a new sampler with the provided configuration.
// Temperature <= 0 selects greedy decoding.
func NewSampler(cfg SamplerConfig) *Sampler {
	greedy := cfg.Temperature <= 0
	if cfg.Temperature <= 0 {
		cfg.Temperature = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 40
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	return &Sampler{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		cfg:    cfg,
		greedy: greedy,
	}
}

// Sample draws a single index from the provided scores vector:
//
//  1. Greedy configurations return the argmax immediately.
//  2. Scores are scaled by the inverse temperature and the top k indices
//     are shortlisted.
//  3. A softmax over the shortlist is computed with a max subtraction for
//     numerical stability. Scores pruned to -Inf get zero probability.
//  4. Min-P and Top-P truncate the shortlist when configured.
//  5. A random draw selects an index from the truncated distribution.
func (s *Sampler) Sample(scores []float32) int {
	if s.greedy || (s.cfg.TopK == 1 && s.cfg.TopP >= 1 && s.cfg.Temperature == 1) {
		return argmax(scores)
	}

	invTemp := float32(1.0) / s.cfg.Temperature
	k := min(s.cfg.TopK, len(scores))

	topIdx, topVal := s.topK(scores, k, invTemp)
	if len(topVal) == 0 {
		return 0
	}

	maxv := topVal[0]
	for i := 1; i < len(topVal); i++ {
		if topVal[i] > maxv {
			maxv = topVal[i]
		}
	}

	if cap(s.prob) < len(topVal) {
		s.prob = make([]float64, len(topVal))
	}
	prob := s.prob[:len(topVal)]
	var sum float64
	for i := range topVal {
		e := math.Exp(float64(topVal[i] - maxv))
		prob[i] = e
		sum += e
	}
	if sum == 0 {
		return topIdx[0]
	}
	invSum := 1.0 / sum
	for i := range prob {
		prob[i] *= invSum
	}

	if s.cfg.MinP > 0 {
		threshold := prob[0] * float64(s.cfg.MinP)
		newLen := 0
		var newSum float64
		for i := range prob {
			if prob[i] >= threshold {
				prob[newLen] = prob[i]
				topIdx[newLen] = topIdx[i]
				newSum += prob[i]
				newLen++
			}
		}
		if newLen < len(prob) {
			prob = prob[:newLen]
			if newSum > 0 {
				scale := 1.0 / newSum
				for i := range prob {
					prob[i] *= scale
				}
			}
		}
	}

	cut := len(prob)
	if s.cfg.TopP < 1 {
		var c float64
		for i := range prob {
			c += prob[i]
			if float32(c) >= s.cfg.TopP {
				cut = i + 1
				break
			}
		}
	}

	r := s.rng.Float64()
	var c float64
	for i := 0; i < cut; i++ {
		c += prob[i]
		if r <= c {
			return topIdx[i]
		}
	}
	return topIdx[cut-1]
}

// argmax returns the index of the maximum value in the slice. If the slice is empty it panics.
func argmax(x []float32) int {
	if len(x) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}

// topK returns the indices and values of the k largest elements, scaled by
// invTemp and ordered from largest to smallest. O(V*K), fine for small K.
func (s *Sampler) topK(scores []float32, k int, invTemp float32) ([]int, []float32) {
	if k <= 0 {
		return nil, nil
	}
	if cap(s.topIdx) < k+1 {
		s.topIdx = make([]int, 0, k+1)
		s.topVal = make([]float32, 0, k+1)
	}
	topIdx := s.topIdx[:0]
	topVal := s.topVal[:0]

	for i, l := range scores {
		v := l * invTemp

		pos := len(topVal)
		for pos > 0 && topVal[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}

		topIdx = append(topIdx, 0)
		topVal = append(topVal, 0)
		copy(topIdx[pos+1:], topIdx[pos:])
		copy(topVal[pos+1:], topVal[pos:])
		topIdx[pos] = i
		topVal[pos] = v

		if len(topVal) > k {
			topIdx = topIdx[:k]
			topVal = topVal[:k]
		}
	}
	if len(topIdx) == 0 {
		return []int{0}, []float32{0}
	}
	s.topIdx = topIdx
	s.topVal = topVal
	return topIdx, topVal
}
