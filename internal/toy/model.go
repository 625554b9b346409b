// Package toy provides a tiny seeded language model. It exists so the
// engine, the CLI demo and the tests have a deterministic model to drive
// without loading real weights.
package toy

import (
	"math"
	"math/rand"
)

// LM is a one-layer recurrent model: an embedding per token id, a recurrent
// mix of the hidden state, and a projection back to vocabulary scores.
// Identical (vocab, hidden, seed) triples produce identical scores forever,
// which the determinism tests rely on.
type LM struct {
	vocab  int
	hidden int

	emb  [][]float32 // [vocab][hidden]
	rec  [][]float32 // [hidden][hidden]
	out  [][]float32 // [hidden][vocab]
	bias []float32   // [vocab]

	h []float32
}

// New constructs a model with weights drawn from the seed.
func New(vocab, hidden int, seed int64) *LM {
	rng := rand.New(rand.NewSource(seed))
	m := &LM{
		vocab:  vocab,
		hidden: hidden,
		emb:    randMat(rng, vocab, hidden),
		rec:    randMat(rng, hidden, hidden),
		out:    randMat(rng, hidden, vocab),
		bias:   make([]float32, vocab),
		h:      make([]float32, hidden),
	}
	return m
}

// ForwardToken consumes one token id and returns scores for the next token.
// The returned slice is freshly allocated each call.
func (m *LM) ForwardToken(id int) ([]float32, error) {
	if id < 0 || id >= m.vocab {
		id = 0
	}

	next := make([]float32, m.hidden)
	for i := 0; i < m.hidden; i++ {
		v := m.emb[id][i]
		for j := 0; j < m.hidden; j++ {
			v += m.rec[j][i] * m.h[j]
		}
		next[i] = float32(math.Tanh(float64(v)))
	}
	m.h = next

	scores := make([]float32, m.vocab)
	copy(scores, m.bias)
	for j := 0; j < m.hidden; j++ {
		hj := m.h[j]
		for i := 0; i < m.vocab; i++ {
			scores[i] += m.out[j][i] * hj
		}
	}
	return scores, nil
}

// Reset clears the hidden state.
func (m *LM) Reset() {
	for i := range m.h {
		m.h[i] = 0
	}
}

func randMat(rng *rand.Rand, rows, cols int) [][]float32 {
	mat := make([][]float32, rows)
	for i := range mat {
		row := make([]float32, cols)
		for j := range row {
			row[j] = float32(rng.NormFloat64() * 0.5)
		}
		mat[i] = row
	}
	return mat
}
