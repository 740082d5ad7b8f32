package hmm

import (
	"sync"
)

type bigram struct {
	t1, t2 int
}

type trigram struct {
	t1, t2, t3 int
}

// TransitionModel estimates P(k | i, j) for state trigrams by linear
// interpolation of uni-, bi- and trigram relative frequencies. The
// three lambda weights are fixed once at train time by deleted
// interpolation (Brants 2000); computed probabilities are cached by
// trigram for reuse.
type TransitionModel struct {
	// lambdas[0] weights the unigram estimate, [1] the bigram, [2]
	// the trigram.
	lambdas  [3]float64
	unigrams map[int]float64
	bigrams  map[bigram]float64
	trigrams map[trigram]float64
	tokenN   float64

	mu    sync.RWMutex
	cache map[trigram]float64
}

func newTransitionModel() *TransitionModel {
	return &TransitionModel{
		unigrams: make(map[int]float64),
		bigrams:  make(map[bigram]float64),
		trigrams: make(map[trigram]float64),
		cache:    make(map[trigram]float64),
	}
}

// train picks the lambda weights: for every observed trigram the three
// leave-one-out estimates are compared and the trigram's raw frequency
// is credited to the winning order's accumulator, after which the
// accumulators are normalized to sum to 1. The cache is pre-warmed for
// every observed trigram.
func (m *TransitionModel) train(unigrams map[int]float64, bigrams map[bigram]float64, trigrams map[trigram]float64, tokenN float64) {
	m.unigrams = unigrams
	m.bigrams = bigrams
	m.trigrams = trigrams
	m.tokenN = tokenN

	// acc[0] accumulates trigram wins, [1] bigram, [2] unigram,
	// matching the comparison order c3, c2, c1.
	var acc [3]float64
	for tg, n := range trigrams {
		var c3, c2, c1 float64
		if d := bigrams[bigram{tg.t1, tg.t2}] - 1; d > 0 {
			c3 = (n - 1) / d
		}
		if d := unigrams[tg.t2] - 1; d > 0 {
			c2 = (bigrams[bigram{tg.t2, tg.t3}] - 1) / d
		}
		if d := tokenN - 1; d > 0 {
			c1 = (unigrams[tg.t3] - 1) / d
		}
		best := 0
		cases := [3]float64{c3, c2, c1}
		for x := 1; x < len(cases); x++ {
			if cases[x] > cases[best] {
				best = x
			}
		}
		acc[best] += n
	}
	sum := acc[0] + acc[1] + acc[2]
	if sum > 0 {
		m.lambdas = [3]float64{acc[2] / sum, acc[1] / sum, acc[0] / sum}
	}

	for tg := range trigrams {
		m.Probability(tg.t3, tg.t1, tg.t2)
	}
}

// Probability returns P(next state = k | previous two states = i, j).
func (m *TransitionModel) Probability(k, i, j int) float64 {
	key := trigram{i, j, k}
	m.mu.RLock()
	p, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return p
	}

	var p1, p2, p3 float64
	if m.tokenN > 0 {
		p1 = m.unigrams[k] / m.tokenN
	}
	if uj := m.unigrams[j]; uj > 0 {
		p2 = m.bigrams[bigram{j, k}] / uj
	}
	if bij := m.bigrams[bigram{i, j}]; bij > 0 {
		p3 = m.trigrams[trigram{i, j, k}] / bij
	}
	p = m.lambdas[0]*p1 + m.lambdas[1]*p2 + m.lambdas[2]*p3

	m.mu.Lock()
	m.cache[key] = p
	m.mu.Unlock()
	return p
}

// Contains reports whether the trigram has already been estimated.
func (m *TransitionModel) Contains(k, i, j int) bool {
	m.mu.RLock()
	_, ok := m.cache[trigram{i, j, k}]
	m.mu.RUnlock()
	return ok
}

// Lambdas returns the interpolation weights in unigram, bigram,
// trigram order.
func (m *TransitionModel) Lambdas() [3]float64 {
	return m.lambdas
}
