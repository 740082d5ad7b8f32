package hmm

import (
	"github.com/presic/chunker/symbols"
	"sync"
)

// DefaultMaxSuffixLen bounds the suffix length considered by the
// back-off estimate for out-of-vocabulary tokens.
const DefaultMaxSuffixLen = 10

type pair struct {
	state    int
	emission int
}

type stateSuffix struct {
	state  int
	suffix int
}

// EmissionModel stores the emission probabilities of state/emission
// pairs found in training data. Pairs inside the trained matrix are
// answered directly; an emission id beyond the matrix bound is an
// out-of-vocabulary token whose probability is estimated from the
// distribution of its longest known suffix, successively blended with
// shorter suffixes as described by Brants (2000), then cached for the
// life of the model.
type EmissionModel struct {
	symbols *symbols.Table

	counts map[pair]float64
	probs  *dense

	stateCounts       map[int]float64
	suffixCounts      map[int]float64
	stateSuffixCounts map[stateSuffix]float64
	tokenN            float64
	theta             float64
	maxSuffixLen      int

	mu    sync.RWMutex
	found map[pair]float64
}

func newEmissionModel(tbl *symbols.Table, maxSuffixLen int) *EmissionModel {
	return &EmissionModel{
		symbols:           tbl,
		counts:            make(map[pair]float64),
		probs:             newDense(1, 1),
		stateCounts:       make(map[int]float64),
		suffixCounts:      make(map[int]float64),
		stateSuffixCounts: make(map[stateSuffix]float64),
		maxSuffixLen:      maxSuffixLen,
		found:             make(map[pair]float64),
	}
}

// add increments the raw co-occurrence count of a state/emission pair.
func (m *EmissionModel) add(state, emission int) {
	m.counts[pair{state, emission}]++
}

// normalize builds the dense probability matrix from the raw counts,
// row-normalizing each state's emission distribution.
func (m *EmissionModel) normalize(stateN, emissionN int) {
	probs := newDense(stateN, emissionN)
	for key, n := range m.counts {
		probs.set(key.state, key.emission, n)
	}
	probs.normalizeRows()
	m.probs = probs
}

// train stores the frequency counts needed for suffix smoothing and
// freezes the trust weight theta, set to the sample variance of the
// per-state prior probabilities.
func (m *EmissionModel) train(stateCounts, suffixCounts map[int]float64, stateSuffixCounts map[stateSuffix]float64, tokenN float64) {
	m.stateCounts = stateCounts
	m.suffixCounts = suffixCounts
	m.stateSuffixCounts = stateSuffixCounts
	m.tokenN = tokenN

	n := float64(len(stateCounts))
	if n <= 1 {
		m.theta = 0
		return
	}
	var sum float64
	for state := range stateCounts {
		sum += m.prior(state)
	}
	mean := sum / n
	var sq float64
	for state := range stateCounts {
		d := m.prior(state) - mean
		sq += d * d
	}
	m.theta = sq / (n - 1)
}

// Probability returns P(emission | state).
func (m *EmissionModel) Probability(state, emission int) float64 {
	key := pair{state, emission}
	m.mu.RLock()
	p, ok := m.found[key]
	m.mu.RUnlock()
	if ok {
		return p
	}
	if emission < m.probs.cols {
		return m.probs.at(state, emission)
	}
	p = m.estimate(state, emission)
	m.mu.Lock()
	m.found[key] = p
	m.mu.Unlock()
	return p
}

// Contains reports whether the pair is answerable without a fresh
// estimate.
func (m *EmissionModel) Contains(state, emission int) bool {
	if emission < m.probs.cols {
		return state < m.probs.rows
	}
	m.mu.RLock()
	_, ok := m.found[pair{state, emission}]
	m.mu.RUnlock()
	return ok
}

// estimate smooths an unseen state/token pair by suffix back-off: the
// state prior is refined with P(state | suffix) for each suffix length
// from shortest to the longest suffix seen in training.
func (m *EmissionModel) estimate(state, emission int) float64 {
	token := []rune(m.symbols.EmissionName(emission))
	max := m.maxSuffixLen
	if len(token) < max {
		max = len(token)
	}
	suffix := token[len(token)-max:]
	for len(suffix) > 0 {
		if id, ok := m.symbols.SuffixID(string(suffix)); ok && m.suffixCounts[id] > 0 {
			break
		}
		suffix = suffix[1:]
	}

	acc := m.prior(state)
	for i := 1; i <= len(suffix); i++ {
		acc = (acc*m.theta + m.conditional(state, string(suffix[len(suffix)-i:]))) / (1 + m.theta)
	}
	return acc
}

// prior is P(state): relative frequency over the training tokens.
func (m *EmissionModel) prior(state int) float64 {
	if m.tokenN == 0 {
		return 0
	}
	return m.stateCounts[state] / m.tokenN
}

// conditional is P(state | suffix); zero when the suffix is unknown.
func (m *EmissionModel) conditional(state int, suffix string) float64 {
	id, ok := m.symbols.SuffixID(suffix)
	if !ok {
		return 0
	}
	freq := m.suffixCounts[id]
	if freq == 0 {
		return 0
	}
	return m.stateSuffixCounts[stateSuffix{state, id}] / freq
}

// Theta is the suffix-smoothing trust weight frozen at train time.
func (m *EmissionModel) Theta() float64 {
	return m.theta
}
