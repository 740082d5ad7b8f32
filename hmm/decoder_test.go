package hmm

import (
	"math"
	"math/rand"
	"testing"
)

// randomScorer returns pseudo-random probabilities derived from the
// query key alone, so the same seed yields the same model no matter in
// which order a decoder asks.
type randomScorer struct {
	seed int64
}

func (s randomScorer) at(parts ...int64) float64 {
	key := s.seed
	for _, p := range parts {
		key = key*1000003 + p + 7919
	}
	return rand.New(rand.NewSource(key)).Float64()
}

func (s randomScorer) Probability(k, i, j int) float64 {
	return s.at(0, int64(k), int64(i), int64(j))
}

func (s randomScorer) Contains(k, i, j int) bool { return true }

type randomEmitter struct {
	randomScorer
}

func (s randomEmitter) Probability(state, emission int) float64 {
	return s.at(1, int64(state), int64(emission))
}

func (s randomEmitter) Contains(state, emission int) bool { return true }

// pathScore recomputes the probability the decoder maximizes, without
// the constant end-emission factor.
func pathScore(d *Decoder, observations, path []int) float64 {
	a := d.Transitions
	b := d.Emissions
	T := len(observations)
	score := a.Probability(path[0], d.Start0, d.Start1) * b.Probability(path[0], observations[0])
	if T == 1 {
		return score * a.Probability(d.End, d.Start1, path[0])
	}
	score *= a.Probability(path[1], d.Start1, path[0]) * b.Probability(path[1], observations[1])
	for t := 2; t < T; t++ {
		score *= a.Probability(path[t], path[t-2], path[t-1]) * b.Probability(path[t], observations[t])
	}
	return score * a.Probability(d.End, path[T-2], path[T-1])
}

// bestScoreExhaustive enumerates every state sequence.
func bestScoreExhaustive(d *Decoder, observations []int) float64 {
	T := len(observations)
	path := make([]int, T)
	best := -1.0
	var walk func(t int)
	walk = func(t int) {
		if t == T {
			if s := pathScore(d, observations, path); s > best {
				best = s
			}
			return
		}
		for q := 0; q < d.StateN; q++ {
			path[t] = q
			walk(t + 1)
		}
	}
	walk(0)
	return best
}

func newTestDecoder(seed int64, beamFactor float64) *Decoder {
	scorer := randomScorer{seed: seed}
	return &Decoder{
		Transitions: scorer,
		Emissions:   randomEmitter{scorer},
		StateN:      5,
		Start0:      0,
		Start1:      1,
		End:         2,
		EndEmission: 2,
		BeamFactor:  beamFactor,
	}
}

func TestBestPathMatchesExhaustiveSearch(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		for T := 1; T <= 5; T++ {
			d := newTestDecoder(seed, 0)
			observations := make([]int, T)
			for i := range observations {
				observations[i] = 10 + i
			}
			path := d.BestPath(observations)
			if len(path) != T {
				t.Fatalf("seed %d T=%d: got path of length %d", seed, T, len(path))
			}
			got := pathScore(d, observations, path)
			want := bestScoreExhaustive(d, observations)
			if math.Abs(got-want) > 1e-12 {
				t.Errorf("seed %d T=%d: decoded path scores %g, exhaustive best is %g (path %v)",
					seed, T, got, want, path)
			}
		}
	}
}

func TestBestPathEmptyInput(t *testing.T) {
	d := newTestDecoder(1, 0)
	if path := d.BestPath(nil); path != nil {
		t.Errorf("expected nil path for no observations, got %v", path)
	}
}

// Pruning may only lose probability mass, never gain it.
func TestBeamNeverBeatsExactSearch(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		observations := []int{10, 11, 12, 13, 14, 15}

		exact := newTestDecoder(seed, 0)
		exactScore := pathScore(exact, observations, exact.BestPath(observations))

		pruned := newTestDecoder(seed, 0.5)
		prunedScore := pathScore(pruned, observations, pruned.BestPath(observations))

		if prunedScore > exactScore+1e-12 {
			t.Errorf("seed %d: pruned search scored %g, above exact %g", seed, prunedScore, exactScore)
		}
	}
}

func TestArgmaxPrefersFirstMaximum(t *testing.T) {
	if got := argmax([]float64{0.2, 0.7, 0.7, 0.1}); got != 1 {
		t.Errorf("argmax = %d, want first maximal index 1", got)
	}
}
