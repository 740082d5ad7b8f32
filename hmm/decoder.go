package hmm

// DefaultBeamFactor is the beam pruning threshold: after each Viterbi
// row only states scoring at least this fraction of the row maximum
// are kept. Pruning can drop the global optimum.
const DefaultBeamFactor = 0.001

// Decoder finds the most likely hidden state path for an emission
// sequence using second-order Viterbi search with beam pruning.
// Probabilities are accumulated as plain products.
type Decoder struct {
	Transitions TransitionScorer
	Emissions   EmissionScorer
	StateN      int

	// State ids of the synthetic start and end symbols, and the
	// emission id of the end token.
	Start0, Start1, End int
	EndEmission         int

	BeamFactor float64
}

// BestPath returns the most likely state id sequence for the observed
// emission ids, one state per observation. Sequences of length one and
// two are solved by exact enumeration; longer sequences run the beamed
// trigram recursion terminated by a transition into the end state.
func (d *Decoder) BestPath(observations []int) []int {
	a, b := d.Transitions, d.Emissions
	T, N := len(observations), d.StateN
	if T == 0 {
		return nil
	}

	if T == 1 {
		v0 := make([]float64, N)
		for k := 0; k < N; k++ {
			v0[k] = a.Probability(k, d.Start0, d.Start1) *
				b.Probability(k, observations[0]) *
				a.Probability(d.End, d.Start1, k)
		}
		return []int{argmax(v0)}
	}

	if T == 2 {
		v0 := make([]float64, N)
		for k := 0; k < N; k++ {
			v0[k] = a.Probability(k, d.Start0, d.Start1) * b.Probability(k, observations[0])
		}
		bestP, q0, q1 := -1.0, 0, 0
		for k := 0; k < N; k++ {
			emit := b.Probability(k, observations[1])
			for j := 0; j < N; j++ {
				p := a.Probability(k, d.Start1, j) * v0[j] * emit * a.Probability(d.End, j, k)
				if p > bestP {
					bestP, q0, q1 = p, j, k
				}
			}
		}
		return []int{q0, q1}
	}

	// First row over single states, with beam.
	v0 := make([]float64, N)
	for k := 0; k < N; k++ {
		v0[k] = a.Probability(k, d.Start0, d.Start1) * b.Probability(k, observations[0])
	}
	threshold := sliceMax(v0) * d.BeamFactor
	var beamJ []int
	for j := 0; j < N; j++ {
		if v0[j] >= threshold {
			beamJ = append(beamJ, j)
		}
	}

	// Second row over state pairs; vt[k][j] is the best score of a
	// path ending in (j, k).
	vt := newRows(N)
	for k := 0; k < N; k++ {
		emit := b.Probability(k, observations[1])
		for _, j := range beamJ {
			vt[k][j] = a.Probability(k, d.Start1, j) * v0[j] * emit
		}
	}
	beamK := prune(vt, d.BeamFactor)

	// back[t][j][k] is the predecessor i that maximized the move from
	// (i, j) at position t to k at position t+1.
	back := make([][][]int, T)
	finalBack := make([]int, N)

	for t := 2; t <= T; t++ {
		beamI := beamJ
		beamJ = beamK
		prev := vt
		vt = newRows(N)
		back[t-1] = newIntRows(N)

		for k := 0; k < N; k++ {
			var emit float64
			if t < T {
				emit = b.Probability(k, observations[t])
			} else {
				emit = b.Probability(k, d.EndEmission)
			}
			for _, j := range beamJ {
				bestP, bestI := -1.0, 0
				for _, i := range beamI {
					p := a.Probability(k, i, j) * prev[j][i] * emit
					if p > bestP {
						bestP, bestI = p, i
					}
				}
				vt[k][j] = bestP
				back[t-1][j][k] = bestI
			}
			if t == T {
				finalBack[k] = argmax(vt[k])
			}
		}
		beamK = prune(vt, d.BeamFactor)
	}

	// Walk the backpointers from the end state, then drop the virtual
	// terminal.
	seq := make([]int, T+1)
	seq[T] = d.End
	j := finalBack[d.End]
	for t := T - 1; t >= 1; t-- {
		seq[t] = j
		j = back[t][j][seq[t+1]]
	}
	seq[0] = j
	return seq[:T]
}

// prune keeps the states whose best pair score reaches the beam
// threshold relative to the row's global maximum.
func prune(vt [][]float64, beamFactor float64) []int {
	var globalMax float64
	for _, row := range vt {
		if m := sliceMax(row); m > globalMax {
			globalMax = m
		}
	}
	threshold := globalMax * beamFactor
	var beam []int
	for k, row := range vt {
		if sliceMax(row) >= threshold {
			beam = append(beam, k)
		}
	}
	return beam
}

func newRows(n int) [][]float64 {
	rows := make([][]float64, n)
	cells := make([]float64, n*n)
	for i := range rows {
		rows[i] = cells[i*n : (i+1)*n]
	}
	return rows
}

func newIntRows(n int) [][]int {
	rows := make([][]int, n)
	cells := make([]int, n*n)
	for i := range rows {
		rows[i] = cells[i*n : (i+1)*n]
	}
	return rows
}

// argmax returns the index of the first maximum.
func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}

func sliceMax(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
