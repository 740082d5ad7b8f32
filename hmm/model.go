package hmm

import (
	"github.com/presic/chunker/symbols"
	"fmt"
	"io"
)

// Model bundles the symbol table, transition and emission estimates of
// one trained tagger. A zero-value Model does nothing until Train or
// Load has run.
type Model struct {
	Symbols     *symbols.Table
	Transitions *TransitionModel
	Emissions   *EmissionModel

	// BeamFactor and MaxSuffixLen are the decoding and smoothing
	// constants. BeamFactor may be changed before any Tag call;
	// MaxSuffixLen only takes effect when set before Train or Load,
	// because the suffix estimator is built then.
	BeamFactor   float64
	MaxSuffixLen int

	mode    Mode
	trained bool

	// Ids of the synthetic start/end symbols in the state and
	// emission spaces.
	s0Q, s1Q, endQ int
	s0E, s1E, endE int
}

func New() *Model {
	return &Model{
		BeamFactor:   DefaultBeamFactor,
		MaxSuffixLen: DefaultMaxSuffixLen,
	}
}

// Mode reports what the model was trained for.
func (m *Model) Mode() Mode {
	return m.mode
}

// StateN returns the number of states, zero before training.
func (m *Model) StateN() int {
	if m.Symbols == nil {
		return 0
	}
	return m.Symbols.StateCount()
}

// EmissionN returns the number of emissions, zero before training.
func (m *Model) EmissionN() int {
	if m.Symbols == nil {
		return 0
	}
	return m.Symbols.EmissionCount()
}

// Ready reports whether the model can decode.
func (m *Model) Ready() bool {
	return m.trained
}

// Train resets the model and learns probabilities and symbol ids from
// the corpus stream. The start and end symbols are interned before any
// corpus symbol so their ids never depend on corpus content. N-gram
// windows are reseeded with (S0, S1) at every sentence start and the
// last two states of a sentence transition into END at its boundary.
// Suffix counts for back-off smoothing are only collected in POS mode.
// A malformed record aborts training: silently wrong counts would
// corrupt every downstream probability.
func (m *Model) Train(src RecordReader, mode Mode) error {
	m.Symbols = symbols.NewTable()
	m.Transitions = newTransitionModel()
	m.Emissions = newEmissionModel(m.Symbols, m.MaxSuffixLen)
	m.mode = mode
	m.trained = false

	var tokenN float64
	unigrams := make(map[int]float64)
	bigrams := make(map[bigram]float64)
	trigrams := make(map[trigram]float64)
	stateCounts := make(map[int]float64)
	suffixCounts := make(map[int]float64)
	stateSuffixCounts := make(map[stateSuffix]float64)

	m.internSpecials()
	unigrams[m.s0Q]++
	unigrams[m.s1Q]++
	bigrams[bigram{m.s0Q, m.s1Q}]++
	m.Emissions.add(m.endQ, m.endE)
	m.Emissions.add(m.s0Q, m.s0E)
	m.Emissions.add(m.s1Q, m.s1E)

	// sentence holds the state ids of the current sentence so far.
	var sentence []int
	endSentence := func() {
		if n := len(sentence); n >= 2 {
			trigrams[trigram{sentence[n-2], sentence[n-1], m.endQ}]++
		}
		if n := len(sentence); n >= 1 {
			bigrams[bigram{sentence[n-1], m.endQ}]++
		}
		if len(sentence) > 0 {
			unigrams[m.endQ]++
			stateCounts[m.endQ]++
			stateCounts[m.s0Q]++
			stateCounts[m.s1Q]++
		}
		sentence = sentence[:0]
	}

	for {
		rec, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("hmm: reading training corpus: %w", err)
		}
		if rec.Boundary {
			endSentence()
			continue
		}

		q := m.Symbols.State(rec.State)
		e := m.Symbols.Emission(rec.Emission)
		m.Emissions.add(q, e)
		if mode == POS {
			stateCounts[q]++
			for _, s := range rec.Suffixes {
				id := m.Symbols.Suffix(s)
				suffixCounts[id]++
				stateSuffixCounts[stateSuffix{q, id}]++
			}
		}

		switch len(sentence) {
		case 0:
			trigrams[trigram{m.s0Q, m.s1Q, q}]++
		case 1:
			trigrams[trigram{m.s1Q, sentence[0], q}]++
		default:
			trigrams[trigram{sentence[len(sentence)-2], sentence[len(sentence)-1], q}]++
		}
		if len(sentence) == 0 {
			bigrams[bigram{m.s1Q, q}]++
		} else {
			bigrams[bigram{sentence[len(sentence)-1], q}]++
		}
		unigrams[q]++

		sentence = append(sentence, q)
		tokenN++
	}
	// A corpus that does not end with a blank line still closes its
	// last sentence.
	endSentence()

	m.Emissions.normalize(m.Symbols.StateCount(), m.Symbols.EmissionCount())
	if mode == POS {
		m.Emissions.train(stateCounts, suffixCounts, stateSuffixCounts, tokenN)
	}
	m.Transitions.train(unigrams, bigrams, trigrams, tokenN)
	m.trained = true
	return nil
}

// Tag returns the most likely label for every token, in input order.
func (m *Model) Tag(tokens []string) ([]string, error) {
	if !m.trained {
		return nil, ErrNotReady
	}
	observations := m.Symbols.EmissionIDs(tokens...)
	path := m.decoder().BestPath(observations)
	return m.Symbols.StateNames(path), nil
}

// TagIDs decodes emission ids directly, interning nothing.
func (m *Model) TagIDs(observations []int) ([]int, error) {
	if !m.trained {
		return nil, ErrNotReady
	}
	return m.decoder().BestPath(observations), nil
}

func (m *Model) decoder() *Decoder {
	return &Decoder{
		Transitions: m.Transitions,
		Emissions:   m.Emissions,
		StateN:      m.Symbols.StateCount(),
		Start0:      m.s0Q,
		Start1:      m.s1Q,
		End:         m.endQ,
		EndEmission: m.endE,
		BeamFactor:  m.BeamFactor,
	}
}

// internSpecials assigns the synthetic symbols their ids. Interning is
// idempotent, so calling this after a load resolves the same ids the
// probability tables were built with.
func (m *Model) internSpecials() {
	m.s0Q = m.Symbols.State(StartSymbol0)
	m.s1Q = m.Symbols.State(StartSymbol1)
	m.s0E = m.Symbols.Emission(StartSymbol0)
	m.s1E = m.Symbols.Emission(StartSymbol1)
	m.endQ = m.Symbols.State(EndSymbol)
	m.endE = m.Symbols.Emission(EndSymbol)
}
