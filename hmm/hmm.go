// Package hmm implements a second-order hidden Markov model sequence
// tagger: smoothed probability estimation from a tagged corpus and a
// beam-pruned Viterbi decoder over state trigrams. Method and maths
// follow Brants (2000), supplemented with details from Park et al.
// (2014) for the second-order decoding.
package hmm

import (
	"errors"
	"fmt"
)

// Mode selects which corpus columns and smoothing branch a model is
// trained with.
type Mode int

const (
	// Chunk models tag chunk labels given part-of-speech tags. Every
	// state/emission pair is expected in training data, so no suffix
	// smoothing is trained.
	Chunk Mode = iota
	// POS models tag part-of-speech given raw tokens and use suffix
	// back-off for out-of-vocabulary tokens.
	POS
)

// ParseMode maps the external mode names "chunk" and "pos" to a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "chunk":
		return Chunk, nil
	case "pos":
		return POS, nil
	}
	return 0, fmt.Errorf("unknown tagging mode %q", name)
}

func (m Mode) String() string {
	if m == POS {
		return "pos"
	}
	return "chunk"
}

// Synthetic symbols seeding the trigram context before a sentence and
// terminating it. They are interned before any corpus symbol so their
// ids are identical across training runs and loads.
const (
	StartSymbol0 = "S0"
	StartSymbol1 = "S1"
	EndSymbol    = "END"
)

var (
	// ErrNotReady is returned when decoding is requested before a
	// model has been trained or loaded.
	ErrNotReady = errors.New("hmm: model is not trained")
	// ErrBadModel is returned when a persisted model artifact cannot
	// be decoded or fails its integrity check.
	ErrBadModel = errors.New("hmm: model artifact is corrupt")
)

// Record is one tagged token from a training corpus. Boundary records
// mark the blank line between sentences and carry no symbols.
type Record struct {
	Emission string
	State    string
	Suffixes []string
	Boundary bool
}

// RecordReader streams tagged corpus records. Read returns io.EOF at
// the end of the corpus; any other error aborts training.
type RecordReader interface {
	Read() (Record, error)
}

// TransitionScorer yields P(k | i, j) for state trigrams.
type TransitionScorer interface {
	Probability(k, i, j int) float64
	Contains(k, i, j int) bool
}

// EmissionScorer yields P(emission | state).
type EmissionScorer interface {
	Probability(state, emission int) float64
	Contains(state, emission int) bool
}
