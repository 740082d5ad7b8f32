// Package conll reads tab-separated CoNLL corpora: tagged training
// records for the HMM models, bare token columns for tagging, and
// Stanford dependency trees for the rule-based chunk converter.
package conll

import (
	"github.com/presic/chunker/hmm"
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Column indexes of a tab-separated CoNLL line.
const (
	ColToken  = 1
	ColTag    = 3
	ColChunk  = 5
	ColParent = 6
	ColDep    = 7
)

// MaxSuffixLen caps the suffix lengths collected per token for
// back-off smoothing.
const MaxSuffixLen = 10

func columns(line string, need int) ([]string, error) {
	cols := strings.Split(line, "\t")
	if len(cols) <= need {
		return nil, fmt.Errorf("conll: need column %d, line has %d: %q", need, len(cols), line)
	}
	return cols, nil
}

// ParsePOS extracts the token, its tag and its candidate suffixes from
// a training line.
func ParsePOS(line string) (token, tag string, suffixes []string, err error) {
	cols, err := columns(line, ColTag)
	if err != nil {
		return "", "", nil, err
	}
	return cols[ColToken], cols[ColTag], Suffixes(cols[ColToken]), nil
}

// ParseChunk extracts the tag and chunk label from a training line.
// For chunk models the tag column is the emission.
func ParseChunk(line string) (tag, chunk string, err error) {
	cols, err := columns(line, ColChunk)
	if err != nil {
		return "", "", err
	}
	return cols[ColTag], cols[ColChunk], nil
}

// ParseEval extracts the token and gold chunk label.
func ParseEval(line string) (token, chunk string, err error) {
	cols, err := columns(line, ColChunk)
	if err != nil {
		return "", "", err
	}
	return cols[ColToken], cols[ColChunk], nil
}

// ParseToken extracts the bare token column.
func ParseToken(line string) (string, error) {
	cols, err := columns(line, ColToken)
	if err != nil {
		return "", err
	}
	return cols[ColToken], nil
}

// Suffixes returns the token itself plus its proper suffixes of
// length 1 up to MaxSuffixLen-1, in runes.
func Suffixes(token string) []string {
	runes := []rune(token)
	m := len(runes)
	if m > MaxSuffixLen {
		m = MaxSuffixLen
	}
	out := make([]string, 0, m)
	for i := 0; i < m; i++ {
		if i == 0 {
			out = append(out, token)
			continue
		}
		out = append(out, string(runes[len(runes)-i:]))
	}
	return out
}

// Reader streams training records from a CoNLL corpus, one per line,
// with blank lines reported as sentence boundaries. A malformed line
// stops the stream with an error.
type Reader struct {
	scanner *bufio.Scanner
	mode    hmm.Mode
	line    int
}

func NewReader(r io.Reader, mode hmm.Mode) *Reader {
	return &Reader{
		scanner: bufio.NewScanner(r),
		mode:    mode,
	}
}

func (r *Reader) Read() (hmm.Record, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return hmm.Record{}, err
		}
		return hmm.Record{}, io.EOF
	}
	r.line++
	text := r.scanner.Text()
	if text == "" {
		return hmm.Record{Boundary: true}, nil
	}

	if r.mode == hmm.POS {
		token, tag, suffixes, err := ParsePOS(text)
		if err != nil {
			return hmm.Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return hmm.Record{Emission: token, State: tag, Suffixes: suffixes}, nil
	}
	tag, chunk, err := ParseChunk(text)
	if err != nil {
		return hmm.Record{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return hmm.Record{Emission: tag, State: chunk}, nil
}
