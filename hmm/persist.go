package hmm

import (
	"github.com/presic/chunker/symbols"
	"encoding/json"
	"fmt"
	"github.com/twmb/murmur3"
	"io"
	"os"
)

// The persisted artifact is a stream of three JSON documents: a header
// carrying format, version, mode and a murmur3 checksum of the
// payload, then the transition model, then the emission model. The
// symbol-to-id tables are stored explicitly inside the emission
// payload, so loaded ids are byte-for-byte those the probability
// tables were built with.
const (
	artifactFormat  = "hmm-tagger"
	artifactVersion = 1
)

type artifactHeader struct {
	Format   string `json:"format"`
	Version  int    `json:"version"`
	Mode     Mode   `json:"mode"`
	Checksum uint64 `json:"checksum"`
}

type bigramEntry struct {
	T1 int     `json:"t1"`
	T2 int     `json:"t2"`
	N  float64 `json:"n"`
}

type trigramEntry struct {
	T1 int     `json:"t1"`
	T2 int     `json:"t2"`
	T3 int     `json:"t3"`
	N  float64 `json:"n"`
}

type stateSuffixEntry struct {
	State  int     `json:"q"`
	Suffix int     `json:"s"`
	N      float64 `json:"n"`
}

type transitionWire struct {
	Lambdas  [3]float64      `json:"lambdas"`
	Unigrams map[int]float64 `json:"unigrams"`
	Bigrams  []bigramEntry   `json:"bigrams"`
	Trigrams []trigramEntry  `json:"trigrams"`
	TokenN   float64         `json:"token_n"`
}

type emissionWire struct {
	States            []string           `json:"states"`
	Emissions         []string           `json:"emissions"`
	Suffixes          []string           `json:"suffixes"`
	Rows              int                `json:"rows"`
	Cols              int                `json:"cols"`
	Probs             []float64          `json:"probs"`
	Theta             float64            `json:"theta"`
	StateCounts       map[int]float64    `json:"state_counts"`
	SuffixCounts      map[int]float64    `json:"suffix_counts"`
	StateSuffixCounts []stateSuffixEntry `json:"state_suffix_counts"`
	TokenN            float64            `json:"token_n"`
}

// Save writes the trained transition and emission models, in that
// order, behind a checksummed header. The lazy caches are deliberately
// not persisted; they refill at inference time.
func (m *Model) Save(w io.Writer) error {
	if !m.trained {
		return ErrNotReady
	}

	trans, err := json.Marshal(m.transitionWire())
	if err != nil {
		return fmt.Errorf("hmm: encoding transition model: %w", err)
	}
	emis, err := json.Marshal(m.emissionWire())
	if err != nil {
		return fmt.Errorf("hmm: encoding emission model: %w", err)
	}

	header := artifactHeader{
		Format:   artifactFormat,
		Version:  artifactVersion,
		Mode:     m.mode,
		Checksum: payloadChecksum(trans, emis),
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("hmm: writing model header: %w", err)
	}
	if err := enc.Encode(json.RawMessage(trans)); err != nil {
		return fmt.Errorf("hmm: writing transition model: %w", err)
	}
	if err := enc.Encode(json.RawMessage(emis)); err != nil {
		return fmt.Errorf("hmm: writing emission model: %w", err)
	}
	return nil
}

// Load reads an artifact written by Save. A failure to decode or a
// checksum mismatch surfaces as ErrBadModel; a missing file surfaces
// as the caller's open error, keeping the two cases distinct.
func (m *Model) Load(r io.Reader) error {
	dec := json.NewDecoder(r)

	var header artifactHeader
	if err := dec.Decode(&header); err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrBadModel, err)
	}
	if header.Format != artifactFormat {
		return fmt.Errorf("%w: unknown format %q", ErrBadModel, header.Format)
	}
	if header.Version != artifactVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadModel, header.Version)
	}

	var trans, emis json.RawMessage
	if err := dec.Decode(&trans); err != nil {
		return fmt.Errorf("%w: reading transition model: %v", ErrBadModel, err)
	}
	if err := dec.Decode(&emis); err != nil {
		return fmt.Errorf("%w: reading emission model: %v", ErrBadModel, err)
	}
	if sum := payloadChecksum(trans, emis); sum != header.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrBadModel)
	}

	var tw transitionWire
	if err := json.Unmarshal(trans, &tw); err != nil {
		return fmt.Errorf("%w: decoding transition model: %v", ErrBadModel, err)
	}
	var ew emissionWire
	if err := json.Unmarshal(emis, &ew); err != nil {
		return fmt.Errorf("%w: decoding emission model: %v", ErrBadModel, err)
	}
	if len(ew.Probs) != ew.Rows*ew.Cols {
		return fmt.Errorf("%w: emission matrix is %dx%d but has %d cells",
			ErrBadModel, ew.Rows, ew.Cols, len(ew.Probs))
	}

	if m.MaxSuffixLen == 0 {
		m.MaxSuffixLen = DefaultMaxSuffixLen
	}
	m.Symbols = symbols.Rebuild(ew.States, ew.Emissions, ew.Suffixes)
	m.Transitions = tw.restore()
	m.Emissions = ew.restore(m.Symbols, m.MaxSuffixLen)
	m.mode = header.Mode
	m.internSpecials()
	m.trained = true
	return nil
}

// SaveFile persists the model at path.
func (m *Model) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile loads a model artifact from path. The caller can tell a
// missing file (os.IsNotExist on the returned error) from a corrupt
// one (errors.Is ErrBadModel).
func (m *Model) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Load(f)
}

func payloadChecksum(parts ...[]byte) uint64 {
	hash := murmur3.New64()
	for _, part := range parts {
		_, _ = hash.Write(part)
	}
	return hash.Sum64()
}

func (m *Model) transitionWire() transitionWire {
	t := m.Transitions
	w := transitionWire{
		Lambdas:  t.lambdas,
		Unigrams: t.unigrams,
		TokenN:   t.tokenN,
	}
	for key, n := range t.bigrams {
		w.Bigrams = append(w.Bigrams, bigramEntry{key.t1, key.t2, n})
	}
	for key, n := range t.trigrams {
		w.Trigrams = append(w.Trigrams, trigramEntry{key.t1, key.t2, key.t3, n})
	}
	return w
}

func (w transitionWire) restore() *TransitionModel {
	t := newTransitionModel()
	t.lambdas = w.Lambdas
	t.tokenN = w.TokenN
	if w.Unigrams != nil {
		t.unigrams = w.Unigrams
	}
	for _, e := range w.Bigrams {
		t.bigrams[bigram{e.T1, e.T2}] = e.N
	}
	for _, e := range w.Trigrams {
		t.trigrams[trigram{e.T1, e.T2, e.T3}] = e.N
	}
	return t
}

func (m *Model) emissionWire() emissionWire {
	e := m.Emissions
	w := emissionWire{
		States:       m.Symbols.States(),
		Emissions:    m.Symbols.Emissions(),
		Suffixes:     m.Symbols.Suffixes(),
		Rows:         e.probs.rows,
		Cols:         e.probs.cols,
		Probs:        e.probs.cells,
		Theta:        e.theta,
		StateCounts:  e.stateCounts,
		SuffixCounts: e.suffixCounts,
		TokenN:       e.tokenN,
	}
	for key, n := range e.stateSuffixCounts {
		w.StateSuffixCounts = append(w.StateSuffixCounts, stateSuffixEntry{key.state, key.suffix, n})
	}
	return w
}

func (w emissionWire) restore(tbl *symbols.Table, maxSuffixLen int) *EmissionModel {
	e := newEmissionModel(tbl, maxSuffixLen)
	e.probs = &dense{rows: w.Rows, cols: w.Cols, cells: w.Probs}
	e.theta = w.Theta
	e.tokenN = w.TokenN
	if w.StateCounts != nil {
		e.stateCounts = w.StateCounts
	}
	if w.SuffixCounts != nil {
		e.suffixCounts = w.SuffixCounts
	}
	for _, entry := range w.StateSuffixCounts {
		e.stateSuffixCounts[stateSuffix{entry.State, entry.Suffix}] = entry.N
	}
	return e
}
