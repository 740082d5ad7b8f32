package chunker

import (
	"github.com/presic/chunker/hmm"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"strings"
	"testing"
)

func corpusLine(token, tag, chunk string) string {
	return strings.Join([]string{"_", token, "_", tag, "_", chunk, "0", "_"}, "\t")
}

func testCorpus() string {
	var b strings.Builder
	sentences := [][][3]string{
		{{"the", "DET", "B-NP"}, {"dog", "NOUN", "I-NP"}, {"runs", "VERB", "B-VC"}},
		{{"the", "DET", "B-NP"}, {"cat", "NOUN", "I-NP"}, {"sleeps", "VERB", "B-VC"}},
		{{"a", "DET", "B-NP"}, {"dog", "NOUN", "I-NP"}, {"barks", "VERB", "B-VC"}},
		{{"the", "DET", "B-NP"}, {"bird", "NOUN", "I-NP"}, {"sings", "VERB", "B-VC"}},
	}
	for _, sentence := range sentences {
		for _, tok := range sentence {
			b.WriteString(corpusLine(tok[0], tok[1], tok[2]) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func trainedChunker(t *testing.T) *Chunker {
	t.Helper()
	c := New()
	require.NoError(t, c.Train(strings.NewReader(testCorpus()), hmm.POS))
	require.NoError(t, c.Train(strings.NewReader(testCorpus()), hmm.Chunk))
	return c
}

func TestTagPOS(t *testing.T) {
	c := trainedChunker(t)
	tags, err := c.Tag([]string{"the", "dog", "runs"}, hmm.POS)
	require.NoError(t, err)
	require.Equal(t, []string{"DET", "NOUN", "VERB"}, tags)
}

func TestTagChunk(t *testing.T) {
	c := trainedChunker(t)
	chunks, err := c.Tag([]string{"the", "dog", "runs"}, hmm.Chunk)
	require.NoError(t, err)
	require.Equal(t, []string{"B-NP", "I-NP", "B-VC"}, chunks)
}

func TestTagWithoutModels(t *testing.T) {
	c := New()
	_, err := c.Tag([]string{"the"}, hmm.POS)
	require.ErrorIs(t, err, hmm.ErrNotReady)

	posOnly := New()
	require.NoError(t, posOnly.Train(strings.NewReader(testCorpus()), hmm.POS))
	_, err = posOnly.Tag([]string{"the"}, hmm.Chunk)
	require.ErrorIs(t, err, hmm.ErrNotReady)
}

func TestTagFile(t *testing.T) {
	c := trainedChunker(t)
	input := strings.Join([]string{
		corpusLine("the", "DET", "_"),
		corpusLine("dog", "NOUN", "_"),
		corpusLine("runs", "VERB", "_"),
		"",
	}, "\n")

	var out strings.Builder
	require.NoError(t, c.TagFile(strings.NewReader(input), &out, hmm.Chunk))

	want := strings.Join([]string{
		corpusLine("the", "DET", "B-NP"),
		corpusLine("dog", "NOUN", "I-NP"),
		corpusLine("runs", "VERB", "B-VC"),
		"",
	}, "\n") + "\n"
	require.Equal(t, want, out.String())
}

// A file that ends mid-sentence still gets its last sentence tagged.
func TestTagFileWithoutTrailingBlank(t *testing.T) {
	c := trainedChunker(t)
	input := corpusLine("the", "_", "_") + "\n" + corpusLine("dog", "_", "_")

	var out strings.Builder
	require.NoError(t, c.TagFile(strings.NewReader(input), &out, hmm.POS))

	want := corpusLine("the", "DET", "_") + "\n" + corpusLine("dog", "NOUN", "_") + "\n"
	require.Equal(t, want, out.String())
}

func TestTagText(t *testing.T) {
	c := trainedChunker(t)
	sentences, err := c.TagText("the dog runs\n\nthe cat sleeps\n", hmm.Chunk)
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	require.Equal(t, []TaggedToken{
		{Token: "the", Tag: "DET", Chunk: "B-NP"},
		{Token: "dog", Tag: "NOUN", Chunk: "I-NP"},
		{Token: "runs", Tag: "VERB", Chunk: "B-VC"},
	}, sentences[0])
	require.Equal(t, "sleeps", sentences[1][2].Token)
	require.Equal(t, "VERB", sentences[1][2].Tag)
}

func TestTagTextPOSOnly(t *testing.T) {
	c := trainedChunker(t)
	sentences, err := c.TagText("a bird sings", hmm.POS)
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	for _, tok := range sentences[0] {
		require.Empty(t, tok.Chunk)
	}
}

func TestSaveAndLoadModels(t *testing.T) {
	c := trainedChunker(t)
	dir := t.TempDir()
	posPath := filepath.Join(dir, "pos.model")
	chunkPath := filepath.Join(dir, "chunk.model")
	require.NoError(t, c.SaveModel(posPath, hmm.POS))
	require.NoError(t, c.SaveModel(chunkPath, hmm.Chunk))

	loaded := New()
	require.NoError(t, loaded.LoadModel(posPath, hmm.POS))
	require.NoError(t, loaded.LoadModel(chunkPath, hmm.Chunk))

	chunks, err := loaded.Tag([]string{"the", "dog", "runs"}, hmm.Chunk)
	require.NoError(t, err)
	require.Equal(t, []string{"B-NP", "I-NP", "B-VC"}, chunks)
}

func TestSaveModelMissing(t *testing.T) {
	c := New()
	err := c.SaveModel(filepath.Join(t.TempDir(), "pos.model"), hmm.POS)
	require.ErrorIs(t, err, hmm.ErrNotReady)
}

func TestFromConfig(t *testing.T) {
	c := trainedChunker(t)
	dir := t.TempDir()
	posPath := filepath.Join(dir, "pos.model")
	chunkPath := filepath.Join(dir, "chunk.model")
	require.NoError(t, c.SaveModel(posPath, hmm.POS))
	require.NoError(t, c.SaveModel(chunkPath, hmm.Chunk))

	cfg := DefaultConfig()
	cfg.POSModelPath = posPath
	cfg.ChunkModelPath = chunkPath
	cfg.BeamFactor = 0.01

	loaded, err := FromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, 0.01, loaded.Model(hmm.POS).BeamFactor)

	chunks, err := loaded.Tag([]string{"the", "dog", "runs"}, hmm.Chunk)
	require.NoError(t, err)
	require.Equal(t, []string{"B-NP", "I-NP", "B-VC"}, chunks)
}

// The suffix bound has to be in place before the artifact is read; a
// config-loaded model must give the same out-of-vocabulary estimates
// as a model whose bound was set by hand before LoadFile.
func TestFromConfigSuffixLengthReachesEstimator(t *testing.T) {
	c := trainedChunker(t)
	posPath := filepath.Join(t.TempDir(), "pos.model")
	require.NoError(t, c.SaveModel(posPath, hmm.POS))

	cfg := DefaultConfig()
	cfg.POSModelPath = posPath
	cfg.MaxSuffixLen = 1

	loaded, err := FromConfig(cfg)
	require.NoError(t, err)
	pos := loaded.Model(hmm.POS)
	require.Equal(t, 1, pos.MaxSuffixLen)

	ref := hmm.New()
	ref.MaxSuffixLen = 1
	require.NoError(t, ref.LoadFile(posPath))

	wide := hmm.New()
	require.NoError(t, wide.LoadFile(posPath))

	// "walks" backs off through "ks" and "s"; bounding the suffix
	// length to 1 keeps only "s", so the estimate must match the
	// reference and differ from an unbounded load.
	estimate := func(m *hmm.Model) float64 {
		return m.Emissions.Probability(m.Symbols.State("VERB"), m.Symbols.Emission("walks"))
	}
	got := estimate(pos)
	require.Equal(t, estimate(ref), got)
	require.NotEqual(t, estimate(wide), got)
}
