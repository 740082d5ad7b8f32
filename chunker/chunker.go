// Package chunker ties the statistical models together: a POS model
// tags raw tokens and, when chunking, a second model tags the
// resulting part-of-speech sequence with IOB2 chunk labels.
package chunker

import (
	"github.com/presic/chunker/conll"
	"github.com/presic/chunker/hmm"
	"github.com/presic/chunker/logger"
	"bufio"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"strings"
	"sync"
)

type Chunker struct {
	pos   *hmm.Model
	chunk *hmm.Model
	log   zerolog.Logger
}

func New() *Chunker {
	return &Chunker{
		log: logger.NewLogger("Chunker"),
	}
}

// SetModel installs an already trained or loaded model for a mode.
func (c *Chunker) SetModel(model *hmm.Model, mode hmm.Mode) {
	if mode == hmm.POS {
		c.pos = model
	} else {
		c.chunk = model
	}
}

// Model returns the installed model for a mode, nil when absent.
func (c *Chunker) Model(mode hmm.Mode) *hmm.Model {
	if mode == hmm.POS {
		return c.pos
	}
	return c.chunk
}

// LoadModel reads a persisted model artifact and installs it.
func (c *Chunker) LoadModel(path string, mode hmm.Mode) error {
	model := hmm.New()
	if err := model.LoadFile(path); err != nil {
		return err
	}
	c.SetModel(model, mode)
	c.log.Info().Str("path", path).Int("states", model.StateN()).
		Int("emissions", model.EmissionN()).Msg("Loaded model")
	return nil
}

// SaveModel persists the installed model for a mode.
func (c *Chunker) SaveModel(path string, mode hmm.Mode) error {
	model := c.Model(mode)
	if model == nil {
		return hmm.ErrNotReady
	}
	if err := model.SaveFile(path); err != nil {
		return err
	}
	c.log.Info().Str("path", path).Msg("Saved model")
	return nil
}

// Train builds a fresh model for the mode from a CoNLL corpus and
// installs it.
func (c *Chunker) Train(corpus io.Reader, mode hmm.Mode) error {
	model := hmm.New()
	if err := model.Train(conll.NewReader(corpus, mode), mode); err != nil {
		return err
	}
	c.log.Info().Int("states", model.StateN()).Int("emissions", model.EmissionN()).
		Msg("Trained model")
	c.SetModel(model, mode)
	return nil
}

// Tag labels a token sequence. In POS mode the result is the tag per
// token; in Chunk mode the POS pass runs first and its output is fed
// to the chunk model. A missing required model returns ErrNotReady.
func (c *Chunker) Tag(tokens []string, mode hmm.Mode) ([]string, error) {
	if c.pos == nil {
		return nil, fmt.Errorf("no part-of-speech model installed: %w", hmm.ErrNotReady)
	}
	tags, err := c.pos.Tag(tokens)
	if err != nil {
		return nil, err
	}
	if mode == hmm.POS {
		return tags, nil
	}
	if c.chunk == nil {
		return nil, fmt.Errorf("no chunk model installed: %w", hmm.ErrNotReady)
	}
	return c.chunk.Tag(tags)
}

// TagFile annotates a CoNLL file, rewriting the tag column (POS mode)
// or the chunk column (Chunk mode) of every token line.
func (c *Chunker) TagFile(in io.Reader, out io.Writer, mode hmm.Mode) error {
	column := conll.ColChunk
	if mode == hmm.POS {
		column = conll.ColTag
	}

	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	var tokens []string
	var rawLines []string

	flush := func() error {
		if len(tokens) == 0 {
			return nil
		}
		labels, err := c.Tag(tokens, mode)
		if err != nil {
			return err
		}
		for i, label := range labels {
			cols := strings.Split(rawLines[i], "\t")
			cols[column] = label
			if _, err := w.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
				return err
			}
		}
		tokens = tokens[:0]
		rawLines = rawLines[:0]
		return nil
	}

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			if _, err := w.WriteString("\n"); err != nil {
				return err
			}
			continue
		}
		token, err := conll.ParseToken(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		tokens = append(tokens, token)
		rawLines = append(rawLines, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	return w.Flush()
}

// TaggedToken is one labeled token of a tagged sentence.
type TaggedToken struct {
	Token string `json:"token"`
	Tag   string `json:"tag"`
	Chunk string `json:"chunk,omitempty"`
}

// TagText labels plain text, one sentence per line with
// whitespace-separated tokens. Sentences are independent, so they are
// decoded concurrently; the models' lazy caches are safe for that.
func (c *Chunker) TagText(text string, mode hmm.Mode) ([][]TaggedToken, error) {
	var sentences [][]string
	for _, line := range strings.Split(text, "\n") {
		tokens := strings.Fields(line)
		if len(tokens) > 0 {
			sentences = append(sentences, tokens)
		}
	}

	results := make([][]TaggedToken, len(sentences))
	errs := make([]error, len(sentences))
	var wg sync.WaitGroup
	for i, tokens := range sentences {
		wg.Add(1)
		go func(i int, tokens []string) {
			defer wg.Done()
			results[i], errs[i] = c.tagSentence(tokens, mode)
		}(i, tokens)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (c *Chunker) tagSentence(tokens []string, mode hmm.Mode) ([]TaggedToken, error) {
	if c.pos == nil {
		return nil, fmt.Errorf("no part-of-speech model installed: %w", hmm.ErrNotReady)
	}
	tags, err := c.pos.Tag(tokens)
	if err != nil {
		return nil, err
	}
	out := make([]TaggedToken, len(tokens))
	for i := range tokens {
		out[i] = TaggedToken{Token: tokens[i], Tag: tags[i]}
	}
	if mode == hmm.POS {
		return out, nil
	}
	if c.chunk == nil {
		return nil, fmt.Errorf("no chunk model installed: %w", hmm.ErrNotReady)
	}
	chunks, err := c.chunk.Tag(tags)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Chunk = chunks[i]
	}
	return out, nil
}
