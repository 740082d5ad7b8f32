package chunker

import (
	"github.com/presic/chunker/conll"
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Translator converts Stanford dependency trees into IOB2 chunk tags,
// producing the chunk column the statistical chunk model trains on.
// Discontinuous phrases are treated as separate chunks. Chunk types:
//
//	NP    complete non-recursive noun phrases
//	VC    verb clusters incl. copulas and modal verbs
//	INFP  verb clusters (with particles) that are non-finite arguments
//	AP    adjective phrases not inside of NPs
//	ADVP  adverb phrases not inside of NPs or APs
//	PP    adpositions only, dominated NPs are their own chunks
//	CONJ  conjunction words
//	SUBJ  subjunction words
type Translator struct{}

// Dependency classes that always head their own phrase.
var phraseHeads = map[string]string{
	"nsubj": "NP", "nsubjpass": "NP", "iobj": "NP", "dobj": "NP",
	"nmod": "NP", "rel": "NP", "expl": "NP", "attr": "NP",
	"appos": "NP", "adpobj": "NP",

	"parataxis": "VC", "csubj": "VC", "csubjpass": "VC", "advcl": "VC",
	"rcmod": "VC", "ccomp": "VC", "adpcomp": "VC", "vmod": "VC",
	"cop": "VC", "partmod": "VC",

	"infmod": "INFP", "xcomp": "INFP",

	"adpmod": "PP",

	"cc": "CONJ",
}

// Phrase type a root node opens, by its POS tag.
var rootPhrases = map[string]string{
	"VERB": "VC",
	"NOUN": "NP",
	"ADP":  "PP",
	"PRON": "NP",
	"ADJ":  "AP",
	"ADV":  "ADVP",
	"NUM":  "ADVP",
	"PRT":  "VC",
	"CONJ": "CONJ",
	// Some of [NP], first half [of NP]
	"DET": "NP",
	// mostly $ as head of '$ 100 million', rest is garbage
	".": "NP",
	// mostly noise, some are 'oh yeah!' 'yeah!' 'damn!'
	"X": "ADVP",
}

type phrase struct {
	label string
	nodes []int
}

// TranslateTree walks the tree breadth-first, opening a new phrase at
// every dependency that heads one and joining the parent's phrase
// otherwise, then converts the phrases to one IOB2 tag per token.
func (Translator) TranslateTree(tree *conll.Tree) ([]string, error) {
	phrases := []*phrase{{label: "O"}}

	open := func(node *conll.Node, label string) {
		node.Phrase = len(phrases)
		phrases = append(phrases, &phrase{label: label, nodes: []int{node.Index}})
	}
	join := func(node *conll.Node, phraseIdx int) {
		node.Phrase = phraseIdx
		phrases[phraseIdx].nodes = append(phrases[phraseIdx].nodes, node.Index)
	}

	queue := []int{tree.Root}
	for len(queue) > 0 {
		node := tree.Nodes[queue[0]]
		queue = append(queue[1:], node.Children...)

		parentType := "ROOT"
		var parent *conll.Node
		if node.Parent != 0 {
			parent = tree.Nodes[node.Parent]
			parentType = phrases[parent.Phrase].label
		}

		switch dep := node.Dep; {
		case phraseHeads[dep] != "":
			open(node, phraseHeads[dep])
		case dep == "advmod":
			if parentType != "NP" && parentType != "AP" && parentType != "PP" && parentType != "ADVP" {
				open(node, "ADVP")
			} else {
				join(node, parent.Phrase)
			}
		case dep == "acomp" || dep == "amod":
			if parentType != "NP" && parentType != "AP" && parentType != "PP" {
				open(node, "AP")
			} else {
				join(node, parent.Phrase)
			}
		case dep == "p":
			join(node, 0)
		case dep == "conj":
			// Conjuncts adopt the parent's dependency so their own
			// subtrees classify the same way.
			node.Dep = parent.Dep
			join(node, parent.Phrase)
		case dep == "mark":
			// mark defaults to SUBJ unless marking a clausal adverbial.
			if parent != nil && parent.Dep == "advcl" {
				open(node, "ADVP")
			} else {
				open(node, "SUBJ")
			}
		case dep == "ROOT":
			label, ok := rootPhrases[node.Tag]
			if !ok {
				return nil, fmt.Errorf("chunker: unexpected root tag %q", node.Tag)
			}
			open(node, label)
		default:
			join(node, parent.Phrase)
		}
	}

	return toIOB2(tree, phrases), nil
}

// toIOB2 flattens the phrases into per-token tags. A phrase continues
// across a single punctuation token but any longer gap starts a new
// chunk.
func toIOB2(tree *conll.Tree, phrases []*phrase) []string {
	tags := make([]string, len(tree.Nodes))
	for _, ph := range phrases {
		if ph.label == "O" {
			for _, idx := range ph.nodes {
				tags[idx] = "O"
			}
			continue
		}
		indexes := append([]int(nil), ph.nodes...)
		sort.Ints(indexes)
		for i, idx := range indexes {
			switch {
			case i == 0:
				tags[idx] = "B-" + ph.label
			case indexes[i-1] == idx-1:
				tags[idx] = "I-" + ph.label
			case tree.Nodes[idx-1].Phrase == 0 && indexes[i-1] == idx-2:
				// punctuation does not split phrases
				tags[idx-1] = "I-" + ph.label
				tags[idx] = "I-" + ph.label
			default:
				tags[idx] = "B-" + ph.label
			}
		}
	}
	return tags[1:]
}

// AnnotateFile copies a dependency-annotated CoNLL file to out with
// the chunk column filled from the translated trees. Sentences whose
// annotation does not form a connected tree, or whose root cannot be
// classified, are dropped.
func (t Translator) AnnotateFile(in io.Reader, out io.Writer) error {
	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	for {
		tree, lines, err := conll.ReadTree(scanner)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if tree == nil {
			continue
		}
		tags, err := t.TranslateTree(tree)
		if err != nil {
			continue
		}
		for i, line := range lines {
			if line == "" {
				if _, err := w.WriteString("\n"); err != nil {
					return err
				}
				continue
			}
			cols := strings.Split(line, "\t")
			cols[conll.ColChunk] = tags[i]
			if _, err := w.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
