package conll

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Node is one token of a Stanford dependency tree.
type Node struct {
	Index    int
	Parent   int
	Dep      string
	Tag      string
	Children []int

	// Phrase is the phrase the chunk converter assigned the node to;
	// -1 until assigned.
	Phrase int
}

// Tree is a 1-indexed dependency tree; Nodes[0] is unused and Root
// holds the index of the head node.
type Tree struct {
	Root  int
	Nodes []*Node
}

func (t *Tree) Len() int {
	return len(t.Nodes) - 1
}

// ReadTree reads one sentence from the scanner and builds its
// dependency tree, returning the raw source lines alongside so callers
// can rewrite them. A sentence that does not form a connected tree
// rooted at its head yields a nil tree with the lines intact, matching
// how corpora with annotation noise are skipped rather than aborted.
// io.EOF is returned once no sentences remain.
func ReadTree(scanner *bufio.Scanner) (*Tree, []string, error) {
	var lines []string
	nodes := []*Node{nil}
	root := 0
	corrupt := false

	read := false
	for scanner.Scan() {
		read = true
		line := scanner.Text()
		lines = append(lines, line)
		if line == "" {
			break
		}
		cols := strings.Split(line, "\t")
		if len(cols) <= ColDep {
			corrupt = true
			continue
		}
		parent, err := strconv.Atoi(cols[ColParent])
		if err != nil {
			corrupt = true
			continue
		}
		nodes = append(nodes, &Node{
			Index:  len(nodes),
			Parent: parent,
			Dep:    strings.TrimSpace(cols[ColDep]),
			Tag:    cols[ColTag],
			Phrase: -1,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if !read {
		return nil, nil, io.EOF
	}
	if corrupt || len(nodes) == 1 {
		return nil, lines, nil
	}

	for i := 1; i < len(nodes); i++ {
		node := nodes[i]
		if node.Parent == 0 {
			root = i
			continue
		}
		if node.Parent < 0 || node.Parent >= len(nodes) {
			return nil, lines, nil
		}
		parent := nodes[node.Parent]
		parent.Children = append(parent.Children, node.Index)
	}
	if root == 0 {
		return nil, lines, nil
	}

	tree := &Tree{Root: root, Nodes: nodes}
	if !tree.connected() {
		return nil, lines, nil
	}
	return tree, lines, nil
}

// connected checks that a breadth-first walk from the root reaches
// every node exactly once.
func (t *Tree) connected() bool {
	visited := 0
	queue := []int{t.Root}
	seen := make([]bool, len(t.Nodes))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if seen[idx] {
			return false
		}
		seen[idx] = true
		visited++
		queue = append(queue, t.Nodes[idx].Children...)
	}
	return visited == t.Len()
}
