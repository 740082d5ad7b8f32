package symbols

import "sync"

// Table maps symbol strings to dense integer ids, with one independent
// id space per symbol kind: states (tags), emissions (tokens) and
// suffixes. Ids are assigned in first-seen order and interning an
// already known string returns its existing id, so two tables fed the
// same strings in the same order always agree.
//
// Decoding interns unseen tokens, so a shared table may be hit from
// several goroutines at once. All methods are safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	states    index
	emissions index
	suffixes  index
}

type index struct {
	ids   map[string]int
	names []string
}

func newIndex() index {
	return index{ids: make(map[string]int)}
}

func (idx *index) intern(s string) int {
	if id, ok := idx.ids[s]; ok {
		return id
	}
	id := len(idx.names)
	idx.ids[s] = id
	idx.names = append(idx.names, s)
	return id
}

func (idx *index) lookup(s string) (int, bool) {
	id, ok := idx.ids[s]
	return id, ok
}

func NewTable() *Table {
	return &Table{
		states:    newIndex(),
		emissions: newIndex(),
		suffixes:  newIndex(),
	}
}

// State interns a state symbol and returns its id.
func (t *Table) State(s string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states.intern(s)
}

// Emission interns an emission symbol and returns its id.
func (t *Table) Emission(s string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.emissions.intern(s)
}

// Suffix interns a suffix and returns its id.
func (t *Table) Suffix(s string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suffixes.intern(s)
}

// SuffixID looks a suffix up without interning it.
func (t *Table) SuffixID(s string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.suffixes.lookup(s)
}

// StateName decodes a state id back to its string.
func (t *Table) StateName(id int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.states.names[id]
}

// EmissionName decodes an emission id back to its string.
func (t *Table) EmissionName(id int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.emissions.names[id]
}

// States returns all state symbols ordered by id.
func (t *Table) States() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.states.names...)
}

// Emissions returns all emission symbols ordered by id.
func (t *Table) Emissions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.emissions.names...)
}

// Suffixes returns all suffixes ordered by id.
func (t *Table) Suffixes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.suffixes.names...)
}

func (t *Table) StateCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states.names)
}

func (t *Table) EmissionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.emissions.names)
}

func (t *Table) SuffixCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.suffixes.names)
}

// StateIDs interns every tag in order and returns the resulting ids.
func (t *Table) StateIDs(tags ...string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int, len(tags))
	for i, tag := range tags {
		ids[i] = t.states.intern(tag)
	}
	return ids
}

// EmissionIDs interns every token in order and returns the resulting ids.
func (t *Table) EmissionIDs(tokens ...string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int, len(tokens))
	for i, token := range tokens {
		ids[i] = t.emissions.intern(token)
	}
	return ids
}

// StateNames decodes state ids back to their strings.
func (t *Table) StateNames(ids []int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = t.states.names[id]
	}
	return names
}

// Rebuild recreates a table from name lists previously produced by
// States, Emissions and Suffixes. Ids follow slice order.
func Rebuild(states, emissions, suffixes []string) *Table {
	t := NewTable()
	for _, s := range states {
		t.states.intern(s)
	}
	for _, e := range emissions {
		t.emissions.intern(e)
	}
	for _, s := range suffixes {
		t.suffixes.intern(s)
	}
	return t
}
