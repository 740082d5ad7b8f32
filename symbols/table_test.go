package symbols

import (
	"testing"
)

func TestInterningIsSequentialAndIdempotent(t *testing.T) {
	tbl := NewTable()

	if id := tbl.State("DET"); id != 0 {
		t.Errorf("expected first state id 0, got %d", id)
	}
	if id := tbl.State("NOUN"); id != 1 {
		t.Errorf("expected second state id 1, got %d", id)
	}
	if id := tbl.State("DET"); id != 0 {
		t.Errorf("re-interning DET should return 0, got %d", id)
	}
	if name := tbl.StateName(1); name != "NOUN" {
		t.Errorf("expected StateName(1) = NOUN, got %q", name)
	}
}

func TestIDSpacesAreIndependent(t *testing.T) {
	tbl := NewTable()
	qID := tbl.State("END")
	eID := tbl.Emission("END")
	sID := tbl.Suffix("nd")

	if qID != 0 || eID != 0 || sID != 0 {
		t.Errorf("each space should start at 0, got state=%d emission=%d suffix=%d", qID, eID, sID)
	}
	tbl.Emission("the")
	if n := tbl.StateCount(); n != 1 {
		t.Errorf("emission interning must not grow the state space, StateCount=%d", n)
	}
	if n := tbl.EmissionCount(); n != 2 {
		t.Errorf("expected EmissionCount 2, got %d", n)
	}
}

func TestSuffixLookupDoesNotIntern(t *testing.T) {
	tbl := NewTable()
	if _, ok := tbl.SuffixID("ing"); ok {
		t.Error("lookup of unseen suffix should miss")
	}
	if n := tbl.SuffixCount(); n != 0 {
		t.Errorf("lookup must not intern, SuffixCount=%d", n)
	}
	want := tbl.Suffix("ing")
	got, ok := tbl.SuffixID("ing")
	if !ok || got != want {
		t.Errorf("expected SuffixID(ing) = %d, got %d ok=%v", want, got, ok)
	}
}

func TestRebuildPreservesIDs(t *testing.T) {
	tbl := NewTable()
	tbl.StateIDs("S0", "S1", "END", "DET", "NOUN")
	tbl.EmissionIDs("S0", "S1", "END", "the", "dog")
	tbl.Suffix("og")

	clone := Rebuild(tbl.States(), tbl.Emissions(), tbl.Suffixes())
	for _, tag := range []string{"S0", "S1", "END", "DET", "NOUN"} {
		if clone.State(tag) != tbl.State(tag) {
			t.Errorf("state %q id changed after rebuild", tag)
		}
	}
	for _, tok := range []string{"the", "dog", "END"} {
		if clone.Emission(tok) != tbl.Emission(tok) {
			t.Errorf("emission %q id changed after rebuild", tok)
		}
	}
	if id, ok := clone.SuffixID("og"); !ok || id != 0 {
		t.Errorf("suffix id lost in rebuild: id=%d ok=%v", id, ok)
	}
}

func TestEmissionIDsAssignNewIDsInOrder(t *testing.T) {
	tbl := NewTable()
	ids := tbl.EmissionIDs("a", "b", "a", "c")
	want := []int{0, 1, 0, 2}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, ids)
		}
	}
}
