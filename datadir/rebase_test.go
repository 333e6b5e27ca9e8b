package datadir

import (
	"errors"
	"testing"
)

// selfContained builds a store rooted at the sentinel with a raw node at
// each given identifier.
func selfContained(t *testing.T, ids ...string) *Tree {
	t.Helper()
	tr := NewTree()
	if _, err := tr.Create(rootID, rootID, "", NewGroup()); err != nil {
		t.Fatalf("Create(root) returned error: %v", err)
	}
	for _, id := range ids {
		mustCreate(t, tr, id)
	}
	return tr
}

func TestSplice_RekeysWholeStore(t *testing.T) {
	dst := selfContained(t, "keep")
	src := selfContained(t, "x", "x/y")

	added, err := dst.Splice("sub", src)
	if err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("added %d nodes, want 3", len(added))
	}
	wantOrder := []string{"sub", "sub/x", "sub/x/y"}
	for i, id := range wantOrder {
		if added[i].ID != id {
			t.Errorf("added[%d].ID = %q, want %q", i, added[i].ID, id)
		}
	}

	n, ok := dst.Get("sub/x/y")
	if !ok {
		t.Fatal("Get(sub/x/y) did not find the spliced node")
	}
	if n.Parent != "sub/x" {
		t.Errorf("Parent = %q, want %q", n.Parent, "sub/x")
	}

	srcNode, _ := src.Get("x")
	dstNode, _ := dst.Get("sub/x")
	if srcNode.Element != dstNode.Element {
		t.Error("spliced node does not share its element with the source")
	}
}

func TestSplice_TopNodeCarriesSourceRootElement(t *testing.T) {
	dst := selfContained(t)
	src := selfContained(t)
	rootEl := func(tr *Tree) Element {
		n, _ := tr.Get(rootID)
		return n.Element
	}

	if _, err := dst.Splice("sub", src); err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}
	n, _ := dst.Get("sub")
	if n.Element != rootEl(src) {
		t.Error("top node should carry the source root's element")
	}
	if n.Tag != "sub" {
		t.Errorf("Tag = %q, want %q", n.Tag, "sub")
	}
}

func TestSplice_DeepKey(t *testing.T) {
	dst := selfContained(t, "a")
	src := selfContained(t, "x")

	if _, err := dst.Splice("a/b", src); err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}
	if _, ok := dst.Get("a/b/x"); !ok {
		t.Error("Get(a/b/x) did not find the spliced node")
	}
}

func TestSplice_MissingParent(t *testing.T) {
	dst := selfContained(t)
	src := selfContained(t)

	_, err := dst.Splice("nope/sub", src)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSplice_TakenKey(t *testing.T) {
	dst := selfContained(t, "sub")
	src := selfContained(t)

	_, err := dst.Splice("sub", src)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCutPrefix_FlattensSubtree(t *testing.T) {
	tr := selfContained(t, "a", "a/b", "a/b/c", "z")

	sub, err := tr.CutPrefix("a")
	if err != nil {
		t.Fatalf("CutPrefix returned error: %v", err)
	}
	want := []string{".", "b", "b/c"}
	got := sub.List()
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// The source store is untouched.
	if tr.Len() != 5 {
		t.Errorf("source Len = %d, want 5", tr.Len())
	}
	srcNode, _ := tr.Get("a/b")
	cutNode, _ := sub.Get("b")
	if srcNode.Element != cutNode.Element {
		t.Error("cut node does not share its element with the source")
	}
}

func TestCutPrefix_Missing(t *testing.T) {
	tr := selfContained(t)

	_, err := tr.CutPrefix("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCutThenSpliceRoundTrip(t *testing.T) {
	tr := selfContained(t, "a", "a/b", "a/b/c")

	sub, err := tr.CutPrefix("a/b")
	if err != nil {
		t.Fatalf("CutPrefix returned error: %v", err)
	}
	dst := selfContained(t)
	if _, err := dst.Splice("moved", sub); err != nil {
		t.Fatalf("Splice returned error: %v", err)
	}

	orig, _ := tr.Get("a/b/c")
	moved, ok := dst.Get("moved/c")
	if !ok {
		t.Fatal("Get(moved/c) did not find the round-tripped node")
	}
	if orig.Element != moved.Element {
		t.Error("round trip should preserve element identity")
	}
}
