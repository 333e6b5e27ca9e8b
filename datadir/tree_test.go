package datadir

import (
	"errors"
	"testing"
)

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tr := NewTree()
	if _, err := tr.Create(rootID, rootID, "", NewGroup()); err != nil {
		t.Fatalf("Create(root) returned error: %v", err)
	}
	return tr
}

func mustCreate(t *testing.T, tr *Tree, id string) *Node {
	t.Helper()
	n, err := tr.Create(leafOf(id), id, parentOf(id), &Raw{})
	if err != nil {
		t.Fatalf("Create(%s) returned error: %v", id, err)
	}
	return n
}

func TestTree_CreateAndGet(t *testing.T) {
	tr := newTestTree(t)
	mustCreate(t, tr, "a")
	mustCreate(t, tr, "a/b")

	n, ok := tr.Get("a/b")
	if !ok {
		t.Fatal("Get(a/b) did not find the node")
	}
	if n.Parent != "a" {
		t.Errorf("Parent = %q, want %q", n.Parent, "a")
	}
	if n.Tag != "b" {
		t.Errorf("Tag = %q, want %q", n.Tag, "b")
	}
	if tr.Len() != 3 {
		t.Errorf("Len = %d, want 3", tr.Len())
	}
}

func TestTree_CreateDuplicate(t *testing.T) {
	tr := newTestTree(t)
	mustCreate(t, tr, "a")

	_, err := tr.Create("a", "a", rootID, &Raw{})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestTree_CreateMissingParent(t *testing.T) {
	tr := newTestTree(t)

	_, err := tr.Create("b", "a/b", "a", &Raw{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTree_SecondRootRejected(t *testing.T) {
	tr := newTestTree(t)

	_, err := tr.Create("other", "other", "", &Raw{})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestTree_ChildrenSorted(t *testing.T) {
	tr := newTestTree(t)
	mustCreate(t, tr, "c")
	mustCreate(t, tr, "a")
	mustCreate(t, tr, "b")
	mustCreate(t, tr, "a/x")

	got := tr.Children(rootID)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Children = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Children[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTree_ChildrenOfLeaf(t *testing.T) {
	tr := newTestTree(t)
	mustCreate(t, tr, "a")

	if got := tr.Children("a"); len(got) != 0 {
		t.Errorf("Children(a) = %v, want empty", got)
	}
}

func TestTree_List(t *testing.T) {
	tr := newTestTree(t)
	mustCreate(t, tr, "b")
	mustCreate(t, tr, "a")
	mustCreate(t, tr, "a/x")

	got := tr.List()
	want := []string{".", "a", "a/x", "b"}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTree_WalkParentsFirst(t *testing.T) {
	tr := newTestTree(t)
	mustCreate(t, tr, "b")
	mustCreate(t, tr, "a")
	mustCreate(t, tr, "a/y")
	mustCreate(t, tr, "a/x")

	var order []string
	err := tr.Walk(func(n *Node) error {
		order = append(order, n.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	want := []string{".", "a", "a/x", "a/y", "b"}
	if len(order) != len(want) {
		t.Fatalf("Walk order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Walk order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestTree_WalkStopsOnError(t *testing.T) {
	tr := newTestTree(t)
	mustCreate(t, tr, "a")
	mustCreate(t, tr, "b")

	stop := errors.New("stop")
	var seen int
	err := tr.Walk(func(n *Node) error {
		seen++
		if n.ID == "a" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want stop", err)
	}
	if seen != 2 {
		t.Errorf("visited %d nodes before stopping, want 2", seen)
	}
}

func TestTree_SubtreeSharesElements(t *testing.T) {
	tr := newTestTree(t)
	a := mustCreate(t, tr, "a")
	mustCreate(t, tr, "a/x")

	sub, err := tr.Subtree("a")
	if err != nil {
		t.Fatalf("Subtree(a) returned error: %v", err)
	}
	if sub.Len() != 2 {
		t.Errorf("sub.Len = %d, want 2", sub.Len())
	}
	n, ok := sub.Get("a")
	if !ok {
		t.Fatal("Get(a) did not find the copied root")
	}
	if n.Element != a.Element {
		t.Error("subtree root element is not shared with the source")
	}
	if n == a {
		t.Error("subtree root record should be a fresh copy")
	}
}

func TestTree_SubtreeMissing(t *testing.T) {
	tr := newTestTree(t)

	_, err := tr.Subtree("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
