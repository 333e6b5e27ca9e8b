package datadir

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// Node is an entry in a store: a full-path identifier, the leaf name as its
// tag, the parent identifier ("" for the root) and the attached element.
type Node struct {
	ID      string
	Tag     string
	Parent  string
	Element Element
}

// Tree is the node store of one container: identifier → node, plus a
// roaring-bitmap child index for subtree enumeration. A tree is mutated in
// place by a single owner; there is no internal locking.
type Tree struct {
	root  string
	nodes map[string]*Node

	// Per-parent child sets over internal uint32 node IDs.
	children map[string]*roaring.Bitmap
	intID    map[string]uint32
	byInt    []string
	next     uint32
}

func NewTree() *Tree {
	return &Tree{
		nodes:    make(map[string]*Node),
		children: make(map[string]*roaring.Bitmap),
		intID:    make(map[string]uint32),
	}
}

// Len returns the number of nodes, the root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Get returns the node for an identifier.
func (t *Tree) Get(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Create inserts a new node. It fails if the identifier is taken or the
// parent is absent. The node created with an empty parent becomes the root;
// a store holds exactly one.
func (t *Tree) Create(tag, id, parent string, el Element) (*Node, error) {
	if _, ok := t.nodes[id]; ok {
		return nil, fmt.Errorf("create node %q: %w", id, ErrAlreadyExists)
	}
	if parent == "" {
		if t.root != "" {
			return nil, fmt.Errorf("create node %q: root: %w", id, ErrAlreadyExists)
		}
		t.root = id
	} else if _, ok := t.nodes[parent]; !ok {
		return nil, fmt.Errorf("create node %q: parent %q: %w", id, parent, ErrNotFound)
	}
	n := &Node{ID: id, Tag: tag, Parent: parent, Element: el}
	t.nodes[id] = n
	t.index(n)
	return n, nil
}

// index assigns an internal bitmap ID and registers the node under its
// parent's child set.
func (t *Tree) index(n *Node) {
	id, ok := t.intID[n.ID]
	if !ok {
		id = t.next
		t.next++
		t.intID[n.ID] = id
		for uint32(len(t.byInt)) <= id {
			t.byInt = append(t.byInt, "")
		}
		t.byInt[id] = n.ID
	}
	if n.Parent == "" {
		return
	}
	bm, ok := t.children[n.Parent]
	if !ok {
		bm = roaring.New()
		t.children[n.Parent] = bm
	}
	bm.Add(id)
}

// Children returns the sorted child identifiers of a node.
func (t *Tree) Children(id string) []string {
	bm, ok := t.children[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		intID := it.Next()
		if int(intID) < len(t.byInt) && t.byInt[intID] != "" {
			out = append(out, t.byInt[intID])
		}
	}
	sort.Strings(out)
	return out
}

// List returns all identifiers in sorted order, for deterministic listings.
func (t *Tree) List() []string {
	out := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Walk visits every node depth-first from the root, children in sorted
// order. It stops at the first error and returns it.
func (t *Tree) Walk(fn func(*Node) error) error {
	root, ok := t.nodes[t.root]
	if !ok {
		return nil
	}
	return t.walk(root, fn)
}

func (t *Tree) walk(n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, child := range t.Children(n.ID) {
		c, ok := t.nodes[child]
		if !ok {
			continue
		}
		if err := t.walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Subtree returns a copy of the store rooted at id, identifiers unchanged.
// Node records are fresh; elements are shared with the source.
func (t *Tree) Subtree(id string) (*Tree, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("subtree %q: %w", id, ErrNotFound)
	}
	sub := NewTree()
	if _, err := sub.Create(n.Tag, n.ID, "", n.Element); err != nil {
		return nil, err
	}
	for _, d := range t.descendants(id) {
		c := t.nodes[d]
		if _, err := sub.Create(c.Tag, c.ID, c.Parent, c.Element); err != nil {
			return nil, fmt.Errorf("subtree %q: %w", id, err)
		}
	}
	return sub, nil
}

// descendants returns every identifier strictly below id, sorted so that
// parents precede their children.
func (t *Tree) descendants(id string) []string {
	var out []string
	queue := t.Children(id)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, t.Children(cur)...)
	}
	sort.Strings(out)
	return out
}
