package datadir

import (
	"path/filepath"

	"github.com/handzsujt/data-dir/frame"
)

// Element is the payload attached to a node. The set of implementations is
// closed: *Group, *DataSet, *Raw and *Attribute. Anything else is rejected
// at insertion with ErrUnsupportedType.
type Element interface {
	isElement()
}

// On-disk type tags recorded in descriptor files.
const (
	tagRoot      = "root"
	tagContainer = "container"
	tagDataSet   = "dataset"
	tagRaw       = "raw"
)

// Group is a nested container: a node store of its own plus a flat attribute
// map. A group reconstructed from disk starts with no store of its own; it is
// materialized into a self-contained view once, on first read out of its
// parent.
type Group struct {
	Attrs map[string]any

	tree         *Tree
	link         string // backing directory, "" for in-memory groups
	readonly     bool
	materialized bool
}

// NewGroup returns an empty in-memory group, registered as the root node of
// its own store.
func NewGroup() *Group {
	g := &Group{Attrs: map[string]any{}}
	g.bootstrap()
	return g
}

func (g *Group) bootstrap() {
	g.tree = NewTree()
	// The root node carries the group itself as its element.
	_, _ = g.tree.Create(rootID, rootID, "", g)
	g.materialized = true
}

// Link associates the group with a backing directory. Every subsequent
// insertion under the group is mirrored beneath that directory. The link is
// never cleared once set.
func (g *Group) Link(path string) {
	g.link = path
}

// Linked reports whether the group has a backing directory.
func (g *Group) Linked() bool { return g.link != "" }

// Tree exposes the group's node store for inspection. It is nil for a group
// that has not yet been read out of its parent.
func (g *Group) Tree() *Tree { return g.tree }

// DataSet is a tabular payload plus an attribute map. A dataset reconstructed
// from disk stays unloaded until first accessed through its owning group; the
// explicit flag keeps a loaded-but-empty frame distinguishable from an
// unloaded one.
type DataSet struct {
	Attrs map[string]any
	Frame *frame.Frame

	loaded bool
}

// NewDataSet wraps an in-memory frame. The result counts as loaded.
func NewDataSet(f *frame.Frame) *DataSet {
	return &DataSet{Attrs: map[string]any{}, Frame: f, loaded: true}
}

// Loaded reports whether the payload has been materialized.
func (d *DataSet) Loaded() bool { return d.loaded }

// load reads the payload file under dir and marks the dataset loaded.
func (d *DataSet) load(dir string) error {
	f, err := frame.ReadFile(filepath.Join(dir, payloadFile))
	if err != nil {
		return err
	}
	d.Frame = f
	d.loaded = true
	return nil
}

// Raw marks an opaque blob directory. No attributes, no in-memory payload.
type Raw struct{}

// Attribute is an inert marker kept for compatibility with the on-disk
// vocabulary. Attribute values live in the owning group's or dataset's
// attribute map, never as standalone nodes; inserting an Attribute element
// is a documented no-op.
type Attribute struct{}

func (*Group) isElement()     {}
func (*DataSet) isElement()   {}
func (*Raw) isElement()       {}
func (*Attribute) isElement() {}
