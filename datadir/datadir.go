// Package datadir maps a hierarchy of groups, tabular datasets and raw blob
// directories onto a plain directory tree. Every node owns one directory
// holding a small JSON descriptor, an optional attribute file and, for
// datasets, a SQLite payload. The hierarchy is rebuilt from a descriptor scan
// on open and mirrored back to disk on every insertion; deletion and
// replacement are not part of the vocabulary.
package datadir

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/ohler55/ojg/jp"
)

// Mode selects how Open treats the directory.
type Mode int

const (
	// Read opens an existing hierarchy and rejects every mutation.
	Read Mode = iota
	// Append opens an existing hierarchy for additive writes.
	Append
	// Create initializes a fresh root; the directory must not exist yet.
	Create
)

func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Append:
		return "append"
	case Create:
		return "create"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Open binds a group hierarchy to the directory at path. In Read and Append
// mode the directory must already hold a root descriptor; the whole tree of
// descriptors beneath it is scanned up front, while dataset payloads stay on
// disk until first accessed. In Create mode the path must not exist yet; a
// fresh root is written and nothing is scanned.
func Open(dir string, mode Mode) (*Group, error) {
	switch mode {
	case Create:
		return createRoot(dir)
	case Read, Append:
		return openExisting(dir, mode)
	}
	return nil, fmt.Errorf("open %s: unknown mode %d", dir, int(mode))
}

func createRoot(dir string) (*Group, error) {
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("create %s: %w", dir, ErrAlreadyExists)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	if err := writeDescriptor(dir, tagRoot); err != nil {
		return nil, err
	}
	if err := writeAttributes(dir, nil); err != nil {
		return nil, err
	}
	g := NewGroup()
	g.link = dir
	return g, nil
}

func openExisting(dir string, mode Mode) (*Group, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open %s: not a directory: %w", dir, ErrInvalidFormat)
	}
	typ, _, err := readDescriptor(dir)
	if err != nil {
		return nil, err
	}
	if typ != tagRoot {
		return nil, fmt.Errorf("%s: top-level descriptor declares %q, want %q: %w", dir, typ, tagRoot, ErrInvalidFormat)
	}
	attrs, err := readAttributes(dir)
	if err != nil {
		return nil, err
	}

	g := NewGroup()
	g.Attrs = attrs
	g.link = dir
	g.readonly = mode == Read
	if err := scanChildren(g, dir); err != nil {
		return nil, err
	}
	return g, nil
}

// scanChildren walks the backing directory for descriptor files and recreates
// one node per hit. Identifiers sort lexicographically with parents before
// children, so a single ordered pass suffices.
func scanChildren(g *Group, root string) error {
	var rels []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if !d.IsDir() {
			return nil
		}
		if _, err := os.Stat(filepath.Join(p, descriptorFile)); err != nil {
			if os.IsNotExist(err) {
				return nil // plain directory, not part of the hierarchy
			}
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel != "." {
			rels = append(rels, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(rels)

	for _, rel := range rels {
		if err := scanNode(g, root, rel); err != nil {
			return err
		}
	}
	return nil
}

func scanNode(g *Group, root, rel string) error {
	dir := filepath.Join(root, filepath.FromSlash(rel))
	typ, _, err := readDescriptor(dir)
	if err != nil {
		return err
	}

	var el Element
	switch typ {
	case tagContainer:
		attrs, err := readAttributes(dir)
		if err != nil {
			return err
		}
		el = &Group{Attrs: attrs, link: dir, readonly: g.readonly}
	case tagDataSet:
		attrs, err := readAttributes(dir)
		if err != nil {
			return err
		}
		el = &DataSet{Attrs: attrs}
	case tagRaw:
		el = &Raw{}
	case tagRoot:
		return fmt.Errorf("%s: nested %q descriptor: %w", dir, tagRoot, ErrInvalidFormat)
	default:
		return fmt.Errorf("%s: unknown type %q: %w", dir, typ, ErrInvalidFormat)
	}

	if _, err := g.tree.Create(path.Base(rel), rel, path.Dir(rel), el); err != nil {
		return fmt.Errorf("%s: dangling node %s: %w", root, rel, ErrInvalidFormat)
	}
	return nil
}

// Get resolves a key to the element stored under it. Keys address nodes
// first; a key whose last segment names no node falls back to the parent
// node's attribute map and yields the raw attribute value. The empty key and
// the sentinel "." resolve to the group itself.
//
// Groups come back as self-contained views, flattened out of the parent
// store on first access and cached. Dataset payloads are read from disk on
// first access; retrieving one through an unlinked group fails with
// ErrNotLinked.
func (g *Group) Get(key string) (any, error) {
	key = normalizeKey(key)
	if n, ok := g.tree.Get(key); ok {
		return g.resolve(n)
	}
	parent, leaf := splitKey(key)
	if pn, ok := g.tree.Get(parent); ok {
		if v, ok := attributeOf(pn.Element, leaf); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
}

func (g *Group) resolve(n *Node) (any, error) {
	switch el := n.Element.(type) {
	case *Group:
		if !el.materialized {
			sub, err := g.tree.CutPrefix(n.ID)
			if err != nil {
				return nil, fmt.Errorf("materialize %s: %w", n.ID, err)
			}
			el.tree = sub
			el.materialized = true
		}
		return el, nil
	case *DataSet:
		if !el.Loaded() {
			if g.link == "" {
				return nil, fmt.Errorf("dataset %s: %w", n.ID, ErrNotLinked)
			}
			dir := filepath.Join(g.link, filepath.FromSlash(n.ID))
			if err := el.load(dir); err != nil {
				return nil, fmt.Errorf("load dataset %s: %w", n.ID, err)
			}
		}
		return el, nil
	}
	return n.Element, nil
}

// attributeOf looks up a name in an element's attribute map. Raw blobs and
// markers carry no attributes.
func attributeOf(el Element, name string) (any, bool) {
	switch e := el.(type) {
	case *Group:
		v, ok := e.Attrs[name]
		return v, ok
	case *DataSet:
		v, ok := e.Attrs[name]
		return v, ok
	}
	return nil, false
}

// Set stores an element under key and, for a linked group, mirrors it to
// disk immediately. The key must be fresh and its parent node must exist.
// Groups are absorbed whole: every node of the inserted group's view is
// re-keyed under key, re-homed to the new backing location and persisted,
// with payloads of never-loaded datasets read from their former location
// first. Inserting an Attribute element is a no-op; attribute values travel
// inside their owner's attribute map. Nil elements, typed or untyped, are
// rejected.
func (g *Group) Set(key string, el Element) error {
	if g.readonly {
		return fmt.Errorf("set %q: %w", key, ErrReadOnly)
	}
	key = normalizeKey(key)
	if _, ok := g.tree.Get(key); ok {
		return fmt.Errorf("set %q: %w", key, ErrAlreadyExists)
	}
	parent, _ := splitKey(key)
	if _, ok := g.tree.Get(parent); !ok {
		return fmt.Errorf("set %q: parent: %w", key, ErrNotFound)
	}

	switch v := el.(type) {
	case *Attribute:
		if v != nil {
			return nil
		}
	case *Group:
		if v != nil {
			return g.setGroup(key, v)
		}
	case *DataSet:
		if v != nil {
			return g.setLeaf(key, v)
		}
	case *Raw:
		if v != nil {
			return g.setLeaf(key, v)
		}
	}
	return fmt.Errorf("set %q: %T: %w", key, el, ErrUnsupportedType)
}

func (g *Group) setGroup(key string, sub *Group) error {
	if sub == g {
		return fmt.Errorf("set %q: group cannot contain itself: %w", key, ErrUnsupportedType)
	}
	if sub.tree == nil {
		// A linked group pulled out of a scan has no store of its own yet.
		// Rescan its backing directory so the splice carries the whole
		// subtree, not just the top node.
		sub.bootstrap()
		if sub.link != "" {
			if err := scanChildren(sub, sub.link); err != nil {
				sub.tree = nil
				sub.materialized = false
				return fmt.Errorf("set %q: %w", key, err)
			}
		}
	}
	added, err := g.tree.Splice(key, sub.tree)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	// Payloads first, while the absorbed groups still point at their former
	// backing directories.
	if err := g.loadAbsorbed(added); err != nil {
		return err
	}
	for _, n := range added {
		gg, ok := n.Element.(*Group)
		if !ok {
			continue
		}
		gg.readonly = false
		if g.link == "" {
			gg.link = ""
		} else {
			gg.link = filepath.Join(g.link, filepath.FromSlash(n.ID))
		}
	}
	if g.link == "" {
		return nil
	}
	return persistSubtree(g, added)
}

// loadAbsorbed pulls in the payload of every never-loaded dataset among the
// spliced nodes. The payload lives under the dataset's parent group, keyed
// by the dataset's leaf name.
func (g *Group) loadAbsorbed(nodes []*Node) error {
	for _, n := range nodes {
		ds, ok := n.Element.(*DataSet)
		if !ok || ds.Loaded() {
			continue
		}
		pn, _ := g.tree.Get(n.Parent)
		pg, ok := pn.Element.(*Group)
		if !ok || pg.link == "" {
			return fmt.Errorf("dataset %s has no payload source: %w", n.ID, ErrNotLinked)
		}
		if err := ds.load(filepath.Join(pg.link, leafOf(n.ID))); err != nil {
			return fmt.Errorf("load dataset %s: %w", n.ID, err)
		}
	}
	return nil
}

func (g *Group) setLeaf(key string, el Element) error {
	parent, leaf := splitKey(key)
	n, err := g.tree.Create(leaf, key, parent, el)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if g.link == "" {
		return nil
	}
	return persistSubtree(g, []*Node{n})
}

// List returns every identifier in the view in sorted order, with the root
// listed as the empty string.
func (g *Group) List() []string {
	ids := g.tree.List()
	for i, id := range ids {
		if id == rootID {
			ids[i] = ""
		}
	}
	sort.Strings(ids)
	return ids
}

// Document renders the view as a plain nested structure, one object per
// node. Groups carry their children keyed by leaf name; datasets report a
// row count once their payload has been loaded. Payloads are never read.
func (g *Group) Document() any {
	return g.document(rootID)
}

func (g *Group) document(id string) any {
	n, ok := g.tree.Get(id)
	if !ok {
		return nil
	}
	switch el := n.Element.(type) {
	case *Group:
		children := map[string]any{}
		for _, cid := range g.tree.Children(id) {
			children[leafOf(cid)] = g.document(cid)
		}
		return map[string]any{
			"type":       tagContainer,
			"attributes": el.Attrs,
			"children":   children,
		}
	case *DataSet:
		doc := map[string]any{
			"type":       tagDataSet,
			"attributes": el.Attrs,
		}
		if el.Loaded() && el.Frame != nil {
			doc["rows"] = el.Frame.Len()
		}
		return doc
	case *Raw:
		return map[string]any{"type": tagRaw}
	}
	return nil
}

// Query evaluates a JSONPath expression against the view's document form.
func (g *Group) Query(expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", expr, err)
	}
	return x.Get(g.Document()), nil
}
