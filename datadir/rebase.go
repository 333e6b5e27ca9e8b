package datadir

import (
	"fmt"
	"strings"
)

// The rebase engine rewrites identifier prefixes in the two directions used
// by insertion and lookup. Both directions are bijections on the affected
// subtree: tags and elements are preserved, node records are fresh.

// rekeyID prefixes an identifier from a self-contained store with key. The
// store's root becomes key itself.
func rekeyID(key, id string) string {
	if id == rootID {
		return key
	}
	return key + "/" + id
}

// Splice absorbs a self-contained store under key: every node of sub is
// re-keyed with the key prefix and inserted into t, the source root becoming
// the node at key itself. The key's parent must already be present in t, and
// sub must be rooted at the sentinel identifier. Returns the created nodes,
// parents before children.
func (t *Tree) Splice(key string, sub *Tree) ([]*Node, error) {
	src, ok := sub.Get(sub.root)
	if !ok {
		return nil, fmt.Errorf("splice %q: source store has no root", key)
	}
	parent, leaf := splitKey(key)
	top, err := t.Create(leaf, key, parent, src.Element)
	if err != nil {
		return nil, fmt.Errorf("splice %q: %w", key, err)
	}
	added := make([]*Node, 0, sub.Len())
	added = append(added, top)
	for _, id := range sub.descendants(sub.root) {
		n, _ := sub.Get(id)
		nn, err := t.Create(n.Tag, rekeyID(key, id), rekeyID(key, n.Parent), n.Element)
		if err != nil {
			return nil, fmt.Errorf("splice %q: %w", key, err)
		}
		added = append(added, nn)
	}
	return added, nil
}

// CutPrefix flattens the subtree at prefix out into a self-contained store:
// descendant identifiers become relative to the prefix and the node at the
// prefix becomes the new root under the sentinel identifier. Elements are
// shared with the source store, which is left untouched.
func (t *Tree) CutPrefix(prefix string) (*Tree, error) {
	n, ok := t.Get(prefix)
	if !ok {
		return nil, fmt.Errorf("cut prefix %q: %w", prefix, ErrNotFound)
	}
	cut := func(id string) string {
		if id == prefix {
			return rootID
		}
		return strings.TrimPrefix(id, prefix+"/")
	}
	sub := NewTree()
	if _, err := sub.Create(rootID, rootID, "", n.Element); err != nil {
		return nil, err
	}
	for _, id := range t.descendants(prefix) {
		d, _ := t.Get(id)
		if _, err := sub.Create(d.Tag, cut(id), cut(d.Parent), d.Element); err != nil {
			return nil, fmt.Errorf("cut prefix %q: %w", prefix, err)
		}
	}
	return sub, nil
}
