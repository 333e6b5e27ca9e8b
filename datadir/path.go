package datadir

import "strings"

// rootID is the sentinel identifier of a store's root node. The empty key
// normalizes to it.
const rootID = "."

// Key helpers shared by lookup, insertion and the rebase engine. Keys are
// slash-delimited and must be supplied in canonical form: no leading,
// trailing or repeated slashes. Malformed keys surface as lookup or insert
// failures, not as resolver failures.

// splitKey splits a key on its last slash into (parent identifier, leaf
// name). A key without a slash hangs off the root node.
func splitKey(key string) (parent, leaf string) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return rootID, key
	}
	return key[:i], key[i+1:]
}

// normalizeKey maps the empty key to the root sentinel.
func normalizeKey(key string) string {
	if key == "" {
		return rootID
	}
	return key
}

// parentOf returns the parent identifier of an identifier.
func parentOf(id string) string {
	p, _ := splitKey(id)
	return p
}

// leafOf returns the leaf name of an identifier; the root maps to itself.
func leafOf(id string) string {
	if id == rootID {
		return rootID
	}
	_, leaf := splitKey(id)
	return leaf
}
