package datadir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ohler55/ojg/oj"
)

// On-disk file names, one set per node directory.
const (
	descriptorFile = "ddir.json"
	attributesFile = "attributes.json"
	payloadFile    = "data.db"
)

// FormatVersion is recorded in every descriptor this package writes.
const FormatVersion = "1.0"

// readDescriptor parses <dir>/ddir.json and returns the declared type tag
// and format version. Both the flat {"type": ..., "version": ...} form and
// the legacy nested {"ddir": {...}} form are accepted.
func readDescriptor(dir string) (typ, version string, err error) {
	raw, err := os.ReadFile(filepath.Join(dir, descriptorFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%s: no descriptor: %w", dir, ErrInvalidFormat)
		}
		return "", "", fmt.Errorf("read descriptor in %s: %w", dir, err)
	}
	v, err := oj.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("descriptor in %s: malformed: %w", dir, ErrInvalidFormat)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return "", "", fmt.Errorf("descriptor in %s is not an object: %w", dir, ErrInvalidFormat)
	}
	if inner, ok := m["ddir"].(map[string]any); ok {
		m = inner
	}
	typ, _ = m["type"].(string)
	version, _ = m["version"].(string)
	if typ == "" {
		return "", "", fmt.Errorf("descriptor in %s declares no type: %w", dir, ErrInvalidFormat)
	}
	return typ, version, nil
}

// writeDescriptor records a node's type tag and the current format version.
func writeDescriptor(dir, typ string) error {
	data := oj.JSON(map[string]any{"type": typ, "version": FormatVersion}, 2)
	return writeFileAtomic(filepath.Join(dir, descriptorFile), []byte(data+"\n"))
}

// readAttributes parses <dir>/attributes.json. An absent file is an empty
// map; a present file must hold a flat JSON object.
func readAttributes(dir string) (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(dir, attributesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read attributes in %s: %w", dir, err)
	}
	v, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("attributes in %s: malformed: %w", dir, ErrInvalidFormat)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("attributes in %s are not a mapping: %w", dir, ErrInvalidFormat)
	}
	return m, nil
}

// writeAttributes mirrors an attribute map to <dir>/attributes.json.
func writeAttributes(dir string, attrs map[string]any) error {
	if attrs == nil {
		attrs = map[string]any{}
	}
	data := oj.JSON(attrs, 2)
	return writeFileAtomic(filepath.Join(dir, attributesFile), []byte(data+"\n"))
}

// writeFileAtomic writes data to a temp file in the target's directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ddir-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", path, err)
	}
	return nil
}
