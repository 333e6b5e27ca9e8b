package datadir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/handzsujt/data-dir/frame"
)

// persistSubtree mirrors freshly spliced nodes beneath the group's backing
// directory. Nodes arrive parents first, so every directory exists before
// its children are created. Dataset payloads must already be loaded.
func persistSubtree(g *Group, nodes []*Node) error {
	for _, n := range nodes {
		dir := filepath.Join(g.link, filepath.FromSlash(n.ID))
		if err := persistNode(dir, n); err != nil {
			return err
		}
	}
	return nil
}

// persistNode materializes a single node on disk: its directory, its
// descriptor, and whatever attributes or payload the element carries.
func persistNode(dir string, n *Node) error {
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s: %w", dir, ErrAlreadyExists)
		}
		return fmt.Errorf("create %s: %w", dir, err)
	}
	switch el := n.Element.(type) {
	case *Group:
		if err := writeDescriptor(dir, tagContainer); err != nil {
			return err
		}
		return writeAttributes(dir, el.Attrs)
	case *DataSet:
		if !el.Loaded() {
			return fmt.Errorf("write payload for %s: dataset not loaded", dir)
		}
		if err := writeDescriptor(dir, tagDataSet); err != nil {
			return err
		}
		if err := writeAttributes(dir, el.Attrs); err != nil {
			return err
		}
		if err := frame.WriteFile(filepath.Join(dir, payloadFile), el.Frame); err != nil {
			return fmt.Errorf("write payload for %s: %w", dir, err)
		}
		return nil
	case *Raw:
		return writeDescriptor(dir, tagRaw)
	default:
		return fmt.Errorf("%T: %w", n.Element, ErrUnsupportedType)
	}
}
