// Package dirfs projects a group hierarchy onto a read-only filesystem for
// serving over NFS: one directory per group, an _attributes.json file inside
// each, raw blobs as empty directories and every dataset flattened into a
// single "<name>.json" document.
package dirfs

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
	"github.com/ohler55/ojg/oj"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/frame"
)

const (
	attrsFile  = "_attributes.json"
	datasetExt = ".json"
)

// View adapts a group hierarchy to billy.Filesystem. The underlying store is
// single-owner, so every operation funnels through one mutex; rendered
// documents are kept in a FIFO-bounded cache so hot files are cheap.
type View struct {
	mu        sync.Mutex
	group     *datadir.Group
	mountTime time.Time

	content     map[string][]byte
	contentKeys []string
	maxContent  int
}

// NewView wraps an opened group for serving.
func NewView(g *datadir.Group) *View {
	return &View{
		group:      g,
		mountTime:  time.Now(),
		content:    make(map[string][]byte),
		maxContent: 2048,
	}
}

// --- billy.Basic ---

func (v *View) Create(string) (billy.File, error) { return nil, errReadOnly }

func (v *View) Open(filename string) (billy.File, error) {
	return v.OpenFile(filename, os.O_RDONLY, 0)
}

func (v *View) OpenFile(filename string, flag int, _ os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, errReadOnly
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	p := cleanPath(filename)
	id := nodeID(p)
	base := path.Base(id)

	if base == attrsFile {
		data, err := v.renderAttrs(path.Dir(id))
		if err != nil {
			return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
		}
		return &memFile{name: base, data: data}, nil
	}
	if dsID, ok := strings.CutSuffix(id, datasetExt); ok {
		if data, err := v.renderDataset(dsID); err == nil {
			return &memFile{name: base, data: data}, nil
		}
	}
	if n, ok := v.lookup(id); ok {
		// Dataset node directories are hidden; only the .json form is served.
		if _, isDataset := n.Element.(*datadir.DataSet); isDataset {
			return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
		}
		return nil, &os.PathError{Op: "open", Path: p, Err: fmt.Errorf("is a directory")}
	}
	return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
}

func (v *View) Stat(filename string) (os.FileInfo, error) {
	return v.Lstat(filename)
}

func (v *View) Rename(string, string) error { return errReadOnly }
func (v *View) Remove(string) error         { return errReadOnly }

func (v *View) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (v *View) TempFile(string, string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (v *View) ReadDir(dir string) ([]os.FileInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p := cleanPath(dir)
	id := nodeID(p)
	n, ok := v.lookup(id)
	if !ok {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: os.ErrNotExist}
	}

	var infos []os.FileInfo
	switch n.Element.(type) {
	case *datadir.Group:
		if data, err := v.renderAttrs(id); err == nil {
			infos = append(infos, &staticFileInfo{
				name:    attrsFile,
				size:    int64(len(data)),
				mode:    0o444,
				modTime: v.mountTime,
			})
		}
		for _, cid := range v.group.Tree().Children(id) {
			info, err := v.childInfo(cid)
			if err != nil {
				continue
			}
			infos = append(infos, info)
		}
	case *datadir.Raw:
		// Raw blobs serve as empty directories.
	default:
		// Dataset node directories are hidden; only the .json form is served.
		return nil, &os.PathError{Op: "readdir", Path: p, Err: os.ErrNotExist}
	}
	return infos, nil
}

func (v *View) MkdirAll(string, os.FileMode) error { return errReadOnly }

// --- billy.Symlink ---

func (v *View) Lstat(filename string) (os.FileInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	p := cleanPath(filename)
	if p == "/" {
		return &staticFileInfo{name: "/", mode: os.ModeDir | 0o555, modTime: v.mountTime}, nil
	}
	id := nodeID(p)
	base := path.Base(id)

	if base == attrsFile {
		data, err := v.renderAttrs(path.Dir(id))
		if err != nil {
			return nil, &os.PathError{Op: "lstat", Path: p, Err: os.ErrNotExist}
		}
		return &staticFileInfo{name: base, size: int64(len(data)), mode: 0o444, modTime: v.mountTime}, nil
	}
	if n, ok := v.lookup(id); ok {
		switch n.Element.(type) {
		case *datadir.Group, *datadir.Raw:
			return &staticFileInfo{name: base, mode: os.ModeDir | 0o555, modTime: v.mountTime}, nil
		}
		// Dataset node directories are hidden; only the .json form is served.
		return nil, &os.PathError{Op: "lstat", Path: p, Err: os.ErrNotExist}
	}
	if dsID, ok := strings.CutSuffix(id, datasetExt); ok {
		if data, err := v.renderDataset(dsID); err == nil {
			return &staticFileInfo{name: base, size: int64(len(data)), mode: 0o444, modTime: v.mountTime}, nil
		}
	}
	return nil, &os.PathError{Op: "lstat", Path: p, Err: os.ErrNotExist}
}

func (v *View) Symlink(string, string) error { return billy.ErrNotSupported }

func (v *View) Readlink(string) (string, error) {
	return "", billy.ErrNotSupported
}

// --- billy.Chroot ---

func (v *View) Chroot(p string) (billy.Filesystem, error) {
	return chroot.New(v, p), nil
}

func (v *View) Root() string { return "/" }

// --- billy.Capable ---

func (v *View) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// --- internals ---

func (v *View) lookup(id string) (*datadir.Node, bool) {
	return v.group.Tree().Get(id)
}

func (v *View) childInfo(id string) (os.FileInfo, error) {
	n, ok := v.lookup(id)
	if !ok {
		return nil, datadir.ErrNotFound
	}
	leaf := path.Base(id)
	switch n.Element.(type) {
	case *datadir.Group, *datadir.Raw:
		return &staticFileInfo{name: leaf, mode: os.ModeDir | 0o555, modTime: v.mountTime}, nil
	case *datadir.DataSet:
		data, err := v.renderDataset(id)
		if err != nil {
			return nil, err
		}
		return &staticFileInfo{
			name:    leaf + datasetExt,
			size:    int64(len(data)),
			mode:    0o444,
			modTime: v.mountTime,
		}, nil
	}
	return nil, datadir.ErrNotFound
}

// renderAttrs renders a group's attribute map as a JSON document.
func (v *View) renderAttrs(id string) ([]byte, error) {
	key := "attrs:" + id
	if c, ok := v.content[key]; ok {
		return c, nil
	}
	n, ok := v.lookup(id)
	if !ok {
		return nil, datadir.ErrNotFound
	}
	g, ok := n.Element.(*datadir.Group)
	if !ok {
		return nil, datadir.ErrNotFound
	}
	attrs := g.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	data := []byte(oj.JSON(attrs, 2) + "\n")
	v.cache(key, data)
	return data, nil
}

// renderDataset renders a dataset as a JSON document of its attributes and
// records, loading the payload on first touch.
func (v *View) renderDataset(id string) ([]byte, error) {
	if c, ok := v.content[id]; ok {
		return c, nil
	}
	n, ok := v.lookup(id)
	if !ok {
		return nil, datadir.ErrNotFound
	}
	if _, ok := n.Element.(*datadir.DataSet); !ok {
		return nil, datadir.ErrNotFound
	}
	got, err := v.group.Get(id)
	if err != nil {
		return nil, err
	}
	doc := datasetDocument(got.(*datadir.DataSet))
	data := []byte(oj.JSON(doc, 2) + "\n")
	v.cache(id, data)
	return data, nil
}

// cache stores a rendered document with FIFO eviction.
func (v *View) cache(key string, data []byte) {
	if len(v.content) >= v.maxContent {
		evict := v.contentKeys[0]
		v.contentKeys = v.contentKeys[1:]
		delete(v.content, evict)
	}
	v.content[key] = data
	v.contentKeys = append(v.contentKeys, key)
}

func datasetDocument(ds *datadir.DataSet) map[string]any {
	attrs := ds.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	records := []any{}
	if ds.Frame != nil {
		cols := ds.Frame.Columns()
		for _, row := range ds.Frame.Records() {
			rec := map[string]any{}
			for i, c := range cols {
				rec[c.Name] = renderCell(c.Type, row[i])
			}
			records = append(records, rec)
		}
	}
	return map[string]any{"attributes": attrs, "records": records}
}

func renderCell(t frame.Type, cell any) any {
	if ts, ok := cell.(time.Time); ok && t == frame.Date {
		return ts.Format(time.RFC3339Nano)
	}
	return cell
}

// nodeID maps a clean filesystem path to a store identifier.
func nodeID(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return p
}

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(p string) string {
	p = filepath.Clean("/" + p)
	if p == "." {
		return "/"
	}
	return filepath.ToSlash(p)
}

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*View)(nil)
	_ billy.Capable    = (*View)(nil)
)
