package dirfs

import (
	"os"
	"sync"

	billy "github.com/go-git/go-billy/v5"
)

// HotSwap is a thread-safe filesystem wrapper that allows replacing the
// served view while clients keep the mount. NFS handles do not pin the old
// view: operations after a swap resolve against the replacement.
type HotSwap struct {
	mu      sync.RWMutex
	current billy.Filesystem
}

func NewHotSwap(initial billy.Filesystem) *HotSwap {
	return &HotSwap{current: initial}
}

// Swap atomically replaces the served filesystem.
func (h *HotSwap) Swap(next billy.Filesystem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = next
}

func (h *HotSwap) fs() billy.Filesystem {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *HotSwap) Create(filename string) (billy.File, error) {
	return h.fs().Create(filename)
}

func (h *HotSwap) Open(filename string) (billy.File, error) {
	return h.fs().Open(filename)
}

func (h *HotSwap) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	return h.fs().OpenFile(filename, flag, perm)
}

func (h *HotSwap) Stat(filename string) (os.FileInfo, error) {
	return h.fs().Stat(filename)
}

func (h *HotSwap) Rename(oldpath, newpath string) error {
	return h.fs().Rename(oldpath, newpath)
}

func (h *HotSwap) Remove(filename string) error {
	return h.fs().Remove(filename)
}

func (h *HotSwap) Join(elem ...string) string {
	return h.fs().Join(elem...)
}

func (h *HotSwap) TempFile(dir, prefix string) (billy.File, error) {
	return h.fs().TempFile(dir, prefix)
}

func (h *HotSwap) ReadDir(path string) ([]os.FileInfo, error) {
	return h.fs().ReadDir(path)
}

func (h *HotSwap) MkdirAll(filename string, perm os.FileMode) error {
	return h.fs().MkdirAll(filename, perm)
}

func (h *HotSwap) Lstat(filename string) (os.FileInfo, error) {
	return h.fs().Lstat(filename)
}

func (h *HotSwap) Symlink(target, link string) error {
	return h.fs().Symlink(target, link)
}

func (h *HotSwap) Readlink(link string) (string, error) {
	return h.fs().Readlink(link)
}

func (h *HotSwap) Chroot(path string) (billy.Filesystem, error) {
	return h.fs().Chroot(path)
}

func (h *HotSwap) Root() string {
	return h.fs().Root()
}

func (h *HotSwap) Capabilities() billy.Capability {
	if c, ok := h.fs().(billy.Capable); ok {
		return c.Capabilities()
	}
	return billy.DefaultCapabilities
}

var (
	_ billy.Filesystem = (*HotSwap)(nil)
	_ billy.Capable    = (*HotSwap)(nil)
)
