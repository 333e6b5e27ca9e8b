package dirfs

import (
	"fmt"
	"net"
	"os/exec"
	"runtime"

	billy "github.com/go-git/go-billy/v5"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
)

// Server manages the NFS server lifecycle.
type Server struct {
	listener net.Listener
	port     int
}

// NewServer starts an NFS server backed by the given filesystem. An empty
// addr listens on an ephemeral port.
func NewServer(fs billy.Filesystem, addr string) (*Server, error) {
	if addr == "" {
		addr = ":0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("nfs listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	handler := nfshelper.NewNullAuthHandler(fs)
	cacheHelper := nfshelper.NewCachingHandler(handler, 4096)

	go func() {
		_ = nfs.Serve(listener, cacheHelper)
	}()

	return &Server{listener: listener, port: port}, nil
}

// Port returns the TCP port the NFS server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Close stops the NFS server by closing the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Mount attaches the served store at mountpoint through the platform mount
// command. The commands run under sudo, which may prompt on a terminal.
func Mount(port int, mountpoint string) error {
	opts, err := mountOptions(port)
	if err != nil {
		return err
	}
	out, err := exec.Command("sudo", "mount", "-t", "nfs", "-o", opts,
		"localhost:/", mountpoint).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mount %s: %w\n%s", mountpoint, err, out)
	}
	return nil
}

// mountOptions assembles the NFS client options for the running platform.
// Both port options name the same listener: go-nfs answers the mount and
// nfs protocols on one socket. Served stores mount read-only.
func mountOptions(port int) (string, error) {
	base := fmt.Sprintf("port=%d,mountport=%d,vers=3,tcp", port, port)
	switch runtime.GOOS {
	case "darwin":
		return base + ",locallocks,noresvport,rdonly", nil
	case "linux":
		return base + ",local_lock=all,nolock,ro", nil
	}
	return "", fmt.Errorf("mount: unsupported OS %s", runtime.GOOS)
}

// Unmount detaches a previously mounted store.
func Unmount(mountpoint string) error {
	if runtime.GOOS == "darwin" {
		// diskutil releases user mounts without sudo.
		if exec.Command("diskutil", "unmount", mountpoint).Run() == nil {
			return nil
		}
	}
	out, err := exec.Command("sudo", "umount", mountpoint).CombinedOutput()
	if err != nil {
		return fmt.Errorf("unmount %s: %w\n%s", mountpoint, err, out)
	}
	return nil
}
