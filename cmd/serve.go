package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/handzsujt/data-dir/datadir"
	"github.com/handzsujt/data-dir/internal/dirfs"
)

var (
	serveAddr  string
	mountPoint string
	watchStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Serve a store read-only over NFS",
	Long: `Serve opens the store and exposes it as a read-only NFS filesystem.
Group attributes appear as _attributes.json files and datasets as JSON
documents. With --watch the store is reopened and swapped in whenever
the directory changes underneath the server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		root, err := datadir.Open(dir, datadir.Read)
		if err != nil {
			return err
		}

		hs := dirfs.NewHotSwap(dirfs.NewView(root))
		srv, err := dirfs.NewServer(hs, serveAddr)
		if err != nil {
			return err
		}
		defer func() { _ = srv.Close() }()
		slog.Info("Serving store", "dir", dir, "port", srv.Port())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if watchStore {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()
			if err := watchTree(w, dir); err != nil {
				return err
			}
			go reloadLoop(ctx, w, dir, hs)
		}

		if mountPoint != "" {
			if err := dirfs.Mount(srv.Port(), mountPoint); err != nil {
				return fmt.Errorf("mount %s: %w", mountPoint, err)
			}
			slog.Info("Mounted", "mountpoint", mountPoint)
			defer func() {
				if err := dirfs.Unmount(mountPoint); err != nil {
					slog.Error("Unmount failed", "mountpoint", mountPoint, "err", err)
				}
			}()
		}

		<-ctx.Done()
		slog.Info("Shutting down")
		return nil
	},
}

// watchTree registers dir and every directory below it with the watcher.
func watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// reloadLoop reopens the store after a quiet period and swaps the served
// view. Newly created directories are added to the watch as they appear.
func reloadLoop(ctx context.Context, w *fsnotify.Watcher, dir string, hs *dirfs.HotSwap) {
	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					_ = w.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				debounce.Reset(500 * time.Millisecond)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("Watcher error", "err", err)
		case <-debounce.C:
			root, err := datadir.Open(dir, datadir.Read)
			if err != nil {
				slog.Error("Reload failed", "dir", dir, "err", err)
				continue
			}
			hs.Swap(dirfs.NewView(root))
			slog.Info("Reloaded store", "dir", dir)
		}
	}
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":0", "Listen address for the NFS server")
	serveCmd.Flags().StringVarP(&mountPoint, "mount", "m", "", "Mount the served store at this path")
	serveCmd.Flags().BoolVarP(&watchStore, "watch", "w", false, "Reload and swap the store when the directory changes")
	rootCmd.AddCommand(serveCmd)
}
