package filesystem

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kbsync/internal/logger"
)

// watcher wraps fsnotify for the connector. Every directory under the
// root is registered, since fsnotify does not recurse on its own.
type watcher struct {
	fsw *fsnotify.Watcher
}

// Watch emits the relative path of every created or modified matching
// file until the context is cancelled or the connector is closed.
func (c *Connector) Watch(ctx context.Context) (<-chan string, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	c.watcher = &watcher{fsw: fsw}

	err = filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
	if err != nil {
		fsw.Close()
		c.watcher = nil
		return nil, err
	}

	changes := make(chan string)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				c.handleEvent(ctx, event, fsw, changes)

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("watch %s: %v", c.rootPath, err)
			}
		}
	}()

	return changes, nil
}

// handleEvent forwards relevant file events and registers newly created
// directories.
func (c *Connector) handleEvent(ctx context.Context, event fsnotify.Event, fsw *fsnotify.Watcher, changes chan<- string) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	base := filepath.Base(event.Name)
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(base, ".") {
				if err := fsw.Add(event.Name); err != nil {
					logger.Warn("watch new directory %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !c.matchesExtension(base) {
		return
	}

	relPath, err := filepath.Rel(c.rootPath, event.Name)
	if err != nil {
		return
	}

	select {
	case <-ctx.Done():
	case changes <- filepath.ToSlash(relPath):
	}
}

func (w *watcher) close() error {
	return w.fsw.Close()
}
