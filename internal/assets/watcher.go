package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher feeds shader file changes under a project root to the importer.
// fsnotify is not recursive, so every directory is added and new ones are
// picked up as they are created.
type watcher struct {
	fs     *fsnotify.Watcher
	root   string
	logger *zap.Logger
}

func newWatcher(root string, logger *zap.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &watcher{fs: fw, root: root, logger: logger.Named("watcher")}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
	return err
}

// run dispatches events until ctx is done or the watcher is closed.
func (w *watcher) run(ctx context.Context, handle func(ctx context.Context, path string, removed bool)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event, handle)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (w *watcher) handleEvent(ctx context.Context, event fsnotify.Event, handle func(ctx context.Context, path string, removed bool)) {
	path := filepath.Clean(event.Name)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("Failed to watch new directory", zap.String("path", path), zap.Error(err))
			}
			return
		}
	}

	if !strings.EqualFold(filepath.Ext(path), ShaderExt) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		handle(ctx, path, false)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		handle(ctx, path, true)
	}
}

func (w *watcher) close() error {
	return w.fs.Close()
}
