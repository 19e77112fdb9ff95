// Package watch notifies when awesome-list source files change on disk.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 200 * time.Millisecond

// Callback receives the source paths that changed during one debounce
// window, sorted.
type Callback func(changed []string)

// Options selects what to watch.
type Options struct {
	// Files are individual list files. Their parent directories are watched
	// so that editors replacing the file by rename are noticed.
	Files []string
	// Dirs are watched recursively for any .md file.
	Dirs     []string
	Debounce time.Duration
}

// Watch runs an fsnotify watcher until ctx is cancelled and calls cb after
// every debounced batch of relevant changes.
//
// New directories created under a watched Dir are added at runtime.
func Watch(ctx context.Context, opts Options, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	files := make(map[string]struct{}, len(opts.Files))
	parents := make(map[string]struct{})
	for _, f := range opts.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = struct{}{}
		parents[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range parents {
		if err := w.Add(dir); err != nil {
			logger.Warn("watcher: add dir failed", slog.String("path", dir), slog.String("error", err.Error()))
		}
	}
	var roots []string
	for _, d := range opts.Dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return err
		}
		if err := addDirsRecursive(w, abs); err != nil {
			return err
		}
		roots = append(roots, abs)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	relevant := func(path string) bool {
		if _, ok := files[path]; ok {
			return true
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return false
		}
		for _, root := range roots {
			if path == root || strings.HasPrefix(path, root+string(os.PathSeparator)) {
				return true
			}
		}
		return false
	}

	logger.Info("watcher: started", slog.Int("files", len(files)), slog.Int("dirs", len(roots)))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})
			logger.Debug("watcher: changes", slog.Any("paths", changed))
			if cb != nil {
				cb(changed)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path := ev.Name

			if ev.Op&fsnotify.Create != 0 && len(roots) > 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, path); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", path),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", path))
					}
					continue
				}
			}

			if ev.Op == fsnotify.Chmod || !relevant(path) {
				continue
			}
			pending[path] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
