package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// watchDelay coalesces the events of a single save.
const watchDelay = 200 * time.Millisecond

// watchLint runs lint once, then again after every change to a YAML file
// below paths, until ctx is cancelled. Findings do not stop the loop.
func watchLint(ctx context.Context, cmdCtx *CommandContext, paths []string, run func(context.Context) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	dirs, err := watchDirs(paths)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	if err := run(ctx); err != nil && !errors.Is(err, ErrLintIssues) {
		return err
	}
	cmdCtx.Logger.Info("Watching for changes", "dirs", len(dirs))

	trigger := make(chan struct{}, 1)
	debounced := debounce.New(watchDelay)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
					_ = w.Add(ev.Name)
				}
			}
			if !isYAMLFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			cmdCtx.Logger.Debug("File changed", "path", ev.Name, "op", ev.Op.String())
			debounced(func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Error("File watcher error", "error", err)
		case <-trigger:
			cmdCtx.Renderer.Println("")
			if err := run(ctx); err != nil && !errors.Is(err, ErrLintIssues) {
				cmdCtx.Logger.Error("Lint failed", "error", err)
			}
		}
	}
}

// watchDirs lists the directories to watch: every non-skipped directory
// below each directory path and the parent of each file path.
func watchDirs(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	seen := make(map[string]bool)
	var dirs []string
	add := func(d string) {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", root, err)
		}
		if !info.IsDir() {
			add(filepath.Dir(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	return dirs, nil
}
