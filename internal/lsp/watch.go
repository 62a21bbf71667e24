package lsp

import (
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/batonlint/internal/config"
)

// configReloadDelay coalesces the burst of events an editor save produces.
const configReloadDelay = 100 * time.Millisecond

// watchConfig reloads the configuration when a config file in root changes.
func (s *Server) watchConfig(root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(root); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w

	reload := debounce.New(configReloadDelay)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !config.IsConfigFile(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
					continue
				}
				s.logger.Debug("Config file changed", "path", ev.Name, "op", ev.Op.String())
				reload(func() {
					if err := s.reloadConfig(); err != nil {
						s.notifyConfigError(err)
						return
					}
					s.revalidateAll()
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Error("Config watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (s *Server) closeWatcher() {
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}
