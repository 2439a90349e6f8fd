package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config whenever config.json or config.yaml changes and
// passes the fresh value to onChange.
type Watcher struct {
	manager  *Manager
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	once     sync.Once
}

func NewWatcher(manager *Manager, logger *slog.Logger, onChange func(*Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Editors replace files on save, so watch the directory rather than the file
	if err := w.Add(manager.BaseDir()); err != nil {
		w.Close()
		return nil, err
	}

	return &Watcher{
		manager:  manager,
		watcher:  w,
		onChange: onChange,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !w.isConfigFile(ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}

			cfg, err := w.manager.Load()
			if err != nil {
				w.logger.Warn("Config reload failed", "file", ev.Name, "error", err)
				continue
			}

			w.logger.Debug("Config reloaded", "file", ev.Name, "provider", cfg.Provider)
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher) isConfigFile(name string) bool {
	base := filepath.Base(name)
	return base == DefaultConfigFilename || base == DefaultYAMLFilename
}

// Stop ends the watch loop and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	var err error

	w.once.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
		<-w.doneCh
	})

	return err
}
