package config

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the config file (and optionally the rules file) for
// changes, validates new contents, and hands valid configs to a callback.
type Watcher struct {
	mu     sync.Mutex
	logger *slog.Logger

	watcher    *fsnotify.Watcher
	configPath string
	rulesPath  string

	current *Config

	onReload func(*Config)
	onError  func(error)

	done    chan struct{}
	running bool
}

// NewWatcher creates a Watcher for the given config file path.
func NewWatcher(configPath string, initial *Config, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		logger:     logger,
		watcher:    fsw,
		configPath: configPath,
		rulesPath:  initial.Rules.File,
		current:    initial,
		done:       make(chan struct{}),
	}, nil
}

// SetReloadCallback sets the callback invoked with each valid new config.
func (w *Watcher) SetReloadCallback(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = cb
}

// SetErrorCallback sets the callback invoked when a changed config fails
// validation. The previous valid config stays in effect.
func (w *Watcher) SetErrorCallback(cb func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = cb
}

// Current returns the most recent valid configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Start begins watching. Watching the containing directory rather than the
// file itself survives editors that replace the file on save.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	rulesPath := w.rulesPath
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}
	if rulesPath != "" {
		dir := filepath.Dir(rulesPath)
		if dir != filepath.Dir(w.configPath) {
			if err := w.watcher.Add(dir); err != nil {
				w.logger.Warn("failed to watch rules directory", "dir", dir, "error", err)
			}
		}
	}

	go w.watch()
	w.logger.Debug("config watcher started", "path", w.configPath)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) watch() {
	configName := filepath.Base(w.configPath)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			name := filepath.Base(event.Name)
			w.mu.Lock()
			rulesName := ""
			if w.rulesPath != "" {
				rulesName = filepath.Base(w.rulesPath)
			}
			w.mu.Unlock()

			if name != configName && (rulesName == "" || name != rulesName) {
				continue
			}

			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// reload re-reads and validates the config file; a rules-file change is
// surfaced through the same path since rules are resolved from the config.
func (w *Watcher) reload() {
	newCfg, err := Load(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		w.mu.Lock()
		cb := w.onError
		w.mu.Unlock()
		if cb != nil {
			cb(err)
		}
		return
	}

	w.mu.Lock()
	w.current = newCfg
	w.rulesPath = newCfg.Rules.File
	cb := w.onReload
	w.mu.Unlock()

	w.logger.Info("config reloaded")
	if cb != nil {
		cb(newCfg)
	}
}
