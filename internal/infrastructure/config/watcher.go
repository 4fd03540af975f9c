package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the algorithm config when the config file changes and
// publishes the new snapshot through the provider. A reload that fails to
// parse or validate is logged and dropped; the previous snapshot keeps
// serving.
type Watcher struct {
	configPath string
	provider   *Provider
	watcher    *fsnotify.Watcher
	logger     *zap.Logger

	mu        sync.Mutex
	debouncer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(configPath string, provider *Provider, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		configPath: configPath,
		provider:   provider,
		watcher:    fw,
		logger:     logger.Named("config-watcher"),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins watching. Editors replace files rather than write them in
// place, so the parent directory is watched and events are filtered by
// name.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.watchLoop()

	w.logger.Info("Watching config file for changes",
		zap.String("path", w.configPath),
	)
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !w.isConfigFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	// Debounce rapid events: editors and config mounts fire several per
	// save.
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debouncer != nil {
		w.debouncer.Stop()
	}
	w.debouncer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.configPath)
	if err != nil {
		w.logger.Error("Config reload failed, keeping previous snapshot",
			zap.String("path", w.configPath),
			zap.Error(err),
		)
		return
	}

	if err := w.provider.Publish(cfg.Engine.ToAlgorithmConfig()); err != nil {
		// Publish already logged the rejection.
		return
	}

	w.logger.Info("Algorithm config reloaded",
		zap.String("path", w.configPath),
		zap.Uint64("version", w.provider.Version()),
	)
}

func (w *Watcher) isConfigFile(path string) bool {
	if strings.HasSuffix(path, "~") || strings.HasSuffix(path, ".tmp") {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(w.configPath) ||
		filepath.Base(path) == filepath.Base(w.configPath)
}
