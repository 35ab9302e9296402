package config

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"taskwheel/pkg/logx"
)

// Watcher re-reads the config file on change and hands validated updates to
// a callback. Invalid or unchanged content is dropped with a log line; the
// previously committed config stays in effect.
type Watcher struct {
	path string
	log  logx.Logger

	onChange func(*Config)

	mu       sync.Mutex
	lastHash uint64
}

func NewWatcher(path string, log logx.Logger, onChange func(*Config)) *Watcher {
	return &Watcher{path: path, log: log, onChange: onChange}
}

// Commit records cfg as the baseline so an identical rewrite of the file does
// not trigger a redundant reload.
func (w *Watcher) Commit(cfg *Config) {
	w.mu.Lock()
	w.lastHash = hashConfig(cfg)
	w.mu.Unlock()
}

// Run watches until ctx is cancelled. Events are debounced because editors
// produce bursts of partial writes.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.log.Debug("config watcher started", logx.String("dir", dir), logx.String("file", file))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, w.reload)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// Compare by basename; editors rename/replace instead of writing
			// in place.
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
				debounce()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.log.Warn("config watch error", logx.Err(err), logx.String("dir", dir))
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload rejected", logx.String("path", w.path), logx.Err(err))
		return
	}

	h := hashConfig(cfg)
	w.mu.Lock()
	unchanged := h != 0 && h == w.lastHash
	if !unchanged {
		w.lastHash = h
	}
	w.mu.Unlock()
	if unchanged {
		w.log.Debug("config unchanged; skipping reload", logx.String("path", w.path))
		return
	}

	w.log.Info("config reloaded", logx.String("path", w.path))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func hashConfig(cfg *Config) uint64 {
	if cfg == nil {
		return 0
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
