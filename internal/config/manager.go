package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager watches the configuration file and reloads it on change. The
// current configuration is swapped atomically; a reload that fails
// validation is logged and discarded, keeping the last good config active.
type Manager struct {
	path    string
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu       sync.Mutex
	onChange []func(*Config)
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewManager loads the file once and starts watching its directory. Editors
// replace files instead of writing in place, so watching the directory
// catches renames that a file watch would miss.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	m := &Manager{
		path:    path,
		watcher: watcher,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	m.current.Store(cfg)
	go m.watch()
	return m, nil
}

// Current returns the active configuration. The returned value must be
// treated as read-only.
func (m *Manager) Current() *Config {
	return m.current.Load()
}

// OnChange registers a callback invoked after each successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Close stops the watcher.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
	return m.watcher.Close()
}

func (m *Manager) watch() {
	defer close(m.done)

	// Debounce: editors produce bursts of events per save.
	var timer *time.Timer
	reload := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(200*time.Millisecond, m.reload)
	}

	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(m.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("config watcher error", "error", err)
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) reload() {
	cfg, err := Load(m.path)
	if err != nil {
		m.logger.Error("config reload failed, keeping previous", "error", err)
		return
	}

	m.current.Store(cfg)
	m.logger.Info("config reloaded", "path", m.path)

	m.mu.Lock()
	callbacks := make([]func(*Config), len(m.onChange))
	copy(callbacks, m.onChange)
	m.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}
