package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/1broseidon/webdesk/internal/drag"
)

// configSettle absorbs the burst of events an editor save produces.
const configSettle = 250 * time.Millisecond

// ConfigWatcher calls onChange after any of a set of files changes.
// Directories are watched rather than files so that editors which save
// by renaming are still seen.
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	settle   *drag.Debouncer
	logger   *slog.Logger

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]struct{}
}

// NewConfigWatcher watches files. onChange runs on a timer goroutine.
func NewConfigWatcher(files []string, onChange func(), logger *slog.Logger) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cw := &ConfigWatcher{
		watcher:  w,
		onChange: onChange,
		settle:   drag.NewDebouncer(drag.TimeScheduler{}, configSettle),
		logger:   logger,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}
	cw.SetFiles(files)
	return cw, nil
}

// SetFiles replaces the watched set. New directories are added; old ones
// stay watched, their events are filtered out.
func (cw *ConfigWatcher) SetFiles(files []string) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.files = make(map[string]struct{}, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		cw.files[abs] = struct{}{}

		dir := filepath.Dir(abs)
		if _, ok := cw.dirs[dir]; ok {
			continue
		}
		if err := cw.watcher.Add(dir); err != nil {
			cw.logger.Warn("cannot watch config directory", "dir", dir, "error", err)
			continue
		}
		cw.dirs[dir] = struct{}{}
	}
}

func (cw *ConfigWatcher) interesting(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	cw.mu.Lock()
	defer cw.mu.Unlock()
	_, ok := cw.files[abs]
	return ok
}

// Run delivers change notifications until ctx is cancelled, then closes
// the watcher.
func (cw *ConfigWatcher) Run(ctx context.Context) error {
	defer cw.watcher.Close()
	defer cw.settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !cw.interesting(ev.Name) {
				continue
			}
			cw.logger.Debug("config file event", "file", ev.Name, "op", ev.Op.String())
			cw.settle.Trigger(cw.onChange)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil
			}
			cw.logger.Warn("config watcher error", "error", err)
		}
	}
}
