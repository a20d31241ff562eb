package prefabs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 100 * time.Millisecond

// Change is a prefab or script file that changed on disk. Source holds the
// new script text; it is nil for prefabs and removed scripts.
type Change struct {
	Name    string
	Path    string
	Script  bool
	Removed bool
	Source  []byte
}

// Watcher reports edits under a library's directory. Prefab edits also drop
// the library's cached copy so the next spawn reads the new file.
type Watcher struct {
	watcher *fsnotify.Watcher
	lib     *Library
	logger  *zap.Logger

	Changes chan Change
	Errors  chan error

	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(lib *Library, logger *zap.Logger) (*Watcher, error) {
	if lib.Dir() == "" {
		return nil, errors.New("prefabs: watcher needs a directory")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := []string{lib.Dir(), filepath.Join(lib.Dir(), "scripts")}
	for _, dir := range dirs {
		if _, statErr := os.Stat(dir); errors.Is(statErr, fs.ErrNotExist) {
			continue
		}
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		lib:     lib,
		logger:  logger,
		Changes: make(chan Change, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Changes)
		close(w.Errors)
		close(w.done)
	}()

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isSpecFile(event.Name) && !isScriptFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < debounce {
				continue
			}
			last[event.Name] = now

			change, ok := w.describe(event)
			if !ok {
				continue
			}
			select {
			case w.Changes <- change:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
				w.logger.Warn("dropped watcher error", zap.Error(err))
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) describe(event fsnotify.Event) (Change, bool) {
	removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	if isSpecFile(event.Name) {
		name := filepath.Base(event.Name)
		w.lib.Invalidate(name)
		w.logger.Info("prefab changed", zap.String("prefab", name), zap.Bool("removed", removed))
		return Change{Name: ScriptName(name), Path: event.Name, Removed: removed}, true
	}

	change := Change{Name: ScriptName(event.Name), Path: event.Name, Script: true, Removed: removed}
	if !removed {
		src, err := os.ReadFile(event.Name)
		if err != nil {
			w.logger.Warn("read changed script", zap.String("path", event.Name), zap.Error(err))
			return Change{}, false
		}
		change.Source = src
	}
	w.logger.Info("script changed", zap.String("script", change.Name), zap.Bool("removed", removed))
	return change, true
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}
