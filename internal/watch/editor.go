// Package watch provides a file-backed editor for `pyexpl watch`: the file on
// disk is the editor buffer, and every save is reported as a change.
package watch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/pyexpl/internal/logging"
)

// DefaultDebounce collapses the burst of events most editors emit per save.
const DefaultDebounce = 50 * time.Millisecond

// FileEditor mirrors a source file. It implements the playground's Editor.
type FileEditor struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logging.Logger

	mu       sync.RWMutex
	text     string
	onChange func(string)

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New reads path and prepares to watch it. Call Start to begin watching.
func New(path string, logger *logging.Logger) (*FileEditor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors that save by rename replace the inode.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &FileEditor{
		path:     abs,
		watcher:  watcher,
		debounce: DefaultDebounce,
		logger:   logger.WithComponent("watch"),
		text:     string(data),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (e *FileEditor) Path() string { return e.path }

// Text returns the last content read from disk.
func (e *FileEditor) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.text
}

// SetChangeCallback sets the function called with the new text after each
// save that changed the file's content. It runs on the watch goroutine.
func (e *FileEditor) SetChangeCallback(cb func(string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = cb
}

// Reload rereads the file and reports whether its content changed. The change
// callback is invoked when it did.
func (e *FileEditor) Reload() (bool, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	if bytes.Equal(data, []byte(e.text)) {
		e.mu.Unlock()
		return false, nil
	}
	e.text = string(data)
	cb := e.onChange
	e.mu.Unlock()

	if cb != nil {
		cb(string(data))
	}
	return true, nil
}

// Start begins watching for saves. Starting twice, or after Stop, does
// nothing.
func (e *FileEditor) Start() {
	e.startOnce.Do(func() {
		go e.watchLoop()
	})
}

// Stop stops watching and waits for the watch goroutine to exit. It also
// releases the watcher of an editor that was never started.
func (e *FileEditor) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		_ = e.watcher.Close()
	})
	e.startOnce.Do(func() {
		close(e.doneCh)
	})
	<-e.doneCh
}

func (e *FileEditor) watchLoop() {
	defer close(e.doneCh)

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C
	pending := false

	for {
		select {
		case <-e.stopCh:
			return

		case event, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != e.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounceTimer.Reset(e.debounce)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			changed, err := e.Reload()
			if err != nil {
				// Mid-rename saves briefly remove the file; the Create that
				// follows triggers another reload.
				e.logger.Debug("reload failed", "path", e.path, "error", err)
				continue
			}
			if changed {
				e.logger.Info("file changed", "path", e.path)
			}

		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.logger.Warn("watcher error", "error", err)
		}
	}
}
